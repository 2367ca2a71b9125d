package http

import (
	"errors"
	"net/http"

	"github.com/aescanero/chloe/internal/application/orchestrator"
	"github.com/aescanero/chloe/internal/application/workers"
	"github.com/aescanero/chloe/pkg/domain"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	status := http.StatusOK
	body := gin.H{
		"status":    "healthy",
		"timestamp": s.now().UTC(),
		"version":   APIVersion,
	}

	if s.health != nil {
		pool := s.health.GetStatus()
		body["workers"] = gin.H{
			"total":       pool.TotalWorkers,
			"idle":        pool.IdleWorkers,
			"busy":        pool.BusyWorkers,
			"stopped":     pool.StoppedWorkers,
			"queue_depth": pool.QueueDepth,
		}
		if !pool.Healthy {
			status = http.StatusServiceUnavailable
			body["status"] = "unhealthy"
		}
	}

	c.JSON(status, body)
}

// handleInvoke runs one analysis and waits for the result
func (s *Server) handleInvoke(c *gin.Context) {
	var req domain.RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.logger.Warn("invalid request body", zap.Error(err))
		abortWithError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
		return
	}

	record, err := s.orchestrator.Invoke(c.Request.Context(), req)
	if err != nil && record == nil {
		s.writeError(c, err)
		return
	}
	if err != nil {
		s.writeRunError(c, record, err)
		return
	}

	c.JSON(http.StatusOK, NewInvokeResponse(record))
}

// handleBatchInvoke runs up to 10 analyses concurrently
func (s *Server) handleBatchInvoke(c *gin.Context) {
	var req BatchInvokeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.logger.Warn("invalid batch request body", zap.Error(err))
		abortWithError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
		return
	}

	started := s.now().UTC()
	reqs := req.RunRequests()
	results, err := s.orchestrator.InvokeBatch(c.Request.Context(), reqs)
	if err != nil {
		s.writeError(c, err)
		return
	}

	resp := BatchInvokeResponse{
		BatchMetadata: BatchMetadata{TotalRequested: len(reqs), StartedAt: started},
		Results:       make([]*InvokeResponse, len(results)),
	}
	for i, r := range results {
		var item *InvokeResponse
		if r.Record != nil {
			item = NewInvokeResponse(r.Record)
		} else {
			reqs[i].ApplyDefaults()
			item = NewFailedInvokeResponse(reqs[i], started, ErrorDetail{Code: errorCode(r.Err), Message: r.Err.Error()})
		}
		if r.Err != nil && len(item.Errors) == 0 {
			item.Errors = append(item.Errors, ErrorDetail{Code: errorCode(r.Err), Message: r.Err.Error()})
		}
		if r.Err != nil {
			resp.BatchMetadata.TotalFailed++
		} else {
			resp.BatchMetadata.TotalCompleted++
		}
		resp.Results[i] = item
	}
	resp.BatchMetadata.DurationMs = s.now().Sub(started).Milliseconds()

	c.JSON(http.StatusOK, resp)
}

// handleSubmitRun queues an analysis and returns immediately
func (s *Server) handleSubmitRun(c *gin.Context) {
	var req domain.RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.logger.Warn("invalid request body", zap.Error(err))
		abortWithError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
		return
	}

	runID, err := s.orchestrator.Submit(c.Request.Context(), req)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, RunSubmitResponse{
		RunID:       runID,
		Status:      string(domain.RunStatusSubmitted),
		SubmittedAt: s.now().UTC(),
	})
}

// handleListRuns lists stored run IDs
func (s *Server) handleListRuns(c *gin.Context) {
	ids, err := s.orchestrator.List(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}

	c.JSON(http.StatusOK, gin.H{
		"runs":  ids,
		"total": len(ids),
	})
}

// handleGetRun returns the progress of a run
func (s *Server) handleGetRun(c *gin.Context) {
	record, err := s.orchestrator.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, NewRunStatusResponse(record))
}

// handleGetResult returns the analysis response of a finished run
func (s *Server) handleGetResult(c *gin.Context) {
	record, err := s.orchestrator.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}

	if !record.Status.IsTerminal() {
		abortWithError(c, http.StatusConflict, "NOT_COMPLETED", "run has not finished yet", gin.H{
			"run_id": record.ID,
			"status": record.Status,
			"phase":  record.Phase,
		})
		return
	}

	c.JSON(http.StatusOK, NewInvokeResponse(record))
}

// handleCancelRun cancels an in-flight run
func (s *Server) handleCancelRun(c *gin.Context) {
	runID := c.Param("id")

	if err := s.orchestrator.Cancel(c.Request.Context(), runID); err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"run_id":       runID,
		"status":       domain.RunStatusCancelled,
		"cancelled_at": s.now().UTC(),
	})
}

// writeError maps manager errors to HTTP responses
func (s *Server) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, orchestrator.ErrInvalidRequest):
		status = http.StatusBadRequest
	case errors.Is(err, orchestrator.ErrRunNotFound):
		status = http.StatusNotFound
	case errors.Is(err, orchestrator.ErrRunTerminal):
		status = http.StatusConflict
	case errors.Is(err, workers.ErrQueueFull), errors.Is(err, workers.ErrPoolStopped):
		status = http.StatusServiceUnavailable
	default:
		s.logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err))
	}
	abortWithError(c, status, errorCode(err), err.Error(), nil)
}

// writeRunError reports a run that executed but did not complete
func (s *Server) writeRunError(c *gin.Context, record *domain.RunRecord, err error) {
	status := http.StatusInternalServerError
	if record.Status == domain.RunStatusCancelled {
		status = http.StatusServiceUnavailable
	}
	abortWithError(c, status, errorCode(err), err.Error(), gin.H{
		"run_id": record.ID,
		"status": record.Status,
		"phase":  record.Phase,
	})
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, orchestrator.ErrInvalidRequest):
		return "INVALID_REQUEST"
	case errors.Is(err, orchestrator.ErrRunNotFound):
		return "NOT_FOUND"
	case errors.Is(err, orchestrator.ErrRunTerminal):
		return "RUN_TERMINAL"
	case errors.Is(err, workers.ErrQueueFull), errors.Is(err, workers.ErrPoolStopped):
		return "QUEUE_UNAVAILABLE"
	default:
		return "RUN_FAILED"
	}
}

func abortWithError(c *gin.Context, status int, code, message string, details interface{}) {
	c.AbortWithStatusJSON(status, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}
