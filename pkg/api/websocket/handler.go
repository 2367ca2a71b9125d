package websocket

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"time"

	"github.com/aescanero/chloe/internal/application/orchestrator"
	"github.com/aescanero/chloe/pkg/domain"
	"github.com/aescanero/chloe/pkg/ports"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	eventBuffer = 64
)

// MessageTypeSnapshot is the type of the first message on a stream
const MessageTypeSnapshot = "run.snapshot"

// Snapshot describes a run when the client connects
type Snapshot struct {
	Type   string           `json:"type"`
	RunID  string           `json:"run_id"`
	Status domain.RunStatus `json:"status"`
	Phase  string           `json:"phase,omitempty"`
}

// RunGetter loads run records
type RunGetter interface {
	Get(ctx context.Context, runID string) (*domain.RunRecord, error)
}

// Handler handles WebSocket connections
type Handler struct {
	runs     RunGetter
	eventBus ports.EventBus
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewHandler creates a new WebSocket handler. An empty origins list or "*"
// accepts any origin.
func NewHandler(runs RunGetter, eventBus ports.EventBus, origins []string, logger *zap.Logger) *Handler {
	allowAll := len(origins) == 0 || slices.Contains(origins, "*")
	return &Handler{
		runs:     runs,
		eventBus: eventBus,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return allowAll || origin == "" || slices.Contains(origins, origin)
			},
		},
	}
}

// HandleRunStream streams the events of one run
func (h *Handler) HandleRunStream(c *gin.Context) {
	runID := c.Param("id")

	if _, err := h.runs.Get(c.Request.Context(), runID); err != nil {
		status := http.StatusInternalServerError
		code := "INTERNAL_ERROR"
		if errors.Is(err, orchestrator.ErrRunNotFound) {
			status, code = http.StatusNotFound, "NOT_FOUND"
		}
		c.AbortWithStatusJSON(status, gin.H{"error": gin.H{"code": code, "message": err.Error()}})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("failed to upgrade connection", zap.Error(err))
		return
	}
	defer func() { _ = conn.Close() }()

	logger := h.logger.With(zap.String("run_id", runID))
	logger.Info("WebSocket connection established", zap.String("client", c.ClientIP()))

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// Subscribe before the snapshot so no transition falls in between
	events := make(chan domain.Event, eventBuffer)
	for _, topic := range []string{ports.TopicRunEvents, ports.TopicNodeEvents} {
		if err := h.eventBus.Subscribe(ctx, topic, h.forward(ctx, runID, events, logger)); err != nil {
			logger.Error("failed to subscribe to events",
				zap.String("topic", topic),
				zap.Error(err))
			h.closeWith(conn, websocket.CloseInternalServerErr, "event subscription failed")
			return
		}
	}

	record, err := h.runs.Get(ctx, runID)
	if err != nil {
		h.closeWith(conn, websocket.CloseInternalServerErr, "run lookup failed")
		return
	}
	if err := h.write(conn, Snapshot{
		Type:   MessageTypeSnapshot,
		RunID:  record.ID,
		Status: record.Status,
		Phase:  record.Phase,
	}); err != nil {
		return
	}
	if record.Status.IsTerminal() {
		h.closeWith(conn, websocket.CloseNormalClosure, string(record.Status))
		return
	}

	go h.readPump(conn, cancel)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case event := <-events:
			if err := h.write(conn, event); err != nil {
				logger.Debug("failed to write event", zap.Error(err))
				return
			}
			if isTerminal(event.Type) {
				h.closeWith(conn, websocket.CloseNormalClosure, string(event.Type))
				return
			}
		}
	}
}

// forward filters events of runID into ch without blocking the bus
func (h *Handler) forward(ctx context.Context, runID string, ch chan<- domain.Event, logger *zap.Logger) ports.EventHandler {
	return func(_ context.Context, event domain.Event) error {
		if event.RunID != runID {
			return nil
		}
		select {
		case ch <- event:
		case <-ctx.Done():
		default:
			logger.Warn("event channel full, dropping event",
				zap.String("event_id", event.ID),
				zap.String("event_type", string(event.Type)))
		}
		return nil
	}
}

// readPump consumes control frames and detects client disconnects
func (h *Handler) readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.NextReader(); err != nil {
			return
		}
	}
}

func (h *Handler) write(conn *websocket.Conn, v interface{}) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(v)
}

func (h *Handler) closeWith(conn *websocket.Conn, code int, text string) {
	msg := websocket.FormatCloseMessage(code, text)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}

func isTerminal(t domain.EventType) bool {
	switch t {
	case domain.EventTypeRunCompleted, domain.EventTypeRunFailed, domain.EventTypeRunCancelled:
		return true
	}
	return false
}
