package http

import (
	"time"

	"github.com/aescanero/chloe/pkg/domain"
)

// APIVersion is reported in every analysis response
const APIVersion = "1.0.4"

// RestrictedAccess is returned for contact data the service does not disclose
const RestrictedAccess = "Restricted access, please contact your administrator to get access"

// InvokeResponse is the result of one analysis
type InvokeResponse struct {
	Metadata Metadata      `json:"metadata"`
	Lead     *domain.Lead  `json:"lead"`
	Insights Insights      `json:"insights"`
	Phones   string        `json:"phones"`
	Emails   string        `json:"emails"`
	RawData  *RawData      `json:"raw_data,omitempty"`
	Errors   []ErrorDetail `json:"errors"`
}

// Metadata describes how a response was produced
type Metadata struct {
	Version    string                `json:"version"`
	RequestID  string                `json:"request_id"`
	StartedAt  time.Time             `json:"started_at"`
	DurationMs int64                 `json:"duration_ms"`
	Mode       domain.ProcessingMode `json:"mode"`
	Warnings   []string              `json:"warnings"`
}

// Insights bundles the generated insights; disabled or failed ones are null
type Insights struct {
	ProfileInsight      *domain.ProfileInsight      `json:"profile_insight"`
	InteractionsInsight *domain.InteractionsInsight `json:"interactions_insight"`
	OutreachMessages    *domain.OutreachMessages    `json:"outreach_messages"`
}

// RawData carries the structured data collected for the lead
type RawData struct {
	Lead           *domain.Lead           `json:"lead,omitempty"`
	Experiences    []domain.Experience    `json:"experiences,omitempty"`
	Educations     []domain.Education     `json:"educations,omitempty"`
	Certifications []domain.Certification `json:"certifications,omitempty"`
	Posts          []domain.Post          `json:"posts,omitempty"`
	Reactions      []domain.Reaction      `json:"reactions,omitempty"`
}

// BatchInvokeRequest analyzes several profiles with one shared configuration
type BatchInvokeRequest struct {
	LinkedInURLs []string `json:"linkedin_urls" binding:"required"`

	PostsLimit     int `json:"posts_limit"`
	ReactionsLimit int `json:"reactions_limit"`

	GetProfileInsight      *bool `json:"get_profile_insight,omitempty"`
	GetInteractionsInsight *bool `json:"get_interactions_insight,omitempty"`
	GetOutreachMessages    *bool `json:"get_outreach_messages,omitempty"`

	InsightsLanguage string `json:"insights_languages"`
	OutreachLanguage string `json:"outreach_messages_languages,omitempty"`

	GetRawData bool                  `json:"get_raw_data,omitempty"`
	GetEmails  bool                  `json:"get_emails,omitempty"`
	GetPhones  bool                  `json:"get_phones,omitempty"`
	Mode       domain.ProcessingMode `json:"mode"`
}

// RunRequests expands the batch into one run request per URL, in order
func (r *BatchInvokeRequest) RunRequests() []domain.RunRequest {
	reqs := make([]domain.RunRequest, len(r.LinkedInURLs))
	for i, url := range r.LinkedInURLs {
		reqs[i] = domain.RunRequest{
			LinkedInURL:            url,
			PostsLimit:             r.PostsLimit,
			ReactionsLimit:         r.ReactionsLimit,
			GetProfileInsight:      r.GetProfileInsight,
			GetInteractionsInsight: r.GetInteractionsInsight,
			GetOutreachMessages:    r.GetOutreachMessages,
			InsightsLanguage:       r.InsightsLanguage,
			OutreachLanguage:       r.OutreachLanguage,
			GetRawData:             r.GetRawData,
			GetEmails:              r.GetEmails,
			GetPhones:              r.GetPhones,
			Mode:                   r.Mode,
		}
	}
	return reqs
}

// BatchMetadata summarizes a batch
type BatchMetadata struct {
	TotalRequested int       `json:"total_requested"`
	TotalCompleted int       `json:"total_completed"`
	TotalFailed    int       `json:"total_failed"`
	StartedAt      time.Time `json:"started_at"`
	DurationMs     int64     `json:"duration_ms"`
}

// BatchInvokeResponse holds one analysis response per requested URL, in
// request order. Failed profiles carry their errors in the response.
type BatchInvokeResponse struct {
	BatchMetadata BatchMetadata     `json:"batch_metadata"`
	Results       []*InvokeResponse `json:"results"`
}

// RunSubmitResponse represents an asynchronous submission
type RunSubmitResponse struct {
	RunID       string    `json:"run_id"`
	Status      string    `json:"status"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// RunStatusResponse is the progress of a run
type RunStatusResponse struct {
	RunID       string           `json:"run_id"`
	Status      domain.RunStatus `json:"status"`
	LinkedInURL string           `json:"linkedin_url"`
	Phase       string           `json:"phase,omitempty"`
	Warnings    int              `json:"warnings"`
	Error       string           `json:"error,omitempty"`
	SubmittedAt time.Time        `json:"submitted_at"`
	StartedAt   *time.Time       `json:"started_at,omitempty"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail represents error details
type ErrorDetail struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// NewInvokeResponse maps a run record to the analysis response
func NewInvokeResponse(record *domain.RunRecord) *InvokeResponse {
	resp := &InvokeResponse{
		Metadata: Metadata{
			Version:    APIVersion,
			RequestID:  record.ID,
			StartedAt:  record.SubmittedAt,
			DurationMs: record.Duration().Milliseconds(),
			Mode:       record.Request.Mode,
			Warnings:   []string{},
		},
		Phones: RestrictedAccess,
		Emails: RestrictedAccess,
		Errors: []ErrorDetail{},
	}
	if record.StartedAt != nil {
		resp.Metadata.StartedAt = *record.StartedAt
	}

	result := record.Result
	if result == nil {
		result = &domain.RunResult{}
	}

	resp.Lead = result.Lead
	if resp.Lead == nil {
		resp.Lead = &domain.Lead{LinkedInURL: record.Request.LinkedInURL}
	}
	if result.Warnings != nil {
		resp.Metadata.Warnings = result.Warnings
	}
	resp.Insights = Insights{
		ProfileInsight:      result.ProfileInsight,
		InteractionsInsight: result.InteractionsInsight,
		OutreachMessages:    result.OutreachMessages,
	}

	if record.Request.GetRawData {
		resp.RawData = &RawData{
			Lead:           result.Lead,
			Experiences:    result.Experiences,
			Educations:     result.Educations,
			Certifications: result.Certifications,
			Posts:          result.Posts,
			Reactions:      result.Reactions,
		}
	}

	switch record.Status {
	case domain.RunStatusFailed:
		resp.Errors = append(resp.Errors, ErrorDetail{Code: "RUN_FAILED", Message: record.Error})
	case domain.RunStatusCancelled:
		resp.Errors = append(resp.Errors, ErrorDetail{Code: "RUN_CANCELLED", Message: "run was cancelled"})
	}

	return resp
}

// NewFailedInvokeResponse is the response of a profile that never produced a run record
func NewFailedInvokeResponse(req domain.RunRequest, startedAt time.Time, detail ErrorDetail) *InvokeResponse {
	return &InvokeResponse{
		Metadata: Metadata{
			Version:   APIVersion,
			StartedAt: startedAt,
			Mode:      req.Mode,
			Warnings:  []string{},
		},
		Lead:   &domain.Lead{LinkedInURL: req.LinkedInURL},
		Phones: RestrictedAccess,
		Emails: RestrictedAccess,
		Errors: []ErrorDetail{detail},
	}
}

// NewRunStatusResponse summarizes a run record
func NewRunStatusResponse(record *domain.RunRecord) RunStatusResponse {
	resp := RunStatusResponse{
		RunID:       record.ID,
		Status:      record.Status,
		LinkedInURL: record.Request.LinkedInURL,
		Phase:       record.Phase,
		Error:       record.Error,
		SubmittedAt: record.SubmittedAt,
		StartedAt:   record.StartedAt,
		CompletedAt: record.CompletedAt,
	}
	if record.Result != nil {
		resp.Warnings = len(record.Result.Warnings)
	}
	return resp
}
