package domain

import (
	"encoding/json"
	"time"
)

// RunStatus is the lifecycle status of a run
type RunStatus string

const (
	RunStatusSubmitted RunStatus = "submitted"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// IsTerminal reports whether no further transition can happen
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed || s == RunStatusCancelled
}

// RunResult is everything a run has accumulated so far
type RunResult struct {
	DateNow time.Time `json:"date_now"`

	Lead           *Lead           `json:"lead,omitempty"`
	Experiences    []Experience    `json:"experiences,omitempty"`
	Educations     []Education     `json:"educations,omitempty"`
	Certifications []Certification `json:"certifications,omitempty"`
	Posts          []Post          `json:"posts,omitempty"`
	Reactions      []Reaction      `json:"reactions,omitempty"`

	ProfileRaw   json.RawMessage `json:"profile_raw,omitempty"`
	PostsRaw     json.RawMessage `json:"posts_raw,omitempty"`
	ReactionsRaw json.RawMessage `json:"reactions_raw,omitempty"`

	OutreachLanguage string `json:"outreach_language,omitempty"`

	ProfileInsight      *ProfileInsight      `json:"profile_insight,omitempty"`
	InteractionsInsight *InteractionsInsight `json:"interactions_insight,omitempty"`
	OutreachMessages    *OutreachMessages    `json:"outreach_messages,omitempty"`

	Warnings []string `json:"warnings"`
}

// RunRecord is the persisted view of a run
type RunRecord struct {
	ID          string     `json:"id"`
	Status      RunStatus  `json:"status"`
	Request     RunRequest `json:"request"`
	Result      *RunResult `json:"result,omitempty"`
	Phase       string     `json:"phase,omitempty"`
	Error       string     `json:"error,omitempty"`
	SubmittedAt time.Time  `json:"submitted_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Duration returns how long the run took, or zero while it is in flight
func (r *RunRecord) Duration() time.Duration {
	if r.StartedAt == nil || r.CompletedAt == nil {
		return 0
	}
	return r.CompletedAt.Sub(*r.StartedAt)
}
