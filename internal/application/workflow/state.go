package workflow

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/aescanero/chloe/pkg/domain"
)

// Replace is a field merged by replacement. The zero value is unset.
type Replace[T any] struct {
	value T
	set   bool
}

// Set marks the field as written with v
func (r *Replace[T]) Set(v T) {
	r.value = v
	r.set = true
}

// Get returns the value and whether it was set
func (r Replace[T]) Get() (T, bool) {
	return r.value, r.set
}

// IsSet reports whether the field was written
func (r Replace[T]) IsSet() bool {
	return r.set
}

// Field identifies a replace field of the state
type Field uint32

const (
	FieldDateNow Field = 1 << iota
	FieldLead
	FieldExperiences
	FieldEducations
	FieldCertifications
	FieldProfileRaw
	FieldOutreachLanguage
	FieldPosts
	FieldPostsRaw
	FieldReactions
	FieldReactionsRaw
	FieldProfileInsight
	FieldInteractionsInsight
	FieldOutreachMessages

	// FieldNone is the mask of a node that only emits warnings
	FieldNone Field = 0
)

var fieldNames = []struct {
	field Field
	name  string
}{
	{FieldDateNow, "date_now"},
	{FieldLead, "lead"},
	{FieldExperiences, "experiences"},
	{FieldEducations, "educations"},
	{FieldCertifications, "certifications"},
	{FieldProfileRaw, "profile_raw"},
	{FieldOutreachLanguage, "outreach_language"},
	{FieldPosts, "posts"},
	{FieldPostsRaw, "posts_raw"},
	{FieldReactions, "reactions"},
	{FieldReactionsRaw, "reactions_raw"},
	{FieldProfileInsight, "profile_insight"},
	{FieldInteractionsInsight, "interactions_insight"},
	{FieldOutreachMessages, "outreach_messages"},
}

// String lists the field names in the mask
func (f Field) String() string {
	if f == FieldNone {
		return "none"
	}
	var names []string
	for _, fn := range fieldNames {
		if f&fn.field != 0 {
			names = append(names, fn.name)
		}
	}
	return strings.Join(names, "|")
}

// Patch is the partial update a node returns
type Patch struct {
	DateNow          Replace[time.Time]
	Lead             Replace[*domain.Lead]
	Experiences      Replace[[]domain.Experience]
	Educations       Replace[[]domain.Education]
	Certifications   Replace[[]domain.Certification]
	ProfileRaw       Replace[json.RawMessage]
	OutreachLanguage Replace[string]
	Posts            Replace[[]domain.Post]
	PostsRaw         Replace[json.RawMessage]
	Reactions        Replace[[]domain.Reaction]
	ReactionsRaw     Replace[json.RawMessage]

	ProfileInsight      Replace[*domain.ProfileInsight]
	InteractionsInsight Replace[*domain.InteractionsInsight]
	OutreachMessages    Replace[*domain.OutreachMessages]

	// Warnings are appended to the state in order
	Warnings []string
}

// NewPatch returns an empty patch
func NewPatch() *Patch {
	return &Patch{}
}

// Warn appends a warning
func (p *Patch) Warn(msg string) {
	p.Warnings = append(p.Warnings, msg)
}

// Warnf appends a formatted warning
func (p *Patch) Warnf(format string, args ...interface{}) {
	p.Warnings = append(p.Warnings, fmt.Sprintf(format, args...))
}

// Fields returns the mask of replace fields the patch sets
func (p *Patch) Fields() Field {
	var f Field
	mark := func(set bool, field Field) {
		if set {
			f |= field
		}
	}
	mark(p.DateNow.IsSet(), FieldDateNow)
	mark(p.Lead.IsSet(), FieldLead)
	mark(p.Experiences.IsSet(), FieldExperiences)
	mark(p.Educations.IsSet(), FieldEducations)
	mark(p.Certifications.IsSet(), FieldCertifications)
	mark(p.ProfileRaw.IsSet(), FieldProfileRaw)
	mark(p.OutreachLanguage.IsSet(), FieldOutreachLanguage)
	mark(p.Posts.IsSet(), FieldPosts)
	mark(p.PostsRaw.IsSet(), FieldPostsRaw)
	mark(p.Reactions.IsSet(), FieldReactions)
	mark(p.ReactionsRaw.IsSet(), FieldReactionsRaw)
	mark(p.ProfileInsight.IsSet(), FieldProfileInsight)
	mark(p.InteractionsInsight.IsSet(), FieldInteractionsInsight)
	mark(p.OutreachMessages.IsSet(), FieldOutreachMessages)
	return f
}

// State is the record threaded through a run
type State struct {
	RunID   string
	Request domain.RunRequest

	domain.RunResult
}

// NewState creates the initial state of a run with an empty warnings list
func NewState(runID string, req domain.RunRequest) *State {
	s := &State{
		RunID:   runID,
		Request: req,
	}
	s.Warnings = []string{}
	return s
}

// Snapshot returns a copy nodes can read while the phase runs.
// The warnings slice is clipped so appends never reach the original.
func (s *State) Snapshot() State {
	snap := *s
	snap.Warnings = slices.Clip(slices.Clone(s.Warnings))
	return snap
}

// Apply merges p into the state. Set replace fields overwrite the current
// value and warnings are appended.
func (s *State) Apply(p *Patch) {
	if p == nil {
		return
	}

	applyReplace(p.DateNow, &s.DateNow)
	applyReplace(p.Lead, &s.Lead)
	applyReplace(p.Experiences, &s.Experiences)
	applyReplace(p.Educations, &s.Educations)
	applyReplace(p.Certifications, &s.Certifications)
	applyReplace(p.ProfileRaw, &s.ProfileRaw)
	applyReplace(p.OutreachLanguage, &s.OutreachLanguage)
	applyReplace(p.Posts, &s.Posts)
	applyReplace(p.PostsRaw, &s.PostsRaw)
	applyReplace(p.Reactions, &s.Reactions)
	applyReplace(p.ReactionsRaw, &s.ReactionsRaw)
	applyReplace(p.ProfileInsight, &s.ProfileInsight)
	applyReplace(p.InteractionsInsight, &s.InteractionsInsight)
	applyReplace(p.OutreachMessages, &s.OutreachMessages)

	if len(p.Warnings) > 0 {
		s.Warnings = append(s.Warnings, p.Warnings...)
	}
}

func applyReplace[T any](r Replace[T], dst *T) {
	if v, ok := r.Get(); ok {
		*dst = v
	}
}

// Result returns a copy of the accumulated result
func (s *State) Result() *domain.RunResult {
	res := s.RunResult
	res.Warnings = slices.Clone(s.Warnings)
	if res.Warnings == nil {
		res.Warnings = []string{}
	}
	return &res
}
