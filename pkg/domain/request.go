package domain

// ProcessingMode selects the model tier used for generation
type ProcessingMode string

const (
	ModeFast     ProcessingMode = "fast"
	ModeBalanced ProcessingMode = "balanced"
	ModePro      ProcessingMode = "pro"
)

// SupportedLanguages lists the languages insights and outreach can be written in
var SupportedLanguages = []string{
	"English", "French", "Spanish", "German", "Italian", "Portuguese", "Dutch",
	"Polish", "Russian", "Chinese", "Japanese", "Korean", "Arabic",
}

const (
	DefaultPostsLimit       = 10
	DefaultReactionsLimit   = 10
	DefaultInsightsLanguage = "French"
)

// RunRequest configures one analysis run
type RunRequest struct {
	LinkedInURL string `json:"linkedin_url" validate:"required,linkedin_profile"`

	PostsLimit     int `json:"posts_limit" validate:"gte=1,lte=100"`
	ReactionsLimit int `json:"reactions_limit" validate:"gte=1,lte=100"`

	// Generation flags; nil means enabled
	GetProfileInsight      *bool `json:"get_profile_insight,omitempty"`
	GetInteractionsInsight *bool `json:"get_interactions_insight,omitempty"`
	GetOutreachMessages    *bool `json:"get_outreach_messages,omitempty"`

	InsightsLanguage string `json:"insights_languages" validate:"required,supported_language"`
	// OutreachLanguage overrides the language detected from the profile
	OutreachLanguage string `json:"outreach_messages_languages,omitempty" validate:"omitempty,supported_language"`

	GetRawData bool           `json:"get_raw_data,omitempty"`
	GetEmails  bool           `json:"get_emails,omitempty"`
	GetPhones  bool           `json:"get_phones,omitempty"`
	Mode       ProcessingMode `json:"mode" validate:"oneof=fast balanced pro"`

	CompanyName              string `json:"company_name,omitempty"`
	CustomCompanyContext     string `json:"custom_company_context,omitempty"`
	CustomProfilePrompt      string `json:"custom_profile_prompt,omitempty"`
	CustomInteractionsPrompt string `json:"custom_interactions_prompt,omitempty"`
	CustomOutreachPrompt     string `json:"custom_outreach_prompt,omitempty"`
}

// ApplyDefaults fills zero values with their documented defaults
func (r *RunRequest) ApplyDefaults() {
	if r.PostsLimit == 0 {
		r.PostsLimit = DefaultPostsLimit
	}
	if r.ReactionsLimit == 0 {
		r.ReactionsLimit = DefaultReactionsLimit
	}
	if r.InsightsLanguage == "" {
		r.InsightsLanguage = DefaultInsightsLanguage
	}
	if r.Mode == "" {
		r.Mode = ModeBalanced
	}
}

// ProfileInsightEnabled reports whether the profile insight should be generated
func (r *RunRequest) ProfileInsightEnabled() bool { return enabled(r.GetProfileInsight) }

// InteractionsInsightEnabled reports whether the interactions insight should be generated
func (r *RunRequest) InteractionsInsightEnabled() bool { return enabled(r.GetInteractionsInsight) }

// OutreachMessagesEnabled reports whether outreach messages should be generated
func (r *RunRequest) OutreachMessagesEnabled() bool { return enabled(r.GetOutreachMessages) }

func enabled(flag *bool) bool {
	return flag == nil || *flag
}

// Bool returns a pointer to b, for request flags
func Bool(b bool) *bool {
	return &b
}

// IsSupportedLanguage reports whether lang is one of SupportedLanguages
func IsSupportedLanguage(lang string) bool {
	for _, l := range SupportedLanguages {
		if l == lang {
			return true
		}
	}
	return false
}
