package domain

// ProfileInsight is the model's reading of the lead's profile
type ProfileInsight struct {
	Summary               string   `json:"summary" jsonschema:"description=1-3 sentence professional synopsis" validate:"required"`
	WorkExperienceSummary string   `json:"work_experience_summary,omitempty" jsonschema:"description=Career progression and key roles"`
	EducationSummary      string   `json:"education_summary,omitempty" jsonschema:"description=Educational background"`
	TopicsOfInterest      []string `json:"topics_of_interest" jsonschema:"description=Professional topics the lead cares about"`
	Keywords              []string `json:"keywords" jsonschema:"description=Searchable skills and technologies"`
	Interests             []string `json:"interests" jsonschema:"description=Personal and professional interests"`
	NotableProjects       string   `json:"notable_projects,omitempty" jsonschema:"description=Projects worth mentioning"`
	Confidence            float64  `json:"confidence" jsonschema:"description=Confidence score between 0 and 1,minimum=0,maximum=1" validate:"gte=0,lte=1"`
}

// InteractionsInsight is the model's reading of the lead's activity
type InteractionsInsight struct {
	Summary         string   `json:"summary" jsonschema:"description=Behavioral overview" validate:"required"`
	PainPoints      []string `json:"pain_points" jsonschema:"description=Professional challenges inferred from activity"`
	ApproachAngles  []string `json:"approach_angles" jsonschema:"description=Value propositions likely to resonate"`
	EngagementStyle string   `json:"engagement_style,omitempty" jsonschema:"description=How the lead engages on the network"`
	Confidence      float64  `json:"confidence" jsonschema:"description=Confidence score between 0 and 1,minimum=0,maximum=1" validate:"gte=0,lte=1"`
}

// PostComment is a suggested comment on one of the lead's posts
type PostComment struct {
	PostID  string `json:"post_id" jsonschema:"description=Identifier of the commented post" validate:"required"`
	PostURL string `json:"post_url,omitempty"`
	Comment string `json:"comment" jsonschema:"description=Suggested comment text" validate:"required"`
}

// LinkedInMessages is a direct message sequence
type LinkedInMessages struct {
	Initial           string `json:"initial" jsonschema:"description=Initial outreach message" validate:"required"`
	FollowUpDay3      string `json:"follow_up_day3,omitempty"`
	FollowUpDay7      string `json:"follow_up_day7,omitempty"`
	ObjectionResponse string `json:"objection_response,omitempty"`
}

// EmailMessage is one email of a sequence
type EmailMessage struct {
	Subject  string `json:"subject" validate:"required"`
	BodyText string `json:"body_text" validate:"required"`
	BodyHTML string `json:"body_html,omitempty"`
}

// EmailSequence is an email outreach sequence
type EmailSequence struct {
	Initial           EmailMessage  `json:"initial"`
	FollowUpDay3      *EmailMessage `json:"follow_up_day3,omitempty"`
	FollowUpDay7      *EmailMessage `json:"follow_up_day7,omitempty"`
	ObjectionResponse *EmailMessage `json:"objection_response,omitempty"`
}

// OutreachMessages bundles every outreach suggestion for a lead
type OutreachMessages struct {
	Summary           string            `json:"summary" jsonschema:"description=How to approach this lead" validate:"required"`
	Languages         string            `json:"languages,omitempty" jsonschema:"description=Language the messages are written in"`
	PostComments      []PostComment     `json:"post_comments" validate:"dive"`
	LinkedInMessages  *LinkedInMessages `json:"linkedin_messages,omitempty"`
	Emails            *EmailSequence    `json:"emails,omitempty"`
	TriggersPosts     []string          `json:"triggers_posts" jsonschema:"description=Post IDs that justify the outreach"`
	TriggersReactions []string          `json:"triggers_reactions" jsonschema:"description=Reaction IDs that justify the outreach"`
	Confidence        float64           `json:"confidence" jsonschema:"description=Confidence score between 0 and 1,minimum=0,maximum=1" validate:"gte=0,lte=1"`
}
