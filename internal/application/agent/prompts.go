package agent

import (
	"bytes"
	"fmt"
	"text/template"
)

// DefaultCompanyName is used when neither the request nor the agent profile names the seller
const DefaultCompanyName = "our company"

// DefaultCompanyContext describes the seller when no context is configured
const DefaultCompanyContext = `# Company context

Company name: [Company name]
Description: [What the company does]
Website: [https://example.com]

## Products and services

[Main offers, programs or services]

## Target customers

[Ideal customer profile: industries, company sizes, roles, problems solved]

## Value proposition

[Key differentiators, success metrics, notable customers]

## Communication style

[Brand voice: formal or casual, key themes, tone]`

// PromptTemplates holds text/template sources. Empty entries use the built-in templates.
type PromptTemplates struct {
	Profile      string `yaml:"profile"`
	Interactions string `yaml:"interactions"`
	Outreach     string `yaml:"outreach"`
}

// ProfilePromptData feeds the profile insight template
type ProfilePromptData struct {
	CompanyName      string
	CompanyContext   string
	DateNow          string
	InsightsLanguage string
	FullName         string
	Headline         string
	CurrentTitle     string
	CurrentCompany   string
	Location         string
	Languages        string
	Experiences      string
	Educations       string
	Certifications   string
}

// InteractionsPromptData feeds the interactions insight template
type InteractionsPromptData struct {
	CompanyName      string
	CompanyContext   string
	DateNow          string
	InsightsLanguage string
	FullName         string
	CurrentTitle     string
	CurrentCompany   string
	PostsCount       int
	Posts            string
	ReactionsCount   int
	Reactions        string
}

// OutreachPromptData feeds the outreach messages template
type OutreachPromptData struct {
	CompanyName         string
	CompanyContext      string
	DateNow             string
	FullName            string
	FirstName           string
	CurrentTitle        string
	CurrentCompany      string
	Languages           string
	OutreachLanguage    string
	ProfileInsight      string
	InteractionsInsight string
	PostsForComments    string
}

// Prompts renders the generation prompts
type Prompts struct {
	profile      *template.Template
	interactions *template.Template
	outreach     *template.Template
}

// NewPrompts parses the built-in templates, replacing those overridden in t
func NewPrompts(t PromptTemplates) (*Prompts, error) {
	var (
		p   Prompts
		err error
	)
	if p.profile, err = parsePrompt("profile", orDefault(t.Profile, profilePrompt)); err != nil {
		return nil, err
	}
	if p.interactions, err = parsePrompt("interactions", orDefault(t.Interactions, interactionsPrompt)); err != nil {
		return nil, err
	}
	if p.outreach, err = parsePrompt("outreach", orDefault(t.Outreach, outreachPrompt)); err != nil {
		return nil, err
	}
	return &p, nil
}

func parsePrompt(name, src string) (*template.Template, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(src)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s prompt: %w", name, err)
	}
	return tmpl, nil
}

// render executes custom when set, else the configured template
func render(base *template.Template, custom string, data interface{}) (string, error) {
	tmpl := base
	if custom != "" {
		var err error
		if tmpl, err = parsePrompt(base.Name()+" custom", custom); err != nil {
			return "", err
		}
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render %s prompt: %w", base.Name(), err)
	}
	return buf.String(), nil
}

// Profile renders the profile insight prompt
func (p *Prompts) Profile(custom string, data ProfilePromptData) (string, error) {
	return render(p.profile, custom, data)
}

// Interactions renders the interactions insight prompt
func (p *Prompts) Interactions(custom string, data InteractionsPromptData) (string, error) {
	return render(p.interactions, custom, data)
}

// Outreach renders the outreach messages prompt
func (p *Prompts) Outreach(custom string, data OutreachPromptData) (string, error) {
	return render(p.outreach, custom, data)
}

const profilePrompt = `You are a sales expert. Analyze a lead's professional profile and provide actionable insights that help the {{.CompanyName}} sales team craft the best outreach strategy.

# YOUR COMPANY

{{.CompanyContext}}

# THE LEAD

Current date: {{.DateNow}}

Write ALL insights in {{.InsightsLanguage}}: summary, work experience summary, education summary, topics of interest, keywords, interests and notable projects.

Lead information:
- Name: {{.FullName}}
- Headline: {{.Headline}}
- Current title: {{.CurrentTitle}}
- Current company: {{.CurrentCompany}}
- Location: {{.Location}}
- Languages: {{.Languages}}

Professional experience:
{{.Experiences}}

Education:
{{.Educations}}

Certifications:
{{.Certifications}}

# YOUR TASK

Identify how the offerings of {{.CompanyName}} could benefit this lead or their organization. Provide:
1. summary: who they are professionally and why they may fit (1-3 sentences)
2. work_experience_summary: career progression, achievements, technical or leadership roles
3. education_summary: educational background and gaps {{.CompanyName}} could fill
4. topics_of_interest: 3-7 topics that would resonate
5. keywords: 5-10 skills or technologies aligned with the offerings
6. interests: 3-7 professional interests
7. notable_projects: anything showing they value learning, innovation or transformation
8. confidence: your confidence in this analysis, between 0.0 and 1.0

Guidelines:
- Tell whether this is a B2B lead who could buy for their company
- Look for challenges or needs {{.CompanyName}} can address and consider their decision-making authority
- Be specific and base every insight strictly on the data above

Reply with a single JSON object using exactly the field names listed above.`

const interactionsPrompt = `You are a social selling expert. Analyze a lead's LinkedIn activity to understand their behavior and interests and find the best engagement opportunities for the {{.CompanyName}} sales team.

# YOUR COMPANY

{{.CompanyContext}}

# THE LEAD'S ACTIVITY

Current date: {{.DateNow}}

Write ALL insights in {{.InsightsLanguage}}: behavioral overview, pain points, approach angles and engagement style.

Lead information:
- Name: {{.FullName}}
- Current title: {{.CurrentTitle}}
- Current company: {{.CurrentCompany}}

Lead's posts ({{.PostsCount}} total):
{{.Posts}}

Lead's reactions ({{.ReactionsCount}} total):
{{.Reactions}}

# YOUR TASK

Provide:
1. summary: how the lead engages on LinkedIn (thought leader, passive consumer, active engager)
2. pain_points: 3-7 professional challenges {{.CompanyName}} could solve
3. approach_angles: 3-7 value propositions of {{.CompanyName}} likely to resonate
4. engagement_style: how they interact
5. confidence: your confidence given the amount and quality of data, between 0.0 and 1.0

Guidelines:
- Focus on patterns across all posts and reactions, not single items
- Connect recurring themes to the value proposition of {{.CompanyName}}
- Be honest about data limitations in the confidence score

Reply with a single JSON object using exactly the field names listed above.`

const outreachPrompt = `You are a sales copywriter. Craft personalized outreach that shows how {{.CompanyName}} can help this lead reach their professional goals.

# YOUR COMPANY

{{.CompanyContext}}

# THE LEAD AND INSIGHTS

Current date: {{.DateNow}}

Lead information:
- Name: {{.FullName}}
- First name: {{.FirstName}}
- Current title: {{.CurrentTitle}}
- Current company: {{.CurrentCompany}}
- Languages: {{.Languages}}

Profile insight:
{{.ProfileInsight}}

Interactions insight:
{{.InteractionsInsight}}

Recent posts (for commenting):
{{.PostsForComments}}

# YOUR TASK

Create a complete outreach strategy. Address the lead by first name.
1. summary: 2-3 sentence strategy overview
2. languages: the language used for the messages
3. post_comments: 1-3 authentic comments of 2-4 sentences on the recent posts, each with post_id, post_url and comment
4. linkedin_messages: initial (150-200 words), follow_up_day3, follow_up_day7 and objection_response (100-150 words each)
5. emails: initial, follow_up_day3, follow_up_day7 and objection_response, each with subject, body_text and body_html
6. triggers_posts: IDs of posts worth engaging on
7. triggers_reactions: IDs of reactions indicating good timing or interest
8. confidence: your confidence in this strategy, between 0.0 and 1.0

Guidelines:
- Focus on their goals and challenges and position {{.CompanyName}} as a partner
- Reference specific details from their profile, posts or company
- Use clear, consultative calls to action and simple HTML in body_html

Language rules:
- Write ALL outreach content in {{.OutreachLanguage}}, including comments, messages, email subjects and bodies
- Set the "languages" field to "{{.OutreachLanguage}}"
- Do not mix languages

Reply with a single JSON object using exactly the field names listed above.`
