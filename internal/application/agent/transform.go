package agent

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aescanero/chloe/pkg/domain"
	"go.uber.org/zap"
)

const (
	nativeProficiency = "Native or bilingual proficiency"
	timestampLayout   = "2006-01-02T15:04:05Z"
	defaultPostType   = "regular"
)

// cleanRaw removes null values at every depth of a scraper payload.
// An empty payload cleans to an empty list.
func cleanRaw(raw json.RawMessage) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return json.RawMessage("[]"), nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()

	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("failed to decode payload: %w", err)
	}

	cleaned, err := json.Marshal(removeNulls(v))
	if err != nil {
		return nil, fmt.Errorf("failed to encode cleaned payload: %w", err)
	}
	return cleaned, nil
}

func removeNulls(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			if val != nil {
				out[k] = removeNulls(val)
			}
		}
		return out
	case []interface{}:
		out := make([]interface{}, 0, len(t))
		for _, val := range t {
			if val != nil {
				out = append(out, removeNulls(val))
			}
		}
		return out
	default:
		return v
	}
}

// splitItems returns the items of a dataset payload. A single object is
// treated as a one item dataset.
func splitItems(raw json.RawMessage) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return []json.RawMessage{trimmed}, nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, fmt.Errorf("payload is not a list: %w", err)
	}
	return items, nil
}

type rawProfile struct {
	BasicInfo struct {
		FullName  string `json:"fullname"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Headline  string `json:"headline"`
		Location  struct {
			Full    string `json:"full"`
			City    string `json:"city"`
			Country string `json:"country"`
		} `json:"location"`
	} `json:"basic_info"`
	Experience     []json.RawMessage `json:"experience"`
	Education      []json.RawMessage `json:"education"`
	Certifications []json.RawMessage `json:"certifications"`
	Languages      []json.RawMessage `json:"languages"`
}

type rawExperience struct {
	Title          string   `json:"title"`
	Company        string   `json:"company"`
	Location       string   `json:"location"`
	Duration       string   `json:"duration"`
	Description    string   `json:"description"`
	EmploymentType string   `json:"employment_type"`
	LocationType   string   `json:"location_type"`
	Skills         []string `json:"skills"`
	IsCurrent      bool     `json:"is_current"`
}

type rawLanguage struct {
	Language    string `json:"language"`
	Proficiency string `json:"proficiency"`
}

type rawAuthor struct {
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	FirstNameAlt string `json:"firstName"`
	LastNameAlt  string `json:"lastName"`
	Headline     string `json:"headline"`
}

type rawTimestamp struct {
	Timestamp float64 `json:"timestamp"`
	Date      string  `json:"date"`
}

type rawPost struct {
	URL      string          `json:"url"`
	PostedAt *rawTimestamp   `json:"posted_at"`
	PostType string          `json:"post_type"`
	Author   *rawAuthor      `json:"author"`
	Text     string          `json:"text"`
	Stats    json.RawMessage `json:"stats"`
}

type rawReaction struct {
	Action     string        `json:"action"`
	Timestamps *rawTimestamp `json:"timestamps"`
	Text       string        `json:"text"`
	Author     *rawAuthor    `json:"author"`
	PostURL    string        `json:"post_url"`
}

// Profile is a transformed profile payload
type Profile struct {
	Lead           *domain.Lead
	Country        string
	Experiences    []domain.Experience
	Educations     []domain.Education
	Certifications []domain.Certification
}

// TransformProfile maps a cleaned profile payload. A payload without a
// profile item yields a lead carrying only its URL.
func TransformProfile(raw json.RawMessage, profileURL string, logger *zap.Logger) (*Profile, error) {
	out := &Profile{Lead: &domain.Lead{LinkedInURL: profileURL}}

	items, err := splitItems(raw)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		logger.Warn("empty profile payload, using minimal lead")
		return out, nil
	}

	var p rawProfile
	if err := json.Unmarshal(items[0], &p); err != nil {
		return nil, fmt.Errorf("failed to decode profile: %w", err)
	}

	lead := out.Lead
	lead.FullName = p.BasicInfo.FullName
	lead.FirstName = p.BasicInfo.FirstName
	lead.LastName = p.BasicInfo.LastName
	lead.Headline = p.BasicInfo.Headline
	lead.Location = firstNonEmpty(p.BasicInfo.Location.Full, p.BasicInfo.Location.City, p.BasicInfo.Location.Country)
	out.Country = p.BasicInfo.Location.Country

	for i, item := range p.Experience {
		var e rawExperience
		if err := json.Unmarshal(item, &e); err != nil {
			logger.Debug("skipping malformed experience", zap.Int("index", i), zap.Error(err))
			continue
		}
		out.Experiences = append(out.Experiences, domain.Experience{
			Title:          e.Title,
			Company:        e.Company,
			Location:       e.Location,
			Duration:       e.Duration,
			Description:    e.Description,
			EmploymentType: e.EmploymentType,
			LocationType:   e.LocationType,
			Skills:         strings.Join(e.Skills, ", "),
			IsCurrent:      e.IsCurrent,
		})
	}

	for _, e := range out.Experiences {
		if e.IsCurrent {
			lead.CurrentTitle = e.Title
			lead.CurrentCompany = e.Company
			break
		}
	}

	for i, item := range p.Education {
		var e domain.Education
		if err := json.Unmarshal(item, &e); err != nil {
			logger.Debug("skipping malformed education", zap.Int("index", i), zap.Error(err))
			continue
		}
		out.Educations = append(out.Educations, e)
	}

	for i, item := range p.Certifications {
		var c domain.Certification
		if err := json.Unmarshal(item, &c); err != nil {
			logger.Debug("skipping malformed certification", zap.Int("index", i), zap.Error(err))
			continue
		}
		out.Certifications = append(out.Certifications, c)
	}

	var native []string
	for _, item := range p.Languages {
		var l rawLanguage
		if err := json.Unmarshal(item, &l); err != nil {
			continue
		}
		if l.Proficiency == nativeProficiency && l.Language != "" {
			native = append(native, l.Language)
		}
	}
	lead.Languages = PreferredLanguage(native, out.Country)

	return out, nil
}

// TransformPosts maps a cleaned posts payload. Malformed items are skipped
// and IDs follow the position in the payload.
func TransformPosts(raw json.RawMessage, logger *zap.Logger) ([]domain.Post, error) {
	items, err := splitItems(raw)
	if err != nil {
		return nil, err
	}

	posts := make([]domain.Post, 0, len(items))
	for i, item := range items {
		var p rawPost
		if err := json.Unmarshal(item, &p); err != nil {
			logger.Debug("skipping malformed post", zap.Int("index", i), zap.Error(err))
			continue
		}

		post := domain.Post{
			ID:       fmt.Sprintf("post_id_%03d", i+1),
			URL:      p.URL,
			PostedAt: formatTimestamp(p.PostedAt),
			PostType: p.PostType,
			Text:     p.Text,
			Stats:    compactStats(p.Stats),
		}
		if post.PostType == "" {
			post.PostType = defaultPostType
		}
		if p.Author != nil {
			post.Author = &domain.PostAuthor{
				FirstName: p.Author.FirstName,
				LastName:  p.Author.LastName,
				Headline:  p.Author.Headline,
			}
		}
		posts = append(posts, post)
	}
	return posts, nil
}

// TransformReactions maps a cleaned reactions payload. Malformed items are
// skipped and IDs follow the position in the payload.
func TransformReactions(raw json.RawMessage, logger *zap.Logger) ([]domain.Reaction, error) {
	items, err := splitItems(raw)
	if err != nil {
		return nil, err
	}

	reactions := make([]domain.Reaction, 0, len(items))
	for i, item := range items {
		var r rawReaction
		if err := json.Unmarshal(item, &r); err != nil {
			logger.Debug("skipping malformed reaction", zap.Int("index", i), zap.Error(err))
			continue
		}

		reaction := domain.Reaction{
			ID:        fmt.Sprintf("reaction_id_%03d", i+1),
			Action:    r.Action,
			ReactedAt: formatTimestamp(r.Timestamps),
			PostText:  r.Text,
			PostURL:   r.PostURL,
		}
		if r.Author != nil {
			reaction.PostAuthor = &domain.PostAuthor{
				FirstName: r.Author.FirstNameAlt,
				LastName:  r.Author.LastNameAlt,
				Headline:  r.Author.Headline,
			}
		}
		reactions = append(reactions, reaction)
	}
	return reactions, nil
}

// formatTimestamp prefers the millisecond timestamp and falls back to the date
func formatTimestamp(ts *rawTimestamp) string {
	if ts == nil {
		return ""
	}
	if ts.Timestamp > 0 {
		return time.UnixMilli(int64(ts.Timestamp)).UTC().Format(timestampLayout)
	}
	return ts.Date
}

func compactStats(stats json.RawMessage) string {
	if len(stats) == 0 {
		return ""
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, stats); err != nil {
		return string(stats)
	}
	if buf.String() == "{}" {
		return ""
	}
	return buf.String()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
