package agent

import (
	"fmt"
	"strings"

	"github.com/aescanero/chloe/pkg/domain"
)

const (
	maxTextLength        = 1000
	promptPostsLimit     = 10
	promptReactionsLimit = 20
	commentPostsLimit    = 3
)

func truncate(s string) string {
	r := []rune(s)
	if len(r) <= maxTextLength {
		return s
	}
	return string(r[:maxTextLength]) + "..."
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// FormatExperiences renders experiences as a numbered list
func FormatExperiences(experiences []domain.Experience) string {
	if len(experiences) == 0 {
		return "No experience data available."
	}

	lines := make([]string, 0, len(experiences))
	for i, e := range experiences {
		var b strings.Builder
		fmt.Fprintf(&b, "%d. %s at %s", i+1, orDefault(e.Title, "N/A"), orDefault(e.Company, "N/A"))
		if e.Duration != "" {
			fmt.Fprintf(&b, " (%s)", e.Duration)
		}
		if e.IsCurrent {
			b.WriteString(" [CURRENT]")
		}
		if e.Description != "" {
			fmt.Fprintf(&b, "\n   - %s", truncate(e.Description))
		}
		lines = append(lines, b.String())
	}
	return strings.Join(lines, "\n")
}

// FormatEducations renders educations as a numbered list
func FormatEducations(educations []domain.Education) string {
	if len(educations) == 0 {
		return "No education data available."
	}

	lines := make([]string, 0, len(educations))
	for i, e := range educations {
		var b strings.Builder
		fmt.Fprintf(&b, "%d. %s", i+1, firstNonEmpty(e.DegreeName, e.Degree, "N/A"))
		if e.School != "" {
			fmt.Fprintf(&b, " - %s", e.School)
		}
		if e.FieldOfStudy != "" {
			fmt.Fprintf(&b, " (%s)", e.FieldOfStudy)
		}
		if e.Duration != "" {
			fmt.Fprintf(&b, " [%s]", e.Duration)
		}
		lines = append(lines, b.String())
	}
	return strings.Join(lines, "\n")
}

// FormatCertifications renders certifications as a numbered list
func FormatCertifications(certifications []domain.Certification) string {
	if len(certifications) == 0 {
		return "No certification data available."
	}

	lines := make([]string, 0, len(certifications))
	for i, c := range certifications {
		var b strings.Builder
		fmt.Fprintf(&b, "%d. %s", i+1, orDefault(c.Name, "N/A"))
		if c.Issuer != "" {
			fmt.Fprintf(&b, " - %s", c.Issuer)
		}
		if c.IssuedDate != "" {
			fmt.Fprintf(&b, " (Issued: %s)", c.IssuedDate)
		}
		lines = append(lines, b.String())
	}
	return strings.Join(lines, "\n")
}

// FormatPosts renders at most limit posts for analysis
func FormatPosts(posts []domain.Post, limit int) string {
	if len(posts) == 0 {
		return "No posts data available."
	}

	blocks := make([]string, 0, limit)
	for _, p := range posts[:min(limit, len(posts))] {
		var b strings.Builder
		fmt.Fprintf(&b, "Post ID: %s", p.ID)
		if p.PostedAt != "" {
			fmt.Fprintf(&b, " | Posted: %s", p.PostedAt)
		}
		if p.PostType != "" {
			fmt.Fprintf(&b, " | Type: %s", p.PostType)
		}
		if p.Text != "" {
			fmt.Fprintf(&b, "\nContent: %s", truncate(p.Text))
		}
		if p.Stats != "" {
			fmt.Fprintf(&b, "\nStats: %s", p.Stats)
		}
		blocks = append(blocks, b.String())
	}
	return strings.Join(blocks, "\n\n")
}

// FormatReactions renders at most limit reactions for analysis
func FormatReactions(reactions []domain.Reaction, limit int) string {
	if len(reactions) == 0 {
		return "No reactions data available."
	}

	blocks := make([]string, 0, limit)
	for _, r := range reactions[:min(limit, len(reactions))] {
		var b strings.Builder
		fmt.Fprintf(&b, "Reaction ID: %s | Action: %s", r.ID, r.Action)
		if r.ReactedAt != "" {
			fmt.Fprintf(&b, " | Date: %s", r.ReactedAt)
		}
		if r.PostText != "" {
			fmt.Fprintf(&b, "\nPost: %s", truncate(r.PostText))
		}
		if r.PostAuthor != nil {
			fmt.Fprintf(&b, "\nAuthor: %s %s", r.PostAuthor.FirstName, r.PostAuthor.LastName)
			if r.PostAuthor.Headline != "" {
				fmt.Fprintf(&b, " - %s", r.PostAuthor.Headline)
			}
		}
		blocks = append(blocks, b.String())
	}
	return strings.Join(blocks, "\n\n")
}

// FormatPostsForComments renders the most recent posts the lead could be
// engaged on
func FormatPostsForComments(posts []domain.Post, limit int) string {
	if len(posts) == 0 {
		return "No recent posts available for commenting."
	}

	blocks := make([]string, 0, limit)
	for _, p := range posts[:min(limit, len(posts))] {
		var b strings.Builder
		fmt.Fprintf(&b, "POST ID: %s\n", p.ID)
		fmt.Fprintf(&b, "URL: %s\n", orDefault(p.URL, "N/A"))
		if p.PostedAt != "" {
			fmt.Fprintf(&b, "Posted: %s\n", p.PostedAt)
		}
		if p.Text != "" {
			fmt.Fprintf(&b, "Content:\n%s\n", truncate(p.Text))
		}
		if p.Stats != "" {
			fmt.Fprintf(&b, "Engagement: %s", p.Stats)
		}
		blocks = append(blocks, b.String())
	}
	return strings.Join(blocks, "\n\n---\n\n")
}
