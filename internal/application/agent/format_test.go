package agent

import (
	"strings"
	"testing"

	"github.com/aescanero/chloe/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestFormatters_Empty(t *testing.T) {
	assert.Equal(t, "No experience data available.", FormatExperiences(nil))
	assert.Equal(t, "No education data available.", FormatEducations(nil))
	assert.Equal(t, "No certification data available.", FormatCertifications(nil))
	assert.Equal(t, "No posts data available.", FormatPosts(nil, 10))
	assert.Equal(t, "No reactions data available.", FormatReactions(nil, 20))
	assert.Equal(t, "No recent posts available for commenting.", FormatPostsForComments(nil, 3))
}

func TestFormatExperiences(t *testing.T) {
	out := FormatExperiences([]domain.Experience{
		{Title: "CTO", Company: "Acme", Duration: "3 yrs", IsCurrent: true, Description: strings.Repeat("é", 1200)},
		{Company: "Beta"},
	})

	lines := strings.Split(out, "\n")
	assert.Equal(t, "1. CTO at Acme (3 yrs) [CURRENT]", lines[0])
	assert.Equal(t, "   - "+strings.Repeat("é", 1000)+"...", lines[1])
	assert.Equal(t, "2. N/A at Beta", lines[2])
}

func TestFormatEducationsAndCertifications(t *testing.T) {
	assert.Equal(t, "1. MSc - EPITA (CS) [2010 - 2015]\n2. BSc",
		FormatEducations([]domain.Education{
			{DegreeName: "MSc", School: "EPITA", FieldOfStudy: "CS", Duration: "2010 - 2015"},
			{Degree: "BSc"},
		}))
	assert.Equal(t, "1. CKA - CNCF (Issued: 2024)",
		FormatCertifications([]domain.Certification{{Name: "CKA", Issuer: "CNCF", IssuedDate: "2024"}}))
}

func TestFormatPosts_Limit(t *testing.T) {
	posts := make([]domain.Post, 12)
	for i := range posts {
		posts[i] = domain.Post{ID: "p", Text: "t"}
	}
	assert.Equal(t, 10, strings.Count(FormatPosts(posts, 10), "Post ID:"))
	assert.Equal(t, 3, strings.Count(FormatPostsForComments(posts, 3), "POST ID:"))
}

func TestFormatReactions(t *testing.T) {
	out := FormatReactions([]domain.Reaction{{
		ID:         "reaction_id_001",
		Action:     "like",
		ReactedAt:  "2025-01-01",
		PostText:   "Hiring!",
		PostAuthor: &domain.PostAuthor{FirstName: "Ann", LastName: "Lee", Headline: "CTO"},
	}}, 20)

	assert.Equal(t, "Reaction ID: reaction_id_001 | Action: like | Date: 2025-01-01\nPost: Hiring!\nAuthor: Ann Lee - CTO", out)
}
