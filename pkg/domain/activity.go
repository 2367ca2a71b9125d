package domain

// PostAuthor identifies who wrote a post
type PostAuthor struct {
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Headline  string `json:"headline,omitempty"`
}

// Post is a post published by the lead
type Post struct {
	ID       string      `json:"id"`
	URL      string      `json:"url,omitempty"`
	PostedAt string      `json:"posted_at,omitempty"`
	PostType string      `json:"post_type,omitempty"`
	Author   *PostAuthor `json:"author,omitempty"`
	Text     string      `json:"text,omitempty"`
	Stats    string      `json:"stats,omitempty"`
}

// Reaction is a reaction of the lead on someone else's post
type Reaction struct {
	ID         string      `json:"id"`
	Action     string      `json:"action,omitempty"`
	ReactedAt  string      `json:"reacted_at,omitempty"`
	PostText   string      `json:"post_text,omitempty"`
	PostAuthor *PostAuthor `json:"post_author,omitempty"`
	PostURL    string      `json:"post_url,omitempty"`
}
