package content

import (
	"errors"
	"time"
)

const (
	DateLayout      = "2006-01-02"
	DefaultCategory = "AI Development"
	DefaultReadTime = "5 min read"
)

var ErrPostNotFound = errors.New("post not found")

// Categories offered by the admin editor. Category is free text, this is only the recommended set.
var Categories = []string{
	"AI Development",
	"Machine Learning",
	"Web Development",
	"Data Science",
	"Automation",
	"Career",
	"Tutorial",
}

// Post is a single blog post record, as stored in the blog_posts table.
type Post struct {
	ID        string    `json:"id"`
	Slug      string    `json:"slug,omitempty"`
	Title     string    `json:"title"`
	Excerpt   string    `json:"excerpt"`
	Content   string    `json:"content"`
	Category  string    `json:"category"`
	Tags      []string  `json:"tags"`
	Published bool      `json:"published"`
	Date      string    `json:"date"`
	ReadTime  string    `json:"read_time"`
	ImageURL  string    `json:"image_url,omitempty"`
	CreatedAt time.Time `json:"created_at,omitzero"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
}

// EffectiveSlug returns the slug used in URLs; posts without a slug are addressed by id.
func (p *Post) EffectiveSlug() string {
	if p.Slug != "" {
		return p.Slug
	}
	return p.ID
}

func (p *Post) IsPublic() bool {
	return p.Published
}

// PublishedAt parses Date, and returns the zero time if it is not a valid date.
func (p *Post) PublishedAt() time.Time {
	t, err := time.Parse(DateLayout, p.Date)
	if err != nil {
		return time.Time{}
	}
	return t
}

// LastModified is the updated_at timestamp, falling back to the publication date.
func (p *Post) LastModified() time.Time {
	if !p.UpdatedAt.IsZero() {
		return p.UpdatedAt
	}
	return p.PublishedAt()
}

// RefreshReadTime re-derives ReadTime from Content.
func (p *Post) RefreshReadTime() {
	p.ReadTime = CalculateReadingTime(p.Content).Text
}

type Project struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Tech        string `json:"tech"`
	Description string `json:"description"`
	GithubURL   string `json:"githubUrl,omitempty"`
	DemoURL     string `json:"demoUrl,omitempty"`
	Featured    bool   `json:"featured"`
}

// Stats is the admin dashboard summary.
type Stats struct {
	Total     int `json:"total"`
	Published int `json:"published"`
	Drafts    int `json:"drafts"`
}

func StatsOf(posts []*Post) Stats {
	stats := Stats{Total: len(posts)}
	for _, p := range posts {
		if p.Published {
			stats.Published++
		}
	}
	stats.Drafts = stats.Total - stats.Published
	return stats
}
