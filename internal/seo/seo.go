package seo

import (
	"strings"
	"time"

	"github.com/2beens/portfoliocms/internal/content"
)

const (
	DefaultImagePath = "/og-default.jpg"
	LogoPath         = "/logo.png"
	Locale           = "en_US"
)

// Site identifies the portfolio in page metadata and structured data.
type Site struct {
	BaseURL    string
	Name       string
	AuthorName string
}

func NewSite(baseURL, name, author string) Site {
	return Site{
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
		Name:       name,
		AuthorName: author,
	}
}

func (s Site) URL(path string) string {
	return s.BaseURL + path
}

func (s Site) PostURL(p *content.Post) string {
	return s.URL("/blog/" + p.EffectiveSlug())
}

func (s Site) PostImage(p *content.Post) string {
	if p.ImageURL != "" {
		return p.ImageURL
	}
	return s.URL(DefaultImagePath)
}

// Keywords are the post tags, or its category when it has none.
func Keywords(p *content.Post) string {
	if len(p.Tags) > 0 {
		return strings.Join(p.Tags, ", ")
	}
	return p.Category
}

func isoTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
