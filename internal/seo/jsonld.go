package seo

import (
	"encoding/json"
	"strings"

	"github.com/2beens/portfoliocms/internal/content"
)

type jsonLDThing struct {
	Type string       `json:"@type"`
	Name string       `json:"name,omitempty"`
	URL  string       `json:"url,omitempty"`
	ID   string       `json:"@id,omitempty"`
	Logo *jsonLDThing `json:"logo,omitempty"`
}

// BlogPosting is the schema.org structured data of a post page.
type BlogPosting struct {
	Context          string      `json:"@context"`
	Type             string      `json:"@type"`
	Headline         string      `json:"headline"`
	Description      string      `json:"description"`
	Image            string      `json:"image"`
	Author           jsonLDThing `json:"author"`
	Publisher        jsonLDThing `json:"publisher"`
	DatePublished    string      `json:"datePublished,omitempty"`
	DateModified     string      `json:"dateModified,omitempty"`
	MainEntityOfPage jsonLDThing `json:"mainEntityOfPage"`
	Keywords         string      `json:"keywords"`
	ArticleSection   string      `json:"articleSection"`
	WordCount        int         `json:"wordCount"`
	TimeRequired     string      `json:"timeRequired"`
}

func NewBlogPosting(site Site, p *content.Post) BlogPosting {
	return BlogPosting{
		Context:     "https://schema.org",
		Type:        "BlogPosting",
		Headline:    p.Title,
		Description: p.Excerpt,
		Image:       site.PostImage(p),
		Author: jsonLDThing{
			Type: "Person",
			Name: site.AuthorName,
			URL:  site.BaseURL,
		},
		Publisher: jsonLDThing{
			Type: "Organization",
			Name: site.Name,
			Logo: &jsonLDThing{Type: "ImageObject", URL: site.URL(LogoPath)},
		},
		DatePublished: isoTime(p.PublishedAt()),
		DateModified:  isoTime(p.LastModified()),
		MainEntityOfPage: jsonLDThing{
			Type: "WebPage",
			ID:   site.PostURL(p),
		},
		Keywords:       Keywords(p),
		ArticleSection: p.Category,
		// content split on single spaces
		WordCount:    len(strings.Split(p.Content, " ")),
		TimeRequired: p.ReadTime,
	}
}

// JSON encodes the structured data for a script tag. json.Marshal escapes <, > and &,
// so the result cannot close the surrounding script element.
func (b BlogPosting) JSON() (string, error) {
	data, err := json.Marshal(b)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
