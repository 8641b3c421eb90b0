package seo

import (
	"github.com/2beens/portfoliocms/internal/content"
)

type Image struct {
	URL    string
	Width  int
	Height int
	Alt    string
}

// Metadata is rendered into the head of a post page.
type Metadata struct {
	Title         string
	Description   string
	Author        string
	Keywords      string
	Category      string
	Canonical     string
	SiteName      string
	Locale        string
	OGType        string
	PublishedTime string
	ModifiedTime  string
	Tags          []string
	Image         Image
	TwitterCard   string
}

func NotFoundMetadata() Metadata {
	return Metadata{
		Title:       "Post Not Found",
		Description: "The requested blog post could not be found.",
	}
}

func PostMetadata(site Site, p *content.Post) Metadata {
	tags := p.Tags
	if len(tags) == 0 {
		tags = []string{p.Category}
	}

	return Metadata{
		Title:         p.Title + " | " + site.Name,
		Description:   p.Excerpt,
		Author:        site.AuthorName,
		Keywords:      Keywords(p),
		Category:      p.Category,
		Canonical:     site.PostURL(p),
		SiteName:      site.Name,
		Locale:        Locale,
		OGType:        "article",
		PublishedTime: isoTime(p.PublishedAt()),
		ModifiedTime:  isoTime(p.LastModified()),
		Tags:          tags,
		Image: Image{
			URL:    site.PostImage(p),
			Width:  1200,
			Height: 630,
			Alt:    p.Title,
		},
		TwitterCard: "summary_large_image",
	}
}
