package seo

import (
	"encoding/xml"
	"fmt"
	"io"
	"time"

	"github.com/2beens/portfoliocms/internal/content"
)

const sitemapNS = "http://www.sitemaps.org/schemas/sitemap/0.9"

type SitemapURL struct {
	Loc        string  `xml:"loc"`
	LastMod    string  `xml:"lastmod,omitempty"`
	ChangeFreq string  `xml:"changefreq"`
	Priority   float64 `xml:"priority"`
}

type URLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []SitemapURL `xml:"url"`
}

var staticSections = []struct {
	fragment   string
	changeFreq string
	priority   float64
}{
	{"", "weekly", 1.0},
	{"/#about", "monthly", 0.8},
	{"/#experience", "monthly", 0.8},
	{"/#skills", "monthly", 0.7},
	{"/#projects", "weekly", 0.9},
	{"/#blog", "daily", 0.9},
	{"/#education", "yearly", 0.6},
}

// BuildSitemap lists the home page sections followed by every published post with a slug.
func BuildSitemap(site Site, posts []*content.Post, now time.Time) URLSet {
	urlSet := URLSet{XMLNS: sitemapNS}
	for _, s := range staticSections {
		urlSet.URLs = append(urlSet.URLs, SitemapURL{
			Loc:        site.URL(s.fragment),
			LastMod:    now.UTC().Format(time.RFC3339),
			ChangeFreq: s.changeFreq,
			Priority:   s.priority,
		})
	}

	for _, p := range posts {
		if !p.IsPublic() || p.Slug == "" {
			continue
		}
		lastModified := p.LastModified()
		if lastModified.IsZero() {
			lastModified = now
		}
		urlSet.URLs = append(urlSet.URLs, SitemapURL{
			Loc:        site.URL("/blog/" + p.Slug),
			LastMod:    lastModified.UTC().Format(time.RFC3339),
			ChangeFreq: "weekly",
			Priority:   0.7,
		})
	}

	return urlSet
}

func WriteSitemap(w io.Writer, urlSet URLSet) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(urlSet); err != nil {
		return fmt.Errorf("encode sitemap: %w", err)
	}
	return enc.Flush()
}

var disallowed = []string{"/admin/", "/login", "/auth/", "/api/", "/reset-password"}

func Robots(site Site) string {
	robots := "User-agent: *\nAllow: /\n"
	for _, path := range disallowed {
		robots += "Disallow: " + path + "\n"
	}
	robots += "\nSitemap: " + site.URL("/sitemap.xml") + "\n"
	return robots
}
