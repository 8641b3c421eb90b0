package site

import (
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/a-h/templ"

	"github.com/2beens/portfoliocms/internal/content"
	"github.com/2beens/portfoliocms/internal/seo"
)

type homeData struct {
	Posts    []*content.Post
	Projects []*content.Project
}

type postData struct {
	Post   *content.Post
	Meta   seo.Metadata
	JSONLD string
	Body   string
}

func homePage(site seo.Site, data homeData) pageView {
	return pageView{
		Title: "Portfolio by " + site.AuthorName,
		Head: templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
			hw := newHTMLWriter(w)
			hw.meta("name", "description",
				"A personal portfolio showcasing engineering projects, technical experience, and AI explorations by "+site.AuthorName+".")
			hw.raw("<link rel=\"canonical\"", urlAttr("href", site.BaseURL), ">\n")
			return hw.err
		}),
		Body: homeContent(site, data),
	}
}

func homeContent(site seo.Site, data homeData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := newHTMLWriter(w)
		hw.raw("<section id=\"about\"><h1>")
		hw.text(site.AuthorName)
		hw.raw("</h1></section>\n")
		hw.raw("<section id=\"experience\"><h2>Experience</h2></section>\n")
		hw.raw("<section id=\"skills\"><h2>Skills</h2></section>\n")

		hw.raw("<section id=\"projects\">\n<h2>Projects</h2>\n")
		for _, p := range data.Projects {
			hw.component(ctx, projectCard(p))
		}
		hw.raw("</section>\n")

		hw.raw("<section id=\"blog\">\n<h2>Blog</h2>\n")
		if len(data.Posts) == 0 {
			hw.raw("<p>No posts yet.</p>\n")
		}
		for _, p := range data.Posts {
			hw.component(ctx, postCard(p))
		}
		hw.raw("</section>\n")

		hw.raw("<section id=\"education\"><h2>Education</h2></section>\n")
		return hw.err
	})
}

func projectCard(p *content.Project) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		hw := newHTMLWriter(w)
		class := "project"
		if p.Featured {
			class += " featured"
		}
		hw.raw("<article", attr("class", class), ">\n<h3>")
		hw.text(p.Title)
		hw.raw("</h3>\n<p class=\"tech\">")
		hw.text(p.Tech)
		hw.raw("</p>\n<p>")
		hw.text(p.Description)
		hw.raw("</p>\n")
		if p.GithubURL != "" {
			hw.raw("<a", urlAttr("href", p.GithubURL), ">Code</a> ")
		}
		if p.DemoURL != "" {
			hw.raw("<a", urlAttr("href", p.DemoURL), ">Demo</a>")
		}
		hw.raw("\n</article>\n")
		return hw.err
	})
}

func postCard(p *content.Post) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		hw := newHTMLWriter(w)
		hw.raw("<article class=\"post-card\">\n<span class=\"category\">")
		hw.text(p.Category)
		hw.raw("</span>\n<h3><a", urlAttr("href", "/blog/"+p.EffectiveSlug()), ">")
		hw.text(p.Title)
		hw.raw("</a></h3>\n<p>")
		hw.text(p.Excerpt)
		hw.raw("</p>\n<p class=\"meta\">")
		hw.text(longDate(p.Date))
		hw.raw(" &middot; ")
		hw.text(p.ReadTime)
		hw.raw("</p>\n</article>\n")
		return hw.err
	})
}

func postPage(data postData) pageView {
	return pageView{
		Title: data.Meta.Title,
		Head:  postHead(data.Meta, data.JSONLD),
		Body:  postContent(data),
	}
}

func postHead(m seo.Metadata, jsonLD string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := newHTMLWriter(w)
		hw.meta("name", "description", m.Description)
		hw.meta("name", "author", m.Author)
		hw.meta("name", "keywords", m.Keywords)
		hw.meta("name", "robots", "index, follow, max-image-preview:large, max-snippet:-1, max-video-preview:-1")
		hw.raw("<link rel=\"canonical\"", urlAttr("href", m.Canonical), ">\n")
		hw.meta("property", "og:title", m.Title)
		hw.meta("property", "og:description", m.Description)
		hw.meta("property", "og:url", m.Canonical)
		hw.meta("property", "og:site_name", m.SiteName)
		hw.meta("property", "og:locale", m.Locale)
		hw.meta("property", "og:type", m.OGType)
		hw.meta("property", "article:published_time", m.PublishedTime)
		hw.meta("property", "article:modified_time", m.ModifiedTime)
		hw.meta("property", "article:author", m.Author)
		for _, tag := range m.Tags {
			hw.meta("property", "article:tag", tag)
		}
		hw.meta("property", "og:image", m.Image.URL)
		hw.meta("property", "og:image:width", strconv.Itoa(m.Image.Width))
		hw.meta("property", "og:image:height", strconv.Itoa(m.Image.Height))
		hw.meta("property", "og:image:alt", m.Image.Alt)
		hw.meta("name", "twitter:card", m.TwitterCard)
		hw.meta("name", "twitter:title", m.Title)
		hw.meta("name", "twitter:description", m.Description)
		hw.meta("name", "twitter:image", m.Image.URL)

		// json.Marshal escapes <, > and &, the document cannot end the script element
		hw.raw("<script type=\"application/ld+json\">")
		hw.component(ctx, templ.Raw(jsonLD))
		hw.raw("</script>\n")
		return hw.err
	})
}

func postContent(data postData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := data.Post
		hw := newHTMLWriter(w)
		hw.raw("<a href=\"/#blog\">&larr; Back to Portfolio</a>\n<article>\n<header>\n")
		if p.ImageURL != "" {
			hw.raw("<img", urlAttr("src", p.ImageURL), attr("alt", p.Title), ">\n")
		}
		hw.raw("<span class=\"category\">")
		hw.text(p.Category)
		hw.raw("</span>\n<h1>")
		hw.text(p.Title)
		hw.raw("</h1>\n<p class=\"excerpt\">")
		hw.text(p.Excerpt)
		hw.raw("</p>\n<p class=\"meta\">")
		hw.text(longDate(p.Date))
		hw.raw(" &middot; ")
		hw.text(p.ReadTime)
		hw.raw("</p>\n")
		if len(p.Tags) > 0 {
			hw.raw("<ul class=\"tags\">")
			for _, tag := range p.Tags {
				hw.raw("<li>")
				hw.text(tag)
				hw.raw("</li>")
			}
			hw.raw("</ul>\n")
		}
		hw.raw("</header>\n<div class=\"post-body\">")
		// goldmark drops raw HTML from post content
		hw.component(ctx, templ.Raw(data.Body))
		hw.raw("</div>\n</article>\n")
		return hw.err
	})
}

func joinTags(tags []string) string {
	return strings.Join(tags, ", ")
}
