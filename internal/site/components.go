package site

import (
	"context"
	"io"
	"strconv"

	"github.com/a-h/templ"

	"github.com/2beens/portfoliocms/internal/seo"
)

// pageView is one rendered page: the layout slots plus the body placed in <main>.
type pageView struct {
	Title string
	Head  templ.Component
	Admin bool
	Body  templ.Component
}

// htmlWriter keeps the first write error, so components can emit markup without
// checking every write.
type htmlWriter struct {
	w   io.Writer
	err error
}

func newHTMLWriter(w io.Writer) *htmlWriter {
	return &htmlWriter{w: w}
}

func (hw *htmlWriter) raw(parts ...string) {
	for _, s := range parts {
		if hw.err != nil {
			return
		}
		_, hw.err = io.WriteString(hw.w, s)
	}
}

func (hw *htmlWriter) text(s string) {
	hw.raw(templ.EscapeString(s))
}

func (hw *htmlWriter) component(ctx context.Context, c templ.Component) {
	if hw.err != nil || c == nil {
		return
	}
	hw.err = c.Render(ctx, hw.w)
}

// meta writes <meta {key}="{name}" content="{content}">.
func (hw *htmlWriter) meta(key, name, content string) {
	hw.raw(`<meta `, key, `="`, templ.EscapeString(name), `" content="`, templ.EscapeString(content), "\">\n")
}

func attr(name, value string) string {
	return " " + name + `="` + templ.EscapeString(value) + `"`
}

// urlAttr sanitizes the url first, unsafe schemes end up as about:invalid.
func urlAttr(name, url string) string {
	return attr(name, string(templ.URL(url)))
}

func layout(site seo.Site, year int, view pageView) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		children := templ.GetChildren(ctx)
		ctx = templ.ClearChildren(ctx)

		hw := newHTMLWriter(w)
		hw.raw("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n")
		hw.raw("<meta charset=\"utf-8\">\n<meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">\n")
		hw.raw("<title>")
		hw.text(view.Title)
		hw.raw("</title>\n")
		if view.Head != nil {
			hw.component(ctx, view.Head)
		} else {
			hw.meta("name", "description", site.Name)
		}
		hw.raw("<link rel=\"stylesheet\" href=\"/static/style.css\">\n</head>\n<body>\n")

		hw.raw("<nav><a href=\"/\">")
		hw.text(site.Name)
		hw.raw("</a> <a href=\"/#blog\">Blog</a>")
		if view.Admin {
			hw.raw(" <a href=\"/admin\">Admin</a>")
		}
		hw.raw("</nav>\n<main>\n")
		hw.component(ctx, children)
		hw.raw("</main>\n<footer>&copy; ", strconv.Itoa(year), " ")
		hw.text(site.AuthorName)
		hw.raw("</footer>\n</body>\n</html>")
		return hw.err
	})
}

type notFoundData struct {
	Title       string
	Description string
	BackURL     string
	BackLabel   string
}

func notFoundPage(data notFoundData) pageView {
	return pageView{
		Title: data.Title,
		Head: templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
			hw := newHTMLWriter(w)
			hw.meta("name", "description", data.Description)
			hw.meta("name", "robots", "noindex")
			return hw.err
		}),
		Body: templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
			hw := newHTMLWriter(w)
			hw.raw("<h1>")
			hw.text(data.Title)
			hw.raw("</h1>\n")
			if data.Description != "" {
				hw.raw("<p>")
				hw.text(data.Description)
				hw.raw("</p>\n")
			}
			hw.raw("<p><a", urlAttr("href", data.BackURL), ">")
			hw.text(data.BackLabel)
			hw.raw("</a></p>\n")
			return hw.err
		}),
	}
}
