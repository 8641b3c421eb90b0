package seo

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2beens/portfoliocms/internal/content"
)

var (
	testSite = NewSite("https://example.com/", "Jane Doe Portfolio", "Jane Doe")
	testNow  = time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
)

func testPost() *content.Post {
	return &content.Post{
		ID:        "42",
		Slug:      "intro-to-rag",
		Title:     "Intro to RAG",
		Excerpt:   "Retrieval augmented generation, explained",
		Content:   "one two  three",
		Category:  "AI Development",
		Tags:      []string{"ai", "rag"},
		Published: true,
		Date:      "2025-05-20",
		ReadTime:  "1 min read",
		UpdatedAt: time.Date(2025, 5, 21, 10, 30, 0, 0, time.UTC),
	}
}

func TestPostMetadata(t *testing.T) {
	meta := PostMetadata(testSite, testPost())
	assert.Equal(t, "Intro to RAG | Jane Doe Portfolio", meta.Title)
	assert.Equal(t, "Retrieval augmented generation, explained", meta.Description)
	assert.Equal(t, "https://example.com/blog/intro-to-rag", meta.Canonical)
	assert.Equal(t, "ai, rag", meta.Keywords)
	assert.Equal(t, "article", meta.OGType)
	assert.Equal(t, "2025-05-20T00:00:00Z", meta.PublishedTime)
	assert.Equal(t, "2025-05-21T10:30:00Z", meta.ModifiedTime)
	assert.Equal(t, "https://example.com/og-default.jpg", meta.Image.URL)
	assert.Equal(t, "summary_large_image", meta.TwitterCard)

	p := testPost()
	p.Tags = nil
	p.ImageURL = "https://cdn.example.com/cover.png"
	p.UpdatedAt = time.Time{}
	meta = PostMetadata(testSite, p)
	assert.Equal(t, "AI Development", meta.Keywords)
	assert.Equal(t, []string{"AI Development"}, meta.Tags)
	assert.Equal(t, "https://cdn.example.com/cover.png", meta.Image.URL)
	assert.Equal(t, meta.PublishedTime, meta.ModifiedTime)
}

func TestBlogPosting(t *testing.T) {
	posting := NewBlogPosting(testSite, testPost())
	assert.Equal(t, 4, posting.WordCount)
	assert.Equal(t, "1 min read", posting.TimeRequired)
	assert.Equal(t, "https://example.com/blog/intro-to-rag", posting.MainEntityOfPage.ID)

	raw, err := posting.JSON()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &decoded))
	assert.Equal(t, "https://schema.org", decoded["@context"])
	assert.Equal(t, "BlogPosting", decoded["@type"])
	assert.Equal(t, "ai, rag", decoded["keywords"])
	publisher := decoded["publisher"].(map[string]any)
	assert.Equal(t, "https://example.com/logo.png", publisher["logo"].(map[string]any)["url"])

	p := testPost()
	p.Title = "</script><script>alert(1)</script>"
	raw, err = NewBlogPosting(testSite, p).JSON()
	require.NoError(t, err)
	assert.NotContains(t, raw, "</script>")
}

func TestBuildSitemap(t *testing.T) {
	draft := testPost()
	draft.Slug = "a-draft"
	draft.Published = false
	noSlug := testPost()
	noSlug.Slug = ""
	dateOnly := testPost()
	dateOnly.Slug = "date-only"
	dateOnly.UpdatedAt = time.Time{}

	urlSet := BuildSitemap(testSite, []*content.Post{testPost(), draft, noSlug, dateOnly}, testNow)
	require.Len(t, urlSet.URLs, 9)

	assert.Equal(t, SitemapURL{
		Loc: "https://example.com", LastMod: "2025-06-01T08:00:00Z", ChangeFreq: "weekly", Priority: 1.0,
	}, urlSet.URLs[0])
	assert.Equal(t, "https://example.com/#blog", urlSet.URLs[5].Loc)
	assert.Equal(t, "daily", urlSet.URLs[5].ChangeFreq)
	assert.Equal(t, 0.6, urlSet.URLs[6].Priority)

	assert.Equal(t, SitemapURL{
		Loc: "https://example.com/blog/intro-to-rag", LastMod: "2025-05-21T10:30:00Z", ChangeFreq: "weekly", Priority: 0.7,
	}, urlSet.URLs[7])
	assert.Equal(t, "2025-05-20T00:00:00Z", urlSet.URLs[8].LastMod)

	var buf bytes.Buffer
	require.NoError(t, WriteSitemap(&buf, urlSet))
	assert.True(t, strings.HasPrefix(buf.String(), xml.Header))
	assert.Contains(t, buf.String(), `<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">`)
	assert.Contains(t, buf.String(), "<loc>https://example.com/blog/date-only</loc>")
}

func TestRobots(t *testing.T) {
	robots := Robots(testSite)
	assert.True(t, strings.HasPrefix(robots, "User-agent: *\nAllow: /\n"))
	for _, path := range []string{"/admin/", "/login", "/auth/", "/api/", "/reset-password"} {
		assert.Contains(t, robots, "Disallow: "+path+"\n")
	}
	assert.Contains(t, robots, "Sitemap: https://example.com/sitemap.xml")
}

type postsSourceStub struct {
	posts []*content.Post
	err   error
}

func (s *postsSourceStub) Published(context.Context) ([]*content.Post, error) {
	return s.posts, s.err
}

func TestHandler(t *testing.T) {
	source := &postsSourceStub{posts: []*content.Post{testPost()}}
	handler := NewHandler(testSite, source)
	handler.now = func() time.Time { return testNow }
	r := mux.NewRouter()
	handler.SetupRoutes(r)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest("GET", "/sitemap.xml", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/xml; charset=utf-8", rr.Header().Get("Content-Type"))

	var urlSet URLSet
	require.NoError(t, xml.Unmarshal(rr.Body.Bytes(), &urlSet))
	assert.Len(t, urlSet.URLs, 8)

	// degraded to static sections
	source.err = errors.New("db down")
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest("GET", "/sitemap.xml", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	urlSet = URLSet{}
	require.NoError(t, xml.Unmarshal(rr.Body.Bytes(), &urlSet))
	assert.Len(t, urlSet.URLs, 7)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest("GET", "/robots.txt", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Disallow: /api/")
}
