//go:build integration_test || all_tests

package test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/lib/pq"

	"github.com/2beens/portfoliocms/internal/blog"
	"github.com/2beens/portfoliocms/internal/content"
)

func (s *IntegrationTestSuite) adminRequest(ctx context.Context, token, method, path string, payload any) *http.Response {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		s.Require().NoError(err)
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, serverEndpoint+path, body)
	s.Require().NoError(err)
	req.Header.Set("User-Agent", "test-agent")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(authorized(req, token))
	s.Require().NoError(err)
	return resp
}

func (s *IntegrationTestSuite) getPublished(ctx context.Context) []*content.Post {
	req, err := http.NewRequestWithContext(ctx, "GET", serverEndpoint+"/api/blog", nil)
	s.Require().NoError(err)
	resp, err := s.httpClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var posts []*content.Post
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&posts))
	return posts
}

func (s *IntegrationTestSuite) getBody(path string) (int, string) {
	resp, err := s.httpClient.Get(serverEndpoint + path)
	s.Require().NoError(err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	return resp.StatusCode, string(body)
}

func (s *IntegrationTestSuite) TestBlog_PostLifecycle() {
	ctx := context.Background()
	token := doLogin(ctx, s.T(), s.httpClient, serverEndpoint, testEmail, testPassword)

	draft := blog.PostInput{
		Title:    "Intro to RAG",
		Slug:     "intro-to-rag",
		Excerpt:  "Retrieval augmented generation in a nutshell",
		Content:  "# RAG\n\nRetrieve, then **generate**.",
		Category: "AI Development",
		Date:     "2025-03-01",
	}
	resp := s.adminRequest(ctx, token, "POST", "/api/admin/posts", draft)
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	var created content.Post
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&created))
	s.Require().NoError(resp.Body.Close())
	s.NotEmpty(created.ID)
	s.Equal("1 min read", created.ReadTime)
	s.False(created.Published)

	// empty tags and image are stored as NULL
	var (
		tags     pq.StringArray
		imageSet bool
	)
	s.Require().NoError(s.DB.QueryRow(
		`SELECT tags, image_url IS NOT NULL FROM blog_posts WHERE id = $1`, created.ID,
	).Scan(&tags, &imageSet))
	s.Nil(tags)
	s.False(imageSet)

	s.Empty(s.getPublished(ctx))
	status, _ := s.getBody("/blog/intro-to-rag")
	s.Equal(http.StatusNotFound, status)

	// publish
	published := draft
	published.Published = true
	published.Tags = blog.TagList{"ai", "rag"}
	resp = s.adminRequest(ctx, token, "PUT", "/api/admin/posts/"+created.ID, published)
	s.Require().NoError(resp.Body.Close())
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	posts := s.getPublished(ctx)
	s.Require().Len(posts, 1)
	s.Equal("intro-to-rag", posts[0].Slug)
	s.Equal([]string{"ai", "rag"}, posts[0].Tags)

	status, body := s.getBody("/blog/intro-to-rag")
	s.Equal(http.StatusOK, status)
	s.Contains(body, "<strong>generate</strong>")
	s.Contains(body, `"@type":"BlogPosting"`)

	status, body = s.getBody("/sitemap.xml")
	s.Equal(http.StatusOK, status)
	s.Contains(body, serverEndpoint+"/blog/intro-to-rag")

	// duplicate slug
	resp = s.adminRequest(ctx, token, "POST", "/api/admin/posts", draft)
	dupBody, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	s.Require().NoError(resp.Body.Close())
	s.Equal(http.StatusConflict, resp.StatusCode)
	s.Contains(string(dupBody), blog.MsgSlugTakenOnCreate)

	// edit by slug resolves the id
	resp = s.adminRequest(ctx, token, "GET", "/admin/edit-by-slug/intro-to-rag", nil)
	s.Require().NoError(resp.Body.Close())
	s.Equal(http.StatusFound, resp.StatusCode)
	s.Equal("/admin/edit/"+created.ID, resp.Header.Get("Location"))

	resp = s.adminRequest(ctx, token, "DELETE", "/api/admin/posts/"+created.ID, nil)
	s.Require().NoError(resp.Body.Close())
	s.Equal(http.StatusOK, resp.StatusCode)

	s.Empty(s.getPublished(ctx))
	status, _ = s.getBody("/blog/intro-to-rag")
	s.Equal(http.StatusNotFound, status)
}

func (s *IntegrationTestSuite) TestBlog_ValidationNeverReachesDB() {
	ctx := context.Background()
	token := doLogin(ctx, s.T(), s.httpClient, serverEndpoint, testEmail, testPassword)

	resp := s.adminRequest(ctx, token, "POST", "/api/admin/posts", blog.PostInput{
		Title: "No content", Slug: "no-content", Excerpt: "x",
	})
	s.Require().NoError(resp.Body.Close())
	s.Equal(http.StatusBadRequest, resp.StatusCode)

	var count int
	s.Require().NoError(s.DB.QueryRow(`SELECT COUNT(*) FROM blog_posts`).Scan(&count))
	s.Zero(count)
}

func (s *IntegrationTestSuite) TestBlog_UploadImage() {
	ctx := context.Background()
	token := doLogin(ctx, s.T(), s.httpClient, serverEndpoint, testEmail, testPassword)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "cover.png")
	s.Require().NoError(err)
	_, err = part.Write([]byte("not really a png"))
	s.Require().NoError(err)
	s.Require().NoError(mw.Close())

	req, err := http.NewRequestWithContext(ctx, "POST", serverEndpoint+"/api/admin/images", &buf)
	s.Require().NoError(err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := s.httpClient.Do(authorized(req, token))
	s.Require().NoError(err)
	s.Require().Equal(http.StatusCreated, resp.StatusCode)

	var uploaded struct {
		URL string `json:"url"`
	}
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&uploaded))
	s.Require().NoError(resp.Body.Close())
	s.True(strings.HasPrefix(uploaded.URL, "/uploads/blog-images/"), uploaded.URL)
	s.True(strings.HasSuffix(uploaded.URL, ".png"), uploaded.URL)

	status, body := s.getBody(uploaded.URL)
	s.Equal(http.StatusOK, status)
	s.Equal("not really a png", body)
}
