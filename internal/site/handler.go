package site

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/a-h/templ"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"go.opentelemetry.io/otel/attribute"

	"github.com/2beens/portfoliocms/internal/auth"
	"github.com/2beens/portfoliocms/internal/content"
	"github.com/2beens/portfoliocms/internal/seo"
	"github.com/2beens/portfoliocms/internal/telemetry/tracing"
	"github.com/2beens/portfoliocms/pkg"
)

type postsSource interface {
	Published(ctx context.Context) ([]*content.Post, error)
	PublishedBySlug(ctx context.Context, slug string) (*content.Post, error)
}

type projectsSource interface {
	Projects(ctx context.Context) []*content.Project
}

type adminPosts interface {
	All(ctx context.Context) ([]*content.Post, error)
	Get(ctx context.Context, id string) (*content.Post, error)
	IDBySlug(ctx context.Context, slug string) (string, error)
	NewPostDefaults() *content.Post
}

type codeExchanger interface {
	ExchangeCode(ctx context.Context, code string, createdAt time.Time) (*auth.Session, error)
}

type Handler struct {
	site          seo.Site
	posts         postsSource
	projects      projectsSource
	admin         adminPosts
	sessions      codeExchanger
	secureCookies bool
	sessionTTL    time.Duration
	markdown      goldmark.Markdown
	now           func() time.Time
}

func NewHandler(
	site seo.Site,
	posts postsSource,
	projects projectsSource,
	admin adminPosts,
	sessions codeExchanger,
	secureCookies bool,
) *Handler {
	return &Handler{
		site:          site,
		posts:         posts,
		projects:      projects,
		admin:         admin,
		sessions:      sessions,
		secureCookies: secureCookies,
		sessionTTL:    auth.DefaultTTL,
		markdown:      goldmark.New(goldmark.WithExtensions(extension.GFM)),
		now:           time.Now,
	}
}

func (handler *Handler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("/", handler.handleHome).Methods("GET").Name("home")
	router.HandleFunc("/blog/{slug}", handler.handlePost).Methods("GET").Name("post")

	router.HandleFunc("/admin", handler.handleAdmin).Methods("GET").Name("admin")
	router.HandleFunc("/admin/new", handler.handleNewPost).Methods("GET").Name("admin-new")
	router.HandleFunc("/admin/edit/{id}", handler.handleEditPost).Methods("GET").Name("admin-edit")
	router.HandleFunc("/admin/edit-by-slug/{slug}", handler.handleEditBySlug).Methods("GET").Name("admin-edit-by-slug")
	router.HandleFunc("/edit/{slug}", handler.handleLegacyEdit).Methods("GET").Name("legacy-edit")

	router.HandleFunc("/login", handler.handleLogin).Methods("GET").Name("login")
	router.HandleFunc("/reset-password", handler.handleResetPassword).Methods("GET").Name("reset-password-page")
	router.HandleFunc("/auth/callback", handler.handleAuthCallback).Methods("GET").Name("auth-callback")

	router.PathPrefix("/static/").
		Handler(http.StripPrefix("/static/", http.FileServer(http.FS(staticFiles())))).
		Methods("GET").Name("static")
}

func (handler *Handler) handleHome(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "siteHandler.home")
	defer span.End()

	posts, err := handler.posts.Published(ctx)
	if err != nil {
		log.Errorf("home, get published posts: %s", err)
		posts = nil
	}

	handler.render(w, r, http.StatusOK, homePage(handler.site, homeData{
		Posts:    posts,
		Projects: handler.projects.Projects(ctx),
	}))
}

func (handler *Handler) handlePost(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "siteHandler.post")
	defer span.End()

	slug := mux.Vars(r)["slug"]
	span.SetAttributes(attribute.String("slug", slug))

	post, err := handler.posts.PublishedBySlug(ctx, slug)
	if err != nil {
		if !errors.Is(err, content.ErrPostNotFound) {
			log.Errorf("get post [%s]: %s", slug, err)
		}
		handler.HandleNotFound(w, r)
		return
	}

	var body bytes.Buffer
	if err := handler.markdown.Convert([]byte(post.Content), &body); err != nil {
		log.Errorf("render markdown of post [%s]: %s", slug, err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	jsonLD, err := seo.NewBlogPosting(handler.site, post).JSON()
	if err != nil {
		log.Errorf("marshal json-ld of post [%s]: %s", slug, err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	handler.render(w, r, http.StatusOK, postPage(postData{
		Post:   post,
		Meta:   seo.PostMetadata(handler.site, post),
		JSONLD: jsonLD,
		Body:   body.String(),
	}))
}

// HandleNotFound renders the public 404 page.
func (handler *Handler) HandleNotFound(w http.ResponseWriter, r *http.Request) {
	meta := seo.NotFoundMetadata()
	handler.render(w, r, http.StatusNotFound, notFoundPage(notFoundData{
		Title:       meta.Title,
		Description: meta.Description,
		BackURL:     "/#blog",
		BackLabel:   "Back to Portfolio",
	}))
}

func (handler *Handler) handleAdmin(w http.ResponseWriter, r *http.Request) {
	posts, err := handler.admin.All(r.Context())
	if err != nil {
		log.Errorf("admin, get all posts: %s", err)
		http.Error(w, "Failed to load posts", http.StatusInternalServerError)
		return
	}

	handler.render(w, r, http.StatusOK, adminPage(handler.site, adminData{
		Posts: posts,
		Stats: content.StatsOf(posts),
	}))
}

func (handler *Handler) handleNewPost(w http.ResponseWriter, r *http.Request) {
	handler.render(w, r, http.StatusOK, editorPage(handler.site, editorData{
		IsNew:      true,
		Post:       handler.admin.NewPostDefaults(),
		Session:    content.NewDraftSession(),
		Categories: content.Categories,
	}))
}

func (handler *Handler) handleEditPost(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	post, err := handler.admin.Get(r.Context(), id)
	if err != nil {
		handler.adminNotFound(w, r, err, "Post not found", "get post "+id)
		return
	}

	handler.render(w, r, http.StatusOK, editorPage(handler.site, editorData{
		Post:       post,
		Session:    content.NewEditSession(post),
		Categories: categoriesWith(post.Category),
	}))
}

func (handler *Handler) handleEditBySlug(w http.ResponseWriter, r *http.Request) {
	slug := mux.Vars(r)["slug"]
	id, err := handler.admin.IDBySlug(r.Context(), slug)
	if err != nil {
		handler.adminNotFound(w, r, err, "Post not found with slug: "+slug, "get post id by slug "+slug)
		return
	}

	http.Redirect(w, r, "/admin/edit/"+url.PathEscape(id), http.StatusFound)
}

func (handler *Handler) handleLegacyEdit(w http.ResponseWriter, r *http.Request) {
	slug := mux.Vars(r)["slug"]
	http.Redirect(w, r, "/admin/edit-by-slug/"+url.PathEscape(slug), http.StatusFound)
}

func (handler *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	handler.render(w, r, http.StatusOK, loginPage(handler.site, loginData{
		RedirectedFrom: q.Get("redirectedFrom"),
		Error:          q.Get("error"),
		Message:        q.Get("message"),
	}))
}

func (handler *Handler) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	handler.render(w, r, http.StatusOK, resetPasswordPage(handler.site, resetPasswordData{
		Error:     r.URL.Query().Get("error"),
		MinLength: auth.MinPasswordLen,
	}))
}

// handleAuthCallback trades the emailed code for a session, then continues to the
// password form for recovery links and to the admin otherwise.
func (handler *Handler) handleAuthCallback(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "siteHandler.authCallback")
	defer span.End()

	q := r.URL.Query()
	recovery := q.Get("type") == "recovery"
	span.SetAttributes(attribute.Bool("recovery", recovery))

	if code := q.Get("code"); code != "" {
		session, err := handler.sessions.ExchangeCode(ctx, code, handler.now())
		if err != nil {
			log.Warnf("auth callback, exchange code: %s", err)
			http.Redirect(w, r, "/login?error="+url.QueryEscape("Invalid or expired link"), http.StatusFound)
			return
		}
		auth.SetSessionCookie(w, session, handler.sessionTTL, handler.secureCookies)
	}

	if recovery {
		http.Redirect(w, r, "/reset-password", http.StatusFound)
		return
	}
	http.Redirect(w, r, "/admin", http.StatusFound)
}

func (handler *Handler) adminNotFound(w http.ResponseWriter, r *http.Request, err error, title, operation string) {
	if !errors.Is(err, content.ErrPostNotFound) {
		log.Errorf("%s: %s", operation, err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	view := notFoundPage(notFoundData{
		Title:     title,
		BackURL:   "/admin",
		BackLabel: "Go to Admin Dashboard",
	})
	view.Admin = true
	handler.render(w, r, http.StatusNotFound, view)
}

func (handler *Handler) render(w http.ResponseWriter, r *http.Request, statusCode int, view pageView) {
	ctx := templ.WithChildren(r.Context(), view.Body)

	var buf bytes.Buffer
	if err := layout(handler.site, handler.now().Year(), view).Render(ctx, &buf); err != nil {
		log.Errorf("render page [%s]: %s", view.Title, err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.HTML, buf.Bytes(), statusCode)
}

// categoriesWith keeps a stored free text category selectable in the editor.
func categoriesWith(category string) []string {
	if category == "" {
		return content.Categories
	}
	for _, c := range content.Categories {
		if c == category {
			return content.Categories
		}
	}
	return append([]string{category}, content.Categories...)
}
