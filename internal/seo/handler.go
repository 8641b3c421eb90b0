package seo

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/2beens/portfoliocms/internal/content"
	"github.com/2beens/portfoliocms/internal/telemetry/tracing"
	"github.com/2beens/portfoliocms/pkg"
)

type postsSource interface {
	Published(ctx context.Context) ([]*content.Post, error)
}

type Handler struct {
	site  Site
	posts postsSource
	now   func() time.Time
}

func NewHandler(site Site, posts postsSource) *Handler {
	return &Handler{
		site:  site,
		posts: posts,
		now:   time.Now,
	}
}

func (handler *Handler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("/sitemap.xml", handler.handleSitemap).Methods("GET").Name("sitemap")
	router.HandleFunc("/robots.txt", handler.handleRobots).Methods("GET").Name("robots")
}

// handleSitemap still serves the static sections when posts cannot be loaded.
func (handler *Handler) handleSitemap(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "seoHandler.sitemap")
	defer span.End()

	posts, err := handler.posts.Published(ctx)
	if err != nil {
		log.Errorf("sitemap, get published posts: %s", err)
		posts = nil
	}

	var buf bytes.Buffer
	if err := WriteSitemap(&buf, BuildSitemap(handler.site, posts, handler.now())); err != nil {
		log.Errorf("write sitemap: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.XML, buf.Bytes())
}

func (handler *Handler) handleRobots(w http.ResponseWriter, _ *http.Request) {
	pkg.WriteTextResponseOK(w, Robots(handler.site))
}
