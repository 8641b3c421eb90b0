package blog

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/2beens/portfoliocms/internal/content"
	"github.com/2beens/portfoliocms/pkg"
)

const (
	MsgSlugTakenOnCreate = "A post with this slug already exists. Please choose a different title or modify the slug."
	MsgSlugTakenOnEdit   = "A post with this slug already exists. Please choose a different slug."

	maxUploadSize = 10 << 20
)

type AdminPostsResponse struct {
	Posts      []*content.Post `json:"posts"`
	Stats      content.Stats   `json:"stats"`
	Categories []string        `json:"categories"`
}

type uploadImageResponse struct {
	URL string `json:"url"`
}

type slugLookupResponse struct {
	ID string `json:"id"`
}

type publishedPosts interface {
	Published(ctx context.Context) ([]*content.Post, error)
}

type Handler struct {
	service *Service
	public  publishedPosts
}

// NewBlogHandler serves /api/blog from public, which is the service itself or the
// posts file, and the admin API from service.
func NewBlogHandler(service *Service, public publishedPosts) *Handler {
	return &Handler{
		service: service,
		public:  public,
	}
}

func (handler *Handler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("/api/blog", handler.handlePublished).Methods("GET").Name("blog-published")

	router.HandleFunc("/api/admin/posts", handler.handleAdminList).Methods("GET", "OPTIONS").Name("admin-posts")
	router.HandleFunc("/api/admin/posts", handler.handleCreate).Methods("POST", "OPTIONS").Name("admin-create-post")
	router.HandleFunc("/api/admin/posts/new", handler.handleNewPostDefaults).Methods("GET", "OPTIONS").Name("admin-new-post")
	router.HandleFunc("/api/admin/posts/by-slug/{slug}", handler.handleIDBySlug).Methods("GET", "OPTIONS").Name("admin-post-by-slug")
	router.HandleFunc("/api/admin/posts/{id}", handler.handleGet).Methods("GET", "OPTIONS").Name("admin-get-post")
	router.HandleFunc("/api/admin/posts/{id}", handler.handleUpdate).Methods("PUT", "OPTIONS").Name("admin-update-post")
	router.HandleFunc("/api/admin/posts/{id}", handler.handleDelete).Methods("DELETE", "OPTIONS").Name("admin-delete-post")
	router.HandleFunc("/api/admin/stats", handler.handleStats).Methods("GET", "OPTIONS").Name("admin-stats")
	router.HandleFunc("/api/admin/images", handler.handleUploadImage).Methods("POST", "OPTIONS").Name("admin-upload-image")
	router.HandleFunc("/api/admin/editor/preview", handler.handlePreview).Methods("POST", "OPTIONS").Name("admin-editor-preview")
}

// handlePublished never fails with an error body; the public list degrades to [].
func (handler *Handler) handlePublished(w http.ResponseWriter, r *http.Request) {
	posts, err := handler.public.Published(r.Context())
	if err != nil {
		log.Errorf("get published posts: %s", err)
		pkg.WriteJSON(w, []*content.Post{}, http.StatusInternalServerError)
		return
	}
	if posts == nil {
		posts = []*content.Post{}
	}

	pkg.WriteJSON(w, posts, http.StatusOK)
}

func (handler *Handler) handleAdminList(w http.ResponseWriter, r *http.Request) {
	posts, err := handler.service.All(r.Context())
	if err != nil {
		log.Errorf("get all posts: %s", err)
		http.Error(w, "Failed to load posts", http.StatusInternalServerError)
		return
	}
	if posts == nil {
		posts = []*content.Post{}
	}

	pkg.WriteJSON(w, AdminPostsResponse{
		Posts:      posts,
		Stats:      content.StatsOf(posts),
		Categories: content.Categories,
	}, http.StatusOK)
}

func (handler *Handler) handleNewPostDefaults(w http.ResponseWriter, _ *http.Request) {
	pkg.WriteJSON(w, handler.service.NewPostDefaults(), http.StatusOK)
}

func (handler *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	post, err := handler.service.Get(r.Context(), id)
	if err != nil {
		handler.writeError(w, err, "get post "+id, "")
		return
	}

	pkg.WriteJSON(w, post, http.StatusOK)
}

func (handler *Handler) handleIDBySlug(w http.ResponseWriter, r *http.Request) {
	slug := mux.Vars(r)["slug"]
	id, err := handler.service.IDBySlug(r.Context(), slug)
	if err != nil {
		handler.writeError(w, err, "get post id by slug "+slug, "")
		return
	}

	pkg.WriteJSON(w, slugLookupResponse{ID: id}, http.StatusOK)
}

func (handler *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var in PostInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		log.Errorf("create post, unmarshal json params: %s", err)
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	post, err := handler.service.CreatePost(r.Context(), in)
	if err != nil {
		handler.writeError(w, err, "create post", MsgSlugTakenOnCreate)
		return
	}

	log.Tracef("new post %s: [%s] added", post.ID, post.Title)
	pkg.WriteJSON(w, post, http.StatusCreated)
}

func (handler *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var in PostInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		log.Errorf("update post, unmarshal json params: %s", err)
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	post, err := handler.service.UpdatePost(r.Context(), id, in)
	if err != nil {
		handler.writeError(w, err, "update post "+id, MsgSlugTakenOnEdit)
		return
	}

	pkg.WriteJSON(w, post, http.StatusOK)
}

func (handler *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := handler.service.DeletePost(r.Context(), id); err != nil {
		handler.writeError(w, err, "delete post "+id, "")
		return
	}

	pkg.WriteTextResponseOK(w, "deleted:"+id)
}

func (handler *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := handler.service.Stats(r.Context())
	if err != nil {
		log.Errorf("get posts stats: %s", err)
		http.Error(w, "Failed to load stats", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSON(w, stats, http.StatusOK)
}

func (handler *Handler) handleUploadImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		log.Errorf("upload image, parse multipart form: %s", err)
		http.Error(w, "invalid upload", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "missing file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	url, err := handler.service.UploadImage(r.Context(), header.Filename, contentType, file)
	if err != nil {
		log.Errorf("upload image: %s", err)
		http.Error(w, "Failed to upload image", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSON(w, uploadImageResponse{URL: url}, http.StatusCreated)
}

func (handler *Handler) handlePreview(w http.ResponseWriter, r *http.Request) {
	var req PreviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	session, err := handler.service.Preview(r.Context(), req)
	if err != nil {
		if errors.Is(err, ErrUnknownPreviewField) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		handler.writeError(w, err, "editor preview", "")
		return
	}

	pkg.WriteJSON(w, session, http.StatusOK)
}

func (handler *Handler) writeError(w http.ResponseWriter, err error, operation, slugTakenMsg string) {
	var validationErr *content.ValidationError
	switch {
	case errors.As(err, &validationErr):
		http.Error(w, validationErr.Message, http.StatusBadRequest)
	case errors.Is(err, ErrSlugExists):
		if slugTakenMsg == "" {
			slugTakenMsg = MsgSlugTakenOnEdit
		}
		http.Error(w, slugTakenMsg, http.StatusConflict)
	case IsNotFound(err):
		http.Error(w, "post not found", http.StatusNotFound)
	default:
		log.Errorf("%s: %s", operation, err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}
