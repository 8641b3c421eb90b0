package blog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/2beens/portfoliocms/internal/content"
	"github.com/2beens/portfoliocms/internal/events"
	"github.com/2beens/portfoliocms/internal/storage"
	"github.com/2beens/portfoliocms/internal/telemetry/metrics"
	"github.com/2beens/portfoliocms/internal/telemetry/tracing"
)

//go:generate mockgen -source=$GOFILE -destination=service_mocks_test.go -package=blog_test

type postsRepo interface {
	All(ctx context.Context) ([]*content.Post, error)
	Published(ctx context.Context) ([]*content.Post, error)
	PublishedBySlug(ctx context.Context, slug string) (*content.Post, error)
	GetByID(ctx context.Context, id string) (*content.Post, error)
	IDBySlug(ctx context.Context, slug string) (string, error)
	Add(ctx context.Context, post *content.Post) error
	Update(ctx context.Context, post *content.Post) error
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context) (content.Stats, error)
}

type imageStore interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader) (string, error)
}

type eventPublisher interface {
	Publish(ctx context.Context, e events.Event) error
}

// PostInput is the editable part of a post, as sent by the admin editor.
type PostInput struct {
	Title     string  `json:"title"`
	Slug      string  `json:"slug"`
	Excerpt   string  `json:"excerpt"`
	Content   string  `json:"content"`
	Category  string  `json:"category"`
	Tags      TagList `json:"tags"`
	ImageURL  string  `json:"image_url"`
	Published bool    `json:"published"`
	// Date is kept as is on update when empty.
	Date string `json:"date"`
}

type Service struct {
	repo           postsRepo
	images         imageStore
	publisher      eventPublisher
	metricsManager *metrics.Manager
	// ability to inject the clock (for unit testing)
	Now func() time.Time
}

func NewService(
	repo postsRepo,
	images imageStore,
	publisher eventPublisher,
	metricsManager *metrics.Manager,
) *Service {
	return &Service{
		repo:           repo,
		images:         images,
		publisher:      publisher,
		metricsManager: metricsManager,
		Now:            time.Now,
	}
}

func (s *Service) Published(ctx context.Context) ([]*content.Post, error) {
	return s.repo.Published(ctx)
}

func (s *Service) PublishedBySlug(ctx context.Context, slug string) (*content.Post, error) {
	return s.repo.PublishedBySlug(ctx, slug)
}

func (s *Service) All(ctx context.Context) ([]*content.Post, error) {
	return s.repo.All(ctx)
}

func (s *Service) Get(ctx context.Context, id string) (*content.Post, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) IDBySlug(ctx context.Context, slug string) (string, error) {
	return s.repo.IDBySlug(ctx, slug)
}

func (s *Service) Stats(ctx context.Context) (content.Stats, error) {
	return s.repo.Stats(ctx)
}

// NewPostDefaults is what the editor starts a new post with.
func (s *Service) NewPostDefaults() *content.Post {
	return &content.Post{
		Category: content.DefaultCategory,
		Date:     s.Now().Format(content.DateLayout),
		Tags:     []string{},
		ReadTime: content.CalculateReadingTime("").Text,
	}
}

func (s *Service) CreatePost(ctx context.Context, in PostInput) (*content.Post, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "blogService.CreatePost")
	defer span.End()

	post := s.NewPostDefaults()
	applyInput(post, in)
	if in.Date != "" {
		post.Date = in.Date
	}

	if err := validate(post); err != nil {
		return nil, err
	}
	post.RefreshReadTime()

	if err := s.repo.Add(ctx, post); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("id", post.ID))
	s.countPost("create")

	log.Debugf("blog post [%s] %s created, published: %t", post.ID, post.Slug, post.Published)
	if post.Published {
		s.publish(ctx, events.NewPostPublished(post.ID, post.Slug, post.Title))
	}

	return post, nil
}

func (s *Service) UpdatePost(ctx context.Context, id string, in PostInput) (*content.Post, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "blogService.UpdatePost")
	span.SetAttributes(attribute.String("id", id))
	defer span.End()

	post, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	wasPublished := post.Published

	applyInput(post, in)
	if in.Date != "" {
		post.Date = in.Date
	}

	if err := validate(post); err != nil {
		return nil, err
	}
	post.RefreshReadTime()

	if err := s.repo.Update(ctx, post); err != nil {
		return nil, err
	}
	s.countPost("update")

	if post.Published && !wasPublished {
		s.publish(ctx, events.NewPostPublished(post.ID, post.Slug, post.Title))
	}

	return post, nil
}

func (s *Service) DeletePost(ctx context.Context, id string) error {
	ctx, span := tracing.GlobalTracer.Start(ctx, "blogService.DeletePost")
	span.SetAttributes(attribute.String("id", id))
	defer span.End()

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.countPost("delete")

	s.publish(ctx, events.NewPostDeleted(id))
	return nil
}

// UploadImage stores a cover image and returns its public URL.
func (s *Service) UploadImage(ctx context.Context, filename, contentType string, body io.Reader) (string, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "blogService.UploadImage")
	defer span.End()

	key := storage.ImageKey(filename, s.Now())
	span.SetAttributes(attribute.String("key", key))

	url, err := s.images.Upload(ctx, key, contentType, body)
	if err != nil {
		return "", fmt.Errorf("upload image %s: %w", filename, err)
	}
	if s.metricsManager != nil {
		s.metricsManager.CounterImageUploads.Inc()
	}

	return url, nil
}

func applyInput(post *content.Post, in PostInput) {
	post.Title = strings.TrimSpace(in.Title)
	post.Slug = strings.TrimSpace(in.Slug)
	post.Excerpt = strings.TrimSpace(in.Excerpt)
	post.Content = in.Content
	post.ImageURL = strings.TrimSpace(in.ImageURL)
	post.Published = in.Published
	post.Tags = []string(in.Tags)
	if post.Tags == nil {
		post.Tags = []string{}
	}
	if category := strings.TrimSpace(in.Category); category != "" {
		post.Category = category
	}
}

func validate(post *content.Post) error {
	if err := content.ValidatePost(post); err != nil {
		return err
	}
	if _, err := time.Parse(content.DateLayout, post.Date); err != nil {
		return &content.ValidationError{Field: "date", Message: "Date must be in YYYY-MM-DD format"}
	}
	return nil
}

func (s *Service) countPost(operation string) {
	if s.metricsManager != nil {
		s.metricsManager.CounterPosts.WithLabelValues(operation).Inc()
	}
}

func (s *Service) publish(ctx context.Context, e events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, e); err != nil {
		log.Errorf("publish %s for post [%s]: %s", e.Type, e.Payload.PostID, err)
	}
}

// IsNotFound reports whether err means the post does not exist, or is not public.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrPostNotFound)
}
