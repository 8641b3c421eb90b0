package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	TypePostPublished = "post.published"
	TypePostDeleted   = "post.deleted"
)

type PostPayload struct {
	PostID string `json:"post_id"`
	Slug   string `json:"slug,omitempty"`
	Title  string `json:"title,omitempty"`
}

// Event is a blog change notification. Type doubles as the routing key.
type Event struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   PostPayload `json:"payload"`
}

func NewPostPublished(postID, slug, title string) Event {
	return newEvent(TypePostPublished, PostPayload{PostID: postID, Slug: slug, Title: title})
}

func NewPostDeleted(postID string) Event {
	return newEvent(TypePostDeleted, PostPayload{PostID: postID})
}

func newEvent(eventType string, payload PostPayload) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

type NoopPublisher struct{}

var _ Publisher = NoopPublisher{}

func (NoopPublisher) Publish(context.Context, Event) error {
	return nil
}

func (NoopPublisher) Close() error {
	return nil
}
