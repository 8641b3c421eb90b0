package blog

import (
	"context"
	"errors"

	"github.com/2beens/portfoliocms/internal/content"
)

const (
	PreviewNew       = "new"
	PreviewOpen      = "open"
	PreviewTitle     = "title"
	PreviewSlug      = "slug"
	PreviewContent   = "content"
	PreviewResetSlug = "reset-slug"
)

var ErrUnknownPreviewField = errors.New("unknown editor field")

// PreviewRequest replays one editor change against the current session state.
type PreviewRequest struct {
	Session content.EditSession `json:"session"`
	Field   string              `json:"field"`
	// Value is the new field value, or the post id for "open".
	Value string `json:"value"`
}

func (s *Service) Preview(ctx context.Context, req PreviewRequest) (*content.EditSession, error) {
	session := req.Session

	switch req.Field {
	case PreviewNew:
		return content.NewDraftSession(), nil
	case PreviewOpen:
		post, err := s.repo.GetByID(ctx, req.Value)
		if err != nil {
			return nil, err
		}
		return content.NewEditSession(post), nil
	case PreviewTitle:
		session.SetTitle(req.Value)
	case PreviewSlug:
		session.SetSlug(req.Value)
	case PreviewContent:
		session.SetContent(req.Value)
	case PreviewResetSlug:
		session.ResetSlug()
	default:
		return nil, ErrUnknownPreviewField
	}

	return &session, nil
}
