package content

import (
	"errors"
	"strings"
)

const (
	MsgRequiredFields = "Title, excerpt, and content are required"
	MsgSlugRequired   = "Slug is required"
	MsgInvalidSlug    = "Slug must be 3-100 characters of lowercase letters, numbers and single hyphens"
)

// ValidationError is a user facing error raised before anything is written.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func IsValidationError(err error) bool {
	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}

// ValidatePost gates every create and update of a post.
func ValidatePost(p *Post) error {
	if strings.TrimSpace(p.Title) == "" ||
		strings.TrimSpace(p.Excerpt) == "" ||
		strings.TrimSpace(p.Content) == "" {
		return &ValidationError{Field: "title", Message: MsgRequiredFields}
	}
	if strings.TrimSpace(p.Slug) == "" {
		return &ValidationError{Field: "slug", Message: MsgSlugRequired}
	}
	if !IsValidSlug(p.Slug) {
		return &ValidationError{Field: "slug", Message: MsgInvalidSlug}
	}
	return nil
}

// ParseTags splits comma separated editor input, dropping empty entries.
func ParseTags(input string) []string {
	var tags []string
	for _, tag := range strings.Split(input, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}
