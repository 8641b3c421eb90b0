package content

import (
	"regexp"
	"strings"
)

const (
	SlugMinLength = 3
	SlugMaxLength = 100
)

// whitespace matches what browsers treat as \s, which is wider than RE2's ASCII-only \s.
const whitespace = `\s\x{000B}\p{Zs}\x{2028}\x{2029}\x{FEFF}`

var (
	slugInvalidCharsRegex = regexp.MustCompile(`[^a-z0-9` + whitespace + `-]`)
	slugWhitespaceRegex   = regexp.MustCompile(`[` + whitespace + `]+`)
	slugHyphensRegex      = regexp.MustCompile(`-+`)
	validSlugRegex        = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
)

// GenerateSlug derives a URL slug from a post title. Characters outside a-z and 0-9
// (accented and non-latin letters included) are dropped, so the result can be empty.
func GenerateSlug(title string) string {
	slug := strings.ToLower(title)
	slug = slugInvalidCharsRegex.ReplaceAllString(slug, "")
	slug = slugWhitespaceRegex.ReplaceAllString(slug, "-")
	slug = slugHyphensRegex.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

func IsValidSlug(slug string) bool {
	if len(slug) < SlugMinLength || len(slug) > SlugMaxLength {
		return false
	}
	return validSlugRegex.MatchString(slug)
}
