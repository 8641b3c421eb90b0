package content

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateSlug(t *testing.T) {
	for caseName, tc := range map[string]struct {
		title    string
		expected string
	}{
		"punctuation and runs":  {title: "Hello, World!   Foo--Bar", expected: "hello-world-foo-bar"},
		"empty":                 {title: "", expected: ""},
		"only punctuation":      {title: "###", expected: ""},
		"leading and trailing":  {title: "  -Go 1.24 is out- ", expected: "go-124-is-out"},
		"unicode letters":       {title: "Über Café", expected: "ber-caf"},
		"non breaking space":    {title: "hello\u00a0world", expected: "hello-world"},
		"tabs and newlines":     {title: "one\ttwo\nthree", expected: "one-two-three"},
		"already a slug":        {title: "my-post", expected: "my-post"},
		"hyphen between spaces": {title: "AI - the future", expected: "ai-the-future"},
	} {
		t.Run(caseName, func(t *testing.T) {
			assert.Equal(t, tc.expected, GenerateSlug(tc.title))
		})
	}
}

func TestGenerateSlug_Idempotent(t *testing.T) {
	slug := GenerateSlug("Building RAG Pipelines: Lessons Learned")
	assert.Equal(t, "building-rag-pipelines-lessons-learned", slug)
	assert.Equal(t, slug, GenerateSlug(slug))
}

func TestIsValidSlug(t *testing.T) {
	assert.False(t, IsValidSlug("ab"))
	assert.True(t, IsValidSlug("abc"))
	assert.True(t, IsValidSlug("a-b-c"))
	assert.False(t, IsValidSlug("A-b"))
	assert.False(t, IsValidSlug("-abc"))
	assert.False(t, IsValidSlug("abc-"))
	assert.False(t, IsValidSlug("a--bc"))
	assert.False(t, IsValidSlug("a_bc"))
	assert.False(t, IsValidSlug(""))
	assert.True(t, IsValidSlug(strings.Repeat("a", 100)))
	assert.False(t, IsValidSlug(strings.Repeat("a", 101)))
}
