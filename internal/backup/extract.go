package backup

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/2beens/portfoliocms/internal/content"

	log "github.com/sirupsen/logrus"
)

const (
	CopyHeaderPrefix = "COPY public.blog_posts"
	copyTerminator   = `\.`
	nullSentinel     = `\N`

	// content lines of a dump can be large, a single post body is one line
	maxLineSize = 64 * 1024 * 1024
)

var (
	ErrCopyBlockNotFound = errors.New("COPY public.blog_posts block not found")
	ErrUnsupportedLayout = errors.New("unsupported blog_posts column layout")
)

// LegacyColumnsV1 is the only blog_posts layout the extractor understands. Rows are
// sliced positionally: the first three and last nine columns are fixed, everything in
// between is the content column split on its embedded tabs.
var LegacyColumnsV1 = []string{
	"id", "title", "excerpt", "content", "category", "date", "read_time",
	"published", "created_at", "updated_at", "image_url", "tags", "slug",
}

const (
	leadingColumns  = 3
	trailingColumns = 9
)

// pg_dump timestamptz text output
var timestampLayouts = []string{
	"2006-01-02 15:04:05.999999-07",
	"2006-01-02 15:04:05.999999-07:00",
	"2006-01-02 15:04:05.999999",
	time.RFC3339Nano,
}

type Extraction struct {
	Posts []*content.Post
	// 1-based line numbers of rows that had too few columns
	SkippedLines []int
}

// Extract reads a plain SQL dump and returns the rows of its blog_posts COPY block.
func Extract(r io.Reader) (*Extraction, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	extraction := &Extraction{}
	inCopy := false
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSuffix(scanner.Text(), "\r")

		if !inCopy {
			if strings.HasPrefix(line, CopyHeaderPrefix) {
				if err := checkLayout(line); err != nil {
					return nil, err
				}
				inCopy = true
			}
			continue
		}

		if line == copyTerminator {
			break
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		post, ok := parseRow(line)
		if !ok {
			log.Warnf("backup extract: skipping line %d, too few columns", lineNo)
			extraction.SkippedLines = append(extraction.SkippedLines, lineNo)
			continue
		}
		extraction.Posts = append(extraction.Posts, post)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read dump: %w", err)
	}

	if !inCopy {
		return nil, ErrCopyBlockNotFound
	}

	return extraction, nil
}

func checkLayout(header string) error {
	open := strings.Index(header, "(")
	closing := strings.LastIndex(header, ")")
	if open < 0 || closing < open {
		return fmt.Errorf("%w: no column list in [%s]", ErrUnsupportedLayout, header)
	}

	var columns []string
	for _, c := range strings.Split(header[open+1:closing], ",") {
		columns = append(columns, strings.TrimSpace(c))
	}
	if strings.Join(columns, ",") != strings.Join(LegacyColumnsV1, ",") {
		return fmt.Errorf("%w: %v", ErrUnsupportedLayout, columns)
	}
	return nil
}

func parseRow(line string) (*content.Post, bool) {
	parts := strings.Split(line, "\t")
	if len(parts) < len(LegacyColumnsV1) {
		return nil, false
	}

	tail := parts[len(parts)-trailingColumns:]
	post := &content.Post{
		ID:        parts[0],
		Title:     unescape(nullable(parts[1])),
		Excerpt:   unescape(nullable(parts[2])),
		Content:   unescape(nullable(strings.Join(parts[leadingColumns:len(parts)-trailingColumns], "\t"))),
		Category:  unescape(nullable(tail[0])),
		Date:      nullable(tail[1]),
		ReadTime:  unescape(nullable(tail[2])),
		Published: tail[3] == "t",
		CreatedAt: parseTimestamp(tail[4]),
		UpdatedAt: parseTimestamp(tail[5]),
		ImageURL:  nullable(tail[6]),
		Tags:      ParseArrayLiteral(tail[7]),
		Slug:      nullable(tail[8]),
	}
	if post.Slug == "" {
		post.Slug = post.ID
	}
	if post.Tags == nil {
		post.Tags = []string{}
	}

	return post, true
}

func nullable(value string) string {
	if value == nullSentinel {
		return ""
	}
	return value
}

func parseTimestamp(value string) time.Time {
	if value == "" || value == nullSentinel {
		return time.Time{}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	log.Debugf("backup extract: unparsable timestamp [%s]", value)
	return time.Time{}
}

// unescape reverses COPY text format escaping of a column value.
func unescape(value string) string {
	if !strings.Contains(value, `\`) {
		return value
	}

	var sb strings.Builder
	sb.Grow(len(value))
	for i := 0; i < len(value); i++ {
		c := value[i]
		if c != '\\' || i == len(value)-1 {
			sb.WriteByte(c)
			continue
		}
		i++
		switch value[i] {
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 't':
			sb.WriteByte('\t')
		case 'b':
			sb.WriteByte('\b')
		case 'f':
			sb.WriteByte('\f')
		case 'v':
			sb.WriteByte('\v')
		case '\\':
			sb.WriteByte('\\')
		default:
			sb.WriteByte('\\')
			sb.WriteByte(value[i])
		}
	}
	return sb.String()
}

// ParseArrayLiteral parses a Postgres text[] literal such as {a,b,"c,d"}. NULL and the
// empty array give nil; a value without braces is a single element.
func ParseArrayLiteral(raw string) []string {
	if raw == "" || raw == nullSentinel {
		return nil
	}
	if !strings.HasPrefix(raw, "{") || !strings.HasSuffix(raw, "}") || len(raw) < 2 {
		return []string{raw}
	}

	body := raw[1 : len(raw)-1]
	if strings.TrimSpace(body) == "" {
		return nil
	}

	var (
		elements []string
		current  strings.Builder
		quoted   bool
		inQuotes bool
	)
	flush := func() {
		element := current.String()
		if !quoted {
			element = strings.TrimSpace(element)
		}
		elements = append(elements, element)
		current.Reset()
		quoted = false
	}

	for i := 0; i < len(body); i++ {
		c := body[i]
		switch {
		case c == '\\' && i+1 < len(body):
			i++
			current.WriteByte(body[i])
		case c == '"':
			inQuotes = !inQuotes
			quoted = true
		case c == ',' && !inQuotes:
			flush()
		default:
			current.WriteByte(c)
		}
	}
	flush()

	return elements
}
