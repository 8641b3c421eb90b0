package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

const ImagePrefix = "blog-images"

var ErrEmptyUpload = errors.New("empty upload")

type ImageStore interface {
	// Upload stores body under key and returns its public URL.
	Upload(ctx context.Context, key, contentType string, body io.Reader) (string, error)
}

// ImageKey builds blog-images/<unix millis>.<ext>. The extension is whatever follows
// the last dot of the original file name, or the whole name when it has no dot.
func ImageKey(filename string, now time.Time) string {
	ext := filename
	if i := strings.LastIndex(filename, "."); i >= 0 {
		ext = filename[i+1:]
	}
	return fmt.Sprintf("%s/%d.%s", ImagePrefix, now.UnixMilli(), ext)
}

func publicURL(baseURL, key string) string {
	return strings.TrimSuffix(baseURL, "/") + "/" + key
}
