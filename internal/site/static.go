package site

import (
	"embed"
	"io/fs"
	"time"

	"github.com/2beens/portfoliocms/internal/content"
)

//go:embed static
var staticFS embed.FS

func staticFiles() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		// unreachable, the directory is embedded
		panic(err)
	}
	return sub
}

// longDate formats a YYYY-MM-DD date as "January 2, 2006", and returns other input unchanged.
func longDate(date string) string {
	t, err := time.Parse(content.DateLayout, date)
	if err != nil {
		return date
	}
	return t.Format("January 2, 2006")
}
