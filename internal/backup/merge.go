package backup

import (
	"github.com/2beens/portfoliocms/internal/content"
)

type MergeResult struct {
	Posts      []*content.Post
	FromBackup int
	Kept       int
	Dropped    int
}

// ToStored converts extracted rows into the content file shape, where a post is
// identified by its slug.
func ToStored(rows []*content.Post) []*content.Post {
	stored := make([]*content.Post, 0, len(rows))
	for _, row := range rows {
		p := *row
		p.ID = row.EffectiveSlug()
		stored = append(stored, &p)
	}
	return stored
}

// Merge puts the backup posts first, without their image URLs, followed by the current
// posts that no backup post claims by id or slug. Inputs are not modified.
func Merge(backup, current []*content.Post) MergeResult {
	merged := make([]*content.Post, 0, len(backup)+len(current))

	backupIDs := make(map[string]bool, len(backup))
	backupSlugs := make(map[string]bool, len(backup))
	for _, b := range backup {
		p := *b
		p.ImageURL = ""
		p.Slug = b.EffectiveSlug()

		backupIDs[p.ID] = true
		backupSlugs[p.Slug] = true
		merged = append(merged, &p)
	}

	kept := 0
	for _, c := range current {
		if backupIDs[c.ID] || backupSlugs[c.EffectiveSlug()] {
			continue
		}
		merged = append(merged, c)
		kept++
	}

	return MergeResult{
		Posts:      merged,
		FromBackup: len(backup),
		Kept:       kept,
		Dropped:    len(current) - kept,
	}
}
