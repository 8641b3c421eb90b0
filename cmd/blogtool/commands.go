package main

import (
	"context"
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/2beens/portfoliocms/internal/backup"
	"github.com/2beens/portfoliocms/internal/content"
)

const defaultSeedReadTime = "5 min read"

type postUpserter interface {
	UpsertAllBySlug(ctx context.Context, posts []*content.Post) error
}

func extractToFile(dumpPath, outPath string) (*backup.Extraction, error) {
	log.Infof("reading backup: %s", dumpPath)
	dump, err := os.Open(dumpPath)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := dump.Close(); err != nil {
			log.Warnf("close dump file: %s", err)
		}
	}()

	extraction, err := backup.Extract(dump)
	if err != nil {
		return nil, err
	}
	if len(extraction.SkippedLines) > 0 {
		log.Warnf("skipped %d malformed rows, lines: %v", len(extraction.SkippedLines), extraction.SkippedLines)
	}

	if err := content.WritePostsFile(outPath, backup.ToStored(extraction.Posts)); err != nil {
		return nil, fmt.Errorf("write %s: %w", outPath, err)
	}
	log.Infof("wrote %d posts to %s", len(extraction.Posts), outPath)

	return extraction, nil
}

func mergeFiles(backupPath, postsPath string) (backup.MergeResult, error) {
	fromBackup, err := content.ReadPostsFile(backupPath)
	if err != nil {
		return backup.MergeResult{}, err
	}
	current, err := content.ReadPostsFile(postsPath)
	if err != nil {
		return backup.MergeResult{}, err
	}

	res := backup.Merge(fromBackup, current)
	if err := content.WritePostsFile(postsPath, res.Posts); err != nil {
		return backup.MergeResult{}, fmt.Errorf("write %s: %w", postsPath, err)
	}

	log.Infof(
		"merged %d backup posts + %d existing = %d total (%d duplicates dropped), written to %s",
		res.FromBackup, res.Kept, len(res.Posts), res.Dropped, postsPath,
	)
	return res, nil
}

// seedRows turns posts file entries into table rows keyed by a UUID derived from the slug.
func seedRows(posts []*content.Post, now time.Time) []*content.Post {
	rows := make([]*content.Post, 0, len(posts))
	for _, p := range posts {
		row := *p
		row.Slug = p.EffectiveSlug()
		row.ID = content.SlugToUUID(row.Slug)
		if row.ReadTime == "" {
			row.ReadTime = defaultSeedReadTime
		}
		if row.Category == "" {
			row.Category = content.DefaultCategory
		}
		if row.Date == "" {
			row.Date = now.Format(content.DateLayout)
		}
		if row.Tags == nil {
			row.Tags = []string{}
		}
		row.CreatedAt = now
		row.UpdatedAt = now
		rows = append(rows, &row)
	}
	return rows
}

// seedFromFile writes every row of the posts file or, when any row fails, none of them.
func seedFromFile(ctx context.Context, repo postUpserter, postsPath string, now time.Time) (int, error) {
	posts, err := content.ReadPostsFile(postsPath)
	if err != nil {
		return 0, err
	}

	rows := seedRows(posts, now)
	if err := repo.UpsertAllBySlug(ctx, rows); err != nil {
		return 0, fmt.Errorf("seed %d posts: %w", len(rows), err)
	}

	log.Infof("seeded %d posts into blog_posts", len(rows))
	return len(rows), nil
}
