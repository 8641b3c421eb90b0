package blog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/2beens/portfoliocms/internal/content"
	"github.com/2beens/portfoliocms/internal/telemetry/tracing"
	"github.com/2beens/portfoliocms/pkg"
)

var (
	ErrPostNotFound = content.ErrPostNotFound
	ErrSlugExists   = errors.New("a post with this slug already exists")
)

const selectColumns = `
	id::text, slug, title, excerpt, content, category, tags,
	published, date::text, read_time, image_url, created_at, updated_at
`

var _ postsRepo = (*Repo)(nil)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

// All returns every post, drafts included, most recently created first.
func (r *Repo) All(ctx context.Context) ([]*content.Post, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "blogRepo.All")
	defer span.End()

	rows, err := r.db.Query(
		ctx,
		`SELECT `+selectColumns+` FROM blog_posts ORDER BY created_at DESC;`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return rows2posts(rows)
}

// Published returns published posts, newest publication date first.
func (r *Repo) Published(ctx context.Context) ([]*content.Post, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "blogRepo.Published")
	defer span.End()

	rows, err := r.db.Query(
		ctx,
		`
			SELECT `+selectColumns+` FROM blog_posts
			WHERE published = TRUE
			ORDER BY date DESC, created_at DESC;
		`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return rows2posts(rows)
}

func (r *Repo) PublishedBySlug(ctx context.Context, slug string) (*content.Post, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "blogRepo.PublishedBySlug")
	span.SetAttributes(attribute.String("slug", slug))
	defer span.End()

	rows, err := r.db.Query(
		ctx,
		`SELECT `+selectColumns+` FROM blog_posts WHERE slug = $1 AND published = TRUE;`,
		slug,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return singlePost(rows)
}

func (r *Repo) GetByID(ctx context.Context, id string) (*content.Post, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "blogRepo.GetByID")
	span.SetAttributes(attribute.String("id", id))
	defer span.End()

	rows, err := r.db.Query(
		ctx,
		`SELECT `+selectColumns+` FROM blog_posts WHERE id::text = $1;`,
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return singlePost(rows)
}

// IDBySlug resolves the id of a post with the given slug, drafts included.
func (r *Repo) IDBySlug(ctx context.Context, slug string) (string, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "blogRepo.IDBySlug")
	span.SetAttributes(attribute.String("slug", slug))
	defer span.End()

	var id string
	err := r.db.QueryRow(ctx, `SELECT id::text FROM blog_posts WHERE slug = $1;`, slug).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrPostNotFound
		}
		return "", err
	}
	return id, nil
}

func (r *Repo) Add(ctx context.Context, post *content.Post) error {
	ctx, span := tracing.GlobalTracer.Start(ctx, "blogRepo.Add")
	defer span.End()

	if post.ID == "" {
		post.ID = content.NewPostID()
	}

	err := r.db.QueryRow(
		ctx,
		`
			INSERT INTO blog_posts
				(id, slug, title, excerpt, content, category, tags, published, date, read_time, image_url)
			VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8, $9::date, $10, $11)
			RETURNING created_at, updated_at;
		`,
		post.ID, nullIfEmpty(post.Slug), post.Title, post.Excerpt, post.Content, post.Category,
		tagsOrNull(post.Tags), post.Published, post.Date, post.ReadTime, nullIfEmpty(post.ImageURL),
	).Scan(&post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		if pkg.IsUniqueViolationError(err) {
			return ErrSlugExists
		}
		return fmt.Errorf("insert post: %w", err)
	}

	return nil
}

// Update overwrites the editable fields of the post with post.ID. created_at is kept,
// updated_at is set by the database.
func (r *Repo) Update(ctx context.Context, post *content.Post) error {
	ctx, span := tracing.GlobalTracer.Start(ctx, "blogRepo.Update")
	span.SetAttributes(attribute.String("id", post.ID))
	defer span.End()

	err := r.db.QueryRow(
		ctx,
		`
			UPDATE blog_posts SET
				slug = $2, title = $3, excerpt = $4, content = $5, category = $6, tags = $7,
				published = $8, date = $9::date, read_time = $10, image_url = $11, updated_at = NOW()
			WHERE id::text = $1
			RETURNING created_at, updated_at;
		`,
		post.ID, nullIfEmpty(post.Slug), post.Title, post.Excerpt, post.Content, post.Category,
		tagsOrNull(post.Tags), post.Published, post.Date, post.ReadTime, nullIfEmpty(post.ImageURL),
	).Scan(&post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrPostNotFound
		}
		if pkg.IsUniqueViolationError(err) {
			return ErrSlugExists
		}
		return fmt.Errorf("update post: %w", err)
	}

	return nil
}

func (r *Repo) Delete(ctx context.Context, id string) error {
	ctx, span := tracing.GlobalTracer.Start(ctx, "blogRepo.Delete")
	span.SetAttributes(attribute.String("id", id))
	defer span.End()

	tag, err := r.db.Exec(ctx, `DELETE FROM blog_posts WHERE id::text = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPostNotFound
	}
	return nil
}

// UpsertBySlug inserts the post, or overwrites the post already holding its slug.
func (r *Repo) UpsertBySlug(ctx context.Context, post *content.Post) error {
	ctx, span := tracing.GlobalTracer.Start(ctx, "blogRepo.UpsertBySlug")
	span.SetAttributes(attribute.String("slug", post.Slug))
	defer span.End()

	return upsertBySlug(ctx, r.db, post)
}

// UpsertAllBySlug upserts every post in one transaction. Nothing is written when any
// of the posts fails.
func (r *Repo) UpsertAllBySlug(ctx context.Context, posts []*content.Post) error {
	ctx, span := tracing.GlobalTracer.Start(ctx, "blogRepo.UpsertAllBySlug")
	span.SetAttributes(attribute.Int("posts", len(posts)))
	defer span.End()

	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		for _, post := range posts {
			if err := upsertBySlug(ctx, tx, post); err != nil {
				return err
			}
		}
		return nil
	})
}

type execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

func upsertBySlug(ctx context.Context, db execer, post *content.Post) error {
	_, err := db.Exec(
		ctx,
		`
			INSERT INTO blog_posts
				(id, slug, title, excerpt, content, category, tags, published, date, read_time, image_url, created_at, updated_at)
			VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8, $9::date, $10, $11, $12, $12)
			ON CONFLICT (slug) DO UPDATE SET
				title = EXCLUDED.title,
				excerpt = EXCLUDED.excerpt,
				content = EXCLUDED.content,
				category = EXCLUDED.category,
				tags = EXCLUDED.tags,
				published = EXCLUDED.published,
				date = EXCLUDED.date,
				read_time = EXCLUDED.read_time,
				image_url = EXCLUDED.image_url,
				updated_at = EXCLUDED.updated_at;
		`,
		post.ID, post.Slug, post.Title, post.Excerpt, post.Content, post.Category,
		tagsOrNull(post.Tags), post.Published, post.Date, post.ReadTime, nullIfEmpty(post.ImageURL),
		post.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert post %s: %w", post.Slug, err)
	}

	log.Tracef("post [%s] upserted", post.Slug)
	return nil
}

func (r *Repo) Stats(ctx context.Context) (content.Stats, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "blogRepo.Stats")
	defer span.End()

	var stats content.Stats
	err := r.db.QueryRow(
		ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE published) FROM blog_posts;`,
	).Scan(&stats.Total, &stats.Published)
	if err != nil {
		return content.Stats{}, err
	}
	stats.Drafts = stats.Total - stats.Published

	return stats, nil
}

func singlePost(rows pgx.Rows) (*content.Post, error) {
	posts, err := rows2posts(rows)
	if err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return nil, ErrPostNotFound
	}
	return posts[0], nil
}

func rows2posts(rows pgx.Rows) ([]*content.Post, error) {
	var posts []*content.Post
	for rows.Next() {
		var (
			p        content.Post
			slug     *string
			imageURL *string
			tags     []string
		)
		if err := rows.Scan(
			&p.ID, &slug, &p.Title, &p.Excerpt, &p.Content, &p.Category, &tags,
			&p.Published, &p.Date, &p.ReadTime, &imageURL, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if slug != nil {
			p.Slug = *slug
		}
		if imageURL != nil {
			p.ImageURL = *imageURL
		}
		p.Tags = tags
		if p.Tags == nil {
			p.Tags = []string{}
		}
		posts = append(posts, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return posts, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func tagsOrNull(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	return tags
}
