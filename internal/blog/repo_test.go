//go:build integration_test || all_tests

package blog

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2beens/portfoliocms/internal/content"
	"github.com/2beens/portfoliocms/internal/db"
)

func testRepoSetup(t *testing.T) (*Repo, func()) {
	t.Helper()

	timeoutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	host := os.Getenv("POSTGRES_HOST")
	if host == "" {
		host = "localhost"
	}
	t.Logf("using postres host: %s", host)

	params := db.NewDBPoolParams{
		DBHost:         host,
		DBPort:         "5432",
		DBName:         "portfolio_cms",
		DBPassword:     os.Getenv("POSTGRES_PASSWORD"),
		SSLMode:        "disable",
		TracingEnabled: false,
	}
	require.NoError(t, db.MigrateUp(params.ConnString()))

	dbPool, err := db.NewDBPool(timeoutCtx, params)
	require.NoError(t, err)

	return NewRepo(dbPool), func() {
		dbPool.Close()
	}
}

func fakePost(published bool) *content.Post {
	title := gofakeit.Sentence(4)
	return &content.Post{
		Title:     title,
		Slug:      content.GenerateSlug(title) + "-" + strings.ToLower(gofakeit.LetterN(8)),
		Excerpt:   gofakeit.Sentence(10),
		Content:   gofakeit.Paragraph(2, 4, 20, "\n\n"),
		Category:  content.DefaultCategory,
		Tags:      []string{gofakeit.Word(), gofakeit.Word()},
		Published: published,
		Date:      "2025-01-15",
		ReadTime:  "1 min read",
	}
}

func TestRepo_Add_Get_Delete(t *testing.T) {
	ctx := context.Background()
	repo, shutdown := testRepoSetup(t)
	defer shutdown()

	statsBefore, err := repo.Stats(ctx)
	require.NoError(t, err)

	now := time.Now().Add(-time.Minute)
	p1 := fakePost(true)
	p2 := fakePost(false)
	require.NoError(t, repo.Add(ctx, p1))
	require.NoError(t, repo.Add(ctx, p2))

	assert.NotEqual(t, p1.ID, p2.ID)
	assert.True(t, now.Before(p1.CreatedAt), "%v should be before %v", now, p1.CreatedAt)

	statsAfter, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, statsBefore.Total+2, statsAfter.Total)
	assert.Equal(t, statsBefore.Published+1, statsAfter.Published)

	fetched, err := repo.GetByID(ctx, p1.ID)
	require.NoError(t, err)
	assert.Equal(t, p1.Title, fetched.Title)
	assert.Equal(t, p1.Tags, fetched.Tags)
	assert.Equal(t, "2025-01-15", fetched.Date)
	assert.Empty(t, fetched.ImageURL)

	id, err := repo.IDBySlug(ctx, p2.Slug)
	require.NoError(t, err)
	assert.Equal(t, p2.ID, id)

	_, err = repo.PublishedBySlug(ctx, p2.Slug)
	assert.ErrorIs(t, err, ErrPostNotFound)
	public, err := repo.PublishedBySlug(ctx, p1.Slug)
	require.NoError(t, err)
	assert.Equal(t, p1.ID, public.ID)

	assert.ErrorIs(t, repo.Delete(ctx, content.NewPostID()), ErrPostNotFound)
	require.NoError(t, repo.Delete(ctx, p2.ID))
	_, err = repo.GetByID(ctx, p2.ID)
	assert.ErrorIs(t, err, ErrPostNotFound)
	require.NoError(t, repo.Delete(ctx, p1.ID))
}

func TestRepo_DuplicateSlug(t *testing.T) {
	ctx := context.Background()
	repo, shutdown := testRepoSetup(t)
	defer shutdown()

	p1 := fakePost(false)
	require.NoError(t, repo.Add(ctx, p1))
	defer func() { _ = repo.Delete(ctx, p1.ID) }()

	dup := fakePost(false)
	dup.Slug = p1.Slug
	assert.ErrorIs(t, repo.Add(ctx, dup), ErrSlugExists)

	p2 := fakePost(false)
	require.NoError(t, repo.Add(ctx, p2))
	defer func() { _ = repo.Delete(ctx, p2.ID) }()

	p2.Slug = p1.Slug
	assert.ErrorIs(t, repo.Update(ctx, p2), ErrSlugExists)
}

func TestRepo_Update(t *testing.T) {
	ctx := context.Background()
	repo, shutdown := testRepoSetup(t)
	defer shutdown()

	p := fakePost(false)
	p.Tags = nil
	require.NoError(t, repo.Add(ctx, p))
	defer func() { _ = repo.Delete(ctx, p.ID) }()
	createdAt := p.CreatedAt

	p.Title = "updated title"
	p.Published = true
	p.ImageURL = "https://cdn.example.com/blog-images/1.png"
	require.NoError(t, repo.Update(ctx, p))
	assert.Equal(t, createdAt, p.CreatedAt)

	fetched, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "updated title", fetched.Title)
	assert.True(t, fetched.Published)
	assert.Equal(t, []string{}, fetched.Tags)
	assert.Equal(t, p.ImageURL, fetched.ImageURL)
	assert.False(t, fetched.UpdatedAt.Before(fetched.CreatedAt))

	missing := fakePost(false)
	missing.ID = content.NewPostID()
	assert.ErrorIs(t, repo.Update(ctx, missing), ErrPostNotFound)
}

func TestRepo_Published_Order(t *testing.T) {
	ctx := context.Background()
	repo, shutdown := testRepoSetup(t)
	defer shutdown()

	older := fakePost(true)
	older.Date = "2001-01-01"
	newer := fakePost(true)
	newer.Date = "2001-01-02"
	draft := fakePost(false)
	for _, p := range []*content.Post{older, newer, draft} {
		require.NoError(t, repo.Add(ctx, p))
		defer func(id string) { _ = repo.Delete(ctx, id) }(p.ID)
	}

	published, err := repo.Published(ctx)
	require.NoError(t, err)

	var positions []string
	for _, p := range published {
		assert.True(t, p.Published)
		if p.ID == older.ID || p.ID == newer.ID {
			positions = append(positions, p.ID)
		}
	}
	assert.Equal(t, []string{newer.ID, older.ID}, positions)
}

func TestRepo_UpsertBySlug(t *testing.T) {
	ctx := context.Background()
	repo, shutdown := testRepoSetup(t)
	defer shutdown()

	p := fakePost(true)
	p.ID = content.SlugToUUID(p.Slug)
	p.UpdatedAt = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, repo.UpsertBySlug(ctx, p))
	defer func() { _ = repo.Delete(ctx, p.ID) }()

	p.Title = "restored title"
	require.NoError(t, repo.UpsertBySlug(ctx, p))

	id, err := repo.IDBySlug(ctx, p.Slug)
	require.NoError(t, err)
	assert.Equal(t, p.ID, id)

	fetched, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "restored title", fetched.Title)
	assert.True(t, p.UpdatedAt.Equal(fetched.UpdatedAt))
}

func TestRepo_UpsertAllBySlug_AllOrNothing(t *testing.T) {
	ctx := context.Background()
	repo, shutdown := testRepoSetup(t)
	defer shutdown()

	good := fakePost(true)
	good.ID = content.SlugToUUID(good.Slug)
	bad := fakePost(true)
	bad.ID = content.SlugToUUID(bad.Slug)
	bad.Date = "not-a-date"

	err := repo.UpsertAllBySlug(ctx, []*content.Post{good, bad})
	require.Error(t, err)

	_, err = repo.IDBySlug(ctx, good.Slug)
	assert.ErrorIs(t, err, ErrPostNotFound)

	bad.Date = "2024-05-01"
	require.NoError(t, repo.UpsertAllBySlug(ctx, []*content.Post{good, bad}))
	defer func() {
		_ = repo.Delete(ctx, good.ID)
		_ = repo.Delete(ctx, bad.ID)
	}()

	for _, slug := range []string{good.Slug, bad.Slug} {
		_, err := repo.IDBySlug(ctx, slug)
		assert.NoError(t, err, slug)
	}
}
