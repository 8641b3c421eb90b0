package blog_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/2beens/portfoliocms/internal/blog"
	"github.com/2beens/portfoliocms/internal/content"
)

// repoMock is an in-memory blog_posts table.
type repoMock struct {
	mutex sync.Mutex
	posts map[string]*content.Post
	now   time.Time
}

func newRepoMock(posts ...*content.Post) *repoMock {
	r := &repoMock{
		posts: map[string]*content.Post{},
		now:   time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	for _, p := range posts {
		r.posts[p.ID] = p
	}
	return r
}

func (r *repoMock) tick() time.Time {
	r.now = r.now.Add(time.Minute)
	return r.now
}

func (r *repoMock) sorted(filter func(p *content.Post) bool, less func(a, b *content.Post) bool) []*content.Post {
	var posts []*content.Post
	for _, p := range r.posts {
		if filter(p) {
			clone := *p
			posts = append(posts, &clone)
		}
	}
	sort.Slice(posts, func(i, j int) bool {
		return less(posts[i], posts[j])
	})
	return posts
}

func (r *repoMock) All(_ context.Context) ([]*content.Post, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.sorted(
		func(*content.Post) bool { return true },
		func(a, b *content.Post) bool { return a.CreatedAt.After(b.CreatedAt) },
	), nil
}

func (r *repoMock) Published(_ context.Context) ([]*content.Post, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.sorted(
		func(p *content.Post) bool { return p.Published },
		func(a, b *content.Post) bool { return a.Date > b.Date },
	), nil
}

func (r *repoMock) PublishedBySlug(_ context.Context, slug string) (*content.Post, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	for _, p := range r.posts {
		if p.Published && p.Slug == slug {
			clone := *p
			return &clone, nil
		}
	}
	return nil, blog.ErrPostNotFound
}

func (r *repoMock) GetByID(_ context.Context, id string) (*content.Post, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	p, ok := r.posts[id]
	if !ok {
		return nil, blog.ErrPostNotFound
	}
	clone := *p
	return &clone, nil
}

func (r *repoMock) IDBySlug(_ context.Context, slug string) (string, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	for _, p := range r.posts {
		if p.Slug == slug {
			return p.ID, nil
		}
	}
	return "", blog.ErrPostNotFound
}

func (r *repoMock) slugTaken(slug, exceptID string) bool {
	for _, p := range r.posts {
		if p.Slug == slug && p.ID != exceptID {
			return true
		}
	}
	return false
}

func (r *repoMock) Add(_ context.Context, post *content.Post) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if r.slugTaken(post.Slug, "") {
		return blog.ErrSlugExists
	}
	if post.ID == "" {
		post.ID = content.NewPostID()
	}
	post.CreatedAt = r.tick()
	post.UpdatedAt = post.CreatedAt
	clone := *post
	r.posts[post.ID] = &clone
	return nil
}

func (r *repoMock) Update(_ context.Context, post *content.Post) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	existing, ok := r.posts[post.ID]
	if !ok {
		return blog.ErrPostNotFound
	}
	if r.slugTaken(post.Slug, post.ID) {
		return blog.ErrSlugExists
	}
	post.CreatedAt = existing.CreatedAt
	post.UpdatedAt = r.tick()
	clone := *post
	r.posts[post.ID] = &clone
	return nil
}

func (r *repoMock) Delete(_ context.Context, id string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if _, ok := r.posts[id]; !ok {
		return blog.ErrPostNotFound
	}
	delete(r.posts, id)
	return nil
}

func (r *repoMock) Stats(ctx context.Context) (content.Stats, error) {
	all, err := r.All(ctx)
	if err != nil {
		return content.Stats{}, err
	}
	return content.StatsOf(all), nil
}
