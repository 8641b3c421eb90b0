package content

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/2beens/portfoliocms/pkg"
)

const (
	DefaultPostsPath    = "content/blog/posts.json"
	DefaultBackupPath   = "content/blog/posts_from_backup.json"
	DefaultProjectsPath = "content/projects/projects.json"
)

// DefaultProjects is served when no projects file exists.
var DefaultProjects = []*Project{
	{
		ID:          "ai-research-agent",
		Title:       "AI Research Agent",
		Tech:        "Python, LangGraph, OpenAI GPT-4, Firecrawl, Pydantic, REST APIs",
		GithubURL:   "https://github.com/timomoebes/ai-research-agent-langgraph",
		Description: "Developed an intelligent AI research agent that automatically discovers, analyzes, and compares developer tools and technologies through advanced web scraping and LLM-powered analysis.",
		Featured:    true,
	},
}

// fileRecord is the on-disk shape of a post in posts.json. Older files carry read_time
// instead of readTime, both are accepted.
type fileRecord struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Excerpt        string   `json:"excerpt"`
	Content        string   `json:"content"`
	Date           string   `json:"date"`
	ReadTime       string   `json:"readTime,omitempty"`
	LegacyReadTime string   `json:"read_time,omitempty"`
	Category       string   `json:"category"`
	Tags           []string `json:"tags"`
	Published      bool     `json:"published"`
	Slug           string   `json:"slug,omitempty"`
	ImageURL       string   `json:"image_url,omitempty"`
}

type postsDocument struct {
	Posts []fileRecord `json:"posts"`
}

type projectsDocument struct {
	Projects []*Project `json:"projects"`
}

func recordFromPost(p *Post) fileRecord {
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}
	return fileRecord{
		ID:        p.ID,
		Title:     p.Title,
		Excerpt:   p.Excerpt,
		Content:   p.Content,
		Date:      p.Date,
		ReadTime:  p.ReadTime,
		Category:  p.Category,
		Tags:      tags,
		Published: p.Published,
		Slug:      p.Slug,
		ImageURL:  p.ImageURL,
	}
}

func (r fileRecord) post() *Post {
	readTime := r.ReadTime
	if readTime == "" {
		readTime = r.LegacyReadTime
	}
	return &Post{
		ID:        r.ID,
		Slug:      r.Slug,
		Title:     r.Title,
		Excerpt:   r.Excerpt,
		Content:   r.Content,
		Category:  r.Category,
		Tags:      r.Tags,
		Published: r.Published,
		Date:      r.Date,
		ReadTime:  readTime,
		ImageURL:  r.ImageURL,
	}
}

// ReadPostsFile reads a {"posts": [...]} JSON document.
func ReadPostsFile(path string) ([]*Post, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var doc postsDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	posts := make([]*Post, 0, len(doc.Posts))
	for _, r := range doc.Posts {
		posts = append(posts, r.post())
	}
	return posts, nil
}

// WritePostsFile writes posts as a {"posts": [...]} JSON document, indented by two spaces.
func WritePostsFile(path string, posts []*Post) error {
	doc := postsDocument{Posts: make([]fileRecord, 0, len(posts))}
	for _, p := range posts {
		doc.Posts = append(doc.Posts, recordFromPost(p))
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// FileStore is the JSON file content source: content/blog/posts.json and the projects file.
type FileStore struct {
	postsPath    string
	projectsPath string
	mutex        sync.RWMutex
}

func NewFileStore(postsPath, projectsPath string) *FileStore {
	return &FileStore{
		postsPath:    postsPath,
		projectsPath: projectsPath,
	}
}

func (s *FileStore) All(_ context.Context) ([]*Post, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return ReadPostsFile(s.postsPath)
}

// Published returns published posts, newest date first.
func (s *FileStore) Published(ctx context.Context) ([]*Post, error) {
	all, err := s.All(ctx)
	if err != nil {
		return nil, err
	}

	var published []*Post
	for _, p := range all {
		if p.Published {
			published = append(published, p)
		}
	}
	SortByDateDesc(published)

	return published, nil
}

func (s *FileStore) PublishedByID(ctx context.Context, id string) (*Post, error) {
	published, err := s.Published(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range published {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, ErrPostNotFound
}

func (s *FileStore) PublishedBySlug(ctx context.Context, slug string) (*Post, error) {
	all, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range all {
		if p.EffectiveSlug() == slug && p.Published {
			return p, nil
		}
	}
	return nil, ErrPostNotFound
}

func (s *FileStore) Slugs(ctx context.Context) ([]string, error) {
	published, err := s.Published(ctx)
	if err != nil {
		return nil, err
	}
	slugs := make([]string, 0, len(published))
	for _, p := range published {
		slugs = append(slugs, p.EffectiveSlug())
	}
	return slugs, nil
}

// Save inserts the post, or replaces the stored post with the same id.
func (s *FileStore) Save(_ context.Context, post *Post) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	posts, err := ReadPostsFile(s.postsPath)
	if err != nil {
		return err
	}

	replaced := false
	for i, p := range posts {
		if p.ID == post.ID {
			posts[i] = post
			replaced = true
			break
		}
	}
	if !replaced {
		posts = append(posts, post)
	}

	return WritePostsFile(s.postsPath, posts)
}

// Projects returns featured projects first. A missing or unreadable projects file
// falls back to DefaultProjects.
func (s *FileStore) Projects(_ context.Context) []*Project {
	exists, err := pkg.PathExists(s.projectsPath, false)
	if err != nil {
		log.Errorf("check projects file [%s]: %s", s.projectsPath, err)
		return DefaultProjects
	}
	if !exists {
		log.Warnf("projects file [%s] not found, using default projects", s.projectsPath)
		return DefaultProjects
	}

	data, err := os.ReadFile(s.projectsPath)
	if err != nil {
		log.Errorf("read projects file [%s]: %s", s.projectsPath, err)
		return DefaultProjects
	}

	var doc projectsDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		log.Errorf("decode projects file [%s]: %s", s.projectsPath, err)
		return DefaultProjects
	}

	projects := make([]*Project, 0, len(doc.Projects))
	for _, p := range doc.Projects {
		if p.Featured {
			projects = append(projects, p)
		}
	}
	for _, p := range doc.Projects {
		if !p.Featured {
			projects = append(projects, p)
		}
	}
	return projects
}

// SortByDateDesc orders posts newest publication date first, keeping the input order for equal dates.
func SortByDateDesc(posts []*Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].PublishedAt().After(posts[j].PublishedAt())
	})
}
