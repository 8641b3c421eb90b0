package content

// EditSession holds the state of one editor session over a post. The slug follows the
// title only while SlugIsAutoDerived is set; editing the slug directly clears the flag
// for the rest of the session.
type EditSession struct {
	Title             string      `json:"title"`
	Slug              string      `json:"slug"`
	Content           string      `json:"content"`
	SlugIsAutoDerived bool        `json:"slugIsAutoDerived"`
	ReadingTime       ReadingTime `json:"readingTime"`
}

func NewDraftSession() *EditSession {
	return &EditSession{
		SlugIsAutoDerived: true,
		ReadingTime:       CalculateReadingTime(""),
	}
}

// NewEditSession opens a session over a stored post. The slug starts as auto derived
// only when it still equals the slug generated from the stored title.
func NewEditSession(p *Post) *EditSession {
	return &EditSession{
		Title:             p.Title,
		Slug:              p.Slug,
		Content:           p.Content,
		SlugIsAutoDerived: p.Slug == "" || p.Slug == GenerateSlug(p.Title),
		ReadingTime:       CalculateReadingTime(p.Content),
	}
}

func (s *EditSession) SetTitle(title string) {
	s.Title = title
	if s.SlugIsAutoDerived {
		s.Slug = GenerateSlug(title)
	}
}

func (s *EditSession) SetSlug(slug string) {
	s.Slug = slug
	s.SlugIsAutoDerived = false
}

// ResetSlug puts the slug back under title control.
func (s *EditSession) ResetSlug() {
	s.SlugIsAutoDerived = true
	s.Slug = GenerateSlug(s.Title)
}

func (s *EditSession) SetContent(content string) {
	s.Content = content
	s.ReadingTime = CalculateReadingTime(content)
}

// Apply copies the session's fields onto p.
func (s *EditSession) Apply(p *Post) {
	p.Title = s.Title
	p.Slug = s.Slug
	p.Content = s.Content
	p.ReadTime = s.ReadingTime.Text
}
