package blog

import (
	"encoding/json"

	"github.com/2beens/portfoliocms/internal/content"
)

// TagList decodes either a JSON array of tags or the editor's comma separated string.
type TagList []string

func (t *TagList) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*t = nil
		return nil
	}

	var raw string
	if err := json.Unmarshal(data, &raw); err == nil {
		*t = content.ParseTags(raw)
		return nil
	}

	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	var tags []string
	for _, tag := range list {
		tags = append(tags, content.ParseTags(tag)...)
	}
	*t = tags
	return nil
}
