package content

import (
	"fmt"
	"regexp"
	"strings"
)

const WordsPerMinute = 200

type ReadingTime struct {
	Minutes int    `json:"minutes"`
	Words   int    `json:"words"`
	Text    string `json:"text"`
}

// lineChar matches one character that does not end a line, the way "." does in the
// pipeline that computed stored read_time values.
const lineChar = `[^\n\r\x{2028}\x{2029}]`

// markdownStripSteps run in order. Links are removed together with their anchor text,
// stored read_time values depend on that.
var markdownStripSteps = []struct {
	regex       *regexp.Regexp
	replacement string
}{
	{regexp.MustCompile("```[\\s\\S]*?```"), ""},
	{regexp.MustCompile("`[^`]*`"), ""},
	{regexp.MustCompile(`!\[` + lineChar + `*?\]\(` + lineChar + `*?\)`), ""},
	{regexp.MustCompile(`\[` + lineChar + `*?\]\(` + lineChar + `*?\)`), ""},
	{regexp.MustCompile(`#+ `), ""},
	{regexp.MustCompile("[*_~`]"), ""},
	{regexp.MustCompile(`<[^>]*>`), ""},
	{regexp.MustCompile(`[` + whitespace + `]+`), " "},
}

func CalculateReadingTime(content string) ReadingTime {
	text := content
	for _, step := range markdownStripSteps {
		text = step.regex.ReplaceAllString(text, step.replacement)
	}
	text = strings.TrimSpace(text)

	words := 0
	for _, token := range strings.Split(text, " ") {
		if token != "" {
			words++
		}
	}

	minutes := (words + WordsPerMinute - 1) / WordsPerMinute
	return ReadingTime{
		Minutes: minutes,
		Words:   words,
		Text:    ReadingTimeText(minutes),
	}
}

func ReadingTimeText(minutes int) string {
	if minutes == 1 {
		return "1 min read"
	}
	return fmt.Sprintf("%d min read", minutes)
}
