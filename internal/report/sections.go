package report

import (
	"regexp"
	"strings"
)

// Section is one markdown heading and the byte range of its body.
type Section struct {
	Level        int    // number of leading '#'
	Title        string // heading text without the hashes
	HeaderStart  int
	ContentStart int
	ContentEnd   int // start of the next heading of the same or higher level, or EOF
}

// headerPattern matches ATX headings at the start of a line.
// Trailing spaces/tabs on the heading line are trimmed by the lazy group.
var headerPattern = regexp.MustCompile(`(?m)^(#{1,6})\s+([^\n]+?)[ \t]*$`)

// ParseSections finds every heading in text. Returns nil when there are none.
func ParseSections(text string) []Section {
	matches := headerPattern.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return nil
	}

	sections := make([]Section, len(matches))
	for i, m := range matches {
		// m: [fullStart, fullEnd, hashStart, hashEnd, titleStart, titleEnd]
		contentStart := m[1]
		if contentStart < len(text) && text[contentStart] == '\n' {
			contentStart++
		}
		sections[i] = Section{
			Level:        m[3] - m[2],
			Title:        text[m[4]:m[5]],
			HeaderStart:  m[0],
			ContentStart: contentStart,
			ContentEnd:   len(text),
		}
	}

	// A section runs until the next heading that is not nested under it.
	for i := range sections {
		for j := i + 1; j < len(sections); j++ {
			if sections[j].Level <= sections[i].Level {
				sections[i].ContentEnd = sections[j].HeaderStart
				break
			}
		}
	}
	return sections
}

// FindSection returns the first section whose title matches name,
// case-insensitively.
func FindSection(sections []Section, name string) *Section {
	want := strings.TrimSpace(name)
	for i := range sections {
		if strings.EqualFold(strings.TrimSpace(sections[i].Title), want) {
			return &sections[i]
		}
	}
	return nil
}

// SectionTitles lists the titles of sections at the given level.
// Useful for error messages listing what exists.
func SectionTitles(sections []Section, level int) []string {
	var titles []string
	for _, s := range sections {
		if s.Level == level {
			titles = append(titles, s.Title)
		}
	}
	return titles
}

// Extract returns the named section of text, heading included.
func Extract(text, name string) (string, bool) {
	s := FindSection(ParseSections(text), name)
	if s == nil {
		return "", false
	}
	return text[s.HeaderStart:s.ContentEnd], true
}
