package report

import (
	"strings"
	"testing"
)

const sample = `# Title

intro

## First
one

### Nested
deep

## Second
two
`

func TestParseSections(t *testing.T) {
	sections := ParseSections(sample)
	if len(sections) != 4 {
		t.Fatalf("sections = %d, want 4", len(sections))
	}

	tests := []struct {
		title string
		level int
	}{
		{"Title", 1},
		{"First", 2},
		{"Nested", 3},
		{"Second", 2},
	}
	for i, tc := range tests {
		if sections[i].Title != tc.title || sections[i].Level != tc.level {
			t.Errorf("section %d = %q level %d, want %q level %d", i, sections[i].Title, sections[i].Level, tc.title, tc.level)
		}
	}

	if sections[0].ContentEnd != len(sample) {
		t.Error("top-level section should run to EOF")
	}
	first := sample[sections[1].ContentStart:sections[1].ContentEnd]
	if !strings.Contains(first, "deep") || strings.Contains(first, "two") {
		t.Errorf("First content = %q", first)
	}
}

func TestParseSections_None(t *testing.T) {
	if got := ParseSections("no headings\n#hashtag\n"); got != nil {
		t.Errorf("ParseSections() = %v, want nil", got)
	}
}

func TestExtract(t *testing.T) {
	got, ok := Extract(sample, "  second ")
	if !ok {
		t.Fatal("Extract(second) not found")
	}
	if got != "## Second\ntwo\n" {
		t.Errorf("Extract(second) = %q", got)
	}
	if _, ok := Extract(sample, "missing"); ok {
		t.Error("Extract(missing) found a section")
	}
}
