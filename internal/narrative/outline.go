package narrative

import (
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

const maxTitleRunes = 72

// Heading is one heading found in a passage.
type Heading struct {
	Level int
	Text  string
}

var markdownParser = goldmark.New().Parser()

// Outline lists the headings of a markdown passage in document order.
func Outline(markdown string) []Heading {
	source := []byte(markdown)
	doc := markdownParser.Parse(text.NewReader(source))
	var headings []Heading
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		heading, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		label := strings.TrimSpace(string(heading.Text(source)))
		if label != "" {
			headings = append(headings, Heading{Level: heading.Level, Text: label})
		}
		return ast.WalkSkipChildren, nil
	})
	return headings
}

// Title labels a passage by its first heading, falling back to its first
// non-blank line that is not a thematic break.
func Title(markdown string) string {
	if headings := Outline(markdown); len(headings) > 0 {
		return truncate(headings[0].Text)
	}
	for _, line := range strings.Split(markdown, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.Trim(trimmed, "-*_ ") == "" {
			continue
		}
		return truncate(trimmed)
	}
	return ""
}

func truncate(s string) string {
	if utf8.RuneCountInString(s) <= maxTitleRunes {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxTitleRunes-1]) + "…"
}
