// Package document loads specification documents and exposes the views the
// rule engine and stress-test probes need: raw text, word count, and the
// Markdown heading structure.
package document

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// UnreadableError indicates the document file could not be read.
// This is the only fatal error the linting path produces; check failures
// are reported structurally, never as errors.
type UnreadableError struct {
	Path string
	Err  error
}

func (e *UnreadableError) Error() string {
	return fmt.Sprintf("document unreadable: %s: %v", e.Path, e.Err)
}

func (e *UnreadableError) Unwrap() error {
	return e.Err
}

// Heading is a Markdown heading with its level (1-6) and plain text.
type Heading struct {
	Level int
	Text  string
}

// Document is an immutable, fully-loaded specification document.
// The Markdown AST is walked once at construction; all accessors are
// pure reads after that.
type Document struct {
	Path      string
	Text      string
	headings  []Heading
	wordCount int
}

// Load reads the file at path and parses it into a Document.
// I/O failures are returned as *UnreadableError; there is no retry.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &UnreadableError{Path: path, Err: err}
	}
	return New(path, string(data)), nil
}

// New builds a Document from already-loaded text.
func New(path, content string) *Document {
	doc := &Document{
		Path:      path,
		Text:      content,
		wordCount: len(strings.Fields(content)),
	}

	source := []byte(content)
	tree := goldmark.New().Parser().Parse(text.NewReader(source))

	_ = ast.Walk(tree, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if heading, ok := n.(*ast.Heading); ok {
			doc.headings = append(doc.headings, Heading{
				Level: heading.Level,
				Text:  extractText(heading, source),
			})
		}
		return ast.WalkContinue, nil
	})

	return doc
}

// WordCount returns the number of whitespace-separated words in the document.
func (d *Document) WordCount() int {
	return d.wordCount
}

// Headings returns the Markdown headings in document order.
func (d *Document) Headings() []Heading {
	return d.headings
}

// HasHeading reports whether any heading's text contains the given phrase,
// case-insensitively.
func (d *Document) HasHeading(phrase string) bool {
	lower := strings.ToLower(phrase)
	for _, h := range d.headings {
		if strings.Contains(strings.ToLower(h.Text), lower) {
			return true
		}
	}
	return false
}

// SectionBody returns the text between the first heading whose text contains
// the given phrase (case-insensitive) and the next heading of the same or
// higher level. The second return value is false if no such heading exists.
func (d *Document) SectionBody(phrase string) (string, bool) {
	lines := strings.Split(d.Text, "\n")
	lower := strings.ToLower(phrase)

	start := -1
	level := 0
	for i, line := range lines {
		l, text := headingLine(line)
		if l == 0 {
			continue
		}
		if start >= 0 && l <= level {
			return strings.Join(lines[start:i], "\n"), true
		}
		if start < 0 && strings.Contains(strings.ToLower(text), lower) {
			start = i + 1
			level = l
		}
	}
	if start < 0 {
		return "", false
	}
	return strings.Join(lines[start:], "\n"), true
}

// headingLine parses an ATX heading line, returning its level and text.
// Returns level 0 for non-heading lines.
func headingLine(line string) (int, string) {
	trimmed := strings.TrimLeft(line, " ")
	level := 0
	for level < len(trimmed) && trimmed[level] == '#' {
		level++
	}
	if level == 0 || level > 6 {
		return 0, ""
	}
	rest := trimmed[level:]
	if rest != "" && !strings.HasPrefix(rest, " ") {
		return 0, ""
	}
	return level, strings.TrimSpace(rest)
}

// extractText extracts plain text from an AST node's direct text children.
func extractText(n ast.Node, source []byte) string {
	var buf bytes.Buffer
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			buf.Write(t.Segment.Value(source))
		}
	}
	return buf.String()
}
