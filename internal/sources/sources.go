// Package sources keeps the text of compiled sources so that spans can be
// reported as lines and columns.
package sources

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/nikandfor/errors"

	"github.com/therealbnut/rune/internal/token"
)

// Source is a named piece of source text.
type Source struct {
	Name string
	Path string // empty for sources not read from disk
	Text string

	// byte offset of the first byte of every line
	lines []int
}

// NewSource returns a source named name.
func NewSource(name, text string) *Source {
	s := &Source{Name: name, Text: text}
	s.index()
	return s
}

// FromPath reads a source from a file.
func FromPath(path string) (*Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read %v", path)
	}

	s := NewSource(filepath.Base(path), string(data))
	s.Path = path

	return s, nil
}

func (s *Source) index() {
	s.lines = append(s.lines[:0], 0)
	for i := 0; i < len(s.Text); i++ {
		if s.Text[i] == '\n' {
			s.lines = append(s.lines, i+1)
		}
	}
}

// Position converts a byte offset to a 1-based line and column. Columns
// count bytes. Offsets past the end are clamped.
func (s *Source) Position(offset int) token.Position {
	if offset < 0 {
		offset = 0
	}
	if offset > len(s.Text) {
		offset = len(s.Text)
	}

	line := sort.Search(len(s.lines), func(i int) bool { return s.lines[i] > offset }) - 1

	return token.Position{Line: line + 1, Column: offset - s.lines[line] + 1}
}

// Locate returns the positions of both ends of span.
func (s *Source) Locate(span token.Span) (start, end token.Position) {
	return s.Position(span.Start), s.Position(span.End)
}

// Line returns line n without its line terminator, n being 1-based.
func (s *Source) Line(n int) string {
	if n < 1 || n > len(s.lines) {
		return ""
	}

	start := s.lines[n-1]
	end := len(s.Text)
	if n < len(s.lines) {
		end = s.lines[n] - 1
	}

	return strings.TrimSuffix(s.Text[start:end], "\r")
}

// Format prefixes msg with the name of the source and the position of
// span, as in "main.rn:3:7: msg".
func (s *Source) Format(span token.Span, msg string) string {
	pos := s.Position(span.Start)
	return fmt.Sprintf("%s:%d:%d: %s", s.Name, pos.Line, pos.Column, msg)
}

// Snippet returns the text covered by span.
func (s *Source) Snippet(span token.Span) string {
	start, end := span.Start, span.End
	if start < 0 {
		start = 0
	}
	if end > len(s.Text) {
		end = len(s.Text)
	}
	if start >= end {
		return ""
	}
	return s.Text[start:end]
}

// ID identifies a source in a Sources registry.
type ID int

// Sources is a registry of sources.
type Sources struct {
	list []*Source
}

func New() *Sources {
	return &Sources{}
}

// Insert adds s and returns its id.
func (ss *Sources) Insert(s *Source) ID {
	ss.list = append(ss.list, s)
	return ID(len(ss.list) - 1)
}

// Get returns the source with the given id, or nil.
func (ss *Sources) Get(id ID) *Source {
	if id < 0 || int(id) >= len(ss.list) {
		return nil
	}
	return ss.list[id]
}

func (ss *Sources) Len() int {
	return len(ss.list)
}
