package sources

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nikandfor/errors"

	"github.com/therealbnut/rune/internal/item"
	"github.com/therealbnut/rune/internal/token"
)

func TestPosition(t *testing.T) {
	s := NewSource("main", "fn main() {\n  1\n}\n")

	for _, tc := range []struct {
		offset       int
		line, column int
	}{
		{0, 1, 1},
		{3, 1, 4},
		{11, 1, 12},
		{12, 2, 1},
		{14, 2, 3},
		{16, 3, 1},
		{100, 4, 1},
	} {
		pos := s.Position(tc.offset)
		if pos.Line != tc.line || pos.Column != tc.column {
			t.Errorf("Position(%d) = %d:%d, want %d:%d", tc.offset, pos.Line, pos.Column, tc.line, tc.column)
		}
	}

	if got := s.Line(2); got != "  1" {
		t.Errorf("Line(2) = %q", got)
	}
	if got := s.Format(token.Span{Start: 14, End: 15}, "boom"); got != "main:2:3: boom" {
		t.Errorf("Format = %q", got)
	}
	if got := s.Snippet(token.Span{Start: 3, End: 7}); got != "main" {
		t.Errorf("Snippet = %q", got)
	}
}

func TestSources(t *testing.T) {
	ss := New()

	a := ss.Insert(NewSource("a", ""))
	b := ss.Insert(NewSource("b", ""))

	if ss.Get(a).Name != "a" || ss.Get(b).Name != "b" || ss.Len() != 2 {
		t.Fatalf("unexpected registry contents")
	}
	if ss.Get(5) != nil {
		t.Fatalf("expected nil for an unknown id")
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func TestResolveModule(t *testing.T) {
	root := t.TempDir()

	writeFile(t, filepath.Join(root, "geometry", "point.rn"), "struct Point { x, y }\n")
	writeFile(t, filepath.Join(root, "shapes", "mod.rn"), "fn area() { 0 }\n")
	if err := os.MkdirAll(filepath.Join(root, "empty"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	path, err := ResolveModule(root, item.Parse("geometry::point"))
	if err != nil || path != filepath.Join(root, "geometry", "point.rn") {
		t.Fatalf("flat module: %v %v", path, err)
	}

	path, err = ResolveModule(root, item.Parse("shapes"))
	if err != nil || path != filepath.Join(root, "shapes", "mod.rn") {
		t.Fatalf("folder module: %v %v", path, err)
	}

	_, err = ResolveModule(root, item.Parse("empty"))
	if !errors.Is(err, ErrNotFound) || !strings.Contains(err.Error(), "mod.rn") {
		t.Fatalf("expected a missing mod.rn error, got %v", err)
	}

	_, err = ResolveModule(root, item.Parse("nope"))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLoadModule(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "util.rn"), "fn one() {\n  1\n}\n")

	s, err := LoadModule(NewFileSourceLoader(), root, item.Parse("util"), token.Span{})
	if err != nil {
		t.Fatalf("LoadModule: %v", err)
	}
	if s.Name != "util" || s.Path != filepath.Join(root, "util.rn") || s.Line(2) != "  1" {
		t.Fatalf("unexpected source: %+v", s)
	}

	span := token.Span{Start: 4, End: 9}

	_, err = LoadModule(NewFileSourceLoader(), root, item.Parse("missing"), span)

	var lerr *LoadError
	if !errors.As(err, &lerr) || lerr.Span != span {
		t.Fatalf("expected a LoadError at %v, got %v", span, err)
	}
}

func TestFileSourceLoaderMissingFile(t *testing.T) {
	_, err := NewFileSourceLoader().Load(token.Span{}, filepath.Join(t.TempDir(), "none.rn"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected os.ErrNotExist, got %v", err)
	}
}
