package sources

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/nikandfor/errors"
	"github.com/nikandfor/tlog"

	"github.com/therealbnut/rune/internal/item"
	"github.com/therealbnut/rune/internal/token"
)

// Ext is the file extension of script sources.
const Ext = ".rn"

// ErrNotFound is returned when no file implements a module.
var ErrNotFound = errors.New("module not found")

// LoadError is an error loading the source of a module, attributed to the
// span that asked for it.
type LoadError struct {
	Span token.Span
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%v: load %v: %v", e.Span, e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// SourceLoader loads the source at path on behalf of span.
type SourceLoader interface {
	Load(span token.Span, path string) (*Source, error)
}

// FileSourceLoader loads sources from the filesystem.
type FileSourceLoader struct{}

func NewFileSourceLoader() *FileSourceLoader {
	return &FileSourceLoader{}
}

func (l *FileSourceLoader) Load(span token.Span, path string) (*Source, error) {
	s, err := FromPath(path)
	if err != nil {
		return nil, &LoadError{Span: span, Path: path, Err: err}
	}

	tlog.V("sources").Printw("loaded", "path", path, "size", len(s.Text))

	return s, nil
}

// ResolveModule finds the file implementing module it relative to root.
// a::b resolves to a/b.rn, falling back to a/b/mod.rn.
func ResolveModule(root string, it item.Item) (string, error) {
	parts := make([]string, 0, len(it))
	for _, c := range it {
		if c.Kind != item.KindString {
			return "", errors.New("%v: not a module path", it)
		}
		parts = append(parts, c.Name)
	}
	if len(parts) == 0 {
		return "", errors.New("empty module path")
	}

	base := filepath.Join(root, filepath.Join(parts...))

	flat := base + Ext
	if fileExists(flat) {
		return flat, nil
	}

	folder := filepath.Join(base, "mod"+Ext)
	if fileExists(folder) {
		return folder, nil
	}

	if info, err := os.Stat(base); err == nil && info.IsDir() {
		return "", errors.Wrap(ErrNotFound, "%v: directory %v has no mod%v", it, base, Ext)
	}

	return "", errors.Wrap(ErrNotFound, "%v: looked for %v and %v", it, flat, folder)
}

// LoadModule resolves it relative to root and loads it with l.
func LoadModule(l SourceLoader, root string, it item.Item, span token.Span) (*Source, error) {
	path, err := ResolveModule(root, it)
	if err != nil {
		return nil, &LoadError{Span: span, Path: it.String(), Err: err}
	}

	s, err := l.Load(span, path)
	if err != nil {
		return nil, err
	}

	s.Name = it.String()

	return s, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
