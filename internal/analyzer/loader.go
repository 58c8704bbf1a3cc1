package analyzer

import (
	"context"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
)

// Loader fetches the text of a document by URL. URLs are slash-separated
// and relative to the package root.
type Loader interface {
	Load(ctx context.Context, url string) (string, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, url string) (string, error)

func (f LoaderFunc) Load(ctx context.Context, url string) (string, error) { return f(ctx, url) }

// FSLoader reads documents from a directory on disk.
type FSLoader struct {
	Root string
}

func (l FSLoader) Load(ctx context.Context, url string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	clean := path.Clean("/" + url)
	data, err := os.ReadFile(filepath.Join(l.Root, filepath.FromSlash(clean)))
	if errors.Is(err, fs.ErrNotExist) {
		return "", errors.Wrapf(ErrNotFound, "%s", url)
	}
	if err != nil {
		return "", errors.Wrapf(err, "analyzer: read %s", url)
	}
	return string(data), nil
}

// MapLoader serves documents from memory. Used by tests and by callers
// that hold every document already.
type MapLoader map[string]string

func (m MapLoader) Load(_ context.Context, url string) (string, error) {
	text, ok := m[url]
	if !ok {
		return "", errors.Wrapf(ErrNotFound, "%s", url)
	}
	return text, nil
}

// OverlayLoader answers from Overlay first, so open editor buffers shadow
// what is on disk, and falls back to Base.
type OverlayLoader struct {
	Overlay func(url string) (string, bool)
	Base    Loader
}

func (l OverlayLoader) Load(ctx context.Context, url string) (string, error) {
	if l.Overlay != nil {
		if text, ok := l.Overlay(url); ok {
			return text, nil
		}
	}
	if l.Base == nil {
		return "", errors.Wrapf(ErrNotFound, "%s", url)
	}
	return l.Base.Load(ctx, url)
}

// ResolveURL resolves href relative to the document at base. Absolute
// references ("http://...", "//host/...") are reported as not resolvable;
// root-relative references ("/x.html") resolve against the package root.
func ResolveURL(base, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "//") || strings.Contains(href, "://") {
		return "", false
	}
	if i := strings.IndexAny(href, "?#"); i >= 0 {
		href = href[:i]
	}
	if strings.HasPrefix(href, "/") {
		return strings.TrimPrefix(path.Clean(href), "/"), true
	}
	return path.Join(path.Dir(base), href), true
}
