package media

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Object is a stored blob as the client sees it.
type Object struct {
	URL  string // public URL
	Path string // store-relative key, stable across base URL changes
}

// Store persists uploaded blobs.
type Store interface {
	Put(ctx context.Context, name string, r io.Reader) (Object, error)
}

// LocalStore writes blobs to a directory that the HTTP server exposes under
// RoutePrefix.
type LocalStore struct {
	Dir     string
	BaseURL string
}

// RoutePrefix is where LocalStore files are served from.
const RoutePrefix = "/uploads"

func NewLocalStore(dir, baseURL string) *LocalStore {
	return &LocalStore{Dir: dir, BaseURL: strings.TrimRight(baseURL, "/")}
}

// Put writes to a temp file first so readers never see a partial blob.
func (s *LocalStore) Put(ctx context.Context, name string, r io.Reader) (Object, error) {
	if name == "" || name != filepath.Base(name) {
		return Object{}, fmt.Errorf("media: invalid object name %q", name)
	}
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return Object{}, fmt.Errorf("media: create dir: %w", err)
	}

	tmp, err := os.CreateTemp(s.Dir, ".upload-*")
	if err != nil {
		return Object{}, fmt.Errorf("media: temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return Object{}, fmt.Errorf("media: write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return Object{}, fmt.Errorf("media: close %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.Dir, name)); err != nil {
		return Object{}, fmt.Errorf("media: store %s: %w", name, err)
	}

	key := path.Join(strings.TrimPrefix(RoutePrefix, "/"), name)
	return Object{URL: s.BaseURL + "/" + key, Path: key}, nil
}
