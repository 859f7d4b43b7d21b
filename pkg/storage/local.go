package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"furniture-service/pkg/logger"

	"go.uber.org/zap"
)

// PublicPrefix is the URL path local uploads are served under
const PublicPrefix = "/uploads"

// LocalStore writes media under a directory served at PublicPrefix
type LocalStore struct {
	dir string
}

// NewLocalStore creates the media folders under dir
func NewLocalStore(dir string) (*LocalStore, error) {
	for _, kind := range []Kind{KindImage, KindModel} {
		if err := os.MkdirAll(filepath.Join(dir, string(kind)), 0o755); err != nil {
			return nil, fmt.Errorf("create upload dir: %w", err)
		}
	}
	return &LocalStore{dir: dir}, nil
}

// Dir returns the root directory, for static file serving
func (s *LocalStore) Dir() string {
	return s.dir
}

// Save writes r to <dir>/<kind>/<name> and returns /uploads/<kind>/<name>
func (s *LocalStore) Save(ctx context.Context, kind Kind, name string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name = filepath.Base(name)
	target := filepath.Join(s.dir, string(kind), name)

	f, err := os.Create(target)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", name, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(target)
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(target)
		return "", err
	}
	return path.Join(PublicPrefix, string(kind), name), nil
}

// Delete removes a file previously returned by Save. URLs outside
// PublicPrefix are not ours and are ignored, as are files already gone.
func (s *LocalStore) Delete(ctx context.Context, url string) error {
	rel, ok := strings.CutPrefix(url, PublicPrefix+"/")
	if !ok {
		logger.FromStdContext(ctx).Debug("Skipping foreign media url", zap.String("url", url))
		return nil
	}
	rel = path.Clean(rel)
	if rel == "." || strings.HasPrefix(rel, "..") {
		return fmt.Errorf("invalid upload path %q", url)
	}
	err := os.Remove(filepath.Join(s.dir, filepath.FromSlash(rel)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
