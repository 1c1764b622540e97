package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// BlobStore reads and writes whole objects.
type BlobStore interface {
	Put(ctx context.Context, loc Location, body []byte) error
	Get(ctx context.Context, loc Location) ([]byte, error)
	Name() string
}

// FileStore keeps objects as files under Root/<bucket>/<key>.
type FileStore struct {
	Root string
}

// NewFileStore creates a store rooted at dir.
func NewFileStore(dir string) *FileStore { return &FileStore{Root: dir} }

func (s *FileStore) Name() string { return "file" }

func (s *FileStore) path(loc Location) (string, error) {
	if err := loc.Validate(); err != nil {
		return "", err
	}
	return filepath.Join(s.Root, loc.Bucket, filepath.FromSlash(loc.Key)), nil
}

func (s *FileStore) Put(ctx context.Context, loc Location, body []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.path(loc)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	return os.WriteFile(p, body, 0o644)
}

func (s *FileStore) Get(ctx context.Context, loc Location) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.path(loc)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(p)
}

// readAllLimited guards against unbounded object bodies.
func readAllLimited(r io.Reader, limit int64) ([]byte, error) {
	b, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > limit {
		return nil, fmt.Errorf("object larger than %d bytes", limit)
	}
	return b, nil
}
