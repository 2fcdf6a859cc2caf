package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// FilesystemStore keeps artifacts in a local directory, served statically
// under publicPath.
type FilesystemStore struct {
	dir        string
	publicPath string // URL path prefix, e.g. "/images"
}

func NewFilesystemStore(dir, publicPath string) (*FilesystemStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &FilesystemStore{
		dir:        dir,
		publicPath: strings.TrimSuffix(publicPath, "/"),
	}, nil
}

func (s *FilesystemStore) Store(ctx context.Context, content io.Reader, originalName, origin string) (string, error) {
	name := uuid.NewString() + safeExt(originalName)

	f, err := os.OpenFile(filepath.Join(s.dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create artifact file: %w", err)
	}

	if _, err := io.Copy(f, content); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to write artifact file: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to close artifact file: %w", err)
	}

	return fmt.Sprintf("%s%s/%s", origin, s.publicPath, name), nil
}

func (s *FilesystemStore) Release(ctx context.Context, url string) error {
	// filepath.Base strips any directory components, so a crafted URL
	// cannot escape the storage directory.
	name := filepath.Base(urlFilename(url))
	if name == "." || name == string(filepath.Separator) {
		return nil
	}

	err := os.Remove(filepath.Join(s.dir, name))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove artifact file: %w", err)
	}

	return nil
}
