// Package storage persists uploaded file artifacts and maps them to
// public URLs.
package storage

import (
	"context"
	"io"
	"path"
	"regexp"
	"strings"
)

// ArtifactStore persists uploaded files under generated names and removes
// them when their owning record is deleted or the file is replaced.
type ArtifactStore interface {
	// Store persists content under a freshly generated, collision-resistant
	// name and returns the public URL. originalName contributes only its
	// extension; origin is the serving origin (scheme://host) of the request.
	// A write failure must abort the enclosing operation.
	Store(ctx context.Context, content io.Reader, originalName, origin string) (string, error)

	// Release deletes the artifact a URL points at. A missing artifact is
	// success: release is idempotent.
	Release(ctx context.Context, url string) error
}

var extPattern = regexp.MustCompile(`^\.[a-zA-Z0-9]+$`)

// safeExt extracts a usable extension from a client-supplied filename.
// Anything that is not a plain alphanumeric extension is discarded, so the
// client name can never influence the stored path.
func safeExt(originalName string) string {
	ext := strings.ToLower(path.Ext(path.Base(originalName)))
	if !extPattern.MatchString(ext) {
		return ""
	}
	return ext
}

// urlFilename returns the last path segment of an artifact URL.
func urlFilename(url string) string {
	trimmed := strings.TrimSuffix(url, "/")
	return path.Base(trimmed)
}
