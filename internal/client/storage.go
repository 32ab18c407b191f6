package client

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path"

	"github.com/google/uuid"
)

// Storage hands out bucket stubs. Nothing is persisted.
type Storage struct {
	publicURL string
}

// From returns the named bucket.
func (s *Storage) From(bucket string) *Bucket {
	return &Bucket{name: bucket, publicURL: s.publicURL}
}

// Bucket mimics object operations with fixed placeholder results.
type Bucket struct {
	name      string
	publicURL string
}

// Object describes an uploaded or removed object.
type Object struct {
	ID       string `json:"id,omitempty"`
	Path     string `json:"path"`
	FullPath string `json:"fullPath"`
	Size     int64  `json:"size,omitempty"`
}

// Name returns the bucket name.
func (b *Bucket) Name() string {
	return b.name
}

// Upload drains r and reports where the object would live.
func (b *Bucket) Upload(ctx context.Context, name string, r io.Reader) (*Object, error) {
	n, err := io.Copy(io.Discard, r)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	slog.DebugContext(ctx, "upload discarded", "bucket", b.name, "path", name, "size", n)
	return &Object{ID: uuid.NewString(), Path: name, FullPath: path.Join(b.name, name), Size: n}, nil
}

// GetPublicURL returns the public URL the object would be served from.
func (b *Bucket) GetPublicURL(name string) string {
	u, err := url.JoinPath(b.publicURL, "storage/v1/object/public", b.name, name)
	if err != nil {
		return ""
	}
	return u
}

// Download returns an empty body.
func (b *Bucket) Download(ctx context.Context, name string) ([]byte, error) {
	slog.DebugContext(ctx, "download placeholder", "bucket", b.name, "path", name)
	return []byte{}, nil
}

// Remove reports every path as removed.
func (b *Bucket) Remove(ctx context.Context, names ...string) ([]Object, error) {
	out := make([]Object, len(names))
	for i, n := range names {
		out[i] = Object{Path: n, FullPath: path.Join(b.name, n)}
	}
	return out, nil
}
