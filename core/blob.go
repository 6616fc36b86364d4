package core

import (
	"context"
	"io"
)

// BlobStore stores uploaded media (camp images, exports).
type BlobStore interface {
	// Put stores r under key and returns the public URL of the object.
	Put(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}
