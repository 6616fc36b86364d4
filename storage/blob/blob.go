// Package blob stores uploaded media on the local filesystem or in an S3 bucket.
package blob

import (
	"context"
	"path"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/summercamps/core"
)

// Drivers
const (
	DriverLocal = "local"
	DriverS3    = "s3"
)

var ErrInvalidKey = errors.New("invalid blob key")

// New returns the store selected by conf.Blob.Driver.
func New(ctx context.Context, conf *core.Config) (core.BlobStore, error) {
	switch conf.Blob.Driver {
	case "", DriverLocal:
		return NewLocalStore(conf.Blob.Dir, conf.Blob.BaseURL)
	case DriverS3:
		return NewS3Store(ctx, conf.Blob.S3)
	}
	return nil, errors.Errorf("unknown blob driver %q", conf.Blob.Driver)
}

// cleanKey rejects keys that are empty, absolute or that climb out of the root.
func cleanKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "..") {
		return "", errors.Wrap(ErrInvalidKey, key)
	}
	return path.Clean(key), nil
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + key
}
