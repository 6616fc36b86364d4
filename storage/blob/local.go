package blob

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/trezcool/summercamps/core"
)

// LocalStore keeps blobs as files under root. They are served from baseURL.
type LocalStore struct {
	root    string
	baseURL string
}

var _ core.BlobStore = (*LocalStore)(nil) // interface compliance check

func NewLocalStore(root, baseURL string) (*LocalStore, error) {
	if root == "" {
		root = filepath.Join("data", "media")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating media dir")
	}
	return &LocalStore{root: root, baseURL: baseURL}, nil
}

func (s *LocalStore) Root() string { return s.root }

func (s *LocalStore) Put(ctx context.Context, key string, r io.Reader, _ string) (string, error) {
	key, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	fp := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(fp), 0o755); err != nil {
		return "", errors.Wrap(err, "creating blob dir")
	}

	// write to a temp file first so readers never see a partial blob
	tmp, err := os.CreateTemp(filepath.Dir(fp), ".upload-*")
	if err != nil {
		return "", errors.Wrap(err, "creating blob")
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		return "", errors.Wrap(err, "writing blob")
	}
	if err := tmp.Close(); err != nil {
		return "", errors.Wrap(err, "writing blob")
	}
	if err := os.Rename(tmp.Name(), fp); err != nil {
		return "", errors.Wrap(err, "writing blob")
	}
	return joinURL(s.baseURL, key), nil
}

// Delete removes the blob; deleting a missing blob is not an error.
func (s *LocalStore) Delete(_ context.Context, key string) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(s.root, filepath.FromSlash(key)))
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "deleting blob")
	}
	return nil
}
