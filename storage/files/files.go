package files

import (
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// LocalStorage stores uploads on the local filesystem under a root
// directory, namespaced by category. Stored names are fresh UUIDs; the
// returned path is opaque to callers.
type LocalStorage struct {
	root string
}

func NewLocalStorage(root string) (*LocalStorage, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, errors.Wrap(err, "creating uploads root")
	}
	return &LocalStorage{root: root}, nil
}

func (s *LocalStorage) Store(r io.Reader, filename, category string) (string, error) {
	dir := filepath.Join(s.root, category)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errors.Wrap(err, "creating uploads dir")
	}

	name := uuid.New().String() + filepath.Ext(filename)
	dst, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return "", errors.Wrap(err, "creating upload file")
	}
	defer dst.Close()

	if _, err = io.Copy(dst, r); err != nil {
		return "", errors.Wrap(err, "writing upload file")
	}
	return "/" + category + "/" + name, nil
}
