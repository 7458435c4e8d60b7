package hospital

import (
	"errors"
	"io/fs"
	"os"
)

// FileStore removes generated documents such as prescription PDFs
type FileStore interface {
	Exists(path string) bool
	Remove(path string) error
}

// LocalFileStore works on the local filesystem
type LocalFileStore struct{}

func (LocalFileStore) Exists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

func (LocalFileStore) Remove(path string) error {
	err := os.Remove(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
