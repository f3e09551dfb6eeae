// Package storage keeps uploaded media files under a local media root.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/medtrack/medtrack-go/internal/model"
)

var ErrInvalidPath = errors.New("media path escapes the media root")

// newImageToken names stored images; tests replace it for stable paths.
var newImageToken = func() string { return uuid.NewString() }

// DrugImagePath returns the media-relative path for an uploaded drug image:
// uploads/drug/<uuid><ext>, where ext is taken from the original filename.
func DrugImagePath(_ *model.Drug, filename string) string {
	ext := filepath.Ext(path.Base(filepath.ToSlash(filename)))
	return path.Join("uploads", "drug", newImageToken()+ext)
}

// LocalStore writes media files below root.
type LocalStore struct {
	root string
}

// NewLocalStore creates a LocalStore rooted at root.
func NewLocalStore(root string) *LocalStore {
	return &LocalStore{root: root}
}

// Root returns the directory files are stored under.
func (s *LocalStore) Root() string {
	return s.root
}

// Save writes data to the slash-separated name relative to the media root,
// creating parent directories as needed.
func (s *LocalStore) Save(ctx context.Context, name string, data []byte) error {
	full, err := s.resolve(name)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("creating media directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), ".upload-*")
	if err != nil {
		return fmt.Errorf("creating media file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing media file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing media file: %w", err)
	}

	return os.Rename(tmp.Name(), full)
}

// Remove deletes a stored file. A missing file is not an error.
func (s *LocalStore) Remove(name string) error {
	full, err := s.resolve(name)
	if err != nil {
		return err
	}

	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *LocalStore) resolve(name string) (string, error) {
	rel := filepath.FromSlash(name)
	if name == "" || !filepath.IsLocal(rel) {
		return "", ErrInvalidPath
	}
	return filepath.Join(s.root, rel), nil
}
