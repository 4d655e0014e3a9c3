package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FSStore keeps objects as plain files below Root.
// Objects are served back by the HTTP layer under BaseURL.
type FSStore struct {
	Root    string
	BaseURL string // e.g. https://host/objects
}

// NewFSStore creates the root directory if needed.
func NewFSStore(root, baseURL string) (*FSStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &FSStore{Root: root, BaseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (s *FSStore) fullPath(p string) (string, error) {
	clean, err := CleanPath(p)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.Root, filepath.FromSlash(clean)), nil
}

// Put writes the object. Existing objects are never overwritten.
func (s *FSStore) Put(ctx context.Context, p string, data []byte, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := s.fullPath(p)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("create object dir: %w", err)
	}
	f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return ErrObjectExists
		}
		return fmt.Errorf("create object: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(full)
		return fmt.Errorf("write object: %w", err)
	}
	return f.Close()
}

// Get reads the object; the content type is derived from the extension.
func (s *FSStore) Get(ctx context.Context, p string) (Object, error) {
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}
	full, err := s.fullPath(p)
	if err != nil {
		return Object{}, err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Object{}, ErrObjectNotFound
		}
		return Object{}, fmt.Errorf("read object: %w", err)
	}
	return Object{Data: data, ContentType: ContentTypeForPath(p)}, nil
}

func (s *FSStore) PublicURL(p string) string {
	return s.BaseURL + "/" + strings.TrimLeft(p, "/")
}
