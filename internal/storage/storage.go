// Package storage keeps uploaded files (book PDFs, gallery images, avatars).
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

type Object struct {
	Key  string `json:"key"`
	URL  string `json:"url"`
	Size int64  `json:"size"`
}

type Store interface {
	Save(ctx context.Context, folder, filename string, r io.Reader) (Object, error)
	Delete(ctx context.Context, key string) error
}

// Files is the store used by the HTTP handlers.
var Files Store

func Use(s Store) { Files = s }

// Local writes files under Root and serves them below BaseURL.
type Local struct {
	Root    string
	BaseURL string
}

func NewLocal(root, baseURL string) (*Local, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Local{Root: root, BaseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (l *Local) Save(ctx context.Context, folder, filename string, r io.Reader) (Object, error) {
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}
	key := path.Join(folder, ObjectName(filename))
	full := filepath.Join(l.Root, filepath.FromSlash(key))

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return Object{}, fmt.Errorf("create folder: %w", err)
	}
	dst, err := os.Create(full)
	if err != nil {
		return Object{}, fmt.Errorf("create file: %w", err)
	}
	n, err := io.Copy(dst, r)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(full)
		return Object{}, fmt.Errorf("write file: %w", err)
	}
	return Object{Key: key, URL: l.BaseURL + "/" + key, Size: n}, nil
}

func (l *Local) Delete(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	clean := path.Clean("/" + key)[1:]
	if clean == "" || clean != key {
		return fmt.Errorf("invalid key %q", key)
	}
	err := os.Remove(filepath.Join(l.Root, filepath.FromSlash(clean)))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// ObjectName makes a unique, URL-safe name that keeps the extension.
func ObjectName(filename string) string {
	base := filepath.Base(filename)
	ext := strings.ToLower(filepath.Ext(base))
	stem := slug.Make(strings.TrimSuffix(base, filepath.Ext(base)))
	if stem == "" {
		stem = "file"
	}
	if len(stem) > 60 {
		stem = stem[:60]
	}
	return uuid.NewString() + "-" + stem + ext
}
