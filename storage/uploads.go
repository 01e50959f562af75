package storage

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Uploads maps between files in the upload directory and the public paths
// recorded on clips and jobs.
type Uploads struct {
	Dir    string
	Prefix string
}

// Save stores r under a collision-free name that keeps the original extension
// and returns its public path.
func (u Uploads) Save(r io.Reader, originalName string) (string, error) {
	if err := os.MkdirAll(u.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload directory: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(originalName))
	name := uuid.New().String() + ext
	dst, err := os.Create(filepath.Join(u.Dir, name))
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, r); err != nil {
		return "", fmt.Errorf("save upload: %w", err)
	}
	return path.Join(u.Prefix, name), nil
}

// LocalPath resolves a public path to a file in the upload directory. It
// reports false for paths outside the public prefix.
func (u Uploads) LocalPath(public string) (string, bool) {
	prefix := strings.TrimSuffix(u.Prefix, "/") + "/"
	if u.Prefix == "" || !strings.HasPrefix(public, prefix) {
		return "", false
	}
	rel := strings.TrimPrefix(path.Clean("/"+strings.TrimPrefix(public, prefix)), "/")
	if rel == "" {
		return "", false
	}
	return filepath.Join(u.Dir, filepath.FromSlash(rel)), true
}
