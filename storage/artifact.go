package storage

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ArtifactStore persists job output files and returns the path or URL that
// clients use to fetch them.
type ArtifactStore interface {
	Put(ctx context.Context, name string, r io.Reader, size int64) (string, error)
	Kind() string
}

// LocalStore keeps artifacts in a directory served under a public prefix.
type LocalStore struct {
	dir    string
	prefix string
}

var _ ArtifactStore = (*LocalStore)(nil)

// NewLocalStore creates dir if needed. prefix is the URL path dir is served at.
func NewLocalStore(dir, prefix string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact directory %q: %w", dir, err)
	}
	return &LocalStore{dir: dir, prefix: prefix}, nil
}

func (s *LocalStore) Kind() string { return "local" }

// Put writes the artifact through a temp file so readers never see a partial file.
func (s *LocalStore) Put(ctx context.Context, name string, r io.Reader, size int64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if name == "" || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("invalid artifact name %q", name)
	}
	tmp, err := os.CreateTemp(s.dir, ".artifact-*")
	if err != nil {
		return "", fmt.Errorf("create temp artifact: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write artifact %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close artifact %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		return "", fmt.Errorf("store artifact %s: %w", name, err)
	}
	return path.Join(s.prefix, name), nil
}

// ContentType guesses the MIME type of an artifact from its name.
func ContentType(name string) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); ct != "" {
		return ct
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".wav":
		return "audio/wav"
	case ".mp3":
		return "audio/mpeg"
	case ".flac":
		return "audio/flac"
	}
	return "application/octet-stream"
}
