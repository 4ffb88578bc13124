package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore writes uploads to a fixed directory on disk. The server
// serves this directory statically, so the returned reference doubles
// as the public URL path.
type LocalStore struct {
	dir string
}

// NewLocalStore creates the upload directory if needed
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStore{dir: dir}, nil
}

// Save writes the upload under its original basename. The name is
// reduced to a basename first so a crafted filename cannot escape the
// upload directory.
func (s *LocalStore) Save(ctx context.Context, filename, contentType string, body io.Reader) (string, error) {
	name := sanitizeFilename(filename)
	if name == "" {
		return "", fmt.Errorf("invalid filename %q", filename)
	}

	f, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, body); err != nil {
		return "", fmt.Errorf("write upload file: %w", err)
	}

	return "/images/" + name, nil
}

// Delete removes a stored file by its reference
func (s *LocalStore) Delete(ctx context.Context, reference string) error {
	name := sanitizeFilename(strings.TrimPrefix(reference, "/images/"))
	if name == "" {
		return fmt.Errorf("invalid reference %q", reference)
	}
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Dir returns the directory uploads are written to
func (s *LocalStore) Dir() string {
	return s.dir
}

// sanitizeFilename strips any path components from an uploaded filename
func sanitizeFilename(filename string) string {
	name := filepath.Base(filepath.Clean(filename))
	if name == "." || name == ".." || name == string(filepath.Separator) {
		return ""
	}
	return name
}
