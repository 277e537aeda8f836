package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"nearbuy/internal/domain/service"
)

// LocalStore writes uploads under a directory that the API serves statically.
type LocalStore struct {
	dir     string
	baseURL string
}

var _ service.FileUploadService = (*LocalStore)(nil)

func NewLocalStore(dir, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return &LocalStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (s *LocalStore) Dir() string {
	return s.dir
}

func (s *LocalStore) UploadFile(_ context.Context, file io.Reader, _ string, objectName string) (string, error) {
	dst, rel, err := s.pathFor(objectName)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("failed to create upload dir: %w", err)
	}

	out, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	if _, err := io.Copy(out, file); err != nil {
		out.Close()
		os.Remove(dst)
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("failed to close file: %w", err)
	}

	return s.baseURL + "/" + rel, nil
}

func (s *LocalStore) DeleteFile(_ context.Context, fileURL string) error {
	if !strings.HasPrefix(fileURL, s.baseURL+"/") {
		return fmt.Errorf("URL %q is not a local upload", fileURL)
	}
	dst, _, err := s.pathFor(strings.TrimPrefix(fileURL, s.baseURL+"/"))
	if err != nil {
		return err
	}
	if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func (s *LocalStore) Close() error {
	return nil
}

// pathFor rejects object names that would escape the upload directory.
func (s *LocalStore) pathFor(objectName string) (string, string, error) {
	rel := strings.TrimPrefix(path.Clean("/"+filepath.ToSlash(objectName)), "/")
	if rel == "" {
		return "", "", fmt.Errorf("empty object name")
	}
	return filepath.Join(s.dir, filepath.FromSlash(rel)), rel, nil
}
