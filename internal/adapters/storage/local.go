package storage

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrFileTooLarge        = errors.New("file exceeds the maximum upload size")
	ErrUnsupportedFileType = errors.New("unsupported file type")
)

// allowedExtensions lists accepted supporting-document types
var allowedExtensions = map[string]bool{
	".pdf":  true,
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// StoredFile is a saved upload
type StoredFile struct {
	Path         string
	OriginalName string
}

// LocalStorage keeps uploads on the local filesystem under a base directory
type LocalStorage struct {
	baseDir  string
	maxBytes int64
}

// NewLocalStorage creates the base directory if needed
func NewLocalStorage(baseDir string, maxSizeMB int) (*LocalStorage, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return &LocalStorage{
		baseDir:  baseDir,
		maxBytes: int64(maxSizeMB) * 1024 * 1024,
	}, nil
}

// Validate checks size and extension before anything is written
func (s *LocalStorage) Validate(fh *multipart.FileHeader) error {
	if s.maxBytes > 0 && fh.Size > s.maxBytes {
		return fmt.Errorf("%w: %s", ErrFileTooLarge, fh.Filename)
	}
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if !allowedExtensions[ext] {
		return fmt.Errorf("%w: %s", ErrUnsupportedFileType, fh.Filename)
	}
	return nil
}

// Save writes the upload under a random name inside dir and returns the
// slash separated path relative to the base directory
func (s *LocalStorage) Save(dir string, fh *multipart.FileHeader) (*StoredFile, error) {
	if err := s.Validate(fh); err != nil {
		return nil, err
	}

	src, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	if err := os.MkdirAll(filepath.Join(s.baseDir, dir), 0o755); err != nil {
		return nil, err
	}

	name := uuid.New().String() + strings.ToLower(filepath.Ext(fh.Filename))
	rel := path.Join(dir, name)

	if err := writeFile(filepath.Join(s.baseDir, filepath.FromSlash(rel)), src); err != nil {
		return nil, err
	}

	return &StoredFile{Path: rel, OriginalName: filepath.Base(fh.Filename)}, nil
}

// writeFile copies src into a new file at full. Nothing is left behind when
// the copy or the close fails.
func writeFile(full string, src io.Reader) error {
	dst, err := os.Create(full)
	if err != nil {
		return err
	}

	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		_ = os.Remove(full)
		return err
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(full)
		return err
	}
	return nil
}

// Remove deletes stored files, ignoring ones already gone
func (s *LocalStorage) Remove(paths ...string) {
	for _, p := range paths {
		_ = os.Remove(filepath.Join(s.baseDir, filepath.FromSlash(p)))
	}
}

// BaseDir returns the directory uploads are served from
func (s *LocalStorage) BaseDir() string {
	return s.baseDir
}
