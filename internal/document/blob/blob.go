// Package blob stores attachment bytes on local disk. Content types are
// sniffed from the bytes, never trusted from the client, and checked against
// a fixed allow-list before anything touches disk.
package blob

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	dErrors "covergate/pkg/domain-errors"
	"covergate/pkg/platform/sentinel"
)

var allowedTypes = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"application/pdf": ".pdf",
}

// DiskStore keeps blobs as flat files under a single directory.
type DiskStore struct {
	dir     string
	maxSize int64
}

// NewDisk creates the directory if needed.
func NewDisk(dir string, maxSize int64) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &DiskStore{dir: dir, maxSize: maxSize}, nil
}

// Save sniffs, validates and writes the blob. A rejected upload leaves no
// partial file behind.
func (s *DiskStore) Save(r io.Reader) (storedName, contentType string, size int64, err error) {
	header := make([]byte, 512)
	n, err := io.ReadFull(r, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", "", 0, fmt.Errorf("read upload: %w", err)
	}
	header = header[:n]
	if len(header) == 0 {
		return "", "", 0, dErrors.New(dErrors.CodeValidation, "empty file")
	}

	contentType = http.DetectContentType(header)
	ext, ok := allowedTypes[contentType]
	if !ok {
		return "", "", 0, dErrors.New(dErrors.CodeValidation, "file type not allowed; use JPEG, PNG or PDF")
	}

	storedName = uuid.NewString() + ext
	path := filepath.Join(s.dir, storedName)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", "", 0, fmt.Errorf("create blob: %w", err)
	}

	// One byte past the cap distinguishes "at the limit" from "over it".
	written, err := io.Copy(f, io.MultiReader(bytes.NewReader(header), io.LimitReader(r, s.maxSize-int64(len(header))+1)))
	closeErr := f.Close()
	switch {
	case err != nil:
		_ = os.Remove(path)
		return "", "", 0, fmt.Errorf("write blob: %w", err)
	case closeErr != nil:
		_ = os.Remove(path)
		return "", "", 0, fmt.Errorf("close blob: %w", closeErr)
	case written > s.maxSize:
		_ = os.Remove(path)
		return "", "", 0, dErrors.Newf(dErrors.CodeValidation, "file exceeds the %d byte limit", s.maxSize)
	}
	return storedName, contentType, written, nil
}

// Open returns the blob bytes for streaming to a client.
func (s *DiskStore) Open(storedName string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(s.dir, filepath.Base(storedName)))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("blob missing: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("open blob: %w", err)
	}
	return f, nil
}

// Remove deletes the blob. Removing an already-gone blob is not an error.
func (s *DiskStore) Remove(storedName string) error {
	err := os.Remove(filepath.Join(s.dir, filepath.Base(storedName)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove blob: %w", err)
	}
	return nil
}
