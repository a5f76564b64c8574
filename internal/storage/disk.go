package storage

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// thumbPrefix names the downscaled copy written next to each original.
const thumbPrefix = "thumb_"

// DiskStore writes uploaded images to a local directory served under
// /uploads. When thumbnails are enabled, a downscaled copy is written
// best-effort alongside each original.
type DiskStore struct {
	dir        string
	thumbnails bool
	log        *zap.Logger
}

// NewDiskStore creates the upload directory if needed and returns a store
// rooted there.
func NewDiskStore(dir string, thumbnails bool, log *zap.Logger) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskStore{dir: dir, thumbnails: thumbnails, log: log}, nil
}

// Dir returns the upload directory root.
func (s *DiskStore) Dir() string {
	return s.dir
}

// Save writes the file under the store's directory. Thumbnail generation
// failures are logged and never fail the upload.
func (s *DiskStore) Save(ctx context.Context, filename, contentType string, r io.Reader) error {
	path := filepath.Join(s.dir, filename)
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	if s.thumbnails {
		if err := s.writeThumbnail(path, filename); err != nil {
			s.log.Warn("thumbnail generation failed",
				zap.String("filename", filename), zap.Error(err))
		}
	}
	return nil
}

// Remove deletes the file and any thumbnail. Files already absent are
// skipped silently.
func (s *DiskStore) Remove(ctx context.Context, filename string) error {
	// Thumbnails may exist from when generation was enabled.
	os.Remove(filepath.Join(s.dir, thumbPrefix+filename))

	err := os.Remove(filepath.Join(s.dir, filename))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// URL returns the public path the router serves the file under.
func (s *DiskStore) URL(filename string) string {
	return "/uploads/" + filename
}
