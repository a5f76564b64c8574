// Package upload handles multipart image intake for item mutations.
package upload

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"fleamarket/internal/storage"
)

// FieldName is the multipart field carrying item images.
const FieldName = "images"

// MaxFiles caps the number of images per request.
const MaxFiles = 5

var (
	ErrTooManyFiles = errors.New("too many image files (max 5)")
	ErrNotImage     = errors.New("only image files are allowed (jpeg, jpg, png, gif)")
)

var allowedExts = map[string]bool{
	".jpeg": true,
	".jpg":  true,
	".png":  true,
	".gif":  true,
}

var allowedMIMEs = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/gif":  true,
}

// SavedFile describes one stored upload.
type SavedFile struct {
	URL      string
	Filename string
}

// ParseForm parses the request body as multipart or urlencoded form data,
// keeping at most maxMemory bytes of file content in memory.
func ParseForm(r *http.Request, maxMemory int64) error {
	err := r.ParseMultipartForm(maxMemory)
	if errors.Is(err, http.ErrNotMultipart) {
		return r.ParseForm()
	}
	return err
}

// Validation reports whether err is a client-side upload violation rather
// than a storage failure.
func Validation(err error) bool {
	return errors.Is(err, ErrTooManyFiles) || errors.Is(err, ErrNotImage)
}

// Images validates every file of the images field and writes them to the
// store under randomized names. All files are checked before anything is
// written, so a rejected request stores nothing.
func Images(ctx context.Context, r *http.Request, store storage.Store) ([]SavedFile, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	headers := r.MultipartForm.File[FieldName]
	if len(headers) == 0 {
		return nil, nil
	}
	if len(headers) > MaxFiles {
		return nil, ErrTooManyFiles
	}
	for _, fh := range headers {
		ext := strings.ToLower(filepath.Ext(fh.Filename))
		if !allowedExts[ext] || !allowedMIMEs[fh.Header.Get("Content-Type")] {
			return nil, ErrNotImage
		}
	}

	saved := make([]SavedFile, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return saved, err
		}
		name := uuid.New().String() + strings.ToLower(filepath.Ext(fh.Filename))
		err = store.Save(ctx, name, fh.Header.Get("Content-Type"), f)
		f.Close()
		if err != nil {
			return saved, err
		}
		saved = append(saved, SavedFile{URL: store.URL(name), Filename: name})
	}
	return saved, nil
}
