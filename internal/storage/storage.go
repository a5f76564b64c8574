// Package storage persists uploaded item images. The disk backend is the
// default; an S3-compatible backend covers deployments without persistent
// local volumes.
package storage

import (
	"context"
	"io"
	"net/url"
	"strings"
)

// Store writes, removes and addresses uploaded image files. Remove is
// idempotent: removing a file that is already gone returns nil.
type Store interface {
	Save(ctx context.Context, filename, contentType string, r io.Reader) error
	Remove(ctx context.Context, filename string) error
	URL(filename string) string
}

// cleanURL percent-escapes spaces and normalizes a URL string, leaving the
// input untouched when it does not parse.
func cleanURL(s string) string {
	s = strings.ReplaceAll(s, " ", "%20")
	u, err := url.Parse(s)
	if err != nil {
		return s
	}
	return u.String()
}
