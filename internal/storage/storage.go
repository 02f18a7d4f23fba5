// Package storage puts uploaded product images somewhere a browser can
// fetch them: the local uploads directory or an R2 bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/google/uuid"
)

const (
	MaxUploadBytes = 5 << 20
	MaxFiles       = 8
	MaxDimension   = 10000
)

var (
	ErrNotImage    = errors.New("file is not a valid image")
	ErrTooLarge    = fmt.Errorf("image exceeds %dx%d pixels", MaxDimension, MaxDimension)
	ErrUnsupported = errors.New("only jpeg, jpg, png, gif and webp images are allowed")
)

// ImageStore saves an object and returns its public URL.
type ImageStore interface {
	Put(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
}

// ImageInfo describes a decoded upload.
type ImageInfo struct {
	Format string
	Width  int
	Height int
}

type Inspector interface {
	Inspect(data []byte) (ImageInfo, error)
}

var formats = map[string]string{
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
}

var extensions = map[string]bool{
	".jpeg": true, ".jpg": true, ".png": true, ".gif": true, ".webp": true,
}

// Check rejects formats outside the allow list and oversized images.
func Check(info ImageInfo) error {
	if _, ok := formats[info.Format]; !ok {
		return ErrUnsupported
	}
	if info.Width <= 0 || info.Height <= 0 {
		return ErrNotImage
	}
	if info.Width > MaxDimension || info.Height > MaxDimension {
		return ErrTooLarge
	}
	return nil
}

// AllowedName reports whether filename has an image extension we accept.
func AllowedName(filename string) bool {
	return extensions[strings.ToLower(path.Ext(filename))]
}

func ContentType(format string) string {
	if ct, ok := formats[format]; ok {
		return ct
	}
	return "application/octet-stream"
}

// NewKey returns a unique object name that keeps the upload's extension.
func NewKey(filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	if ext == ".jpeg" {
		ext = ".jpg"
	}
	return "producto-" + uuid.NewString() + ext
}

// CleanURL escapes spaces and normalizes a public object URL.
func CleanURL(urlStr string) string {
	urlStr = strings.ReplaceAll(urlStr, " ", "%20")
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return urlStr
	}
	return parsedURL.String()
}
