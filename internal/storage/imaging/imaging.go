// Package imaging decodes upload headers with libvips.
package imaging

import (
	"github.com/h2non/bimg"

	"github.com/petermazzocco/go-catalog-api/internal/storage"
)

type Bimg struct{}

// Inspect reads the format and pixel size of data. Anything libvips
// cannot decode is storage.ErrNotImage.
func (Bimg) Inspect(data []byte) (storage.ImageInfo, error) {
	img := bimg.NewImage(data)
	format := img.Type()
	if format == "" || format == "unknown" {
		return storage.ImageInfo{}, storage.ErrNotImage
	}
	size, err := img.Size()
	if err != nil {
		return storage.ImageInfo{}, storage.ErrNotImage
	}
	info := storage.ImageInfo{Format: format, Width: size.Width, Height: size.Height}
	return info, storage.Check(info)
}
