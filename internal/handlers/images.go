package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"go.uber.org/zap"

	"github.com/petermazzocco/go-catalog-api/internal/apperr"
	"github.com/petermazzocco/go-catalog-api/internal/policy"
	"github.com/petermazzocco/go-catalog-api/internal/storage"
)

// Multipart parts above this size spill to temp files.
const formMemory = 8 << 20

// UploadImageHandler stores one image sent as the "imagen" part.
func (h *Handlers) UploadImageHandler(w http.ResponseWriter, r *http.Request) {
	files, ok := h.uploadForm(w, r, "imagen", 1)
	if !ok {
		return
	}
	defer r.MultipartForm.RemoveAll()

	url, err := h.storeImage(r.Context(), files[0])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"imagen_url": url})
}

// UploadImagesHandler stores up to eight "imagenes" parts. Files that fail
// validation or storage are skipped.
func (h *Handlers) UploadImagesHandler(w http.ResponseWriter, r *http.Request) {
	files, ok := h.uploadForm(w, r, "imagenes", storage.MaxFiles)
	if !ok {
		return
	}
	defer r.MultipartForm.RemoveAll()

	urls := make([]string, 0, len(files))
	for _, fh := range files {
		url, err := h.storeImage(r.Context(), fh)
		if err != nil {
			h.log.Warn("skipping uploaded file",
				zap.String("filename", fh.Filename),
				zap.Error(err),
			)
			continue
		}
		urls = append(urls, url)
	}
	if len(urls) == 0 {
		h.writeError(w, r, apperr.Invalid("no valid image was processed"))
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"imagenes": urls})
}

// uploadForm authorizes the caller and parses the multipart body. When it
// returns ok the caller owns r.MultipartForm and must remove it.
func (h *Handlers) uploadForm(w http.ResponseWriter, r *http.Request, field string, max int) ([]*multipart.FileHeader, bool) {
	a, ok := h.actor(w, r)
	if !ok {
		return nil, false
	}
	if err := policy.RequireAdmin(a); err != nil {
		h.writeError(w, r, err)
		return nil, false
	}

	r.Body = http.MaxBytesReader(w, r.Body, int64(max)*storage.MaxUploadBytes+formMemory)
	if err := r.ParseMultipartForm(formMemory); err != nil {
		if r.MultipartForm != nil {
			r.MultipartForm.RemoveAll()
		}
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			h.writeError(w, r, apperr.Invalid("upload too large"))
		} else {
			h.writeError(w, r, apperr.Invalid("expected a multipart form"))
		}
		return nil, false
	}

	files := r.MultipartForm.File[field]
	var fail error
	switch {
	case len(files) == 0:
		fail = apperr.Invalid("no file provided")
	case len(files) > max:
		fail = apperr.Invalid(fmt.Sprintf("at most %d images per request", max))
	}
	if fail != nil {
		r.MultipartForm.RemoveAll()
		h.writeError(w, r, fail)
		return nil, false
	}
	return files, true
}

func (h *Handlers) storeImage(ctx context.Context, fh *multipart.FileHeader) (string, error) {
	if fh.Size > storage.MaxUploadBytes {
		return "", apperr.Invalid("image exceeds 5MB")
	}
	if !storage.AllowedName(fh.Filename) {
		return "", apperr.Invalid(storage.ErrUnsupported.Error())
	}

	f, err := fh.Open()
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, "failed to read upload", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, storage.MaxUploadBytes+1))
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, "failed to read upload", err)
	}
	if len(data) > storage.MaxUploadBytes {
		return "", apperr.Invalid("image exceeds 5MB")
	}

	info, err := h.inspector.Inspect(data)
	if err != nil {
		return "", apperr.Invalid(err.Error())
	}

	url, err := h.images.Put(ctx, storage.NewKey(fh.Filename), bytes.NewReader(data), storage.ContentType(info.Format))
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, "failed to upload image", err)
	}
	h.log.Info("image uploaded", zap.String("url", url), zap.Int("bytes", len(data)))
	return url, nil
}
