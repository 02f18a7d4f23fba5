// Package handlers adapts HTTP requests to the catalog service.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/petermazzocco/go-catalog-api/internal/apperr"
	"github.com/petermazzocco/go-catalog-api/internal/auth"
	"github.com/petermazzocco/go-catalog-api/internal/catalog"
	"github.com/petermazzocco/go-catalog-api/internal/policy"
	"github.com/petermazzocco/go-catalog-api/internal/storage"
	"github.com/petermazzocco/go-catalog-api/internal/store"
)

const maxJSONBody = 1 << 20

type Deps struct {
	Service    *catalog.Service
	Images     storage.ImageStore
	Inspector  storage.Inspector
	Ping       func(context.Context) error
	Logger     *zap.Logger
	Production bool
	Version    string
}

type Handlers struct {
	svc        *catalog.Service
	images     storage.ImageStore
	inspector  storage.Inspector
	ping       func(context.Context) error
	log        *zap.Logger
	production bool
	version    string
}

func New(d Deps) *Handlers {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return &Handlers{
		svc:        d.Service,
		images:     d.Images,
		inspector:  d.Inspector,
		ping:       d.Ping,
		log:        d.Logger,
		production: d.Production,
		version:    d.Version,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error   string              `json:"error"`
	Details []apperr.FieldError `json:"details,omitempty"`
	Detail  string              `json:"detail,omitempty"`
}

// writeError logs server-side failures in full and sends clients the
// generic message. The cause is included only outside production.
func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	e := apperr.As(err)
	body := errorBody{Error: e.Message, Details: e.Details}

	if status := e.Kind.Status(); status >= http.StatusInternalServerError {
		h.log.Error("request failed",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Stringer("kind", e.Kind),
			zap.Error(err),
		)
		if !h.production && e.Err != nil {
			body.Detail = e.Err.Error()
		}
	}
	writeJSON(w, e.Kind.Status(), body)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return apperr.Invalid("request body too large")
		}
		return apperr.Invalid("malformed JSON body")
	}
	return nil
}

func idParam(r *http.Request) (uint, error) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 32)
	if err != nil || id == 0 {
		return 0, apperr.Invalid("invalid id")
	}
	return uint(id), nil
}

// pageParam reads limit and offset. Unparsable values fall back to defaults.
func pageParam(r *http.Request) store.Page {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	return store.NewPage(limit, offset)
}

// actor returns the caller set by auth.Middleware. Routes without the
// middleware never call it.
func (h *Handlers) actor(w http.ResponseWriter, r *http.Request) (policy.Actor, bool) {
	a, ok := auth.ActorFrom(r.Context())
	if !ok {
		h.writeError(w, r, apperr.Unauthenticated("access token required"))
	}
	return a, ok
}
