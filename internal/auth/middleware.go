package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/petermazzocco/go-catalog-api/internal/policy"
)

type ctxKey struct{}

// WithActor stores the authenticated actor on ctx.
func WithActor(ctx context.Context, a policy.Actor) context.Context {
	return context.WithValue(ctx, ctxKey{}, a)
}

// ActorFrom returns the actor set by Middleware.
func ActorFrom(ctx context.Context) (policy.Actor, bool) {
	a, ok := ctx.Value(ctxKey{}).(policy.Actor)
	return a, ok
}

// Middleware requires a bearer token. A missing token is a 401; a token that
// fails verification is a 403. Neither response carries the verify error.
func Middleware(issuer *Issuer, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				deny(w, http.StatusUnauthorized, "access token required")
				return
			}

			actor, err := issuer.Verify(token)
			if err != nil {
				log.Debug("token rejected", zap.String("path", r.URL.Path), zap.Error(err))
				deny(w, http.StatusForbidden, "invalid or expired token")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func deny(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
