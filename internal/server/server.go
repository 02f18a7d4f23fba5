// Package server assembles the chi router and its middleware stack.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"go.uber.org/zap"

	"github.com/petermazzocco/go-catalog-api/internal/auth"
	"github.com/petermazzocco/go-catalog-api/internal/handlers"
)

type Limit struct {
	Requests int
	Window   time.Duration
}

type Options struct {
	Version string
	Origins []string
	// UploadDir is served under /uploads when set.
	UploadDir      string
	RequestTimeout time.Duration
	General        Limit
	Login          Limit
	Contact        Limit
}

func NewRouter(h *handlers.Handlers, issuer *auth.Issuer, log *zap.Logger, o Options) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   o.Origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.Timeout(o.RequestTimeout))

	r.Get("/health", h.HealthHandler)
	r.Get("/info", h.InfoHandler)
	if o.UploadDir != "" {
		r.Handle("/uploads/*", http.StripPrefix("/uploads/", uploads(o.UploadDir)))
	}

	requireToken := auth.Middleware(issuer, log)

	r.Route("/api/"+o.Version, func(r chi.Router) {
		r.Use(limit(o.General))

		r.With(limit(o.Login)).Post("/auth/login", h.LoginHandler)
		r.With(requireToken).Get("/auth/verify", h.VerifyHandler)

		r.Get("/productos", h.ListProductsHandler)
		r.With(requireToken).Get("/productos/admin", h.ListAdminProductsHandler)
		r.Get("/productos/{id}", h.GetProductHandler)

		r.With(limit(o.Contact)).Post("/whatsapp/generate-link", h.ContactLinkHandler)

		r.Group(func(r chi.Router) {
			r.Use(requireToken)

			r.Post("/productos", h.CreateProductHandler)
			r.Put("/productos/{id}", h.UpdateProductHandler)
			r.Delete("/productos/{id}", h.DeleteProductHandler)

			r.Post("/upload", h.UploadImageHandler)
			r.Post("/upload-multiple", h.UploadImagesHandler)

			r.Get("/usuarios", h.ListUsersHandler)
			r.Post("/usuarios", h.CreateUserHandler)
			r.Get("/usuarios/{id}", h.GetUserHandler)
			r.Put("/usuarios/{id}", h.UpdateUserHandler)
			r.Delete("/usuarios/{id}", h.DeleteUserHandler)
		})
	})

	return r
}

// limit keys by client IP. A zero limit disables it.
func limit(l Limit) func(http.Handler) http.Handler {
	if l.Requests <= 0 || l.Window <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(
		l.Requests,
		l.Window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":"too many requests, try again later"}`))
		}),
	)
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Cross-Origin-Resource-Policy", "cross-origin")
		next.ServeHTTP(w, r)
	})
}

// uploads serves files from dir without directory listings.
func uploads(dir string) http.Handler {
	fs := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || r.URL.Path[len(r.URL.Path)-1] == '/' {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":"file not found"}`))
			return
		}
		fs.ServeHTTP(w, r)
	})
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				log.Info("request",
					zap.String("request_id", middleware.GetReqID(r.Context())),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
