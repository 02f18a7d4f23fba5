// Package catalog holds the business rules of the API: who may do what to
// which product or user, input validation and the shape of public views.
// Handlers translate HTTP to calls here; the store translates calls to SQL.
package catalog

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/petermazzocco/go-catalog-api/internal/apperr"
	"github.com/petermazzocco/go-catalog-api/internal/auth"
	"github.com/petermazzocco/go-catalog-api/internal/events"
	"github.com/petermazzocco/go-catalog-api/internal/store"
)

const DefaultWhatsAppBaseURL = "https://wa.me"

type Options struct {
	// Orphans decides what deleting a user does to their products.
	Orphans store.OrphanPolicy
	// WhatsAppBaseURL prefixes generated contact links.
	WhatsAppBaseURL string
	// PublicBaseURL replaces the origin of image URLs stored against
	// localhost. Empty disables the rewrite.
	PublicBaseURL string
}

type Service struct {
	users    *store.UserStore
	products *store.ProductStore
	tokens   *auth.Issuer
	events   events.Publisher
	log      *zap.Logger
	opts     Options
	now      func() time.Time
}

func New(db *gorm.DB, tokens *auth.Issuer, pub events.Publisher, log *zap.Logger, opts Options) *Service {
	if opts.Orphans == "" {
		opts.Orphans = store.OrphanDelete
	}
	if opts.WhatsAppBaseURL == "" {
		opts.WhatsAppBaseURL = DefaultWhatsAppBaseURL
	}
	if pub == nil {
		pub = events.Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		users:    store.NewUserStore(db),
		products: store.NewProductStore(db),
		tokens:   tokens,
		events:   pub,
		log:      log,
		opts:     opts,
		now:      time.Now,
	}
}

// storeErr maps a store failure onto the error kinds clients see.
func storeErr(err error, notFoundMsg string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return apperr.NotFound(notFoundMsg)
	case errors.Is(err, store.ErrDuplicateEmail):
		return apperr.Conflict("email already registered")
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return apperr.Conflict("referenced record no longer exists")
	case store.IsUnavailable(err):
		return apperr.Wrap(apperr.KindUnavailable, "database unavailable", err)
	default:
		return apperr.Wrap(apperr.KindInternal, "internal error", err)
	}
}

// publish sends an event after the change is committed. Broker failures
// never fail the request.
func (s *Service) publish(ctx context.Context, key string, payload map[string]any) {
	payload["at"] = s.now().UTC()
	if err := s.events.PublishJSON(ctx, key, payload); err != nil {
		s.log.Warn("event publish failed", zap.String("key", key), zap.Error(err))
	}
}
