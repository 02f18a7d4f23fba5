package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/petermazzocco/go-catalog-api/internal/apperr"
)

type ContactRequest struct {
	ProductID json.RawMessage `json:"producto_id"`
	Message   *string         `json:"mensaje"`
}

// ContactLink builds a WhatsApp deep link to the product's owner. The
// phone number only ever appears inside the returned URL.
func (s *Service) ContactLink(ctx context.Context, req ContactRequest) (string, error) {
	var errs problems
	id, ok := parseWholeInt(req.ProductID)
	if !ok || id <= 0 {
		errs.add("producto_id", "must be a positive integer")
	}
	msg := ""
	if req.Message != nil {
		msg = strings.TrimSpace(*req.Message)
		if utf8.RuneCountInString(msg) > maxContactText {
			errs.add("mensaje", "must be at most 500 characters")
		}
	}
	if err := errs.err(); err != nil {
		return "", err
	}

	p, err := s.products.ByID(ctx, uint(id))
	if err != nil {
		return "", storeErr(err, productNotFound)
	}
	if p.Owner != nil && !p.Owner.Active {
		return "", apperr.Forbidden("seller is not available")
	}
	phone := ""
	if p.Owner != nil && p.Owner.Phone != nil {
		phone = digits(*p.Owner.Phone)
	}
	if phone == "" {
		return "", apperr.Invalid("seller has no contact phone configured")
	}

	if msg == "" {
		msg = fmt.Sprintf("Hola, me interesa el producto: %s - $%.2f", p.Name, p.Price)
	}
	text := strings.ReplaceAll(url.QueryEscape(msg), "+", "%20")
	return strings.TrimRight(s.opts.WhatsAppBaseURL, "/") + "/" + phone + "?text=" + text, nil
}

func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
