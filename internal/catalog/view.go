package catalog

import (
	"encoding/json"
	"net/url"
	"time"

	"github.com/petermazzocco/go-catalog-api/models"
)

// ProductView is the outward representation of a product. The owner's
// phone is only serialized for authenticated views.
type ProductView struct {
	ID          uint      `json:"id"`
	Name        string    `json:"nombre"`
	Description string    `json:"descripcion"`
	Price       float64   `json:"precio"`
	Stock       int       `json:"stock"`
	ImageURL    *string   `json:"imagen_url"`
	Images      []string  `json:"imagenes"`
	OwnerID     *uint     `json:"usuario_id"`
	OwnerName   *string   `json:"usuario_nombre"`
	CreatedAt   time.Time `json:"fecha_creacion"`
	UpdatedAt   time.Time `json:"fecha_actualizacion"`

	includePhone bool
	ownerPhone   *string
}

// OwnerPhone returns the owner's phone and whether this view exposes it.
func (v ProductView) OwnerPhone() (*string, bool) {
	return v.ownerPhone, v.includePhone
}

func (v ProductView) MarshalJSON() ([]byte, error) {
	type base ProductView
	if !v.includePhone {
		return json.Marshal(base(v))
	}
	return json.Marshal(struct {
		base
		OwnerPhone *string `json:"usuario_telefono"`
	}{base(v), v.ownerPhone})
}

// attachView assembles the view of p. includePhone must be false for any
// unauthenticated caller.
func (s *Service) attachView(p *models.Product, includePhone bool) ProductView {
	v := ProductView{
		ID:           p.ID,
		Name:         p.Name,
		Description:  p.Description,
		Price:        p.Price,
		Stock:        p.Stock,
		OwnerID:      p.OwnerID,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
		includePhone: includePhone,
	}
	if p.ImageURL != nil {
		u := rebaseLocalURL(*p.ImageURL, s.opts.PublicBaseURL)
		v.ImageURL = &u
	}
	v.Images = make([]string, 0, len(p.Images))
	for _, u := range p.ImageURLs() {
		v.Images = append(v.Images, rebaseLocalURL(u, s.opts.PublicBaseURL))
	}
	if p.Owner != nil {
		name := p.Owner.Name
		v.OwnerName = &name
		if includePhone {
			v.ownerPhone = p.Owner.Phone
		}
	}
	return v
}

func (s *Service) attachViews(ps []models.Product, includePhone bool) []ProductView {
	out := make([]ProductView, 0, len(ps))
	for i := range ps {
		out = append(out, s.attachView(&ps[i], includePhone))
	}
	return out
}

// rebaseLocalURL moves URLs saved against a development host onto base.
func rebaseLocalURL(raw, base string) string {
	if raw == "" || base == "" {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if h := u.Hostname(); h != "localhost" && h != "127.0.0.1" {
		return raw
	}
	b, err := url.Parse(base)
	if err != nil || b.Host == "" {
		return raw
	}
	u.Scheme, u.Host = b.Scheme, b.Host
	return u.String()
}
