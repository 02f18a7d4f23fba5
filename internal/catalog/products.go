package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/petermazzocco/go-catalog-api/internal/apperr"
	"github.com/petermazzocco/go-catalog-api/internal/events"
	"github.com/petermazzocco/go-catalog-api/internal/policy"
	"github.com/petermazzocco/go-catalog-api/internal/store"
	"github.com/petermazzocco/go-catalog-api/models"
)

const productNotFound = "product not found"

// ProductRequest is the body of a product create or update. A nil field
// was not sent; a field holding null was sent empty.
type ProductRequest struct {
	Name        json.RawMessage `json:"nombre"`
	Description json.RawMessage `json:"descripcion"`
	Price       json.RawMessage `json:"precio"`
	Stock       json.RawMessage `json:"stock"`
	ImageURL    json.RawMessage `json:"imagen_url"`
	Images      json.RawMessage `json:"imagenes"`
}

// productFields is a validated request. Unset options were not sent.
type productFields struct {
	patch     store.ProductPatch
	images    []string
	hasImages bool
}

func parseProduct(req ProductRequest, creating bool) (productFields, error) {
	var (
		f    productFields
		errs problems
	)

	switch {
	case present(req.Name) && !isNull(req.Name):
		name, ok := parseString(req.Name)
		if !ok || name == "" || utf8.RuneCountInString(name) > maxProductName {
			errs.add("nombre", "must be between 1 and 200 characters")
		} else {
			f.patch.Name = store.Some(name)
		}
	case creating || present(req.Name):
		errs.add("nombre", "is required")
	}

	if present(req.Description) {
		desc := ""
		if !isNull(req.Description) {
			var ok bool
			desc, ok = parseString(req.Description)
			if !ok {
				errs.add("descripcion", "must be a string")
			}
		}
		if utf8.RuneCountInString(desc) > maxDescription {
			errs.add("descripcion", "must be at most 2000 characters")
		}
		f.patch.Description = store.Some(desc)
	}

	if creating {
		price, ok := parseFloat(req.Price)
		switch {
		case !ok:
			errs.add("precio", "is required and must be a number")
		case price < 0:
			errs.add("precio", "must not be negative")
		default:
			f.patch.Price = store.Some(price)
		}
	} else if present(req.Price) {
		price := floatOr(req.Price, 0)
		if price < 0 {
			errs.add("precio", "must not be negative")
		}
		f.patch.Price = store.Some(price)
	}

	if creating || present(req.Stock) {
		stock := intOr(req.Stock, 0)
		if stock < 0 {
			errs.add("stock", "must not be negative")
		}
		f.patch.Stock = store.Some(stock)
	}

	if present(req.ImageURL) {
		var u *string
		if !isNull(req.ImageURL) {
			s, ok := parseString(req.ImageURL)
			switch {
			case !ok:
				errs.add("imagen_url", "must be a string")
			case s == "":
			case !validImageURL(s):
				errs.add("imagen_url", "must be an http(s) URL")
			default:
				u = &s
			}
		}
		f.patch.ImageURL = store.Some(u)
	}

	if present(req.Images) {
		f.hasImages = true
		if !isNull(req.Images) {
			urls, ok := parseStrings(req.Images)
			if !ok {
				errs.add("imagenes", "must be an array of URLs")
			}
			for _, u := range urls {
				if u == "" {
					continue
				}
				if !validImageURL(u) {
					errs.add("imagenes", "must contain only http(s) URLs")
					break
				}
				f.images = append(f.images, u)
			}
			f.images = store.CapImages(f.images)
		}
	}

	return f, errs.err()
}

// ListPublic returns the products anyone may see. No phone numbers.
func (s *Service) ListPublic(ctx context.Context, page store.Page) ([]ProductView, error) {
	ps, err := s.products.ListVisible(ctx, page)
	if err != nil {
		return nil, storeErr(err, productNotFound)
	}
	return s.attachViews(ps, false), nil
}

// ListForActor returns an admin's own products, or every product for the owner.
func (s *Service) ListForActor(ctx context.Context, actor policy.Actor, page store.Page) ([]ProductView, error) {
	if err := policy.RequireAdmin(actor); err != nil {
		return nil, err
	}
	var (
		ps  []models.Product
		err error
	)
	if actor.IsOwner() {
		ps, err = s.products.ListAll(ctx, page)
	} else {
		ps, err = s.products.ListByOwner(ctx, actor.ID, page)
	}
	if err != nil {
		return nil, storeErr(err, productNotFound)
	}
	return s.attachViews(ps, true), nil
}

func (s *Service) GetProduct(ctx context.Context, id uint) (ProductView, error) {
	p, err := s.products.ByID(ctx, id)
	if err != nil {
		return ProductView{}, storeErr(err, productNotFound)
	}
	return s.attachView(p, false), nil
}

// CreateProduct inserts a product owned by actor. An image that fails to
// insert is logged and skipped; the product is kept.
func (s *Service) CreateProduct(ctx context.Context, actor policy.Actor, req ProductRequest) (ProductView, error) {
	if err := policy.RequireAdmin(actor); err != nil {
		return ProductView{}, err
	}
	// Tokens outlive deleted accounts.
	if _, err := s.users.ByID(ctx, actor.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ProductView{}, apperr.Unauthenticated("account no longer exists")
		}
		return ProductView{}, storeErr(err, userNotFound)
	}
	f, err := parseProduct(req, true)
	if err != nil {
		return ProductView{}, err
	}

	ownerID := actor.ID
	p := &models.Product{OwnerID: &ownerID}
	p.Name, _ = f.patch.Name.Get()
	p.Description, _ = f.patch.Description.Get()
	p.Price, _ = f.patch.Price.Get()
	p.Stock, _ = f.patch.Stock.Get()
	p.ImageURL, _ = f.patch.ImageURL.Get()
	if err := s.products.Create(ctx, p); err != nil {
		return ProductView{}, storeErr(err, productNotFound)
	}

	for i, u := range f.images {
		if err := s.products.AddImage(ctx, p.ID, u, i); err != nil {
			s.log.Warn("skipping product image",
				zap.Uint("product_id", p.ID),
				zap.Int("position", i),
				zap.Error(err),
			)
		}
	}

	created, err := s.products.ByID(ctx, p.ID)
	if err != nil {
		return ProductView{}, storeErr(err, productNotFound)
	}
	s.publish(ctx, events.ProductCreated, map[string]any{"product_id": p.ID, "owner_id": ownerID})
	return s.attachView(created, true), nil
}

// authorizeProduct resolves the product's owner and applies canMutateProduct.
func (s *Service) authorizeProduct(ctx context.Context, actor policy.Actor, id uint) error {
	if err := policy.RequireAdmin(actor); err != nil {
		return err
	}
	ownerID, err := s.products.OwnerOf(ctx, id)
	if err != nil {
		return storeErr(err, productNotFound)
	}
	return policy.RequireProductMutation(actor, ownerID)
}

// UpdateProduct changes only the fields present in req. A present image
// list replaces the stored one.
func (s *Service) UpdateProduct(ctx context.Context, actor policy.Actor, id uint, req ProductRequest) (ProductView, error) {
	if err := s.authorizeProduct(ctx, actor, id); err != nil {
		return ProductView{}, err
	}
	f, err := parseProduct(req, false)
	if err != nil {
		return ProductView{}, err
	}
	if f.patch.Empty() && !f.hasImages {
		return ProductView{}, apperr.Invalid("no fields to update")
	}

	if err := s.products.Update(ctx, id, f.patch); err != nil {
		return ProductView{}, storeErr(err, productNotFound)
	}
	if f.hasImages {
		if err := s.products.ReplaceImages(ctx, id, f.images); err != nil {
			return ProductView{}, storeErr(err, productNotFound)
		}
	}

	updated, err := s.products.ByID(ctx, id)
	if err != nil {
		return ProductView{}, storeErr(err, productNotFound)
	}
	s.publish(ctx, events.ProductUpdated, map[string]any{"product_id": id, "actor_id": actor.ID})
	return s.attachView(updated, true), nil
}

func (s *Service) DeleteProduct(ctx context.Context, actor policy.Actor, id uint) error {
	if err := s.authorizeProduct(ctx, actor, id); err != nil {
		return err
	}
	if err := s.products.Delete(ctx, id); err != nil {
		return storeErr(err, productNotFound)
	}
	s.publish(ctx, events.ProductDeleted, map[string]any{"product_id": id, "actor_id": actor.ID})
	return nil
}
