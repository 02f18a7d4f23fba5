package store

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/petermazzocco/go-catalog-api/models"
)

const (
	DefaultLimit = 100
	MaxLimit     = 500
)

// Page bounds a listing. Build it with NewPage.
type Page struct {
	Limit  int
	Offset int
}

// NewPage applies the listing limits: a non-positive limit becomes
// DefaultLimit, limits above MaxLimit are capped and negative offsets are 0.
func NewPage(limit, offset int) Page {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return Page{Limit: limit, Offset: offset}
}

// CapImages keeps at most models.MaxProductImages URLs.
func CapImages(urls []string) []string {
	if len(urls) > models.MaxProductImages {
		return urls[:models.MaxProductImages]
	}
	return urls
}

type ProductStore struct{ db *gorm.DB }

func NewProductStore(db *gorm.DB) *ProductStore {
	return &ProductStore{db: db}
}

// withRelations preloads the ordered images and the owning user.
func (s *ProductStore) withRelations(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Preload("Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("position, id")
		}).
		Preload("Owner")
}

// ListVisible returns products with no owner or an active owner.
func (s *ProductStore) ListVisible(ctx context.Context, page Page) ([]models.Product, error) {
	var out []models.Product
	err := s.withRelations(ctx).
		Joins("LEFT JOIN users ON users.id = products.owner_id").
		Where("products.owner_id IS NULL OR users.active = ?", true).
		Order("products.id").
		Limit(page.Limit).Offset(page.Offset).
		Find(&out).Error
	return out, err
}

func (s *ProductStore) ListByOwner(ctx context.Context, ownerID uint, page Page) ([]models.Product, error) {
	var out []models.Product
	err := s.withRelations(ctx).
		Where("owner_id = ?", ownerID).
		Order("id").
		Limit(page.Limit).Offset(page.Offset).
		Find(&out).Error
	return out, err
}

// ListAll ignores owner activity.
func (s *ProductStore) ListAll(ctx context.Context, page Page) ([]models.Product, error) {
	var out []models.Product
	err := s.withRelations(ctx).
		Order("id").
		Limit(page.Limit).Offset(page.Offset).
		Find(&out).Error
	return out, err
}

func (s *ProductStore) ByID(ctx context.Context, id uint) (*models.Product, error) {
	var p models.Product
	if err := s.withRelations(ctx).First(&p, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// OwnerOf returns the owning user id of a product, nil when it has none.
func (s *ProductStore) OwnerOf(ctx context.Context, id uint) (*uint, error) {
	var p models.Product
	if err := s.db.WithContext(ctx).Select("id", "owner_id").First(&p, id).Error; err != nil {
		return nil, notFound(err)
	}
	return p.OwnerID, nil
}

// Create inserts the product row only; images are added with AddImage or
// ReplaceImages.
func (s *ProductStore) Create(ctx context.Context, p *models.Product) error {
	return s.db.WithContext(ctx).Omit(clause.Associations).Create(p).Error
}

func (s *ProductStore) AddImage(ctx context.Context, productID uint, url string, position int) error {
	img := models.ProductImage{ProductID: productID, URL: url, Position: position}
	return s.db.WithContext(ctx).Create(&img).Error
}

func (s *ProductStore) Update(ctx context.Context, id uint, patch ProductPatch) error {
	res := s.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id).Updates(patch.Assignments(time.Now()))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ReplaceImages swaps the whole image list of a product in one transaction.
// Positions follow slice order; URLs past the cap are dropped.
func (s *ProductStore) ReplaceImages(ctx context.Context, productID uint, urls []string) error {
	urls = CapImages(urls)
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", productID).Delete(&models.ProductImage{}).Error; err != nil {
			return err
		}
		if len(urls) == 0 {
			return nil
		}
		rows := make([]models.ProductImage, len(urls))
		for i, u := range urls {
			rows[i] = models.ProductImage{ProductID: productID, URL: u, Position: i}
		}
		return tx.Create(&rows).Error
	})
}

// Delete removes a product. Image rows go with it through the foreign key.
func (s *ProductStore) Delete(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.Product{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
