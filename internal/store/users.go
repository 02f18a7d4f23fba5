package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/petermazzocco/go-catalog-api/models"
)

// OrphanPolicy decides what happens to a deleted user's products.
type OrphanPolicy string

const (
	// OrphanDelete removes the products; their images go with them.
	OrphanDelete OrphanPolicy = "delete"
	// OrphanDetach keeps the products with no owner.
	OrphanDetach OrphanPolicy = "detach"
)

// NormalizeEmail trims and lowercases an address. Emails are stored normalized.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type UserStore struct{ db *gorm.DB }

func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Where("LOWER(email) = ?", NormalizeEmail(email)).First(&u).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (s *UserStore) ByID(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (s *UserStore) List(ctx context.Context) ([]models.User, error) {
	var out []models.User
	if err := s.db.WithContext(ctx).Order("id").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// Create inserts an administrative user. The role is always admin whatever
// the caller set; owners only come from Bootstrap.
func (s *UserStore) Create(ctx context.Context, u *models.User) error {
	u.Email = NormalizeEmail(u.Email)
	u.Role = models.RoleAdmin

	if _, err := s.FindByEmail(ctx, u.Email); err == nil {
		return ErrDuplicateEmail
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}

	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateEmail
		}
		return err
	}
	return nil
}

func (s *UserStore) Update(ctx context.Context, id uint, patch UserPatch) (*models.User, error) {
	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(patch.Assignments(time.Now()))
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.ByID(ctx, id)
}

// Delete removes a user and applies orphans to the user's products in the
// same transaction.
func (s *UserStore) Delete(ctx context.Context, id uint, orphans OrphanPolicy) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		switch orphans {
		case OrphanDetach:
			err = tx.Model(&models.Product{}).Where("owner_id = ?", id).Update("owner_id", nil).Error
		default:
			err = tx.Where("owner_id = ?", id).Delete(&models.Product{}).Error
		}
		if err != nil {
			return err
		}

		res := tx.Delete(&models.User{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// Bootstrap inserts seed when no owner or admin exists yet. It reports
// whether a row was inserted and is safe to run on every start.
func (s *UserStore) Bootstrap(ctx context.Context, seed models.User) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("role IN ?", []string{string(models.RoleOwner), string(models.RoleAdmin)}).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	seed.Email = NormalizeEmail(seed.Email)
	if err := s.db.WithContext(ctx).Create(&seed).Error; err != nil {
		// Another instance won the race.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
