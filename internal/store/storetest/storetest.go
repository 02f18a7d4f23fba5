// Package storetest opens throwaway SQLite databases with the production
// schema for tests.
package storetest

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/petermazzocco/go-catalog-api/internal/store"
	"github.com/petermazzocco/go-catalog-api/models"
)

// Open returns a migrated in-memory database that lives for the test.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, store.Migrate(db))
	return db
}

// User inserts a user row as given, bypassing the admin-only rule of
// UserStore.Create. Password hash is a fixed placeholder.
func User(t testing.TB, db *gorm.DB, id uint, role models.Role, active bool, phone string) *models.User {
	t.Helper()

	u := &models.User{
		ID:           id,
		Email:        fmt.Sprintf("user%d@example.com", id),
		PasswordHash: "x",
		Name:         fmt.Sprintf("User %d", id),
		Role:         role,
		Active:       active,
	}
	if phone != "" {
		u.Phone = &phone
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

// Product inserts a product owned by ownerID (nil for none) with images.
func Product(t testing.TB, db *gorm.DB, name string, ownerID *uint, images ...string) *models.Product {
	t.Helper()

	p := &models.Product{Name: name, Price: 10, Stock: 1, OwnerID: ownerID}
	s := store.NewProductStore(db)
	require.NoError(t, db.Omit("Images", "Owner").Create(p).Error)
	if len(images) > 0 {
		require.NoError(t, s.ReplaceImages(t.Context(), p.ID, images))
	}
	return p
}
