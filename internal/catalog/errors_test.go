package catalog

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"github.com/petermazzocco/go-catalog-api/internal/apperr"
	"github.com/petermazzocco/go-catalog-api/internal/store"
)

func TestStoreErr(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want apperr.Kind
	}{
		{"not found", store.ErrNotFound, apperr.KindNotFound},
		{"duplicate email", store.ErrDuplicateEmail, apperr.KindConflict},
		{"foreign key", fmt.Errorf("insert: %w", gorm.ErrForeignKeyViolated), apperr.KindConflict},
		{"other", fmt.Errorf("boom"), apperr.KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, apperr.KindOf(storeErr(tt.err, "x")))
		})
	}
}
