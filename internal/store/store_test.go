package store_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/petermazzocco/go-catalog-api/internal/store"
)

var testNow = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func TestIsUnavailable(t *testing.T) {
	assert.True(t, store.IsUnavailable(fmt.Errorf("query: %w", context.DeadlineExceeded)))
	assert.True(t, store.IsUnavailable(&pgconn.ConnectError{}))
	assert.False(t, store.IsUnavailable(errors.New("syntax error")))
	assert.False(t, store.IsUnavailable(nil))
	assert.False(t, store.IsUnavailable(store.ErrNotFound))
}
