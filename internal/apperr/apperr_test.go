package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindStatus(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{KindUnauthenticated, http.StatusUnauthorized},
		{KindForbidden, http.StatusForbidden},
		{KindNotFound, http.StatusNotFound},
		{KindInvalidInput, http.StatusBadRequest},
		{KindConflict, http.StatusConflict},
		{KindUnavailable, http.StatusServiceUnavailable},
		{KindInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.kind.Status())
		})
	}
}

func TestAsFindsWrappedError(t *testing.T) {
	cause := errors.New("boom")
	err := fmt.Errorf("outer: %w", Wrap(KindUnavailable, "database unavailable", cause))

	e := As(err)
	assert.Equal(t, KindUnavailable, e.Kind)
	assert.ErrorIs(t, err, cause)
}

func TestAsDefaultsToInternal(t *testing.T) {
	e := As(errors.New("plain"))
	assert.Equal(t, KindInternal, e.Kind)
	assert.Equal(t, "internal error", e.Message)
}
