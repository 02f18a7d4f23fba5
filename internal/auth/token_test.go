package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petermazzocco/go-catalog-api/models"
)

func TestIssueVerifyRoundTrip(t *testing.T) {
	iss := NewIssuer("s3cret", time.Hour)
	tok, err := iss.Issue(&models.User{ID: 7, Email: "ana@example.com", Role: models.RoleAdmin})
	require.NoError(t, err)

	actor, err := iss.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, uint(7), actor.ID)
	assert.Equal(t, "ana@example.com", actor.Email)
	assert.Equal(t, models.RoleAdmin, actor.Role)
}

func TestVerifyRejects(t *testing.T) {
	user := &models.User{ID: 1, Email: "o@example.com", Role: models.RoleOwner}

	expired := NewIssuer("s3cret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expiredTok, err := expired.Issue(user)
	require.NoError(t, err)

	otherTok, err := NewIssuer("other", time.Hour).Issue(user)
	require.NoError(t, err)

	iss := NewIssuer("s3cret", time.Hour)
	tests := map[string]string{
		"expired":         expiredTok,
		"wrong signature": otherTok,
		"malformed":       "not.a.token",
		"empty":           "",
	}
	for name, tok := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := iss.Verify(tok)
			assert.ErrorIs(t, err, ErrInvalidCredential)
		})
	}
}
