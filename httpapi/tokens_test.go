package httpapi

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library-lending/library"
)

const testSecret = "0123456789abcdef-test-secret"

func TestTokenRoundTrip(t *testing.T) {
	ti, err := NewTokenIssuer(testSecret, time.Hour)
	require.NoError(t, err)

	token, expires, err := ti.Issue(&library.User{ID: 42, Role: library.RoleAdmin})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, 5*time.Second)

	rc, err := ti.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, library.RequestContext{UserID: 42, Role: library.RoleAdmin}, rc)
}

func TestTokenRejections(t *testing.T) {
	ti, err := NewTokenIssuer(testSecret, time.Hour)
	require.NoError(t, err)

	issuedAt := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	ti.now = func() time.Time { return issuedAt }
	token, _, err := ti.Issue(&library.User{ID: 1, Role: library.RoleUser})
	require.NoError(t, err)

	t.Run("expired", func(t *testing.T) {
		later := *ti
		later.now = func() time.Time { return issuedAt.Add(2 * time.Hour) }
		_, err := later.Parse(token)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("other secret", func(t *testing.T) {
		other, err := NewTokenIssuer("another-secret-of-enough-length", time.Hour)
		require.NoError(t, err)
		other.now = ti.now
		_, err = other.Parse(token)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := ti.Parse("not-a-token")
		require.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestNewTokenIssuerRequiresSecret(t *testing.T) {
	_, err := NewTokenIssuer("short", time.Hour)
	require.Error(t, err)
}
