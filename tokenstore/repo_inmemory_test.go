package tokenstore_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	apperrors "github.com/jrsteele09/go-auth-client/internal/errors"
	"github.com/jrsteele09/go-auth-client/tokenstore"
)

func TestInMemoryRepo(t *testing.T) {
	t.Run("empty store returns ErrNoToken", func(t *testing.T) {
		repo := tokenstore.NewInMemoryRepo()
		_, err := repo.Get()
		require.ErrorIs(t, err, apperrors.ErrNoToken)
	})

	t.Run("set and get", func(t *testing.T) {
		repo := tokenstore.NewInMemoryRepo()
		require.NoError(t, repo.Set("AT1", "RT1"))

		pair, err := repo.Get()
		require.NoError(t, err)
		require.Equal(t, "AT1", pair.AccessToken)
		require.Equal(t, "RT1", pair.RefreshToken)
		require.False(t, pair.IssuedAt.IsZero())
	})

	t.Run("missing refresh token tolerated", func(t *testing.T) {
		repo := tokenstore.NewInMemoryRepo()
		require.NoError(t, repo.Set("AT1", ""))

		pair, err := repo.Get()
		require.NoError(t, err)
		require.Empty(t, pair.RefreshToken)
	})

	t.Run("empty access token rejected", func(t *testing.T) {
		repo := tokenstore.NewInMemoryRepo()
		require.Error(t, repo.Set("", "RT1"))
	})

	t.Run("set replaces the whole pair", func(t *testing.T) {
		repo := tokenstore.NewInMemoryRepo()
		require.NoError(t, repo.Set("AT1", "RT1"))
		require.NoError(t, repo.Set("AT2", ""))

		pair, err := repo.Get()
		require.NoError(t, err)
		require.Equal(t, "AT2", pair.AccessToken)
		require.Empty(t, pair.RefreshToken, "stale refresh token must not survive a new pair")
	})

	t.Run("get returns a copy", func(t *testing.T) {
		repo := tokenstore.NewInMemoryRepo()
		require.NoError(t, repo.Set("AT1", "RT1"))

		pair, err := repo.Get()
		require.NoError(t, err)
		pair.AccessToken = "mutated"

		stored, err := repo.Get()
		require.NoError(t, err)
		require.Equal(t, "AT1", stored.AccessToken)
	})

	t.Run("clear", func(t *testing.T) {
		repo := tokenstore.NewInMemoryRepo()
		require.NoError(t, repo.Set("AT1", "RT1"))
		repo.Clear()

		_, err := repo.Get()
		require.ErrorIs(t, err, apperrors.ErrNoToken)
	})

	t.Run("issuedAt stamped at storage time", func(t *testing.T) {
		fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		tokenstore.NowTimeFunc = func() time.Time { return fixed }
		defer func() { tokenstore.NowTimeFunc = time.Now }()

		repo := tokenstore.NewInMemoryRepo()
		require.NoError(t, repo.Set("AT1", "RT1"))

		pair, err := repo.Get()
		require.NoError(t, err)
		require.Equal(t, fixed, pair.IssuedAt)
	})
}
