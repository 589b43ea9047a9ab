package pendinglogin_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	apperrors "github.com/jrsteele09/go-auth-client/internal/errors"
	"github.com/jrsteele09/go-auth-client/pendinglogin"
	"github.com/jrsteele09/go-auth-client/pkce"
)

func TestInMemoryRepo_TakeForCallback(t *testing.T) {
	params := &pkce.Params{Verifier: "verifier-1", Challenge: "challenge-1", State: "state-1"}

	t.Run("returns verifier on matching state", func(t *testing.T) {
		repo := pendinglogin.NewInMemoryRepo()
		require.NoError(t, repo.Save(params))

		verifier, err := repo.TakeForCallback("state-1")
		require.NoError(t, err)
		require.Equal(t, "verifier-1", verifier)
	})

	t.Run("state mismatch", func(t *testing.T) {
		repo := pendinglogin.NewInMemoryRepo()
		require.NoError(t, repo.Save(params))

		_, err := repo.TakeForCallback("forged-state")
		require.ErrorIs(t, err, apperrors.ErrStateMismatch)

		// Entry is consumed even on mismatch
		_, err = repo.TakeForCallback("state-1")
		require.ErrorIs(t, err, apperrors.ErrMissingPendingLogin)
	})

	t.Run("single use", func(t *testing.T) {
		repo := pendinglogin.NewInMemoryRepo()
		require.NoError(t, repo.Save(params))

		_, err := repo.TakeForCallback("state-1")
		require.NoError(t, err)

		_, err = repo.TakeForCallback("state-1")
		require.ErrorIs(t, err, apperrors.ErrMissingPendingLogin)
	})

	t.Run("empty repo", func(t *testing.T) {
		repo := pendinglogin.NewInMemoryRepo()
		_, err := repo.TakeForCallback("state-1")
		require.ErrorIs(t, err, apperrors.ErrMissingPendingLogin)
	})
}

func TestInMemoryRepo_Save(t *testing.T) {
	t.Run("overwrites previous attempt", func(t *testing.T) {
		repo := pendinglogin.NewInMemoryRepo()
		require.NoError(t, repo.Save(&pkce.Params{Verifier: "old", State: "old-state"}))
		require.NoError(t, repo.Save(&pkce.Params{Verifier: "new", State: "new-state"}))

		_, err := repo.TakeForCallback("old-state")
		require.ErrorIs(t, err, apperrors.ErrStateMismatch)
	})

	t.Run("rejects nil params", func(t *testing.T) {
		repo := pendinglogin.NewInMemoryRepo()
		require.Error(t, repo.Save(nil))
	})

	t.Run("rejects empty verifier", func(t *testing.T) {
		repo := pendinglogin.NewInMemoryRepo()
		require.Error(t, repo.Save(&pkce.Params{State: "state-only"}))
	})
}

func TestInMemoryRepo_Clear(t *testing.T) {
	repo := pendinglogin.NewInMemoryRepo()
	require.NoError(t, repo.Save(&pkce.Params{Verifier: "v", State: "s"}))
	repo.Clear()

	_, err := repo.TakeForCallback("s")
	require.ErrorIs(t, err, apperrors.ErrMissingPendingLogin)
}
