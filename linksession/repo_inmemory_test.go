package linksession_test

import (
	"testing"

	"github.com/jrsteele09/go-link-server/internal/errors"
	"github.com/jrsteele09/go-link-server/linksession"
	"github.com/jrsteele09/go-link-server/protocol"
	"github.com/stretchr/testify/require"
)

func TestInMemoryRepo(t *testing.T) {
	repo := linksession.NewInMemoryRepo()

	t.Run("create and get", func(t *testing.T) {
		created := repo.Create(protocol.ModePairCode, "918888888888")
		got, err := repo.Get(created.ID)
		require.NoError(t, err)
		require.Same(t, created, got)
		require.Equal(t, "918888888888", got.Phone)
	})

	t.Run("identifiers are never reused", func(t *testing.T) {
		seen := map[string]bool{}
		for i := 0; i < 100; i++ {
			s := repo.Create(protocol.ModeQR, "")
			require.False(t, seen[s.ID])
			seen[s.ID] = true
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := repo.Get("no-such-session")
		require.Error(t, err)
		require.True(t, errors.Is(err, errors.ErrSessionNotFound))
	})

	t.Run("empty id", func(t *testing.T) {
		_, err := repo.Get("")
		require.Error(t, err)
		require.True(t, errors.Is(err, errors.ErrSessionNotFound))
	})
}
