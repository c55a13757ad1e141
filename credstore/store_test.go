package credstore_test

import (
	"encoding/json"
	"testing"

	"github.com/jrsteele09/go-link-server/credstore"
	"github.com/jrsteele09/go-link-server/internal/errors"
	"github.com/stretchr/testify/require"
)

func TestStore_Serialize(t *testing.T) {
	store := credstore.NewStore(t.TempDir(), "")

	t.Run("unknown session is not yet available", func(t *testing.T) {
		_, err := store.Serialize("missing-session")
		require.Error(t, err)
		require.True(t, errors.Is(err, errors.ErrNotYetAvailable))
	})

	t.Run("missing primary credential file is not yet available", func(t *testing.T) {
		require.NoError(t, store.SaveFile("partial", "app-state", []byte(`{"v":1}`)))
		_, err := store.Serialize("partial")
		require.Error(t, err)
		require.True(t, errors.Is(err, errors.ErrNotYetAvailable))
	})

	t.Run("bundle roundtrip", func(t *testing.T) {
		require.NoError(t, store.SaveFile("full", credstore.CredsFile, []byte(`{"jid":"1@s"}`)))
		require.NoError(t, store.SaveFile("full", "keys", []byte(`{"noise":"abc"}`)))

		token, err := store.Serialize("full")
		require.NoError(t, err)
		require.NotEmpty(t, token)

		bundle, err := store.Decode(token)
		require.NoError(t, err)
		require.Len(t, bundle, 2)
		require.JSONEq(t, `{"jid":"1@s"}`, string(bundle[credstore.CredsFile]))
		require.JSONEq(t, `{"noise":"abc"}`, string(bundle["keys"]))
	})

	t.Run("serialization is deterministic without intervening writes", func(t *testing.T) {
		first, err := store.Serialize("full")
		require.NoError(t, err)
		second, err := store.Serialize("full")
		require.NoError(t, err)
		require.Equal(t, first, second)
	})

	t.Run("later credential updates produce a fresh token", func(t *testing.T) {
		before, err := store.Serialize("full")
		require.NoError(t, err)
		require.NoError(t, store.SaveFile("full", "keys", []byte(`{"noise":"def"}`)))
		after, err := store.Serialize("full")
		require.NoError(t, err)
		require.NotEqual(t, before, after)
	})
}

func TestStore_TokenPrefix(t *testing.T) {
	store := credstore.NewStore(t.TempDir(), "LNK1~")
	require.NoError(t, store.SaveFile("s1", credstore.CredsFile, []byte(`{"jid":"1@s"}`)))

	token, err := store.Serialize("s1")
	require.NoError(t, err)
	require.Contains(t, token, "LNK1~")
	require.Equal(t, "LNK1~", token[:5])

	bundle, err := store.Decode(token)
	require.NoError(t, err)
	require.JSONEq(t, `{"jid":"1@s"}`, string(bundle[credstore.CredsFile]))

	t.Run("decode rejects tokens without the prefix", func(t *testing.T) {
		_, err := store.Decode(token[5:])
		require.Error(t, err)
	})
}

func TestStore_SaveFile(t *testing.T) {
	store := credstore.NewStore(t.TempDir(), "")

	t.Run("rejects path traversal in names", func(t *testing.T) {
		require.Error(t, store.SaveFile("s1", "../escape", []byte(`{}`)))
		require.Error(t, store.SaveFile("s1", "a/b", []byte(`{}`)))
		require.Error(t, store.SaveFile("s1", "", []byte(`{}`)))
	})

	t.Run("rejects non-JSON content", func(t *testing.T) {
		require.Error(t, store.SaveFile("s1", credstore.CredsFile, []byte("not json")))
	})

	t.Run("overwrites keep the bundle valid JSON", func(t *testing.T) {
		require.NoError(t, store.SaveFile("s1", credstore.CredsFile, []byte(`{"v":1}`)))
		require.NoError(t, store.SaveFile("s1", credstore.CredsFile, []byte(`{"v":2}`)))
		token, err := store.Serialize("s1")
		require.NoError(t, err)
		bundle, err := store.Decode(token)
		require.NoError(t, err)

		var creds map[string]int
		require.NoError(t, json.Unmarshal(bundle[credstore.CredsFile], &creds))
		require.Equal(t, 2, creds["v"])
	})
}
