package linksession_test

import (
	"testing"

	"github.com/jrsteele09/go-link-server/linksession"
	"github.com/jrsteele09/go-link-server/protocol"
	"github.com/stretchr/testify/require"
)

func TestSession_QRLifecycle(t *testing.T) {
	s := linksession.New(protocol.ModeQR, "")
	require.NotEmpty(t, s.ID)
	require.Equal(t, linksession.StateConnecting, s.Snapshot().State)

	t.Run("qr payload moves session to qr_issued", func(t *testing.T) {
		require.True(t, s.SetQR("payload-1"))
		snap := s.Snapshot()
		require.Equal(t, linksession.StateQRIssued, snap.State)
		require.Equal(t, "payload-1", snap.QRPayload)
	})

	t.Run("qr rotation keeps only the latest payload", func(t *testing.T) {
		require.True(t, s.SetQR("payload-2"))
		snap := s.Snapshot()
		require.Equal(t, linksession.StateQRIssued, snap.State)
		require.Equal(t, "payload-2", snap.QRPayload)
	})

	t.Run("issued channel closes on first qr", func(t *testing.T) {
		select {
		case <-s.Issued():
		default:
			t.Fatal("issued channel should be closed")
		}
	})

	t.Run("ready sets the token and closes done", func(t *testing.T) {
		require.True(t, s.SetReady("token-1"))
		snap := s.Snapshot()
		require.Equal(t, linksession.StateReady, snap.State)
		require.Equal(t, "token-1", snap.Token)
		select {
		case <-s.Done():
		default:
			t.Fatal("done channel should be closed")
		}
	})

	t.Run("token is stable once ready", func(t *testing.T) {
		require.False(t, s.SetReady("token-2"))
		snap := s.Snapshot()
		require.Equal(t, linksession.StateReady, snap.State)
		require.Equal(t, "token-1", snap.Token)
	})

	t.Run("terminal state is sticky", func(t *testing.T) {
		require.False(t, s.SetQR("payload-3"))
		require.False(t, s.Fail(linksession.StateClosedError, "nope"))
		snap := s.Snapshot()
		require.Equal(t, linksession.StateReady, snap.State)
		require.Equal(t, "payload-2", snap.QRPayload)
		require.Empty(t, snap.Error)
	})
}

func TestSession_PairCodeLifecycle(t *testing.T) {
	s := linksession.New(protocol.ModePairCode, "918888888888")

	t.Run("qr payloads are ignored in pair-code mode", func(t *testing.T) {
		require.False(t, s.SetQR("payload"))
		require.Equal(t, linksession.StateConnecting, s.Snapshot().State)
	})

	t.Run("pair code moves session to pair_code_issued", func(t *testing.T) {
		require.True(t, s.SetPairCode("1234-5678"))
		snap := s.Snapshot()
		require.Equal(t, linksession.StatePairCodeIssued, snap.State)
		require.Equal(t, "1234-5678", snap.PairCode)
	})

	t.Run("pair code is write-once", func(t *testing.T) {
		require.False(t, s.SetPairCode("8765-4321"))
		require.Equal(t, "1234-5678", s.Snapshot().PairCode)
	})

	t.Run("failure records the explanation", func(t *testing.T) {
		require.True(t, s.Fail(linksession.StateClosedError, "client logged out"))
		snap := s.Snapshot()
		require.Equal(t, linksession.StateClosedError, snap.State)
		require.Equal(t, "client logged out", snap.Error)
	})

	t.Run("ready cannot resurrect a failed session", func(t *testing.T) {
		require.False(t, s.SetReady("token"))
		snap := s.Snapshot()
		require.Equal(t, linksession.StateClosedError, snap.State)
		require.Empty(t, snap.Token)
	})
}

func TestSession_Timeout(t *testing.T) {
	s := linksession.New(protocol.ModeQR, "")
	require.True(t, s.Fail(linksession.StateTimedOut, "link attempt timed out"))
	require.Equal(t, linksession.StateTimedOut, s.Snapshot().State)

	// A timed-out session cannot fail again with a different state.
	require.False(t, s.Fail(linksession.StateClosedError, "other"))
	require.Equal(t, linksession.StateTimedOut, s.Snapshot().State)
}

func TestSession_FailRejectsNonTerminalStates(t *testing.T) {
	s := linksession.New(protocol.ModeQR, "")
	require.False(t, s.Fail(linksession.StateQRIssued, "bogus"))
	require.Equal(t, linksession.StateConnecting, s.Snapshot().State)
}

func TestSession_ShortCodeWriteOnce(t *testing.T) {
	s := linksession.New(protocol.ModeQR, "")
	require.True(t, s.SetShortCode("1234-5678"))
	require.False(t, s.SetShortCode("8765-4321"))
	require.Equal(t, "1234-5678", s.Snapshot().ShortCode)
}
