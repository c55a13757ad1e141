package server_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jrsteele09/go-link-server/credstore"
	"github.com/jrsteele09/go-link-server/internal/config"
	"github.com/jrsteele09/go-link-server/linker"
	"github.com/jrsteele09/go-link-server/linksession"
	"github.com/jrsteele09/go-link-server/protocol"
	"github.com/jrsteele09/go-link-server/protocol/protocolfakes"
	"github.com/jrsteele09/go-link-server/server"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// testFixture holds the façade under test plus the fakes behind it
type testFixture struct {
	server   *server.Server
	client   *protocolfakes.FakeClient
	dialer   *protocolfakes.FakeDialer
	creds    *credstore.Store
	codes    *credstore.ShortCodeStore
	sessions *linksession.InMemoryRepo
}

func setupTestFixture(t *testing.T, timeout time.Duration) *testFixture {
	t.Helper()

	dataFolder := t.TempDir()
	client := protocolfakes.NewFakeClient()
	dialer := protocolfakes.NewFakeDialer(client)
	creds := credstore.NewStore(dataFolder, "")
	codes := credstore.NewShortCodeStore(dataFolder)
	sessions := linksession.NewInMemoryRepo()

	linkService, err := linker.NewService(dialer, creds, codes, sessions, timeout, zerolog.Nop())
	require.NoError(t, err)

	srv, err := server.New(config.New(), linkService, sessions, codes, zerolog.Nop())
	require.NoError(t, err)

	return &testFixture{
		server:   srv,
		client:   client,
		dialer:   dialer,
		creds:    creds,
		codes:    codes,
		sessions: sessions,
	}
}

func (f *testFixture) get(t *testing.T, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)

	body := map[string]any{}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestQRSessionEndpoint(t *testing.T) {
	f := setupTestFixture(t, time.Minute)

	// Queued before the request: the orchestrator drains the connection's
	// event stream as soon as the session starts.
	f.client.Emit(protocol.QREvent{Payload: "qr-payload"})

	rec, body := f.get(t, "/api/session/qr")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "scan_pending", body["status"])
	require.NotEmpty(t, body["sessionId"])

	qr, ok := body["qr"].(string)
	require.True(t, ok)
	require.True(t, strings.HasPrefix(qr, "data:image/png;base64,"))

	sessionID := body["sessionId"].(string)

	t.Run("result is not ready before credentials arrive", func(t *testing.T) {
		rec, body := f.get(t, "/api/session/result/"+sessionID)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, false, body["ready"])
		require.Nil(t, body["session"])
	})

	t.Run("credentials flip the session to ready", func(t *testing.T) {
		f.client.Emit(protocol.CredentialsEvent{Name: credstore.CredsFile, Data: []byte(`{"jid":"15550001111@s"}`)})
		f.client.Emit(protocol.OpenEvent{})

		var token string
		require.Eventually(t, func() bool {
			req := httptest.NewRequest(http.MethodGet, "/api/session/result/"+sessionID, nil)
			rec := httptest.NewRecorder()
			f.server.ServeHTTP(rec, req)

			body := map[string]any{}
			if json.Unmarshal(rec.Body.Bytes(), &body) != nil || body["ready"] != true {
				return false
			}
			tok, ok := body["session"].(string)
			if !ok {
				return false
			}
			token = tok
			return true
		}, 2*time.Second, 10*time.Millisecond)

		// The token decodes back to the simulated credential JSON.
		bundle, err := f.creds.Decode(token)
		require.NoError(t, err)
		require.JSONEq(t, `{"jid":"15550001111@s"}`, string(bundle[credstore.CredsFile]))

		// Polling again returns the same token.
		_, body := f.get(t, "/api/session/result/"+sessionID)
		require.Equal(t, true, body["ready"])
		require.Equal(t, token, body["session"])
	})
}

func TestQRSessionEndpoint_Timeout(t *testing.T) {
	f := setupTestFixture(t, 50*time.Millisecond)

	rec, body := f.get(t, "/api/session/qr")
	require.Equal(t, http.StatusGatewayTimeout, rec.Code)
	require.Equal(t, "QR timeout", body["error"])
}

func TestPairSessionEndpoint(t *testing.T) {
	f := setupTestFixture(t, time.Minute)
	f.client.PairingCode = "12345678"
	f.client.Emit(protocol.OpenEvent{})

	rec, body := f.get(t, "/api/session/pair?phone=918888888888")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "pair_code_generated", body["status"])
	require.Equal(t, "918888888888", body["phone"])
	require.Equal(t, "1234-5678", body["code"])
	require.NotEmpty(t, body["sessionId"])
}

func TestPairSessionEndpoint_InvalidPhone(t *testing.T) {
	f := setupTestFixture(t, time.Minute)

	for _, phone := range []string{"", "123", "+918888888888", "91%208888888888", "abcdefgh"} {
		rec, body := f.get(t, "/api/session/pair?phone="+phone)
		require.Equal(t, http.StatusBadRequest, rec.Code, "phone %q", phone)
		require.Equal(t, "invalid_phone", body["error"])
	}

	// Rejected before any connection was opened.
	require.Equal(t, 0, f.dialer.DialCount())
}

func TestPairSessionEndpoint_LoggedOutClose(t *testing.T) {
	f := setupTestFixture(t, time.Minute)
	f.client.Emit(protocol.CloseEvent{Reason: protocol.CloseLoggedOut, Detail: "device removed"})

	rec, body := f.get(t, "/api/session/pair?phone=918888888888")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, body["details"], "logged out")
	require.Equal(t, false, body["retry"])
}

func TestSessionResultEndpoint_UnknownID(t *testing.T) {
	f := setupTestFixture(t, time.Minute)

	rec, body := f.get(t, "/api/session/result/no-such-session")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, false, body["ready"])
	require.Equal(t, "no-such-session", body["sessionId"])
}

func TestCredsEndpoint(t *testing.T) {
	f := setupTestFixture(t, time.Minute)

	code, err := f.codes.Put([]byte(`{"creds":{"jid":"1@s"}}`))
	require.NoError(t, err)

	t.Run("known code returns the bundle", func(t *testing.T) {
		rec, body := f.get(t, "/api/session/creds/"+code)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, body, "creds")
	})

	t.Run("unknown code", func(t *testing.T) {
		rec, body := f.get(t, "/api/session/creds/0000-0000")
		require.Equal(t, http.StatusNotFound, rec.Code)
		require.Equal(t, "code_not_found", body["error"])
	})
}

func TestIndexPage(t *testing.T) {
	f := setupTestFixture(t, time.Minute)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	require.Contains(t, rec.Body.String(), "/api/session/qr")
}
