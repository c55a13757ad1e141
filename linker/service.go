// Package linker drives the device-linking flow: it opens one protocol
// connection per login attempt, follows the library's event stream, and
// moves the session through its lifecycle until credentials are obtained or
// the attempt fails.
package linker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/jrsteele09/go-link-server/credstore"
	"github.com/jrsteele09/go-link-server/internal/errors"
	"github.com/jrsteele09/go-link-server/linksession"
	"github.com/jrsteele09/go-link-server/protocol"
	"github.com/rs/zerolog"
)

// Service orchestrates link attempts. One Service serves the whole process;
// each attempt gets its own connection, event pump, and timeout budget.
type Service struct {
	dialer   protocol.Dialer
	creds    *credstore.Store
	codes    *credstore.ShortCodeStore
	sessions linksession.Repo
	timeout  time.Duration
	log      zerolog.Logger
}

// NewService creates a link orchestrator. codes may be nil to disable the
// short-code companion store.
func NewService(dialer protocol.Dialer, creds *credstore.Store, codes *credstore.ShortCodeStore, sessions linksession.Repo, timeout time.Duration, log zerolog.Logger) (*Service, error) {
	if dialer == nil {
		return nil, fmt.Errorf("[NewService] dialer is required")
	}
	if creds == nil {
		return nil, fmt.Errorf("[NewService] credential store is required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("[NewService] session repo is required")
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Service{
		dialer:   dialer,
		creds:    creds,
		codes:    codes,
		sessions: sessions,
		timeout:  timeout,
		log:      log.With().Str("component", "linker").Logger(),
	}, nil
}

// Timeout returns the per-attempt wall-clock budget.
func (s *Service) Timeout() time.Duration {
	return s.timeout
}

// StartQR begins a QR-based link attempt and returns its session
// immediately; the QR payload arrives asynchronously on the session.
func (s *Service) StartQR(ctx context.Context) (*linksession.Session, error) {
	session := s.sessions.Create(protocol.ModeQR, "")
	if err := s.start(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// StartPair begins a pairing-code link attempt for a phone number. The phone
// is validated before any connection is opened.
func (s *Service) StartPair(ctx context.Context, phone string) (*linksession.Session, error) {
	if err := linksession.ValidatePhone(phone); err != nil {
		return nil, err
	}
	session := s.sessions.Create(protocol.ModePairCode, phone)
	if err := s.start(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// attempt is the per-session connection state: the current client (which a
// restart-required reconnect replaces), the shared timeout budget, and the
// one-shot pairing-code flag.
type attempt struct {
	svc     *Service
	session *linksession.Session
	log     zerolog.Logger

	// budget covers the whole attempt including any reconnect; it is armed
	// once at start and never extended.
	budget context.Context
	cancel context.CancelFunc

	mu            sync.Mutex
	client        protocol.Client
	pairRequested bool
	torndown      bool
}

func (s *Service) start(ctx context.Context, session *linksession.Session) error {
	a := &attempt{
		svc:     s,
		session: session,
		log:     s.log.With().Str("session", session.ID).Str("mode", string(session.Mode)).Logger(),
	}
	a.budget, a.cancel = context.WithTimeout(context.Background(), s.timeout)

	client, err := s.dial(ctx, session)
	if err != nil {
		a.cancel()
		session.Fail(linksession.StateClosedError, err.Error())
		return err
	}
	a.client = client

	go a.watchdog()
	go a.pump(client)

	a.log.Info().Msg("link attempt started")
	return nil
}

func (s *Service) dial(ctx context.Context, session *linksession.Session) (protocol.Client, error) {
	dir, err := s.creds.SessionDir(session.ID)
	if err != nil {
		return nil, err
	}

	client, err := s.dialer.Dial(ctx, protocol.Settings{
		Mode:          session.Mode,
		SessionID:     session.ID,
		CredentialDir: dir,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "[Service dial] session %s", session.ID)
	}
	if err := client.Connect(ctx); err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(err, "[Service dial] connect session %s", session.ID)
	}
	return client, nil
}

// watchdog enforces the timeout budget and guarantees the connection is
// closed exactly once as soon as the session reaches a terminal state.
func (a *attempt) watchdog() {
	select {
	case <-a.budget.Done():
		if a.budget.Err() == context.DeadlineExceeded {
			if a.session.Fail(linksession.StateTimedOut, errors.ErrLinkTimeout.Error()) {
				a.log.Warn().Msg("link attempt timed out")
			}
		}
	case <-a.session.Done():
	}
	a.teardown()
}

// teardown cancels the budget and closes the current connection.
// Best-effort: close errors are ignored. Idempotent.
func (a *attempt) teardown() {
	a.cancel()

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.torndown {
		return
	}
	a.torndown = true
	if a.client != nil {
		_ = a.client.Close()
	}
}

// pump consumes one connection's event stream. A reconnect spawns a new pump
// for the replacement connection.
func (a *attempt) pump(client protocol.Client) {
	for evt := range client.Events() {
		if a.session.Snapshot().State.IsTerminal() {
			// The connection is being torn down; drain and ignore.
			continue
		}

		switch evt := evt.(type) {
		case protocol.CredentialsEvent:
			a.handleCredentials(evt)
		case protocol.QREvent:
			a.handleQR(evt)
		case protocol.OpenEvent:
			a.handleOpen(client)
		case protocol.CloseEvent:
			a.handleClose(client, evt)
		}
	}
}

func (a *attempt) handleCredentials(evt protocol.CredentialsEvent) {
	if err := a.svc.creds.SaveFile(a.session.ID, evt.Name, evt.Data); err != nil {
		a.log.Error().Err(err).Str("file", evt.Name).Msg("persist credential update")
		return
	}
	a.trySerialize()
}

// trySerialize attempts credential serialization and, when it succeeds,
// marks the session ready. Credential updates arriving before the socket
// reports open are allowed to flip the state; once the session is terminal
// the token is fixed and further updates are ignored.
func (a *attempt) trySerialize() {
	token, err := a.svc.creds.Serialize(a.session.ID)
	if err != nil {
		if !errors.Is(err, errors.ErrNotYetAvailable) {
			a.log.Error().Err(err).Msg("serialize credentials")
		}
		return
	}

	if a.session.SetReady(token) {
		a.issueShortCode(token)
		a.log.Info().Msg("link attempt ready")
	}
}

func (a *attempt) issueShortCode(token string) {
	if a.svc.codes == nil {
		return
	}
	bundle, err := a.svc.creds.Decode(token)
	if err != nil {
		a.log.Error().Err(err).Msg("decode bundle for short code")
		return
	}
	raw, err := json.Marshal(bundle)
	if err != nil {
		a.log.Error().Err(err).Msg("marshal bundle for short code")
		return
	}
	code, err := a.svc.codes.Put(raw)
	if err != nil {
		a.log.Error().Err(err).Msg("issue short code")
		return
	}
	a.session.SetShortCode(code)
}

func (a *attempt) handleQR(evt protocol.QREvent) {
	if a.session.SetQR(evt.Payload) {
		a.log.Debug().Msg("qr payload issued")
	}
}

func (a *attempt) handleOpen(client protocol.Client) {
	switch a.session.Mode {
	case protocol.ModePairCode:
		a.requestPairingCode(client)
	case protocol.ModeQR:
		// Safety net: the open notification may arrive after the last
		// credential update.
		a.trySerialize()
	}
}

// requestPairingCode calls the pairing-code RPC exactly once per session.
func (a *attempt) requestPairingCode(client protocol.Client) {
	a.mu.Lock()
	if a.pairRequested {
		a.mu.Unlock()
		return
	}
	a.pairRequested = true
	a.mu.Unlock()

	code, err := client.RequestPairingCode(a.budget, a.session.Phone)
	if err != nil {
		a.session.Fail(linksession.StateClosedError, fmt.Sprintf("pairing code request failed: %v", err))
		return
	}
	if a.session.SetPairCode(linksession.FormatPairCode(code)) {
		a.log.Info().Msg("pairing code issued")
	}
}

func (a *attempt) handleClose(client protocol.Client, evt protocol.CloseEvent) {
	switch evt.Reason {
	case protocol.CloseLoggedOut:
		a.session.Fail(linksession.StateClosedError, fmt.Sprintf("client logged out: %s", evt.Detail))
		a.log.Warn().Str("detail", evt.Detail).Msg("upstream logged out")

	case protocol.CloseRestartRequired:
		// Not a failure: the library wants a fresh connection for the same
		// session. At most one automatic retry per close event, within the
		// original budget.
		a.reconnect(client)

	default:
		if a.session.Snapshot().Token != "" {
			return // credentials already obtained, nothing to report
		}
		a.session.Fail(linksession.StateClosedError, fmt.Sprintf("%s: %s", errors.ErrUpstreamClosed.Error(), evt.Detail))
		a.log.Warn().Str("detail", evt.Detail).Msg("upstream closed before credentials")
	}
}

func (a *attempt) reconnect(old protocol.Client) {
	if a.session.Snapshot().State.IsTerminal() {
		return
	}

	_ = old.Close()

	replacement, err := a.svc.dial(a.budget, a.session)
	if err != nil {
		a.session.Fail(linksession.StateClosedError, fmt.Sprintf("reconnect failed: %v", err))
		return
	}

	a.mu.Lock()
	if a.torndown {
		a.mu.Unlock()
		_ = replacement.Close()
		return
	}
	a.client = replacement
	a.mu.Unlock()

	a.log.Info().Msg("reconnected after restart request")
	go a.pump(replacement)
}
