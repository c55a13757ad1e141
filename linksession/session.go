// Package linksession tracks a single device-linking attempt from "socket
// created" through "QR or pairing code issued" to "credentials obtained or
// failed/timed out".
package linksession

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-link-server/protocol"
)

// State is a session's position in the linking lifecycle.
type State string

const (
	StateConnecting     State = "connecting"
	StateQRIssued       State = "qr_issued"
	StatePairCodeIssued State = "pair_code_issued"
	StateReady          State = "ready"
	StateClosedError    State = "closed_error"
	StateTimedOut       State = "timed_out"
)

// IsTerminal reports whether a session in this state can still change.
// Terminal states are sticky: once reached, further transitions are ignored.
func (s State) IsTerminal() bool {
	return s == StateReady || s == StateClosedError || s == StateTimedOut
}

// Session is one login attempt. Mutations go through the transition methods,
// which hold the session's own lock; readers take a Snapshot. Identifiers
// are never reused.
type Session struct {
	ID        string
	Mode      protocol.Mode
	Phone     string // pair-code mode only, validated digits
	CreatedAt time.Time

	mu        sync.Mutex
	state     State
	qrPayload string
	pairCode  string
	token     string
	shortCode string
	errMsg    string

	issuedOnce sync.Once
	doneOnce   sync.Once
	issued     chan struct{}
	done       chan struct{}
}

// Snapshot is a point-in-time value copy of a session's mutable state.
type Snapshot struct {
	ID        string
	Mode      protocol.Mode
	Phone     string
	State     State
	QRPayload string
	PairCode  string
	Token     string
	ShortCode string
	Error     string
	CreatedAt time.Time
}

// New creates a session in the connecting state with a fresh identifier.
func New(mode protocol.Mode, phone string) *Session {
	return &Session{
		ID:        uuid.NewString(),
		Mode:      mode,
		Phone:     phone,
		CreatedAt: time.Now(),
		state:     StateConnecting,
		issued:    make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Snapshot returns a consistent copy of the session's current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		ID:        s.ID,
		Mode:      s.Mode,
		Phone:     s.Phone,
		State:     s.state,
		QRPayload: s.qrPayload,
		PairCode:  s.pairCode,
		Token:     s.token,
		ShortCode: s.shortCode,
		Error:     s.errMsg,
		CreatedAt: s.CreatedAt,
	}
}

// Issued is closed when the first QR payload or pairing code is available.
func (s *Session) Issued() <-chan struct{} {
	return s.issued
}

// Done is closed when the session reaches any terminal state.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// SetQR records a QR payload and moves the session to qr_issued. Later calls
// represent QR rotation: the latest payload supersedes the previous one, no
// history is kept. No-op for pair-code sessions and terminal sessions.
func (s *Session) SetQR(payload string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Mode != protocol.ModeQR || s.state.IsTerminal() {
		return false
	}
	s.qrPayload = payload
	s.state = StateQRIssued
	s.issuedOnce.Do(func() { close(s.issued) })
	return true
}

// SetPairCode records the formatted pairing code and moves the session to
// pair_code_issued. The code is write-once: later calls are no-ops, as are
// calls on QR-mode or terminal sessions.
func (s *Session) SetPairCode(code string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Mode != protocol.ModePairCode || s.state.IsTerminal() || s.pairCode != "" {
		return false
	}
	s.pairCode = code
	s.state = StatePairCodeIssued
	s.issuedOnce.Do(func() { close(s.issued) })
	return true
}

// SetReady records the serialized credential token and flips the session to
// ready. Write-once: the token never changes after the session is terminal,
// so pollers always see the same value.
func (s *Session) SetReady(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.IsTerminal() {
		return false
	}
	s.token = token
	s.state = StateReady
	s.issuedOnce.Do(func() { close(s.issued) })
	s.doneOnce.Do(func() { close(s.done) })
	return true
}

// SetShortCode records the retrieval code issued for the session's credential
// bundle. Write-once.
func (s *Session) SetShortCode(code string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.shortCode != "" {
		return false
	}
	s.shortCode = code
	return true
}

// Fail moves the session to closed_error or timed_out with a human-readable
// explanation. No-op if the session is already terminal.
func (s *Session) Fail(state State, message string) bool {
	if state != StateClosedError && state != StateTimedOut {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.IsTerminal() {
		return false
	}
	s.state = state
	s.errMsg = message
	s.issuedOnce.Do(func() { close(s.issued) })
	s.doneOnce.Do(func() { close(s.done) })
	return true
}
