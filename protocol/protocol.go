// Package protocol defines the boundary to the messaging-protocol client
// library. The link server treats the library as an opaque event source plus
// two calls: open a connection, and request a pairing code. Everything the
// library pushes back (QR payloads, credential updates, open/close
// notifications) arrives on the connection's event channel.
package protocol

import "context"

// Mode selects the device-linking flow. The two modes negotiate different
// client identities with the platform: QR linking presents a desktop browser
// companion, pairing-code linking a mobile client.
type Mode string

const (
	ModeQR       Mode = "qr"
	ModePairCode Mode = "pair-code"
)

// Settings configures a single connection attempt.
type Settings struct {
	Mode          Mode
	SessionID     string
	CredentialDir string // directory the driver persists credential state into
}

// Dialer opens protocol connections. One Client per connection attempt; a
// reconnect means a fresh Dial.
type Dialer interface {
	Dial(ctx context.Context, settings Settings) (Client, error)
}

// Client is a single connection to the messaging platform.
//
// Events must be drained by the caller; the channel is closed when the
// connection is torn down. Close is best-effort and safe to call more than
// once.
type Client interface {
	Connect(ctx context.Context) error
	RequestPairingCode(ctx context.Context, phone string) (string, error)
	Events() <-chan Event
	Close() error
}

// Event is a marker for the connection event types below.
type Event interface {
	isProtocolEvent()
}

// CredentialsEvent carries an incremental piece of the library's credential
// state. Name is the bundle filename stem (e.g. "creds"), Data is its JSON
// content.
type CredentialsEvent struct {
	Name string
	Data []byte
}

// QREvent carries a QR payload for out-of-band scanning. The library rotates
// payloads until one is scanned; each event supersedes the previous one.
type QREvent struct {
	Payload string
}

// OpenEvent signals that the connection handshake completed.
type OpenEvent struct{}

// CloseReason classifies why a connection closed.
type CloseReason string

const (
	// CloseLoggedOut means the device was logged out or unlinked on the
	// platform side. The session cannot recover.
	CloseLoggedOut CloseReason = "logged-out"

	// CloseRestartRequired means the library needs a fresh connection to
	// continue (normal after a successful pairing handshake).
	CloseRestartRequired CloseReason = "restart-required"

	// CloseFailure covers every other close.
	CloseFailure CloseReason = "failure"
)

// CloseEvent signals that the connection closed. Detail carries the raw
// reason reported by the library.
type CloseEvent struct {
	Reason CloseReason
	Detail string
}

func (CredentialsEvent) isProtocolEvent() {}
func (QREvent) isProtocolEvent()          {}
func (OpenEvent) isProtocolEvent()        {}
func (CloseEvent) isProtocolEvent()       {}
