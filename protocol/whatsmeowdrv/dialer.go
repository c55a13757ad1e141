// Package whatsmeowdrv adapts the whatsmeow client library to the protocol
// boundary: it owns a per-session device store, translates library events
// into protocol events, and exports credential snapshots as JSON files into
// the session's credential directory.
package whatsmeowdrv

import (
	"context"
	"fmt"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/store/sqlstore"

	"github.com/jrsteele09/go-link-server/protocol"
)

var _ protocol.Dialer = (*Dialer)(nil)

// Dialer opens one whatsmeow connection per link attempt. Each attempt gets
// its own sqlite device store inside the session's credential directory, so
// attempts never share device identities.
type Dialer struct {
	log zerolog.Logger
}

func NewDialer(log zerolog.Logger) *Dialer {
	return &Dialer{log: log.With().Str("component", "whatsmeow").Logger()}
}

func (d *Dialer) Dial(ctx context.Context, settings protocol.Settings) (protocol.Client, error) {
	if settings.CredentialDir == "" {
		return nil, fmt.Errorf("[Dialer Dial] credential directory is required")
	}

	dbPath := filepath.Join(settings.CredentialDir, "device.db")
	container, err := sqlstore.New(ctx, "sqlite3", fmt.Sprintf("file:%s?_foreign_keys=on", dbPath), newWALogger(d.log))
	if err != nil {
		return nil, fmt.Errorf("[Dialer Dial] open device store: %w", err)
	}

	// A restart-required reconnect reopens the same store; GetFirstDevice
	// returns the paired device when one exists and a fresh one otherwise.
	device, err := container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("[Dialer Dial] load device: %w", err)
	}

	wa := whatsmeow.NewClient(device, newWALogger(d.log.With().Str("session", settings.SessionID).Logger()))
	// The orchestrator decides when to reconnect.
	wa.EnableAutoReconnect = false

	return newClient(wa, settings, d.log), nil
}
