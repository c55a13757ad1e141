package whatsmeowdrv

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/types/events"

	"github.com/jrsteele09/go-link-server/protocol"
)

var _ protocol.Client = (*client)(nil)

// Display name the pairing client presents on the linked-devices screen. QR
// linking uses the library's default desktop-browser identity; pairing-code
// linking negotiates as a browser pair client with this name.
const pairClientName = "Chrome (Linux)"

type client struct {
	wa       *whatsmeow.Client
	settings protocol.Settings
	log      zerolog.Logger

	mu     sync.Mutex
	events chan protocol.Event
	closed bool
}

func newClient(wa *whatsmeow.Client, settings protocol.Settings, log zerolog.Logger) *client {
	c := &client{
		wa:       wa,
		settings: settings,
		log:      log.With().Str("session", settings.SessionID).Logger(),
		events:   make(chan protocol.Event, 32),
	}
	wa.AddEventHandler(c.handleEvent)
	return c
}

func (c *client) Connect(ctx context.Context) error {
	// The QR channel must be requested before the socket is opened; the
	// library refuses it once connected or once the store has an identity.
	if c.settings.Mode == protocol.ModeQR && c.wa.Store.ID == nil {
		qrChan, err := c.wa.GetQRChannel(ctx)
		if err != nil {
			return fmt.Errorf("[client Connect] qr channel: %w", err)
		}
		go c.forwardQR(qrChan)
	}

	if err := c.wa.Connect(); err != nil {
		return fmt.Errorf("[client Connect] connect: %w", err)
	}
	return nil
}

func (c *client) RequestPairingCode(ctx context.Context, phone string) (string, error) {
	code, err := c.wa.PairPhone(ctx, phone, true, whatsmeow.PairClientChrome, pairClientName)
	if err != nil {
		return "", fmt.Errorf("[client RequestPairingCode] pair phone: %w", err)
	}
	return code, nil
}

func (c *client) Events() <-chan protocol.Event {
	return c.events
}

func (c *client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.wa.Disconnect()
	close(c.events)
	return nil
}

// emit forwards an event unless the client is already closed. Events are
// dropped rather than blocking the library's dispatch goroutine if the
// consumer has fallen behind.
func (c *client) emit(evt protocol.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.events <- evt:
	default:
		c.log.Warn().Msg("event channel full, dropping event")
	}
}

func (c *client) forwardQR(qrChan <-chan whatsmeow.QRChannelItem) {
	for item := range qrChan {
		switch item.Event {
		case whatsmeow.QRChannelEventCode:
			c.emit(protocol.QREvent{Payload: item.Code})
		case whatsmeow.QRChannelEventError:
			c.emit(protocol.CloseEvent{Reason: protocol.CloseFailure, Detail: fmt.Sprintf("qr channel error: %v", item.Error)})
		default:
			// "success" and "timeout" are reported through the regular
			// event handler as Connected / Disconnected.
		}
	}
}

func (c *client) handleEvent(evt interface{}) {
	switch evt := evt.(type) {
	case *events.Connected:
		c.snapshotCredentials()
		c.emit(protocol.OpenEvent{})

	case *events.PairSuccess:
		c.snapshotCredentials()

	case *events.LoggedOut:
		c.emit(protocol.CloseEvent{
			Reason: protocol.CloseLoggedOut,
			Detail: fmt.Sprintf("logged out (reason %v)", evt.Reason),
		})

	case *events.StreamError:
		// 515 is the platform asking for a fresh connection after pairing,
		// not a failure.
		if evt.Code == "515" {
			c.emit(protocol.CloseEvent{Reason: protocol.CloseRestartRequired, Detail: "stream error 515"})
			return
		}
		c.emit(protocol.CloseEvent{Reason: protocol.CloseFailure, Detail: fmt.Sprintf("stream error %s", evt.Code)})

	case *events.StreamReplaced:
		c.emit(protocol.CloseEvent{Reason: protocol.CloseFailure, Detail: "stream replaced by another connection"})

	case *events.ClientOutdated:
		c.emit(protocol.CloseEvent{Reason: protocol.CloseFailure, Detail: "client version outdated"})

	case *events.ConnectFailure:
		c.emit(protocol.CloseEvent{Reason: protocol.CloseFailure, Detail: fmt.Sprintf("connect failure (reason %v)", evt.Reason)})

	case *events.Disconnected:
		c.emit(protocol.CloseEvent{Reason: protocol.CloseFailure, Detail: "disconnected"})
	}
}
