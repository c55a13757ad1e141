package protocolfakes

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-link-server/protocol"
)

var _ protocol.Client = (*FakeClient)(nil)

// FakeClient is a scriptable protocol.Client for tests. Tests push events
// with Emit and inspect the recorded calls through the accessor methods.
// The error/return fields are set before the client is handed to the code
// under test.
type FakeClient struct {
	ConnectErr     error
	PairingCode    string
	PairingCodeErr error

	lock sync.Mutex

	events chan protocol.Event
	closed bool

	connectCalls     int
	pairingCodeCalls []string
	closeCalls       int
}

func NewFakeClient() *FakeClient {
	return &FakeClient{
		events: make(chan protocol.Event, 16),
	}
}

func (fc *FakeClient) Connect(ctx context.Context) error {
	fc.lock.Lock()
	defer fc.lock.Unlock()
	fc.connectCalls++
	return fc.ConnectErr
}

func (fc *FakeClient) RequestPairingCode(ctx context.Context, phone string) (string, error) {
	fc.lock.Lock()
	defer fc.lock.Unlock()
	fc.pairingCodeCalls = append(fc.pairingCodeCalls, phone)
	if fc.PairingCodeErr != nil {
		return "", fc.PairingCodeErr
	}
	return fc.PairingCode, nil
}

func (fc *FakeClient) Events() <-chan protocol.Event {
	return fc.events
}

func (fc *FakeClient) Close() error {
	fc.lock.Lock()
	defer fc.lock.Unlock()
	fc.closeCalls++
	if !fc.closed {
		fc.closed = true
		close(fc.events)
	}
	return nil
}

// Emit pushes an event to the client's event channel. Emitting on a closed
// client is a no-op so tests can race teardown safely.
func (fc *FakeClient) Emit(evt protocol.Event) {
	fc.lock.Lock()
	defer fc.lock.Unlock()
	if fc.closed {
		return
	}
	fc.events <- evt
}

// Closed reports whether Close has been called at least once.
func (fc *FakeClient) Closed() bool {
	fc.lock.Lock()
	defer fc.lock.Unlock()
	return fc.closed
}

// ConnectCount returns how many times Connect was called.
func (fc *FakeClient) ConnectCount() int {
	fc.lock.Lock()
	defer fc.lock.Unlock()
	return fc.connectCalls
}

// PairingCodeRequests returns the phone numbers passed to RequestPairingCode.
func (fc *FakeClient) PairingCodeRequests() []string {
	fc.lock.Lock()
	defer fc.lock.Unlock()
	return append([]string(nil), fc.pairingCodeCalls...)
}

// CloseCount returns how many times Close was called.
func (fc *FakeClient) CloseCount() int {
	fc.lock.Lock()
	defer fc.lock.Unlock()
	return fc.closeCalls
}
