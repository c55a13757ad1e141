package protocolfakes

import (
	"context"
	"errors"
	"sync"

	"github.com/jrsteele09/go-link-server/protocol"
)

var _ protocol.Dialer = (*FakeDialer)(nil)

// FakeDialer hands out queued clients in order and records the dial settings
// it was called with.
type FakeDialer struct {
	DialErr error

	lock  sync.Mutex
	queue []*FakeClient
	calls []protocol.Settings
}

func NewFakeDialer(clients ...*FakeClient) *FakeDialer {
	return &FakeDialer{queue: clients}
}

// Queue appends a client to be returned by a future Dial.
func (fd *FakeDialer) Queue(client *FakeClient) {
	fd.lock.Lock()
	defer fd.lock.Unlock()
	fd.queue = append(fd.queue, client)
}

func (fd *FakeDialer) Dial(ctx context.Context, settings protocol.Settings) (protocol.Client, error) {
	fd.lock.Lock()
	defer fd.lock.Unlock()

	fd.calls = append(fd.calls, settings)
	if fd.DialErr != nil {
		return nil, fd.DialErr
	}
	if len(fd.queue) == 0 {
		return nil, errors.New("fake dialer: no client queued")
	}
	client := fd.queue[0]
	fd.queue = fd.queue[1:]
	return client, nil
}

// DialCount returns how many times Dial was called.
func (fd *FakeDialer) DialCount() int {
	fd.lock.Lock()
	defer fd.lock.Unlock()
	return len(fd.calls)
}

// DialSettings returns the recorded settings of every Dial call.
func (fd *FakeDialer) DialSettings() []protocol.Settings {
	fd.lock.Lock()
	defer fd.lock.Unlock()
	return append([]protocol.Settings(nil), fd.calls...)
}
