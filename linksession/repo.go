package linksession

import "github.com/jrsteele09/go-link-server/protocol"

// Repo is the registry of link sessions.
//
// Entries are retained for the process lifetime: there is no eviction, so a
// client that starts a session and walks away leaves it in memory until
// restart. That matches the source behavior this service preserves; a future
// revision could add TTL-based eviction.
type Repo interface {
	Create(mode protocol.Mode, phone string) *Session
	Get(id string) (*Session, error)
}
