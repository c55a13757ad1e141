// Package credstore persists the protocol library's per-session credential
// bundle as flat JSON files and serializes a bundle into a single portable
// token string. There is no database; the filesystem layout is one directory
// per login attempt.
package credstore

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jrsteele09/go-link-server/internal/errors"
)

// CredsFile is the primary credential file stem. Serialization fails with
// ErrNotYetAvailable until the library has written it.
const CredsFile = "creds"

type Store struct {
	root   string
	prefix string
}

// NewStore creates a credential store rooted at <dataFolder>/sessions.
// prefix, if non-empty, is prepended to every token it produces.
func NewStore(dataFolder, prefix string) *Store {
	return &Store{
		root:   filepath.Join(dataFolder, "sessions"),
		prefix: prefix,
	}
}

// SessionDir returns the credential directory for a session, creating it if
// needed.
func (s *Store) SessionDir(sessionID string) (string, error) {
	if sessionID == "" {
		return "", fmt.Errorf("[Store SessionDir] sessionID is required")
	}
	dir := filepath.Join(s.root, sessionID)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("[Store SessionDir] create %s: %w", dir, err)
	}
	return dir, nil
}

// SaveFile writes one credential file (<name>.json) for a session. name must
// be a bare filename stem.
func (s *Store) SaveFile(sessionID, name string, data []byte) error {
	if name == "" || strings.ContainsAny(name, `/\`) || name != filepath.Base(name) {
		return fmt.Errorf("[Store SaveFile] invalid credential file name %q", name)
	}
	if !json.Valid(data) {
		return fmt.Errorf("[Store SaveFile] credential file %q is not valid JSON", name)
	}

	dir, err := s.SessionDir(sessionID)
	if err != nil {
		return err
	}
	path := filepath.Join(dir, name+".json")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("[Store SaveFile] write %s: %w", path, err)
	}
	return nil
}

// Serialize reads every credential file in the session's directory and
// encodes the bundle as a single token: a filename->JSON mapping, marshaled
// and base64-encoded with a URL-safe alphabet.
//
// Returns ErrNotYetAvailable while the primary credential file is missing.
// Serialize is idempotent: calling it again after further credential updates
// yields a new token reflecting the latest state, so callers must not assume
// the token is stable across calls.
func (s *Store) Serialize(sessionID string) (string, error) {
	dir := filepath.Join(s.root, sessionID)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return "", errors.Wrapf(errors.ErrNotYetAvailable, "[Store Serialize] session %s", sessionID)
	}
	if err != nil {
		return "", fmt.Errorf("[Store Serialize] read %s: %w", dir, err)
	}

	bundle := make(map[string]json.RawMessage)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return "", fmt.Errorf("[Store Serialize] read %s: %w", entry.Name(), err)
		}
		stem := strings.TrimSuffix(entry.Name(), ".json")
		bundle[stem] = json.RawMessage(data)
	}

	if _, ok := bundle[CredsFile]; !ok {
		return "", errors.Wrapf(errors.ErrNotYetAvailable, "[Store Serialize] session %s", sessionID)
	}

	encoded, err := json.Marshal(bundle)
	if err != nil {
		return "", fmt.Errorf("[Store Serialize] marshal bundle: %w", err)
	}
	return s.prefix + base64.URLEncoding.EncodeToString(encoded), nil
}

// Decode reverses Serialize, returning the filename->JSON mapping a token
// encodes.
func (s *Store) Decode(token string) (map[string]json.RawMessage, error) {
	if s.prefix != "" {
		if !strings.HasPrefix(token, s.prefix) {
			return nil, fmt.Errorf("[Store Decode] token missing prefix %q", s.prefix)
		}
		token = strings.TrimPrefix(token, s.prefix)
	}

	decoded, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("[Store Decode] base64: %w", err)
	}

	bundle := make(map[string]json.RawMessage)
	if err := json.Unmarshal(decoded, &bundle); err != nil {
		return nil, fmt.Errorf("[Store Decode] unmarshal bundle: %w", err)
	}
	return bundle, nil
}
