package credstore

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/jrsteele09/go-link-server/internal/errors"
)

var shortCodeRegexp = regexp.MustCompile(`^\d{4}-\d{4}$`)

// ShortCodeStore is a flat-file store of credential bundles keyed by an
// issued short retrieval code (XXXX-XXXX).
type ShortCodeStore struct {
	root string
}

// NewShortCodeStore creates a short-code store rooted at <dataFolder>/codes.
func NewShortCodeStore(dataFolder string) *ShortCodeStore {
	return &ShortCodeStore{root: filepath.Join(dataFolder, "codes")}
}

// Put stores a bundle's JSON serialization under a freshly issued code.
func (s *ShortCodeStore) Put(bundle []byte) (string, error) {
	if !json.Valid(bundle) {
		return "", fmt.Errorf("[ShortCodeStore Put] bundle is not valid JSON")
	}
	if err := os.MkdirAll(s.root, 0o700); err != nil {
		return "", fmt.Errorf("[ShortCodeStore Put] create %s: %w", s.root, err)
	}

	// O_EXCL guards against issuing the same code twice.
	for attempt := 0; attempt < 10; attempt++ {
		code, err := generateShortCode()
		if err != nil {
			return "", fmt.Errorf("[ShortCodeStore Put] generate code: %w", err)
		}

		f, err := os.OpenFile(s.path(code), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
		if os.IsExist(err) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("[ShortCodeStore Put] create code file: %w", err)
		}
		if _, err := f.Write(bundle); err != nil {
			f.Close()
			return "", fmt.Errorf("[ShortCodeStore Put] write code file: %w", err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("[ShortCodeStore Put] close code file: %w", err)
		}
		return code, nil
	}
	return "", fmt.Errorf("[ShortCodeStore Put] could not issue a unique code")
}

// Get returns the bundle JSON stored under code, or ErrCodeNotFound.
func (s *ShortCodeStore) Get(code string) ([]byte, error) {
	if !shortCodeRegexp.MatchString(code) {
		return nil, errors.Wrapf(errors.ErrCodeNotFound, "[ShortCodeStore Get] malformed code %q", code)
	}
	data, err := os.ReadFile(s.path(code))
	if os.IsNotExist(err) {
		return nil, errors.Wrapf(errors.ErrCodeNotFound, "[ShortCodeStore Get] code %s", code)
	}
	if err != nil {
		return nil, fmt.Errorf("[ShortCodeStore Get] read code file: %w", err)
	}
	return data, nil
}

func (s *ShortCodeStore) path(code string) string {
	return filepath.Join(s.root, strings.ReplaceAll(code, "-", "")+".json")
}

func generateShortCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(100_000_000))
	if err != nil {
		return "", err
	}
	digits := fmt.Sprintf("%08d", n.Int64())
	return digits[:4] + "-" + digits[4:], nil
}
