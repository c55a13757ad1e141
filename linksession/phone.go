package linksession

import (
	"regexp"
	"strings"

	"github.com/jrsteele09/go-link-server/internal/errors"
)

// phoneRegexp matches a country-code-prefixed phone number with no
// separators, e.g. "918888888888".
var phoneRegexp = regexp.MustCompile(`^\d{8,15}$`)

// ValidatePhone checks the phone number shape required for pairing-code
// linking. Validation happens before any connection is opened.
func ValidatePhone(phone string) error {
	if !phoneRegexp.MatchString(phone) {
		return errors.Wrapf(errors.ErrInvalidPhone, "[ValidatePhone] %q", phone)
	}
	return nil
}

// FormatPairCode groups the raw pairing code digits in fours, joined by a
// dash ("12345678" -> "1234-5678"). A code the library already formatted is
// passed through unchanged.
func FormatPairCode(raw string) string {
	if strings.Contains(raw, "-") {
		return raw
	}
	var groups []string
	for i := 0; i < len(raw); i += 4 {
		end := i + 4
		if end > len(raw) {
			end = len(raw)
		}
		groups = append(groups, raw[i:end])
	}
	return strings.Join(groups, "-")
}
