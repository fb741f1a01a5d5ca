package validators

import (
	"regexp"
	"strings"

	pkgerrors "github.com/angelmondragon/swapmeet-backend/pkg/errors"
)

const maxSessionIDLen = 255

// Stripe checkout session ids: cs_test_... or cs_live_...
var sessionIDRe = regexp.MustCompile(`^cs_(test|live)_[A-Za-z0-9]+$`)

// ParseSessionID validates a checkout session id taken from the URL.
func ParseSessionID(raw string) (string, error) {
	id := strings.TrimSpace(raw)
	if id == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "session id required")
	}
	if len(id) > maxSessionIDLen || !sessionIDRe.MatchString(id) {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "malformed session id").
			WithDetails(map[string]any{"field": "sessionId"})
	}
	return id, nil
}
