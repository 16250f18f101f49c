package wire

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Wildcard accepts any sender origin.
const Wildcard = "*"

var ErrInvalidOrigin = errors.New("wire: invalid origin")

// Scheme must already be lowercase; the host may be mixed case and is
// normalized. Anything after scheme://host[:port] is discarded.
var originPattern = regexp.MustCompile(`^https?://[-a-zA-Z0-9_.]+(:[0-9]+)?`)

// ParseOrigin validates and normalizes a configured peer origin: the
// wildcard, or an http(s) origin reduced to its lowercased
// scheme://host[:port] prefix.
func ParseOrigin(raw string) (string, error) {
	if raw == Wildcard {
		return Wildcard, nil
	}
	m := originPattern.FindString(raw)
	if m == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidOrigin, raw)
	}
	return strings.ToLower(m), nil
}

// OriginAllowed reports whether a sender's declared origin passes the
// configured peer origin. Comparison is exact; only the wildcard relaxes it.
func OriginAllowed(configured, declared string) bool {
	return configured == Wildcard || declared == configured
}
