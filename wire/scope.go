package wire

import (
	"errors"
	"fmt"
	"strings"
)

// ScopeSep separates a namespace scope from the method name proper.
const ScopeSep = "::"

var ErrInvalidScope = errors.New("wire: scope must not contain separator")

// ValidateScope rejects scopes that could not be split back apart. Empty
// means unscoped and is valid.
func ValidateScope(scope string) error {
	if strings.Contains(scope, ScopeSep) {
		return fmt.Errorf("%w: %q", ErrInvalidScope, scope)
	}
	return nil
}

// JoinScope prefixes method with scope. An empty scope returns the method
// unchanged.
func JoinScope(scope, method string) string {
	if scope == "" {
		return method
	}
	return scope + ScopeSep + method
}

// SplitScope splits a wire method name on the first separator. A name with
// no separator has an empty scope.
func SplitScope(method string) (scope, name string) {
	if i := strings.Index(method, ScopeSep); i >= 0 {
		return method[:i], method[i+len(ScopeSep):]
	}
	return "", method
}
