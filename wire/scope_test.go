package wire

import (
	"errors"
	"testing"

	"github.com/danmuck/framelink/internal/testutil/testlog"
)

func TestValidateScope(t *testing.T) {
	testlog.Start(t)
	if err := ValidateScope(""); err != nil {
		t.Fatalf("empty scope should be valid: %v", err)
	}
	if err := ValidateScope("testScope"); err != nil {
		t.Fatalf("plain scope should be valid: %v", err)
	}
	if err := ValidateScope("a::b"); !errors.Is(err, ErrInvalidScope) {
		t.Fatalf("expected ErrInvalidScope, got %v", err)
	}
}

func TestJoinSplitScope(t *testing.T) {
	testlog.Start(t)
	if got := JoinScope("", "m"); got != "m" {
		t.Fatalf("empty scope join: %q", got)
	}
	if got := JoinScope("s", "m"); got != "s::m" {
		t.Fatalf("scoped join: %q", got)
	}

	scope, name := SplitScope("s::m")
	if scope != "s" || name != "m" {
		t.Fatalf("split: scope=%q name=%q", scope, name)
	}
	scope, name = SplitScope("m")
	if scope != "" || name != "m" {
		t.Fatalf("unscoped split: scope=%q name=%q", scope, name)
	}
}

func TestSplitScopeFirstSeparatorWins(t *testing.T) {
	testlog.Start(t)
	scope, name := SplitScope("a::b::c")
	if scope != "a" || name != "b::c" {
		t.Fatalf("split: scope=%q name=%q", scope, name)
	}
}
