package channel

import (
	"errors"
	"fmt"
	"testing"

	"github.com/danmuck/framelink/internal/testutil/testlog"
	"github.com/danmuck/framelink/value"
)

func TestClassifyFaultPrecedence(t *testing.T) {
	testlog.Start(t)
	coded := value.NewMap()
	coded.Set("error", value.String("c"))
	coded.Set("message", value.String("m"))
	codeOnly := value.NewMap()
	codeOnly.Set("error", value.String("c"))
	codeOnly.Set("detail", value.Bool(true))
	numCode := value.NewMap()
	numCode.Set("error", value.Number(5))

	cases := []struct {
		name    string
		in      any
		code    string
		message string
	}{
		{"string", "bad", RuntimeError, "bad"},
		{"fault pointer", &Fault{Code: "c", Message: "m"}, "c", "m"},
		{"fault value", Fault{Code: "c", Message: "m"}, "c", "m"},
		{"array pair", [2]string{"c", "m"}, "c", "m"},
		{"slice pair", []string{"c", "m"}, "c", "m"},
		{"slice wrong arity", []string{"a", "b", "x"}, RuntimeError, `["a","b","x"]`},
		{"value string", value.String("bad"), RuntimeError, "bad"},
		{"value pair", value.ListOf(value.String("c"), value.String("m")), "c", "m"},
		{"value pair non-string", value.ListOf(value.String("c"), value.Number(2)), RuntimeError, `["c",2]`},
		{"value map coded", value.OfMap(coded), "c", "m"},
		{"value map code only", value.OfMap(codeOnly), "c", `{"error":"c","detail":true}`},
		{"value map non-string code", value.OfMap(numCode), RuntimeError, `{"error":5}`},
		{"value null", value.Null(), RuntimeError, "null"},
		{"plain error", errors.New("x"), RuntimeError, "x"},
		{"wrapped fault", fmt.Errorf("ctx: %w", &Fault{Code: "c", Message: "m"}), "c", "m"},
		{"other", 42, RuntimeError, "42"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, message := classifyFault(tc.in)
			if code != tc.code || message != tc.message {
				t.Fatalf("classifyFault = (%q, %q), want (%q, %q)", code, message, tc.code, tc.message)
			}
		})
	}
}

func TestClassifyError(t *testing.T) {
	testlog.Start(t)
	code, message := classifyError(errors.New("plain"))
	if code != RuntimeError || message != "plain" {
		t.Fatalf("plain error: (%q, %q)", code, message)
	}
	code, message = classifyError(fmt.Errorf("wrap: %w", Faultf("c", "m %d", 1)))
	if code != "c" || message != "m 1" {
		t.Fatalf("wrapped fault: (%q, %q)", code, message)
	}
}

func TestFaultError(t *testing.T) {
	f := Faultf("quota", "over by %d", 3)
	if f.Error() != "quota: over by 3" {
		t.Fatalf("unexpected error string: %q", f.Error())
	}
}
