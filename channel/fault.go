package channel

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/danmuck/framelink/value"
)

// RuntimeError is the error code assigned to faults that carry no code of
// their own.
const RuntimeError = "runtime_error"

// Fault is the typed form of a request handler failure. Returning one (or
// panicking with one) sends its code and message to the remote caller.
type Fault struct {
	Code    string
	Message string
}

func (f *Fault) Error() string {
	return f.Code + ": " + f.Message
}

// Faultf builds a fault with a formatted message.
func Faultf(code, format string, args ...any) *Fault {
	return &Fault{Code: code, Message: fmt.Sprintf(format, args...)}
}

// classifyError maps a handler's returned error to the (code, message)
// pair bound for the remote caller.
func classifyError(err error) (string, string) {
	var f *Fault
	if errors.As(err, &f) {
		return f.Code, f.Message
	}
	return RuntimeError, err.Error()
}

// classifyFault maps a value recovered from a handler panic. Precedence: a
// plain string; a two-element string pair; a structured value with a
// string "error" field; anything else becomes a runtime_error carrying a
// best-effort rendering of the value.
func classifyFault(v any) (string, string) {
	switch f := v.(type) {
	case string:
		return RuntimeError, f
	case *Fault:
		return f.Code, f.Message
	case Fault:
		return f.Code, f.Message
	case [2]string:
		return f[0], f[1]
	case []string:
		if len(f) == 2 {
			return f[0], f[1]
		}
	case value.Value:
		return classifyFaultValue(f)
	case error:
		return classifyError(f)
	}
	return RuntimeError, renderAny(v)
}

func classifyFaultValue(v value.Value) (string, string) {
	switch v.Kind() {
	case value.KindString:
		return RuntimeError, v.Str()
	case value.KindList:
		items := v.List()
		if len(items) == 2 && items[0].Kind() == value.KindString && items[1].Kind() == value.KindString {
			return items[0].Str(), items[1].Str()
		}
	case value.KindMap:
		if code, ok := v.Map().Get("error"); ok && code.Kind() == value.KindString {
			if msg, ok := v.Map().Get("message"); ok && msg.Kind() == value.KindString {
				return code.Str(), msg.Str()
			}
			return code.Str(), renderValue(v)
		}
	}
	return RuntimeError, renderValue(v)
}

func renderValue(v value.Value) string {
	b, err := value.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

func renderAny(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
