package wire

import (
	"errors"
	"fmt"
	"math"

	"github.com/danmuck/framelink/value"
)

var ErrParse = errors.New("wire: malformed message")

// Field names are exact and case-sensitive on the wire.
const (
	FieldID        = "id"
	FieldMethod    = "method"
	FieldCallback  = "callback"
	FieldCallbacks = "callbacks"
	FieldParams    = "params"
	FieldResult    = "result"
	FieldError     = "error"
	FieldMessage   = "message"
)

// Kind is the routing class of a decoded message.
type Kind int

const (
	KindUnclassified Kind = iota
	KindRequest
	KindCallbackInvocation
	KindResponse
	KindNotification
)

func (k Kind) String() string {
	switch k {
	case KindRequest:
		return "request"
	case KindCallbackInvocation:
		return "callback"
	case KindResponse:
		return "response"
	case KindNotification:
		return "notification"
	}
	return "unclassified"
}

// Message is one decoded wire payload. JSON null and absent are different
// things on this protocol, so presence is tracked next to the nullable
// fields. Method and Callback count as present only when non-empty.
type Message struct {
	ID         int64
	HasID      bool
	Method     string
	Callback   string
	Callbacks  []string
	Params     value.Value
	Result     value.Value
	HasResult  bool
	Error      string
	HasError   bool
	ErrMessage string
}

// Kind classifies in precedence order: request, callback invocation,
// response, notification. Anything else is unclassifiable.
func (m Message) Kind() Kind {
	switch {
	case m.HasID && m.Method != "":
		return KindRequest
	case m.HasID && m.Callback != "":
		return KindCallbackInvocation
	case m.HasID && (m.HasResult || m.HasError):
		return KindResponse
	case m.Method != "":
		return KindNotification
	}
	return KindUnclassified
}

// Encode renders m as one JSON object, fields in the canonical order id,
// method, callback, callbacks, params, result, error, message. Absent
// fields are omitted; a null params is treated as absent, while a null
// result is kept whenever HasResult is set.
func (m Message) Encode() ([]byte, error) {
	obj := value.NewMap()
	if m.HasID {
		obj.Set(FieldID, value.Int(m.ID))
	}
	if m.Method != "" {
		obj.Set(FieldMethod, value.String(m.Method))
	}
	if m.Callback != "" {
		obj.Set(FieldCallback, value.String(m.Callback))
	}
	if len(m.Callbacks) > 0 {
		items := make([]value.Value, 0, len(m.Callbacks))
		for _, p := range m.Callbacks {
			items = append(items, value.String(p))
		}
		obj.Set(FieldCallbacks, value.ListOf(items...))
	}
	if !m.Params.IsNull() {
		obj.Set(FieldParams, m.Params)
	}
	if m.HasResult {
		obj.Set(FieldResult, m.Result)
	}
	if m.HasError {
		obj.Set(FieldError, value.String(m.Error))
		obj.Set(FieldMessage, value.String(m.ErrMessage))
	}
	return value.Marshal(value.OfMap(obj))
}

// Decode parses one raw payload. It fails with ErrParse when the document
// is not an object, when a typed field carries the wrong type, or when id
// is not an integer.
func Decode(payload []byte) (Message, error) {
	v, err := value.Unmarshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if v.Kind() != value.KindMap {
		return Message{}, fmt.Errorf("%w: payload is %v, not an object", ErrParse, v.Kind())
	}
	obj := v.Map()

	var m Message
	if raw, ok := obj.Get(FieldID); ok {
		if raw.Kind() != value.KindNumber {
			return Message{}, fmt.Errorf("%w: id is %v, not a number", ErrParse, raw.Kind())
		}
		n := raw.Num()
		if math.IsInf(n, 0) || n != math.Trunc(n) {
			return Message{}, fmt.Errorf("%w: id %v is not an integer", ErrParse, n)
		}
		m.ID = int64(n)
		m.HasID = true
	}
	if raw, ok := obj.Get(FieldMethod); ok {
		if raw.Kind() != value.KindString {
			return Message{}, fmt.Errorf("%w: method is %v, not a string", ErrParse, raw.Kind())
		}
		m.Method = raw.Str()
	}
	if raw, ok := obj.Get(FieldCallback); ok {
		if raw.Kind() != value.KindString {
			return Message{}, fmt.Errorf("%w: callback is %v, not a string", ErrParse, raw.Kind())
		}
		m.Callback = raw.Str()
	}
	if raw, ok := obj.Get(FieldCallbacks); ok {
		if raw.Kind() != value.KindList {
			return Message{}, fmt.Errorf("%w: callbacks is %v, not a list", ErrParse, raw.Kind())
		}
		for _, item := range raw.List() {
			if item.Kind() != value.KindString {
				return Message{}, fmt.Errorf("%w: callbacks entry is %v, not a string", ErrParse, item.Kind())
			}
			m.Callbacks = append(m.Callbacks, item.Str())
		}
	}
	if raw, ok := obj.Get(FieldParams); ok {
		m.Params = raw
	}
	if raw, ok := obj.Get(FieldResult); ok {
		m.Result = raw
		m.HasResult = true
	}
	if raw, ok := obj.Get(FieldError); ok {
		if raw.Kind() != value.KindString {
			return Message{}, fmt.Errorf("%w: error is %v, not a string", ErrParse, raw.Kind())
		}
		m.Error = raw.Str()
		m.HasError = true
	}
	if raw, ok := obj.Get(FieldMessage); ok {
		if raw.Kind() != value.KindString {
			return Message{}, fmt.Errorf("%w: message is %v, not a string", ErrParse, raw.Kind())
		}
		m.ErrMessage = raw.Str()
	}
	return m, nil
}
