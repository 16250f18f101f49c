package channel

import (
	"errors"
	"sync"

	"github.com/danmuck/framelink/internal/observability"
	"github.com/danmuck/framelink/value"
)

var (
	ErrUnknownTransaction = errors.New("channel: unknown transaction")
	ErrWrongDirection     = errors.New("channel: wrong direction for transaction")
	ErrInvalidCallback    = errors.New("channel: callback not declared by transaction")
)

type direction int

const (
	outbound direction = iota
	inbound
)

func (d direction) String() string {
	if d == inbound {
		return "inbound"
	}
	return "outbound"
}

// entry is one live transaction. Outbound entries hold the local
// continuations and the invocables extracted from the query params;
// inbound entries hold the callback paths the peer declared.
type entry struct {
	id       int64
	dir      direction
	success  func(value.Value)
	failure  func(code, message string)
	funcs    map[string]value.Func
	declared map[string]struct{}
}

// table tracks live transactions for one channel. An id stays present from
// creation until exactly one terminal event removes it; callback
// invocations are not terminal.
type table struct {
	mu      sync.Mutex
	entries map[int64]*entry
}

func newTable() *table {
	return &table{entries: make(map[int64]*entry)}
}

func (t *table) createOutbound(id int64, success func(value.Value), failure func(string, string), funcs map[string]value.Func) {
	t.mu.Lock()
	_, existed := t.entries[id]
	t.entries[id] = &entry{id: id, dir: outbound, success: success, failure: failure, funcs: funcs}
	t.mu.Unlock()
	if !existed {
		observability.RecordTransactionOpened()
	}
}

func (t *table) createInbound(id int64, declared []string) {
	set := make(map[string]struct{}, len(declared))
	for _, p := range declared {
		set[p] = struct{}{}
	}
	t.mu.Lock()
	_, existed := t.entries[id]
	t.entries[id] = &entry{id: id, dir: inbound, declared: set}
	t.mu.Unlock()
	if !existed {
		observability.RecordTransactionOpened()
	}
}

// callbackFunc resolves the local invocable for a path declared by an
// outbound transaction. The reason names the failed gate for drop logs.
func (t *table) callbackFunc(id int64, path string) (value.Func, string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[id]
	if !ok {
		return nil, "unknown"
	}
	if e.dir != outbound {
		return nil, "direction"
	}
	fn, ok := e.funcs[path]
	if !ok {
		return nil, "undeclared"
	}
	return fn, ""
}

// takeOutbound removes and returns an outbound entry, or reports why it
// could not. Wrong-direction entries stay in the table.
func (t *table) takeOutbound(id int64) (*entry, string) {
	t.mu.Lock()
	e, ok := t.entries[id]
	if !ok {
		t.mu.Unlock()
		return nil, "unknown"
	}
	if e.dir != outbound {
		t.mu.Unlock()
		return nil, "direction"
	}
	delete(t.entries, id)
	t.mu.Unlock()
	observability.RecordTransactionClosed()
	return e, ""
}

// takeInbound removes an inbound entry ahead of a terminal send.
func (t *table) takeInbound(id int64) error {
	t.mu.Lock()
	e, ok := t.entries[id]
	if !ok {
		t.mu.Unlock()
		return ErrUnknownTransaction
	}
	if e.dir != inbound {
		t.mu.Unlock()
		return ErrWrongDirection
	}
	delete(t.entries, id)
	t.mu.Unlock()
	observability.RecordTransactionClosed()
	return nil
}

// checkInvoke verifies a callback invocation against a live inbound entry.
func (t *table) checkInvoke(id int64, path string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[id]
	if !ok {
		return ErrUnknownTransaction
	}
	if e.dir != inbound {
		return ErrWrongDirection
	}
	if _, ok := e.declared[path]; !ok {
		return ErrInvalidCallback
	}
	return nil
}

func (t *table) size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

func (t *table) clear() {
	t.mu.Lock()
	n := len(t.entries)
	t.entries = make(map[int64]*entry)
	t.mu.Unlock()
	for i := 0; i < n; i++ {
		observability.RecordTransactionClosed()
	}
}
