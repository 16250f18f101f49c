package channel

import (
	"sync"

	"github.com/danmuck/framelink/value"
	"github.com/danmuck/framelink/wire"
)

// Trans is the handle a request handler answers its transaction through.
// Terminal operations remove the transaction before transmitting, so a
// second terminal call fails with ErrUnknownTransaction.
type Trans struct {
	ch *Channel
	id int64

	mu        sync.Mutex
	delayed   bool
	completed bool
}

// ID returns the wire transaction id.
func (t *Trans) ID() int64 { return t.id }

// Invoke transmits one callback invocation for a declared path. The
// transaction stays open; more invocations or a terminal may follow.
func (t *Trans) Invoke(path string, v value.Value) error {
	if err := t.ch.table.checkInvoke(t.id, path); err != nil {
		return err
	}
	return t.ch.post(wire.Message{ID: t.id, HasID: true, Callback: path, Params: v})
}

// Complete answers the transaction with a result. The handle reads
// completed afterward even when the terminal had already fired.
func (t *Trans) Complete(v value.Value) error {
	t.mu.Lock()
	t.completed = true
	t.mu.Unlock()
	if err := t.ch.table.takeInbound(t.id); err != nil {
		return err
	}
	return t.ch.post(wire.Message{ID: t.id, HasID: true, Result: v, HasResult: true})
}

// Fail answers the transaction with a coded error.
func (t *Trans) Fail(code, message string) error {
	t.mu.Lock()
	t.completed = true
	t.mu.Unlock()
	if err := t.ch.table.takeInbound(t.id); err != nil {
		return err
	}
	return t.ch.post(wire.Message{ID: t.id, HasID: true, Error: code, HasError: true, ErrMessage: message})
}

// SetDelayReturn stops the dispatcher from auto-completing with the
// handler's return value; the transaction stays open for a later Complete
// or Fail from any turn.
func (t *Trans) SetDelayReturn(delay bool) {
	t.mu.Lock()
	t.delayed = delay
	t.mu.Unlock()
}

// DelayReturn reports the current delay flag.
func (t *Trans) DelayReturn() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.delayed
}

// Completed reports whether a terminal operation was attempted on this
// handle.
func (t *Trans) Completed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.completed
}
