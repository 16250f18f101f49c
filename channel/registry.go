package channel

import (
	"errors"
	"fmt"
	"sync"

	"github.com/danmuck/framelink/value"
)

var (
	ErrAlreadyBound    = errors.New("channel: method already bound")
	ErrInvalidArgument = errors.New("channel: invalid argument")
)

// Handler services one inbound request or notification. For notifications
// t is nil and the returns are discarded. For requests the returned value
// completes the transaction unless delayReturn was set or the handle was
// already answered; a returned error or a panic travels to the remote
// caller as a coded fault.
type Handler func(t *Trans, params value.Value) (value.Value, error)

type registry struct {
	mu       sync.Mutex
	handlers map[string]Handler
}

func newRegistry() *registry {
	return &registry{handlers: make(map[string]Handler)}
}

func (r *registry) bind(name string, h Handler) error {
	if name == "" {
		return fmt.Errorf("%w: empty method name", ErrInvalidArgument)
	}
	if h == nil {
		return fmt.Errorf("%w: nil handler for %q", ErrInvalidArgument, name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[name]; exists {
		return fmt.Errorf("%w: %q", ErrAlreadyBound, name)
	}
	r.handlers[name] = h
	return nil
}

// unbind is idempotent; removing an absent name is a no-op.
func (r *registry) unbind(name string) {
	r.mu.Lock()
	delete(r.handlers, name)
	r.mu.Unlock()
}

func (r *registry) lookup(name string) (Handler, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.handlers[name]
	return h, ok
}
