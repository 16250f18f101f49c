package transport

import "sync"

// Default origins stamped by the two ends of a Pipe.
const (
	LeftOrigin  = "http://left.local"
	RightOrigin = "http://right.local"
)

// MemoryPort is one end of a synchronous in-process pair. Send delivers to
// the peer's receiver in the caller's goroutine; events arriving before a
// receiver is attached are buffered and replayed on attach.
type MemoryPort struct {
	mu      sync.Mutex
	origin  string
	peer    *MemoryPort
	recv    Receiver
	backlog []Event
	closed  bool
}

// Pipe links two in-memory ports. The ports stamp LeftOrigin and
// RightOrigin on their outbound events; SetOrigin overrides.
func Pipe() (*MemoryPort, *MemoryPort) {
	left := &MemoryPort{origin: LeftOrigin}
	right := &MemoryPort{origin: RightOrigin}
	left.peer = right
	right.peer = left
	return left, right
}

// SetOrigin changes the origin stamped on this side's outbound events.
func (p *MemoryPort) SetOrigin(origin string) {
	p.mu.Lock()
	p.origin = origin
	p.mu.Unlock()
}

func (p *MemoryPort) Send(payload string) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPortClosed
	}
	origin := p.origin
	peer := p.peer
	p.mu.Unlock()
	peer.deliver(Event{Origin: origin, Payload: payload})
	return nil
}

// deliver runs in the sender's goroutine. The lock is released before the
// receiver fires so the receiver may send back through this pair.
func (p *MemoryPort) deliver(ev Event) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	if p.recv == nil {
		p.backlog = append(p.backlog, ev)
		p.mu.Unlock()
		return
	}
	recv := p.recv
	p.mu.Unlock()
	recv(ev)
}

// SetReceiver attaches the consumer and replays, in arrival order, anything
// buffered while no receiver was attached.
func (p *MemoryPort) SetReceiver(r Receiver) {
	p.mu.Lock()
	p.recv = r
	backlog := p.backlog
	p.backlog = nil
	p.mu.Unlock()
	if r == nil {
		return
	}
	for _, ev := range backlog {
		r(ev)
	}
}

func (p *MemoryPort) Close() error {
	p.mu.Lock()
	p.closed = true
	p.recv = nil
	p.backlog = nil
	p.mu.Unlock()
	return nil
}
