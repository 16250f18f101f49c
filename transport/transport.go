package transport

import "errors"

var ErrPortClosed = errors.New("transport: port closed")

// Event is one raw delivery from the far side.
type Event struct {
	Origin  string
	Payload string
}

// Receiver consumes one inbound event. The return value reports whether the
// event was claimed, a courtesy to transports that propagate unclaimed
// events elsewhere.
type Receiver func(Event) bool

// Port is one attachment point to an opaque string transport. Inbound events
// are pushed into the receiver; nothing polls. Ports make no delivery or
// ordering promises across independent sends.
type Port interface {
	Send(payload string) error
	SetReceiver(Receiver)
	Close() error
}
