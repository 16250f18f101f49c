package channel

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/framelink/wire"
)

var ErrInvalidConfig = errors.New("channel: invalid config")

// Role fixes which half of the transaction id space a side allocates from
// and whether it starts ready.
type Role int

const (
	// RoleHost allocates even ids and holds outbound traffic until the
	// peer's ready ping arrives.
	RoleHost Role = iota
	// RoleGuest allocates odd ids and starts ready; conventionally the
	// side living inside the context the host spawned.
	RoleGuest
)

func (r Role) String() string {
	switch r {
	case RoleHost:
		return "host"
	case RoleGuest:
		return "guest"
	}
	return "invalid"
}

// Config carries the construction-time settings for one channel.
type Config struct {
	// PeerOrigin is "*" or an http(s) origin. Inbound events declaring any
	// other origin are dropped unseen.
	PeerOrigin string
	// Scope namespaces method names on the wire; empty means unscoped.
	Scope string
	// Role selects the id parity half and the initial readiness state.
	Role Role
	// OnReady fires once, after the readiness handshake completes and the
	// pending backlog has flushed.
	OnReady func(*Channel)
	// Logger overrides the global logger when set.
	Logger *zerolog.Logger
}

// Validate normalizes the config in place: the peer origin is reduced to
// its lowercased scheme://host[:port] form.
func (c *Config) Validate() error {
	if c.PeerOrigin == "" {
		return fmt.Errorf("%w: peer origin required", ErrInvalidConfig)
	}
	origin, err := wire.ParseOrigin(c.PeerOrigin)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	c.PeerOrigin = origin
	if err := wire.ValidateScope(c.Scope); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.Role != RoleHost && c.Role != RoleGuest {
		return fmt.Errorf("%w: unknown role %d", ErrInvalidConfig, int(c.Role))
	}
	return nil
}

func (c *Config) logger() zerolog.Logger {
	if c.Logger != nil {
		return *c.Logger
	}
	return log.Logger
}
