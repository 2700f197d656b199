package session

import (
	"context"
	"regexp"
)

// Transport is one interactive CLI channel to a device. Implementations are
// not safe for concurrent use; the session serializes access.
type Transport interface {
	// Send writes a line (newline appended) to the device.
	Send(line string) error

	// ReadUntil accumulates output until the pattern matches the tail of
	// the buffer or the context expires. On context expiry it returns the
	// partial output along with the context error. Any other error means
	// the channel is dead.
	ReadUntil(ctx context.Context, pattern *regexp.Regexp) (string, error)

	Close() error
}

// Dialer opens a transport to a target. Injectable so tests substitute an
// in-memory fake for the SSH implementation.
type Dialer func(ctx context.Context, target Target) (Transport, error)
