// Package session manages the lifecycle of one interactive CLI channel to a
// network device: connect, execute, config transactions, disconnect. A
// session is a strict state machine (Disconnected, Operational,
// ConfigEditing) and serializes all public operations on an internal mutex,
// so a session shared by concurrent workers never interleaves commands on
// the wire.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/netcheck-network/netcheck/pkg/dialect"
	"github.com/netcheck-network/netcheck/pkg/util"
)

// State of a session. Connected-but-not-ready is not observable: the first
// prompt promotes the session straight to Operational.
type State string

const (
	StateDisconnected  State = "disconnected"
	StateOperational   State = "operational"
	StateConfigEditing State = "config-editing"
)

// Target identifies and authenticates one device.
type Target struct {
	Device   string
	Host     string
	Port     int
	User     string
	Password string
	Vendor   dialect.Vendor
}

// Options tune a session. Zero values give the SSH dialer and a 30s
// per-command timeout.
type Options struct {
	Dialer  Dialer
	Timeout time.Duration
}

// DefaultTimeout bounds a single command's prompt wait.
const DefaultTimeout = 30 * time.Second

// RawResponse is the outcome of one executed command: the normalized output
// ready for parsing, plus the raw bytes for evidence.
type RawResponse struct {
	Device  string
	Command string
	Output  string
	Raw     string
}

// Session is one managed CLI channel. Safe for concurrent use; operations
// serialize.
type Session struct {
	mu        sync.Mutex
	target    Target
	dialect   dialect.Dialect
	dialer    Dialer
	timeout   time.Duration
	transport Transport
	state     State
	log       *logrus.Entry
}

// New builds a session for the target. The vendor must name a registered
// dialect. The session starts Disconnected.
func New(target Target, opts Options) (*Session, error) {
	d, err := dialect.New(target.Vendor)
	if err != nil {
		return nil, err
	}
	dialer := opts.Dialer
	if dialer == nil {
		dialer = DialSSH
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &Session{
		target:  target,
		dialect: d,
		dialer:  dialer,
		timeout: timeout,
		state:   StateDisconnected,
		log:     util.WithDevice(target.Device),
	}, nil
}

// Device returns the target's device name.
func (s *Session) Device() string { return s.target.Device }

// Dialect returns the vendor dialect driving this session.
func (s *Session) Dialect() dialect.Dialect { return s.dialect }

// State reports the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Connect dials the transport, waits for the first prompt, and runs the
// dialect's setup commands (pagination off). Idempotent on an
// already-connected session.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateDisconnected {
		return nil
	}

	addr := fmt.Sprintf("%s:%d", s.target.Host, s.target.Port)
	t, err := s.dialer(ctx, s.target)
	if err != nil {
		return &ConnectionError{Target: addr, Err: err}
	}

	waitCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if _, err := t.ReadUntil(waitCtx, s.dialect.Prompt()); err != nil {
		t.Close()
		return &ConnectionError{Target: addr, Err: fmt.Errorf("waiting for prompt: %w", err)}
	}

	s.transport = t
	s.state = StateOperational

	for _, cmd := range s.dialect.SetupCommands() {
		if _, err := s.run(ctx, cmd); err != nil {
			s.teardown()
			return &ConnectionError{Target: addr, Err: err}
		}
	}

	s.log.Infof("connected (%s)", s.dialect.Vendor())
	return nil
}

// Execute sends one command and reads until the vendor prompt. Valid in
// Operational and ConfigEditing. A device-reported error surfaces as
// *CommandError and is never retried; timeouts and cancellations tear the
// session down so its state is never ambiguous.
func (s *Session) Execute(ctx context.Context, command string) (*RawResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateDisconnected {
		return nil, fmt.Errorf("%w: execute on disconnected session", ErrInvalidState)
	}

	if strings.HasPrefix(command, "show ") {
		command = s.dialect.PageSafe(command)
	}
	return s.run(ctx, command)
}

// run sends and reads one command. Callers hold s.mu.
func (s *Session) run(ctx context.Context, command string) (*RawResponse, error) {
	if err := s.transport.Send(command); err != nil {
		s.teardown()
		return nil, &SessionLostError{Device: s.target.Device, Err: err}
	}

	readCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	raw, err := s.transport.ReadUntil(readCtx, s.dialect.Prompt())
	if err != nil {
		partial := s.dialect.Normalize(command, raw)
		s.teardown()
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, &CommandTimeoutError{Command: command, Partial: partial}
		}
		return nil, &SessionLostError{Device: s.target.Device, Err: err}
	}

	resp := &RawResponse{
		Device:  s.target.Device,
		Command: command,
		Output:  s.dialect.Normalize(command, raw),
		Raw:     raw,
	}
	if msg, failed := s.dialect.ErrorText(resp.Output); failed {
		return resp, &CommandError{Command: command, Message: msg, Output: resp.Output}
	}
	s.log.Debugf("executed %q (%d bytes)", command, len(raw))
	return resp, nil
}

// EnterConfig opens a config transaction. A second EnterConfig while one is
// open fails with *TransactionConflictError.
func (s *Session) EnterConfig(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateConfigEditing:
		return &TransactionConflictError{Device: s.target.Device}
	case StateDisconnected:
		return fmt.Errorf("%w: enter-config on disconnected session", ErrInvalidState)
	}

	cmd, err := s.dialect.EnterConfig()
	if err != nil {
		return err
	}
	if _, err := s.run(ctx, cmd); err != nil {
		return err
	}
	s.state = StateConfigEditing
	s.log.Debug("config transaction opened")
	return nil
}

// Commit applies the open transaction and returns to Operational. The
// vendor's success marker is verified; on a failed commit the candidate is
// discarded before the error is returned. Commit with no open transaction is
// a no-op success.
func (s *Session) Commit(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateOperational:
		return nil
	case StateDisconnected:
		return fmt.Errorf("%w: commit on disconnected session", ErrInvalidState)
	}

	cmd, err := s.dialect.Commit()
	if err != nil {
		return err
	}
	resp, err := s.run(ctx, cmd)
	if err != nil {
		var cmdErr *CommandError
		if errors.As(err, &cmdErr) {
			s.discard(ctx)
			return &CommitError{Device: s.target.Device, Output: cmdErr.Output}
		}
		return err
	}
	if !s.dialect.CommitOK(resp.Output) {
		s.discard(ctx)
		return &CommitError{Device: s.target.Device, Output: resp.Output}
	}
	s.state = StateOperational
	s.log.Info("config transaction committed")
	return nil
}

// Rollback discards the open transaction and returns to Operational.
// Rollback with no open transaction is a no-op success.
func (s *Session) Rollback(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateOperational:
		return nil
	case StateDisconnected:
		return fmt.Errorf("%w: rollback on disconnected session", ErrInvalidState)
	}
	return s.discard(ctx)
}

// discard runs the vendor's rollback sequence and restores Operational.
// Callers hold s.mu.
func (s *Session) discard(ctx context.Context) error {
	cmds, err := s.dialect.Rollback()
	if err != nil {
		return err
	}
	for _, cmd := range cmds {
		if _, err := s.run(ctx, cmd); err != nil {
			return err
		}
	}
	s.state = StateOperational
	s.log.Info("config transaction rolled back")
	return nil
}

// ExitConfig leaves config mode without committing. No-op outside a
// transaction.
func (s *Session) ExitConfig(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateOperational:
		return nil
	case StateDisconnected:
		return fmt.Errorf("%w: exit-config on disconnected session", ErrInvalidState)
	}

	cmd, err := s.dialect.ExitConfig()
	if err != nil {
		return err
	}
	if _, err := s.run(ctx, cmd); err != nil {
		return err
	}
	s.state = StateOperational
	return nil
}

// Disconnect closes the session from any state. An open transaction is
// rolled back first; the attempt is mandatory, its failure does not stop the
// teardown.
func (s *Session) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateDisconnected {
		return nil
	}
	if s.state == StateConfigEditing {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		if err := s.discard(ctx); err != nil {
			s.log.Warnf("rollback before disconnect failed: %v", err)
		}
		cancel()
	}
	return s.teardown()
}

// teardown closes the transport and marks the session Disconnected. Callers
// hold s.mu.
func (s *Session) teardown() error {
	var err error
	if s.transport != nil {
		err = s.transport.Close()
		s.transport = nil
	}
	s.state = StateDisconnected
	s.log.Info("disconnected")
	return err
}
