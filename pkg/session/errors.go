package session

import (
	"errors"
	"fmt"
)

// Sentinel errors for session failures
var (
	ErrConnection          = errors.New("connection failed")
	ErrSessionLost         = errors.New("session lost")
	ErrCommandTimeout      = errors.New("command timed out")
	ErrCommandFailed       = errors.New("device reported command error")
	ErrTransactionConflict = errors.New("config transaction already open")
	ErrInvalidState        = errors.New("operation invalid in current session state")
)

// ConnectionError reports a failure to establish the transport or observe
// the first prompt.
type ConnectionError struct {
	Target string
	Err    error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connecting to %s: %v", e.Target, e.Err)
}

func (e *ConnectionError) Unwrap() error { return ErrConnection }

// SessionLostError reports a transport failure mid-session. The session is
// Disconnected afterwards; the caller must reconnect to continue.
type SessionLostError struct {
	Device string
	Err    error
}

func (e *SessionLostError) Error() string {
	return fmt.Sprintf("session to %s lost: %v", e.Device, e.Err)
}

func (e *SessionLostError) Unwrap() error { return ErrSessionLost }

// CommandTimeoutError reports a command whose prompt never returned within
// the deadline. Partial carries whatever output had accumulated.
type CommandTimeoutError struct {
	Command string
	Partial string
}

func (e *CommandTimeoutError) Error() string {
	return fmt.Sprintf("command %q timed out", e.Command)
}

func (e *CommandTimeoutError) Unwrap() error { return ErrCommandTimeout }

// CommandError reports a device-side error marker in command output. The
// command completed at the CLI level; the device rejected it. Never retried.
type CommandError struct {
	Command string
	Message string
	Output  string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %q failed: %s", e.Command, e.Message)
}

func (e *CommandError) Unwrap() error { return ErrCommandFailed }

// TransactionConflictError reports an EnterConfig while a transaction is
// already open on the session.
type TransactionConflictError struct {
	Device string
}

func (e *TransactionConflictError) Error() string {
	return fmt.Sprintf("device %s already has an open config transaction", e.Device)
}

func (e *TransactionConflictError) Unwrap() error { return ErrTransactionConflict }

// CommitError reports a commit whose output lacked the vendor success
// marker. The candidate was discarded where the vendor allows it.
type CommitError struct {
	Device string
	Output string
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("commit on %s failed: %s", e.Device, e.Output)
}

func (e *CommitError) Unwrap() error { return ErrCommandFailed }
