package session

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/netcheck-network/netcheck/pkg/dialect"
)

// fakeTransport replays canned per-command outputs. The zero reply is a bare
// prompt, which is what most config commands produce.
type fakeTransport struct {
	sent    []string
	replies map[string]string
	hang    map[string]bool
	readErr error
	closed  bool
	lastCmd string
	dials   int
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		replies: make(map[string]string),
		hang:    make(map[string]bool),
	}
}

func (f *fakeTransport) dialer() Dialer {
	return func(ctx context.Context, target Target) (Transport, error) {
		f.dials++
		f.lastCmd = ""
		return f, nil
	}
}

func (f *fakeTransport) Send(line string) error {
	f.sent = append(f.sent, line)
	f.lastCmd = line
	return nil
}

func (f *fakeTransport) ReadUntil(ctx context.Context, pattern *regexp.Regexp) (string, error) {
	if f.hang[f.lastCmd] {
		<-ctx.Done()
		return "partial output\n", ctx.Err()
	}
	if f.readErr != nil {
		return "", f.readErr
	}
	if out, ok := f.replies[f.lastCmd]; ok {
		return out, nil
	}
	if f.lastCmd == "" {
		return "login banner\nrouter-nyc# ", nil
	}
	return f.lastCmd + "\nrouter-nyc# ", nil
}

func (f *fakeTransport) Close() error {
	f.closed = true
	return nil
}

func newTestSession(t *testing.T, ft *fakeTransport) *Session {
	t.Helper()
	s, err := New(Target{
		Device: "router-nyc",
		Host:   "10.0.0.1",
		Vendor: dialect.VendorDriveNets,
	}, Options{Dialer: ft.dialer(), Timeout: time.Second})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestConnectAndExecute(t *testing.T) {
	ft := newFakeTransport()
	ft.replies["show interfaces|no-more"] = "show interfaces|no-more\r\n" +
		"Interface bundle-178 up\r\n" +
		"router-nyc# "

	s := newTestSession(t, ft)
	ctx := context.Background()

	if s.State() != StateDisconnected {
		t.Fatalf("initial state = %s", s.State())
	}
	if err := s.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if s.State() != StateOperational {
		t.Fatalf("state after connect = %s", s.State())
	}
	// Idempotent: no second dial.
	if err := s.Connect(ctx); err != nil {
		t.Fatalf("second Connect: %v", err)
	}
	if ft.dials != 1 {
		t.Errorf("dials = %d, want 1", ft.dials)
	}

	resp, err := s.Execute(ctx, "show interfaces")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if resp.Command != "show interfaces|no-more" {
		t.Errorf("pagination suffix not applied: %q", resp.Command)
	}
	if resp.Output != "Interface bundle-178 up" {
		t.Errorf("normalized output = %q", resp.Output)
	}
}

func TestExecuteDeviceError(t *testing.T) {
	ft := newFakeTransport()
	ft.replies["show foo|no-more"] = "show foo|no-more\nERROR: unknown command\nrouter-nyc# "

	s := newTestSession(t, ft)
	ctx := context.Background()
	if err := s.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	_, err := s.Execute(ctx, "show foo")
	if !errors.Is(err, ErrCommandFailed) {
		t.Fatalf("error = %v, want ErrCommandFailed", err)
	}
	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) || cmdErr.Message != "ERROR: unknown command" {
		t.Errorf("error detail = %+v", cmdErr)
	}
	// Device rejection does not kill the session.
	if s.State() != StateOperational {
		t.Errorf("state = %s, want operational", s.State())
	}
}

func TestConfigTransactionLifecycle(t *testing.T) {
	ft := newFakeTransport()
	ft.replies["commit and-exit"] = "commit and-exit\nCommit succeeded.\nrouter-nyc# "

	s := newTestSession(t, ft)
	ctx := context.Background()
	if err := s.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	if err := s.EnterConfig(ctx); err != nil {
		t.Fatalf("EnterConfig: %v", err)
	}
	if s.State() != StateConfigEditing {
		t.Fatalf("state = %s", s.State())
	}

	if err := s.EnterConfig(ctx); !errors.Is(err, ErrTransactionConflict) {
		t.Fatalf("second EnterConfig = %v, want ErrTransactionConflict", err)
	}

	if _, err := s.Execute(ctx, "set interfaces bundle-178 mtu 9100"); err != nil {
		t.Fatalf("Execute in config mode: %v", err)
	}

	if err := s.Commit(ctx); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if s.State() != StateOperational {
		t.Errorf("state after commit = %s", s.State())
	}

	// No open transaction: no-ops.
	if err := s.Commit(ctx); err != nil {
		t.Errorf("commit without transaction = %v", err)
	}
	if err := s.Rollback(ctx); err != nil {
		t.Errorf("rollback without transaction = %v", err)
	}
}

func TestCommitFailureDiscards(t *testing.T) {
	ft := newFakeTransport()
	ft.replies["commit and-exit"] = "commit and-exit\nvalidation failed for bundle-178\nrouter-nyc# "

	s := newTestSession(t, ft)
	ctx := context.Background()
	if err := s.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := s.EnterConfig(ctx); err != nil {
		t.Fatalf("EnterConfig: %v", err)
	}

	err := s.Commit(ctx)
	var commitErr *CommitError
	if !errors.As(err, &commitErr) {
		t.Fatalf("Commit = %v, want *CommitError", err)
	}

	// The candidate was discarded and the session is usable again.
	if !sentContains(ft.sent, "rollback 0") {
		t.Errorf("rollback not attempted, sent = %v", ft.sent)
	}
	if s.State() != StateOperational {
		t.Errorf("state after failed commit = %s", s.State())
	}
}

func TestDisconnectRollsBackOpenTransaction(t *testing.T) {
	ft := newFakeTransport()
	s := newTestSession(t, ft)
	ctx := context.Background()
	if err := s.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := s.EnterConfig(ctx); err != nil {
		t.Fatalf("EnterConfig: %v", err)
	}

	if err := s.Disconnect(); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	if !sentContains(ft.sent, "rollback 0") || !sentContains(ft.sent, "exit") {
		t.Errorf("rollback sequence not sent, sent = %v", ft.sent)
	}
	if !ft.closed {
		t.Error("transport not closed")
	}
	if s.State() != StateDisconnected {
		t.Errorf("state = %s", s.State())
	}
	// Disconnecting again is harmless.
	if err := s.Disconnect(); err != nil {
		t.Errorf("second Disconnect = %v", err)
	}
}

func TestExecuteTimeout(t *testing.T) {
	ft := newFakeTransport()
	ft.hang["show slow|no-more"] = true

	s := newTestSession(t, ft)
	ctx := context.Background()
	if err := s.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	_, err := s.Execute(ctx, "show slow")
	if !errors.Is(err, ErrCommandTimeout) {
		t.Fatalf("error = %v, want ErrCommandTimeout", err)
	}
	var terr *CommandTimeoutError
	if !errors.As(err, &terr) || terr.Partial == "" {
		t.Errorf("timeout error carries no partial output: %+v", terr)
	}
	// Timed-out channels cannot be resynchronized.
	if s.State() != StateDisconnected {
		t.Errorf("state = %s, want disconnected", s.State())
	}
}

func TestExecuteCancellation(t *testing.T) {
	ft := newFakeTransport()
	ft.hang["show slow|no-more"] = true

	s := newTestSession(t, ft)
	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := s.Execute(ctx, "show slow")
	if !errors.Is(err, ErrSessionLost) {
		t.Fatalf("error = %v, want ErrSessionLost", err)
	}
	if s.State() != StateDisconnected {
		t.Errorf("state = %s, want disconnected", s.State())
	}
}

func TestTransportFailure(t *testing.T) {
	ft := newFakeTransport()
	s := newTestSession(t, ft)
	ctx := context.Background()
	if err := s.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	ft.readErr = errors.New("connection reset")
	_, err := s.Execute(ctx, "show interfaces")
	if !errors.Is(err, ErrSessionLost) {
		t.Fatalf("error = %v, want ErrSessionLost", err)
	}
	if s.State() != StateDisconnected {
		t.Errorf("state = %s", s.State())
	}

	if _, err := s.Execute(ctx, "show interfaces"); !errors.Is(err, ErrInvalidState) {
		t.Errorf("execute on dead session = %v, want ErrInvalidState", err)
	}
}

func TestConnectFailure(t *testing.T) {
	dialErr := errors.New("no route to host")
	s, err := New(Target{
		Device: "router-nyc",
		Host:   "10.0.0.1",
		Vendor: dialect.VendorDriveNets,
	}, Options{
		Dialer: func(ctx context.Context, target Target) (Transport, error) {
			return nil, dialErr
		},
		Timeout: time.Second,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	err = s.Connect(context.Background())
	if !errors.Is(err, ErrConnection) {
		t.Fatalf("error = %v, want ErrConnection", err)
	}
	if s.State() != StateDisconnected {
		t.Errorf("state = %s", s.State())
	}
}

func TestAristaSetupCommands(t *testing.T) {
	ft := newFakeTransport()
	s, err := New(Target{
		Device: "ceos-1",
		Host:   "10.0.0.2",
		Vendor: dialect.VendorArista,
	}, Options{Dialer: ft.dialer(), Timeout: time.Second})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if !sentContains(ft.sent, "terminal length 0") {
		t.Errorf("setup command not sent, sent = %v", ft.sent)
	}
}

func sentContains(sent []string, cmd string) bool {
	for _, s := range sent {
		if s == cmd {
			return true
		}
	}
	return false
}
