package main

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/netcheck-network/netcheck/pkg/session"
)

type fakeTransport struct {
	lastCmd string
	closed  bool
}

func (f *fakeTransport) Send(line string) error {
	f.lastCmd = line
	return nil
}

func (f *fakeTransport) ReadUntil(ctx context.Context, pattern *regexp.Regexp) (string, error) {
	if f.lastCmd == "" {
		return "router-nyc# ", nil
	}
	return f.lastCmd + "\nrouter-nyc# ", nil
}

func (f *fakeTransport) Close() error {
	f.closed = true
	return nil
}

const runTestInventory = `
devices:
  router-nyc:
    host: 10.0.0.1
    user: netops
    password: secret
    vendor: drivenets
`

// One assert step that cannot pass against the echo-only fake.
const runTestSuite = `
name: exit-code
steps:
  - name: check model
    action: assert
    device: router-nyc
    command: "show version"
    expect:
      name: version
      kind: tree
      tree:
        children:
          - match: "Model *"
            required: true
`

// A failing run must still disconnect its sessions before the exit code is
// decided.
func TestExecuteRunClosesSessions(t *testing.T) {
	dir := t.TempDir()
	invPath := filepath.Join(dir, "inventory.yaml")
	suitePath := filepath.Join(dir, "suite.yaml")
	if err := os.WriteFile(invPath, []byte(runTestInventory), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(suitePath, []byte(runTestSuite), 0o644); err != nil {
		t.Fatal(err)
	}

	ft := &fakeTransport{}
	dialer := func(ctx context.Context, target session.Target) (session.Transport, error) {
		ft.lastCmd = ""
		return ft, nil
	}

	report, err := executeRun(context.Background(), runConfig{
		suitePath:  suitePath,
		invPath:    invPath,
		invPathSet: true,
		timeout:    time.Second,
		dialer:     dialer,
	})
	if err != nil {
		t.Fatalf("executeRun: %v", err)
	}
	if report == nil || report.OK() {
		t.Fatalf("report = %+v, want a failed assertion", report)
	}
	if !ft.closed {
		t.Error("session transport still open after the run returned")
	}
}
