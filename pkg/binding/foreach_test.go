package binding

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/netcheck-network/netcheck/pkg/decipher"
	"github.com/netcheck-network/netcheck/pkg/session"
)

type fakeExec struct {
	mu       sync.Mutex
	commands []string
	outputs  map[string]string
	errs     map[string]error
	block    map[string]bool // commands that hang until the context ends
}

func newFakeExec() *fakeExec {
	return &fakeExec{
		outputs: make(map[string]string),
		errs:    make(map[string]error),
		block:   make(map[string]bool),
	}
}

func (f *fakeExec) Execute(ctx context.Context, command string) (*session.RawResponse, error) {
	f.mu.Lock()
	f.commands = append(f.commands, command)
	f.mu.Unlock()
	if err := f.errs[command]; err != nil {
		return nil, err
	}
	if f.block[command] {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return &session.RawResponse{
		Device:  "router-nyc",
		Command: command,
		Output:  f.outputs[command],
	}, nil
}

func TestForEachOneCommandPerDistinctValue(t *testing.T) {
	st := NewStore()
	st.Add("iface", "bundle-178", "bundle-247", "bundle-178")
	st.Add("instance", "33287")

	exec := newFakeExec()
	res, err := st.ForEach(context.Background(), exec, "iface",
		"show isis interfaces instance {instance} interface {iface}", nil, ForEachOptions{})
	if err != nil {
		t.Fatalf("ForEach: %v", err)
	}

	want := []string{
		"show isis interfaces instance 33287 interface bundle-178",
		"show isis interfaces instance 33287 interface bundle-247",
	}
	if !reflect.DeepEqual(exec.commands, want) {
		t.Errorf("commands = %v, want %v", exec.commands, want)
	}
	if len(res.Elements) != 2 || res.Elements[1].Value != "bundle-247" {
		t.Errorf("elements = %+v", res.Elements)
	}
	if failed := res.Failed(); failed != nil {
		t.Errorf("failed = %+v", failed)
	}
}

func TestForEachRecordsPerElementFailure(t *testing.T) {
	st := NewStore()
	st.Add("iface", "bundle-178", "bundle-247", "bundle-300")

	exec := newFakeExec()
	bad := errors.New("device unreachable")
	exec.errs["ping {x}"] = bad
	exec.errs["show interface bundle-247"] = bad

	res, err := st.ForEach(context.Background(), exec, "iface",
		"show interface {iface}", nil, ForEachOptions{})
	if err != nil {
		t.Fatalf("ForEach: %v", err)
	}
	if len(res.Elements) != 3 {
		t.Fatalf("elements = %d, want all 3 despite the failure", len(res.Elements))
	}
	failed := res.Failed()
	if len(failed) != 1 || failed[0].Value != "bundle-247" {
		t.Errorf("failed = %+v", failed)
	}
	if len(exec.commands) != 3 {
		t.Errorf("commands = %v, iteration stopped early", exec.commands)
	}
}

func TestForEachFailFast(t *testing.T) {
	st := NewStore()
	st.Add("iface", "bundle-178", "bundle-247", "bundle-300")

	exec := newFakeExec()
	exec.errs["show interface bundle-178"] = errors.New("device unreachable")

	res, err := st.ForEach(context.Background(), exec, "iface",
		"show interface {iface}", nil, ForEachOptions{FailFast: true})
	if err == nil {
		t.Fatal("expected error with FailFast")
	}
	if len(res.Elements) != 1 {
		t.Errorf("elements = %+v, want only the failed one", res.Elements)
	}
	if len(exec.commands) != 1 {
		t.Errorf("commands = %v, want iteration stopped", exec.commands)
	}
}

func TestForEachParsesPerElement(t *testing.T) {
	st := NewStore()
	st.Add("iface", "bundle-178")

	exec := newFakeExec()
	exec.outputs["show interface bundle-178"] = "interface bundle-178\n  mtu 9100\n  state up\n"

	schema := &decipher.Schema{
		Name: "interface-detail",
		Kind: decipher.KindTree,
		Tree: &decipher.NodeSchema{
			Children: []*decipher.NodeSchema{{
				Match:    "interface *",
				Required: true,
				Capture:  "name",
				Attrs:    []decipher.AttrSpec{{Key: "mtu", Required: true, Capture: "mtu"}},
			}},
		},
	}

	res, err := st.ForEach(context.Background(), exec, "iface",
		"show interface {iface}", schema, ForEachOptions{})
	if err != nil {
		t.Fatalf("ForEach: %v", err)
	}
	parsed := res.Elements[0].Parsed
	if parsed == nil {
		t.Fatal("element not parsed")
	}
	if got := parsed.Captures["mtu"]; !reflect.DeepEqual(got, []string{"9100"}) {
		t.Errorf("mtu capture = %v", got)
	}
}

func TestForEachParallel(t *testing.T) {
	st := NewStore()
	st.Add("iface", "bundle-178", "bundle-247", "bundle-300", "bundle-301")

	exec := newFakeExec()
	res, err := st.ForEach(context.Background(), exec, "iface",
		"show interface {iface}", nil, ForEachOptions{Parallel: 2})
	if err != nil {
		t.Fatalf("ForEach: %v", err)
	}
	if len(res.Elements) != 4 || len(exec.commands) != 4 {
		t.Fatalf("elements = %d, commands = %d", len(res.Elements), len(exec.commands))
	}
	// Results land at their set positions regardless of completion order.
	for i, want := range st.Values("iface") {
		if res.Elements[i].Value != want {
			t.Errorf("element %d = %q, want %q", i, res.Elements[i].Value, want)
		}
	}
}

func TestForEachParallelFailFast(t *testing.T) {
	st := NewStore()
	st.Add("iface", "bundle-178", "bundle-247", "bundle-300", "bundle-301")

	exec := newFakeExec()
	bad := errors.New("device unreachable")
	exec.errs["show interface bundle-178"] = bad
	exec.block["show interface bundle-247"] = true
	exec.block["show interface bundle-300"] = true
	exec.block["show interface bundle-301"] = true

	res, err := st.ForEach(context.Background(), exec, "iface",
		"show interface {iface}", nil, ForEachOptions{Parallel: 2, FailFast: true})
	if !errors.Is(err, bad) {
		t.Fatalf("err = %v, want the first failure", err)
	}
	if len(res.Elements) == 0 || !errors.Is(res.Elements[0].Err, bad) {
		t.Fatalf("elements = %+v", res.Elements)
	}
	// The failure cancels everything in flight; no later element completes.
	for _, e := range res.Elements[1:] {
		if e.Err == nil {
			t.Errorf("element %q completed after the failure", e.Value)
		}
	}
}

func TestForEachTemplateErrors(t *testing.T) {
	st := NewStore()
	st.Add("iface", "bundle-178")
	st.Add("multi", "a", "b")

	exec := newFakeExec()
	res, err := st.ForEach(context.Background(), exec, "iface",
		"show {multi} interface {iface}", nil, ForEachOptions{})
	if err != nil {
		t.Fatalf("ForEach: %v", err)
	}
	failed := res.Failed()
	if len(failed) != 1 || failed[0].Err == nil {
		t.Fatalf("failed = %+v", failed)
	}
	if len(exec.commands) != 0 {
		t.Errorf("commands sent despite template error: %v", exec.commands)
	}
}
