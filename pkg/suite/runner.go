package suite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/netcheck-network/netcheck/pkg/binding"
	"github.com/netcheck-network/netcheck/pkg/decipher"
	"github.com/netcheck-network/netcheck/pkg/inventory"
	"github.com/netcheck-network/netcheck/pkg/session"
	"github.com/netcheck-network/netcheck/pkg/util"
)

// Options tune a runner.
type Options struct {
	// Dialer overrides the SSH transport, for tests.
	Dialer session.Dialer

	// Timeout is the per-command timeout for every session.
	Timeout time.Duration

	// Leases, when set, arbitrates exclusive device access; Holder names
	// this run.
	Leases *inventory.LeaseClient
	Holder string
}

// Runner executes suites against an inventory. Sessions are opened lazily
// per device and reused across steps; the binding store spans the whole run.
type Runner struct {
	inv      *inventory.Inventory
	opts     Options
	store    *binding.Store
	sessions map[string]*session.Session
	dead     map[string]error // devices whose session failed fatally
}

// NewRunner builds a runner over an inventory.
func NewRunner(inv *inventory.Inventory, opts Options) *Runner {
	return &Runner{
		inv:      inv,
		opts:     opts,
		store:    binding.NewStore(),
		sessions: make(map[string]*session.Session),
		dead:     make(map[string]error),
	}
}

// Store exposes the run's binding store, mainly for tests and reporting.
func (r *Runner) Store() *binding.Store { return r.store }

// Run executes every step in order and returns the report. Assertion
// failures never abort; a session or infrastructure error marks the device
// dead and its later steps are skipped. The returned error covers only
// run-level problems, not step outcomes.
func (r *Runner) Run(ctx context.Context, s *Suite) (*Report, error) {
	log := util.WithSuite(s.Name)
	log.Infof("running %d steps", len(s.Steps))

	report := &Report{Suite: s.Name, Started: time.Now()}
	defer func() { report.Finished = time.Now() }()

	for i := range s.Steps {
		step := &s.Steps[i]
		sr := StepResult{Step: step.Label(i), Device: step.Device, Action: step.Action}

		if step.Device != "" {
			if err, down := r.dead[step.Device]; down {
				sr.Skipped = true
				sr.Err = fmt.Errorf("device unusable: %w", err)
				report.Steps = append(report.Steps, sr)
				continue
			}
		}

		r.runStep(ctx, step, &sr)
		if sr.Err != nil && step.Device != "" && sr.Assertion == nil {
			// Infra error: everything further on this device would lie.
			r.dead[step.Device] = sr.Err
			log.Errorf("%s: device %s abandoned: %v", sr.Step, step.Device, sr.Err)
		}
		report.Steps = append(report.Steps, sr)

		if ctx.Err() != nil {
			return report, ctx.Err()
		}
	}
	return report, nil
}

func (r *Runner) runStep(ctx context.Context, step *Step, sr *StepResult) {
	switch step.Action {
	case ActionExecute:
		r.execute(ctx, step, sr)
	case ActionAssert:
		r.assert(ctx, step, sr)
	case ActionForEach:
		r.forEach(ctx, step, sr)
	case ActionCrossReference:
		canon := canonFunc(step.Canon)
		sr.CrossRef = r.store.CrossReference(step.Left, step.Right, canon)
	case ActionEnterConfig:
		sr.Err = r.withSession(ctx, step.Device, func(s *session.Session) error {
			return s.EnterConfig(ctx)
		})
	case ActionCommit:
		sr.Err = r.withSession(ctx, step.Device, func(s *session.Session) error {
			return s.Commit(ctx)
		})
	case ActionRollback:
		sr.Err = r.withSession(ctx, step.Device, func(s *session.Session) error {
			return s.Rollback(ctx)
		})
	case ActionWait:
		d, _ := time.ParseDuration(step.Wait)
		select {
		case <-time.After(d):
		case <-ctx.Done():
			sr.Err = ctx.Err()
		}
	}
}

// execute runs the step's command, parses it when a schema applies, and
// feeds the step's binds.
func (r *Runner) execute(ctx context.Context, step *Step, sr *StepResult) {
	resp, parsed, err := r.executeAndParse(ctx, step)
	sr.Response = resp
	if err != nil {
		sr.Err = err
		return
	}
	if parsed != nil {
		sr.Err = r.applyBinds(step, parsed)
	}
}

// assert runs the step's command and checks the output against the expect
// schema. The mismatch lands in sr.Assertion, not sr.Err.
func (r *Runner) assert(ctx context.Context, step *Step, sr *StepResult) {
	cmd, _, err := r.resolveCommand(step)
	if err != nil {
		sr.Err = err
		return
	}
	var resp *session.RawResponse
	err = r.withSession(ctx, step.Device, func(sess *session.Session) error {
		var execErr error
		resp, execErr = sess.Execute(ctx, cmd)
		return execErr
	})
	sr.Response = resp
	if err != nil {
		sr.Err = err
		return
	}

	res := binding.AssertMatch(resp, step.Expect)
	sr.Assertion = &res
	if res.Passed && len(step.Bind) > 0 {
		if parsed, perr := decipher.Parse(resp.Output, step.Expect); perr == nil {
			sr.Err = r.applyBinds(step, parsed)
		}
	}
}

func (r *Runner) forEach(ctx context.Context, step *Step, sr *StepResult) {
	sess, err := r.session(ctx, step.Device)
	if err != nil {
		sr.Err = err
		return
	}
	schema := step.Schema
	if schema == nil && step.Op != "" {
		schema, _ = sess.Dialect().Schema(step.Op)
	}
	res, err := r.store.ForEach(ctx, sess, step.Set, step.Template, schema, binding.ForEachOptions{
		FailFast: step.FailFast,
		Parallel: step.Parallel,
	})
	sr.ForEach = res
	sr.Err = err
}

// executeAndParse resolves, executes and (when a schema applies) parses one
// command on the step's device.
func (r *Runner) executeAndParse(ctx context.Context, step *Step) (*session.RawResponse, *decipher.Result, error) {
	cmd, schema, err := r.resolveCommand(step)
	if err != nil {
		return nil, nil, err
	}

	var resp *session.RawResponse
	err = r.withSession(ctx, step.Device, func(sess *session.Session) error {
		var execErr error
		resp, execErr = sess.Execute(ctx, cmd)
		return execErr
	})
	if err != nil {
		return resp, nil, err
	}
	if schema == nil {
		return resp, nil, nil
	}

	parsed, err := decipher.Parse(resp.Output, schema)
	if err != nil {
		return resp, nil, err
	}
	return resp, parsed, nil
}

// resolveCommand renders the step's op through the device dialect, or takes
// the literal command. The response schema falls back to the dialect default
// for the op.
func (r *Runner) resolveCommand(step *Step) (string, *decipher.Schema, error) {
	schema := step.Schema
	if step.Op == "" {
		return step.Command, schema, nil
	}
	sess, err := r.sessionFor(step.Device)
	if err != nil {
		return "", nil, err
	}
	cmd, err := sess.Dialect().Command(step.Op, step.Args)
	if err != nil {
		return "", nil, err
	}
	if schema == nil {
		schema, _ = sess.Dialect().Schema(step.Op)
	}
	return cmd, schema, nil
}

func (r *Runner) applyBinds(step *Step, parsed *decipher.Result) error {
	for _, b := range step.Bind {
		if _, err := r.store.Bind(b.Set, parsed, b.Capture); err != nil {
			return err
		}
	}
	if bm := step.BindMap; bm != nil {
		if err := r.store.BindMap(bm.Name, parsed, bm.Key, bm.Value); err != nil {
			return err
		}
	}
	return nil
}

// withSession runs fn on the device's connected session.
func (r *Runner) withSession(ctx context.Context, device string, fn func(*session.Session) error) error {
	sess, err := r.session(ctx, device)
	if err != nil {
		return err
	}
	return fn(sess)
}

// session returns the device's session, connecting (and leasing) on first
// use.
func (r *Runner) session(ctx context.Context, device string) (*session.Session, error) {
	if sess, ok := r.sessions[device]; ok {
		return sess, r.connectIfNeeded(ctx, device, sess)
	}

	d, err := r.inv.Device(device)
	if err != nil {
		return nil, err
	}
	if r.opts.Leases != nil {
		if err := r.opts.Leases.Acquire(ctx, device, r.opts.Holder, 0); err != nil {
			return nil, err
		}
	}
	sess, err := session.New(d.Target(), session.Options{
		Dialer:  r.opts.Dialer,
		Timeout: r.opts.Timeout,
	})
	if err != nil {
		return nil, err
	}
	r.sessions[device] = sess
	return sess, r.connectIfNeeded(ctx, device, sess)
}

func (r *Runner) connectIfNeeded(ctx context.Context, device string, sess *session.Session) error {
	if sess.State() != session.StateDisconnected {
		return nil
	}
	return sess.Connect(ctx)
}

// sessionFor returns an existing session without connecting; used where only
// the dialect is needed.
func (r *Runner) sessionFor(device string) (*session.Session, error) {
	if sess, ok := r.sessions[device]; ok {
		return sess, nil
	}
	d, err := r.inv.Device(device)
	if err != nil {
		return nil, err
	}
	if r.opts.Leases != nil {
		if err := r.opts.Leases.Acquire(context.Background(), device, r.opts.Holder, 0); err != nil {
			return nil, err
		}
	}
	sess, err := session.New(d.Target(), session.Options{
		Dialer:  r.opts.Dialer,
		Timeout: r.opts.Timeout,
	})
	if err != nil {
		return nil, err
	}
	r.sessions[device] = sess
	return sess, nil
}

// Close disconnects every session and releases leases. Open transactions
// roll back on disconnect.
func (r *Runner) Close() {
	for device, sess := range r.sessions {
		if err := sess.Disconnect(); err != nil {
			util.WithDevice(device).Warnf("disconnect: %v", err)
		}
		if r.opts.Leases != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := r.opts.Leases.Release(ctx, device, r.opts.Holder); err != nil {
				util.WithDevice(device).Warnf("lease release: %v", err)
			}
			cancel()
		}
	}
}

func canonFunc(name string) binding.KeyFunc {
	switch name {
	case "upper":
		return strings.ToUpper
	case "lower":
		return strings.ToLower
	default:
		return nil
	}
}
