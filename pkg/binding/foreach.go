package binding

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/netcheck-network/netcheck/pkg/decipher"
	"github.com/netcheck-network/netcheck/pkg/session"
)

// Executor runs one CLI command. *session.Session satisfies it; tests use
// fakes.
type Executor interface {
	Execute(ctx context.Context, command string) (*session.RawResponse, error)
}

// ForEachOptions tune iteration.
type ForEachOptions struct {
	// FailFast stops at the first element whose execution or parse fails.
	// With Parallel > 1 the first failure cancels in-flight elements and no
	// further elements start. Assertion-style mismatches recorded by callers
	// do not stop iteration either way.
	FailFast bool

	// Parallel bounds concurrent executions. 0 or 1 is sequential. The
	// executor's own serialization still applies, so parallelism pays off
	// only across executors that fan out internally.
	Parallel int
}

// ElementResult is the outcome for one set element.
type ElementResult struct {
	Value    string
	Command  string
	Response *session.RawResponse
	Parsed   *decipher.Result
	Err      error
}

// ForEachResult collects per-element outcomes in set order.
type ForEachResult struct {
	Set      string
	Elements []ElementResult
}

// Failed returns the elements whose execution or parse failed.
func (r *ForEachResult) Failed() []ElementResult {
	var out []ElementResult
	for _, e := range r.Elements {
		if e.Err != nil {
			out = append(out, e)
		}
	}
	return out
}

// ForEach executes one parameterized command per distinct value of the set,
// in insertion order. The template's {set} placeholder takes each element;
// other placeholders resolve from single-valued sets in the store. A nil
// schema skips parsing. Failures are recorded per element and do not abort
// the remaining elements unless FailFast is set.
func (s *Store) ForEach(ctx context.Context, exec Executor, set, template string, schema *decipher.Schema, opts ForEachOptions) (*ForEachResult, error) {
	values := s.Values(set)
	result := &ForEachResult{
		Set:      set,
		Elements: make([]ElementResult, len(values)),
	}

	runOne := func(ctx context.Context, i int, value string) error {
		elem := ElementResult{Value: value}
		defer func() { result.Elements[i] = elem }()

		cmd, err := s.expand(template, set, value)
		if err != nil {
			elem.Err = err
			return err
		}
		elem.Command = cmd

		resp, err := exec.Execute(ctx, cmd)
		elem.Response = resp
		if err != nil {
			elem.Err = err
			return err
		}
		if schema != nil {
			parsed, err := decipher.Parse(resp.Output, schema)
			if err != nil {
				elem.Err = err
				return err
			}
			elem.Parsed = parsed
		}
		return nil
	}

	if opts.Parallel > 1 {
		return result, s.forEachParallel(ctx, values, result, runOne, opts)
	}

	for i, v := range values {
		if err := runOne(ctx, i, v); err != nil && opts.FailFast {
			result.Elements = result.Elements[:i+1]
			return result, err
		}
	}
	return result, nil
}

// forEachParallel fans elements out over a bounded worker set. FailFast
// cancels in-flight elements on the first failure and stops scheduling; the
// first failure is the returned error, and unstarted elements are dropped
// from the result.
func (s *Store) forEachParallel(ctx context.Context, values []string, result *ForEachResult, runOne func(context.Context, int, string) error, opts ForEachOptions) error {
	runCtx := ctx
	cancel := context.CancelFunc(func() {})
	if opts.FailFast {
		runCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	sem := make(chan struct{}, opts.Parallel)
	launched := len(values)
	for i, v := range values {
		if opts.FailFast && runCtx.Err() != nil {
			launched = i
			break
		}
		sem <- struct{}{}
		wg.Add(1)
		go func(i int, v string) {
			defer wg.Done()
			defer func() { <-sem }()
			if err := runOne(runCtx, i, v); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				if opts.FailFast {
					cancel()
				}
			}
		}(i, v)
	}
	wg.Wait()
	result.Elements = result.Elements[:launched]
	if opts.FailFast {
		return firstErr
	}
	return nil
}

// expand substitutes {name} placeholders: the iterated set's placeholder
// takes the element value, any other placeholder resolves from a
// single-valued set.
func (s *Store) expand(template, set, element string) (string, error) {
	out := strings.ReplaceAll(template, "{"+set+"}", element)
	for {
		i := strings.Index(out, "{")
		if i < 0 {
			return out, nil
		}
		j := strings.Index(out[i:], "}")
		if j <= 0 {
			return out, nil
		}
		name := out[i+1 : i+j]
		val, ok := s.Single(name)
		if !ok {
			return "", fmt.Errorf("template %q: binding %q is not single-valued", template, name)
		}
		out = out[:i] + val + out[i+j+1:]
	}
}
