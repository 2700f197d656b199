// Package dialect adapts vendor CLI differences behind one interface:
// prompt detection, pagination control, the config-mode command set, error
// markers, command templating, and default response schemas. The session
// manager and the parsing engine never see a vendor name; adding a vendor is
// adding a Dialect implementation and registering it.
package dialect

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/netcheck-network/netcheck/pkg/decipher"
)

// Vendor identifies a device operating system family.
type Vendor string

const (
	VendorDriveNets Vendor = "drivenets"
	VendorArista    Vendor = "arista"
)

// ErrUnsupported is the sentinel behind *UnsupportedOperationError.
var ErrUnsupported = errors.New("operation not supported by vendor")

// UnsupportedOperationError reports an operation a vendor dialect has no
// command for.
type UnsupportedOperationError struct {
	Vendor Vendor
	Op     string
}

func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("vendor %s does not support %q", e.Vendor, e.Op)
}

func (e *UnsupportedOperationError) Unwrap() error {
	return ErrUnsupported
}

// Dialect is one vendor's CLI behavior. Implementations may hold per-session
// state (Arista tracks its config-session name), so a session gets its own
// instance from New rather than a shared singleton.
type Dialect interface {
	Vendor() Vendor

	// Prompt matches the device prompt at the end of accumulated output.
	Prompt() *regexp.Regexp

	// SetupCommands run once after the first prompt (pagination off etc.).
	SetupCommands() []string

	// PageSafe returns the pagination-proof form of a show command for
	// vendors that disable paging per command rather than per terminal.
	PageSafe(command string) string

	// Config-transaction command set. Commands that a vendor lacks return
	// *UnsupportedOperationError.
	EnterConfig() (string, error)
	Commit() (string, error)
	Rollback() ([]string, error)
	ExitConfig() (string, error)

	// CommitOK inspects commit output for the vendor's success marker.
	CommitOK(output string) bool

	// ErrorText extracts the device-reported error message from normalized
	// output, if one is present.
	ErrorText(output string) (string, bool)

	// Command renders a generic operation ("show-route", ...) into vendor
	// syntax, substituting {name} placeholders from args.
	Command(op string, args map[string]string) (string, error)

	// Normalize strips transport noise from raw output: ANSI sequences,
	// carriage returns, the echoed command, and the trailing prompt.
	Normalize(command, raw string) string

	// Schema returns the vendor's default response schema for an operation.
	Schema(op string) (*decipher.Schema, bool)
}

var (
	mu       sync.RWMutex
	registry = make(map[Vendor]func() Dialect)
)

// Register installs a dialect constructor. Called from vendor init functions.
func Register(v Vendor, fn func() Dialect) {
	mu.Lock()
	defer mu.Unlock()
	registry[v] = fn
}

// New returns a fresh dialect instance for the vendor.
func New(v Vendor) (Dialect, error) {
	mu.RLock()
	fn, ok := registry[v]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown vendor %q (known: %s)", v, strings.Join(Vendors(), ", "))
	}
	return fn(), nil
}

// Vendors lists the registered vendor names, sorted.
func Vendors() []string {
	mu.RLock()
	defer mu.RUnlock()
	var names []string
	for v := range registry {
		names = append(names, string(v))
	}
	sort.Strings(names)
	return names
}

// renderTemplate substitutes {name} placeholders from args. Every
// placeholder must resolve.
func renderTemplate(tmpl string, args map[string]string) (string, error) {
	out := tmpl
	for key, val := range args {
		out = strings.ReplaceAll(out, "{"+key+"}", val)
	}
	if i := strings.Index(out, "{"); i >= 0 {
		if j := strings.Index(out[i:], "}"); j > 0 {
			return "", fmt.Errorf("command %q: no value for placeholder %s", tmpl, out[i:i+j+1])
		}
	}
	return out, nil
}
