package dialect

import (
	"fmt"
	"regexp"
	"time"

	"github.com/netcheck-network/netcheck/pkg/decipher"
)

func init() {
	Register(VendorArista, func() Dialect { return newArista() })
}

// arista speaks EOS: configuration edited inside a named configure session,
// committed with "commit", discarded with "abort". Pagination is disabled
// once per login with "terminal length 0". EOS has no rollback-by-index;
// that operation is unsupported.
type arista struct {
	prompt  *regexp.Regexp
	session string
}

func newArista() *arista {
	return &arista{prompt: regexp.MustCompile(promptRegex)}
}

func (a *arista) Vendor() Vendor         { return VendorArista }
func (a *arista) Prompt() *regexp.Regexp { return a.prompt }

func (a *arista) SetupCommands() []string {
	return []string{"terminal length 0"}
}

func (a *arista) PageSafe(command string) string { return command }

// EnterConfig opens a fresh named configure session so an aborted run never
// leaves edits in the device's shared candidate.
func (a *arista) EnterConfig() (string, error) {
	a.session = fmt.Sprintf("netcheck_%d", time.Now().UnixNano())
	return "configure session " + a.session, nil
}

func (a *arista) Commit() (string, error) { return "commit", nil }

func (a *arista) Rollback() ([]string, error) {
	return []string{"abort"}, nil
}

func (a *arista) ExitConfig() (string, error) { return "abort", nil }

// CommitOK: EOS prints nothing on a successful session commit, so absence of
// an error marker is success.
func (a *arista) CommitOK(output string) bool {
	_, failed := a.ErrorText(output)
	return !failed
}

func (a *arista) ErrorText(output string) (string, bool) {
	return firstErrorLine(output, []string{"% ", "%Error", "! "})
}

var aristaCommands = map[string]string{
	"show-config":          "show running-config",
	"show-interfaces":      "show interfaces",
	"show-route":           "show ip route {destination} detail",
	"show-isis-interfaces": "show isis interface brief",
	"show-isis-config":     "show running-config section isis",
}

func (a *arista) Command(op string, args map[string]string) (string, error) {
	tmpl, ok := aristaCommands[op]
	if !ok {
		return "", &UnsupportedOperationError{Vendor: VendorArista, Op: op}
	}
	return renderTemplate(tmpl, args)
}

func (a *arista) Normalize(command, raw string) string {
	return normalize(command, raw, a.prompt)
}

func (a *arista) Schema(op string) (*decipher.Schema, bool) {
	s, ok := aristaSchemas[op]
	return s, ok
}

var aristaSchemas = map[string]*decipher.Schema{
	"show-isis-interfaces": {
		Name: "eos-isis-interfaces",
		Kind: decipher.KindTable,
		Table: &decipher.TableSchema{
			Key: "Interface",
			Columns: []decipher.ColumnSpec{
				{Name: "Interface"},
				{Name: "State"},
				{Name: "Circuit", Optional: true},
				{Name: "Type", Optional: true},
			},
		},
	},
	"show-route": {
		Name: "eos-route-detail",
		Kind: decipher.KindTree,
		Tree: &decipher.NodeSchema{
			Children: []*decipher.NodeSchema{{
				Match:    "* via *",
				Required: true,
				Repeat:   true,
				Capture:  "via",
			}},
		},
	},
}
