package dialect

import (
	"regexp"
	"strings"

	"github.com/netcheck-network/netcheck/pkg/decipher"
)

func init() {
	Register(VendorDriveNets, func() Dialect { return newDriveNets() })
}

// driveNets speaks DNOS: candidate configuration edited in a single
// configure mode, committed with "commit and-exit", discarded with
// "rollback 0". Pagination is disabled per command with a "|no-more" suffix.
type driveNets struct {
	prompt *regexp.Regexp
}

func newDriveNets() *driveNets {
	return &driveNets{prompt: regexp.MustCompile(promptRegex)}
}

func (d *driveNets) Vendor() Vendor          { return VendorDriveNets }
func (d *driveNets) Prompt() *regexp.Regexp  { return d.prompt }
func (d *driveNets) SetupCommands() []string { return nil }

func (d *driveNets) PageSafe(command string) string {
	return command + "|no-more"
}

func (d *driveNets) EnterConfig() (string, error) { return "configure", nil }

// Commit commits the candidate and leaves configure mode in one step, which
// is how DNOS reports its success marker.
func (d *driveNets) Commit() (string, error) { return "commit and-exit", nil }

// Rollback discards the candidate, then leaves the now-clean configure mode.
func (d *driveNets) Rollback() ([]string, error) {
	return []string{"rollback 0", "exit"}, nil
}

func (d *driveNets) ExitConfig() (string, error) { return "exit", nil }

func (d *driveNets) CommitOK(output string) bool {
	_, failed := d.ErrorText(output)
	if failed {
		return false
	}
	return containsAny(output, "Commit succeeded", "Commit confirmed", "No changes to commit")
}

func (d *driveNets) ErrorText(output string) (string, bool) {
	return firstErrorLine(output, []string{"ERROR:", "Error:", "% "})
}

var driveNetsCommands = map[string]string{
	"show-config":          "show config",
	"show-interfaces":      "show interfaces",
	"show-route":           "show route {destination}",
	"show-isis-interfaces": "show isis interfaces instance {instance}",
	"show-isis-config":     "show config protocols isis instance {instance} interface {interface}",
	"show-mpls-table":      "show mpls sr forwarding-table",
}

func (d *driveNets) Command(op string, args map[string]string) (string, error) {
	tmpl, ok := driveNetsCommands[op]
	if !ok {
		return "", &UnsupportedOperationError{Vendor: VendorDriveNets, Op: op}
	}
	return renderTemplate(tmpl, args)
}

func (d *driveNets) Normalize(command, raw string) string {
	return normalize(command, raw, d.prompt)
}

func (d *driveNets) Schema(op string) (*decipher.Schema, bool) {
	s, ok := driveNetsSchemas[op]
	return s, ok
}

var driveNetsSchemas = map[string]*decipher.Schema{
	"show-isis-interfaces": {
		Name: "dnos-isis-interfaces",
		Kind: decipher.KindTable,
		Table: &decipher.TableSchema{
			Key: "Interface",
			Columns: []decipher.ColumnSpec{
				{Name: "Interface"},
				{Name: "System"},
				{Name: "Level"},
				{Name: "State", Optional: true},
			},
		},
	},
	"show-mpls-table": {
		Name: "dnos-mpls-forwarding",
		Kind: decipher.KindTable,
		Table: &decipher.TableSchema{
			Key: "Destination",
			Columns: []decipher.ColumnSpec{
				{Name: "Destination"},
				{Name: "Prefix"},
				{Name: "Out-Label"},
				{Name: "Next-Hop"},
			},
		},
	},
	"show-route": {
		Name: "dnos-route-detail",
		Kind: decipher.KindTree,
		Tree: &decipher.NodeSchema{
			Children: []*decipher.NodeSchema{{
				Match:    "Destination: *",
				Required: true,
				Repeat:   true,
				Capture:  "destination",
				Attrs: []decipher.AttrSpec{
					{Key: "next-hop*", Required: true, Repeat: true, Capture: "nexthop"},
				},
			}},
		},
	},
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if sub != "" && strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
