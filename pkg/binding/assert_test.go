package binding

import (
	"strings"
	"testing"

	"github.com/netcheck-network/netcheck/pkg/decipher"
	"github.com/netcheck-network/netcheck/pkg/session"
)

const routeDetailOutput = "Destination: 96.109.183.86/32\n" +
	"  next-hop(1): 96.216.96.109 Active\n" +
	"  Enhanced-Alternate\n" +
	"    next-hop(1): 96.216.96.113 Active\n"

func routeSchema(alternateNextHop string) *decipher.Schema {
	return &decipher.Schema{
		Name: "route-detail",
		Kind: decipher.KindTree,
		Tree: &decipher.NodeSchema{
			Children: []*decipher.NodeSchema{{
				Match:    "Destination: *",
				Required: true,
				Capture:  "destination",
				Attrs: []decipher.AttrSpec{
					{Key: "next-hop*", Required: true, Capture: "primary"},
				},
				Children: []*decipher.NodeSchema{{
					Match:    "Enhanced-Alternate",
					Required: true,
					Attrs: []decipher.AttrSpec{
						{Key: "next-hop*", Value: alternateNextHop, Required: true},
					},
				}},
			}},
		},
	}
}

func TestAssertMatchPass(t *testing.T) {
	resp := &session.RawResponse{
		Device:  "router-nyc",
		Command: "show route 96.109.183.86/32",
		Output:  routeDetailOutput,
	}

	res := AssertMatch(resp, routeSchema("96.216.96.113 *"))
	if !res.Passed {
		t.Fatalf("assertion failed: %s", res.Evidence)
	}
	if res.Device != "router-nyc" || res.Command != "show route 96.109.183.86/32" {
		t.Errorf("provenance = %q / %q", res.Device, res.Command)
	}
	if got := res.Captures["destination"]; len(got) != 1 || got[0] != "96.109.183.86/32" {
		t.Errorf("destination capture = %v", got)
	}
}

func TestAssertMatchFailNamesMissingElement(t *testing.T) {
	resp := &session.RawResponse{
		Device:  "router-nyc",
		Command: "show route 96.109.183.86/32",
		Output:  routeDetailOutput,
	}

	res := AssertMatch(resp, routeSchema("96.216.96.999 *"))
	if res.Passed {
		t.Fatal("assertion passed with wrong expected next-hop")
	}
	if !strings.Contains(res.Evidence, "@next-hop") {
		t.Errorf("evidence = %q, want it to name the missing next-hop", res.Evidence)
	}
	if res.Captures != nil {
		t.Errorf("failed assertion produced captures: %v", res.Captures)
	}
}

func TestAssertMatchStructuralFailure(t *testing.T) {
	resp := &session.RawResponse{
		Device:  "router-nyc",
		Command: "show config",
		Output:  "interface a\n  mtu 9100\n!\n!\n",
	}
	s := &decipher.Schema{
		Name: "config",
		Kind: decipher.KindTree,
		Tree: &decipher.NodeSchema{},
	}

	res := AssertMatch(resp, s)
	if res.Passed {
		t.Fatal("assertion passed on structurally malformed output")
	}
	if !strings.Contains(res.Evidence, "did not parse") {
		t.Errorf("evidence = %q", res.Evidence)
	}
}

func TestAssertParsed(t *testing.T) {
	parsed := parseFixture(t, routeDetailOutput, &decipher.Schema{
		Name: "route-detail",
		Kind: decipher.KindTree,
		Tree: &decipher.NodeSchema{},
	})

	if res := AssertParsed(parsed, routeSchema("96.216.96.113 *")); !res.Passed {
		t.Errorf("AssertParsed failed: %s", res.Evidence)
	}
	if res := AssertParsed(parsed, routeSchema("96.216.96.999 *")); res.Passed {
		t.Error("AssertParsed passed with wrong expected next-hop")
	}

	wrongKind := &decipher.Schema{
		Name:  "table",
		Kind:  decipher.KindTable,
		Table: &decipher.TableSchema{Key: "A", Columns: []decipher.ColumnSpec{{Name: "A"}}},
	}
	if res := AssertParsed(parsed, wrongKind); res.Passed {
		t.Error("AssertParsed passed across mismatched kinds")
	}
}
