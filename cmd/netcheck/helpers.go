package main

import (
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/netcheck-network/netcheck/pkg/inventory"
	"github.com/netcheck-network/netcheck/pkg/suite"
)

// promptPasswords fills in missing passwords for devices the suite touches.
// Requires an interactive terminal; in non-interactive runs the inventory
// must carry passwords.
func promptPasswords(inv *inventory.Inventory, s *suite.Suite) error {
	for _, name := range suiteDevices(s) {
		d, err := inv.Device(name)
		if err != nil {
			return err
		}
		if d.Password != "" {
			continue
		}
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			return fmt.Errorf("device %s has no password and stdin is not a terminal", name)
		}
		fmt.Fprintf(os.Stderr, "password for %s@%s: ", d.User, d.Host)
		pw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return fmt.Errorf("reading password: %w", err)
		}
		d.Password = string(pw)
	}
	return nil
}

// suiteDevices returns the distinct devices the suite's steps name, in first
// appearance order.
func suiteDevices(s *suite.Suite) []string {
	seen := make(map[string]bool)
	var out []string
	for _, step := range s.Steps {
		if step.Device == "" || seen[step.Device] {
			continue
		}
		seen[step.Device] = true
		out = append(out, step.Device)
	}
	return out
}
