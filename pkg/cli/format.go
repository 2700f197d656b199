// Package cli provides shared formatting helpers for the netcheck CLI.
package cli

import (
	"os"
	"strings"
)

// colorEnabled is false when NO_COLOR env var is set (per no-color.org).
var colorEnabled = os.Getenv("NO_COLOR") == ""

// Green wraps s in ANSI green. Returns s unchanged when NO_COLOR is set.
func Green(s string) string {
	if !colorEnabled {
		return s
	}
	return "\033[32m" + s + "\033[0m"
}

// Yellow wraps s in ANSI yellow. Returns s unchanged when NO_COLOR is set.
func Yellow(s string) string {
	if !colorEnabled {
		return s
	}
	return "\033[33m" + s + "\033[0m"
}

// Red wraps s in ANSI red. Returns s unchanged when NO_COLOR is set.
func Red(s string) string {
	if !colorEnabled {
		return s
	}
	return "\033[31m" + s + "\033[0m"
}

// Bold wraps s in ANSI bold. Returns s unchanged when NO_COLOR is set.
func Bold(s string) string {
	if !colorEnabled {
		return s
	}
	return "\033[1m" + s + "\033[0m"
}

// Status renders a pass/fail word in the matching color.
func Status(ok bool) string {
	if ok {
		return Green("PASS")
	}
	return Red("FAIL")
}

// Ellipsis truncates s to width runes, ending in "..." when cut. Keeps raw
// device output from flooding summary lines.
func Ellipsis(s string, width int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if width <= 3 || len(s) <= width {
		return s
	}
	return s[:width-3] + "..."
}
