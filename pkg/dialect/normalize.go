package dialect

import (
	"regexp"
	"strings"
)

// promptRegex matches the trailing device prompt shared by both supported
// vendors ("hostname#", "hostname>", "user@host$").
const promptRegex = `(.*)[$#>] ?$`

// ansiEscape matches the terminal control sequences devices sprinkle into
// interactive output: CSI sequences, mode sets, and charset selections.
var ansiEscape = regexp.MustCompile(`\x1b(\[[0-9;?]*[A-Za-z]|[=<>78]|[()][A-B0-2])`)

// normalize strips transport noise from one command's raw output. The echoed
// command is dropped from the first line, the trailing prompt line is
// removed, ANSI sequences and carriage returns vanish everywhere.
func normalize(command, raw string, prompt *regexp.Regexp) string {
	text := ansiEscape.ReplaceAllString(raw, "")
	text = strings.ReplaceAll(text, "\r", "")

	lines := strings.Split(text, "\n")

	// Drop the command echo. Devices echo the exact command as the first
	// non-empty line.
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if strings.TrimSpace(line) == strings.TrimSpace(command) {
			lines = lines[i+1:]
		}
		break
	}

	// Drop the trailing prompt.
	for len(lines) > 0 {
		last := strings.TrimSpace(lines[len(lines)-1])
		if last == "" {
			lines = lines[:len(lines)-1]
			continue
		}
		if prompt.MatchString(last) && !strings.Contains(last, " ") {
			lines = lines[:len(lines)-1]
		}
		break
	}

	return strings.TrimRight(strings.Join(lines, "\n"), "\n")
}

// firstErrorLine scans normalized output for a line carrying one of the
// vendor's error markers and returns it trimmed.
func firstErrorLine(output string, markers []string) (string, bool) {
	for _, line := range strings.Split(output, "\n") {
		trimmed := strings.TrimSpace(line)
		for _, m := range markers {
			if strings.HasPrefix(trimmed, m) {
				return trimmed, true
			}
		}
	}
	return "", false
}
