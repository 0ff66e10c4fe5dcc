// Package sanitize cleans artifact log lines before they are returned to MCP
// clients. Prow build logs carry terminal colour codes, OSC hyperlinks and
// carriage-return progress redraws that mean nothing outside a terminal.
//
// The tui package strips escape codes itself via charmbracelet/x/ansi.
package sanitize

import (
	"regexp"
	"strings"
)

var (
	// CSI sequences: colours, cursor movement, erase-line.
	csiPattern = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]`)

	// OSC sequences such as hyperlinks, ended by BEL or ST.
	oscPattern = regexp.MustCompile(`\x1b\][^\x07\x1b]*(?:\x07|\x1b\\)`)
)

// StripANSI removes terminal escape sequences.
func StripANSI(s string) string {
	s = oscPattern.ReplaceAllString(s, "")
	s = csiPattern.ReplaceAllString(s, "")
	return s
}

// Line prepares one log line for display. Escape sequences are removed,
// only the text after the last carriage return is kept, remaining control
// characters other than tab are dropped and surrounding space is trimmed.
func Line(s string) string {
	s = StripANSI(s)
	s = strings.TrimRight(s, "\r")
	if i := strings.LastIndexByte(s, '\r'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.Map(func(r rune) rune {
		if r == '\t' {
			return r
		}
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}
