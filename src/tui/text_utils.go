package tui

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"
)

// VisualWidth returns the display width of text, accounting for multi-byte characters
func VisualWidth(s string) int {
	return runewidth.StringWidth(s)
}

// CleanLogText removes colour codes, carriage returns and tabs from a log
// line so its visual width can be measured.
func CleanLogText(s string) string {
	s = ansi.Strip(s)
	s = strings.ReplaceAll(s, "\r", "")
	return strings.ReplaceAll(s, "\t", "    ")
}

// Truncate cuts text to maxLen columns, with an ellipsis when requested
// and there is room for one.
func Truncate(s string, maxLen int, ellipsis bool) string {
	s = strings.TrimSpace(s)
	if maxLen <= 0 {
		return ""
	}
	if VisualWidth(s) <= maxLen {
		return s
	}
	if ellipsis && maxLen > 3 {
		return runewidth.Truncate(s, maxLen, "...")
	}
	return runewidth.Truncate(s, maxLen, "")
}

// TruncateAndPad truncates text and pads it to exactly width columns.
func TruncateAndPad(s string, width int, ellipsis bool) string {
	return runewidth.FillRight(Truncate(s, width, ellipsis), width)
}

// Wrap breaks text into lines of at most width columns, on spaces where
// possible. Words wider than a line are split.
func Wrap(text string, width int) string {
	words := strings.Fields(text)
	if width <= 0 || len(words) == 0 {
		return text
	}

	var lines []string
	var line strings.Builder
	lineWidth := 0

	flush := func() {
		if lineWidth > 0 {
			lines = append(lines, line.String())
			line.Reset()
			lineWidth = 0
		}
	}

	for _, word := range words {
		for VisualWidth(word) > width {
			flush()
			chunk := runewidth.Truncate(word, width, "")
			if chunk == "" {
				// A single rune wider than the line.
				chunk = string([]rune(word)[:1])
			}
			lines = append(lines, chunk)
			word = word[len(chunk):]
		}
		if word == "" {
			continue
		}

		w := VisualWidth(word)
		switch {
		case lineWidth == 0:
		case lineWidth+1+w <= width:
			line.WriteByte(' ')
			lineWidth++
		default:
			flush()
		}
		line.WriteString(word)
		lineWidth += w
	}
	flush()

	return strings.Join(lines, "\n")
}

// SplitLines splits text by newlines, returning empty slice if text is empty
func SplitLines(text string) []string {
	if text == "" {
		return []string{}
	}
	return strings.Split(text, "\n")
}
