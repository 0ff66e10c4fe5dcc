package events

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

type rule struct {
	re          *regexp.Regexp
	placeholder string
}

// Order matters: timestamps and UUIDs contain digits, so they are masked
// before bare numbers.
var (
	timestampRule = rule{regexp.MustCompile(`\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}:\d{2}([.,]\d+)?(Z|[+-]\d{2}:?\d{2})?`), "[TIMESTAMP]"}
	uuidRule      = rule{regexp.MustCompile(`\b[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}\b`), "[UUID]"}
	hexRule       = rule{regexp.MustCompile(`\b0x[0-9a-fA-F]+\b`), "[HEX]"}
	hashRule      = rule{regexp.MustCompile(`\b[a-f0-9]{12,}\b`), "[HASH]"}
	pathRule      = rule{regexp.MustCompile(`/(?:[^/\s]+/){3,}[^/\s:]+(?::\d+)?`), "[PATH]"}
	numberRule    = rule{regexp.MustCompile(`\b\d+\b`), "[NUM]"}

	fingerprintRules = []rule{timestampRule, uuidRule, hexRule, hashRule, pathRule, numberRule}

	whitespace  = regexp.MustCompile(`\s+`)
	leadingTime = regexp.MustCompile(`^\s*` + timestampRule.re.String() + `\s*`)
	longPath    = regexp.MustCompile(`/(?:[^/\s]+/){3,}([^/\s:]+(?::\d+)?)`)
)

// Normalize masks the volatile parts of a line (timestamps, UUIDs, hex
// addresses, hashes, long paths, numbers) so recurring failures compare equal.
func Normalize(line string) string {
	for _, r := range fingerprintRules {
		line = r.re.ReplaceAllString(line, r.placeholder)
	}
	return collapse(line)
}

// Fingerprint returns the hex sha256 of the normalized line.
func Fingerprint(line string) string {
	sum := sha256.Sum256([]byte(Normalize(line)))
	return hex.EncodeToString(sum[:])
}

// Display shortens a line for presentation: a leading timestamp is dropped
// and long paths keep only their file name. Numbers are preserved.
func Display(line string) string {
	line = leadingTime.ReplaceAllString(line, "")
	line = longPath.ReplaceAllString(line, ".../$1")
	return collapse(line)
}

func collapse(line string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(line, " "))
}
