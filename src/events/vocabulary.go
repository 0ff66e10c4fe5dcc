// Package events scans mirrored artifact trees for lines that look like
// failures and turns them into contracts.Event records.
package events

import "fmt"

// Category selects one word class of the failure vocabulary.
type Category string

const (
	Nouns      Category = "nouns"
	Verbs      Category = "verbs"
	Adjectives Category = "adjectives"
)

// DefaultKeywords is the keyword list used when configuration names none.
var DefaultKeywords = []string{"error"}

// Vocabulary is a curated list of words that tend to appear in failure output.
type Vocabulary struct {
	Nouns      []string
	Verbs      []string
	Adjectives []string
}

// DefaultVocabulary returns the built-in failure vocabulary.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Nouns: []string{"error", "failure", "mistake", "problem", "timeout", "warning"},
		Verbs: []string{
			"abort", "add", "analyze", "build", "cancel", "check", "collect", "compile",
			"connect", "create", "delete", "disconnect", "download", "edit", "exceed",
			"expire", "execute", "fail", "find", "get", "install", "list", "load", "log",
			"modify", "move", "open", "parse", "print", "pull", "push", "read", "remove",
			"run", "save", "search", "show", "start", "stop", "test", "time out", "upload",
			"use", "verify", "watch", "write",
		},
		Adjectives: []string{"unreachable", "unresponsive", "unsigned", "unstable", "unsuccessful"},
	}
}

// Keywords flattens the selected categories in the order given.
func (v Vocabulary) Keywords(categories ...Category) ([]string, error) {
	var out []string
	for _, c := range categories {
		switch c {
		case Nouns:
			out = append(out, v.Nouns...)
		case Verbs:
			out = append(out, v.Verbs...)
		case Adjectives:
			out = append(out, v.Adjectives...)
		default:
			return nil, fmt.Errorf("unknown vocabulary category %q", c)
		}
	}
	return out, nil
}
