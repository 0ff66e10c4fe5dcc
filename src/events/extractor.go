package events

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"arcalog/src/contracts"
	"arcalog/src/logger"
	"arcalog/src/paths"
	"arcalog/src/provider"
)

const (
	// binarySniffSize is how much of a file is inspected for NUL bytes.
	binarySniffSize = 8 * 1024

	// MaxLineSize is the longest line the scanner accepts. A longer line
	// ends the scan of its file.
	MaxLineSize = 1024 * 1024
)

// Extractor finds keyword lines in an artifact tree.
type Extractor struct {
	keywords []string
	logger   logger.Logger
}

// NewExtractor creates an extractor matching any of keywords. Duplicates and
// empty keywords are dropped; an empty list falls back to DefaultKeywords.
func NewExtractor(keywords []string, log logger.Logger) *Extractor {
	seen := make(map[string]bool)
	var kw []string
	for _, k := range keywords {
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		kw = append(kw, k)
	}
	if len(kw) == 0 {
		kw = append(kw, DefaultKeywords...)
	}

	return &Extractor{keywords: kw, logger: log}
}

// Keywords returns the keywords the extractor matches.
func (e *Extractor) Keywords() []string {
	return append([]string(nil), e.keywords...)
}

// Match reports whether line contains any keyword. Matching is case-sensitive.
func (e *Extractor) Match(line string) bool {
	for _, k := range e.keywords {
		if strings.Contains(line, k) {
			return true
		}
	}
	return false
}

// Extract scans every regular file below root in lexical order and returns
// the matching lines in file order, then line order. Files that cannot be
// read or look binary are skipped.
func (e *Extractor) Extract(ctx context.Context, buildID, root string) ([]contracts.Event, error) {
	files, err := paths.FileIndex(root)
	if err != nil {
		return nil, &provider.LocalIOError{Path: root, Err: err}
	}

	events := []contracts.Event{}
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rel, err := filepath.Rel(root, file)
		if err != nil {
			rel = file
		}

		found, err := e.scanFile(buildID, file, filepath.ToSlash(rel))
		if err != nil {
			e.logger.Error("[Extractor] Stopped scanning %s: %v", file, err)
		}
		events = append(events, found...)
	}

	e.logger.Debug("[Extractor] Build %s: %d events from %d files", buildID, len(events), len(files))
	return events, nil
}

// scanFile returns the events of one file. When the file is cut short by an
// oversized line, the events before it are returned along with the error.
func (e *Extractor) scanFile(buildID, path, rel string) ([]contracts.Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	br := bufio.NewReaderSize(f, binarySniffSize)
	// Short files return io.EOF here; read failures resurface in the scanner.
	head, _ := br.Peek(binarySniffSize)
	if bytes.IndexByte(head, 0) >= 0 {
		e.logger.Debug("[Extractor] Skipping binary file %s", path)
		return nil, nil
	}

	var events []contracts.Event
	scanner := bufio.NewScanner(br)
	scanner.Buffer(make([]byte, 0, 64*1024), MaxLineSize)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := scanner.Bytes()
		if !utf8.Valid(raw) {
			continue
		}
		line := string(raw)
		if !e.Match(line) {
			continue
		}
		events = append(events, contracts.Event{
			BuildID:     buildID,
			File:        rel,
			Line:        lineNo,
			Text:        line,
			Fingerprint: Fingerprint(line),
		})
	}

	return events, scanner.Err()
}
