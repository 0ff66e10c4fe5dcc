// Package junit reads the JUnit XML reports Prow jobs publish among their
// artifacts (junit_*.xml, junit.xml) and returns the failed test cases.
package junit

import (
	"context"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"arcalog/src/logger"
	"arcalog/src/paths"
	"arcalog/src/provider"
)

// Kinds of TestFailure.
const (
	KindFailure = "failure"
	KindError   = "error"
)

// testSuites is the root element for multiple test suites.
type testSuites struct {
	XMLName    xml.Name    `xml:"testsuites"`
	TestSuites []testSuite `xml:"testsuite"`
}

// testSuite represents a <testsuite> element. Some generators nest suites.
type testSuite struct {
	Name       string      `xml:"name,attr"`
	TestCases  []testCase  `xml:"testcase"`
	TestSuites []testSuite `xml:"testsuite"`
}

type testCase struct {
	Name      string   `xml:"name,attr"`
	ClassName string   `xml:"classname,attr"`
	Time      float64  `xml:"time,attr"`
	Failure   *outcome `xml:"failure"`
	Error     *outcome `xml:"error"`
	SystemOut string   `xml:"system-out"`
}

type outcome struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Content string `xml:",chardata"`
}

// TestFailure is one failed or errored test case.
type TestFailure struct {
	// File is the report path relative to the artifact root.
	File      string  `json:"file,omitempty"`
	Suite     string  `json:"suite,omitempty"`
	ClassName string  `json:"class,omitempty"`
	Name      string  `json:"name"`
	Kind      string  `json:"kind"`
	Message   string  `json:"message,omitempty"`
	Output    string  `json:"output,omitempty"`
	Duration  float64 `json:"duration,omitempty"`
}

// FullName identifies the test across builds.
func (f TestFailure) FullName() string {
	if f.ClassName != "" {
		return f.ClassName + "::" + f.Name
	}
	return f.Name
}

// OutputLines returns the failure output without leading and trailing
// blank lines, limited to maxLines.
func (f TestFailure) OutputLines(maxLines int) []string {
	if strings.TrimSpace(f.Output) == "" {
		return []string{}
	}

	lines := strings.Split(f.Output, "\n")
	start := 0
	for start < len(lines) && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	end := len(lines)
	for end > start && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	lines = lines[start:end]

	if maxLines > 0 && len(lines) > maxLines {
		lines = lines[:maxLines]
	}
	return lines
}

// Parse decodes one report and returns its failures and errors in document
// order. A report where every test passed yields an empty slice.
func Parse(data []byte) ([]TestFailure, error) {
	var suites testSuites
	if err := xml.Unmarshal(data, &suites); err == nil && len(suites.TestSuites) > 0 {
		return collect(suites.TestSuites), nil
	}

	var suite testSuite
	if err := xml.Unmarshal(data, &suite); err != nil {
		return nil, fmt.Errorf("failed to parse JUnit XML: %w", err)
	}
	return collect([]testSuite{suite}), nil
}

func collect(suites []testSuite) []TestFailure {
	failures := []TestFailure{}
	for _, suite := range suites {
		for _, tc := range suite.TestCases {
			for _, o := range []struct {
				kind string
				out  *outcome
			}{{KindFailure, tc.Failure}, {KindError, tc.Error}} {
				if o.out == nil {
					continue
				}
				output := strings.TrimSpace(o.out.Content)
				if output == "" {
					output = strings.TrimSpace(tc.SystemOut)
				}
				failures = append(failures, TestFailure{
					Suite:     suite.Name,
					ClassName: tc.ClassName,
					Name:      tc.Name,
					Kind:      o.kind,
					Message:   o.out.Message,
					Output:    output,
					Duration:  tc.Time,
				})
			}
		}
		failures = append(failures, collect(suite.TestSuites)...)
	}
	return failures
}

// IsReport reports whether a file name looks like a JUnit report.
func IsReport(name string) bool {
	base := strings.ToLower(filepath.Base(name))
	return strings.HasPrefix(base, "junit") && strings.HasSuffix(base, ".xml")
}

// Scan parses every report below root, in lexical path order. Reports that
// cannot be read or parsed are logged and skipped.
func Scan(ctx context.Context, root string, log logger.Logger) ([]TestFailure, error) {
	files, err := paths.FileIndex(root)
	if err != nil {
		return nil, &provider.LocalIOError{Path: root, Err: err}
	}

	failures := []TestFailure{}
	for _, file := range files {
		if !IsReport(file) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		data, err := os.ReadFile(file)
		if err != nil {
			log.Error("[JUnit] Skipping %s: %v", file, err)
			continue
		}
		found, err := Parse(data)
		if err != nil {
			log.Error("[JUnit] Skipping %s: %v", file, err)
			continue
		}

		rel, err := filepath.Rel(root, file)
		if err != nil {
			rel = file
		}
		for i := range found {
			found[i].File = filepath.ToSlash(rel)
		}
		failures = append(failures, found...)
	}

	log.Debug("[JUnit] %d failed tests below %s", len(failures), root)
	return failures, nil
}
