package events

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"arcalog/src/logger"
	"github.com/google/go-cmp/cmp"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func texts(t *testing.T, e *Extractor, root string) []string {
	t.Helper()
	events, err := e.Extract(context.Background(), "b1", root)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	var out []string
	for _, ev := range events {
		out = append(out, ev.Text)
	}
	return out
}

func TestExtract_CaseSensitiveSubstring(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "build-log.txt"), "ok\nan error occurred\nERROR CODE 5\n")

	got := texts(t, NewExtractor([]string{"error"}, &logger.SilentLogger{}), root)

	if diff := cmp.Diff([]string{"an error occurred"}, got); diff != "" {
		t.Errorf("Extract mismatch (-want +got):\n%s", diff)
	}
}

func TestExtract_EventFields(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "artifacts", "pod.log"), "starting\nfatal error: out of memory\n")

	events, err := NewExtractor(nil, &logger.SilentLogger{}).Extract(context.Background(), "b7", root)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}

	ev := events[0]
	if ev.BuildID != "b7" || ev.File != "artifacts/pod.log" || ev.Line != 2 {
		t.Errorf("unexpected event %+v", ev)
	}
	if ev.Fingerprint != Fingerprint("fatal error: out of memory") {
		t.Errorf("fingerprint mismatch")
	}
}

func TestExtract_FileThenLineOrder(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "b.log"), "error b1\nerror b2\n")
	writeFile(t, filepath.Join(root, "a", "z.log"), "error a1\n")
	writeFile(t, filepath.Join(root, "c.log"), "nothing\nerror c1\n")

	got := texts(t, NewExtractor([]string{"error"}, &logger.SilentLogger{}), root)

	want := []string{"error a1", "error b1", "error b2", "error c1"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestExtract_SkipsBinaryAndInvalidUTF8(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "blob.bin"), "error\x00\x01\x02")
	writeFile(t, filepath.Join(root, "mixed.log"), "error \xff\xfe bytes\nplain error\n")

	got := texts(t, NewExtractor([]string{"error"}, &logger.SilentLogger{}), root)

	if diff := cmp.Diff([]string{"plain error"}, got); diff != "" {
		t.Errorf("Extract mismatch (-want +got):\n%s", diff)
	}
}

func TestExtract_OversizedLineEndsFile(t *testing.T) {
	root := t.TempDir()
	huge := strings.Repeat("x", MaxLineSize+1)
	writeFile(t, filepath.Join(root, "a.log"), "error before\n"+huge+"\nerror after\n")
	writeFile(t, filepath.Join(root, "b.log"), "error in next file\n")

	got := texts(t, NewExtractor([]string{"error"}, &logger.SilentLogger{}), root)

	want := []string{"error before", "error in next file"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Extract mismatch (-want +got):\n%s", diff)
	}
}

func TestExtract_MissingRoot(t *testing.T) {
	events, err := NewExtractor(nil, &logger.SilentLogger{}).Extract(context.Background(), "b1", filepath.Join(t.TempDir(), "absent"))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("expected no events, got %v", events)
	}
}

func TestExtract_Cancelled(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.log"), "error\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewExtractor(nil, &logger.SilentLogger{}).Extract(ctx, "b1", root); err == nil {
		t.Error("expected error from cancelled context")
	}
}

func TestNewExtractor_Keywords(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"defaults", nil, []string{"error"}},
		{"dedup and drop empty", []string{"fail", "", "fail", "timeout"}, []string{"fail", "timeout"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewExtractor(tt.in, &logger.SilentLogger{}).Keywords()
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Keywords mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestVocabulary_Keywords(t *testing.T) {
	v := DefaultVocabulary()

	if len(v.Verbs) != 46 {
		t.Errorf("expected 46 verbs, got %d", len(v.Verbs))
	}

	got, err := v.Keywords(Nouns, Adjectives)
	if err != nil {
		t.Fatalf("Keywords failed: %v", err)
	}
	want := []string{
		"error", "failure", "mistake", "problem", "timeout", "warning",
		"unreachable", "unresponsive", "unsigned", "unstable", "unsuccessful",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Keywords mismatch (-want +got):\n%s", diff)
	}

	if _, err := v.Keywords("adverbs"); err == nil {
		t.Error("expected error for unknown category")
	}
}
