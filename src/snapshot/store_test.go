package snapshot

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"arcalog/src/contracts"
	"arcalog/src/logger"
	"arcalog/src/provider"
	"github.com/google/go-cmp/cmp"
)

// newTestStore returns a store whose clock advances one second per write.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore(Layout{Root: t.TempDir(), Domain: "prow"}, &logger.SilentLogger{})
	clock := time.Date(2024, 5, 21, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return s
}

func resolverFixture(t *testing.T) *Store {
	t.Helper()
	s := newTestStore(t)
	_, err := s.Write([]byte(`{"items":[]}`), Indices{
		Failures:  BuildIndex{"b1": {URL: "http://x/1", JobType: "jobA"}},
		Successes: BuildIndex{"b2": {URL: "http://x/2", JobType: "jobB"}},
		Types:     TypeIndex{"jobA": {"b1"}, "jobB": {"b2"}},
	})
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	return s
}

func TestWrite_Layout(t *testing.T) {
	s := newTestStore(t)
	raw := []byte(`{"items":[{"kind":"ProwJob"}]}`)

	gen, err := s.Write(raw, Indices{
		Failures:  BuildIndex{"b1": {URL: "http://x/1", JobType: "jobA"}},
		Successes: BuildIndex{},
		Types:     TypeIndex{"jobA": {"b1"}},
	})
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	domain := filepath.Join(s.layout.Root, "prow")
	want := &Generation{
		ID:          "2024-05-21-10-00-01.000000000",
		CollectPath: filepath.Join(domain, "collect-2024-05-21-10-00-01.000000000.json"),
		FailurePath: filepath.Join(domain, "failure", "builds-2024-05-21-10-00-01.000000000.json"),
		SuccessPath: filepath.Join(domain, "success", "builds-2024-05-21-10-00-01.000000000.json"),
		TypePath:    filepath.Join(domain, "type", "types-2024-05-21-10-00-01.000000000.json"),
		Failures:    1,
		JobTypes:    1,
	}
	if diff := cmp.Diff(want, gen); diff != "" {
		t.Errorf("generation mismatch (-want +got):\n%s", diff)
	}

	got, err := os.ReadFile(gen.CollectPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(raw) {
		t.Errorf("raw document not stored verbatim: %s", got)
	}

	if _, err := os.Stat(filepath.Join(domain, "artifacts")); err != nil {
		t.Errorf("artifacts directory not created: %v", err)
	}

	types, err := ReadTypeIndex(gen.TypePath)
	if err != nil {
		t.Fatalf("ReadTypeIndex failed: %v", err)
	}
	if diff := cmp.Diff(TypeIndex{"jobA": {"b1"}}, types); diff != "" {
		t.Errorf("type index mismatch (-want +got):\n%s", diff)
	}
}

func TestWrite_NeverOverwrites(t *testing.T) {
	s := newTestStore(t)
	fixed := time.Date(2024, 5, 21, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	first, err := s.Write([]byte("first"), Indices{})
	if err != nil {
		t.Fatalf("first Write failed: %v", err)
	}

	_, err = s.Write([]byte("second"), Indices{})
	var ioErr *provider.LocalIOError
	if !errors.As(err, &ioErr) {
		t.Fatalf("expected LocalIOError on collision, got %v", err)
	}

	got, _ := os.ReadFile(first.CollectPath)
	if string(got) != "first" {
		t.Errorf("existing snapshot was overwritten: %q", got)
	}
}

func TestWrite_TwoFetchesProduceTwoGenerations(t *testing.T) {
	s := newTestStore(t)

	for i := 0; i < 2; i++ {
		if _, err := s.Write([]byte(`{"items":[]}`), Indices{}); err != nil {
			t.Fatalf("Write %d failed: %v", i, err)
		}
	}

	for _, kind := range []Kind{KindCollect, KindFailure, KindSuccess, KindType} {
		files, err := s.Generations(kind)
		if err != nil {
			t.Fatalf("Generations(%s) failed: %v", kind, err)
		}
		if len(files) != 2 {
			t.Errorf("Generations(%s) = %d files, want 2", kind, len(files))
		}
	}
}

func TestGenerations_OldestFirst(t *testing.T) {
	s := newTestStore(t)
	var ids []string
	for i := 0; i < 3; i++ {
		gen, err := s.Write([]byte("{}"), Indices{})
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, gen.ID)
	}

	files, err := s.Generations(KindFailure)
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, f := range files {
		got = append(got, GenerationID(f))
	}
	if diff := cmp.Diff(ids, got); diff != "" {
		t.Errorf("generation order mismatch (-want +got):\n%s", diff)
	}
}

func TestGenerations_MissingDirectory(t *testing.T) {
	s := NewStore(Layout{Root: t.TempDir(), Domain: "prow"}, &logger.SilentLogger{})
	files, err := s.Generations(KindSuccess)
	if err != nil {
		t.Fatalf("Generations failed: %v", err)
	}
	if len(files) != 0 {
		t.Errorf("expected no generations, got %v", files)
	}
}

func TestFindBuild(t *testing.T) {
	s := resolverFixture(t)
	ctx := context.Background()

	got, err := s.FindBuild(ctx, "b1")
	if err != nil {
		t.Fatalf("FindBuild(b1) failed: %v", err)
	}
	want := &contracts.BuildRecord{
		BuildID:    "b1",
		URL:        "http://x/1",
		JobType:    "jobA",
		State:      contracts.StateFailure,
		Generation: "2024-05-21-10-00-01.000000000",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("FindBuild(b1) mismatch (-want +got):\n%s", diff)
	}

	got, err = s.FindBuild(ctx, "b2")
	if err != nil {
		t.Fatalf("FindBuild(b2) failed: %v", err)
	}
	if got.State != contracts.StateSuccess || got.JobType != "jobB" {
		t.Errorf("FindBuild(b2) = %+v", got)
	}

	_, err = s.FindBuild(ctx, "b3")
	var nf *provider.NotFoundError
	if !errors.As(err, &nf) || nf.BuildID != "b3" {
		t.Errorf("FindBuild(b3) error = %v, want NotFoundError", err)
	}

	_, err = s.FindBuild(ctx, "")
	var inputErr *provider.InputError
	if !errors.As(err, &inputErr) {
		t.Errorf("FindBuild(\"\") error = %v, want InputError", err)
	}
}

func TestFindBuild_NewestGenerationWins(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Write([]byte("{}"), Indices{
		Successes: BuildIndex{"b1": {URL: "http://old/1", JobType: "jobA"}},
	}); err != nil {
		t.Fatal(err)
	}
	latest, err := s.Write([]byte("{}"), Indices{
		Successes: BuildIndex{"b1": {URL: "http://new/1", JobType: "jobA-renamed"}},
	})
	if err != nil {
		t.Fatal(err)
	}

	got, err := s.FindBuild(context.Background(), "b1")
	if err != nil {
		t.Fatalf("FindBuild failed: %v", err)
	}
	if got.URL != "http://new/1" || got.JobType != "jobA-renamed" || got.Generation != latest.ID {
		t.Errorf("expected newest generation to win, got %+v", got)
	}
}

func TestFindBuild_FailureBeatsNewerSuccess(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Write([]byte("{}"), Indices{
		Failures: BuildIndex{"b1": {URL: "http://x/1", JobType: "jobA"}},
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Write([]byte("{}"), Indices{
		Successes: BuildIndex{"b1": {URL: "http://x/1", JobType: "jobA"}},
	}); err != nil {
		t.Fatal(err)
	}

	got, err := s.FindBuild(context.Background(), "b1")
	if err != nil {
		t.Fatalf("FindBuild failed: %v", err)
	}
	if got.State != contracts.StateFailure {
		t.Errorf("State = %q, want failure", got.State)
	}
}

func TestFindBuild_SkipsCorruptSnapshot(t *testing.T) {
	s := resolverFixture(t)
	corrupt := filepath.Join(s.layout.Dir(KindFailure), FileName(KindFailure, "2099-01-01-00-00-00.000000000"))
	if err := os.WriteFile(corrupt, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := s.FindBuild(context.Background(), "b1")
	if err != nil {
		t.Fatalf("FindBuild failed: %v", err)
	}
	if got.State != contracts.StateFailure {
		t.Errorf("State = %q, want failure", got.State)
	}
}

func TestRecords(t *testing.T) {
	got := Records("g1", Indices{
		Failures:  BuildIndex{"b1": {URL: "u1", JobType: "jobA"}},
		Successes: BuildIndex{"b3": {URL: "u3", JobType: "jobB"}, "b2": {URL: "u2", JobType: "jobB"}},
	})

	want := []contracts.BuildRecord{
		{BuildID: "b2", URL: "u2", JobType: "jobB", State: "success", Generation: "g1"},
		{BuildID: "b3", URL: "u3", JobType: "jobB", State: "success", Generation: "g1"},
		{BuildID: "b1", URL: "u1", JobType: "jobA", State: "failure", Generation: "g1"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Records mismatch (-want +got):\n%s", diff)
	}
}
