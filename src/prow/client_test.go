package prow

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"arcalog/src/provider"
)

const jobListFixture = `{
  "items": [
    {
      "kind": "ProwJob",
      "metadata": {"name": "a1", "labels": {"prow.k8s.io/job": "jobA", "prow.k8s.io/refs.pull": 42}},
      "spec": {"type": "presubmit", "job": "jobA"},
      "status": {"state": "failure", "url": "https://prow/view/b1", "build_id": "b1"}
    },
    {
      "kind": "ProwJob",
      "metadata": {"name": "a2"},
      "spec": {"type": "periodic", "job": "jobB"},
      "status": {"state": "success", "url": "https://prow/view/b2", "build_id": "b2"}
    }
  ]
}`

func testOptions() provider.Options {
	return provider.Options{
		Timeout:    5 * time.Second,
		Attempts:   3,
		Backoff:    time.Millisecond,
		MaxBackoff: 2 * time.Millisecond,
		UserAgent:  "arcalog-test",
	}
}

func TestGetJobList(t *testing.T) {
	var gotPath, gotAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAgent = r.Header.Get("User-Agent")
		w.Write([]byte(jobListFixture))
	}))
	defer server.Close()

	client := NewClient(testOptions())
	listing, err := client.GetJobList(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("GetJobList failed: %v", err)
	}

	if gotPath != "/prowjobs.js" {
		t.Errorf("requested path = %q, want /prowjobs.js", gotPath)
	}
	if gotAgent != "arcalog-test" {
		t.Errorf("User-Agent = %q, want arcalog-test", gotAgent)
	}
	if listing.URL != server.URL+"/prowjobs.js" {
		t.Errorf("listing.URL = %q", listing.URL)
	}
	if string(listing.Raw) != jobListFixture {
		t.Error("Raw document was not kept verbatim")
	}
	if len(listing.Jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(listing.Jobs))
	}

	first := listing.Jobs[0]
	if first.BuildID() != "b1" || first.JobType() != "jobA" || first.Status.State != "failure" {
		t.Errorf("unexpected first job: %+v", first)
	}
	if first.Metadata.Labels["prow.k8s.io/refs.pull"] != "42" {
		t.Errorf("non-string label not flattened: %v", first.Metadata.Labels)
	}
	if listing.Jobs[1].JobType() != "jobB" {
		t.Errorf("JobType fallback to spec.job = %q, want jobB", listing.Jobs[1].JobType())
	}
}

func TestGetJobList_LocationWithSlash(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/prow/prowjobs.js" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{"items": []}`))
	}))
	defer server.Close()

	client := NewClient(testOptions())
	for _, location := range []string{server.URL + "/prow", server.URL + "/prow/"} {
		listing, err := client.GetJobList(context.Background(), location)
		if err != nil {
			t.Fatalf("GetJobList(%q) failed: %v", location, err)
		}
		if len(listing.Jobs) != 0 {
			t.Errorf("expected empty job list, got %d", len(listing.Jobs))
		}
	}
}

func TestGetJobList_Errors(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		body          string
		wantTransient bool
		wantCalls     int32
	}{
		{"server error is retried", http.StatusBadGateway, "bad gateway", true, 3},
		{"rate limited is retried", http.StatusTooManyRequests, "slow down", true, 3},
		{"not found is permanent", http.StatusNotFound, "missing", false, 1},
		{"malformed json", http.StatusOK, "{not json", false, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewClient(testOptions())
			_, err := client.GetJobList(context.Background(), server.URL)
			if err == nil {
				t.Fatal("expected error")
			}

			if provider.IsTransient(err) != tt.wantTransient {
				t.Errorf("IsTransient(%v) = %v, want %v", err, !tt.wantTransient, tt.wantTransient)
			}
			if !tt.wantTransient {
				var formatErr *provider.RemoteFormatError
				if !errors.As(err, &formatErr) {
					t.Errorf("expected RemoteFormatError, got %T", err)
				}
			}
			if got := atomic.LoadInt32(&calls); got != tt.wantCalls {
				t.Errorf("server saw %d calls, want %d", got, tt.wantCalls)
			}
		})
	}
}

func TestGetJobList_SkipsUndecodableItems(t *testing.T) {
	const doc = `{"items": [
		{"status": {"state": "failure", "url": "https://prow/view/b1", "build_id": "b1"}},
		{"status": {"state": "failure", "url": "https://prow/view/b2", "build_id": 12345}}
	]}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(doc))
	}))
	defer server.Close()

	listing, err := NewClient(testOptions()).GetJobList(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("GetJobList failed: %v", err)
	}
	if len(listing.Jobs) != 1 || listing.Jobs[0].BuildID() != "b1" {
		t.Errorf("Jobs = %+v, want only b1", listing.Jobs)
	}
	if string(listing.Raw) != doc {
		t.Error("Raw document was not kept verbatim")
	}
	if len(listing.Skipped) != 1 {
		t.Fatalf("Skipped = %v, want one entry", listing.Skipped)
	}
	var formatErr *provider.RemoteFormatError
	if !errors.As(listing.Skipped[0], &formatErr) {
		t.Errorf("Skipped[0] = %T, want *provider.RemoteFormatError", listing.Skipped[0])
	}
}

func TestGetJobList_RateLimitSentinel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := NewClient(testOptions()).GetJobList(context.Background(), server.URL)
	if !errors.Is(err, provider.ErrRateLimited) {
		t.Errorf("expected ErrRateLimited in chain, got %v", err)
	}
}

func TestGetPage_RecoversAfterTransientFailure(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`<a href="artifacts/">Artifacts</a>`))
	}))
	defer server.Close()

	body, err := NewClient(testOptions()).GetPage(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("GetPage failed: %v", err)
	}
	if body != `<a href="artifacts/">Artifacts</a>` {
		t.Errorf("unexpected body %q", body)
	}
}

func TestDownload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("line one\nan error occurred\n"))
	}))
	defer server.Close()

	var buf bytes.Buffer
	n, err := NewClient(testOptions()).Download(context.Background(), server.URL+"/build-log.txt", &buf)
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	if n != int64(buf.Len()) || buf.String() != "line one\nan error occurred\n" {
		t.Errorf("Download wrote %d bytes: %q", n, buf.String())
	}
}

func TestDownload_Cancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewClient(testOptions()).Download(ctx, server.URL, &bytes.Buffer{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestSourceRegistered(t *testing.T) {
	src, err := provider.GetSource(SourceName, testOptions())
	if err != nil {
		t.Fatalf("GetSource failed: %v", err)
	}
	if src.Name() != "prow" {
		t.Errorf("Name() = %q, want prow", src.Name())
	}
	if src.Client() == nil {
		t.Error("Client() returned nil")
	}
}
