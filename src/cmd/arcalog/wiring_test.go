package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"arcalog/src/collector"
	"arcalog/src/config"
	"arcalog/src/provider"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Data = t.TempDir()
	cfg.HTTP.Attempts = 1
	return cfg
}

func TestApp_Keywords(t *testing.T) {
	tests := []struct {
		name       string
		keywords   []string
		categories []string
		want       []string
		wantErr    bool
	}{
		{
			name:     "literal keywords only",
			keywords: []string{"error", "panic:"},
			want:     []string{"error", "panic:"},
		},
		{
			name:       "categories appended after keywords",
			keywords:   []string{"panic:"},
			categories: []string{"adjectives"},
			want:       []string{"panic:", "unreachable", "unresponsive", "unsigned", "unstable", "unsuccessful"},
		},
		{
			name:       "unknown category",
			categories: []string{"adverbs"},
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			cfg.Events.Keywords = tt.keywords
			cfg.Events.Categories = tt.categories

			got, err := newApp(cfg, "", io.Discard).keywords()
			if tt.wantErr {
				if err == nil {
					t.Fatal("keywords() error = nil, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("keywords() unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("keywords mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestApp_LayoutHonoursDataFlag(t *testing.T) {
	cfg := testConfig(t)
	cfg.Data = "/from/config"

	tests := []struct {
		flag string
		want string
	}{
		{"", "/from/config/"},
		{config.DefaultDataPath, "/from/config/"},
		{"/from/flag", "/from/flag/"},
	}

	for _, tt := range tests {
		t.Run(tt.flag, func(t *testing.T) {
			layout := newApp(cfg, tt.flag, io.Discard).layout("prow")
			if layout.Root != tt.want || layout.Domain != "prow" {
				t.Errorf("layout = %+v, want root %q and domain prow", layout, tt.want)
			}
		})
	}
}

func TestApp_RequireBroker(t *testing.T) {
	a := newApp(testConfig(t), "", io.Discard)
	if _, err := a.requireBroker(); err == nil || !strings.Contains(err.Error(), "REDPANDA_BROKERS") {
		t.Errorf("requireBroker() error = %v, want a hint naming REDPANDA_BROKERS", err)
	}
}

func TestApp_NewCollectorUnknownSource(t *testing.T) {
	a := newApp(testConfig(t), "", io.Discard)
	if _, err := a.newCollector("jenkins", nil, nil); !errors.Is(err, provider.ErrSourceUnknown) {
		t.Errorf("newCollector(jenkins) error = %v, want ErrSourceUnknown", err)
	}
}

func TestRunCollect_NoLocations(t *testing.T) {
	a := newApp(testConfig(t), "", io.Discard)
	if err := runCollect(context.Background(), a, io.Discard, "prow", false); err == nil {
		t.Fatal("runCollect() without a prow section = nil, want error")
	}

	a.cfg.Collection.Prow = &config.ProwConfig{Location: []string{""}}
	if err := runCollect(context.Background(), a, io.Discard, "prow", false); err == nil {
		t.Fatal("runCollect() with only blank locations = nil, want error")
	}
}

// TestCollectThenResolve runs a collection against a fake Prow deployment
// and looks a build up from the snapshots it wrote.
func TestCollectThenResolve(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/prowjobs.js":
			fmt.Fprintf(w, `{"items":[
				{"metadata":{"name":"a"},"spec":{"job":"periodic-e2e"},"status":{"state":"failure","url":"%[1]s/view/b1","build_id":"b1"}},
				{"metadata":{"name":"b"},"spec":{"job":"periodic-e2e"},"status":{"state":"success","url":"%[1]s/view/b2","build_id":"b2"}}
			]}`, server.URL)
		case "/view/b1", "/view/b2":
			fmt.Fprintf(w, `<a href="/gcs/logs%s/">Artifacts</a>`, r.URL.Path)
		case "/gcs/logs/view/b1/", "/gcs/logs/view/b2/":
			fmt.Fprint(w, `<a href="build-log.txt">build-log.txt</a>`)
		case "/gcs/logs/view/b1/build-log.txt":
			fmt.Fprint(w, "step 1\nerror: exit status 2\n")
		case "/gcs/logs/view/b2/build-log.txt":
			fmt.Fprint(w, "all good\n")
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	cfg := testConfig(t)
	cfg.Collection.Prow = &config.ProwConfig{Location: []string{server.URL}}
	a := newApp(cfg, "", io.Discard)

	var out bytes.Buffer
	if err := runCollect(context.Background(), a, &out, "prow", false); err != nil {
		t.Fatalf("runCollect() unexpected error: %v", err)
	}

	var report collector.Report
	if err := json.Unmarshal(out.Bytes(), &report); err != nil {
		t.Fatalf("collect output is not a report: %v\n%s", err, out.String())
	}
	if report.Jobs != 2 || report.Generation == nil || report.Generation.Failures != 1 {
		t.Errorf("report = %+v, want 2 jobs and one failure", report)
	}
	if filepath.Dir(report.Generation.FailurePath) != filepath.Join(cfg.Data, "prow", "failure") {
		t.Errorf("failure index written to %s, want it below %s", report.Generation.FailurePath, cfg.Data)
	}

	r, err := a.newResolver(nil)
	if err != nil {
		t.Fatalf("newResolver() unexpected error: %v", err)
	}

	// Artifacts were not collected, so the lookup mirrors them on demand.
	info, err := r.Resolve(context.Background(), "b1")
	if err != nil {
		t.Fatalf("Resolve(b1) unexpected error: %v", err)
	}
	if info.State != "failure" || info.JobType != "periodic-e2e" {
		t.Errorf("info = %+v, want a periodic-e2e failure", info)
	}
	if diff := cmp.Diff([]string{"error: exit status 2"}, info.Events); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}

	_, err = r.Resolve(context.Background(), "b9")
	var userErr *provider.UserError
	if !errors.As(provider.WrapError(err), &userErr) || !strings.Contains(userErr.Message, "valid build ID") {
		t.Errorf("Resolve(b9) error = %v, want a not-found user error", err)
	}
}
