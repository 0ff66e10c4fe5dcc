package crawler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseLinks(t *testing.T) {
	page := `<html><body>
		<a href=" build-log.txt ">build-log.txt</a>
		<a name="anchor-only">no href</a>
		<div><a href="artifacts/"><span>Artifacts</span> <b>dir</b></a></div>
	</body></html>`

	got, err := ParseLinks(page)
	if err != nil {
		t.Fatalf("ParseLinks failed: %v", err)
	}

	want := []Link{
		{Href: "build-log.txt", Text: "build-log.txt"},
		{Href: "artifacts/", Text: "Artifacts dir"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseLinks mismatch (-want +got):\n%s", diff)
	}
}

func TestArtifactsURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<a href="/view/other">Job history</a><a href="/gcs/bucket/logs/job/123/"> Artifacts </a>`))
	}))
	defer server.Close()

	got, err := newTestCrawler(Options{}).ArtifactsURL(context.Background(), server.URL+"/view/gs/bucket/logs/job/123")
	if err != nil {
		t.Fatalf("ArtifactsURL failed: %v", err)
	}
	if want := server.URL + "/gcs/bucket/logs/job/123/"; got != want {
		t.Errorf("ArtifactsURL = %q, want %q", got, want)
	}
}

func TestArtifactsURL_Missing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<a href="/view/other">Job history</a>`))
	}))
	defer server.Close()

	_, err := newTestCrawler(Options{}).ArtifactsURL(context.Background(), server.URL+"/view/123")
	if !errors.Is(err, ErrNoArtifactsLink) {
		t.Errorf("expected ErrNoArtifactsLink, got %v", err)
	}
}

func TestMirrorBuild_FollowsArtifactsLink(t *testing.T) {
	tree := newFakeTree()
	tree.listings["/view/123"] = `<a href="/logs/job/123/">Artifacts</a>`
	server := httptest.NewServer(tree)
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "123")
	stats, err := newTestCrawler(Options{}).MirrorBuild(context.Background(), server.URL+"/view/123", dest)
	if err != nil {
		t.Fatalf("MirrorBuild failed: %v", err)
	}
	if stats.Downloaded != 4 {
		t.Errorf("Downloaded = %d, want 4", stats.Downloaded)
	}
}

func TestMirrorBuild_FallsBackToResultURL(t *testing.T) {
	tree := newFakeTree()
	server := httptest.NewServer(tree)
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "123")
	stats, err := newTestCrawler(Options{}).MirrorBuild(context.Background(), server.URL+"/logs/job/123/artifacts/", dest)
	if err != nil {
		t.Fatalf("MirrorBuild failed: %v", err)
	}
	if stats.Downloaded != 2 {
		t.Errorf("Downloaded = %d, want 2", stats.Downloaded)
	}
}
