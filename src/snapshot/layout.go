package snapshot

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"arcalog/src/provider"
)

// Kind names one family of snapshot files.
type Kind string

const (
	KindCollect Kind = "collect"
	KindFailure Kind = "failure"
	KindSuccess Kind = "success"
	KindType    Kind = "type"
)

// Layout is the on-disk arrangement below the storage root:
//
//	<root>/<domain>/collect-<id>.json
//	<root>/<domain>/failure/builds-<id>.json
//	<root>/<domain>/success/builds-<id>.json
//	<root>/<domain>/type/types-<id>.json
//	<root>/<domain>/artifacts/<build_id>/...
type Layout struct {
	Root   string
	Domain string
}

// DomainDir is <root>/<domain>.
func (l Layout) DomainDir() string {
	return filepath.Join(l.Root, l.Domain)
}

// Dir returns the directory holding files of the given kind.
func (l Layout) Dir(kind Kind) string {
	if kind == KindCollect {
		return l.DomainDir()
	}
	return filepath.Join(l.DomainDir(), string(kind))
}

// ArtifactsDir is <root>/<domain>/artifacts.
func (l Layout) ArtifactsDir() string {
	return filepath.Join(l.DomainDir(), "artifacts")
}

// CheckBuildID accepts ids that name exactly one directory below the
// artifacts directory. Empty ids yield ErrEmptyBuildID.
func CheckBuildID(buildID string) error {
	switch {
	case buildID == "":
		return &provider.InputError{Field: "build_id", Err: provider.ErrEmptyBuildID}
	case buildID == ".", buildID == "..",
		strings.ContainsAny(buildID, `/\`+"\x00"),
		filepath.Base(buildID) != buildID:
		return &provider.InputError{Field: "build_id", Err: fmt.Errorf("%q: %w", buildID, provider.ErrUnsafeBuildID)}
	}
	return nil
}

// ArtifactDir is the mirror root of one build. Ids rejected by CheckBuildID
// never map to a directory.
func (l Layout) ArtifactDir(buildID string) (string, error) {
	if err := CheckBuildID(buildID); err != nil {
		return "", err
	}
	return filepath.Join(l.ArtifactsDir(), buildID), nil
}

// EnsureDirs creates the success, failure, type and artifacts directories.
func (l Layout) EnsureDirs() error {
	for _, dir := range []string{l.Dir(KindSuccess), l.Dir(KindFailure), l.Dir(KindType), l.ArtifactsDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return &provider.LocalIOError{Path: dir, Err: err}
		}
	}
	return nil
}

func filePrefix(kind Kind) string {
	switch kind {
	case KindCollect:
		return "collect-"
	case KindType:
		return "types-"
	default:
		return "builds-"
	}
}

// FileName returns the name of the kind's file for generation id.
func FileName(kind Kind, id string) string {
	return filePrefix(kind) + id + ".json"
}
