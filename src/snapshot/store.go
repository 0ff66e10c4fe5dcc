package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"arcalog/src/contracts"
	"arcalog/src/logger"
	"arcalog/src/paths"
	"arcalog/src/provider"
)

// Generation describes one written snapshot.
type Generation struct {
	ID string `json:"id"`

	CollectPath string `json:"collect_path"`
	FailurePath string `json:"failure_path"`
	SuccessPath string `json:"success_path"`
	TypePath    string `json:"type_path"`

	Failures  int `json:"failures"`
	Successes int `json:"successes"`
	JobTypes  int `json:"job_types"`
}

// Store writes and reads snapshot generations below a Layout.
type Store struct {
	layout Layout
	logger logger.Logger
	now    func() time.Time
}

// NewStore creates a snapshot store.
func NewStore(layout Layout, log logger.Logger) *Store {
	return &Store{
		layout: layout,
		logger: log,
		now:    time.Now,
	}
}

// Layout returns the layout the store writes to.
func (s *Store) Layout() Layout {
	return s.layout
}

// Write persists the raw document and its indices as a new generation.
// Every file is created exclusively; an existing file is never replaced.
func (s *Store) Write(raw []byte, idx Indices) (*Generation, error) {
	if err := s.layout.EnsureDirs(); err != nil {
		return nil, err
	}
	if idx.Failures == nil {
		idx.Failures = BuildIndex{}
	}
	if idx.Successes == nil {
		idx.Successes = BuildIndex{}
	}
	if idx.Types == nil {
		idx.Types = TypeIndex{}
	}

	gen := &Generation{
		ID:        paths.TimeID(s.now()),
		Failures:  len(idx.Failures),
		Successes: len(idx.Successes),
		JobTypes:  len(idx.Types),
	}
	gen.CollectPath = filepath.Join(s.layout.Dir(KindCollect), FileName(KindCollect, gen.ID))
	gen.FailurePath = filepath.Join(s.layout.Dir(KindFailure), FileName(KindFailure, gen.ID))
	gen.SuccessPath = filepath.Join(s.layout.Dir(KindSuccess), FileName(KindSuccess, gen.ID))
	gen.TypePath = filepath.Join(s.layout.Dir(KindType), FileName(KindType, gen.ID))

	if err := writeExclusive(gen.CollectPath, raw); err != nil {
		return nil, err
	}

	files := []struct {
		path  string
		value any
	}{
		{gen.FailurePath, idx.Failures},
		{gen.SuccessPath, idx.Successes},
		{gen.TypePath, idx.Types},
	}
	for _, f := range files {
		data, err := json.Marshal(f.value)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", f.path, err)
		}
		if err := writeExclusive(f.path, data); err != nil {
			return nil, err
		}
	}

	s.logger.Info("[Snapshot] Wrote generation %s (%d failures, %d successes, %d job types)",
		gen.ID, gen.Failures, gen.Successes, gen.JobTypes)
	return gen, nil
}

func writeExclusive(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return &provider.LocalIOError{Path: path, Err: err}
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return &provider.LocalIOError{Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		return &provider.LocalIOError{Path: path, Err: err}
	}
	return nil
}

// Generations lists the files of kind, oldest first. A missing directory
// yields no generations.
func (s *Store) Generations(kind Kind) ([]string, error) {
	dir := s.layout.Dir(kind)
	files, err := paths.FilesInFolder(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, &provider.LocalIOError{Path: dir, Err: err}
	}

	prefix := filePrefix(kind)
	var out []string
	for _, f := range files {
		name := filepath.Base(f)
		if strings.HasPrefix(name, prefix) && strings.HasSuffix(name, ".json") {
			out = append(out, f)
		}
	}
	return out, nil
}

// GenerationID extracts the generation id from a snapshot file path.
func GenerationID(path string) string {
	name := strings.TrimSuffix(filepath.Base(path), ".json")
	for _, prefix := range []string{"collect-", "builds-", "types-"} {
		if strings.HasPrefix(name, prefix) {
			return strings.TrimPrefix(name, prefix)
		}
	}
	return name
}

// ReadBuildIndex decodes one failure or success index file.
func ReadBuildIndex(path string) (BuildIndex, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &provider.LocalIOError{Path: path, Err: err}
	}
	var idx BuildIndex
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return idx, nil
}

// ReadTypeIndex decodes one job-type index file.
func ReadTypeIndex(path string) (TypeIndex, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &provider.LocalIOError{Path: path, Err: err}
	}
	var idx TypeIndex
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return idx, nil
}

// FindBuild scans every failure snapshot and then every success snapshot,
// newest generation first, and returns the first entry for buildID. A build
// that failed in any snapshot is reported as a failure. Unreadable snapshot
// files are logged and skipped.
func (s *Store) FindBuild(ctx context.Context, buildID string) (*contracts.BuildRecord, error) {
	if buildID == "" {
		return nil, &provider.InputError{Field: "build_id", Err: provider.ErrEmptyBuildID}
	}

	passes := []struct {
		kind  Kind
		state string
	}{
		{KindFailure, contracts.StateFailure},
		{KindSuccess, contracts.StateSuccess},
	}

	for _, pass := range passes {
		files, err := s.Generations(pass.kind)
		if err != nil {
			return nil, err
		}

		for i := len(files) - 1; i >= 0; i-- {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			idx, err := ReadBuildIndex(files[i])
			if err != nil {
				s.logger.Error("[Snapshot] Skipping %s: %v", files[i], err)
				continue
			}

			if entry, ok := idx[buildID]; ok {
				return &contracts.BuildRecord{
					BuildID:    buildID,
					URL:        entry.URL,
					JobType:    entry.JobType,
					State:      pass.state,
					Generation: GenerationID(files[i]),
				}, nil
			}
		}
	}

	return nil, &provider.NotFoundError{BuildID: buildID}
}

// Records flattens indices into build records tagged with a generation,
// successes before failures, each sorted by build id.
func Records(generationID string, idx Indices) []contracts.BuildRecord {
	records := make([]contracts.BuildRecord, 0, len(idx.Failures)+len(idx.Successes))
	for _, id := range sortedKeys(idx.Successes) {
		entry := idx.Successes[id]
		records = append(records, contracts.BuildRecord{
			BuildID: id, URL: entry.URL, JobType: entry.JobType,
			State: contracts.StateSuccess, Generation: generationID,
		})
	}
	for _, id := range sortedKeys(idx.Failures) {
		entry := idx.Failures[id]
		records = append(records, contracts.BuildRecord{
			BuildID: id, URL: entry.URL, JobType: entry.JobType,
			State: contracts.StateFailure, Generation: generationID,
		})
	}
	return records
}

func sortedKeys(idx BuildIndex) []string {
	keys := make([]string, 0, len(idx))
	for k := range idx {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
