// Package store persists workflows and runs as JSON documents on an
// afero filesystem, one file per entity, written atomically.
package store

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/afero"

	"github.com/apiflow/apiflow/engine/run"
	"github.com/apiflow/apiflow/engine/workflow"
)

type Store struct {
	fs           afero.Fs
	workflowsDir string
	runsDir      string
	mu           sync.Mutex
}

func New(fs afero.Fs, baseDir string) (*Store, error) {
	s := &Store{
		fs:           fs,
		workflowsDir: filepath.Join(baseDir, "workflows"),
		runsDir:      filepath.Join(baseDir, "runs"),
	}
	for _, dir := range []string{s.workflowsDir, s.runsDir} {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create store dir %q: %w", dir, err)
		}
	}
	return s, nil
}

// -----------------------------------------------------------------------------
// Workflows
// -----------------------------------------------------------------------------

func (s *Store) SaveWorkflow(wf *workflow.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeJSON(filepath.Join(s.workflowsDir, wf.ID+".json"), wf)
}

func (s *Store) LoadWorkflow(workflowID string) (*workflow.Config, error) {
	var wf workflow.Config
	if err := s.readJSON(filepath.Join(s.workflowsDir, workflowID+".json"), &wf); err != nil {
		return nil, fmt.Errorf("workflow %q: %w", workflowID, err)
	}
	return &wf, nil
}

func (s *Store) ListWorkflows() ([]*workflow.Config, error) {
	var workflows []*workflow.Config
	err := s.eachJSON(s.workflowsDir, func(path string) error {
		var wf workflow.Config
		if err := s.readJSON(path, &wf); err != nil {
			return err
		}
		workflows = append(workflows, &wf)
		return nil
	})
	return workflows, err
}

// -----------------------------------------------------------------------------
// Runs
// -----------------------------------------------------------------------------

func (s *Store) SaveRun(r *run.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeJSON(filepath.Join(s.runsDir, r.ID.String()+".json"), r)
}

func (s *Store) LoadRun(runID string) (*run.Run, error) {
	var r run.Run
	if err := s.readJSON(filepath.Join(s.runsDir, runID+".json"), &r); err != nil {
		return nil, fmt.Errorf("run %q: %w", runID, err)
	}
	return &r, nil
}

// ListRuns returns all runs, optionally filtered by workflow ID.
func (s *Store) ListRuns(workflowID string) ([]*run.Run, error) {
	var runs []*run.Run
	err := s.eachJSON(s.runsDir, func(path string) error {
		var r run.Run
		if err := s.readJSON(path, &r); err != nil {
			return err
		}
		if workflowID == "" || r.WorkflowID == workflowID {
			runs = append(runs, &r)
		}
		return nil
	})
	return runs, err
}

// -----------------------------------------------------------------------------
// JSON plumbing
// -----------------------------------------------------------------------------

func (s *Store) writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %q: %w", path, err)
	}
	tmp := path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %q: %w", tmp, err)
	}
	if err := s.fs.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace %q: %w", path, err)
	}
	return nil
}

func (s *Store) readJSON(path string, into any) error {
	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		return fmt.Errorf("not found: %w", err)
	}
	if err := json.Unmarshal(data, into); err != nil {
		return fmt.Errorf("failed to decode %q: %w", path, err)
	}
	return nil
}

func (s *Store) eachJSON(dir string, visit func(path string) error) error {
	entries, err := afero.ReadDir(s.fs, dir)
	if err != nil {
		return fmt.Errorf("failed to read dir %q: %w", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	for _, name := range names {
		if err := visit(filepath.Join(dir, name)); err != nil {
			return err
		}
	}
	return nil
}
