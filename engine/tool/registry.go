package tool

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/goccy/go-yaml"
	"github.com/spf13/afero"
)

// ErrNotFound is the sentinel wrapped by Registry.Get for unknown tools.
var ErrNotFound = fmt.Errorf("tool not found")

// Registry holds the set of tool definitions available to workflows. It
// is populated before runs start and is read-only while runs are in
// flight.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*Config
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]*Config)}
}

// Register validates and stores a definition, replacing any previous one
// with the same ID.
func (r *Registry) Register(cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[cfg.ID] = cfg
	return nil
}

func (r *Registry) Get(toolID string) (*Config, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.tools[toolID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, toolID)
	}
	return cfg, nil
}

// Has reports whether a tool ID is registered. It satisfies the
// workflow validator's tool-resolution contract.
func (r *Registry) Has(toolID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tools[toolID]
	return ok
}

// List returns all definitions sorted by ID.
func (r *Registry) List() []*Config {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tools := make([]*Config, 0, len(r.tools))
	for _, cfg := range r.tools {
		tools = append(tools, cfg)
	}
	sort.Slice(tools, func(i, j int) bool { return tools[i].ID < tools[j].ID })
	return tools
}

// ContextSummary renders a one-line-per-tool summary used as planner
// context by external callers.
func (r *Registry) ContextSummary() string {
	var lines []string
	for _, cfg := range r.List() {
		lines = append(lines, fmt.Sprintf("- %s: %s (%s)", cfg.ID, cfg.Name, cfg.Description))
	}
	return strings.Join(lines, "\n")
}

// LoadDir loads every *.yaml definition in dir into the registry.
func (r *Registry) LoadDir(fs afero.Fs, dir string) error {
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		return fmt.Errorf("failed to read registry dir %q: %w", dir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		if err := r.LoadFile(fs, filepath.Join(dir, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

// LoadFile loads a single YAML tool definition. Unknown keys are ignored;
// missing optional keys stay absent.
func (r *Registry) LoadFile(fs afero.Fs, path string) error {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return fmt.Errorf("failed to read tool file %q: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("failed to parse tool file %q: %w", path, err)
	}
	if err := r.Register(&cfg); err != nil {
		return fmt.Errorf("failed to register tool from %q: %w", path, err)
	}
	return nil
}

// Map returns a snapshot of the registry keyed by tool ID.
func (r *Registry) Map() map[string]*Config {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]*Config, len(r.tools))
	for id, cfg := range r.tools {
		out[id] = cfg
	}
	return out
}
