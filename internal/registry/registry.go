// Package registry keeps saved configurations and every version of them.
// Nothing is ever deleted; retired documents are deactivated.
package registry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"ReportMapper/internal/configdoc"
	"ReportMapper/internal/editor"
	"ReportMapper/internal/logger"
)

var (
	ErrNotFound        = errors.New("configuration not found")
	ErrVersionConflict = errors.New("configuration was changed by another save")
	ErrInactive        = errors.New("configuration is deactivated")
	ErrNoConfiguration = errors.New("no configuration to save")
)

type Registry struct {
	mu       sync.RWMutex
	versions map[string][]*configdoc.Configuration
	seedDir  string
	now      func() time.Time
}

func New() *Registry {
	return &Registry{
		versions: make(map[string][]*configdoc.Configuration),
		now:      time.Now,
	}
}

// NewRegistryService builds the registry as an application service. With
// "seed_dir" set, Start imports every .json, .hjson and .yaml file in it.
func NewRegistryService(cfg map[string]interface{}) *Registry {
	r := New()
	r.seedDir, _ = cfg["seed_dir"].(string)
	return r
}

func (r *Registry) Name() string { return "registry" }

func (r *Registry) Start() error {
	if r.seedDir == "" {
		return nil
	}
	entries, err := os.ReadDir(r.seedDir)
	if err != nil {
		return fmt.Errorf("read seed dir: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(r.seedDir, entry.Name())
		switch filepath.Ext(path) {
		case ".json", ".hjson", ".yaml", ".yml":
		default:
			continue
		}
		if err := r.seed(path); err != nil {
			return err
		}
	}
	logger.L().WithFields(logrus.Fields{"dir": r.seedDir, "count": r.Len()}).Info("registry seeded")
	return nil
}

func (r *Registry) Stop() error { return nil }

func (r *Registry) seed(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	c, err := configdoc.Import(f, configdoc.DetectFormat(path))
	if err == nil {
		c, err = editor.Prepare(c, editor.Options{Now: r.now, Logger: logger.L()})
	}
	if err != nil {
		return fmt.Errorf("seed %s: %w", filepath.Base(path), err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.versions[c.ID] = append(r.versions[c.ID], configdoc.Clone(c))
	return nil
}

// Save stores c as the next version of its document. c.Version must be
// exactly one past the stored latest version, which is what
// configdoc.NextVersion produces from the version the editor started with.
// A document seen for the first time is accepted at any version.
func (r *Registry) Save(c *configdoc.Configuration) (*configdoc.Configuration, error) {
	if c == nil {
		return nil, ErrNoConfiguration
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	history := r.versions[c.ID]
	if n := len(history); n > 0 {
		latest := history[n-1]
		if !latest.IsActive {
			return nil, fmt.Errorf("%w: %s", ErrInactive, c.ID)
		}
		if c.Version != latest.Version+1 {
			return nil, fmt.Errorf("%w: %s is at version %d, save is based on version %d",
				ErrVersionConflict, c.ID, latest.Version, c.Version-1)
		}
	}

	stored := configdoc.Clone(c)
	r.versions[c.ID] = append(history, stored)
	logger.Audit("configuration saved", logrus.Fields{"id": c.ID, "version": c.Version})
	return configdoc.Clone(stored), nil
}

// Get returns the latest version.
func (r *Registry) Get(id string) (*configdoc.Configuration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	history := r.versions[id]
	if len(history) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return configdoc.Clone(history[len(history)-1]), nil
}

// Version returns one stored version.
func (r *Registry) Version(id string, version int) (*configdoc.Configuration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.versions[id] {
		if c.Version == version {
			return configdoc.Clone(c), nil
		}
	}
	return nil, fmt.Errorf("%w: %s version %d", ErrNotFound, id, version)
}

// History returns every version, oldest first.
func (r *Registry) History(id string) ([]*configdoc.Configuration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	history := r.versions[id]
	if len(history) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	out := make([]*configdoc.Configuration, len(history))
	for i, c := range history {
		out[i] = configdoc.Clone(c)
	}
	return out, nil
}

// List returns the latest version of each document ordered by name.
func (r *Registry) List(activeOnly bool) []*configdoc.Configuration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*configdoc.Configuration, 0, len(r.versions))
	for _, history := range r.versions {
		latest := history[len(history)-1]
		if activeOnly && !latest.IsActive {
			continue
		}
		out = append(out, configdoc.Clone(latest))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Deactivate retires a document. The latest version is marked inactive in
// place; older versions are kept as they were.
func (r *Registry) Deactivate(id string) (*configdoc.Configuration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	history := r.versions[id]
	if len(history) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	retired := configdoc.Deactivate(history[len(history)-1], r.now())
	history[len(history)-1] = retired
	logger.Audit("configuration deactivated", logrus.Fields{"id": id, "version": retired.Version})
	return configdoc.Clone(retired), nil
}

// Len is the number of documents.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.versions)
}
