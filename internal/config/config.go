// Package config loads and saves the engine's on-disk configuration
// file, layering CLI flags over YAML defaults the way the teacher's
// config manager does.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"github.com/mediadedupe/mediadedupe/internal/simconfig"
)

// RunConfig is the full on-disk configuration: similarity thresholds
// plus the run-level paths and knobs the CLI exposes.
type RunConfig struct {
	Similarity    simconfig.SimilarityConfig `yaml:"similarity"`
	Workers       int                        `yaml:"workers"`
	CachePath     string                     `yaml:"cache_path"`
	CatalogPath   string                     `yaml:"catalog_path"`
	PathTemplate  string                     `yaml:"path_template"`
	DupesDir      string                     `yaml:"dupes_dir"`
	ErrorsDir     string                     `yaml:"errors_dir"`
}

// Default returns the baseline RunConfig the CLI starts from before
// applying flags or a config file.
func Default() RunConfig {
	workers := runtime.NumCPU() - 1
	if workers < 1 {
		workers = 1
	}
	return RunConfig{
		Similarity:   simconfig.Default(),
		Workers:      workers,
		CachePath:    "mediadedupe-cache.db",
		CatalogPath:  "mediadedupe-catalog.db",
		PathTemplate: "{year}/{month}/{basename}",
		DupesDir:     "_duplicates",
		ErrorsDir:    "_errors",
	}
}

// Manager loads/saves RunConfig from a YAML file on disk.
type Manager struct {
	path string
}

// NewManager binds a Manager to a config file path.
func NewManager(path string) *Manager {
	return &Manager{path: path}
}

// Load reads the config file if present, otherwise returns Default().
func (m *Manager) Load() (RunConfig, error) {
	cfg := Default()
	data, err := os.ReadFile(m.path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("reading config %s: %w", m.path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", m.path, err)
	}
	return cfg, nil
}

// Save writes cfg to the manager's path, creating parent directories as
// needed.
func (m *Manager) Save(cfg RunConfig) error {
	if err := os.MkdirAll(filepath.Dir(m.path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(m.path, data, 0644); err != nil {
		return fmt.Errorf("writing config %s: %w", m.path, err)
	}
	return nil
}
