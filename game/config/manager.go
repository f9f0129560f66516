package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/wricardo/moodjournal/game/engine"
	"github.com/wricardo/moodjournal/game/service"
)

// BuiltinName is the id of the preset served when no file provides it
const BuiltinName = "classic"

var (
	ErrConfigNotFound = service.ErrConfigNotFound
	ErrInvalidConfig  = errors.New("invalid configuration")
)

// Option configures a Manager
type Option func(*Manager)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// Manager handles game preset loading and caching. Presets are JSON or YAML
// files in one directory; the id of a preset is its file name without extension.
type Manager struct {
	configDir     string
	defaultConfig *engine.GameConfig
	configs       map[string]*engine.GameConfig
	logger        *zap.Logger
	mu            sync.RWMutex
}

// NewManager creates a new configuration manager. A missing directory is not
// an error: only the built-in classic preset is available until a preset is saved.
func NewManager(configDir string, opts ...Option) (*Manager, error) {
	if info, err := os.Stat(configDir); err == nil && !info.IsDir() {
		return nil, fmt.Errorf("config path is not a directory: %s", configDir)
	}

	m := &Manager{
		configDir: configDir,
		configs:   make(map[string]*engine.GameConfig),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadDefaultConfig()

	return m, nil
}

// LoadConfig loads a configuration by id. The extension may be omitted.
func (m *Manager) LoadConfig(name string) (*engine.GameConfig, error) {
	id := configID(name)

	m.mu.RLock()
	if config, exists := m.configs[id]; exists {
		m.mu.RUnlock()
		return config, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.load(id)
}

// load reads a preset from disk into the cache. Caller holds the write lock.
func (m *Manager) load(id string) (*engine.GameConfig, error) {
	if config, exists := m.configs[id]; exists {
		return config, nil
	}
	if id == "" || strings.ContainsAny(id, `/\`) {
		return nil, fmt.Errorf("%w: '%s'", ErrConfigNotFound, id)
	}

	path, found := m.findFile(id)
	if !found {
		if id == BuiltinName {
			config := engine.DefaultConfig()
			m.configs[id] = config
			return config, nil
		}
		return nil, fmt.Errorf("%w: '%s'", ErrConfigNotFound, id)
	}

	config, err := engine.LoadConfigFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	m.configs[id] = config
	return config, nil
}

// findFile returns the first existing preset file for id
func (m *Manager) findFile(id string) (string, bool) {
	for _, ext := range engine.ConfigExtensions {
		path := filepath.Join(m.configDir, id+ext)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}

// ListConfigs returns information about all available configurations sorted
// by id. Invalid files are skipped and logged.
func (m *Manager) ListConfigs() ([]*service.ConfigInfo, error) {
	entries, err := os.ReadDir(m.configDir)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config directory: %w", err)
	}

	seen := make(map[string]bool)
	var configs []*service.ConfigInfo

	for _, entry := range entries {
		if entry.IsDir() || !engine.IsConfigFile(entry.Name()) {
			continue
		}

		id := configID(entry.Name())
		if seen[id] {
			continue
		}

		config, err := m.LoadConfig(id)
		if err != nil {
			m.logger.Warn("skipping invalid preset", zap.String("file", entry.Name()), zap.Error(err))
			continue
		}
		seen[id] = true
		configs = append(configs, configInfo(entry.Name(), id, config))
	}

	if !seen[BuiltinName] {
		configs = append(configs, configInfo("", BuiltinName, engine.DefaultConfig()))
	}

	sort.Slice(configs, func(i, j int) bool { return configs[i].ConfigID < configs[j].ConfigID })
	return configs, nil
}

func configInfo(filename, id string, config *engine.GameConfig) *service.ConfigInfo {
	return &service.ConfigInfo{
		Filename:        filename,
		ConfigID:        id,
		Name:            config.Name,
		Description:     config.Description,
		Pairs:           config.Pairs,
		SymbolPool:      len(config.Symbols),
		MismatchDelayMS: int(config.MismatchDelay().Milliseconds()),
	}
}

// GetDefault returns the default configuration
func (m *Manager) GetDefault() *engine.GameConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultConfig
}

// SetDefault sets the default configuration by id
func (m *Manager) SetDefault(name string) error {
	config, err := m.LoadConfig(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultConfig = config
	return nil
}

// RefreshCache drops every cached preset and reloads the default
func (m *Manager) RefreshCache() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.configs = make(map[string]*engine.GameConfig)
	m.loadDefaultConfig()
}

// Count returns the number of cached presets
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.configs)
}

// loadDefaultConfig uses the classic preset, from disk when present.
// Caller holds the write lock.
func (m *Manager) loadDefaultConfig() {
	config, err := m.load(BuiltinName)
	if err != nil {
		m.logger.Warn("classic preset is invalid, using the built-in one", zap.Error(err))
		config = engine.DefaultConfig()
	}
	m.defaultConfig = config
}

// SaveConfig validates a configuration and writes it to disk. The format
// follows the extension of name; without one the preset is written as JSON.
func (m *Manager) SaveConfig(name string, config *engine.GameConfig) error {
	if err := engine.ValidateGameConfig(config); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	id := configID(name)
	if id == "" || strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("%w: invalid preset name '%s'", ErrInvalidConfig, name)
	}

	ext := strings.ToLower(filepath.Ext(name))
	if !engine.IsConfigFile(name) {
		ext = ".json"
	}

	var data []byte
	var err error
	if ext == ".json" {
		data, err = json.MarshalIndent(config, "", "  ")
	} else {
		data, err = yaml.Marshal(config)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(m.configDir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// a preset has one file; drop copies under the other extensions
	for _, other := range engine.ConfigExtensions {
		if other != ext {
			os.Remove(filepath.Join(m.configDir, id+other))
		}
	}

	if err := os.WriteFile(filepath.Join(m.configDir, id+ext), data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	m.configs[id] = config
	m.logger.Info("preset saved", zap.String("config", id), zap.String("format", ext))
	return nil
}

// configID strips a known preset extension from name
func configID(name string) string {
	if engine.IsConfigFile(name) {
		return strings.TrimSuffix(name, filepath.Ext(name))
	}
	return name
}
