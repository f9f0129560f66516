package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/wricardo/moodjournal/game/engine"
	"github.com/wricardo/moodjournal/game/service"
)

func createValidConfig() *engine.GameConfig {
	config := &engine.GameConfig{
		Name:            "Test Config",
		Description:     "Test configuration",
		Pairs:           3,
		Symbols:         []string{"A", "B", "C", "D"},
		MismatchDelayMS: 750,
	}
	config.Messages = engine.ConfigMessages{
		Welcome:   "Welcome!",
		Match:     "Match",
		Mismatch:  "Miss",
		Completed: "Done with %d points",
	}
	return config
}

func writeConfigFile(t *testing.T, dir, filename string, config *engine.GameConfig) {
	t.Helper()
	var data []byte
	var err error
	if filepath.Ext(filename) == ".json" {
		data, err = json.Marshal(config)
	} else {
		data, err = yaml.Marshal(config)
	}
	if err != nil {
		t.Fatalf("Failed to marshal config: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, filename), data, 0o644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
}

func TestNewManager(t *testing.T) {
	t.Run("valid directory", func(t *testing.T) {
		dir := t.TempDir()
		classic := createValidConfig()
		classic.Name = "My Classic"
		writeConfigFile(t, dir, "classic.json", classic)

		manager, err := NewManager(dir)
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}
		if manager.GetDefault().Name != "My Classic" {
			t.Errorf("Expected classic file to be the default, got %s", manager.GetDefault().Name)
		}
	})

	t.Run("non-existent directory uses the built-in preset", func(t *testing.T) {
		manager, err := NewManager(filepath.Join(t.TempDir(), "missing"))
		if err != nil {
			t.Fatalf("Expected missing directory to be tolerated, got %v", err)
		}
		if manager.GetDefault().Name != BuiltinName || manager.GetDefault().Pairs != 8 {
			t.Errorf("Expected built-in classic preset, got %+v", manager.GetDefault())
		}
	})

	t.Run("path is a file", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "file")
		os.WriteFile(file, []byte("x"), 0o644)
		if _, err := NewManager(file); err == nil {
			t.Error("Expected error when the config path is a file")
		}
	})

	t.Run("invalid classic file falls back", func(t *testing.T) {
		dir := t.TempDir()
		os.WriteFile(filepath.Join(dir, "classic.json"), []byte("{"), 0o644)

		manager, err := NewManager(dir)
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}
		if manager.GetDefault().Name != BuiltinName {
			t.Errorf("Expected built-in preset, got %s", manager.GetDefault().Name)
		}
	})
}

func TestManager_LoadConfig(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "json-preset.json", createValidConfig())
	writeConfigFile(t, dir, "yaml-preset.yaml", createValidConfig())
	writeConfigFile(t, dir, "yml-preset.yml", createValidConfig())

	invalid := createValidConfig()
	invalid.Pairs = 9
	writeConfigFile(t, dir, "invalid.json", invalid)

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	tests := []struct {
		name    string
		id      string
		wantErr error
	}{
		{"json", "json-preset", nil},
		{"json with extension", "json-preset.json", nil},
		{"yaml", "yaml-preset", nil},
		{"yml", "yml-preset", nil},
		{"built-in classic", "classic", nil},
		{"missing", "missing", ErrConfigNotFound},
		{"path traversal", "../secret", ErrConfigNotFound},
		{"invalid", "invalid", ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, err := manager.LoadConfig(tt.id)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Failed to load config: %v", err)
			}
			if config.Pairs == 0 {
				t.Error("Expected a populated config")
			}
		})
	}

	t.Run("not found matches the service sentinel", func(t *testing.T) {
		_, err := manager.LoadConfig("missing")
		if !errors.Is(err, service.ErrConfigNotFound) {
			t.Errorf("Expected service.ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("yaml fields", func(t *testing.T) {
		config, _ := manager.LoadConfig("yaml-preset")
		if config.MismatchDelayMS != 750 || config.Messages.Completed != "Done with %d points" {
			t.Errorf("YAML preset decoded incorrectly: %+v", config)
		}
	})
}

func TestManager_ListConfigs(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "b.json", createValidConfig())
	writeConfigFile(t, dir, "a.yaml", createValidConfig())
	invalid := createValidConfig()
	invalid.Symbols = nil
	writeConfigFile(t, dir, "broken.json", invalid)
	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644)
	os.Mkdir(filepath.Join(dir, "nested.json"), 0o755)

	manager, _ := NewManager(dir)
	configs, err := manager.ListConfigs()
	if err != nil {
		t.Fatalf("Failed to list configs: %v", err)
	}

	var ids []string
	for _, c := range configs {
		ids = append(ids, c.ConfigID)
	}
	want := []string{"a", "b", "classic"}
	if len(ids) != len(want) {
		t.Fatalf("Expected configs %v, got %v", want, ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("Expected configs %v, got %v", want, ids)
			break
		}
	}

	a := configs[0]
	if a.Filename != "a.yaml" || a.Pairs != 3 || a.SymbolPool != 4 || a.MismatchDelayMS != 750 {
		t.Errorf("Unexpected config info: %+v", a)
	}
	if configs[2].Filename != "" || configs[2].MismatchDelayMS != 1000 {
		t.Errorf("Expected built-in classic entry, got %+v", configs[2])
	}
}

func TestManager_SaveConfig(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "presets")
	manager, _ := NewManager(dir)

	t.Run("json by default", func(t *testing.T) {
		if err := manager.SaveConfig("saved", createValidConfig()); err != nil {
			t.Fatalf("SaveConfig failed: %v", err)
		}
		loaded, err := engine.LoadConfigFromFile(filepath.Join(dir, "saved.json"))
		if err != nil {
			t.Fatalf("Saved preset does not load: %v", err)
		}
		if loaded.Name != "Test Config" {
			t.Errorf("Expected saved name, got %s", loaded.Name)
		}
	})

	t.Run("yaml replaces json", func(t *testing.T) {
		config := createValidConfig()
		config.Name = "Now YAML"
		if err := manager.SaveConfig("saved.yaml", config); err != nil {
			t.Fatalf("SaveConfig failed: %v", err)
		}
		if _, err := os.Stat(filepath.Join(dir, "saved.json")); !os.IsNotExist(err) {
			t.Error("Expected the json copy to be removed")
		}
		manager.RefreshCache()
		loaded, err := manager.LoadConfig("saved")
		if err != nil || loaded.Name != "Now YAML" {
			t.Errorf("Expected YAML preset after refresh, got %+v (%v)", loaded, err)
		}
	})

	t.Run("invalid config", func(t *testing.T) {
		bad := createValidConfig()
		bad.Messages.Completed = "no score"
		if err := manager.SaveConfig("bad", bad); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("Expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("invalid name", func(t *testing.T) {
		if err := manager.SaveConfig("../escape", createValidConfig()); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("Expected ErrInvalidConfig, got %v", err)
		}
	})
}

func TestManager_SetDefault(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "other.json", createValidConfig())
	manager, _ := NewManager(dir)

	if err := manager.SetDefault("other"); err != nil {
		t.Fatalf("SetDefault failed: %v", err)
	}
	if manager.GetDefault().Name != "Test Config" {
		t.Errorf("Expected new default, got %s", manager.GetDefault().Name)
	}
	if err := manager.SetDefault("missing"); !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("Expected ErrConfigNotFound, got %v", err)
	}
}

func TestManager_CachingBehavior(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "cached.json", createValidConfig())
	manager, _ := NewManager(dir)

	first, _ := manager.LoadConfig("cached")
	changed := createValidConfig()
	changed.Name = "Changed"
	writeConfigFile(t, dir, "cached.json", changed)

	second, _ := manager.LoadConfig("cached")
	if first != second {
		t.Error("Expected cached instance before refresh")
	}

	manager.RefreshCache()
	third, _ := manager.LoadConfig("cached")
	if third.Name != "Changed" {
		t.Errorf("Expected reloaded config, got %s", third.Name)
	}
}

func TestManager_ConcurrentAccess(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "shared.json", createValidConfig())
	manager, _ := NewManager(dir)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := manager.LoadConfig("shared"); err != nil {
				errs <- err
			}
			if _, err := manager.ListConfigs(); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("Concurrent access failed: %v", err)
	}
	if manager.Count() != 2 {
		t.Errorf("Expected shared and classic cached, got %d", manager.Count())
	}
}
