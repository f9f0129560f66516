// Package config provides preset management for the memory game.
//
// The config package handles:
//   - Loading game presets from JSON and YAML files
//   - Preset validation and analysis
//   - Default preset management
//   - Preset discovery and listing
//
// Preset Format:
//
// Presets live in one directory, one file each. The preset id is the file
// name without its extension, so configs/hard.json is loaded as "hard".
// Each preset defines:
//   - name and description
//   - pairs: how many pairs are dealt (2 to 32)
//   - symbols: the pool pairs are drawn from, at least one per pair
//   - mismatch_delay_ms: how long a mismatched pair stays face-up
//   - messages: welcome, match, mismatch and completed (with %d for the score)
//
// Built-in Preset:
//
// "classic" is always available. When the directory has no classic file
// (or no directory exists at all) the built-in engine.DefaultConfig is served:
// eight pairs drawn from twelve fruit symbols with a one second mismatch delay.
//
// Usage:
//
//	manager, err := config.NewManager("configs", config.WithLogger(logger))
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	gameConfig, err := manager.LoadConfig("easy")
//	defaultConfig := manager.GetDefault()
//	configs, err := manager.ListConfigs()
//
// Validation:
//
// ValidateFile and ValidateDir check files the way the validate command
// reports them. Analyze computes the perfect-play bounds of a preset.
package config
