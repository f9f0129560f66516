package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultSymbols is the fruit pool of the classic deck
var DefaultSymbols = []string{"🍎", "🍐", "🍊", "🍋", "🍌", "🍉", "🍇", "🍓", "🥭", "🍒", "🥝", "🍍"}

// ConfigExtensions lists the file extensions LoadConfigFromFile understands
var ConfigExtensions = []string{".json", ".yaml", ".yml"}

// DefaultConfig returns the classic preset: 8 pairs drawn from 12 fruits
func DefaultConfig() *GameConfig {
	config := &GameConfig{
		Name:            "classic",
		Description:     "Eight pairs of fruit drawn from a pool of twelve",
		Pairs:           DefaultPairs,
		Symbols:         append([]string(nil), DefaultSymbols...),
		MismatchDelayMS: int(DefaultMismatchDelay / time.Millisecond),
	}
	config.Messages.Welcome = "Find all matching pairs!"
	config.Messages.Match = "It's a match!"
	config.Messages.Mismatch = "Not a match, try again"
	config.Messages.Completed = "Congratulations! Score: %d"
	return config
}

// MismatchDelay returns how long a mismatched pair stays face-up
func (c *GameConfig) MismatchDelay() time.Duration {
	if c.MismatchDelayMS <= 0 {
		return DefaultMismatchDelay
	}
	return time.Duration(c.MismatchDelayMS) * time.Millisecond
}

// CompletedMessage renders the completion message for score
func (c *GameConfig) CompletedMessage(score int) string {
	if strings.Contains(c.Messages.Completed, "%d") {
		return fmt.Sprintf(c.Messages.Completed, score)
	}
	return c.Messages.Completed
}

// ValidateGameConfig validates a game configuration for correctness and playability
func ValidateGameConfig(config *GameConfig) error {
	if config == nil {
		return fmt.Errorf("config validation: config is nil")
	}

	// Validate required fields
	if config.Name == "" {
		return fmt.Errorf("config validation: name is required")
	}
	if config.Description == "" {
		return fmt.Errorf("config validation: description is required")
	}

	if config.Pairs < MinPairs || config.Pairs > MaxPairs {
		return fmt.Errorf("config validation: pairs must be between %d and %d, got %d", MinPairs, MaxPairs, config.Pairs)
	}

	// Every pair needs its own symbol
	seen := make(map[string]bool, len(config.Symbols))
	for i, symbol := range config.Symbols {
		if strings.TrimSpace(symbol) == "" {
			return fmt.Errorf("config validation: symbol %d is empty", i+1)
		}
		if seen[symbol] {
			return fmt.Errorf("config validation: duplicate symbol %q", symbol)
		}
		seen[symbol] = true
	}
	if len(config.Symbols) < config.Pairs {
		return fmt.Errorf("config validation: need at least %d symbols for %d pairs, got %d",
			config.Pairs, config.Pairs, len(config.Symbols))
	}

	if config.MismatchDelayMS < 0 || time.Duration(config.MismatchDelayMS)*time.Millisecond > MaxMismatchDelay {
		return fmt.Errorf("config validation: mismatch_delay_ms must be between 0 and %d, got %d",
			MaxMismatchDelay.Milliseconds(), config.MismatchDelayMS)
	}

	// Validate messages
	if config.Messages.Welcome == "" {
		return fmt.Errorf("config validation: messages.welcome is required")
	}
	if config.Messages.Completed == "" {
		return fmt.Errorf("config validation: messages.completed is required")
	}
	if !strings.Contains(config.Messages.Completed, "%d") {
		return fmt.Errorf("config validation: messages.completed must contain %%d for score")
	}

	return nil
}

// ParseConfig decodes a preset. format is a file extension (".json", ".yaml" or ".yml").
func ParseConfig(data []byte, format string) (*GameConfig, error) {
	var config GameConfig

	switch strings.ToLower(format) {
	case ".json", "json":
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse json: %w", err)
		}
	case ".yaml", ".yml", "yaml", "yml":
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", format)
	}

	return &config, nil
}

// LoadConfigFromFile reads, parses and validates a preset file
func LoadConfigFromFile(path string) (*GameConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	config, err := ParseConfig(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file '%s': %w", path, err)
	}

	if err := ValidateGameConfig(config); err != nil {
		return nil, fmt.Errorf("invalid config '%s': %w", path, err)
	}

	return config, nil
}

// IsConfigFile reports whether name has a preset file extension
func IsConfigFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, known := range ConfigExtensions {
		if ext == known {
			return true
		}
	}
	return false
}
