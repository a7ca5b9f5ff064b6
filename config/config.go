// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads and saves the vocald YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the name of the configuration file inside the config directory.
const FileName = "config.yaml"

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the vocald configuration.
type Config struct {
	// RecordingsFolder is the folder scanned for call recordings.
	RecordingsFolder string `yaml:"recordings_folder"`
	// DatabasePath is the badger directory. Empty means DataDir()/db.
	DatabasePath string `yaml:"database_path,omitempty"`
	// CallLogPath is an optional SQLite call-log export.
	CallLogPath string `yaml:"call_log_path,omitempty"`
	// FFmpegPath is the ffmpeg binary used for non-WAV formats. Empty disables it.
	FFmpegPath string `yaml:"ffmpeg_path"`
	// LogLevel is one of debug, info, warn or error.
	LogLevel string `yaml:"log_level"`

	Scan      ScanConfig      `yaml:"scan"`
	Voice     VoiceConfig     `yaml:"voice"`
	Diarize   DiarizeConfig   `yaml:"diarize"`
	Extractor ExtractorConfig `yaml:"extractor"`
	Watch     WatchConfig     `yaml:"watch"`
}

// ScanConfig controls folder scanning.
type ScanConfig struct {
	Extensions    []string      `yaml:"extensions"`
	Quiescence    time.Duration `yaml:"quiescence"`
	CallTolerance time.Duration `yaml:"call_tolerance"`
}

// VoiceConfig controls voice profile matching.
type VoiceConfig struct {
	MatchThreshold float64 `yaml:"match_threshold"`
}

// DiarizeConfig controls speaker clustering.
type DiarizeConfig struct {
	ClusterThreshold float64 `yaml:"cluster_threshold"`
	MaxSpeakers      int     `yaml:"max_speakers"`
}

// ExtractorConfig controls the spectral embedding extractor.
type ExtractorConfig struct {
	Dimension int           `yaml:"dimension"`
	Window    time.Duration `yaml:"window"`
	Hop       time.Duration `yaml:"hop"`
	MinRMS    float64       `yaml:"min_rms"`
}

// WatchConfig controls folder watching.
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		FFmpegPath: "ffmpeg",
		LogLevel:   "info",
		Scan: ScanConfig{
			Extensions: []string{
				".wav", ".mp3", ".m4a", ".aac", ".amr", ".3gp",
				".ogg", ".opus", ".flac", ".awb", ".wma",
			},
			Quiescence:    15 * time.Second,
			CallTolerance: 2 * time.Minute,
		},
		Voice: VoiceConfig{
			MatchThreshold: 0.75,
		},
		Diarize: DiarizeConfig{
			ClusterThreshold: 0.80,
		},
		Extractor: ExtractorConfig{
			Dimension: 256,
			Window:    1500 * time.Millisecond,
			Hop:       750 * time.Millisecond,
			MinRMS:    0.01,
		},
		Watch: WatchConfig{
			Debounce: 3 * time.Second,
		},
	}
}

// Validate checks the configuration for values no component accepts.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: log_level %q", ErrInvalidConfig, c.LogLevel)
	}
	if len(c.Scan.Extensions) == 0 {
		return fmt.Errorf("%w: scan.extensions must not be empty", ErrInvalidConfig)
	}
	if c.Scan.Quiescence < 0 || c.Scan.CallTolerance < 0 {
		return fmt.Errorf("%w: scan durations must not be negative", ErrInvalidConfig)
	}
	if c.Voice.MatchThreshold < -1 || c.Voice.MatchThreshold > 1 {
		return fmt.Errorf("%w: voice.match_threshold must be between -1 and 1", ErrInvalidConfig)
	}
	if c.Diarize.ClusterThreshold < -1 || c.Diarize.ClusterThreshold > 1 {
		return fmt.Errorf("%w: diarize.cluster_threshold must be between -1 and 1", ErrInvalidConfig)
	}
	if c.Diarize.MaxSpeakers < 0 {
		return fmt.Errorf("%w: diarize.max_speakers must not be negative", ErrInvalidConfig)
	}
	if c.Extractor.Dimension <= 0 {
		return fmt.Errorf("%w: extractor.dimension must be positive", ErrInvalidConfig)
	}
	if c.Extractor.Window <= 0 || c.Extractor.Hop <= 0 {
		return fmt.Errorf("%w: extractor window and hop must be positive", ErrInvalidConfig)
	}
	if c.Watch.Debounce < 0 {
		return fmt.Errorf("%w: watch.debounce must not be negative", ErrInvalidConfig)
	}
	return nil
}

// ResolveDatabasePath returns DatabasePath, or the default under DataDir.
func (c *Config) ResolveDatabasePath() (string, error) {
	if c.DatabasePath != "" {
		return c.DatabasePath, nil
	}
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "db"), nil
}

// ConfigDir returns the XDG-compliant config directory.
func ConfigDir() (string, error) {
	if override := os.Getenv("VOCALD_CONFIG_DIR"); override != "" {
		return override, nil
	}

	var base string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		base = xdg
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "vocald"), nil
}

// DataDir returns the platform-specific data directory.
func DataDir() (string, error) {
	if override := os.Getenv("VOCALD_DATA_DIR"); override != "" {
		return override, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	if runtime.GOOS == "darwin" {
		return filepath.Join(home, "Library", "Application Support", "Vocald"), nil
	}
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "vocald"), nil
	}
	return filepath.Join(home, ".local", "share", "vocald"), nil
}

// DefaultPath returns the config file path inside ConfigDir.
func DefaultPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, FileName), nil
}

// Load reads the config at path over the defaults. A missing file yields
// the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config to path, creating its directory.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
