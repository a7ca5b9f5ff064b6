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

package ai

import (
	"errors"
	"time"
)

// Config holds configuration for embedding extractors.
type Config struct {
	// Dimension is the length of every embedding vector.
	// Default: 256
	Dimension int

	// SampleRate is the waveform rate the extractor expects, in Hz.
	// Waveforms at other rates are resampled.
	// Default: 16000
	SampleRate int

	// WindowSize is the span of audio summarized by one embedding.
	// Default: 1.5s
	WindowSize time.Duration

	// HopSize is the distance between the starts of consecutive windows.
	// Must not exceed WindowSize.
	// Default: 750ms
	HopSize time.Duration

	// FrameSize is the FFT length in samples.
	// Must be at least twice Dimension.
	// Default: 512
	FrameSize int

	// MinRMS is the energy below which a window is treated as silence.
	// Default: 0.01
	MinRMS float64
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithDimension sets the embedding dimension.
func WithDimension(dim int) ConfigOption {
	return func(c *Config) {
		c.Dimension = dim
	}
}

// WithSampleRate sets the expected sample rate.
func WithSampleRate(rate int) ConfigOption {
	return func(c *Config) {
		c.SampleRate = rate
	}
}

// WithWindow sets the analysis window and hop.
func WithWindow(size, hop time.Duration) ConfigOption {
	return func(c *Config) {
		c.WindowSize = size
		c.HopSize = hop
	}
}

// WithFrameSize sets the FFT length.
func WithFrameSize(n int) ConfigOption {
	return func(c *Config) {
		c.FrameSize = n
	}
}

// WithMinRMS sets the silence threshold.
func WithMinRMS(rms float64) ConfigOption {
	return func(c *Config) {
		c.MinRMS = rms
	}
}

// DefaultConfig returns a Config with defaults suited to telephone audio.
func DefaultConfig() *Config {
	return &Config{
		Dimension:  256,
		SampleRate: 16000,
		WindowSize: 1500 * time.Millisecond,
		HopSize:    750 * time.Millisecond,
		FrameSize:  512,
		MinRMS:     0.01,
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//
//	cfg := NewConfig(
//	    WithDimension(128),
//	    WithWindow(2*time.Second, time.Second),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WindowSamples returns the window and hop lengths in samples.
func (c *Config) WindowSamples() (window, hop int) {
	window = int(c.WindowSize.Seconds() * float64(c.SampleRate))
	hop = int(c.HopSize.Seconds() * float64(c.SampleRate))
	return window, hop
}

// Validate checks that the configuration is valid and complete.
func (c *Config) Validate() error {
	if c.Dimension <= 0 {
		return errors.New("ai config: Dimension must be positive")
	}
	if c.SampleRate <= 0 {
		return errors.New("ai config: SampleRate must be positive")
	}
	if c.WindowSize <= 0 {
		return errors.New("ai config: WindowSize must be positive")
	}
	if c.HopSize <= 0 || c.HopSize > c.WindowSize {
		return errors.New("ai config: HopSize must be positive and at most WindowSize")
	}
	if c.FrameSize < 2*c.Dimension {
		return errors.New("ai config: FrameSize must be at least twice Dimension")
	}
	if window, _ := c.WindowSamples(); window < c.FrameSize {
		return errors.New("ai config: WindowSize must hold at least one frame")
	}
	if c.MinRMS < 0 {
		return errors.New("ai config: MinRMS must not be negative")
	}
	return nil
}
