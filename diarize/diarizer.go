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

package diarize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/vocald/ai"
	"github.com/poiesic/vocald/audio"
	"github.com/poiesic/vocald/core"
)

// DefaultClusterThreshold is the cosine similarity at which two segments
// are considered the same voice.
const DefaultClusterThreshold = 0.80

// Analysis steps reported through the step callback.
const (
	StepDecoding   = "decoding audio"
	StepExtracting = "extracting voice embeddings"
	StepClustering = "clustering speakers"
)

var (
	// ErrExtractorRequired is returned when a Diarizer is created without an extractor.
	ErrExtractorRequired = errors.New("embedding extractor required")

	// ErrExtraction is returned when the extractor fails or returns unusable embeddings.
	ErrExtraction = errors.New("embedding extraction failed")
)

// Decoder turns an audio file into a waveform.
type Decoder interface {
	Decode(ctx context.Context, path string) (*audio.Waveform, error)
}

// Diarizer splits a recording into distinct voices.
type Diarizer struct {
	decoder     Decoder
	extractor   ai.EmbeddingExtractor
	threshold   float64
	maxSpeakers int
	logger      *slog.Logger
}

// Option configures a Diarizer.
type Option func(*Diarizer) error

// WithDecoder sets the audio decoder.
func WithDecoder(decoder Decoder) Option {
	return func(d *Diarizer) error {
		if decoder != nil {
			d.decoder = decoder
		}
		return nil
	}
}

// WithClusterThreshold sets the same-voice similarity threshold.
func WithClusterThreshold(threshold float64) Option {
	return func(d *Diarizer) error {
		if threshold < -1 || threshold > 1 {
			return fmt.Errorf("cluster threshold %v out of range [-1, 1]", threshold)
		}
		d.threshold = threshold
		return nil
	}
}

// WithMaxSpeakers caps the number of voices per recording. Zero means no cap.
func WithMaxSpeakers(n int) Option {
	return func(d *Diarizer) error {
		if n < 0 {
			return fmt.Errorf("max speakers must not be negative, got %d", n)
		}
		d.maxSpeakers = n
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Diarizer) error {
		if logger != nil {
			d.logger = logger
		}
		return nil
	}
}

// New creates a Diarizer. Without WithDecoder it decodes with a default
// audio.Decoder.
func New(extractor ai.EmbeddingExtractor, opts ...Option) (*Diarizer, error) {
	if extractor == nil {
		return nil, ErrExtractorRequired
	}

	d := &Diarizer{
		extractor: extractor,
		threshold: DefaultClusterThreshold,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, err
		}
	}
	if d.decoder == nil {
		decoder, err := audio.NewDecoder()
		if err != nil {
			return nil, err
		}
		d.decoder = decoder
	}
	d.logger = d.logger.With("component", "diarizer")
	return d, nil
}

// Analyse returns one SpeakerResult per distinct voice in the recording at
// path, ordered by first appearance. onStep may be nil. Any failure fails
// the whole recording; no partial results are returned.
func (d *Diarizer) Analyse(ctx context.Context, path string, onStep func(string)) ([]core.SpeakerResult, error) {
	step := func(s string) {
		if onStep != nil {
			onStep(s)
		}
	}

	step(StepDecoding)
	wf, err := d.decoder.Decode(ctx, path)
	if err != nil {
		return nil, err
	}

	step(StepExtracting)
	segments, err := d.extractor.Extract(ctx, wf)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExtraction, err)
	}
	dim := d.extractor.Dimension()
	for i := range segments {
		if err := core.ValidateEmbedding(segments[i].Embedding, dim); err != nil {
			return nil, fmt.Errorf("%w: segment %d: %w", ErrExtraction, i, err)
		}
	}

	step(StepClustering)
	results := Cluster(segments, d.threshold, d.maxSpeakers)
	d.logger.Debug("analysed recording",
		"path", path,
		"duration", wf.Duration(),
		"segments", len(segments),
		"speakers", len(results))
	return results, nil
}
