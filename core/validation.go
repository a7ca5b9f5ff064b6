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

package core

import (
	"fmt"
	"math"
	"strings"
)

// ValidateRecordingEntry validates a RecordingEntry according to domain rules.
//
// Validation rules:
//   - Filename must not be empty
//   - CallDate must be set
//
// NOT validated:
//   - PhoneNumber (empty when no call-log match)
//   - ContentKey (0 when the file could not be hashed)
func ValidateRecordingEntry(entry *RecordingEntry) error {
	if entry == nil {
		return fmt.Errorf("%w: entry is nil", ErrInvalidRecordingEntry)
	}

	if entry.Filename == "" {
		return fmt.Errorf("%w: %w", ErrInvalidRecordingEntry, ErrEmptyFilename)
	}

	if entry.CallDate.IsZero() {
		return fmt.Errorf("%w: %w", ErrInvalidRecordingEntry, ErrInvalidCallDate)
	}

	return nil
}

// ValidateSpeakerResult validates a SpeakerResult produced by a diarizer.
// The embedding dimension must equal dim when dim > 0.
func ValidateSpeakerResult(result *SpeakerResult, dim int) error {
	if result == nil {
		return fmt.Errorf("%w: result is nil", ErrInvalidSpeakerResult)
	}

	if err := ValidateEmbedding(result.Embedding, dim); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSpeakerResult, err)
	}

	if result.Confidence < 0 || result.Confidence > 1 || math.IsNaN(float64(result.Confidence)) {
		return fmt.Errorf("%w: %w", ErrInvalidSpeakerResult, ErrInvalidConfidence)
	}

	return nil
}

// ValidateEmbedding checks that an embedding is non-empty, finite, not the
// zero vector and, when dim > 0, has exactly dim components.
func ValidateEmbedding(embedding []float32, dim int) error {
	if len(embedding) == 0 {
		return fmt.Errorf("%w: empty", ErrInvalidEmbedding)
	}
	if dim > 0 && len(embedding) != dim {
		return fmt.Errorf("%w: dimension %d, expected %d", ErrInvalidEmbedding, len(embedding), dim)
	}
	nonZero := false
	for i, v := range embedding {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: non-finite value at %d", ErrInvalidEmbedding, i)
		}
		if v != 0 {
			nonZero = true
		}
	}
	// cosine similarity is undefined for a zero-norm vector
	if !nonZero {
		return fmt.Errorf("%w: zero vector", ErrInvalidEmbedding)
	}
	return nil
}

// ValidateSpeakerName trims a display name and rejects empty results.
func ValidateSpeakerName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", ErrEmptySpeakerName
	}
	return trimmed, nil
}

// ValidateStatus validates that a Status has a known value.
func ValidateStatus(status Status) error {
	if status != StatusPending && status != StatusDone && status != StatusFailed {
		return fmt.Errorf("%w: value %d", ErrInvalidStatus, status)
	}
	return nil
}
