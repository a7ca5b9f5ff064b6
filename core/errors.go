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

import "errors"

// Domain validation errors
var (
	// ErrInvalidRecordingEntry indicates a RecordingEntry failed validation.
	ErrInvalidRecordingEntry = errors.New("invalid recording entry")

	// ErrInvalidSpeakerResult indicates a SpeakerResult failed validation.
	ErrInvalidSpeakerResult = errors.New("invalid speaker result")

	// ErrEmptyFilename indicates the Filename field is empty.
	ErrEmptyFilename = errors.New("filename cannot be empty")

	// ErrInvalidCallDate indicates the call date is unset.
	ErrInvalidCallDate = errors.New("call date must be set")

	// ErrInvalidEmbedding indicates an embedding is empty or contains NaN/Inf values.
	ErrInvalidEmbedding = errors.New("invalid embedding")

	// ErrInvalidConfidence indicates a confidence value outside [0, 1].
	ErrInvalidConfidence = errors.New("confidence must be between 0 and 1")

	// ErrEmptySpeakerName indicates a speaker rename to an empty name.
	ErrEmptySpeakerName = errors.New("speaker name cannot be empty")

	// ErrInvalidStatus indicates an unknown Status value.
	ErrInvalidStatus = errors.New("invalid recording status")
)
