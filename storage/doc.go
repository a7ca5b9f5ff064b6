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

// Package storage provides the storage abstraction layer for vocald.
//
// This package defines repository interfaces that decouple storage implementation
// from the ingestion pipeline, plus the binary codecs used to persist records.
//
// # Architecture
//
// The storage layer follows the Repository pattern:
//
//   - RecordingRepository: recordings and their speaker attributions
//   - VoiceProfileRepository: persisted voice identities
//   - ProcessedFileRepository: the durable half of the processed-file registry
//   - ProfileTx, VoiceMatcher, MatchSession: the seam that lets a matcher
//     create and update profiles inside the same transaction that finalizes
//     a recording
//
// # Usage
//
// Use in tests with in-memory storage:
//
//	matcher, _ := voice.NewMatcher()
//	recRepo, fileRepo, backend, err := badger.NewMemoryRepositories(matcher)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer func() { recRepo.Close(); backend.Close() }()
//
// # Serialization
//
// Records are encoded with mus-go primitives (varint, ord, raw). Times are
// stored as Unix microseconds in UTC and vectors as a length-prefixed run of
// float32 values.
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
package storage
