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

// Package ai provides the abstraction over voice embedding models.
//
// An EmbeddingExtractor maps a decoded waveform to a list of segments, each
// carrying a fixed-length voice fingerprint. Extractors are opaque to the
// rest of vocald: the diarizer only relies on embeddings of the same voice
// being closer in cosine similarity than embeddings of different voices.
//
// # Implementation Packages
//
//   - ai/spectral: Offline baseline computing pooled log-power spectra
//   - ai/mock: Test doubles for unit testing without audio analysis
//
// Public constructors (spectral.NewExtractor) return the ai.EmbeddingExtractor
// interface. Test utility constructors (mock.NewMockExtractor) return concrete
// types so tests can inject behavior and inspect call counts.
//
// # Usage Example
//
//	cfg := ai.DefaultConfig()
//	extractor, err := spectral.NewExtractor(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	segments, err := extractor.Extract(ctx, waveform)
package ai
