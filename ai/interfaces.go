package ai

import (
	"context"
	"time"

	"github.com/poiesic/vocald/audio"
)

// EmbeddingExtractor turns a waveform into voice embeddings.
// Implementations must be deterministic and thread-safe for concurrent use.
type EmbeddingExtractor interface {
	// Extract returns one segment per voiced region of the waveform, in
	// time order. Silent audio yields an empty slice.
	// Returns an error if extraction fails.
	Extract(ctx context.Context, wf *audio.Waveform) ([]Segment, error)

	// Dimension is the length of every returned embedding.
	Dimension() int
}

// Segment is a span of audio attributed to a single voice.
type Segment struct {
	// Embedding is the voice fingerprint for the span.
	Embedding []float32

	// Label is an optional speaker label assigned by the extractor.
	// Segments sharing a non-empty label belong to the same voice.
	Label string

	// Start and End bound the span from the beginning of the recording.
	Start time.Duration
	End   time.Duration
}
