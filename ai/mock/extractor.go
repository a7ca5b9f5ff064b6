package mock

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"sync"
	"time"

	"github.com/poiesic/vocald/ai"
	"github.com/poiesic/vocald/audio"
)

// DefaultDimension is the embedding length produced by default.
const DefaultDimension = 32

// MockExtractor is a test double for ai.EmbeddingExtractor.
// It allows custom behavior injection via function fields.
//
// By default the waveform is cut into one-second windows and each window
// whose RMS level reaches 0.01 gets a deterministic embedding derived from
// that level rounded to two decimals. Audio built from constant-level
// blocks therefore behaves like one voice per distinct level.
type MockExtractor struct {
	// ExtractFunc is called by Extract if set.
	// If nil, uses default deterministic behavior.
	ExtractFunc func(ctx context.Context, wf *audio.Waveform) ([]ai.Segment, error)

	// Dim is the embedding length. Zero means DefaultDimension.
	Dim int

	mu        sync.Mutex
	callCount int
}

var _ ai.EmbeddingExtractor = (*MockExtractor)(nil)

// NewMockExtractor creates a mock extractor with default deterministic behavior.
// Note: Returns concrete type to allow test assertions.
func NewMockExtractor() *MockExtractor {
	return &MockExtractor{}
}

// WithExtractFunc sets custom extraction behavior and returns the mock.
func (m *MockExtractor) WithExtractFunc(fn func(ctx context.Context, wf *audio.Waveform) ([]ai.Segment, error)) *MockExtractor {
	m.ExtractFunc = fn
	return m
}

// Dimension returns the embedding length.
func (m *MockExtractor) Dimension() int {
	if m.Dim > 0 {
		return m.Dim
	}
	return DefaultDimension
}

// Extract returns deterministic segments for wf.
func (m *MockExtractor) Extract(ctx context.Context, wf *audio.Waveform) ([]ai.Segment, error) {
	m.mu.Lock()
	m.callCount++
	fn := m.ExtractFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, wf)
	}

	segments := []ai.Segment{}
	if wf == nil || wf.SampleRate <= 0 {
		return segments, nil
	}

	step := wf.SampleRate
	for start := 0; start < len(wf.Samples); start += step {
		end := min(start+step, len(wf.Samples))
		level := math.Round(rms(wf.Samples[start:end])*100) / 100
		if level < 0.01 {
			continue
		}
		segments = append(segments, ai.Segment{
			Embedding: VectorFor(fmt.Sprintf("level:%.2f", level), m.Dimension()),
			Start:     time.Duration(start) * time.Second / time.Duration(wf.SampleRate),
			End:       time.Duration(end) * time.Second / time.Duration(wf.SampleRate),
		})
	}
	return segments, nil
}

// CallCount returns the number of times Extract was called.
func (m *MockExtractor) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Reset clears the call count and custom functions.
func (m *MockExtractor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.ExtractFunc = nil
}

// VectorFor creates a deterministic unit vector from key.
// It uses FNV hash to ensure the same key always produces the same vector.
func VectorFor(key string, dim int) []float32 {
	h := fnv.New32a()
	h.Write([]byte(key))
	seed := h.Sum32()

	vector := make([]float32, dim)
	for i := 0; i < dim; i++ {
		// Simple pseudo-random generation based on seed and index
		seed = seed*1664525 + 1013904223 // LCG constants
		vector[i] = float32((seed>>16)%2000)/1000.0 - 1
	}

	var sumSquares float64
	for _, v := range vector {
		sumSquares += float64(v) * float64(v)
	}
	if sumSquares > 0 {
		norm := float32(1 / math.Sqrt(sumSquares))
		for i := range vector {
			vector[i] *= norm
		}
	}
	return vector
}

func rms(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}
