// Package mock provides a test double for ai.EmbeddingExtractor.
//
// The mock lets tests run without real audio analysis while keeping
// results deterministic.
//
// # Usage in Tests
//
//	// Default behavior: one voice per distinct block level
//	extractor := mock.NewMockExtractor()
//	segments, err := extractor.Extract(ctx, waveform)
//
//	// Custom behavior injection
//	extractor := mock.NewMockExtractor().
//	    WithExtractFunc(func(ctx context.Context, wf *audio.Waveform) ([]ai.Segment, error) {
//	        return nil, errors.New("model crashed")
//	    })
//
//	// Check call counts
//	count := extractor.CallCount()
package mock
