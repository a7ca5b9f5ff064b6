package diarize

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/poiesic/vocald/ai"
	"github.com/poiesic/vocald/ai/mock"
	"github.com/poiesic/vocald/audio"
	"github.com/poiesic/vocald/core"
	"github.com/poiesic/vocald/voice"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDecoder struct {
	wf  *audio.Waveform
	err error
}

func (f *fakeDecoder) Decode(ctx context.Context, path string) (*audio.Waveform, error) {
	return f.wf, f.err
}

// writeBlocks writes a WAV of one-second constant-level blocks.
func writeBlocks(t *testing.T, levels ...float32) string {
	t.Helper()
	wf := &audio.Waveform{SampleRate: audio.SampleRate}
	for _, l := range levels {
		for i := 0; i < audio.SampleRate; i++ {
			wf.Samples = append(wf.Samples, l)
		}
	}
	path := filepath.Join(t.TempDir(), "call.wav")
	require.NoError(t, audio.WriteWAV(path, wf))
	return path
}

func TestNew(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, ErrExtractorRequired)

	_, err = New(mock.NewMockExtractor(), WithClusterThreshold(2))
	assert.Error(t, err)

	_, err = New(mock.NewMockExtractor(), WithMaxSpeakers(-1))
	assert.Error(t, err)

	d, err := New(mock.NewMockExtractor())
	require.NoError(t, err)
	assert.Equal(t, DefaultClusterThreshold, d.threshold)
}

func TestAnalyse_WAV(t *testing.T) {
	path := writeBlocks(t, 0.3, 0.3, 0, 0.6, 0.3, 0.6)
	d, err := New(mock.NewMockExtractor())
	require.NoError(t, err)

	var steps []string
	results, err := d.Analyse(context.Background(), path, func(s string) { steps = append(steps, s) })
	require.NoError(t, err)

	assert.Equal(t, []string{StepDecoding, StepExtracting, StepClustering}, steps)
	require.Len(t, results, 2)
	assert.InDelta(t, 1.0, voice.CosineSimilarity(mock.VectorFor("level:0.30", mock.DefaultDimension), results[0].Embedding), 1e-6)
	assert.InDelta(t, 1.0, voice.CosineSimilarity(mock.VectorFor("level:0.60", mock.DefaultDimension), results[1].Embedding), 1e-6)
	for _, r := range results {
		assert.NoError(t, core.ValidateSpeakerResult(&r, mock.DefaultDimension))
	}
}

func TestAnalyse_Silence(t *testing.T) {
	path := writeBlocks(t, 0, 0)
	d, err := New(mock.NewMockExtractor())
	require.NoError(t, err)

	results, err := d.Analyse(context.Background(), path, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestAnalyse_Failures(t *testing.T) {
	decodeErr := errors.New("bad header")
	tests := []struct {
		name      string
		decoder   Decoder
		extractor *mock.MockExtractor
		want      error
	}{
		{
			name:      "decode failure",
			decoder:   &fakeDecoder{err: decodeErr},
			extractor: mock.NewMockExtractor(),
			want:      decodeErr,
		},
		{
			name:    "extractor failure",
			decoder: &fakeDecoder{wf: &audio.Waveform{SampleRate: 16000, Samples: []float32{0.5}}},
			extractor: mock.NewMockExtractor().WithExtractFunc(func(ctx context.Context, wf *audio.Waveform) ([]ai.Segment, error) {
				return nil, errors.New("model crashed")
			}),
			want: ErrExtraction,
		},
		{
			name:    "wrong dimension",
			decoder: &fakeDecoder{wf: &audio.Waveform{SampleRate: 16000, Samples: []float32{0.5}}},
			extractor: mock.NewMockExtractor().WithExtractFunc(func(ctx context.Context, wf *audio.Waveform) ([]ai.Segment, error) {
				return []ai.Segment{{Embedding: []float32{1, 0}}}, nil
			}),
			want: core.ErrInvalidEmbedding,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := New(tt.extractor, WithDecoder(tt.decoder))
			require.NoError(t, err)

			results, err := d.Analyse(context.Background(), "x.wav", nil)
			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, results)
		})
	}
}

func TestAnalyse_MissingFile(t *testing.T) {
	d, err := New(mock.NewMockExtractor())
	require.NoError(t, err)

	_, err = d.Analyse(context.Background(), filepath.Join(t.TempDir(), "gone.wav"), nil)
	assert.ErrorIs(t, err, audio.ErrDecode)
}
