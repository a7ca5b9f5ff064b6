package audio

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sine(freq float64, rate int, d time.Duration) []float32 {
	n := int(d.Seconds() * float64(rate))
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(0.5 * math.Sin(2*math.Pi*freq*float64(i)/float64(rate)))
	}
	return out
}

func newTestDecoder(t *testing.T, opts ...Option) *Decoder {
	t.Helper()
	d, err := NewDecoder(opts...)
	require.NoError(t, err)
	return d
}

func TestDecode_WAVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	in := &Waveform{SampleRate: SampleRate, Samples: sine(440, SampleRate, 500*time.Millisecond)}
	require.NoError(t, WriteWAV(path, in))

	wf, err := newTestDecoder(t, WithFFmpeg("")).Decode(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, SampleRate, wf.SampleRate)
	require.Len(t, wf.Samples, len(in.Samples))
	for i := 0; i < len(in.Samples); i += 97 {
		assert.InDelta(t, in.Samples[i], wf.Samples[i], 1e-3)
	}
	assert.Equal(t, 500*time.Millisecond, wf.Duration())
}

func TestDecode_ResamplesWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone8k.wav")
	require.NoError(t, WriteWAV(path, &Waveform{SampleRate: 8000, Samples: sine(200, 8000, time.Second)}))

	wf, err := newTestDecoder(t, WithFFmpeg("")).Decode(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, SampleRate, wf.SampleRate)
	assert.InDelta(t, SampleRate, len(wf.Samples), SampleRate/10)
}

func TestDecode_DownmixesStereo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stereo.wav")
	f, err := os.Create(path)
	require.NoError(t, err)

	enc := wav.NewEncoder(f, SampleRate, 16, 2, wavFormatPCM)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 2, SampleRate: SampleRate},
		Data:           []int{16384, 0, 16384, -16384, -16384, -16384},
		SourceBitDepth: 16,
	}
	require.NoError(t, enc.Write(buf))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())

	wf, err := newTestDecoder(t, WithFFmpeg("")).Decode(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, wf.Samples, 3)
	assert.InDelta(t, 0.25, wf.Samples[0], 1e-6)
	assert.InDelta(t, 0.0, wf.Samples[1], 1e-6)
	assert.InDelta(t, -0.5, wf.Samples[2], 1e-6)
}

func TestDecode_Errors(t *testing.T) {
	dir := t.TempDir()
	garbage := filepath.Join(dir, "call.m4a")
	require.NoError(t, os.WriteFile(garbage, []byte("not audio at all"), 0644))
	empty := filepath.Join(dir, "empty.wav")
	require.NoError(t, WriteWAV(empty, &Waveform{SampleRate: SampleRate}))

	tests := []struct {
		name string
		path string
		opts []Option
	}{
		{"missing file", filepath.Join(dir, "missing.wav"), nil},
		{"not wav without ffmpeg", garbage, []Option{WithFFmpeg("")}},
		{"ffmpeg not installed", garbage, []Option{WithFFmpeg(filepath.Join(dir, "no-ffmpeg"))}},
		{"empty wav", empty, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestDecoder(t, tt.opts...).Decode(context.Background(), tt.path)
			assert.ErrorIs(t, err, ErrDecode)
		})
	}
}

func TestNewDecoder_InvalidSampleRate(t *testing.T) {
	_, err := NewDecoder(WithSampleRate(0))
	assert.Error(t, err)
}

func rmsOf(samples []float32) float64 {
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}

func TestResample(t *testing.T) {
	t.Run("same rate is unchanged", func(t *testing.T) {
		in := []float32{0, 1, 2, 3}
		out, err := Resample(in, 8000, 8000)
		require.NoError(t, err)
		assert.Equal(t, in, out)
	})

	t.Run("empty input", func(t *testing.T) {
		out, err := Resample(nil, 8000, 16000)
		require.NoError(t, err)
		assert.Empty(t, out)
	})

	tests := []struct {
		name     string
		from, to int
		freq     float64
		passes   bool
	}{
		{"upsample keeps tone", 8000, 16000, 440, true},
		{"downsample keeps tone", 48000, 16000, 1000, true},
		{"downsample filters above nyquist", 48000, 16000, 12000, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Resample(sine(tt.freq, tt.from, time.Second), tt.from, tt.to)
			require.NoError(t, err)
			assert.InDelta(t, tt.to, len(out), float64(tt.to)/10)

			// Skip the filter's settling time at both ends.
			mid := out[len(out)/4 : 3*len(out)/4]
			if tt.passes {
				assert.InDelta(t, 0.5/math.Sqrt2, rmsOf(mid), 0.05)
			} else {
				assert.Less(t, rmsOf(mid), 0.05)
			}
		})
	}
}

func TestS16leToFloat(t *testing.T) {
	data := []byte{0x00, 0x80, 0x00, 0x00, 0xff, 0x7f}
	got := s16leToFloat(data)
	require.Len(t, got, 3)
	assert.Equal(t, float32(-1), got[0])
	assert.Equal(t, float32(0), got[1])
	assert.InDelta(t, 1.0, got[2], 1e-4)
}

func TestWaveformDuration(t *testing.T) {
	assert.Equal(t, time.Duration(0), (*Waveform)(nil).Duration())
	assert.Equal(t, 2*time.Second, (&Waveform{SampleRate: 8000, Samples: make([]float32, 16000)}).Duration())
}
