// Package spectral implements an offline voice embedding baseline.
//
// Each voiced window of audio is summarized by its average log-power
// spectrum pooled into Dimension bands. The pooled spectrum is mean-removed
// and L2-normalized, which makes the embedding independent of recording
// level: two windows of the same voice at different volumes yield the same
// vector, while voices with different pitch and timbre diverge.
package spectral

import (
	"context"
	"math"
	"time"

	"github.com/poiesic/vocald/ai"
	"github.com/poiesic/vocald/audio"
	"gonum.org/v1/gonum/dsp/fourier"
)

// logFloor keeps log-power finite for silent bins.
const logFloor = 1e-10

// Extractor implements ai.EmbeddingExtractor with pooled log spectra.
type Extractor struct {
	config *ai.Config
	hann   []float64
}

var _ ai.EmbeddingExtractor = (*Extractor)(nil)

// NewExtractor creates a spectral extractor.
// The config is validated before use.
func NewExtractor(config *ai.Config) (ai.EmbeddingExtractor, error) {
	return newExtractor(config)
}

func newExtractor(config *ai.Config) (*Extractor, error) {
	if config == nil {
		config = ai.DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	n := config.FrameSize
	hann := make([]float64, n)
	for i := range hann {
		hann[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
	}
	return &Extractor{config: config, hann: hann}, nil
}

// Dimension returns the embedding length.
func (e *Extractor) Dimension() int {
	return e.config.Dimension
}

// Extract embeds every voiced window of wf. Recordings shorter than one
// window are embedded whole when they hold at least one frame.
func (e *Extractor) Extract(ctx context.Context, wf *audio.Waveform) ([]ai.Segment, error) {
	if wf == nil || len(wf.Samples) == 0 {
		return []ai.Segment{}, nil
	}

	sr := e.config.SampleRate
	samples, err := audio.Resample(wf.Samples, wf.SampleRate, sr)
	if err != nil {
		return nil, err
	}
	window, hop := e.config.WindowSamples()
	if len(samples) < window {
		window = len(samples)
	}
	if window < e.config.FrameSize {
		return []ai.Segment{}, nil
	}

	// FFT work buffers are not safe for concurrent use, so each call owns one.
	fft := fourier.NewFFT(e.config.FrameSize)
	frame := make([]float64, e.config.FrameSize)
	var coeffs []complex128

	segments := []ai.Segment{}
	for start := 0; start+window <= len(samples); start += hop {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		chunk := samples[start : start+window]
		if rms(chunk) < e.config.MinRMS {
			continue
		}

		var spectrum []float64
		spectrum, coeffs = e.powerSpectrum(fft, chunk, frame, coeffs)
		embedding := e.pool(spectrum)
		if embedding == nil {
			continue
		}

		segments = append(segments, ai.Segment{
			Embedding: embedding,
			Start:     samplesToDuration(start, sr),
			End:       samplesToDuration(start+window, sr),
		})
	}
	return segments, nil
}

// powerSpectrum averages the Hann-windowed power spectrum over the frames
// of chunk, with 50% frame overlap.
func (e *Extractor) powerSpectrum(fft *fourier.FFT, chunk []float32, frame []float64, coeffs []complex128) ([]float64, []complex128) {
	n := e.config.FrameSize
	frameHop := n / 2
	power := make([]float64, n/2+1)

	frames := 0
	for off := 0; off+n <= len(chunk); off += frameHop {
		for i := 0; i < n; i++ {
			frame[i] = float64(chunk[off+i]) * e.hann[i]
		}
		coeffs = fft.Coefficients(coeffs, frame)
		for k := range power {
			re, im := real(coeffs[k]), imag(coeffs[k])
			power[k] += re*re + im*im
		}
		frames++
	}
	if frames > 0 {
		for k := range power {
			power[k] /= float64(frames)
		}
	}
	return power, coeffs
}

// pool folds the spectrum (without DC) into Dimension equal-width log bands,
// removes the mean and normalizes to unit length. Returns nil for a flat spectrum.
func (e *Extractor) pool(power []float64) []float32 {
	dim := e.config.Dimension
	bins := power[1:]
	bands := make([]float64, dim)
	for b := 0; b < dim; b++ {
		lo := b * len(bins) / dim
		hi := (b + 1) * len(bins) / dim
		if hi <= lo {
			hi = lo + 1
		}
		var sum float64
		for _, p := range bins[lo:hi] {
			sum += p
		}
		bands[b] = math.Log(sum/float64(hi-lo) + logFloor)
	}

	var mean float64
	for _, v := range bands {
		mean += v
	}
	mean /= float64(dim)

	var norm float64
	for i := range bands {
		bands[i] -= mean
		norm += bands[i] * bands[i]
	}
	norm = math.Sqrt(norm)
	if norm == 0 || math.IsNaN(norm) {
		return nil
	}

	out := make([]float32, dim)
	for i, v := range bands {
		out[i] = float32(v / norm)
	}
	return out
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

func samplesToDuration(n, rate int) time.Duration {
	return time.Duration(n) * time.Second / time.Duration(rate)
}
