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

// Package audio decodes recordings into mono PCM waveforms.
//
// PCM WAV files are decoded in-process. Every other container, and WAV files
// with compressed payloads, are handed to an external ffmpeg binary that
// writes signed 16-bit little-endian mono samples to stdout.
package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	resampling "github.com/tphakala/go-audio-resampling"
)

// SampleRate is the rate every decoded waveform is converted to.
const SampleRate = 16000

const wavFormatPCM = 1

var (
	// ErrDecode is returned when a file cannot be decoded.
	ErrDecode = errors.New("audio decode failed")

	// ErrEmpty is returned when a file decodes to no samples.
	ErrEmpty = errors.New("audio contains no samples")
)

// Waveform is mono PCM audio with samples in [-1, 1].
type Waveform struct {
	SampleRate int
	Samples    []float32
}

// Duration returns the length of the waveform.
func (w *Waveform) Duration() time.Duration {
	if w == nil || w.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(w.Samples)) * time.Second / time.Duration(w.SampleRate)
}

// Decoder turns audio files into waveforms.
type Decoder struct {
	ffmpeg     string
	sampleRate int
}

// Option configures a Decoder.
type Option func(*Decoder) error

// WithFFmpeg sets the ffmpeg binary. An empty path disables ffmpeg so only
// PCM WAV files can be decoded.
func WithFFmpeg(path string) Option {
	return func(d *Decoder) error {
		d.ffmpeg = path
		return nil
	}
}

// WithSampleRate sets the output sample rate.
func WithSampleRate(rate int) Option {
	return func(d *Decoder) error {
		if rate <= 0 {
			return fmt.Errorf("invalid sample rate %d", rate)
		}
		d.sampleRate = rate
		return nil
	}
}

// NewDecoder creates a Decoder that uses ffmpeg from PATH.
func NewDecoder(opts ...Option) (*Decoder, error) {
	d := &Decoder{
		ffmpeg:     "ffmpeg",
		sampleRate: SampleRate,
	}
	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Decode reads path into a mono waveform at the decoder's sample rate.
// All failures wrap ErrDecode.
func (d *Decoder) Decode(ctx context.Context, path string) (*Waveform, error) {
	wf, wavErr := d.decodeWAV(path)
	if wavErr == nil {
		return wf, nil
	}
	if errors.Is(wavErr, os.ErrNotExist) || errors.Is(wavErr, ErrEmpty) {
		return nil, fmt.Errorf("%w: %w", ErrDecode, wavErr)
	}

	if d.ffmpeg == "" {
		return nil, fmt.Errorf("%w: %s: %w", ErrDecode, path, wavErr)
	}
	wf, err := d.decodeFFmpeg(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDecode, path, err)
	}
	return wf, nil
}

var errNotPCMWAV = errors.New("not a PCM WAV file")

// decodeWAV decodes an uncompressed WAV file in-process.
func (d *Decoder) decodeWAV(path string) (*Waveform, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() || dec.WavAudioFormat != wavFormatPCM {
		return nil, errNotPCMWAV
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, err
	}

	samples := intBufferToMono(buf)
	if len(samples) == 0 {
		return nil, ErrEmpty
	}
	resampled, err := Resample(samples, buf.Format.SampleRate, d.sampleRate)
	if err != nil {
		return nil, err
	}
	return &Waveform{SampleRate: d.sampleRate, Samples: resampled}, nil
}

// intBufferToMono scales integer PCM to [-1, 1] and averages the channels.
func intBufferToMono(buf *goaudio.IntBuffer) []float32 {
	channels := 1
	if buf.Format != nil && buf.Format.NumChannels > 0 {
		channels = buf.Format.NumChannels
	}

	var (
		scale  = float32(int64(1) << (buf.SourceBitDepth - 1))
		offset float32
	)
	if buf.SourceBitDepth == 8 {
		// 8-bit WAV is unsigned
		offset = 128
	}

	frames := len(buf.Data) / channels
	out := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		for c := 0; c < channels; c++ {
			sum += (float32(buf.Data[i*channels+c]) - offset) / scale
		}
		out[i] = sum / float32(channels)
	}
	return out
}

// decodeFFmpeg converts any supported container to mono s16le PCM via ffmpeg.
func (d *Decoder) decodeFFmpeg(ctx context.Context, path string) (*Waveform, error) {
	cmd := exec.CommandContext(ctx, d.ffmpeg, "-hide_banner", "-loglevel", "error", "-i", path,
		"-f", "s16le", "-acodec", "pcm_s16le", "-ac", "1", "-ar", strconv.Itoa(d.sampleRate), "-")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("ffmpeg: %w: %s", err, msg)
		}
		return nil, fmt.Errorf("ffmpeg: %w", err)
	}

	samples := s16leToFloat(stdout.Bytes())
	if len(samples) == 0 {
		return nil, ErrEmpty
	}
	return &Waveform{SampleRate: d.sampleRate, Samples: samples}, nil
}

// s16leToFloat converts signed 16-bit little-endian PCM to [-1, 1].
func s16leToFloat(data []byte) []float32 {
	out := make([]float32, len(data)/2)
	for i := range out {
		v := int16(binary.LittleEndian.Uint16(data[2*i:]))
		out[i] = float32(v) / 32768.0
	}
	return out
}

// Resample converts samples between rates with a band-limited resampler,
// so content above the target Nyquist frequency is filtered rather than
// folded back into the spectrum.
func Resample(samples []float32, from, to int) ([]float32, error) {
	if from <= 0 || to <= 0 || from == to || len(samples) == 0 {
		return samples, nil
	}

	r, err := resampling.New(&resampling.Config{
		InputRate:  float64(from),
		OutputRate: float64(to),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create resampler: %w", err)
	}

	input := make([]float64, len(samples))
	for i, s := range samples {
		input[i] = float64(s)
	}
	output, err := r.Process(input)
	if err != nil {
		return nil, fmt.Errorf("resample error: %w", err)
	}

	out := make([]float32, len(output))
	for i, v := range output {
		out[i] = float32(v)
	}
	return out, nil
}
