package audio

import (
	"fmt"
	"math"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WriteWAV writes w as a mono 16-bit PCM WAV file.
func WriteWAV(path string, w *Waveform) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	enc := wav.NewEncoder(f, w.SampleRate, 16, 1, wavFormatPCM)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: w.SampleRate},
		Data:           make([]int, len(w.Samples)),
		SourceBitDepth: 16,
	}
	for i, s := range w.Samples {
		v := math.Round(float64(s) * 32767)
		buf.Data[i] = int(math.Max(-32768, math.Min(32767, v)))
	}

	if err := enc.Write(buf); err != nil {
		f.Close()
		return fmt.Errorf("failed to write wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return fmt.Errorf("failed to write wav: %w", err)
	}
	return f.Close()
}
