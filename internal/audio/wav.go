// SPDX-License-Identifier: MIT

// Package audio reads and writes mono PCM WAV files as float64 sample
// sequences in [-1, 1].
package audio

import (
	"errors"
	"fmt"
	"math"
	"os"

	applog "wavelab/internal/log"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const pcmFormat = 1

var (
	// ErrNotMono is returned by ReadWAV for files with more than one channel.
	ErrNotMono = errors.New("only mono WAV files are supported")
	// ErrInvalidWAV is returned for files that are not PCM WAV.
	ErrInvalidWAV = errors.New("not a valid PCM WAV file")
)

// fullScale returns the magnitude that maps to 1.0 for a bit depth.
func fullScale(bitDepth int) float64 {
	return float64(int64(1) << (bitDepth - 1))
}

// ReadWAV decodes a mono PCM WAV file into samples normalized to [-1, 1] and
// returns them with the file's sample rate.
func ReadWAV(path string) ([]float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open WAV file: %w", err)
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return nil, 0, fmt.Errorf("%s: %w", path, ErrInvalidWAV)
	}
	if d.WavAudioFormat != pcmFormat {
		return nil, 0, fmt.Errorf("%s: audio format %d: %w", path, d.WavAudioFormat, ErrInvalidWAV)
	}
	if d.NumChans != 1 {
		return nil, 0, fmt.Errorf("%s has %d channels: %w", path, d.NumChans, ErrNotMono)
	}

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to decode WAV data: %w", err)
	}

	scale := fullScale(int(d.BitDepth))
	samples := make([]float64, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = float64(v) / scale
	}

	applog.Debugf("Audio: Read %d samples at %d Hz, %d bit from %s", len(samples), d.SampleRate, d.BitDepth, path)
	return samples, int(d.SampleRate), nil
}

// WriteWAV encodes samples as a mono PCM WAV file. Samples outside [-1, 1]
// are clipped. Supported bit depths are 16, 24 and 32.
func WriteWAV(path string, samples []float64, sampleRate, bitDepth int) error {
	if sampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}
	switch bitDepth {
	case 16, 24, 32:
	default:
		return fmt.Errorf("unsupported bit depth %d", bitDepth)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create WAV file: %w", err)
	}

	enc := wav.NewEncoder(file, sampleRate, bitDepth, 1, pcmFormat)

	peak := fullScale(bitDepth) - 1
	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: 1,
			SampleRate:  sampleRate,
		},
		SourceBitDepth: bitDepth,
		Data:           make([]int, len(samples)),
	}
	clipped := 0
	for i, x := range samples {
		if x > 1 || x < -1 {
			clipped++
			x = math.Max(-1, math.Min(1, x))
		}
		buf.Data[i] = int(math.Round(x * peak))
	}
	if clipped > 0 {
		applog.Warnf("Audio: Clipped %d of %d samples writing %s", clipped, len(samples), path)
	}

	if err := enc.Write(buf); err != nil {
		file.Close()
		return fmt.Errorf("failed to encode WAV data: %w", err)
	}
	if err := enc.Close(); err != nil {
		file.Close()
		return fmt.Errorf("failed to finalize WAV file: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close WAV file: %w", err)
	}
	return nil
}
