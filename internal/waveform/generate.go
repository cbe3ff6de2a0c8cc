// SPDX-License-Identifier: MIT
/*
Package waveform renders periodic waveforms into finite real-valued sample
sequences. Every function here is pure.

Two renderings exist. Generate is the reference behavior: all kinds produce
amplitude·sin(2π·f·n/fs − phase). Synthesize builds square, triangular and
sawtooth waves from their odd/alternating harmonic series, truncated to a
number of harmonics.
*/
package waveform

import "math"

// Params describes one waveform rendering.
type Params struct {
	Kind         Kind    `json:"kind" yaml:"kind"`
	Frequency    float64 `json:"frequency" yaml:"frequency"`         // Cycles per unit time.
	Amplitude    float64 `json:"amplitude" yaml:"amplitude"`         // Peak value.
	Phase        float64 `json:"phase" yaml:"phase"`                 // Radians, subtracted from the angle.
	SamplingRate float64 `json:"sampling_rate" yaml:"sampling_rate"` // Samples per unit time.
	Length       int     `json:"length" yaml:"length"`               // Number of samples.
	Harmonics    int     `json:"harmonics" yaml:"harmonics"`         // Series terms for Harmonic mode.
}

// Generate returns length samples of amplitude·sin(2π·frequency·n/samplingRate − phase).
// The kind is accepted for every waveform but does not change the formula.
// A non-positive length yields an empty signal.
func Generate(kind Kind, frequency, amplitude, phase, samplingRate float64, length int) []float64 {
	if length <= 0 {
		return []float64{}
	}

	out := make([]float64, length)
	for n := range out {
		out[n] = amplitude * math.Sin(angle(frequency, phase, samplingRate, n))
	}
	return out
}

// Synthesize renders p as a truncated Fourier series of p.Harmonics terms.
// A non-positive harmonic count is treated as 1; Custom yields silence.
func Synthesize(p Params) []float64 {
	if p.Length <= 0 {
		return []float64{}
	}

	harmonics := max(p.Harmonics, 1)
	out := make([]float64, p.Length)
	if p.Kind == Custom {
		return out
	}

	for n := range out {
		theta := angle(p.Frequency, p.Phase, p.SamplingRate, n)
		var v float64
		for k := 1; k <= harmonics; k++ {
			coeff, multiple := seriesTerm(p.Kind, k)
			if coeff == 0 {
				continue
			}
			v += coeff * math.Sin(multiple*theta)
		}
		out[n] = p.Amplitude * v
	}
	return out
}

// Render dispatches to Generate or Synthesize.
func (p Params) Render(mode Mode) []float64 {
	if mode == Harmonic {
		return Synthesize(p)
	}
	return Generate(p.Kind, p.Frequency, p.Amplitude, p.Phase, p.SamplingRate, p.Length)
}

// seriesTerm returns the coefficient and frequency multiple of harmonic k
// (1-based) for the given kind.
func seriesTerm(kind Kind, k int) (coeff, multiple float64) {
	fk := float64(k)
	odd := 2*fk - 1
	switch kind {
	case Sine:
		if k == 1 {
			return 1, 1
		}
		return 0, 0
	case Square:
		return 4 / (math.Pi * odd), odd
	case Triangular:
		return alternating(k) * 8 / (math.Pi * math.Pi * odd * odd), odd
	case Sawtooth:
		return alternating(k) * 2 / (math.Pi * fk), fk
	default:
		return 0, 0
	}
}

// alternating returns (−1)^(k+1).
func alternating(k int) float64 {
	if k%2 == 0 {
		return -1
	}
	return 1
}

func angle(frequency, phase, samplingRate float64, n int) float64 {
	return 2*math.Pi*frequency*float64(n)/samplingRate - phase
}

// SampleCount returns floor(samplingRate·duration), or 0 for non-positive input.
func SampleCount(samplingRate, duration float64) int {
	if samplingRate <= 0 || duration <= 0 {
		return 0
	}
	return int(math.Floor(samplingRate * duration))
}

// DefaultSamplingRate returns 3·harmonics·frequency, the rate used when none
// is configured.
func DefaultSamplingRate(frequency float64, harmonics int) float64 {
	return 3 * float64(max(harmonics, 1)) * frequency
}
