package config

import (
	"wavelab/internal/analysis"
	"wavelab/internal/waveform"
)

// Kind returns the parsed waveform kind, Sine if unknown.
func (c *Config) Kind() waveform.Kind {
	kind, _ := waveform.ParseKind(c.Waveform.Kind)
	return kind
}

// Mode returns the parsed synthesis mode, Reference if unknown.
func (c *Config) Mode() waveform.Mode {
	mode, _ := waveform.ParseMode(c.Waveform.Mode)
	return mode
}

// WindowFunc returns the parsed analysis window, Rectangular if unknown.
func (c *Config) WindowFunc() analysis.WindowFunc {
	w, _ := analysis.ParseWindowFunc(c.Transform.Window)
	return w
}

// SampleRate returns the configured sample rate, or the rate derived from the
// frequency and harmonic count when none is set.
func (c *Config) SampleRate() float64 {
	if c.Waveform.SampleRate > 0 {
		return c.Waveform.SampleRate
	}
	return waveform.DefaultSamplingRate(c.Waveform.Frequency, c.Waveform.Harmonics)
}

// WaveformParams assembles generator parameters; the signal length is the
// transform window size.
func (c *Config) WaveformParams() waveform.Params {
	return waveform.Params{
		Kind:         c.Kind(),
		Frequency:    c.Waveform.Frequency,
		Amplitude:    c.Waveform.Amplitude,
		Phase:        c.Waveform.Phase,
		SamplingRate: c.SampleRate(),
		Length:       c.Transform.WindowSize,
		Harmonics:    c.Waveform.Harmonics,
	}
}
