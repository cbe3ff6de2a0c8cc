// SPDX-License-Identifier: MIT

// Package session ties a waveform request to a transform: it renders the
// signal, runs it through a dft.Engine sized to the request, reconstructs it
// and reports the round-trip error.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"

	"wavelab/internal/analysis"
	"wavelab/internal/config"
	"wavelab/internal/dft"
	applog "wavelab/internal/log"
	"wavelab/internal/transport"
	"wavelab/internal/waveform"
)

// DefaultPeakCount is used when neither the request nor Options set one.
const DefaultPeakCount = 5

// Request describes one computation.
type Request struct {
	Kind       waveform.Kind `json:"kind"`
	Mode       waveform.Mode `json:"mode"`
	Frequency  float64       `json:"frequency"`
	Amplitude  float64       `json:"amplitude"`
	Phase      float64       `json:"phase"`
	SampleRate float64       `json:"sample_rate"` // 0 derives 3·harmonics·frequency.
	Length     int           `json:"length"`      // Window size N.
	Harmonics  int           `json:"harmonics"`
	Peaks      int           `json:"peaks,omitempty"`
	Signal     []float64     `json:"signal,omitempty"` // Replaces the generator when set.
}

// Validate checks the request against the configured limits.
func (r Request) Validate() error {
	return r.ValidateWithin(config.MaxWindowSize)
}

// ValidateWithin is Validate with the window size capped at maxWindow, which
// never exceeds config.MaxWindowSize.
func (r Request) ValidateWithin(maxWindow int) error {
	var errs []error

	maxWindow = min(maxWindow, config.MaxWindowSize)
	length := r.windowSize()
	if length < config.MinWindowSize || length > maxWindow {
		errs = append(errs, fmt.Errorf("length must be in [%d, %d], got %d", config.MinWindowSize, maxWindow, length))
	}
	if r.Signal != nil && r.Length != 0 && r.Length != len(r.Signal) {
		errs = append(errs, fmt.Errorf("length %d does not match signal of %d samples", r.Length, len(r.Signal)))
	}
	if r.Kind < waveform.Sine || r.Kind > waveform.Custom {
		errs = append(errs, fmt.Errorf("unknown waveform kind %d", int(r.Kind)))
	}
	if r.Mode != waveform.Reference && r.Mode != waveform.Harmonic {
		errs = append(errs, fmt.Errorf("unknown mode %d", int(r.Mode)))
	}
	for name, v := range map[string]float64{"frequency": r.Frequency, "amplitude": r.Amplitude, "phase": r.Phase} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			errs = append(errs, fmt.Errorf("%s must be finite", name))
		}
	}
	if r.SampleRate < 0 || math.IsNaN(r.SampleRate) || math.IsInf(r.SampleRate, 0) {
		errs = append(errs, fmt.Errorf("sample_rate must be non-negative, got %g", r.SampleRate))
	}
	if r.SampleRate == 0 && r.Signal == nil && !(r.Frequency > 0) {
		errs = append(errs, errors.New("sample_rate can only be derived from a positive frequency"))
	}
	if r.Harmonics < 0 || r.Harmonics > config.MaxHarmonics {
		errs = append(errs, fmt.Errorf("harmonics must be in [0, %d], got %d", config.MaxHarmonics, r.Harmonics))
	}
	if r.Peaks < 0 {
		errs = append(errs, fmt.Errorf("peaks must be non-negative, got %d", r.Peaks))
	}

	return errors.Join(errs...)
}

func (r Request) windowSize() int {
	if r.Signal != nil && r.Length == 0 {
		return len(r.Signal)
	}
	return r.Length
}

// sampleRate returns the explicit rate or the one derived from the
// generator parameters.
func (r Request) sampleRate() float64 {
	if r.SampleRate > 0 || r.Signal != nil {
		return r.SampleRate
	}
	return waveform.DefaultSamplingRate(r.Frequency, r.Harmonics)
}

// Params converts the request to generator parameters.
func (r Request) Params() waveform.Params {
	return waveform.Params{
		Kind:         r.Kind,
		Frequency:    r.Frequency,
		Amplitude:    r.Amplitude,
		Phase:        r.Phase,
		SamplingRate: r.sampleRate(),
		Length:       r.windowSize(),
		Harmonics:    r.Harmonics,
	}
}

// RequestFromConfig builds the request described by the config file.
func RequestFromConfig(cfg *config.Config) Request {
	return Request{
		Kind:       cfg.Kind(),
		Mode:       cfg.Mode(),
		Frequency:  cfg.Waveform.Frequency,
		Amplitude:  cfg.Waveform.Amplitude,
		Phase:      cfg.Waveform.Phase,
		SampleRate: cfg.Waveform.SampleRate,
		Length:     cfg.Transform.WindowSize,
		Harmonics:  cfg.Waveform.Harmonics,
	}
}

// Result is the outcome of Compute.
type Result struct {
	Type          string       `json:"type"`
	SampleRate    float64      `json:"sample_rate"`
	Window        string       `json:"window"`
	Signal        []float64    `json:"signal"`
	Spectrum      dft.Spectrum `json:"spectrum"`
	Reconstructed []float64    `json:"reconstructed"` // Real parts of the inverse.
	MaxError      float64      `json:"max_error"`     // Largest |inverse − transformed input|.
	Peaks         []dft.Bin    `json:"peaks"`
}

// Options configures a Session.
type Options struct {
	Tolerance float64             // Engine snapping threshold.
	Window    analysis.WindowFunc // Taper applied before the transform.
	PeakCount int                 // Peaks reported when the request sets none.
	Transport transport.Transport // Receives a Frame per Compute, may be nil.
	Defaults  Request             // Base for requests decoded by Handle.
	// MaxWindowSize caps the request length, 0 means config.MaxWindowSize.
	MaxWindowSize int
}

// jsonFloatBytes bounds the encoded size of one float64 in a JSON array,
// sign, 17 significant digits, exponent and separator included.
const jsonFloatBytes = 25

// MaxMessageSize returns the largest JSON request Handle needs to accept for
// signals of up to maxWindow samples.
func MaxMessageSize(maxWindow int) int64 {
	return int64(maxWindow)*jsonFloatBytes + 4096
}

// Session computes results for a stream of requests, keeping the engine
// while the window size stays the same. It is safe for concurrent use.
type Session struct {
	opts Options

	mu     sync.Mutex // Serializes Compute.
	engine *dft.Engine

	procMu sync.RWMutex
	proc   *analysis.Processor
}

// Compile-time check: a Session serves the latest spectrum to publishers.
var _ analysis.SpectrumProvider = (*Session)(nil)

// New creates a Session. A negative or NaN tolerance is rejected.
func New(opts Options) (*Session, error) {
	if opts.Tolerance < 0 || math.IsNaN(opts.Tolerance) {
		return nil, fmt.Errorf("tolerance must be non-negative, got %g", opts.Tolerance)
	}
	if opts.PeakCount <= 0 {
		opts.PeakCount = DefaultPeakCount
	}
	if opts.MaxWindowSize <= 0 || opts.MaxWindowSize > config.MaxWindowSize {
		opts.MaxWindowSize = config.MaxWindowSize
	}
	return &Session{opts: opts}, nil
}

// Compute renders the request's signal, transforms it, reconstructs it and
// reports the peaks.
func (s *Session) Compute(req Request) (*Result, error) {
	if err := req.ValidateWithin(s.opts.MaxWindowSize); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n := req.windowSize()
	rate := req.sampleRate()
	proc, err := s.processorFor(n, rate)
	if err != nil {
		return nil, err
	}

	signal := req.Signal
	if signal == nil {
		signal = req.Params().Render(req.Mode)
	}

	spectrum, err := proc.Process(signal)
	if err != nil {
		return nil, fmt.Errorf("transform failed: %w", err)
	}

	inverse, err := s.engine.Reconstruct(spectrum)
	if err != nil {
		return nil, fmt.Errorf("reconstruction failed: %w", err)
	}

	transformed := proc.Taper(signal)
	reconstructed := dft.RealParts(inverse)
	var maxErr float64
	for i, c := range inverse {
		diff := dft.Complex{Re: c.Re - transformed[i], Im: c.Im}
		maxErr = max(maxErr, diff.Abs())
	}

	peakCount := s.opts.PeakCount
	if req.Peaks > 0 {
		peakCount = req.Peaks
	}

	applog.Debugf("Session: Computed N=%d fs=%g kind=%s mode=%s max error %g", n, proc.SampleRate(), req.Kind, req.Mode, maxErr)

	return &Result{
		Type:          "result",
		SampleRate:    proc.SampleRate(),
		Window:        proc.Window().String(),
		Signal:        signal,
		Spectrum:      spectrum,
		Reconstructed: reconstructed,
		MaxError:      maxErr,
		Peaks:         analysis.Peaks(spectrum, peakCount),
	}, nil
}

// processorFor returns a processor for window size n at rate, rebuilding the
// engine only when n changes. Callers hold s.mu.
func (s *Session) processorFor(n int, rate float64) (*analysis.Processor, error) {
	if s.engine == nil || s.engine.Size() != n {
		engine, err := dft.New(n, dft.WithTolerance(s.opts.Tolerance))
		if err != nil {
			return nil, fmt.Errorf("failed to create engine: %w", err)
		}
		applog.Debugf("Session: New engine for window size %d", n)
		s.engine = engine
	}

	s.procMu.RLock()
	proc := s.proc
	s.procMu.RUnlock()

	effective := rate
	if effective <= 0 {
		effective = 1
	}
	if proc != nil && proc.Size() == n && proc.SampleRate() == effective {
		return proc, nil
	}

	proc, err := analysis.NewProcessor(s.engine, rate, s.opts.Window, s.opts.Transport)
	if err != nil {
		return nil, err
	}
	s.procMu.Lock()
	s.proc = proc
	s.procMu.Unlock()
	return proc, nil
}

// Handle decodes a JSON Request layered over Options.Defaults and computes
// it. Its signature matches transport.Handler.
func (s *Session) Handle(ctx context.Context, msg []byte) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	req := s.opts.Defaults
	req.Signal = nil // never decode into the defaults' backing array
	if err := json.Unmarshal(msg, &req); err != nil {
		return nil, fmt.Errorf("failed to decode request: %w", err)
	}

	// A signal without a length takes its own length, not the default one.
	if req.Signal != nil {
		var given struct {
			Length *int `json:"length"`
		}
		if err := json.Unmarshal(msg, &given); err == nil && given.Length == nil {
			req.Length = 0
		}
	}
	return s.Compute(req)
}

func (s *Session) current() *analysis.Processor {
	s.procMu.RLock()
	defer s.procMu.RUnlock()
	return s.proc
}

// Magnitudes returns the latest magnitudes, nil before the first Compute.
func (s *Session) Magnitudes() []float64 {
	if p := s.current(); p != nil {
		return p.Magnitudes()
	}
	return nil
}

// MagnitudesInto copies the latest magnitudes into dst.
func (s *Session) MagnitudesInto(dst []float64) error {
	p := s.current()
	if p == nil {
		if len(dst) == 0 {
			return nil
		}
		return errors.New("no spectrum computed yet")
	}
	return p.MagnitudesInto(dst)
}

func (s *Session) FrequencyForBin(i int) float64 {
	if p := s.current(); p != nil {
		return p.FrequencyForBin(i)
	}
	return 0
}

// Size returns the current window size, 0 before the first Compute.
func (s *Session) Size() int {
	if p := s.current(); p != nil {
		return p.Size()
	}
	return 0
}

func (s *Session) SampleRate() float64 {
	if p := s.current(); p != nil {
		return p.SampleRate()
	}
	return 0
}

func (s *Session) Latest() dft.Spectrum {
	if p := s.current(); p != nil {
		return p.Latest()
	}
	return nil
}
