// SPDX-License-Identifier: MIT
package analysis

import (
	"errors"
	"fmt"
	"sync"

	"wavelab/internal/dft"
	applog "wavelab/internal/log"
	"wavelab/internal/transport"
)

// SpectrumProvider gives read access to the most recent spectrum. This
// decouples consumers (like the UDP publisher) from the concrete Processor.
type SpectrumProvider interface {
	Magnitudes() []float64              // Magnitudes returns a copy of the latest magnitudes, in spectrum order.
	MagnitudesInto(dst []float64) error // MagnitudesInto copies the latest magnitudes without allocating.
	FrequencyForBin(i int) float64      // FrequencyForBin returns the label of spectrum position i.
	Size() int                          // Size returns the window size N.
	SampleRate() float64                // SampleRate returns the sampling rate used for labels.
	Latest() dft.Spectrum               // Latest returns a copy of the latest spectrum, nil before the first Process.
}

// Frame is what a Processor hands to its transport after every transform.
type Frame struct {
	Type       string       `json:"type"`
	Sequence   uint64       `json:"seq"`
	Window     string       `json:"window"`
	SampleRate float64      `json:"sample_rate"`
	Bins       dft.Spectrum `json:"bins"`
}

func (f Frame) String() string {
	return fmt.Sprintf("%s frame #%d (N=%d, fs=%g, window=%s)", f.Type, f.Sequence, len(f.Bins), f.SampleRate, f.Window)
}

// Processor windows signals, transforms them with a dft.Engine and keeps the
// latest result for readers. It is safe for concurrent use.
type Processor struct {
	engine     *dft.Engine
	sampleRate float64
	windowType WindowFunc
	window     []float64           // Pre-calculated coefficients, nil for Rectangular.
	transport  transport.Transport // Optional.

	mu        sync.RWMutex // Protects the fields below.
	latest    dft.Spectrum
	magnitude []float64
	sequence  uint64
}

// Compile-time check for interface implementation.
var _ SpectrumProvider = (*Processor)(nil)

// NewProcessor creates a Processor over engine. A non-positive sampleRate is
// treated as 1, as in dft.Engine.Forward. t may be nil.
func NewProcessor(engine *dft.Engine, sampleRate float64, windowType WindowFunc, t transport.Transport) (*Processor, error) {
	if engine == nil {
		return nil, errors.New("analysis: engine cannot be nil")
	}
	if sampleRate <= 0 {
		sampleRate = 1
	}

	applog.Debugf("Analysis: Initializing Processor (Size: %d, SampleRate: %g, Window: %s)", engine.Size(), sampleRate, windowType)

	return &Processor{
		engine:     engine,
		sampleRate: sampleRate,
		windowType: windowType,
		window:     windowCoefficients(engine.Size(), windowType),
		transport:  t,
		magnitude:  make([]float64, engine.Size()),
	}, nil
}

// Process applies the window, runs the forward transform and stores the
// result. When a transport is set the spectrum is also sent as a Frame;
// transport errors are logged, not returned.
func (p *Processor) Process(signal []float64) (dft.Spectrum, error) {
	if len(signal) != p.engine.Size() {
		return nil, &dft.LengthMismatchError{Expected: p.engine.Size(), Actual: len(signal)}
	}

	spectrum, err := p.engine.Forward(applyWindow(signal, p.window), p.sampleRate)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.latest = spectrum
	spectrum.MagnitudesInto(p.magnitude)
	p.sequence++
	seq := p.sequence
	p.mu.Unlock()

	if p.transport != nil {
		frame := Frame{
			Type:       "spectrum",
			Sequence:   seq,
			Window:     p.windowType.String(),
			SampleRate: p.sampleRate,
			Bins:       spectrum,
		}
		if err := p.transport.Send(frame); err != nil {
			applog.Errorf("Analysis: Error sending spectrum frame: %v", err)
		}
	}

	return spectrum, nil
}

// Taper returns signal multiplied by the configured window, i.e. the
// sequence Process actually transforms. Rectangular returns signal itself.
func (p *Processor) Taper(signal []float64) []float64 {
	return applyWindow(signal, p.window)
}

// Magnitudes returns a copy of the latest magnitudes. The slice is all zeros
// before the first Process call.
func (p *Processor) Magnitudes() []float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]float64, len(p.magnitude))
	copy(out, p.magnitude)
	return out
}

// MagnitudesInto copies the latest magnitudes into dst, which must have
// length Size().
func (p *Processor) MagnitudesInto(dst []float64) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if len(dst) != len(p.magnitude) {
		return fmt.Errorf("destination slice length %d does not match required length %d", len(dst), len(p.magnitude))
	}
	copy(dst, p.magnitude)
	return nil
}

// FrequencyForBin returns the frequency label at position i of a spectrum
// produced by this Processor, or 0 when i is out of range.
func (p *Processor) FrequencyForBin(i int) float64 {
	n := p.engine.Size()
	if i < 0 || i >= n {
		return 0
	}
	half := (n + 1) / 2
	k := (i + half) % n
	if k >= half {
		k -= n
	}
	return p.engine.BinFrequency(k, p.sampleRate)
}

func (p *Processor) Size() int {
	return p.engine.Size()
}

func (p *Processor) SampleRate() float64 {
	return p.sampleRate
}

// Window returns the configured window function.
func (p *Processor) Window() WindowFunc {
	return p.windowType
}

// Latest returns a copy of the most recent spectrum.
func (p *Processor) Latest() dft.Spectrum {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.latest == nil {
		return nil
	}
	out := make(dft.Spectrum, len(p.latest))
	copy(out, p.latest)
	return out
}

// Close releases the transport, if any.
func (p *Processor) Close() error {
	if p.transport == nil {
		return nil
	}
	return p.transport.Close()
}
