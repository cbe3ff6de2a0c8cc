// SPDX-License-Identifier: MIT
/*
Package dft implements a direct (O(N²)) discrete Fourier transform over a fixed
window size.

Forward returns a DC-centered Spectrum built from the first floor(N/2)+1 bins
and their Hermitian mirrors. Inverse works on natural bin order; ToNaturalOrder
converts a Spectrum back to that order, so a lossless round trip is

	spectrum, _ := engine.Forward(signal, fs)
	natural, _ := engine.ToNaturalOrder(spectrum)
	samples, _ := engine.Inverse(natural)

Forward scales by 1/N during accumulation, so Inverse sums without scaling.

An Engine is immutable after construction apart from its lazily built basis,
which is populated once and then only read. Transforms are safe for concurrent
use.
*/
package dft

import (
	"fmt"
	"math"
	"sync"
)

// DefaultTolerance is the threshold below which a component is snapped to 0.
const DefaultTolerance = 1e-3

// Engine computes forward and inverse transforms for one window size.
type Engine struct {
	size      int
	tolerance float64

	basisOnce sync.Once
	basis     [][]Complex // basis[k][n] = exp(i·2π·k·n/N), snapped.
}

// Option configures an Engine.
type Option func(*Engine)

// WithTolerance overrides DefaultTolerance. A tolerance of 0 disables snapping.
func WithTolerance(eps float64) Option {
	return func(e *Engine) {
		e.tolerance = eps
	}
}

// New creates an Engine for the given window size.
func New(windowSize int, opts ...Option) (*Engine, error) {
	if windowSize <= 0 {
		return nil, fmt.Errorf("window size must be positive, got %d", windowSize)
	}

	e := &Engine{
		size:      windowSize,
		tolerance: DefaultTolerance,
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.tolerance < 0 || math.IsNaN(e.tolerance) {
		return nil, fmt.Errorf("tolerance must be non-negative, got %g", e.tolerance)
	}

	return e, nil
}

// Size returns the window size N.
func (e *Engine) Size() int {
	return e.size
}

// Tolerance returns the snapping threshold ε.
func (e *Engine) Tolerance() float64 {
	return e.tolerance
}

// BinFrequency returns the frequency label of natural bin k for the given
// sampling rate, (samplingRate/N)·k.
func (e *Engine) BinFrequency(k int, samplingRate float64) float64 {
	return samplingRate / float64(e.size) * float64(k)
}

// Forward transforms a real signal of exactly N samples into a DC-centered
// Spectrum. A non-positive samplingRate is treated as 1.
func (e *Engine) Forward(signal []float64, samplingRate float64) (Spectrum, error) {
	if err := checkLength(e.size, len(signal)); err != nil {
		return nil, err
	}
	if samplingRate <= 0 {
		samplingRate = 1
	}

	n := e.size
	bins := make([]Bin, n)
	for k := 0; k <= n/2; k++ {
		phasor := snapComplex(e.phasor(signal, k), e.tolerance)
		bin := newBin(k, e.BinFrequency(k, samplingRate), phasor)
		bins[k] = bin
		if k != 0 {
			// For even N the Nyquist bin is its own mirror and keeps the
			// negative label.
			bins[n-k] = bin.mirror(n - k)
		}
	}

	return Spectrum(centerShift(bins)), nil
}

// phasor accumulates Σ (x[n]/N)·exp(−i·2π·k·n/N).
func (e *Engine) phasor(signal []float64, k int) Complex {
	n := float64(e.size)
	var acc Complex
	for i, x := range signal {
		amp := x / n
		sin, cos := math.Sincos(-2 * math.Pi * float64(k) * float64(i) / n)
		acc.Re += amp * cos
		acc.Im += amp * sin
	}
	return acc
}

// ToNaturalOrder converts a Spectrum produced by Forward back into natural
// bin order. Mirrored bins store the components of their positive-frequency
// twin, so they are returned conjugated; the result is the normalized DFT of
// the original signal and can be passed to Inverse.
func (e *Engine) ToNaturalOrder(spectrum Spectrum) ([]Complex, error) {
	if err := checkLength(e.size, len(spectrum)); err != nil {
		return nil, err
	}

	natural := naturalShift(spectrum)
	out := make([]Complex, e.size)
	half := (e.size + 1) / 2
	for i, b := range natural {
		if i >= half {
			out[i] = b.Value().Conj()
		} else {
			out[i] = b.Value()
		}
	}
	return out, nil
}

// Inverse transforms N natural-order coefficients back into N complex samples,
// x[k] = Σ X[n]·basis[n][k]. Each output component is snapped.
func (e *Engine) Inverse(spectrum []Complex) ([]Complex, error) {
	if err := checkLength(e.size, len(spectrum)); err != nil {
		return nil, err
	}

	basis := e.Basis()
	out := make([]Complex, e.size)
	for k := range out {
		var acc Complex
		for n, coeff := range spectrum {
			acc = acc.Add(coeff.Mul(basis[n][k]))
		}
		out[k] = snapComplex(acc, e.tolerance)
	}
	return out, nil
}

// Reconstruct runs ToNaturalOrder followed by Inverse.
func (e *Engine) Reconstruct(spectrum Spectrum) ([]Complex, error) {
	natural, err := e.ToNaturalOrder(spectrum)
	if err != nil {
		return nil, err
	}
	return e.Inverse(natural)
}

// Basis returns the N×N transform matrix, building it on first use. The
// returned rows are shared and must not be modified.
func (e *Engine) Basis() [][]Complex {
	e.basisOnce.Do(e.buildBasis)
	return e.basis
}

func (e *Engine) buildBasis() {
	n := e.size
	basis := make([][]Complex, n)
	backing := make([]Complex, n*n)
	for k := range basis {
		basis[k] = backing[k*n : (k+1)*n]
	}

	// Symmetric: only the upper triangle is evaluated.
	for k := range n {
		for j := k; j < n; j++ {
			// Reduce k·j mod N first to keep the angle small and exact.
			sin, cos := math.Sincos(2 * math.Pi * float64((k*j)%n) / float64(n))
			v := snapComplex(Complex{Re: cos, Im: sin}, e.tolerance)
			basis[k][j] = v
			basis[j][k] = v
		}
	}

	e.basis = basis
}
