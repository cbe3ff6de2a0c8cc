// SPDX-License-Identifier: MIT
package dft

// Bin is one frequency-domain sample of a Spectrum.
type Bin struct {
	W   float64  `json:"w"`   // Signed frequency, same units as the sampling rate.
	Re  float64  `json:"re"`  // Real part, snapped to zero below the tolerance.
	Im  float64  `json:"im"`  // Imaginary part, snapped to zero below the tolerance.
	R   float64  `json:"r"`   // Magnitude of (Re, Im).
	Phi *float64 `json:"phi"` // Phase in radians, nil when R is zero.
	K   int      `json:"k"`   // Canonical bin index in [0, N).
}

// newBin derives the polar form of an already snapped phasor.
func newBin(k int, w float64, c Complex) Bin {
	b := Bin{W: w, Re: c.Re, Im: c.Im, R: c.Abs(), K: k}
	if phi, ok := c.Phase(); ok {
		b.Phi = &phi
	}
	return b
}

// mirror returns the negative-frequency counterpart of b stored at index k.
// Re, Im and R are shared; W and Phi are negated.
func (b Bin) mirror(k int) Bin {
	m := Bin{W: -b.W, Re: b.Re, Im: b.Im, R: b.R, K: k}
	if b.Phi != nil {
		phi := -*b.Phi
		m.Phi = &phi
	}
	return m
}

// Value returns the stored rectangular components of the bin.
func (b Bin) Value() Complex {
	return Complex{Re: b.Re, Im: b.Im}
}

// HasPhase reports whether the bin carries a defined phase.
func (b Bin) HasPhase() bool {
	return b.Phi != nil
}

// Spectrum is a DC-centered sequence of bins: most negative frequency first,
// zero frequency at position len/2, most positive frequency last.
type Spectrum []Bin

// DC returns the zero-frequency bin.
func (s Spectrum) DC() Bin {
	return s[len(s)/2]
}

// Frequencies returns the W label of every bin, in spectrum order.
func (s Spectrum) Frequencies() []float64 {
	out := make([]float64, len(s))
	for i, b := range s {
		out[i] = b.W
	}
	return out
}

// Magnitudes returns the R value of every bin, in spectrum order.
func (s Spectrum) Magnitudes() []float64 {
	out := make([]float64, len(s))
	s.MagnitudesInto(out)
	return out
}

// MagnitudesInto copies R values into dst without allocating. It copies
// min(len(dst), len(s)) values and returns that count.
func (s Spectrum) MagnitudesInto(dst []float64) int {
	n := min(len(dst), len(s))
	for i := range n {
		dst[i] = s[i].R
	}
	return n
}

// centerShift rotates a natural-order array so natural indices
// [ceil(N/2), N) come first, followed by [0, ceil(N/2)).
func centerShift[T any](natural []T) []T {
	n := len(natural)
	half := (n + 1) / 2
	out := make([]T, 0, n)
	out = append(out, natural[half:]...)
	return append(out, natural[:half]...)
}

// naturalShift undoes centerShift.
func naturalShift[T any](shifted []T) []T {
	n := len(shifted)
	lead := n - (n+1)/2
	out := make([]T, 0, n)
	out = append(out, shifted[lead:]...)
	return append(out, shifted[:lead]...)
}
