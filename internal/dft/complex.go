// SPDX-License-Identifier: MIT
package dft

import "math"

// Complex is a complex value in rectangular form. Real samples are carried as
// Complex values with Im == 0.
type Complex struct {
	Re float64 `json:"re"`
	Im float64 `json:"im"`
}

// Abs returns the magnitude of c.
func (c Complex) Abs() float64 {
	return math.Hypot(c.Re, c.Im)
}

// Phase returns the angle of c in radians. The second result is false when c is
// zero, in which case the phase is undefined and the angle must be ignored.
func (c Complex) Phase() (float64, bool) {
	if c.Re == 0 && c.Im == 0 {
		return 0, false
	}
	return math.Atan2(c.Im, c.Re), true
}

// Conj returns the complex conjugate of c.
func (c Complex) Conj() Complex {
	return Complex{Re: c.Re, Im: -c.Im}
}

// Add returns c + o.
func (c Complex) Add(o Complex) Complex {
	return Complex{Re: c.Re + o.Re, Im: c.Im + o.Im}
}

// Mul returns c * o.
func (c Complex) Mul(o Complex) Complex {
	return Complex{
		Re: c.Re*o.Re - c.Im*o.Im,
		Im: c.Re*o.Im + c.Im*o.Re,
	}
}

// Real wraps a real value.
func Real(x float64) Complex {
	return Complex{Re: x}
}

// snap zeroes v when its magnitude is below eps.
func snap(v, eps float64) float64 {
	if math.Abs(v) < eps {
		return 0
	}
	return v
}

// snapComplex snaps both components of c independently.
func snapComplex(c Complex, eps float64) Complex {
	return Complex{Re: snap(c.Re, eps), Im: snap(c.Im, eps)}
}

// RealParts returns the Re component of every value.
func RealParts(xs []Complex) []float64 {
	out := make([]float64, len(xs))
	for i, c := range xs {
		out[i] = c.Re
	}
	return out
}
