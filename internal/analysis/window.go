// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"strings"

	applog "wavelab/internal/log"

	"gonum.org/v1/gonum/dsp/window"
)

// WindowFunc selects the taper applied to a signal before the transform.
type WindowFunc int

// Enum for available window functions. Rectangular leaves the signal untouched.
const (
	Rectangular WindowFunc = iota
	BartlettHann
	Blackman
	BlackmanNuttall
	Hann
	Hamming
	Lanczos
	Nuttall
)

var windowNames = [...]string{
	Rectangular:     "rectangular",
	BartlettHann:    "bartletthann",
	Blackman:        "blackman",
	BlackmanNuttall: "blackmannuttall",
	Hann:            "hann",
	Hamming:         "hamming",
	Lanczos:         "lanczos",
	Nuttall:         "nuttall",
}

func (w WindowFunc) String() string {
	if w >= 0 && int(w) < len(windowNames) {
		return windowNames[w]
	}
	return fmt.Sprintf("WindowFunc(%d)", int(w))
}

// ParseWindowFunc converts a string name (case-insensitive) to a WindowFunc.
// An empty name selects Rectangular. Unknown names return Rectangular and an
// error.
func ParseWindowFunc(name string) (WindowFunc, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "rectangular", "rect", "none":
		return Rectangular, nil
	case "bartletthann":
		return BartlettHann, nil
	case "blackman":
		return Blackman, nil
	case "blackmannuttall":
		return BlackmanNuttall, nil
	case "hann", "hanning":
		return Hann, nil
	case "hamming":
		return Hamming, nil
	case "lanczos":
		return Lanczos, nil
	case "nuttall":
		return Nuttall, nil
	default:
		return Rectangular, fmt.Errorf("unknown window function name: '%s'", name)
	}
}

// windowCoefficients returns the taper for a window of the given size, or nil
// for Rectangular.
func windowCoefficients(size int, windowType WindowFunc) []float64 {
	if windowType == Rectangular {
		return nil
	}

	// gonum multiplies in place, so start from ones.
	coeffs := make([]float64, size)
	for i := range coeffs {
		coeffs[i] = 1.0
	}
	switch windowType {
	case BartlettHann:
		window.BartlettHann(coeffs)
	case Blackman:
		window.Blackman(coeffs)
	case BlackmanNuttall:
		window.BlackmanNuttall(coeffs)
	case Hann:
		window.Hann(coeffs)
	case Hamming:
		window.Hamming(coeffs)
	case Lanczos:
		window.Lanczos(coeffs)
	case Nuttall:
		window.Nuttall(coeffs)
	default:
		applog.Warnf("Analysis: Unknown window function type %d, using rectangular", windowType)
		return nil
	}
	return coeffs
}

// applyWindow multiplies signal by coeffs into a new slice. A nil coeffs
// returns the signal as is.
func applyWindow(signal, coeffs []float64) []float64 {
	if coeffs == nil {
		return signal
	}
	out := make([]float64, len(signal))
	for i, x := range signal {
		out[i] = x * coeffs[i]
	}
	return out
}
