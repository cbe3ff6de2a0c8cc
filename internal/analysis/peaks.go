package analysis

import (
	"wavelab/internal/dft"

	"gonum.org/v1/gonum/floats"
)

// Peaks returns up to count bins with a non-negative frequency label and a
// non-zero magnitude, strongest first. The negative half of a real signal's
// spectrum mirrors the positive half, so it is skipped.
func Peaks(spectrum dft.Spectrum, count int) []dft.Bin {
	if count <= 0 {
		return nil
	}

	candidates := make([]dft.Bin, 0, len(spectrum)/2+1)
	for _, b := range spectrum {
		if b.W >= 0 && b.R > 0 {
			candidates = append(candidates, b)
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	mags := make([]float64, len(candidates))
	for i, b := range candidates {
		mags[i] = b.R
	}
	inds := make([]int, len(mags))
	floats.Argsort(mags, inds) // ascending

	count = min(count, len(inds))
	out := make([]dft.Bin, 0, count)
	for i := len(inds) - 1; i >= len(inds)-count; i-- {
		out = append(out, candidates[inds[i]])
	}
	return out
}
