// SPDX-License-Identifier: MIT
package analysis

import (
	"math"
	"testing"

	"wavelab/internal/dft"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeaks(t *testing.T) {
	engine, err := dft.New(8)
	require.NoError(t, err)

	// DC 0.25, bin 1 (cos) 0.5, Nyquist 0.125.
	signal := make([]float64, 8)
	for i := range signal {
		signal[i] = 0.25 + cosine(i, 1, 8) + 0.125*float64(1-2*(i%2))
	}
	spectrum, err := engine.Forward(signal, 8)
	require.NoError(t, err)

	peaks := Peaks(spectrum, 5)
	require.Len(t, peaks, 2, "Nyquist carries a negative label and is skipped")
	assert.Equal(t, 1.0, peaks[0].W)
	assert.InDelta(t, 0.5, peaks[0].R, 1e-9)
	assert.Equal(t, 0.0, peaks[1].W)
	assert.InDelta(t, 0.25, peaks[1].R, 1e-9)

	top := Peaks(spectrum, 1)
	require.Len(t, top, 1)
	assert.Equal(t, 1, top[0].K)
}

func TestPeaks_Empty(t *testing.T) {
	engine, err := dft.New(4)
	require.NoError(t, err)
	silent, err := engine.Forward(make([]float64, 4), 4)
	require.NoError(t, err)

	assert.Nil(t, Peaks(silent, 3))
	assert.Nil(t, Peaks(silent, 0))
	assert.Nil(t, Peaks(nil, 2))
}

func cosine(i, cycles, n int) float64 {
	return math.Cos(2 * math.Pi * float64(cycles*i) / float64(n))
}
