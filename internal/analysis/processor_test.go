// SPDX-License-Identifier: MIT
package analysis

import (
	"errors"
	"sync"
	"testing"

	"wavelab/internal/dft"
	"wavelab/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProcessor(t *testing.T, n int, fs float64, w WindowFunc, tr *utils.MockTransport) *Processor {
	t.Helper()
	engine, err := dft.New(n)
	require.NoError(t, err)
	var p *Processor
	if tr == nil {
		p, err = NewProcessor(engine, fs, w, nil)
	} else {
		p, err = NewProcessor(engine, fs, w, tr)
	}
	require.NoError(t, err)
	return p
}

func TestNewProcessor(t *testing.T) {
	_, err := NewProcessor(nil, 8, Rectangular, nil)
	assert.Error(t, err)

	p := newTestProcessor(t, 8, 0, Hann, nil)
	assert.Equal(t, 1.0, p.SampleRate(), "non-positive sample rate falls back to 1")
	assert.Equal(t, 8, p.Size())
	assert.Equal(t, Hann, p.Window())
	assert.Nil(t, p.Latest())
	assert.Equal(t, make([]float64, 8), p.Magnitudes())
}

func TestProcessor_RectangularMatchesEngine(t *testing.T) {
	const n = 16
	p := newTestProcessor(t, n, n, Rectangular, nil)
	signal := utils.GenerateComplexWave(n, n, 1)

	got, err := p.Process(signal)
	require.NoError(t, err)

	engine, _ := dft.New(n)
	want, err := engine.Forward(signal, n)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, want, p.Latest())
	assert.Equal(t, want.Magnitudes(), p.Magnitudes())

	peaks := Peaks(got, 3)
	require.Len(t, peaks, 3)
	assert.Equal(t, []float64{1, 2, 3}, []float64{peaks[0].W, peaks[1].W, peaks[2].W})
}

func TestProcessor_WindowApplied(t *testing.T) {
	const n = 32
	p := newTestProcessor(t, n, n, Hann, nil)
	signal := make([]float64, n)
	for i := range signal {
		signal[i] = 1
	}

	spectrum, err := p.Process(signal)
	require.NoError(t, err)

	// A Hann-tapered constant keeps half its mean and leaks into ±1.
	dc := spectrum.DC()
	assert.InDelta(t, 0.5, dc.Re, 0.02)
	assert.Greater(t, spectrum[n/2+1].R, 0.2)
	assert.Equal(t, 1.0, signal[0], "input is not modified")
}

func TestProcessor_LengthMismatch(t *testing.T) {
	p := newTestProcessor(t, 8, 8, Rectangular, nil)
	_, err := p.Process(make([]float64, 5))

	var lenErr *dft.LengthMismatchError
	require.ErrorAs(t, err, &lenErr)
	assert.Equal(t, 8, lenErr.Expected)
	assert.Equal(t, 5, lenErr.Actual)
	assert.True(t, errors.Is(err, dft.ErrLengthMismatch))
	assert.Nil(t, p.Latest(), "a failed transform leaves no result")
}

func TestProcessor_SendsFrames(t *testing.T) {
	tr := &utils.MockTransport{}
	p := newTestProcessor(t, 8, 8, Blackman, tr)

	for range 2 {
		_, err := p.Process(utils.GenerateSineWave(8, 8, 1))
		require.NoError(t, err)
	}

	msgs := tr.Messages()
	require.Len(t, msgs, 2)
	frame, ok := msgs[1].(Frame)
	require.True(t, ok, "got %T", msgs[1])
	assert.Equal(t, "spectrum", frame.Type)
	assert.Equal(t, uint64(2), frame.Sequence)
	assert.Equal(t, "blackman", frame.Window)
	assert.Len(t, frame.Bins, 8)
	assert.Contains(t, frame.String(), "frame #2")

	require.NoError(t, p.Close())
	assert.True(t, tr.Closed())
}

func TestProcessor_TransportErrorIsLogged(t *testing.T) {
	tr := &utils.MockTransport{Err: errors.New("offline")}
	p := newTestProcessor(t, 4, 4, Rectangular, tr)

	_, err := p.Process([]float64{1, 1, 1, 1})
	assert.NoError(t, err)
}

func TestProcessor_FrequencyForBin(t *testing.T) {
	tests := []struct {
		n    int
		fs   float64
		want []float64
	}{
		{8, 16, []float64{-8, -6, -4, -2, 0, 2, 4, 6}},
		{5, 5, []float64{-2, -1, 0, 1, 2}},
		{1, 3, []float64{0}},
	}

	for _, tt := range tests {
		p := newTestProcessor(t, tt.n, tt.fs, Rectangular, nil)
		spectrum, err := p.Process(make([]float64, tt.n))
		require.NoError(t, err)

		for i, w := range tt.want {
			assert.Equal(t, w, p.FrequencyForBin(i), "N=%d position %d", tt.n, i)
			assert.Equal(t, spectrum[i].W, p.FrequencyForBin(i), "matches Forward labels")
		}
		assert.Zero(t, p.FrequencyForBin(-1))
		assert.Zero(t, p.FrequencyForBin(tt.n))
	}
}

func TestProcessor_MagnitudesInto(t *testing.T) {
	p := newTestProcessor(t, 4, 4, Rectangular, nil)
	_, err := p.Process([]float64{1, 1, 1, 1})
	require.NoError(t, err)

	assert.Error(t, p.MagnitudesInto(make([]float64, 3)))

	dst := make([]float64, 4)
	require.NoError(t, p.MagnitudesInto(dst))
	assert.Equal(t, []float64{0, 0, 1, 0}, dst)
}

func TestProcessor_Concurrent(t *testing.T) {
	const n = 32
	p := newTestProcessor(t, n, n, Hamming, nil)
	signal := utils.GenerateSineWave(n, n, 4)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := p.Process(signal)
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			dst := make([]float64, n)
			assert.NoError(t, p.MagnitudesInto(dst))
			_ = p.Latest()
		}()
	}
	wg.Wait()
	assert.NotNil(t, p.Latest())

	// +4 Hz sits at position N/2+4 of the centered layout.
	peak := utils.FindPeakBin(p.Magnitudes(), n/2, n-1)
	assert.Equal(t, n/2+4, peak)
	assert.Equal(t, 4.0, p.FrequencyForBin(peak))
}

func TestParseWindowFunc(t *testing.T) {
	tests := []struct {
		name    string
		want    WindowFunc
		wantErr bool
	}{
		{"", Rectangular, false},
		{"none", Rectangular, false},
		{"Rectangular", Rectangular, false},
		{"hanning", Hann, false},
		{"HANN", Hann, false},
		{"bartletthann", BartlettHann, false},
		{"blackmannuttall", BlackmanNuttall, false},
		{"lanczos", Lanczos, false},
		{"nuttall", Nuttall, false},
		{"hamming", Hamming, false},
		{"kaiser", Rectangular, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseWindowFunc(tt.name)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantErr, err != nil)
		})
	}
}

func TestWindowFuncString(t *testing.T) {
	for w := Rectangular; w <= Nuttall; w++ {
		parsed, err := ParseWindowFunc(w.String())
		require.NoError(t, err)
		assert.Equal(t, w, parsed)
	}
	assert.Equal(t, "WindowFunc(99)", WindowFunc(99).String())
}

func TestWindowCoefficients(t *testing.T) {
	assert.Nil(t, windowCoefficients(8, Rectangular))
	assert.Nil(t, windowCoefficients(8, WindowFunc(99)))

	hann := windowCoefficients(9, Hann)
	require.Len(t, hann, 9)
	assert.InDelta(t, 0, hann[0], 1e-12)
	assert.InDelta(t, 1, hann[4], 0.05)
}
