// SPDX-License-Identifier: MIT
package session

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"wavelab/internal/analysis"
	"wavelab/internal/config"
	"wavelab/internal/waveform"
	"wavelab/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sineRequest(n int) Request {
	return Request{
		Kind:       waveform.Sine,
		Frequency:  2,
		Amplitude:  1,
		SampleRate: float64(n),
		Length:     n,
	}
}

func newSession(t *testing.T, opts Options) *Session {
	t.Helper()
	if opts.Tolerance == 0 {
		opts.Tolerance = 1e-3
	}
	s, err := New(opts)
	require.NoError(t, err)
	return s
}

func TestNew(t *testing.T) {
	_, err := New(Options{Tolerance: -1})
	assert.Error(t, err)

	s, err := New(Options{})
	require.NoError(t, err)
	assert.Equal(t, DefaultPeakCount, s.opts.PeakCount)
}

func TestCompute_Sine(t *testing.T) {
	s := newSession(t, Options{})

	res, err := s.Compute(sineRequest(16))
	require.NoError(t, err)

	assert.Equal(t, "result", res.Type)
	assert.Equal(t, 16.0, res.SampleRate)
	assert.Equal(t, "rectangular", res.Window)
	assert.Len(t, res.Signal, 16)
	assert.Len(t, res.Spectrum, 16)
	assert.Len(t, res.Reconstructed, 16)
	assert.Less(t, res.MaxError, 1e-9)

	require.NotEmpty(t, res.Peaks)
	assert.Equal(t, 2.0, res.Peaks[0].W)
	assert.InDelta(t, 0.5, res.Peaks[0].R, 1e-12)
	assert.Len(t, res.Peaks, 1, "a pure sine has one positive peak")

	for i, x := range res.Signal {
		assert.InDelta(t, x, res.Reconstructed[i], 1e-9, "sample %d", i)
	}
}

func TestCompute_EngineReuse(t *testing.T) {
	s := newSession(t, Options{})

	_, err := s.Compute(sineRequest(8))
	require.NoError(t, err)
	first := s.engine
	firstProc := s.proc

	_, err = s.Compute(sineRequest(8))
	require.NoError(t, err)
	assert.Same(t, first, s.engine, "same N keeps the engine")
	assert.Same(t, firstProc, s.proc, "same N and rate keep the processor")

	req := sineRequest(8)
	req.SampleRate = 32
	_, err = s.Compute(req)
	require.NoError(t, err)
	assert.Same(t, first, s.engine, "a new rate keeps the engine")
	assert.NotSame(t, firstProc, s.proc)

	_, err = s.Compute(sineRequest(12))
	require.NoError(t, err)
	assert.NotSame(t, first, s.engine, "a new N rebuilds the engine")
	assert.Equal(t, 12, s.engine.Size())
}

func TestCompute_HarmonicSquare(t *testing.T) {
	s := newSession(t, Options{PeakCount: 3, Tolerance: 1e-12})

	res, err := s.Compute(Request{
		Kind:      waveform.Square,
		Mode:      waveform.Harmonic,
		Frequency: 1,
		Amplitude: 1,
		Length:    32,
		Harmonics: 5,
	})
	require.NoError(t, err)

	// Rate derived as 3·5·1.
	assert.Equal(t, 15.0, res.SampleRate)
	require.Len(t, res.Peaks, 3)
	assert.Greater(t, res.Peaks[0].R, res.Peaks[1].R)
	assert.Less(t, res.MaxError, 1e-9)
}

func TestCompute_ExplicitSignal(t *testing.T) {
	s := newSession(t, Options{})
	signal := utils.GenerateComplexWave(32, 32, 2)

	res, err := s.Compute(Request{Signal: signal, Peaks: 2})
	require.NoError(t, err)

	assert.Equal(t, 1.0, res.SampleRate, "no rate with an explicit signal labels bins in cycles per sample")
	assert.Equal(t, signal, res.Signal)
	require.Len(t, res.Peaks, 2)
	assert.Equal(t, 2, res.Peaks[0].K)
	assert.Equal(t, 4, res.Peaks[1].K)
}

func TestCompute_Windowed(t *testing.T) {
	s := newSession(t, Options{Window: analysis.Hann, Tolerance: 1e-12})

	res, err := s.Compute(sineRequest(16))
	require.NoError(t, err)
	assert.Equal(t, "hann", res.Window)
	assert.Less(t, res.MaxError, 1e-9, "error is measured against the tapered input")
}

func TestCompute_SendsFrames(t *testing.T) {
	tr := &utils.MockTransport{}
	s := newSession(t, Options{Transport: tr})

	_, err := s.Compute(sineRequest(8))
	require.NoError(t, err)

	frame, ok := tr.Last().(analysis.Frame)
	require.True(t, ok, "got %T", tr.Last())
	assert.Len(t, frame.Bins, 8)
}

func TestRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Request)
		wantErr string
	}{
		{"valid", func(*Request) {}, ""},
		{"zero length", func(r *Request) { r.Length = 0 }, "length must be in"},
		{"too long", func(r *Request) { r.Length = config.MaxWindowSize + 1 }, "length must be in"},
		{"bad kind", func(r *Request) { r.Kind = waveform.Kind(42) }, "unknown waveform kind"},
		{"bad mode", func(r *Request) { r.Mode = waveform.Mode(7) }, "unknown mode"},
		{"negative rate", func(r *Request) { r.SampleRate = -1 }, "sample_rate"},
		{"underivable rate", func(r *Request) {
			r.SampleRate = 0
			r.Frequency = 0
		}, "derived"},
		{"too many harmonics", func(r *Request) { r.Harmonics = config.MaxHarmonics + 1 }, "harmonics"},
		{"signal length mismatch", func(r *Request) { r.Signal = make([]float64, 4) }, "does not match signal"},
		{"negative peaks", func(r *Request) { r.Peaks = -1 }, "peaks"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := sineRequest(8)
			tt.mutate(&req)
			err := req.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestCompute_InvalidRequest(t *testing.T) {
	s := newSession(t, Options{})
	_, err := s.Compute(Request{Length: 0, Frequency: 1})
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "invalid request"))
	assert.Nil(t, s.engine, "nothing is built for an invalid request")
}

func TestHandle(t *testing.T) {
	s := newSession(t, Options{Defaults: Request{Amplitude: 1, Frequency: 1, Length: 8, SampleRate: 8}})

	reply, err := s.Handle(context.Background(), []byte(`{"kind":"square","frequency":2}`))
	require.NoError(t, err)
	res, ok := reply.(*Result)
	require.True(t, ok)
	assert.Len(t, res.Signal, 8, "missing fields keep the defaults")
	assert.Equal(t, 2.0, res.Peaks[0].W)

	_, err = s.Handle(context.Background(), []byte(`{"kind":"noise"}`))
	assert.ErrorContains(t, err, "failed to decode request")

	_, err = s.Handle(context.Background(), []byte(`{"length":-3}`))
	assert.ErrorContains(t, err, "invalid request")

	// A signal without a length is not checked against the default length.
	reply, err = s.Handle(context.Background(), []byte(`{"signal":[1,1,1,1],"sample_rate":4}`))
	require.NoError(t, err)
	res = reply.(*Result)
	assert.Len(t, res.Spectrum, 4)
	assert.InDelta(t, 1, res.Spectrum.DC().Re, 1e-12)

	_, err = s.Handle(context.Background(), []byte(`{"signal":[1,1,1,1],"length":8}`))
	assert.ErrorContains(t, err, "does not match signal")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Handle(ctx, []byte(`{}`))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRequestValidateWithin(t *testing.T) {
	req := sineRequest(256)
	require.NoError(t, req.Validate())
	assert.ErrorContains(t, req.ValidateWithin(128), "length must be in [1, 128], got 256")
	assert.NoError(t, req.ValidateWithin(256))

	req = sineRequest(config.MaxWindowSize)
	assert.ErrorContains(t, req.ValidateWithin(config.DefaultServeWindowSize), "length must be in")

	signalOnly := Request{Signal: make([]float64, 300)}
	assert.ErrorContains(t, signalOnly.ValidateWithin(128), "got 300")
}

func TestCompute_MaxWindowSize(t *testing.T) {
	s := newSession(t, Options{MaxWindowSize: 16, Defaults: Request{Amplitude: 1, Frequency: 1, SampleRate: 8}})

	_, err := s.Compute(sineRequest(16))
	require.NoError(t, err)

	_, err = s.Handle(context.Background(), []byte(`{"length":8192}`))
	assert.ErrorContains(t, err, "length must be in [1, 16]")
	assert.Equal(t, 16, s.engine.Size(), "the oversized request never builds an engine")

	s = newSession(t, Options{})
	assert.Equal(t, config.MaxWindowSize, s.opts.MaxWindowSize)
}

func TestMaxMessageSize(t *testing.T) {
	signal := make([]float64, 64)
	for i := range signal {
		signal[i] = -0.12345678901234567e-300
	}
	msg, err := json.Marshal(Request{Kind: waveform.Triangular, Mode: waveform.Harmonic, Signal: signal, Length: 64})
	require.NoError(t, err)
	assert.Less(t, int64(len(msg)), MaxMessageSize(64))
}

func TestSessionAsSpectrumProvider(t *testing.T) {
	s := newSession(t, Options{})

	assert.Zero(t, s.Size())
	assert.Zero(t, s.SampleRate())
	assert.Nil(t, s.Magnitudes())
	assert.Nil(t, s.Latest())
	assert.NoError(t, s.MagnitudesInto(nil))
	assert.Error(t, s.MagnitudesInto(make([]float64, 4)))
	assert.Zero(t, s.FrequencyForBin(0))

	_, err := s.Compute(sineRequest(8))
	require.NoError(t, err)

	assert.Equal(t, 8, s.Size())
	assert.Equal(t, 8.0, s.SampleRate())
	assert.Len(t, s.Latest(), 8)
	assert.Equal(t, -4.0, s.FrequencyForBin(0))

	mags := make([]float64, 8)
	require.NoError(t, s.MagnitudesInto(mags))
	assert.Equal(t, s.Magnitudes(), mags)
	assert.InDelta(t, 0.5, mags[6], 1e-12)
}

func TestRequestFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Waveform.Kind = "sawtooth"
	cfg.Waveform.Mode = "harmonic"

	req := RequestFromConfig(cfg)
	assert.Equal(t, waveform.Sawtooth, req.Kind)
	assert.Equal(t, waveform.Harmonic, req.Mode)
	assert.Equal(t, config.DefaultWindowSize, req.Length)
	require.NoError(t, req.Validate())
}
