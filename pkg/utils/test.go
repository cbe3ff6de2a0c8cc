// SPDX-License-Identifier: MIT
package utils

import (
	"math"
	"sync"
)

// MockTransport implements the Transport interface for testing. It keeps a
// copy of everything sent to it.
type MockTransport struct {
	mu       sync.Mutex
	messages []any
	closed   bool
	Err      error // Returned from Send when set.
}

// Send stores the data for later inspection instead of transmitting. Float
// slices are copied so later mutation by the caller is not observed.
func (m *MockTransport) Send(data any) error {
	if f, ok := data.([]float64); ok {
		data = append([]float64(nil), f...)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, data)
	return m.Err
}

// Close marks the transport closed.
func (m *MockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Messages returns everything sent so far.
func (m *MockTransport) Messages() []any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]any(nil), m.messages...)
}

// Last returns the most recent message, or nil.
func (m *MockTransport) Last() any {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.messages) == 0 {
		return nil
	}
	return m.messages[len(m.messages)-1]
}

// Closed reports whether Close was called.
func (m *MockTransport) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// GenerateComplexWave returns a fundamental at frequency plus its 2nd and 3rd
// harmonics with amplitudes 0.5, 0.3 and 0.2.
func GenerateComplexWave(size int, sampleRate, frequency float64) []float64 {
	buffer := make([]float64, size)
	for i := range buffer {
		tm := float64(i) / sampleRate
		buffer[i] = math.Sin(2*math.Pi*frequency*tm)*0.5 +
			math.Sin(2*math.Pi*2*frequency*tm)*0.3 +
			math.Sin(2*math.Pi*3*frequency*tm)*0.2
	}
	return buffer
}

// GenerateSineWave returns a unit sine sampled at sampleRate.
func GenerateSineWave(size int, sampleRate, frequency float64) []float64 {
	buffer := make([]float64, size)
	for i := range buffer {
		t := float64(i) / sampleRate
		buffer[i] = math.Sin(2 * math.Pi * frequency * t)
	}
	return buffer
}

// FindPeakBin returns the index of the largest magnitude in
// [startBin, endBin], clamping the range to the slice.
func FindPeakBin(magnitudes []float64, startBin, endBin int) int {
	if len(magnitudes) == 0 {
		return 0
	}

	if startBin < 0 {
		startBin = 0
	}

	if endBin >= len(magnitudes) {
		endBin = len(magnitudes) - 1
	}

	peakBin := startBin
	peakValue := magnitudes[startBin]

	for bin := startBin + 1; bin <= endBin; bin++ {
		if magnitudes[bin] > peakValue {
			peakValue = magnitudes[bin]
			peakBin = bin
		}
	}

	return peakBin
}
