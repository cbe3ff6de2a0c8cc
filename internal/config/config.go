package config

import "time"

// Core configuration constants that define the boundaries and defaults
// for waveform generation and the transform engine.
const (
	// Waveform defaults
	DefaultKind       = "sine"      // Waveform kind
	DefaultMode       = "reference" // Single sine formula for every kind
	DefaultFrequency  = 5.0         // Cycles per unit time
	DefaultAmplitude  = 1.0         // Peak value
	DefaultPhase      = 0.0         // Radians
	DefaultSampleRate = 64.0        // Samples per unit time
	DefaultHarmonics  = 15          // Series terms in harmonic mode

	// Transform defaults
	DefaultWindowSize = 64            // Samples per transform (N)
	DefaultTolerance  = 1e-3          // Zero-snapping threshold
	DefaultWindow     = "rectangular" // No tapering, plain DFT

	// Service defaults
	DefaultLogLevel         = "info"
	DefaultWSAddress        = ":8080"
	DefaultUDPTargetAddress = "127.0.0.1:9090"
	DefaultUDPSendInterval  = 33 * time.Millisecond // ~30Hz
	DefaultServeWindowSize  = 2048                  // Request cap for serve, basis is 64 MiB
	DefaultBitDepth         = 16
	DefaultCommand          = "" // No command by default

	// Limits
	MinWindowSize = 1
	MaxWindowSize = 8192 // Basis is N×N complex values
	MaxHarmonics  = 1000
)

// Supported WAV bit depths for export.
var supportedBitDepths = map[int]bool{16: true, 24: true, 32: true}
