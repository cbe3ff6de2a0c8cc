// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	"wavelab/internal/analysis"
	applog "wavelab/internal/log"
	"wavelab/internal/waveform"

	"gopkg.in/yaml.v3"
)

// Config represents the main application configuration structure, loaded from YAML.
type Config struct {
	Debug     bool            `yaml:"debug"`             // Enable debug logging.
	LogLevel  string          `yaml:"log_level"`         // Logging level ("debug", "info", "warn", "error").
	Command   string          `yaml:"command,omitempty"` // Sub-command selected on the command line.
	Waveform  WaveformConfig  `yaml:"waveform"`          // Signal generation settings.
	Transform TransformConfig `yaml:"transform"`         // DFT engine settings.
	Transport TransportConfig `yaml:"transport"`         // WebSocket and UDP settings.
	Export    ExportConfig    `yaml:"export"`            // WAV import/export settings.
}

// WaveformConfig holds the generator parameters.
type WaveformConfig struct {
	Kind       string  `yaml:"kind"`        // sine, square, triangular, sawtooth, custom.
	Mode       string  `yaml:"mode"`        // reference (single sine) or harmonic (Fourier series).
	Frequency  float64 `yaml:"frequency"`   // Cycles per unit time.
	Amplitude  float64 `yaml:"amplitude"`   // Peak value.
	Phase      float64 `yaml:"phase"`       // Radians.
	SampleRate float64 `yaml:"sample_rate"` // Samples per unit time, 0 derives 3·harmonics·frequency.
	Harmonics  int     `yaml:"harmonics"`   // Series terms in harmonic mode.
}

// TransformConfig holds the engine parameters.
type TransformConfig struct {
	WindowSize int     `yaml:"window_size"` // N, also the generated signal length.
	Tolerance  float64 `yaml:"tolerance"`   // Components below this are snapped to zero.
	Window     string  `yaml:"window"`      // Taper applied before the transform (rectangular = none).
}

// TransportConfig holds settings related to sending spectra over the network.
type TransportConfig struct {
	WSAddress        string        `yaml:"ws_address"`         // Listen address for the WebSocket service.
	MaxWindowSize    int           `yaml:"max_window_size"`    // Largest request length served over WebSocket.
	UDPEnabled       bool          `yaml:"udp_enabled"`        // Enable sending magnitudes over UDP.
	UDPTargetAddress string        `yaml:"udp_target_address"` // Target address and port for UDP packets.
	UDPSendInterval  time.Duration `yaml:"udp_send_interval"`  // Interval between sending UDP packets.
}

// ExportConfig holds WAV file settings.
type ExportConfig struct {
	Input    string `yaml:"input"`     // Mono WAV file used as the signal source instead of the generator.
	Output   string `yaml:"output"`    // WAV file the generated signal is written to.
	BitDepth int    `yaml:"bit_depth"` // Bit depth for exported audio.
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel: DefaultLogLevel,
		Command:  DefaultCommand,
		Waveform: WaveformConfig{
			Kind:       DefaultKind,
			Mode:       DefaultMode,
			Frequency:  DefaultFrequency,
			Amplitude:  DefaultAmplitude,
			Phase:      DefaultPhase,
			SampleRate: DefaultSampleRate,
			Harmonics:  DefaultHarmonics,
		},
		Transform: TransformConfig{
			WindowSize: DefaultWindowSize,
			Tolerance:  DefaultTolerance,
			Window:     DefaultWindow,
		},
		Transport: TransportConfig{
			WSAddress:        DefaultWSAddress,
			MaxWindowSize:    DefaultServeWindowSize,
			UDPEnabled:       false,
			UDPTargetAddress: DefaultUDPTargetAddress,
			UDPSendInterval:  DefaultUDPSendInterval,
		},
		Export: ExportConfig{
			BitDepth: DefaultBitDepth,
		},
	}
}

// LoadConfig loads configuration from a YAML file specified by path. If path is empty,
// it searches default locations ("config.yaml"). If no file is found, it uses built-in
// defaults. After loading defaults or from file, it applies environment variable
// overrides and validates the final configuration.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		candidates := []string{
			"config.yaml",
			"configs/wavelab.yaml",
		}
		for _, candidate := range candidates {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		applog.Debugf("configuration: loaded %s", path)
	}

	// Apply environment variable overrides AFTER loading from file.
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks every section and returns all problems joined together.
func (c *Config) Validate() error {
	var errs []error

	if _, ok := applog.ParseLevel(c.LogLevel); !ok {
		errs = append(errs, fmt.Errorf("log_level '%s' is not recognized", c.LogLevel))
	}

	// Waveform
	if _, err := waveform.ParseKind(c.Waveform.Kind); err != nil {
		errs = append(errs, fmt.Errorf("waveform.kind: %w", err))
	}
	if _, err := waveform.ParseMode(c.Waveform.Mode); err != nil {
		errs = append(errs, fmt.Errorf("waveform.mode: %w", err))
	}
	if !isFinite(c.Waveform.Frequency) || !isFinite(c.Waveform.Amplitude) || !isFinite(c.Waveform.Phase) {
		errs = append(errs, errors.New("waveform.frequency, amplitude and phase must be finite"))
	}
	if c.Waveform.SampleRate < 0 || !isFinite(c.Waveform.SampleRate) {
		errs = append(errs, fmt.Errorf("waveform.sample_rate must be non-negative, got %g", c.Waveform.SampleRate))
	}
	if c.Waveform.SampleRate == 0 && c.Waveform.Frequency <= 0 {
		errs = append(errs, errors.New("waveform.sample_rate can only be derived from a positive frequency"))
	}
	if c.Waveform.Harmonics < 0 || c.Waveform.Harmonics > MaxHarmonics {
		errs = append(errs, fmt.Errorf("waveform.harmonics must be in [0, %d], got %d", MaxHarmonics, c.Waveform.Harmonics))
	}

	// Transform
	if c.Transform.WindowSize < MinWindowSize || c.Transform.WindowSize > MaxWindowSize {
		errs = append(errs, fmt.Errorf("transform.window_size must be in [%d, %d], got %d",
			MinWindowSize, MaxWindowSize, c.Transform.WindowSize))
	}
	if c.Transform.Tolerance < 0 || !isFinite(c.Transform.Tolerance) {
		errs = append(errs, fmt.Errorf("transform.tolerance must be non-negative, got %g", c.Transform.Tolerance))
	}
	if _, err := analysis.ParseWindowFunc(c.Transform.Window); err != nil {
		errs = append(errs, fmt.Errorf("transform.window: %w", err))
	}

	// Transport
	if c.Transport.MaxWindowSize < MinWindowSize || c.Transport.MaxWindowSize > MaxWindowSize {
		errs = append(errs, fmt.Errorf("transport.max_window_size must be in [%d, %d], got %d",
			MinWindowSize, MaxWindowSize, c.Transport.MaxWindowSize))
	}
	if c.Transport.UDPEnabled {
		if c.Transport.UDPTargetAddress == "" {
			errs = append(errs, errors.New("transport.udp_target_address must be set when UDP is enabled"))
		}
		if c.Transport.UDPSendInterval <= 0 {
			errs = append(errs, errors.New("transport.udp_send_interval must be positive when UDP is enabled"))
		}
	}

	// Export
	if !supportedBitDepths[c.Export.BitDepth] {
		errs = append(errs, fmt.Errorf("export.bit_depth %d is not supported", c.Export.BitDepth))
	}

	return errors.Join(errs...)
}

// applyEnvOverrides lets a handful of ENV_* variables override file values,
// mainly for container deployments of the serve command.
func (cfg *Config) applyEnvOverrides() {
	// ENV_DEBUG
	if val, ok := os.LookupEnv("ENV_DEBUG"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			cfg.Debug = bVal
			applog.Infof("configuration: Overriding debug from env: %v", bVal)
		}
	}
	// ENV_LOG_LEVEL
	if val, ok := os.LookupEnv("ENV_LOG_LEVEL"); ok {
		cfg.LogLevel = val
		applog.Infof("configuration: Overriding log_level from env: %s", val)
	}

	// ENV_WS_{...}

	// ENV_WS_ADDRESS
	if val, ok := os.LookupEnv("ENV_WS_ADDRESS"); ok {
		cfg.Transport.WSAddress = val
		applog.Infof("configuration: Overriding transport.ws_address from env: %s", val)
	}

	// ENV_WS_MAX_WINDOW_SIZE
	if val, ok := os.LookupEnv("ENV_WS_MAX_WINDOW_SIZE"); ok {
		if n, err := strconv.Atoi(val); err == nil {
			cfg.Transport.MaxWindowSize = n
			applog.Infof("configuration: Overriding transport.max_window_size from env: %d", n)
		}
	}

	// ENV_UDP_{...}

	// ENV_UDP_ENABLED
	if val, ok := os.LookupEnv("ENV_UDP_ENABLED"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			cfg.Transport.UDPEnabled = bVal
			applog.Infof("configuration: Overriding transport.udp_enabled from env: %v", bVal)
		}
	}
	// ENV_UDP_TARGET_ADDRESS
	if val, ok := os.LookupEnv("ENV_UDP_TARGET_ADDRESS"); ok {
		cfg.Transport.UDPTargetAddress = val
		applog.Infof("configuration: Overriding transport.udp_target_address from env: %s", val)
	}
	// ENV_UDP_SEND_INTERVAL
	if val, ok := os.LookupEnv("ENV_UDP_SEND_INTERVAL"); ok {
		if dur, err := time.ParseDuration(val); err == nil {
			cfg.Transport.UDPSendInterval = dur
			applog.Infof("configuration: Overriding transport.udp_send_interval from env: %s", dur)
		}
	}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
