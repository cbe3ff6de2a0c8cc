// SPDX-License-Identifier: MIT
package waveform

import (
	"fmt"
	"strings"
)

// Kind selects the periodic waveform to generate.
type Kind int

const (
	Sine Kind = iota
	Square
	Triangular
	Sawtooth
	Custom
)

// String returns the lower-case name of the Kind.
func (k Kind) String() string {
	switch k {
	case Sine:
		return "sine"
	case Square:
		return "square"
	case Triangular:
		return "triangular"
	case Sawtooth:
		return "sawtooth"
	case Custom:
		return "custom"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if k < Sine || k > Custom {
		return nil, fmt.Errorf("unknown waveform kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseKind converts a name (case-insensitive) to a Kind. It returns Sine and
// an error if the name is unknown.
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sine", "sin":
		return Sine, nil
	case "square":
		return Square, nil
	case "triangular", "triangle":
		return Triangular, nil
	case "sawtooth", "saw":
		return Sawtooth, nil
	case "custom":
		return Custom, nil
	default:
		return Sine, fmt.Errorf("unknown waveform kind: '%s'", name)
	}
}

// Mode selects how a Kind is rendered into samples.
type Mode int

const (
	// Reference renders every kind with the single sine formula.
	Reference Mode = iota
	// Harmonic renders each kind as a truncated Fourier series.
	Harmonic
)

// String returns the lower-case name of the Mode.
func (m Mode) String() string {
	switch m {
	case Reference:
		return "reference"
	case Harmonic:
		return "harmonic"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	if m != Reference && m != Harmonic {
		return nil, fmt.Errorf("unknown synthesis mode %d", int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ParseMode converts a name (case-insensitive) to a Mode. The empty string
// selects Reference.
func ParseMode(name string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "reference", "sine":
		return Reference, nil
	case "harmonic", "harmonics", "fourier":
		return Harmonic, nil
	default:
		return Reference, fmt.Errorf("unknown synthesis mode: '%s'", name)
	}
}
