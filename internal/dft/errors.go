// SPDX-License-Identifier: MIT
package dft

import (
	"errors"
	"fmt"
)

// ErrLengthMismatch is matched by every *LengthMismatchError via errors.Is.
var ErrLengthMismatch = errors.New("signal length should match the window size")

// LengthMismatchError reports a sequence whose length differs from the
// engine's window size. It is a usage error and is never retried.
type LengthMismatchError struct {
	Expected int `json:"expected"`
	Actual   int `json:"actual"`
}

func (e *LengthMismatchError) Error() string {
	return fmt.Sprintf("%s (expected %d, got %d)", ErrLengthMismatch, e.Expected, e.Actual)
}

// Is reports whether target is ErrLengthMismatch.
func (e *LengthMismatchError) Is(target error) bool {
	return target == ErrLengthMismatch
}

func checkLength(expected, actual int) error {
	if expected != actual {
		return &LengthMismatchError{Expected: expected, Actual: actual}
	}
	return nil
}
