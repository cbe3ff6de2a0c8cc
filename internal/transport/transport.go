// SPDX-License-Identifier: MIT
package transport

import "errors"

// ErrClosed is returned by Send after Close.
var ErrClosed = errors.New("transport is closed")

// Transport defines a generic interface for sending processed data or events.
// Implementations should be thread-safe.
type Transport interface {
	Send(data any) error
	Close() error
}

// Multi fans every Send out to several transports. The first error is
// returned but every transport is still attempted.
type Multi []Transport

func (m Multi) Send(data any) error {
	var first error
	for _, t := range m {
		if err := t.Send(data); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m Multi) Close() error {
	var errs []error
	for _, t := range m {
		errs = append(errs, t.Close())
	}
	return errors.Join(errs...)
}

var _ Transport = Multi(nil)
