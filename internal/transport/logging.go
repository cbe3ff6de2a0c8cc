package transport

import (
	"fmt"
	"sync/atomic"

	applog "wavelab/internal/log"
)

// LoggingTransport implements the Transport interface by logging a one-line
// summary of each message at debug level.
type LoggingTransport struct {
	sent atomic.Uint64
}

// NewLoggingTransport creates a new LoggingTransport instance.
func NewLoggingTransport() *LoggingTransport {
	applog.Debugf("Transport: Using LoggingTransport")
	return &LoggingTransport{}
}

// Send logs the received data. Values implementing fmt.Stringer are logged
// through String, everything else by type only.
func (lt *LoggingTransport) Send(data any) error {
	n := lt.sent.Add(1)
	if s, ok := data.(fmt.Stringer); ok {
		applog.Debugf("LOG_TRANSPORT: #%d %s", n, s.String())
	} else {
		applog.Debugf("LOG_TRANSPORT: #%d received %T", n, data)
	}
	return nil // Logging transport never fails to "send"
}

// Sent returns the number of messages passed to Send.
func (lt *LoggingTransport) Sent() uint64 {
	return lt.sent.Load()
}

// Close is a no-op for LoggingTransport.
func (lt *LoggingTransport) Close() error {
	applog.Debugf("LOG_TRANSPORT: Close called after %d messages.", lt.sent.Load())
	return nil
}

// Ensure LoggingTransport satisfies the interface at compile time.
var _ Transport = (*LoggingTransport)(nil)
