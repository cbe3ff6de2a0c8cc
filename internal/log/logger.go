// Package log is a small leveled logger shared by every wavelab package.
// The level is global and atomic so it can be changed from config at startup
// while background loops are already logging.
package log

import (
	"fmt"
	"io"
	stdlog "log"
	"os"
	"strings"
	"sync/atomic"
)

// LogLevel defines the severity of a log message.
type LogLevel uint32

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

// levelNames is indexed by LogLevel.
var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR", "FATAL"}

func (l LogLevel) String() string {
	if int(l) < len(levelNames) {
		return levelNames[l]
	}
	return "UNKNOWN"
}

// tag is the bracketed, fixed-width label written before each message.
func (l LogLevel) tag() string {
	return fmt.Sprintf("[%-5s]", l.String())
}

// ParseLevel converts a case-insensitive name to a LogLevel. "warning" is
// accepted as WARN. Unknown names return LevelInfo and false.
func ParseLevel(levelStr string) (LogLevel, bool) {
	name := strings.ToUpper(strings.TrimSpace(levelStr))
	if name == "WARNING" {
		return LevelWarn, true
	}
	for i, n := range levelNames {
		if n == name {
			return LogLevel(i), true
		}
	}
	return LevelInfo, false
}

var (
	currentLevel atomic.Uint32
	logger       = stdlog.New(os.Stderr, "", stdlog.Ldate|stdlog.Ltime|stdlog.Lmicroseconds)
)

func init() {
	SetLevel(LevelInfo)
}

func SetLevel(level LogLevel) {
	currentLevel.Store(uint32(level))
}

func GetLevel() LogLevel {
	return LogLevel(currentLevel.Load())
}

// Configure sets the level from a name, forcing DEBUG when debug is true.
// Unknown names leave INFO in place and return false.
func Configure(levelStr string, debug bool) bool {
	level, ok := ParseLevel(levelStr)
	if debug {
		level = LevelDebug
	}
	SetLevel(level)
	return ok
}

// SetOutput redirects all log output, e.g. to a buffer in tests.
func SetOutput(w io.Writer) {
	logger.SetOutput(w)
}

// write renders and emits a message when level is enabled. render is only
// called for enabled levels so filtered Debugf calls cost a load and compare.
func write(level LogLevel, render func() string) {
	if level < GetLevel() {
		return
	}
	logger.Printf("%s %s", level.tag(), render())
}

func Debugf(format string, v ...any) {
	write(LevelDebug, func() string { return fmt.Sprintf(format, v...) })
}

func Infof(format string, v ...any) {
	write(LevelInfo, func() string { return fmt.Sprintf(format, v...) })
}

func Warnf(format string, v ...any) {
	write(LevelWarn, func() string { return fmt.Sprintf(format, v...) })
}

func Errorf(format string, v ...any) {
	write(LevelError, func() string { return fmt.Sprintf(format, v...) })
}

// Fatalf logs regardless of the level and exits with status 1.
func Fatalf(format string, v ...any) {
	logger.Fatalf("%s %s", LevelFatal.tag(), fmt.Sprintf(format, v...))
}

func Debug(v ...any) {
	write(LevelDebug, func() string { return fmt.Sprint(v...) })
}

func Info(v ...any) {
	write(LevelInfo, func() string { return fmt.Sprint(v...) })
}

func Warn(v ...any) {
	write(LevelWarn, func() string { return fmt.Sprint(v...) })
}

func Error(v ...any) {
	write(LevelError, func() string { return fmt.Sprint(v...) })
}

// Fatal logs regardless of the level and exits with status 1.
func Fatal(v ...any) {
	logger.Fatalf("%s %s", LevelFatal.tag(), fmt.Sprint(v...))
}
