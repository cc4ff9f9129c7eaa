// internal/logging/logger.go
package logging

import (
	"fmt"
	"log"
	"os"
)

// Logger is the logging contract shared by the dashboard components.
type Logger interface {
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// StdLogger writes level-prefixed lines through a standard library logger.
type StdLogger struct {
	logger *log.Logger
}

func (l *StdLogger) Info(msg string, args ...interface{}) {
	l.logger.Printf("INFO: %s", fmt.Sprintf(msg, args...))
}

func (l *StdLogger) Warn(msg string, args ...interface{}) {
	l.logger.Printf("WARN: %s", fmt.Sprintf(msg, args...))
}

func (l *StdLogger) Error(msg string, args ...interface{}) {
	l.logger.Printf("ERROR: %s", fmt.Sprintf(msg, args...))
}

// NewStdLogger wraps l. A nil l falls back to stderr with the standard flags.
func NewStdLogger(l *log.Logger) *StdLogger {
	if l == nil {
		l = log.New(os.Stderr, "", log.LstdFlags)
	}
	return &StdLogger{logger: l}
}

// Nop discards everything.
type Nop struct{}

func (Nop) Info(string, ...interface{})  {}
func (Nop) Warn(string, ...interface{})  {}
func (Nop) Error(string, ...interface{}) {}
