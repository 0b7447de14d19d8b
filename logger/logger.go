package logger

import (
	"go.uber.org/zap"
)

// Logger takes in a message and tag pairs.
type Logger interface {
	Debug(msg string, tags ...interface{})
	Info(msg string, tags ...interface{})
	Warn(msg string, tags ...interface{})
	Error(msg string, tags ...interface{})
}

type logger struct{ sugar *zap.SugaredLogger }

// New creates a logger that writes structured JSON lines to stderr.
func New() Logger {
	return &logger{zap.Must(zap.NewProduction()).Sugar()}
}

// NewDevelopment creates a logger with human-readable output and the debug
// level enabled.
func NewDevelopment() Logger {
	return &logger{zap.Must(zap.NewDevelopment()).Sugar()}
}

// NewNop creates a logger that discards everything.
func NewNop() Logger {
	return &logger{zap.NewNop().Sugar()}
}

// Debug creates a debug log entry.
func (l *logger) Debug(msg string, tags ...interface{}) { l.sugar.Debugw(msg, tags...) }

// Info creates an info log entry.
func (l *logger) Info(msg string, tags ...interface{}) { l.sugar.Infow(msg, tags...) }

// Warn creates a warn log entry.
func (l *logger) Warn(msg string, tags ...interface{}) { l.sugar.Warnw(msg, tags...) }

// Error creates an error log entry.
func (l *logger) Error(msg string, tags ...interface{}) { l.sugar.Errorw(msg, tags...) }
