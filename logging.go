// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package pixstream

import (
	"fmt"
	"log"
	"os"
	"strings"

	logging "github.com/op/go-logging"
)

// Field represents a structured logging field with a key-value pair.
type Field struct {
	Key   string
	Value interface{}
}

// Logger defines the interface for structured logging throughout the decoder.
type Logger interface {
	// Debug logs debug-level messages with optional structured fields.
	Debug(msg string, fields ...Field)

	// Info logs info-level messages with optional structured fields.
	Info(msg string, fields ...Field)

	// Warn logs warning-level messages with optional structured fields.
	Warn(msg string, fields ...Field)

	// Error logs error-level messages with optional structured fields.
	Error(msg string, fields ...Field)

	// With creates a new logger instance with the provided fields pre-populated.
	With(fields ...Field) Logger
}

// NoOpLogger is a Logger implementation that discards all log messages.
type NoOpLogger struct{}

// Debug discards debug-level log messages.
func (l *NoOpLogger) Debug(msg string, fields ...Field) {
}

// Info discards info-level log messages.
func (l *NoOpLogger) Info(msg string, fields ...Field) {
}

// Warn discards warning-level log messages.
func (l *NoOpLogger) Warn(msg string, fields ...Field) {
}

// Error discards error-level log messages.
func (l *NoOpLogger) Error(msg string, fields ...Field) {
}

// With returns a new NoOpLogger instance (ignores fields).
func (l *NoOpLogger) With(fields ...Field) Logger {
	return &NoOpLogger{}
}

// StandardLogger wraps Go's standard log package to implement the Logger interface.
type StandardLogger struct {
	// Logger is the underlying standard library logger.
	Logger *log.Logger

	contextFields []Field
}

func (l *StandardLogger) ensureLogger() *log.Logger {
	if l.Logger == nil {
		l.Logger = log.New(os.Stderr, "PIXSTREAM: ", log.LstdFlags|log.Lshortfile)
	}
	return l.Logger
}

// Debug logs a debug-level message with structured fields.
func (l *StandardLogger) Debug(msg string, fields ...Field) {
	l.ensureLogger().Print(formatMessage("[DEBUG]", msg, l.contextFields, fields))
}

// Info logs an info-level message with structured fields.
func (l *StandardLogger) Info(msg string, fields ...Field) {
	l.ensureLogger().Print(formatMessage("[INFO]", msg, l.contextFields, fields))
}

// Warn logs a warning-level message with structured fields.
func (l *StandardLogger) Warn(msg string, fields ...Field) {
	l.ensureLogger().Print(formatMessage("[WARN]", msg, l.contextFields, fields))
}

// Error logs an error-level message with structured fields.
func (l *StandardLogger) Error(msg string, fields ...Field) {
	l.ensureLogger().Print(formatMessage("[ERROR]", msg, l.contextFields, fields))
}

// With creates a new StandardLogger instance with additional context fields.
func (l *StandardLogger) With(fields ...Field) Logger {
	return &StandardLogger{
		Logger:        l.Logger,
		contextFields: mergeFields(l.contextFields, fields),
	}
}

// GoLoggingLogger adapts a github.com/op/go-logging logger to the Logger interface.
// Level filtering and output formatting are left to the go-logging backend.
type GoLoggingLogger struct {
	// Logger is the underlying go-logging logger.
	Logger *logging.Logger

	contextFields []Field
}

// NewGoLoggingLogger returns a Logger backed by the go-logging logger for module.
func NewGoLoggingLogger(module string) *GoLoggingLogger {
	return &GoLoggingLogger{Logger: logging.MustGetLogger(module)}
}

// Debug logs a debug-level message with structured fields.
func (l *GoLoggingLogger) Debug(msg string, fields ...Field) {
	l.Logger.Debug(formatMessage("", msg, l.contextFields, fields))
}

// Info logs an info-level message with structured fields.
func (l *GoLoggingLogger) Info(msg string, fields ...Field) {
	l.Logger.Info(formatMessage("", msg, l.contextFields, fields))
}

// Warn logs a warning-level message with structured fields.
func (l *GoLoggingLogger) Warn(msg string, fields ...Field) {
	l.Logger.Warning(formatMessage("", msg, l.contextFields, fields))
}

// Error logs an error-level message with structured fields.
func (l *GoLoggingLogger) Error(msg string, fields ...Field) {
	l.Logger.Error(formatMessage("", msg, l.contextFields, fields))
}

// With creates a new GoLoggingLogger sharing the backend with additional context fields.
func (l *GoLoggingLogger) With(fields ...Field) Logger {
	return &GoLoggingLogger{
		Logger:        l.Logger,
		contextFields: mergeFields(l.contextFields, fields),
	}
}

func mergeFields(base, extra []Field) []Field {
	merged := make([]Field, 0, len(base)+len(extra))
	merged = append(merged, base...)
	return append(merged, extra...)
}

// formatMessage renders "level msg k=v ...". An empty level is omitted.
func formatMessage(level, msg string, contextFields, fields []Field) string {
	var b strings.Builder
	if level != "" {
		b.WriteString(level)
		b.WriteByte(' ')
	}
	b.WriteString(msg)
	for _, field := range contextFields {
		b.WriteString(" " + field.Key + "=" + formatFieldValue(field.Value))
	}
	for _, field := range fields {
		b.WriteString(" " + field.Key + "=" + formatFieldValue(field.Value))
	}
	return b.String()
}

// formatFieldValue converts a field value to a string representation for logging.
// Strings containing spaces are quoted, errors are quoted, other values use default formatting.
func formatFieldValue(value interface{}) string {
	switch v := value.(type) {
	case string:
		if containsSpace(v) {
			return `"` + v + `"`
		}
		return v
	case error:
		return `"` + v.Error() + `"`
	default:
		return fmt.Sprintf("%v", v)
	}
}

func containsSpace(s string) bool {
	return strings.ContainsAny(s, " \t\n\r")
}
