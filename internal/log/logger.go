// Package log is the structured logger every component takes.
package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	LogFormatPlain = "plain"
	LogFormatText  = "text"
	LogFormatJSON  = "json"

	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

// Logger is what any component should take.
type Logger interface {
	Debug(msg string, keyvals ...interface{})
	Info(msg string, keyvals ...interface{})
	Error(msg string, keyvals ...interface{})

	With(keyvals ...interface{}) Logger
}

type defaultLogger struct {
	zerolog.Logger
}

var _ Logger = defaultLogger{}

// NewDefaultLogger returns a logger writing to stderr in format at level.
func NewDefaultLogger(format, level string) (Logger, error) {
	return NewLogger(os.Stderr, format, level)
}

// NewLogger returns a logger writing to w. The plain and text formats are
// human readable, json emits one object per line.
func NewLogger(w io.Writer, format, level string) (Logger, error) {
	var out io.Writer
	switch strings.ToLower(format) {
	case LogFormatPlain, LogFormatText:
		out = zerolog.ConsoleWriter{
			Out:        w,
			NoColor:    true,
			TimeFormat: time.RFC3339,
			FormatLevel: func(i interface{}) string {
				if ll, ok := i.(string); ok {
					return strings.ToUpper(ll)
				}
				return "????"
			},
		}
	case LogFormatJSON:
		out = w
	default:
		return nil, fmt.Errorf("unsupported log format: %s", format)
	}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("failed to parse log level (%s): %w", level, err)
	}

	return defaultLogger{Logger: zerolog.New(out).Level(lvl).With().Timestamp().Logger()}, nil
}

// MustNewDefaultLogger is NewDefaultLogger that panics on a bad format or level.
func MustNewDefaultLogger(format, level string) Logger {
	l, err := NewDefaultLogger(format, level)
	if err != nil {
		panic(err)
	}
	return l
}

// NewNopLogger discards everything.
func NewNopLogger() Logger {
	return defaultLogger{Logger: zerolog.Nop()}
}

func (l defaultLogger) Info(msg string, keyVals ...interface{}) {
	l.Logger.Info().Fields(getLogFields(keyVals...)).Msg(msg)
}

func (l defaultLogger) Error(msg string, keyVals ...interface{}) {
	l.Logger.Error().Fields(getLogFields(keyVals...)).Msg(msg)
}

func (l defaultLogger) Debug(msg string, keyVals ...interface{}) {
	l.Logger.Debug().Fields(getLogFields(keyVals...)).Msg(msg)
}

func (l defaultLogger) With(keyVals ...interface{}) Logger {
	return defaultLogger{Logger: l.Logger.With().Fields(getLogFields(keyVals...)).Logger()}
}

// Object logs v as a nested object under key, for values implementing
// zerolog.LogObjectMarshaler. It returns false for other loggers.
func Object(l Logger, msg, key string, v zerolog.LogObjectMarshaler) bool {
	dl, ok := l.(defaultLogger)
	if !ok {
		return false
	}
	dl.Logger.Info().Object(key, v).Msg(msg)
	return true
}

func getLogFields(keyVals ...interface{}) map[string]interface{} {
	if len(keyVals)%2 != 0 {
		return nil
	}

	fields := make(map[string]interface{}, len(keyVals)/2)
	for i := 0; i < len(keyVals); i += 2 {
		fields[fmt.Sprint(keyVals[i])] = keyVals[i+1]
	}

	return fields
}
