package utils

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger provides leveled logging throughout the application.
// Messages keep the "[component] text" convention; zerolog does the formatting.
type Logger struct {
	zlog zerolog.Logger
}

// NewLoggerWith creates a Logger writing to out. format is "console" or "json";
// level is one of debug, info, warn, error.
func NewLoggerWith(out io.Writer, level, format string) *Logger {
	if format != "json" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "2006-01-02 15:04:05"}
	}

	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	zerolog.TimeFieldFormat = time.RFC3339
	zlog := zerolog.New(out).Level(lvl).With().Timestamp().Logger()
	return &Logger{zlog: zlog}
}

// NewNopLogger returns a Logger that discards everything. Used by tests.
func NewNopLogger() *Logger {
	return &Logger{zlog: zerolog.Nop()}
}

func (l *Logger) Info(format string, args ...any) {
	l.zlog.Info().Msg(fmt.Sprintf(format, args...))
}

func (l *Logger) Warn(format string, args ...any) {
	l.zlog.Warn().Msg(fmt.Sprintf(format, args...))
}

func (l *Logger) Error(format string, args ...any) {
	l.zlog.Error().Msg(fmt.Sprintf(format, args...))
}

func (l *Logger) Debug(format string, args ...any) {
	l.zlog.Debug().Msg(fmt.Sprintf(format, args...))
}
