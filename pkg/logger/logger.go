package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// log stays disabled until Init is called so packages can log from tests without setup
var log = zerolog.Nop()

// Init configures the process-wide logger writing JSON lines to stdout
func Init(serviceName string, level string) {
	InitWithWriter(serviceName, level, os.Stdout)
}

// InitWithWriter configures the process-wide logger with a custom writer
func InitWithWriter(serviceName string, level string, w io.Writer) {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	log = zerolog.New(w).
		Level(lvl).
		With().
		Timestamp().
		Str("service", serviceName).
		Logger()
}

// InitConsole configures a human-readable logger for local development
func InitConsole(serviceName string, level string) {
	InitWithWriter(serviceName, level, zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
}

func Info() *zerolog.Event {
	return log.Info()
}

func Error() *zerolog.Event {
	return log.Error()
}

func Debug() *zerolog.Event {
	return log.Debug()
}

func Warn() *zerolog.Event {
	return log.Warn()
}

func Fatal() *zerolog.Event {
	return log.Fatal()
}

func With() zerolog.Context {
	return log.With()
}

// Logger returns a copy of the process-wide logger
func Logger() zerolog.Logger {
	return log
}

// Printf adapts the logger for libraries that expect a Printf-style sink
type Printf struct{}

func (Printf) Printf(format string, args ...interface{}) {
	log.Info().Msgf(format, args...)
}
