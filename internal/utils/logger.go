package utils

import (
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	VerboseLogging = false
	logger         = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "2006/01/02 15:04:05"}).
			With().Timestamp().Logger()
)

// Options controls where log output goes. Console is disabled by the
// terminal client so log lines do not draw over the UI.
type Options struct {
	Verbose bool
	Console bool
	File    string
}

// Setup rebuilds the shared logger and routes the standard library logger
// through it, so tagged log.Printf calls end up in the same sinks.
func Setup(opts Options) error {
	var writers []io.Writer
	if opts.Console {
		writers = append(writers, zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "2006/01/02 15:04:05"})
	}
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0755); err != nil {
			return err
		}
		writers = append(writers, &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    50,
			MaxBackups: 3,
			MaxAge:     28,
			Compress:   true,
		})
	}

	var out io.Writer = io.Discard
	if len(writers) > 0 {
		out = zerolog.MultiLevelWriter(writers...)
	}

	level := zerolog.InfoLevel
	if opts.Verbose {
		level = zerolog.DebugLevel
	}

	logger = zerolog.New(out).Level(level).With().Timestamp().Logger()
	SetVerboseLogging(opts.Verbose)

	log.SetFlags(0)
	log.SetOutput(logger)
	return nil
}

// Logger returns the shared logger for callers that want structured fields.
func Logger() *zerolog.Logger {
	return &logger
}

// SetVerboseLogging sets the global verbose logging flag
func SetVerboseLogging(verbose bool) {
	VerboseLogging = verbose
}

// LogInfo logs informational messages only if verbose logging is enabled
func LogInfo(format string, args ...interface{}) {
	if VerboseLogging {
		logger.Info().Msgf(format, args...)
	}
}

// LogError logs error messages (always shown)
func LogError(format string, args ...interface{}) {
	logger.Error().Msgf(format, args...)
}

// LogWarning logs warning messages (always shown)
func LogWarning(format string, args ...interface{}) {
	logger.Warn().Msgf(format, args...)
}

// LogSuccess logs success messages (always shown)
func LogSuccess(format string, args ...interface{}) {
	logger.Info().Bool("success", true).Msgf(format, args...)
}
