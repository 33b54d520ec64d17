package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// setupLogging points the global zerolog logger at stdout and, when path is
// set, at a log file that keeps a single rotated history copy. It returns
// the opened file so callers can close it on shutdown.
func setupLogging(path, level string, pretty bool) (*os.File, error) {
	var file *os.File
	writers := io.MultiWriter(os.Stdout)
	if path != "" {
		// Keep only one backup
		_ = os.Remove(path + ".1")
		if _, err := os.Stat(path); err == nil {
			if err := os.Rename(path, path+".1"); err != nil {
				return nil, fmt.Errorf("failed to rotate existing log: %w", err)
			}
		}

		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
		}
		file = f
		writers = io.MultiWriter(os.Stdout, f)
	}

	if pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: writers, TimeFormat: "15:04:05", NoColor: file != nil})
	} else {
		log.Logger = zerolog.New(writers).With().Timestamp().Logger()
	}
	zerolog.DefaultContextLogger = &log.Logger
	zerolog.SetGlobalLevel(parseLogLevel(level))
	return file, nil
}

func parseLogLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}
