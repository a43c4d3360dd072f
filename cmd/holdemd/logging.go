package main

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/lox/holdemtables/internal/config"
)

// newLogger writes to stderr and, when a log file is configured, to a
// rotated file as well. The returned file is nil without one.
func newLogger(s *config.ServerSettings) (*log.Logger, *lumberjack.Logger) {
	var w io.Writer = os.Stderr
	var file *lumberjack.Logger
	if s.LogFile != "" {
		file = &lumberjack.Logger{
			Filename:   s.LogFile,
			MaxSize:    s.LogMaxSizeMB,
			MaxAge:     s.LogMaxAgeDays,
			MaxBackups: s.LogMaxBackups,
			Compress:   s.LogCompress,
		}
		w = io.MultiWriter(os.Stderr, file)
	}

	logger := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
	})
	level, err := log.ParseLevel(s.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	logger.SetLevel(level)
	return logger, file
}
