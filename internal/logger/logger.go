package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"book-rag/internal/config"
)

// Setup configures the global zerolog logger. The returned closer flushes the
// rotating log file, if one was configured.
func Setup(cfg config.LogConfig) io.Closer {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var console io.Writer = os.Stdout
	if cfg.Format != "json" {
		console = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	var (
		out    io.Writer = console
		closer io.Closer = nopCloser{}
	)
	if cfg.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    10, // megabytes
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		}
		out = zerolog.MultiLevelWriter(console, rotator)
		closer = rotator
	}

	log.Logger = zerolog.New(out).With().Timestamp().Caller().Logger()
	if err != nil {
		log.Warn().Str("level", cfg.Level).Msg("Unknown log level, using info")
	}
	return closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
