package logging

import (
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/sonroyaalmerol/kcaldavd/internal/storage"
)

func New(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger().Level(lvl)
	return logger
}

// StoreLogger adapts a zerolog.Logger to storage.Logger's four-sink shape.
type StoreLogger struct {
	Logger zerolog.Logger
}

func (l StoreLogger) Debug(format string, args ...any) { l.Logger.Debug().Msgf(format, args...) }
func (l StoreLogger) Info(format string, args ...any)  { l.Logger.Info().Msgf(format, args...) }
func (l StoreLogger) Err(format string, args ...any)   { l.Logger.Error().Msgf(format, args...) }
func (l StoreLogger) Errx(err error, format string, args ...any) {
	l.Logger.Error().Err(err).Msgf(format, args...)
}

var _ storage.Logger = StoreLogger{}
