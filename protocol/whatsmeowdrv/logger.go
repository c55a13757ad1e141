package whatsmeowdrv

import (
	"github.com/rs/zerolog"
	waLog "go.mau.fi/whatsmeow/util/log"
)

var _ waLog.Logger = (*waLogger)(nil)

// waLogger bridges whatsmeow's logger interface onto zerolog.
type waLogger struct {
	log zerolog.Logger
}

func newWALogger(log zerolog.Logger) *waLogger {
	return &waLogger{log: log}
}

func (l *waLogger) Errorf(msg string, args ...interface{}) {
	l.log.Error().Msgf(msg, args...)
}

func (l *waLogger) Warnf(msg string, args ...interface{}) {
	l.log.Warn().Msgf(msg, args...)
}

func (l *waLogger) Infof(msg string, args ...interface{}) {
	l.log.Info().Msgf(msg, args...)
}

func (l *waLogger) Debugf(msg string, args ...interface{}) {
	l.log.Debug().Msgf(msg, args...)
}

func (l *waLogger) Sub(module string) waLog.Logger {
	return &waLogger{log: l.log.With().Str("module", module).Logger()}
}
