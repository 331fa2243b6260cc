package drestclient

import (
	"io"

	"github.com/rs/zerolog"

	"github.com/dynamic-rest/drest-go/pkg/drest"
)

// zerologLogger adapts a zerolog.Logger to the drest.Logger interface.
type zerologLogger struct {
	logger zerolog.Logger
}

// NewZerologLogger builds a drest.Logger that writes structured JSON
// lines to w at the given level. Without a configured logger the client
// logs nothing, so this is opt-in.
func NewZerologLogger(w io.Writer, level zerolog.Level) drest.Logger {
	logger := zerolog.New(w).Level(level).With().Timestamp().Logger()

	return &zerologLogger{logger: logger}
}

// NewZerologAdapter wraps an existing zerolog.Logger.
func NewZerologAdapter(logger zerolog.Logger) drest.Logger {
	return &zerologLogger{logger: logger}
}

func (l *zerologLogger) Debug(msg string, fields map[string]interface{}) {
	l.logger.Debug().Fields(fields).Msg(msg)
}

func (l *zerologLogger) Info(msg string, fields map[string]interface{}) {
	l.logger.Info().Fields(fields).Msg(msg)
}

func (l *zerologLogger) Warn(msg string, fields map[string]interface{}) {
	l.logger.Warn().Fields(fields).Msg(msg)
}

func (l *zerologLogger) Error(msg string, fields map[string]interface{}) {
	l.logger.Error().Fields(fields).Msg(msg)
}
