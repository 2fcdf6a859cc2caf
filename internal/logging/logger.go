package logging

import (
	"log/slog"
	"os"
)

// Logger is a thin wrapper around slog.Logger.
// Development mode uses a human-readable text handler at debug level;
// production uses JSON at info level.
type Logger struct {
	*slog.Logger
}

func NewLogger(isDevelopment bool) *Logger {
	var handler slog.Handler
	if isDevelopment {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}

	return &Logger{slog.New(handler)}
}

// WithFields returns a logger that always attaches the given fields.
func (l *Logger) WithFields(fields map[string]any) *Logger {
	args := make([]any, 0, len(fields)*2)
	for key, value := range fields {
		args = append(args, key, value)
	}
	return &Logger{l.Logger.With(args...)}
}
