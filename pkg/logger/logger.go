package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
)

func Set(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

func Get(ctx context.Context) (l *slog.Logger) {
	if v := ctx.Value(loggerKey); v != nil {
		if l = v.(*slog.Logger); l != nil {
			return
		}
	}
	l = slog.Default()
	return
}

type loggerKeyType string

const loggerKey loggerKeyType = "loggerKey"

const (
	FormatText = "text"
	FormatJSON = "json"
)

// New builds a logger writing to `w`. `level` is any value accepted by
// `slog.Level.UnmarshalText` (e.g., `debug`, `info`, `error`) and
// `format` is one of `text` or `json`.
func New(level, format string, w io.Writer) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("parsing log level: %w", err)
	}
	opts := slog.HandlerOptions{Level: lvl}
	switch format {
	case FormatText:
		return slog.New(slog.NewTextHandler(w, &opts)), nil
	case FormatJSON:
		return slog.New(slog.NewJSONHandler(w, &opts)), nil
	default:
		return nil, fmt.Errorf(
			"invalid log format `%s`: wanted `%s` or `%s`",
			format,
			FormatText,
			FormatJSON,
		)
	}
}
