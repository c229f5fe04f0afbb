package core

import (
	"log/slog"
	"os"

	"github.com/encodeous/tint"
	slogmulti "github.com/samber/slog-multi"
)

// NewLogger builds the coloured stderr logger, fanned out to any extra handlers.
func NewLogger(level slog.Level, prefix string, extra ...slog.Handler) *slog.Logger {
	handlers := make([]slog.Handler, 0, 1+len(extra))
	handlers = append(handlers,
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:        level,
			AddSource:    false,
			CustomPrefix: prefix,
			ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
				if attr.Key == "time" {
					return slog.Attr{}
				}
				return attr
			},
		}))
	handlers = append(handlers, extra...)
	return slog.New(slogmulti.Fanout(handlers...))
}
