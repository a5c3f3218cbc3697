package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/fluent/fluent-logger-golang/fluent"
	"github.com/lmittmann/tint"
)

type Config struct {
	// Writer defaults to os.Stdout.
	Writer io.Writer
	Level  string
	JSON   bool
	Fluent FluentConfig
}

type FluentConfig struct {
	Enabled bool
	Host    string
	Port    int
	Tag     string
}

// New builds the application logger. The returned closer flushes and closes
// the fluent client when one is configured.
func New(cfg Config) (*slog.Logger, io.Closer, error) {
	if cfg.Writer == nil {
		cfg.Writer = os.Stdout
	}
	level := ParseLevel(cfg.Level)

	var stdout slog.Handler
	if cfg.JSON {
		stdout = slog.NewJSONHandler(cfg.Writer, &slog.HandlerOptions{Level: level})
	} else {
		stdout = tint.NewHandler(cfg.Writer, &tint.Options{
			Level:      level,
			TimeFormat: "2006-01-02 15:04:05",
		})
	}

	if !cfg.Fluent.Enabled {
		return slog.New(stdout), io.NopCloser(nil), nil
	}

	if cfg.Fluent.Tag == "" {
		return nil, nil, errors.New("fluent tag prefix is required")
	}
	client, err := fluent.New(fluent.Config{
		FluentHost: cfg.Fluent.Host,
		FluentPort: cfg.Fluent.Port,
		TagPrefix:  cfg.Fluent.Tag,
		Async:      true,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create fluent client: %w", err)
	}

	h := fanout{stdout, NewFluentHandler(client, level)}
	return slog.New(h), client, nil
}

// ParseLevel maps a config string to a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// fanout sends every record to each handler that accepts its level.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, l slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, l) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if h.Enabled(ctx, r.Level) {
			if err := h.Handle(ctx, r.Clone()); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}
