package notify

import (
	"context"
	"errors"
	"log/slog"

	"github.com/alejandrodnm/outcomex/internal/domain"
	"github.com/alejandrodnm/outcomex/internal/ports"
)

var _ ports.EventSink = (*Logger)(nil)

// Logger publica cada evento como una línea de slog.
type Logger struct {
	log *slog.Logger
}

// NewLogger crea un Logger; con l == nil usa slog.Default().
func NewLogger(l *slog.Logger) *Logger {
	if l == nil {
		l = slog.Default()
	}
	return &Logger{log: l}
}

func (l *Logger) Publish(ctx context.Context, events []domain.Event) error {
	for _, ev := range events {
		attrs := make([]slog.Attr, 0, len(ev.Attrs)+4)
		attrs = append(attrs,
			slog.String("event_id", ev.ID),
			slog.String("actor", ev.Actor.Hex()),
		)
		if !ev.Market.IsZero() {
			attrs = append(attrs, slog.String("market", ev.Market.Hex()))
		}
		for k, v := range ev.Attrs {
			attrs = append(attrs, slog.String(k, v))
		}
		l.log.LogAttrs(ctx, slog.LevelInfo, string(ev.Kind), attrs...)
	}
	return nil
}

// Multi reparte los eventos entre varios sinks. Un sink que falla no impide
// que los demás reciban los eventos; los errores se devuelven unidos.
type Multi []ports.EventSink

func (m Multi) Publish(ctx context.Context, events []domain.Event) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Publish(ctx, events); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
