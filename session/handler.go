package session

import (
	"context"
	"fmt"
	"log/slog"
)

// Handler wraps an existing slog.Handler to automatically inject session
// attributes when the context carries a bound session.
type Handler struct {
	inner slog.Handler
}

// NewHandler creates a session-aware handler wrapping the given handler.
func NewHandler(inner slog.Handler) *Handler {
	return &Handler{inner: inner}
}

func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	if s, ok := Bound(ctx); ok {
		r.AddAttrs(slog.String("session_id", s.ID().String()), slog.String("session_name", s.Name()))
	}
	if err := h.inner.Handle(ctx, r); err != nil {
		return fmt.Errorf("session handler: %w", err)
	}
	return nil
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &Handler{inner: h.inner.WithAttrs(attrs)}
}

func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{inner: h.inner.WithGroup(name)}
}
