package logsvc

import (
	"context"
	"io"
	"log/slog"

	"github.com/google/uuid"
)

// SlogPrinter is a printer consumer writing records through a plain
// slog.Handler (text or json), mirroring the process logging configuration.
type SlogPrinter struct {
	id      string
	handler slog.Handler
}

// NewSlogPrinter creates a printer writing to w. level and format follow the
// configuration surface: "debug"/"info"/"warn"/"error" and "text"/"json".
func NewSlogPrinter(id string, w io.Writer, level, format string) *SlogPrinter {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return &SlogPrinter{id: id, handler: handler}
}

// ID implements service.Consumer.
func (p *SlogPrinter) ID() string {
	return p.id
}

// Print implements Consumer.
func (p *SlogPrinter) Print(r Record) {
	if !p.handler.Enabled(context.Background(), r.Level) {
		return
	}
	rec := slog.NewRecord(r.Time, r.Level, r.Message, 0)
	rec.AddAttrs(slog.String("tag", r.Tag))
	if r.SessionID != uuid.Nil {
		rec.AddAttrs(slog.String("session_id", r.SessionID.String()))
	}
	rec.AddAttrs(r.Attrs...)
	_ = p.handler.Handle(context.Background(), rec)
}

// ParseLevel maps a configured level name to a slog.Level, defaulting to
// info.
func ParseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
