package logsvc

import (
	"context"
	"log/slog"
)

// Handler adapts the logging service into a slog.Handler, so the process's
// ambient logging can be routed through the asynchronous dispatch path via
// slog.SetDefault.
func (s *Service) Handler() slog.Handler {
	return &serviceHandler{svc: s}
}

type serviceHandler struct {
	svc    *Service
	attrs  []slog.Attr
	prefix string
}

func (h *serviceHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.svc.level
}

func (h *serviceHandler) Handle(ctx context.Context, r slog.Record) error {
	attrs := make([]slog.Attr, 0, len(h.attrs)+r.NumAttrs())
	attrs = append(attrs, h.attrs...)
	r.Attrs(func(a slog.Attr) bool {
		attrs = append(attrs, h.qualify(a))
		return true
	})
	h.svc.Write(ctx, r.Level, "slog", r.Message, attrs...)
	return nil
}

func (h *serviceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	for _, a := range attrs {
		merged = append(merged, h.qualify(a))
	}
	return &serviceHandler{svc: h.svc, attrs: merged, prefix: h.prefix}
}

func (h *serviceHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &serviceHandler{svc: h.svc, attrs: h.attrs, prefix: h.prefix + name + "."}
}

func (h *serviceHandler) qualify(a slog.Attr) slog.Attr {
	if h.prefix == "" {
		return a
	}
	return slog.Attr{Key: h.prefix + a.Key, Value: a.Value}
}
