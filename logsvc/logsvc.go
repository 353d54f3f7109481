package logsvc

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	skerrors "github.com/jvilloa/servicekit/errors"
	"github.com/jvilloa/servicekit/registry"
	"github.com/jvilloa/servicekit/service"
	"github.com/jvilloa/servicekit/session"
)

// ServiceName is the fixed name of the logging collaborator.
const ServiceName = "log"

// Record is one log entry flowing through the service.
type Record struct {
	Time      time.Time
	Level     slog.Level
	Tag       string
	Message   string
	Attrs     []slog.Attr
	SessionID uuid.UUID
}

// Consumer is a log sink registered with the service.
type Consumer interface {
	service.Consumer
	Print(r Record)
}

// Service is the logging collaborator. It is bound to the registry's log
// slot instead of being registered normally.
type Service struct {
	*service.Base

	level slog.Level

	mu       sync.RWMutex
	printers map[string]Consumer
}

// Option customizes the logging service.
type Option func(*Service)

// WithLevel sets the minimum level a record needs to be dispatched.
func WithLevel(level slog.Level) Option {
	return func(s *Service) { s.level = level }
}

// New bootstraps the logging collaborator into the given registry.
func New(reg *registry.Registry, opts ...Option) (*Service, error) {
	s := &Service{
		level:    slog.LevelInfo,
		printers: make(map[string]Consumer),
	}
	for _, opt := range opts {
		opt(s)
	}

	base, err := service.New(reg, ServiceName, 0, service.AsLogService())
	if err != nil {
		return nil, err
	}
	s.Base = base
	return s, nil
}

// RegisterConsumer implements service.Handler. The consumer must be a
// printer.
func (s *Service) RegisterConsumer(c service.Consumer) error {
	printer, ok := c.(Consumer)
	if !ok {
		return skerrors.Validation("log consumer must implement Print").WithContext("consumer", c.ID())
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.printers[printer.ID()] = printer
	return nil
}

// UnregisterConsumer implements service.Handler.
func (s *Service) UnregisterConsumer(c service.Consumer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.printers, c.ID())
	return nil
}

// Write dispatches a record to every registered printer on the service's
// own pool, so logging never blocks the caller. Records below the minimum
// level, and records arriving after the pool has shut down, are dropped.
func (s *Service) Write(ctx context.Context, level slog.Level, tag, message string, attrs ...slog.Attr) {
	if level < s.level {
		return
	}
	r := Record{
		Time:      time.Now(),
		Level:     level,
		Tag:       tag,
		Message:   message,
		Attrs:     attrs,
		SessionID: session.FromContext(ctx).ID(),
	}
	// Best effort: a rejected submission means shutdown is already tearing
	// the pool down.
	_, _ = s.Fork(ctx, func(context.Context) error {
		s.dispatch(r)
		return nil
	})
}

func (s *Service) dispatch(r Record) {
	s.mu.RLock()
	printers := make([]Consumer, 0, len(s.printers))
	for _, p := range s.printers {
		printers = append(printers, p)
	}
	s.mu.RUnlock()

	for _, p := range printers {
		p.Print(r)
	}
}
