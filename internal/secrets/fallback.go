package secrets

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// Fallback routes calls to Primary while it is available and to Secondary
// otherwise. A Primary failure other than ErrNotFound marks it unavailable
// for the rest of the process.
type Fallback struct {
	primary   Store
	secondary Store
	logger    *slog.Logger

	mu        sync.Mutex
	available bool
	warned    bool
}

// NewFallback starts with the given availability; pass false when the
// primary could not be opened at all.
func NewFallback(primary Store, available bool, secondary Store, logger *slog.Logger) *Fallback {
	if logger == nil {
		logger = slog.Default()
	}
	if secondary == nil {
		secondary = unavailable{}
	}
	return &Fallback{primary: primary, secondary: secondary, logger: logger, available: available && primary != nil}
}

func (f *Fallback) Available() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.available
}

func (f *Fallback) pick() Store {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.available {
		return f.primary
	}
	if !f.warned {
		f.warned = true
		f.logger.Warn("secret store unavailable, using the local encrypted file")
	}
	return f.secondary
}

// degrade marks the primary unavailable and reports whether the call
// should be retried on the secondary.
func (f *Fallback) degrade(s Store, err error) bool {
	if err == nil || errors.Is(err, ErrNotFound) || s != f.primary {
		return false
	}
	f.mu.Lock()
	f.available = false
	f.mu.Unlock()
	f.logger.Warn("secret store failed", "error", err)
	return true
}

func (f *Fallback) Get(ctx context.Context, service, field string) (string, error) {
	s := f.pick()
	v, err := s.Get(ctx, service, field)
	if f.degrade(s, err) {
		return f.pick().Get(ctx, service, field)
	}
	return v, err
}

func (f *Fallback) Set(ctx context.Context, service, field, value string) error {
	s := f.pick()
	err := s.Set(ctx, service, field, value)
	if f.degrade(s, err) {
		return f.pick().Set(ctx, service, field, value)
	}
	return err
}

func (f *Fallback) Delete(ctx context.Context, service, field string) error {
	s := f.pick()
	err := s.Delete(ctx, service, field)
	if f.degrade(s, err) {
		return f.pick().Delete(ctx, service, field)
	}
	return err
}

type unavailable struct{}

var errUnavailable = errors.New("no secret store available")

func (unavailable) Get(context.Context, string, string) (string, error) { return "", errUnavailable }
func (unavailable) Set(context.Context, string, string, string) error   { return errUnavailable }
func (unavailable) Delete(context.Context, string, string) error       { return errUnavailable }
