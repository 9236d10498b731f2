// Package secrets stores login, notification and payment settings.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/example/rail-scheduler/internal/rail"
)

var ErrNotFound = errors.New("secret not found")

// Store is a flat (service, field) → value map.
type Store interface {
	Get(ctx context.Context, service, field string) (string, error)
	Set(ctx context.Context, service, field, value string) error
	Delete(ctx context.Context, service, field string) error
}

const (
	ServiceTelegram = "telegram"
	ServiceCard     = "card"
)

// Memory is an in-process Store.
type Memory struct {
	mu sync.Mutex
	m  map[string]string
}

func NewMemory() *Memory { return &Memory{m: map[string]string{}} }

func (s *Memory) Get(_ context.Context, service, field string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.m[key(service, field)]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (s *Memory) Set(_ context.Context, service, field, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key(service, field)] = value
	return nil
}

func (s *Memory) Delete(_ context.Context, service, field string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key(service, field))
	return nil
}

func key(service, field string) string { return service + "/" + field }

func getAll(ctx context.Context, s Store, service string, fields ...string) ([]string, error) {
	out := make([]string, len(fields))
	for i, f := range fields {
		v, err := s.Get(ctx, service, f)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", service, f, err)
		}
		out[i] = v
	}
	return out, nil
}

func setAll(ctx context.Context, s Store, service string, kv ...string) error {
	for i := 0; i+1 < len(kv); i += 2 {
		if err := s.Set(ctx, service, kv[i], kv[i+1]); err != nil {
			return fmt.Errorf("%s %s: %w", service, kv[i], err)
		}
	}
	return nil
}

// Credentials returns the stored login for p. Only logins that once
// succeeded are returned.
func Credentials(ctx context.Context, s Store, p rail.Provider) (rail.Credentials, error) {
	v, err := getAll(ctx, s, string(p), "id", "pass", "ok")
	if err != nil {
		return rail.Credentials{}, err
	}
	if v[2] != "1" {
		return rail.Credentials{}, fmt.Errorf("%s login was never verified: %w", p, ErrNotFound)
	}
	return rail.Credentials{ID: v[0], Password: v[1]}, nil
}

// SetCredentials stores a login. verified marks it as having succeeded.
func SetCredentials(ctx context.Context, s Store, p rail.Provider, c rail.Credentials, verified bool) error {
	ok := "0"
	if verified {
		ok = "1"
	}
	return setAll(ctx, s, string(p), "id", c.ID, "pass", c.Password, "ok", ok)
}

type TelegramConfig struct {
	Token  string
	ChatID string
}

func Telegram(ctx context.Context, s Store) (TelegramConfig, error) {
	v, err := getAll(ctx, s, ServiceTelegram, "token", "chat_id", "ok")
	if err != nil {
		return TelegramConfig{}, err
	}
	if v[2] != "1" {
		return TelegramConfig{}, fmt.Errorf("telegram was never verified: %w", ErrNotFound)
	}
	return TelegramConfig{Token: v[0], ChatID: v[1]}, nil
}

func SetTelegram(ctx context.Context, s Store, c TelegramConfig, verified bool) error {
	ok := "0"
	if verified {
		ok = "1"
	}
	return setAll(ctx, s, ServiceTelegram, "token", c.Token, "chat_id", c.ChatID, "ok", ok)
}

func Card(ctx context.Context, s Store) (rail.Card, error) {
	v, err := getAll(ctx, s, ServiceCard, "number", "password", "birthday", "expire")
	if err != nil {
		return rail.Card{}, err
	}
	return rail.Card{Number: v[0], Password: v[1], Birthday: v[2], Expire: v[3]}, nil
}

func SetCard(ctx context.Context, s Store, c rail.Card) error {
	return setAll(ctx, s, ServiceCard, "number", c.Number, "password", c.Password, "birthday", c.Birthday, "expire", c.Expire)
}

// Forget deletes every field of service.
func Forget(ctx context.Context, s Store, service string, fields ...string) error {
	var errs []error
	for _, f := range fields {
		if err := s.Delete(ctx, service, f); err != nil && !errors.Is(err, ErrNotFound) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Fields of each service, for Forget.
var (
	CredentialFields = []string{"id", "pass", "ok"}
	TelegramFields   = []string{"token", "chat_id", "ok"}
	CardFields       = []string{"number", "password", "birthday", "expire"}
)
