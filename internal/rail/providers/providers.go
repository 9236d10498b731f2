// Package providers picks the backend implementation for a provider tag.
package providers

import (
	"fmt"
	"time"

	"github.com/example/rail-scheduler/internal/rail"
	"github.com/example/rail-scheduler/internal/rail/korail"
	"github.com/example/rail-scheduler/internal/rail/srt"
)

type Config struct {
	Timeout time.Duration
}

func New(p rail.Provider, cfg Config) (rail.Authenticator, error) {
	switch p {
	case rail.ProviderSRT:
		return srt.New(srt.Config{Timeout: cfg.Timeout}), nil
	case rail.ProviderKorail:
		return korail.New(korail.Config{Timeout: cfg.Timeout}), nil
	}
	return nil, fmt.Errorf("unsupported provider %q", p)
}
