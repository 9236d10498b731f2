// Package notify delivers run notifications.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Sink delivers a text message.
type Sink interface {
	Send(ctx context.Context, text string) error
}

const defaultTelegramURL = "https://api.telegram.org"

// Telegram posts messages to one chat through the Bot API.
type Telegram struct {
	Token  string
	ChatID string

	// BaseURL overrides the Bot API host.
	BaseURL string
	hc      *http.Client
}

func NewTelegram(token, chatID string) *Telegram {
	return &Telegram{
		Token:   token,
		ChatID:  chatID,
		BaseURL: defaultTelegramURL,
		hc:      &http.Client{Timeout: 10 * time.Second},
	}
}

func (t *Telegram) Send(ctx context.Context, text string) error {
	if t.Token == "" || t.ChatID == "" {
		return errors.New("telegram: token and chat id are required")
	}
	payload, err := json.Marshal(map[string]string{"chat_id": t.ChatID, "text": text})
	if err != nil {
		return err
	}
	endpoint := strings.TrimRight(t.BaseURL, "/") + "/bot" + t.Token + "/sendMessage"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	hc := t.hc
	if hc == nil {
		hc = http.DefaultClient
	}
	res, err := hc.Do(req)
	if err != nil {
		// The URL carries the bot token.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return fmt.Errorf("telegram: %w", err)
	}
	defer res.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(res.Body, 64<<10))

	var r struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
	}
	_ = json.Unmarshal(body, &r)
	if res.StatusCode >= 400 || !r.OK {
		if r.Description != "" {
			return fmt.Errorf("telegram: %s (status=%d)", r.Description, res.StatusCode)
		}
		return fmt.Errorf("telegram: send failed (status=%d)", res.StatusCode)
	}
	return nil
}

// Log writes notifications to a logger. It is the sink when no chat is
// configured.
type Log struct {
	Logger *slog.Logger
}

func (l Log) Send(ctx context.Context, text string) error {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "notification", "text", text)
	return nil
}

// Multi sends to every sink and joins their errors.
type Multi []Sink

func (m Multi) Send(ctx context.Context, text string) error {
	var errs []error
	for _, s := range m {
		if err := s.Send(ctx, text); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
