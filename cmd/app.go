package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/example/rail-scheduler/internal/config"
	"github.com/example/rail-scheduler/internal/crypto"
	"github.com/example/rail-scheduler/internal/db"
	"github.com/example/rail-scheduler/internal/migrate"
	"github.com/example/rail-scheduler/internal/notify"
	"github.com/example/rail-scheduler/internal/operator"
	"github.com/example/rail-scheduler/internal/rail"
	"github.com/example/rail-scheduler/internal/rail/providers"
	"github.com/example/rail-scheduler/internal/runs"
	"github.com/example/rail-scheduler/internal/secrets"
)

// app is the state shared by commands. The database and the secret store
// are opened on first use.
type app struct {
	debug    bool
	envFiles []string

	cfg    config.Config
	logger *slog.Logger

	db    *db.DB
	store *secrets.Fallback
}

func (a *app) init() error {
	cfg, err := config.Load(a.envFiles...)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = newLogger(cfg.LogLevel, a.debug)
	slog.SetDefault(a.logger)
	return nil
}

func (a *app) close() {
	if a.db != nil {
		a.db.Close()
	}
}

// database opens Postgres when DATABASE_URL is set. A nil DB with a nil
// error means no database is configured.
func (a *app) database(ctx context.Context) (*db.DB, error) {
	if a.db != nil || a.cfg.DatabaseURL == "" {
		return a.db, nil
	}
	d, err := db.Open(ctx, a.cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	applied, err := migrate.Up(ctx, d)
	if err != nil {
		d.Close()
		return nil, err
	}
	for _, name := range applied {
		a.logger.Info("applied migration", "name", name)
	}
	a.db = d
	return d, nil
}

// secrets returns the store: Postgres first when configured, the
// encrypted file otherwise or when Postgres fails.
func (a *app) secrets(ctx context.Context) (*secrets.Fallback, error) {
	if a.store != nil {
		return a.store, nil
	}

	var primary secrets.Store
	available := false
	if a.cfg.DatabaseURL != "" {
		d, err := a.database(ctx)
		if err != nil {
			a.logger.Warn("database unavailable, using local secret file", "error", err)
		} else {
			aead, err := crypto.FromBase64(a.cfg.SecretsKey)
			if err != nil {
				return nil, fmt.Errorf("SECRETS_ENC_KEY: %w", err)
			}
			primary, available = secrets.NewPostgres(d, aead), true
		}
	}

	file, err := a.openFile(available)
	if err != nil {
		return nil, err
	}
	a.store = secrets.NewFallback(primary, available, file, a.logger)
	return a.store, nil
}

// openFile opens the local store. When Postgres is the primary the file is
// only needed if it already exists, so a missing passphrase is not fatal.
func (a *app) openFile(havePrimary bool) (secrets.Store, error) {
	path := a.cfg.SecretsFile()
	if havePrimary {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) && a.cfg.Passphrase == "" {
			return nil, nil
		}
	}
	pass := a.cfg.Passphrase
	if pass == "" {
		var err error
		pass, err = operator.ReadPassword(fmt.Sprintf("passphrase for %s: ", path))
		if err != nil {
			return nil, err
		}
	}
	if err := os.MkdirAll(a.cfg.Home, 0o700); err != nil {
		return nil, err
	}
	f, err := secrets.OpenFile(path, pass)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (a *app) runs(ctx context.Context) (*runs.Repo, error) {
	d, err := a.database(ctx)
	if err != nil || d == nil {
		return nil, err
	}
	return runs.NewRepo(d), nil
}

func (a *app) authenticator(p rail.Provider) (rail.Authenticator, error) {
	return providers.New(p, providers.Config{Timeout: a.cfg.HTTPTimeout})
}

// login authenticates with the stored credentials for p.
func (a *app) login(ctx context.Context, p rail.Provider) (rail.Authenticator, rail.Credentials, rail.Session, error) {
	store, err := a.secrets(ctx)
	if err != nil {
		return nil, rail.Credentials{}, nil, err
	}
	creds, err := secrets.Credentials(ctx, store, p)
	if errors.Is(err, secrets.ErrNotFound) {
		return nil, rail.Credentials{}, nil, fmt.Errorf("no verified %s login; run `railsched login %s` first", p, p)
	}
	if err != nil {
		return nil, rail.Credentials{}, nil, err
	}
	auth, err := a.authenticator(p)
	if err != nil {
		return nil, rail.Credentials{}, nil, err
	}
	sess, err := auth.Authenticate(ctx, creds)
	if err != nil {
		return nil, rail.Credentials{}, nil, err
	}
	return auth, creds, sess, nil
}

// sink is the Telegram chat when one is configured, plus the log.
func (a *app) sink(ctx context.Context) notify.Sink {
	logSink := notify.Log{Logger: a.logger}
	store, err := a.secrets(ctx)
	if err != nil {
		return logSink
	}
	tg, err := secrets.Telegram(ctx, store)
	if err != nil {
		if !errors.Is(err, secrets.ErrNotFound) {
			a.logger.Warn("telegram settings unreadable", "error", err)
		}
		return logSink
	}
	return notify.Multi{logSink, notify.NewTelegram(tg.Token, tg.ChatID)}
}
