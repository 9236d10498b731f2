package secrets

import (
	"context"
	"errors"

	"github.com/example/rail-scheduler/internal/crypto"
	"github.com/example/rail-scheduler/internal/db"
)

// Postgres keeps sealed values in the secrets table.
type Postgres struct {
	db   *db.DB
	aead *crypto.AEAD
}

func NewPostgres(d *db.DB, a *crypto.AEAD) *Postgres {
	return &Postgres{db: d, aead: a}
}

func (s *Postgres) Get(ctx context.Context, service, field string) (string, error) {
	var sealed string
	err := s.db.QueryRow(ctx, `SELECT value FROM secrets WHERE service=$1 AND field=$2`, service, field).Scan(&sealed)
	if err != nil {
		err = db.WrapNotFound(err)
		if errors.Is(err, db.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", err
	}
	return s.aead.Open(sealed, key(service, field))
}

func (s *Postgres) Set(ctx context.Context, service, field, value string) error {
	sealed, err := s.aead.Seal(value, key(service, field))
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `
INSERT INTO secrets(service, field, value) VALUES ($1,$2,$3)
ON CONFLICT (service, field) DO UPDATE SET value=EXCLUDED.value, updated_at=now()`,
		service, field, sealed)
	return err
}

func (s *Postgres) Delete(ctx context.Context, service, field string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM secrets WHERE service=$1 AND field=$2`, service, field)
	return err
}
