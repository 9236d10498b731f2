// Package migrate applies the embedded schema files in name order.
package migrate

import (
	"context"
	"embed"
	"fmt"
	"sort"
	"strings"

	"github.com/example/rail-scheduler/internal/db"
)

//go:embed *.sql
var fs embed.FS

// Files lists the embedded migrations in the order Up applies them.
func Files() ([]string, error) {
	entries, err := fs.ReadDir(".")
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

// Up applies every migration not yet recorded in schema_migrations and
// returns the names it applied.
func Up(ctx context.Context, d *db.DB) ([]string, error) {
	files, err := Files()
	if err != nil {
		return nil, err
	}
	if _, err := d.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (version TEXT PRIMARY KEY, applied_at TIMESTAMPTZ NOT NULL DEFAULT now())`); err != nil {
		return nil, err
	}

	var applied []string
	for _, f := range files {
		var done bool
		if err := d.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version=$1)`, f).Scan(&done); err != nil {
			return applied, err
		}
		if done {
			continue
		}
		b, err := fs.ReadFile(f)
		if err != nil {
			return applied, err
		}
		if _, err := d.Exec(ctx, string(b)); err != nil {
			return applied, fmt.Errorf("apply %s: %w", f, err)
		}
		if _, err := d.Exec(ctx, `INSERT INTO schema_migrations(version) VALUES ($1)`, f); err != nil {
			return applied, err
		}
		applied = append(applied, f)
	}
	return applied, nil
}
