package database

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stockagent/stockagent/migrations"
)

// Script is one embedded up-migration.
type Script struct {
	Name string
	SQL  string
}

// UpScripts returns the embedded up-migrations in version order.
func UpScripts() ([]Script, error) {
	return upScripts(migrations.FS)
}

func upScripts(fsys fs.FS) ([]Script, error) {
	names, err := fs.Glob(fsys, "*.up.sql")
	if err != nil {
		return nil, fmt.Errorf("listing migrations: %w", err)
	}
	sort.Strings(names)

	scripts := make([]Script, 0, len(names))
	for _, name := range names {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}
		scripts = append(scripts, Script{Name: strings.TrimSuffix(name, ".up.sql"), SQL: string(data)})
	}
	return scripts, nil
}

// ApplySchema executes the raw up-scripts in a single transaction, the way
// psql -f would. There are no existence guards, so applying it to a database
// that already has the tables fails with ErrSchemaExists and changes nothing.
func ApplySchema(ctx context.Context, pool *pgxpool.Pool) error {
	scripts, err := UpScripts()
	if err != nil {
		return err
	}

	return pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		for _, s := range scripts {
			if _, err := tx.Exec(ctx, s.SQL); err != nil {
				return fmt.Errorf("applying %s: %w", s.Name, Classify(err))
			}
			slog.Info("schema script applied", "script", s.Name)
		}
		return nil
	})
}
