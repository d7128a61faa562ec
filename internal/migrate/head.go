package migrate

import (
	"context"

	"github.com/uptrace/bun"
)

// DefaultVersionTable stores the head revision.
const DefaultVersionTable = "migration_version"

type headStore struct {
	table string
}

func (h headStore) ensure(ctx context.Context, db bun.IDB) error {
	_, err := db.ExecContext(ctx,
		"CREATE TABLE IF NOT EXISTS ? (version_num VARCHAR(64) NOT NULL PRIMARY KEY)",
		bun.Ident(h.table))
	return err
}

func (h headStore) read(ctx context.Context, db bun.IDB) (string, error) {
	var revisions []string
	if err := db.NewRaw("SELECT version_num FROM ? LIMIT 2", bun.Ident(h.table)).Scan(ctx, &revisions); err != nil {
		return "", err
	}
	switch len(revisions) {
	case 0:
		return "", nil
	case 1:
		return revisions[0], nil
	default:
		return "", ErrInvalidGraph
	}
}

// write replaces the head; "" clears it.
func (h headStore) write(ctx context.Context, db bun.IDB, revision string) error {
	if _, err := db.ExecContext(ctx, "DELETE FROM ?", bun.Ident(h.table)); err != nil {
		return err
	}
	if revision == "" {
		return nil
	}
	_, err := db.ExecContext(ctx, "INSERT INTO ? (version_num) VALUES (?)", bun.Ident(h.table), revision)
	return err
}
