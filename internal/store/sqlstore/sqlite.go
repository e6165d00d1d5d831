package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/KaramelBytes/trendteller/internal/store"
)

func init() {
	store.Register("sqlite", func(ctx context.Context, cfg store.Config) (store.Store, error) {
		return OpenSQLite(ctx, cfg.DSN)
	})
}

// OpenSQLite opens (or creates) a SQLite database file and migrates it.
func OpenSQLite(ctx context.Context, dsn string) (*Repo, error) {
	if dsn == "" {
		return nil, fmt.Errorf("sqlite store needs a database path")
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// one writer at a time avoids SQLITE_BUSY on concurrent creates
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := RunMigrations(db, "sqlite3"); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Repo{db: db, placeholder: question}, nil
}
