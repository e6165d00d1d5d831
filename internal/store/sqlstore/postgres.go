package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/KaramelBytes/trendteller/internal/store"
)

func init() {
	store.Register("postgres", func(ctx context.Context, cfg store.Config) (store.Store, error) {
		return OpenPostgres(ctx, cfg.DSN)
	})
}

// OpenPostgres connects through the pgx database/sql driver and migrates.
func OpenPostgres(ctx context.Context, dsn string) (*Repo, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres store needs a connection string")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := RunMigrations(db, "postgres"); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Repo{db: db, placeholder: dollar}, nil
}
