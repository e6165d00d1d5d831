// Package sqlstore implements the entity store on SQL databases. Counters and
// records live in two tables created by embedded goose migrations.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/KaramelBytes/trendteller/internal/store"
)

// Repo is a store.Store over database/sql.
type Repo struct {
	db          *sql.DB
	placeholder func(n int) string
}

var _ store.Store = (*Repo)(nil)

func question(int) string { return "?" }
func dollar(n int) string { return fmt.Sprintf("$%d", n) }

// rebind rewrites ? placeholders for the target dialect.
func (r *Repo) rebind(q string) string {
	var b strings.Builder
	n := 0
	for _, ch := range q {
		if ch == '?' {
			n++
			b.WriteString(r.placeholder(n))
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}

const reserveSQL = `INSERT INTO entity_counters (kind, last_id) VALUES (?, 1)
ON CONFLICT (kind) DO UPDATE SET last_id = entity_counters.last_id + 1
RETURNING last_id`

// Create reserves the next id and stores the body in one transaction, so a
// failing build rolls the counter back.
func (r *Repo) Create(ctx context.Context, kind store.Kind, build store.BuildFunc) (id int64, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = tx.QueryRowContext(ctx, r.rebind(reserveSQL), string(kind)).Scan(&id); err != nil {
		return 0, fmt.Errorf("reserve %s id: %w", kind, err)
	}

	body, err := build(id)
	if err != nil {
		return 0, err
	}

	q := r.rebind(`INSERT INTO entities (kind, id, body) VALUES (?, ?, ?)`)
	if _, err = tx.ExecContext(ctx, q, string(kind), id, string(body)); err != nil {
		return 0, fmt.Errorf("insert %s/%d: %w", kind, id, err)
	}
	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

// Reserve bumps the counter in its own statement; the counter row is not held
// while the caller prepares the body.
func (r *Repo) Reserve(ctx context.Context, kind store.Kind) (int64, error) {
	var id int64
	if err := r.db.QueryRowContext(ctx, r.rebind(reserveSQL), string(kind)).Scan(&id); err != nil {
		return 0, fmt.Errorf("reserve %s id: %w", kind, err)
	}
	return id, nil
}

func (r *Repo) Put(ctx context.Context, kind store.Kind, id int64, body []byte) error {
	var last int64
	q := r.rebind(`SELECT last_id FROM entity_counters WHERE kind = ?`)
	err := r.db.QueryRowContext(ctx, q, string(kind)).Scan(&last)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("put %s/%d: %w", kind, id, err)
	}
	if id < 1 || id > last {
		return fmt.Errorf("put %s/%d: %w", kind, id, store.ErrNotReserved)
	}
	var n int
	q = r.rebind(`SELECT COUNT(*) FROM entities WHERE kind = ? AND id = ?`)
	if err := r.db.QueryRowContext(ctx, q, string(kind), id).Scan(&n); err != nil {
		return fmt.Errorf("put %s/%d: %w", kind, id, err)
	}
	if n > 0 {
		return fmt.Errorf("put %s/%d: %w", kind, id, store.ErrExists)
	}
	q = r.rebind(`INSERT INTO entities (kind, id, body) VALUES (?, ?, ?)`)
	if _, err := r.db.ExecContext(ctx, q, string(kind), id, string(body)); err != nil {
		return fmt.Errorf("insert %s/%d: %w", kind, id, err)
	}
	return nil
}

func (r *Repo) Get(ctx context.Context, kind store.Kind, id int64) (store.Record, bool, error) {
	var body string
	q := r.rebind(`SELECT body FROM entities WHERE kind = ? AND id = ?`)
	err := r.db.QueryRowContext(ctx, q, string(kind), id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Record{}, false, nil
	}
	if err != nil {
		return store.Record{}, false, fmt.Errorf("get %s/%d: %w", kind, id, err)
	}
	return store.Record{ID: id, Body: []byte(body)}, true, nil
}

func (r *Repo) List(ctx context.Context, kind store.Kind) ([]store.Record, error) {
	q := r.rebind(`SELECT id, body FROM entities WHERE kind = ? ORDER BY id`)
	rows, err := r.db.QueryContext(ctx, q, string(kind))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}
	defer rows.Close()

	out := []store.Record{}
	for rows.Next() {
		var (
			id   int64
			body string
		)
		if err := rows.Scan(&id, &body); err != nil {
			return nil, fmt.Errorf("scan %s: %w", kind, err)
		}
		out = append(out, store.Record{ID: id, Body: []byte(body)})
	}
	return out, rows.Err()
}

func (r *Repo) Delete(ctx context.Context, kind store.Kind, id int64) (bool, error) {
	q := r.rebind(`DELETE FROM entities WHERE kind = ? AND id = ?`)
	res, err := r.db.ExecContext(ctx, q, string(kind), id)
	if err != nil {
		return false, fmt.Errorf("delete %s/%d: %w", kind, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete %s/%d: %w", kind, id, err)
	}
	return n > 0, nil
}

func (r *Repo) Close() error { return r.db.Close() }
