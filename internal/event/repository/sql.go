package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"geointel/internal/db"
	"geointel/internal/event/domain"
)

const eventColumns = "id, occurred_at, latitude, longitude, actor_group, region, note"

// SQLRepository implements Repository over database/sql for both supported dialects.
// Queries are written with ? placeholders and rebound for Postgres.
type SQLRepository struct {
	db      *sql.DB
	dialect db.Dialect
}

// NewSQLRepository returns a repository for conn speaking the given dialect.
func NewSQLRepository(conn *sql.DB, dialect db.Dialect) *SQLRepository {
	return &SQLRepository{db: conn, dialect: dialect}
}

// NewPostgresRepository returns a repository backed by a Postgres connection.
func NewPostgresRepository(conn *sql.DB) *SQLRepository {
	return NewSQLRepository(conn, db.Postgres)
}

// NewSQLiteRepository returns a repository backed by a SQLite connection.
func NewSQLiteRepository(conn *sql.DB) *SQLRepository {
	return NewSQLRepository(conn, db.SQLite)
}

func (r *SQLRepository) SaveBatch(ctx context.Context, events []domain.Event) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, r.rebind(
		"INSERT INTO gps_events ("+eventColumns+") VALUES (?, ?, ?, ?, ?, ?, ?) ON CONFLICT (id) DO NOTHING"))
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	inserted := 0
	for i := range events {
		e := &events[i]
		res, err := stmt.ExecContext(ctx, e.ID, r.timeArg(e.Date), e.Latitude, e.Longitude, e.Group, e.Region, e.Note)
		if err != nil {
			return 0, fmt.Errorf("insert event %s: %w", e.ID, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return inserted, nil
}

func (r *SQLRepository) List(ctx context.Context, q Query) ([]domain.Event, error) {
	where, args := r.where(q)
	query := "SELECT " + eventColumns + " FROM gps_events" + where + " ORDER BY occurred_at, id"
	if q.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, q.Limit, max(q.Offset, 0))
	}
	rows, err := r.db.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Event
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(&e.ID, timeScanner{&e.Date}, &e.Latitude, &e.Longitude, &e.Group, &e.Region, &e.Note); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *SQLRepository) Count(ctx context.Context, q Query) (int64, error) {
	where, args := r.where(q)
	var n int64
	err := r.db.QueryRowContext(ctx, r.rebind("SELECT COUNT(*) FROM gps_events"+where), args...).Scan(&n)
	return n, err
}

func (r *SQLRepository) Options(ctx context.Context) (*Options, error) {
	opts := &Options{}
	var err error
	if opts.Groups, err = r.distinct(ctx, "actor_group"); err != nil {
		return nil, err
	}
	if opts.Regions, err = r.distinct(ctx, "region"); err != nil {
		return nil, err
	}
	var first, last time.Time
	err = r.db.QueryRowContext(ctx, "SELECT COUNT(*), MIN(occurred_at), MAX(occurred_at) FROM gps_events").
		Scan(&opts.Total, timeScanner{&first}, timeScanner{&last})
	if err != nil {
		return nil, err
	}
	opts.First, opts.Last = first, last
	return opts, nil
}

func (r *SQLRepository) DeleteAll(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM gps_events")
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *SQLRepository) distinct(ctx context.Context, column string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT DISTINCT "+column+" FROM gps_events ORDER BY "+column)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []string{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SQLRepository) where(q Query) (string, []any) {
	var conds []string
	var args []any
	in := func(column string, values []string) {
		if len(values) == 0 {
			return
		}
		marks := strings.TrimSuffix(strings.Repeat("?, ", len(values)), ", ")
		conds = append(conds, column+" IN ("+marks+")")
		for _, v := range values {
			args = append(args, v)
		}
	}
	in("actor_group", q.Groups)
	in("region", q.Regions)
	if !q.From.IsZero() {
		conds = append(conds, "occurred_at >= ?")
		args = append(args, r.timeArg(q.From))
	}
	if !q.To.IsZero() {
		conds = append(conds, "occurred_at <= ?")
		args = append(args, r.timeArg(q.To))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// rebind rewrites ? placeholders to $1, $2, ... for Postgres.
func (r *SQLRepository) rebind(query string) string {
	if r.dialect != db.Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// timeArg encodes t for the occurred_at column: timestamptz on Postgres, unix
// microseconds on SQLite.
func (r *SQLRepository) timeArg(t time.Time) any {
	t = t.UTC().Truncate(time.Microsecond)
	if r.dialect == db.SQLite {
		return t.UnixMicro()
	}
	return t
}

// timeScanner reads occurred_at from either dialect. NULL (an empty table's MIN/MAX)
// yields the zero time.
type timeScanner struct{ t *time.Time }

func (s timeScanner) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*s.t = time.Time{}
	case time.Time:
		*s.t = v.UTC()
	case int64:
		*s.t = time.UnixMicro(v).UTC()
	default:
		return fmt.Errorf("repository: cannot scan %T into time", src)
	}
	return nil
}
