package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	"github.com/oklog/ulid/v2"

	"facet/internal/schema"
)

// Open dials Postgres for the entity tables. maxConns bounds the pool, idle
// connections keep half of it; the ping runs under the caller's ctx so a
// startup deadline propagates instead of hanging the boot.
func Open(ctx context.Context, url string, maxConns int) (*sql.DB, error) {
	if maxConns <= 0 {
		maxConns = 10
	}
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns / 2)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Store implements schema.Transport over a Postgres table. The entity
// definition is bound after construction because the definition itself holds
// the transport reference: main builds the store, defines the entity against
// it, then binds.
type Store struct {
	db    *sql.DB
	def   *schema.Definition
	table string
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Bind attaches the entity definition the store serves. Must be called once
// before any operation.
func (s *Store) Bind(def *schema.Definition) {
	s.def = def
	s.table = safeTable(def.Name())
}

func (s *Store) ready(op string) error {
	if s.def == nil {
		return &schema.TransportError{Kind: schema.ErrorUnavailable, Op: op,
			Err: errors.New("store is not bound to an entity definition")}
	}
	return nil
}

func (s *Store) List(ctx context.Context) ([]schema.Record, error) {
	if err := s.ready("list"); err != nil {
		return nil, err
	}
	fields := s.def.Fields()
	cols := []string{`"id"`, `"version"`, `"created_at"`, `"updated_at"`}
	for _, f := range fields {
		cols = append(cols, sqlIdent(f.Key()))
	}
	q := fmt.Sprintf(`SELECT %s FROM %s WHERE NOT "deleted" ORDER BY "created_at", "id"`,
		strings.Join(cols, ", "), sqlIdent(s.table))

	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, wrap("list", err)
	}
	defer rows.Close()

	var out []schema.Record
	for rows.Next() {
		rec, err := s.scanRecord(rows, fields)
		if err != nil {
			return nil, wrap("list", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("list", err)
	}
	return out, nil
}

func (s *Store) Create(ctx context.Context, payload schema.Record) (schema.Record, error) {
	if err := s.ready("create"); err != nil {
		return nil, err
	}
	fields := s.def.Fields()
	id := ulid.Make().String()
	now := time.Now().UTC()

	cols := []string{`"id"`, `"version"`, `"created_at"`, `"updated_at"`}
	args := []any{id, int64(1), now, now}
	for _, f := range fields {
		cols = append(cols, sqlIdent(f.Key()))
		if v, ok := payload[f.Key()]; ok {
			args = append(args, v)
		} else {
			args = append(args, nil)
		}
	}
	holders := make([]string, len(args))
	for i := range args {
		holders[i] = fmt.Sprintf("$%d", i+1)
	}
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		sqlIdent(s.table), strings.Join(cols, ", "), strings.Join(holders, ", "))

	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		return nil, wrap("create", err)
	}
	return s.getOne(ctx, id, "create")
}

func (s *Store) Update(ctx context.Context, id string, payload schema.Record) (schema.Record, error) {
	if err := s.ready("update"); err != nil {
		return nil, err
	}
	sets := []string{`"version" = "version" + 1`, `"updated_at" = $1`}
	args := []any{time.Now().UTC()}
	for _, f := range s.def.Fields() {
		v, ok := payload[f.Key()]
		if !ok {
			continue
		}
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", sqlIdent(f.Key()), len(args)))
	}
	args = append(args, id)
	q := fmt.Sprintf(`UPDATE %s SET %s WHERE "id" = $%d AND NOT "deleted"`,
		sqlIdent(s.table), strings.Join(sets, ", "), len(args))

	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return nil, wrap("update", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, &schema.TransportError{Kind: schema.ErrorNotFound, Op: "update",
			Err: fmt.Errorf("record %s not found", id)}
	}
	return s.getOne(ctx, id, "update")
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.ready("delete"); err != nil {
		return err
	}
	q := fmt.Sprintf(`UPDATE %s SET "deleted" = true, "updated_at" = $1 WHERE "id" = $2 AND NOT "deleted"`,
		sqlIdent(s.table))
	res, err := s.db.ExecContext(ctx, q, time.Now().UTC(), id)
	if err != nil {
		return wrap("delete", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &schema.TransportError{Kind: schema.ErrorNotFound, Op: "delete",
			Err: fmt.Errorf("record %s not found", id)}
	}
	return nil
}

func (s *Store) getOne(ctx context.Context, id, op string) (schema.Record, error) {
	fields := s.def.Fields()
	cols := []string{`"id"`, `"version"`, `"created_at"`, `"updated_at"`}
	for _, f := range fields {
		cols = append(cols, sqlIdent(f.Key()))
	}
	q := fmt.Sprintf(`SELECT %s FROM %s WHERE "id" = $1 AND NOT "deleted"`,
		strings.Join(cols, ", "), sqlIdent(s.table))

	rows, err := s.db.QueryContext(ctx, q, id)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, &schema.TransportError{Kind: schema.ErrorNotFound, Op: op,
			Err: fmt.Errorf("record %s not found", id)}
	}
	rec, err := s.scanRecord(rows, fields)
	if err != nil {
		return nil, wrap(op, err)
	}
	return rec, nil
}

func (s *Store) scanRecord(rows *sql.Rows, fields []*schema.Field) (schema.Record, error) {
	var (
		id        string
		version   int64
		createdAt time.Time
		updatedAt time.Time
	)
	holders := []any{&id, &version, &createdAt, &updatedAt}
	vals := make([]any, len(fields))
	for i := range fields {
		holders = append(holders, &vals[i])
	}
	if err := rows.Scan(holders...); err != nil {
		return nil, err
	}

	rec := schema.Record{
		"id":         id,
		"version":    version,
		"created_at": createdAt.UTC().Format(time.RFC3339),
		"updated_at": updatedAt.UTC().Format(time.RFC3339),
	}
	for i, f := range fields {
		v := vals[i]
		if v == nil {
			continue
		}
		switch t := v.(type) {
		case []byte:
			rec[f.Key()] = string(t)
		case time.Time: // date columns scan as time.Time
			rec[f.Key()] = t.Format("2006-01-02")
		default:
			rec[f.Key()] = v
		}
	}
	return rec, nil
}

// wrap classifies a database error: constraint violations (class 23) are
// payloads the backend rejected, everything else is unavailability.
func wrap(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return &schema.TransportError{Kind: schema.ErrorNotFound, Op: op, Err: err}
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && strings.HasPrefix(pgErr.Code, "23") {
		return &schema.TransportError{Kind: schema.ErrorRejected, Op: op, Err: err}
	}
	return &schema.TransportError{Kind: schema.ErrorUnavailable, Op: op, Err: err}
}
