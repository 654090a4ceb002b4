// Package pg is the Postgres transport: DDL is derived from an entity
// definition (one more artifact off the same field descriptors), CRUD maps
// records onto typed columns.
package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"facet/internal/schema"
)

var reserved = map[string]struct{}{
	"user": {}, "select": {}, "table": {}, "insert": {}, "update": {}, "delete": {},
	"where": {}, "join": {}, "group": {}, "order": {}, "limit": {}, "offset": {},
	"primary": {}, "foreign": {}, "key": {}, "constraint": {}, "default": {},
	"from": {}, "into": {}, "values": {}, "unique": {}, "index": {}, "create": {},
	"drop": {}, "alter": {}, "schema": {}, "grant": {}, "revoke": {},
}

func isReserved(s string) bool { _, ok := reserved[strings.ToLower(s)]; return ok }

func safeTable(entity string) string {
	t := strings.ToLower(entity)
	if isReserved(t) {
		t = "e_" + t
	}
	return t
}

func sqlIdent(s string) string { return `"` + strings.ToLower(s) + `"` }

func sqlString(s string) string { return "'" + strings.ReplaceAll(s, "'", "''") + "'" }

func columnType(v *schema.Validator) string {
	switch v.Kind() {
	case schema.KindNumber:
		return "double precision"
	case schema.KindBool:
		return "boolean"
	case schema.KindDate:
		return "date"
	default: // string and enum are text; enums get a CHECK below
		return "text"
	}
}

// BuildDDL emits idempotent DDL for an entity: system envelope columns plus
// one typed column per field, enum membership enforced with a CHECK.
func BuildDDL(def *schema.Definition) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", sqlIdent(safeTable(def.Name())))
	b.WriteString("  \"id\" text PRIMARY KEY,\n")
	b.WriteString("  \"version\" bigint NOT NULL DEFAULT 1,\n")
	b.WriteString("  \"created_at\" timestamptz NOT NULL,\n")
	b.WriteString("  \"updated_at\" timestamptz NOT NULL,\n")
	b.WriteString("  \"deleted\" boolean NOT NULL DEFAULT false")

	for _, f := range def.Fields() {
		v := f.Validator()
		fmt.Fprintf(&b, ",\n  %s %s", sqlIdent(f.Key()), columnType(v))
		if v.Kind() == schema.KindEnum {
			vals := make([]string, 0, len(v.Enum()))
			for _, e := range v.Enum() {
				vals = append(vals, sqlString(e))
			}
			fmt.Fprintf(&b, " CHECK (%s IS NULL OR %s IN (%s))",
				sqlIdent(f.Key()), sqlIdent(f.Key()), strings.Join(vals, ", "))
		}
	}
	b.WriteString("\n)")
	return b.String()
}

// Migrate derives each definition's DDL and applies it, add-only. The
// statements are idempotent; an object that already exists is logged and
// skipped so repeated startups are safe.
func Migrate(ctx context.Context, db *sql.DB, defs ...*schema.Definition) error {
	for _, def := range defs {
		if _, err := db.ExecContext(ctx, BuildDDL(def)); err != nil {
			if alreadyExists(err) {
				log.Printf("migrate %s: object already exists, skipping", def.Name())
				continue
			}
			return fmt.Errorf("migrate %s: %w", def.Name(), err)
		}
	}
	return nil
}

func alreadyExists(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// duplicate_object / duplicate_table
		return pgErr.Code == "42710" || pgErr.Code == "42P07"
	}
	return strings.Contains(strings.ToLower(err.Error()), "already exists")
}
