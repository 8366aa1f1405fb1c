// ABOUTME: SQL dialect differences between SQLite and Postgres
// ABOUTME: Placeholder rebinding, schema DDL and constraint-violation detection

package store

import (
	"errors"
	"strconv"
	"strings"

	"github.com/lib/pq"
)

// Postgres SQLSTATE codes.
const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

type dialect struct {
	name   string
	schema string
	// numbered placeholders ($1, $2, ...) instead of ?
	numbered bool
}

var sqliteDialect = dialect{
	name:   "sqlite",
	schema: sqliteSchema,
}

var postgresDialect = dialect{
	name:     "postgres",
	schema:   postgresSchema,
	numbered: true,
}

// rebind rewrites ? placeholders for dialects that use numbered parameters.
// Queries in this package never contain a literal question mark.
func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (d dialect) isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pqUniqueViolation
	}
	// SQLite returns "UNIQUE constraint failed" in the error message
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func (d dialect) isForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pqForeignKeyViolation
	}
	return strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS users (
		id          TEXT PRIMARY KEY,
		telegram_id INTEGER NOT NULL UNIQUE,
		name        TEXT NOT NULL,
		phone       TEXT NOT NULL,
		role        TEXT NOT NULL DEFAULT 'agent',
		created_at  TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS admins (
		id            TEXT PRIMARY KEY,
		username      TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role          TEXT NOT NULL,
		created_at    TEXT NOT NULL,

		CHECK (role IN ('admin', 'super-admin'))
	);

	CREATE TABLE IF NOT EXISTS products (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		description TEXT,
		price       NUMERIC NOT NULL CHECK (price >= 0),
		stock       INTEGER CHECK (stock IS NULL OR stock >= 0),
		created_at  TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS stores (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		phone      TEXT,
		address    TEXT,
		location   TEXT,
		agent_id   TEXT REFERENCES users(id) ON DELETE SET NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_stores_agent ON stores(agent_id);

	CREATE TABLE IF NOT EXISTS orders (
		id         TEXT PRIMARY KEY,
		agent_id   TEXT NOT NULL REFERENCES users(id),
		product_id TEXT NOT NULL REFERENCES products(id),
		store_id   TEXT NOT NULL REFERENCES stores(id),
		quantity   INTEGER NOT NULL CHECK (quantity > 0),
		unit_price NUMERIC NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_orders_agent ON orders(agent_id);
	CREATE INDEX IF NOT EXISTS idx_orders_created ON orders(created_at);
`

const postgresSchema = `
	CREATE TABLE IF NOT EXISTS users (
		id          TEXT PRIMARY KEY,
		telegram_id BIGINT NOT NULL UNIQUE,
		name        TEXT NOT NULL,
		phone       TEXT NOT NULL,
		role        TEXT NOT NULL DEFAULT 'agent',
		created_at  TIMESTAMPTZ NOT NULL
	);

	CREATE TABLE IF NOT EXISTS admins (
		id            TEXT PRIMARY KEY,
		username      TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role          TEXT NOT NULL CHECK (role IN ('admin', 'super-admin')),
		created_at    TIMESTAMPTZ NOT NULL
	);

	CREATE TABLE IF NOT EXISTS products (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		description TEXT,
		price       NUMERIC(14, 2) NOT NULL CHECK (price >= 0),
		stock       INTEGER CHECK (stock IS NULL OR stock >= 0),
		created_at  TIMESTAMPTZ NOT NULL
	);

	CREATE TABLE IF NOT EXISTS stores (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		phone      TEXT,
		address    TEXT,
		location   JSONB,
		agent_id   TEXT REFERENCES users(id) ON DELETE SET NULL,
		created_at TIMESTAMPTZ NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_stores_agent ON stores(agent_id);

	CREATE TABLE IF NOT EXISTS orders (
		id         TEXT PRIMARY KEY,
		agent_id   TEXT NOT NULL REFERENCES users(id),
		product_id TEXT NOT NULL REFERENCES products(id),
		store_id   TEXT NOT NULL REFERENCES stores(id),
		quantity   INTEGER NOT NULL CHECK (quantity > 0),
		unit_price NUMERIC(14, 2) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_orders_agent ON orders(agent_id);
	CREATE INDEX IF NOT EXISTS idx_orders_created ON orders(created_at);
`
