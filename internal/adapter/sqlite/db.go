// Package sqlite provides the in-memory SQLite database that backs a
// working session. Nothing is written to disk; closing the database
// discards the session, which is the intended lifecycle.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS records (
	idx       TEXT    NOT NULL,
	sub_idx   INTEGER NOT NULL,
	entry     TEXT    NOT NULL,
	gloss     TEXT    NOT NULL,
	word      TEXT    NOT NULL,
	homophone INTEGER,
	pos       INTEGER NOT NULL,
	PRIMARY KEY (idx, sub_idx)
);

CREATE INDEX IF NOT EXISTS records_word ON records (word);
`

// Open creates the in-memory session database and applies the schema.
// Every connection to ":memory:" gets its own database, so the pool is
// pinned to a single connection for the lifetime of the session.
func Open(ctx context.Context) (*sql.DB, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return db, nil
}
