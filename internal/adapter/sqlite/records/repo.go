// Package records implements the authoritative record store for a working
// session, backed by the in-memory SQLite database.
package records

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/heartmarshall/aaed-cleaner/internal/domain"
)

// Repo provides record persistence for the duration of a session.
type Repo struct {
	db *sql.DB
}

// New creates a new records repository.
func New(db *sql.DB) *Repo {
	return &Repo{db: db}
}

// Ping reports whether the session database is reachable.
func (r *Repo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// ---------------------------------------------------------------------------
// Read operations
// ---------------------------------------------------------------------------

// All returns every record in original source order, labeled or not.
func (r *Repo) All(ctx context.Context) ([]domain.Record, error) {
	query, args, err := sq.
		Select("idx", "sub_idx", "entry", "gloss", "word", "homophone", "pos").
		From("records").
		OrderBy("pos").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select records: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// UnresolvedGroups returns the groups that still contain at least one
// unlabeled record. Groups are ordered by the first appearance of their
// word among unresolved records; members keep source order. Only
// unresolved members are included, so a returned group is never empty.
func (r *Repo) UnresolvedGroups(ctx context.Context) ([]domain.Group, error) {
	query, args, err := sq.
		Select("idx", "sub_idx", "entry", "gloss", "word", "homophone", "pos").
		From("records").
		Where("homophone IS NULL").
		OrderBy("pos").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select unresolved: %w", err)
	}
	defer rows.Close()

	recs, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}

	byWord := make(map[string]int)
	var groups []domain.Group
	for _, rec := range recs {
		i, ok := byWord[rec.Word]
		if !ok {
			i = len(groups)
			byWord[rec.Word] = i
			groups = append(groups, domain.Group{Word: rec.Word})
		}
		groups[i].Members = append(groups[i].Members, rec)
	}

	return groups, nil
}

// GroupByWord returns the unresolved members of a single word's group in
// source order. Returns domain.ErrNotFound when the word has no
// unresolved records.
func (r *Repo) GroupByWord(ctx context.Context, word string) (*domain.Group, error) {
	query, args, err := sq.
		Select("idx", "sub_idx", "entry", "gloss", "word", "homophone", "pos").
		From("records").
		Where(sq.Eq{"word": word}).
		Where("homophone IS NULL").
		OrderBy("pos").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select group %q: %w", word, err)
	}
	defer rows.Close()

	recs, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("group %q: %w", word, domain.ErrNotFound)
	}

	return &domain.Group{Word: word, Members: recs}, nil
}

// Progress returns resolved vs total record counts.
func (r *Repo) Progress(ctx context.Context) (domain.Progress, error) {
	var p domain.Progress
	row := r.db.QueryRowContext(ctx, "SELECT COUNT(*), COUNT(homophone) FROM records")
	if err := row.Scan(&p.Total, &p.Resolved); err != nil {
		return domain.Progress{}, fmt.Errorf("count records: %w", err)
	}
	return p, nil
}

// ---------------------------------------------------------------------------
// Write operations
// ---------------------------------------------------------------------------

// ReplaceAll swaps the whole record set in one transaction. Used when a
// dataset with a new file identity is loaded.
func (r *Repo) ReplaceAll(ctx context.Context, recs []domain.Record) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM records"); err != nil {
		return fmt.Errorf("clear records: %w", err)
	}

	for i := range recs {
		rec := &recs[i]
		query, args, err := sq.
			Insert("records").
			Columns("idx", "sub_idx", "entry", "gloss", "word", "homophone", "pos").
			Values(rec.Index, rec.SubIndex, rec.Entry, rec.Gloss, rec.Word, rec.Homophone, rec.Position).
			ToSql()
		if err != nil {
			return fmt.Errorf("build insert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert record %s: %w", rec.Key(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// SetLabels applies a batch of homophone labels atomically. If any key
// does not identify a stored record the whole batch is rolled back and
// domain.ErrInvalidKey is returned.
func (r *Repo) SetLabels(ctx context.Context, labels map[domain.RecordKey]int) error {
	if len(labels) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for key, label := range labels {
		query, args, err := sq.
			Update("records").
			Set("homophone", label).
			Where(sq.Eq{"idx": key.Index, "sub_idx": key.SubIndex}).
			ToSql()
		if err != nil {
			return fmt.Errorf("build update: %w", err)
		}

		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("update record %s: %w", key, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("record %s: %w", key, domain.ErrInvalidKey)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ResolveSingletons labels every record whose word occurs exactly once in
// the dataset with homophone group 1. A word that can only be one word
// needs no review. Idempotent; returns the number of records labeled.
func (r *Repo) ResolveSingletons(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE records SET homophone = 1
		WHERE homophone IS NULL
		  AND word IN (SELECT word FROM records GROUP BY word HAVING COUNT(*) = 1)`)
	if err != nil {
		return 0, fmt.Errorf("resolve singletons: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func scanRecords(rows *sql.Rows) ([]domain.Record, error) {
	var recs []domain.Record
	for rows.Next() {
		var rec domain.Record
		var label sql.NullInt64
		if err := rows.Scan(&rec.Index, &rec.SubIndex, &rec.Entry, &rec.Gloss, &rec.Word, &label, &rec.Position); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		if label.Valid {
			v := int(label.Int64)
			rec.Homophone = &v
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return recs, nil
}
