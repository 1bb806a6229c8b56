// Package sqlite exports a built corpus and its cross-reference map into a
// single SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	_ "modernc.org/sqlite"

	"biblegen/internal/domain"
)

const FileName = "bible.sqlite"

//go:embed schema.sql
var schemaSQL string

type DB struct {
	*sql.DB
}

// Open opens path and creates the schema if needed.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &DB{db}, nil
}

// Export replaces any existing file at path with a fresh database holding
// every verse, mapping entry and conflict.
func Export(ctx context.Context, path string, corpus domain.Corpus, xref *domain.CrossReferenceMap) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove old export: %w", err)
	}

	db, err := Open(path)
	if err != nil {
		return err
	}
	defer db.Close()

	return db.Write(ctx, corpus, xref)
}

// Write inserts everything inside one transaction.
func (db *DB) Write(ctx context.Context, corpus domain.Corpus, xref *domain.CrossReferenceMap) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := insertVerses(ctx, tx, corpus); err != nil {
		return err
	}
	if xref != nil {
		if err := insertMappings(ctx, tx, xref); err != nil {
			return err
		}
		if err := insertConflicts(ctx, tx, xref.Conflicts); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func insertVerses(ctx context.Context, tx *sql.Tx, corpus domain.Corpus) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO verses (version, book, chapter, number, canonical_ref, text, id)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, version := range corpus.Versions() {
		keys := make([]string, 0, len(corpus[version]))
		for k := range corpus[version] {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			ch := corpus[version][k]
			for _, num := range ch.SortedVerseKeys() {
				v := ch.Verses[num]
				if _, err := stmt.ExecContext(ctx, version, ch.Book, ch.Number, v.Number, v.CanonicalRef, v.Text, v.ID); err != nil {
					return fmt.Errorf("failed to insert verse %s %s: %w", version, v.CanonicalRef, err)
				}
			}
		}
	}
	return nil
}

func insertMappings(ctx context.Context, tx *sql.Tx, xref *domain.CrossReferenceMap) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO mappings (canonical_ref, version, ref, reason)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	canonicals := make([]string, 0, len(xref.Mappings))
	for c := range xref.Mappings {
		canonicals = append(canonicals, c)
	}
	sort.Strings(canonicals)

	for _, c := range canonicals {
		entries := xref.Mappings[c]
		versions := make([]string, 0, len(entries))
		for v := range entries {
			versions = append(versions, v)
		}
		sort.Strings(versions)

		for _, v := range versions {
			var ref, reason sql.NullString
			if r, ok := entries[v].Ref(); ok {
				ref = sql.NullString{String: r, Valid: true}
			} else {
				reason = sql.NullString{String: entries[v].Reason(), Valid: true}
			}
			if _, err := stmt.ExecContext(ctx, c, v, ref, reason); err != nil {
				return fmt.Errorf("failed to insert mapping %s/%s: %w", c, v, err)
			}
		}
	}
	return nil
}

func insertConflicts(ctx context.Context, tx *sql.Tx, conflicts []domain.MappingConflict) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO conflicts (seq, canonical_ref, version, type, details)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, c := range conflicts {
		details, err := json.Marshal(c.Details)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, i, c.Canonical, c.Version, string(c.Type), string(details)); err != nil {
			return fmt.Errorf("failed to insert conflict %d: %w", i, err)
		}
	}
	return nil
}

// Mappings reads back the entries of one canonical reference.
func (db *DB) Mappings(ctx context.Context, canonical string) (map[string]domain.MappingEntry, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT version, ref, reason FROM mappings WHERE canonical_ref = ? ORDER BY version
	`, canonical)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]domain.MappingEntry)
	for rows.Next() {
		var version string
		var ref, reason sql.NullString
		if err := rows.Scan(&version, &ref, &reason); err != nil {
			return nil, err
		}
		if ref.Valid {
			out[version] = domain.RefEntry(ref.String)
		} else {
			out[version] = domain.NullEntry(reason.String)
		}
	}
	return out, rows.Err()
}

// VerseCount returns the number of stored verses of a version.
func (db *DB) VerseCount(ctx context.Context, version string) (int, error) {
	var n int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM verses WHERE version = ?`, version).Scan(&n)
	return n, err
}

// ConflictTypes returns the stored conflict types in sequence order.
func (db *DB) ConflictTypes(ctx context.Context) ([]domain.ConflictType, error) {
	rows, err := db.QueryContext(ctx, `SELECT type FROM conflicts ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ConflictType
	for rows.Next() {
		var t domain.ConflictType
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
