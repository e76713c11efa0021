// Package catalog is the SQLite access layer for observation records.
// The store owns record state; the workbook mirror is synchronized in
// one direction at a time by the tabular package.
package catalog

import (
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	_ "modernc.org/sqlite"
)

// Table is the single observation table. Its column set is derived
// from the field catalog and the workbook header, not compiled in.
const Table = "imgdata"

// Well-known fields the ingestion and grouping paths populate. Every
// catalog is expected to declare them.
const (
	FieldImageName     = "image_name"
	FieldImagePath     = "image_path"
	FieldImageBytes    = "image_bytes"
	FieldImageTime     = "image_time"
	FieldImageW        = "image_w"
	FieldImageH        = "image_h"
	FieldImageHash     = "image_hash"
	FieldObservationID = "observation_id"
	FieldGroupID       = "group_id"
	FieldGroupNumber   = "group_number"
)

// ErrRecordNotFound is returned by lookups on an unknown key.
var ErrRecordNotFound = errors.New("record not found")

var validIdent = regexp.MustCompile(`(?i)^[a-z_][a-z0-9_]*$`)

// Record is one observation row keyed by field name. Missing values
// are nil, matching SQL NULL.
type Record map[string]any

// Column pairs a field name with its storage type for table creation.
type Column struct {
	Name string
	Type string
}

// Store wraps a single-writer SQLite handle.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path. Use ":memory:" for an
// ephemeral store in tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// Single-writer access model; also keeps ":memory:" stores on one
	// connection instead of one database per pooled connection.
	db.SetMaxOpenConns(1)
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Replace drops any existing observation table, creates a fresh one
// with the given columns, and loads the given rows, all inside one
// transaction. Destructive by design: the previous table contents are
// gone once this returns. The fields slice names the columns each row
// populates, in row order; columns outside it stay NULL.
func (s *Store) Replace(cols []Column, fields []string, rows [][]any) error {
	ddl := make([]string, 0, len(cols))
	for _, c := range cols {
		if !validIdent.MatchString(c.Name) {
			return fmt.Errorf("invalid column name %q", c.Name)
		}
		ddl = append(ddl, c.Name+" "+c.Type)
	}
	for _, name := range fields {
		if !validIdent.MatchString(name) {
			return fmt.Errorf("invalid field name %q", name)
		}
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin replace: %w", err)
	}
	defer func() { _ = tx.Rollback() }() // no-op after commit

	if _, err := tx.Exec("DROP TABLE IF EXISTS " + Table); err != nil {
		return fmt.Errorf("drop %s: %w", Table, err)
	}
	if _, err := tx.Exec("CREATE TABLE " + Table + " (\n" + strings.Join(ddl, ",\n") + "\n)"); err != nil {
		return fmt.Errorf("create %s: %w", Table, err)
	}

	if len(rows) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(fields)), ",")
		stmt, err := tx.Prepare("INSERT INTO " + Table + " (" + strings.Join(fields, ",") + ") VALUES (" + placeholders + ")")
		if err != nil {
			return fmt.Errorf("prepare insert: %w", err)
		}
		defer func() { _ = stmt.Close() }()
		for i, row := range rows {
			if len(row) != len(fields) {
				return fmt.Errorf("row %d: %d values for %d fields", i+1, len(row), len(fields))
			}
			if _, err := stmt.Exec(row...); err != nil {
				return fmt.Errorf("insert row %d: %w", i+1, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace: %w", err)
	}
	return nil
}

// Insert adds one record. Fields are inserted in sorted-name order;
// columns absent from the record stay NULL.
func (s *Store) Insert(rec Record) error {
	fields := make([]string, 0, len(rec))
	for name := range rec {
		if !validIdent.MatchString(name) {
			return fmt.Errorf("invalid field name %q", name)
		}
		fields = append(fields, name)
	}
	sort.Strings(fields)

	values := make([]any, len(fields))
	for i, name := range fields {
		values[i] = rec[name]
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(fields)), ",")
	_, err := s.db.Exec(
		"INSERT INTO "+Table+" ("+strings.Join(fields, ",")+") VALUES ("+placeholders+")",
		values...,
	)
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

// ByPath fetches the record with the given image path, or
// ErrRecordNotFound.
func (s *Store) ByPath(path string) (Record, error) {
	return s.one("SELECT * FROM "+Table+" WHERE "+FieldImagePath+" = ?", path)
}

// HasPath reports whether a record with the given image path exists.
func (s *Store) HasPath(path string) (bool, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM "+Table+" WHERE "+FieldImagePath+" = ?", path).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("count path %s: %w", path, err)
	}
	return n > 0, nil
}

// ByObservation fetches the record with the given observation id, or
// ErrRecordNotFound.
func (s *Store) ByObservation(id string) (Record, error) {
	return s.one("SELECT * FROM "+Table+" WHERE "+FieldObservationID+" = ?", id)
}

// Update rewrites the given fields of the record with the given
// observation id.
func (s *Store) Update(obsID string, updates Record) error {
	if len(updates) == 0 {
		return nil
	}
	fields := make([]string, 0, len(updates))
	for name := range updates {
		if !validIdent.MatchString(name) {
			return fmt.Errorf("invalid field name %q", name)
		}
		fields = append(fields, name)
	}
	sort.Strings(fields)

	sets := make([]string, len(fields))
	values := make([]any, 0, len(fields)+1)
	for i, name := range fields {
		sets[i] = name + "=?"
		values = append(values, updates[name])
	}
	values = append(values, obsID)

	res, err := s.db.Exec(
		"UPDATE "+Table+" SET "+strings.Join(sets, ", ")+" WHERE "+FieldObservationID+"=?",
		values...,
	)
	if err != nil {
		return fmt.Errorf("update %s: %w", obsID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update %s: %w", obsID, ErrRecordNotFound)
	}
	return nil
}

// Scan iterates every record in the store's natural order, yielding
// the requested fields for each row. No implicit sort: export must see
// the same order as the underlying scan.
func (s *Store) Scan(fields []string, fn func(values []any) error) error {
	for _, name := range fields {
		if !validIdent.MatchString(name) {
			return fmt.Errorf("invalid field name %q", name)
		}
	}
	rows, err := s.db.Query("SELECT " + strings.Join(fields, ",") + " FROM " + Table)
	if err != nil {
		return fmt.Errorf("scan %s: %w", Table, err)
	}
	defer func() { _ = rows.Close() }() // safe to ignore

	for rows.Next() {
		values := make([]any, len(fields))
		ptrs := make([]any, len(fields))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return fmt.Errorf("scan row: %w", err)
		}
		if err := fn(values); err != nil {
			return err
		}
	}
	return rows.Err()
}

// ImagePaths returns the set of image paths currently in the store.
func (s *Store) ImagePaths() (map[string]struct{}, error) {
	paths := make(map[string]struct{})
	err := s.Scan([]string{FieldImagePath}, func(values []any) error {
		if p, ok := values[0].(string); ok {
			paths[p] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paths, nil
}

// Count returns the number of records in the store.
func (s *Store) Count() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM " + Table).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", Table, err)
	}
	return n, nil
}

// Columns returns the observation table's column names in table order.
func (s *Store) Columns() ([]string, error) {
	rows, err := s.db.Query("SELECT name FROM pragma_table_info(?)", Table)
	if err != nil {
		return nil, fmt.Errorf("table info %s: %w", Table, err)
	}
	defer func() { _ = rows.Close() }() // safe to ignore

	var cols []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan column name: %w", err)
		}
		cols = append(cols, name)
	}
	return cols, rows.Err()
}

// one runs a single-record query and maps the row by column name.
func (s *Store) one(query string, args ...any) (Record, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query record: %w", err)
	}
	defer func() { _ = rows.Close() }() // safe to ignore

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, ErrRecordNotFound
	}
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, fmt.Errorf("scan record: %w", err)
	}
	rec := make(Record, len(cols))
	for i, name := range cols {
		rec[name] = values[i]
	}
	return rec, rows.Err()
}
