package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"staffsync/pkg/errors"
	"staffsync/pkg/records"

	// SQLite driver
	_ "github.com/mattn/go-sqlite3"
)

const recordsSchema = `
CREATE TABLE IF NOT EXISTS records (
	entity_type TEXT NOT NULL,
	key         TEXT NOT NULL,
	fields      TEXT NOT NULL,
	updated_at  TEXT,
	PRIMARY KEY (entity_type, key)
);
`

// SQLite is a Store backed by a local SQLite database. WAL mode is
// enabled so analysis reads can run alongside a commit on another
// connection.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) a SQLite store at path.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, errors.WrapIO("open", path, err)
	}
	if _, err := db.Exec(recordsSchema); err != nil {
		db.Close()
		return nil, errors.WrapIO("init", path, err)
	}
	return &SQLite{db: db}, nil
}

// NewSQLite wraps an existing database handle. The caller keeps ownership
// of the handle's lifecycle.
func NewSQLite(db *sql.DB) (*SQLite, error) {
	if _, err := db.Exec(recordsSchema); err != nil {
		return nil, errors.WrapIO("init", "records", err)
	}
	return &SQLite{db: db}, nil
}

// Close releases the database handle.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Load implements Reader.
func (s *SQLite) Load(ctx context.Context, entityType records.EntityType) ([]records.NormalizedRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, fields, updated_at FROM records WHERE entity_type = ? ORDER BY key`,
		string(entityType))
	if err != nil {
		return nil, errors.WrapIO("read", "records", err)
	}
	defer rows.Close()

	var out []records.NormalizedRecord
	for rows.Next() {
		var (
			key       string
			fieldsRaw string
			updatedAt sql.NullString
		)
		if err := rows.Scan(&key, &fieldsRaw, &updatedAt); err != nil {
			return nil, errors.WrapIO("read", "records", err)
		}
		fields := map[string]string{}
		if err := json.Unmarshal([]byte(fieldsRaw), &fields); err != nil {
			return nil, errors.WrapParse("json", "records."+key, err)
		}
		rec := records.NormalizedRecord{
			EntityType: entityType,
			Key:        key,
			Fields:     fields,
			Origin:     records.OriginStore,
		}
		if updatedAt.Valid && updatedAt.String != "" {
			if t, perr := time.Parse(time.RFC3339Nano, updatedAt.String); perr == nil {
				rec.SourceUpdatedAt = &t
			}
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WrapIO("read", "records", err)
	}
	return out, nil
}

// Apply implements Writer. Inserts and updates run inside one
// transaction; any failure rolls the whole batch back.
func (s *SQLite) Apply(ctx context.Context, entityType records.EntityType, m Mutation) error {
	if m.Empty() {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.WrapIO("write", "records", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for _, rec := range m.Inserts {
		if err := insertRecord(ctx, tx, entityType, rec); err != nil {
			return err
		}
	}
	for _, upd := range m.Updates {
		if err := updateRecord(ctx, tx, entityType, upd); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.WrapIO("write", "records", err)
	}
	return nil
}

// ReplaceAll implements Writer.
func (s *SQLite) ReplaceAll(ctx context.Context, entityType records.EntityType, recs []records.NormalizedRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.WrapIO("write", "records", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM records WHERE entity_type = ?`, string(entityType)); err != nil {
		return errors.WrapIO("write", "records", err)
	}
	for _, rec := range recs {
		if err := insertRecord(ctx, tx, entityType, rec); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.WrapIO("write", "records", err)
	}
	return nil
}

func insertRecord(ctx context.Context, tx *sql.Tx, entityType records.EntityType, rec records.NormalizedRecord) error {
	fieldsRaw, err := json.Marshal(rec.Fields)
	if err != nil {
		return errors.WrapParse("json", "records."+rec.Key, err)
	}
	var updatedAt any
	if rec.SourceUpdatedAt != nil {
		updatedAt = rec.SourceUpdatedAt.UTC().Format(time.RFC3339Nano)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO records (entity_type, key, fields, updated_at) VALUES (?, ?, ?, ?)`,
		string(entityType), rec.Key, string(fieldsRaw), updatedAt)
	if err != nil {
		return errors.WrapIO("write", "records."+rec.Key, err)
	}
	return nil
}

func updateRecord(ctx context.Context, tx *sql.Tx, entityType records.EntityType, upd FieldUpdate) error {
	var fieldsRaw string
	row := tx.QueryRowContext(ctx,
		`SELECT fields FROM records WHERE entity_type = ? AND key = ?`,
		string(entityType), upd.Key)
	if err := row.Scan(&fieldsRaw); err != nil {
		if err == sql.ErrNoRows {
			return errors.NewValidationError("key", upd.Key,
				fmt.Sprintf("update targets missing record %s", upd.Key))
		}
		return errors.WrapIO("read", "records."+upd.Key, err)
	}
	fields := map[string]string{}
	if err := json.Unmarshal([]byte(fieldsRaw), &fields); err != nil {
		return errors.WrapParse("json", "records."+upd.Key, err)
	}
	for k, v := range upd.Fields {
		fields[k] = v
	}
	merged, err := json.Marshal(fields)
	if err != nil {
		return errors.WrapParse("json", "records."+upd.Key, err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE records SET fields = ?, updated_at = ? WHERE entity_type = ? AND key = ?`,
		string(merged), time.Now().UTC().Format(time.RFC3339Nano), string(entityType), upd.Key); err != nil {
		return errors.WrapIO("write", "records."+upd.Key, err)
	}
	return nil
}
