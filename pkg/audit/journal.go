package audit

import (
	"context"
	"database/sql"
	"encoding/json"

	"staffsync/pkg/errors"
	"staffsync/pkg/records"

	// SQLite driver
	_ "github.com/mattn/go-sqlite3"
)

const journalSchema = `
CREATE TABLE IF NOT EXISTS sync_runs (
	id          TEXT PRIMARY KEY,
	entity_type TEXT NOT NULL,
	started_at  TEXT NOT NULL,
	status      TEXT NOT NULL,
	payload     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sync_runs_entity ON sync_runs (entity_type, started_at);
`

// timeFormat is fixed-width (nanoseconds never elided) so that the
// text ordering of started_at matches chronological order.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// Journal is the append-only SQLite-backed sync run log.
type Journal struct {
	db     *sql.DB
	ownsDB bool
}

// Open opens (creating if needed) a journal at path.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, errors.WrapIO("open", path, err)
	}
	j, err := NewJournal(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	j.ownsDB = true
	return j, nil
}

// NewJournal wraps an existing database handle.
func NewJournal(db *sql.DB) (*Journal, error) {
	if _, err := db.Exec(journalSchema); err != nil {
		return nil, errors.WrapIO("init", "sync_runs", err)
	}
	return &Journal{db: db}, nil
}

// Close releases the database handle when the journal owns it.
func (j *Journal) Close() error {
	if j.ownsDB {
		return j.db.Close()
	}
	return nil
}

// Append persists one run. Runs are immutable once written.
func (j *Journal) Append(ctx context.Context, run SyncRun) error {
	payload, err := json.Marshal(run)
	if err != nil {
		return errors.WrapParse("json", "sync_runs."+run.ID, err)
	}
	_, err = j.db.ExecContext(ctx,
		`INSERT INTO sync_runs (id, entity_type, started_at, status, payload) VALUES (?, ?, ?, ?, ?)`,
		run.ID, string(run.EntityType), run.StartedAt.UTC().Format(timeFormat),
		string(run.Status), string(payload))
	if err != nil {
		return errors.WrapIO("write", "sync_runs."+run.ID, err)
	}
	return nil
}

// List returns runs for an entity type, newest first, up to limit.
// A non-positive limit means no limit.
func (j *Journal) List(ctx context.Context, entityType records.EntityType, limit int) ([]SyncRun, error) {
	query := `SELECT payload FROM sync_runs WHERE entity_type = ? ORDER BY started_at DESC, id DESC`
	args := []any{string(entityType)}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.WrapIO("read", "sync_runs", err)
	}
	defer rows.Close()

	var out []SyncRun
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, errors.WrapIO("read", "sync_runs", err)
		}
		var run SyncRun
		if err := json.Unmarshal([]byte(payload), &run); err != nil {
			return nil, errors.WrapParse("json", "sync_runs", err)
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

// Get returns one run by id.
func (j *Journal) Get(ctx context.Context, id string) (SyncRun, error) {
	var payload string
	err := j.db.QueryRowContext(ctx, `SELECT payload FROM sync_runs WHERE id = ?`, id).Scan(&payload)
	if err == sql.ErrNoRows {
		return SyncRun{}, errors.ErrNotFound
	}
	if err != nil {
		return SyncRun{}, errors.WrapIO("read", "sync_runs."+id, err)
	}
	var run SyncRun
	if err := json.Unmarshal([]byte(payload), &run); err != nil {
		return SyncRun{}, errors.WrapParse("json", "sync_runs."+id, err)
	}
	return run, nil
}
