// Package snapshot captures and restores full pre-sync store state for
// one entity type. Snapshots live in an append-only SQLite store, are
// immutable once captured, and are independently verifiable via a
// content checksum.
package snapshot

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"staffsync/pkg/errors"
	"staffsync/pkg/logging"
	"staffsync/pkg/records"
	"staffsync/pkg/store"

	// SQLite driver
	_ "github.com/mattn/go-sqlite3"
)

const snapshotSchema = `
CREATE TABLE IF NOT EXISTS snapshots (
	id           TEXT PRIMARY KEY,
	entity_type  TEXT NOT NULL,
	captured_at  TEXT NOT NULL,
	record_count INTEGER NOT NULL,
	checksum     TEXT NOT NULL,
	records      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_snapshots_entity ON snapshots (entity_type, captured_at);
`

// timeFormat is fixed-width (nanoseconds never elided) so that the
// text ordering of captured_at matches chronological order.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// Meta describes a snapshot without its record payload.
type Meta struct {
	ID          string             `json:"id"`
	EntityType  records.EntityType `json:"entity_type"`
	CapturedAt  time.Time          `json:"captured_at"`
	RecordCount int                `json:"record_count"`
	Checksum    string             `json:"checksum"`
}

// RestoreResult reports a completed restore.
type RestoreResult struct {
	SnapshotID      string             `json:"snapshot_id"`
	EntityType      records.EntityType `json:"entity_type"`
	RecordsRestored int                `json:"records_restored"`
	Attempts        int                `json:"attempts"`
	RestoredAt      time.Time          `json:"restored_at"`
}

// Manager owns the snapshot store. Snapshots are never mutated after
// creation; Prune is the only deletion path.
type Manager struct {
	db         *sql.DB
	ownsDB     bool
	maxRetries int
	baseDelay  time.Duration
	clock      func() time.Time
	logger     *zerolog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithRetry bounds the restore retry loop: maxRetries attempts after the
// first, with exponential backoff starting at baseDelay.
func WithRetry(maxRetries int, baseDelay time.Duration) Option {
	return func(m *Manager) {
		m.maxRetries = maxRetries
		m.baseDelay = baseDelay
	}
}

// WithClock overrides the capture timestamp source.
func WithClock(clock func() time.Time) Option {
	return func(m *Manager) { m.clock = clock }
}

// WithLogger sets the manager's logger. Without one, each call uses
// the logger carried by its context.
func WithLogger(logger *zerolog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// Open opens (creating if needed) a snapshot store at path.
func Open(path string, opts ...Option) (*Manager, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, errors.WrapIO("open", path, err)
	}
	m, err := newManager(db, opts...)
	if err != nil {
		db.Close()
		return nil, err
	}
	m.ownsDB = true
	return m, nil
}

// NewManager wraps an existing database handle.
func NewManager(db *sql.DB, opts ...Option) (*Manager, error) {
	return newManager(db, opts...)
}

func newManager(db *sql.DB, opts ...Option) (*Manager, error) {
	if _, err := db.Exec(snapshotSchema); err != nil {
		return nil, errors.WrapIO("init", "snapshots", err)
	}
	m := &Manager{
		db:         db,
		maxRetries: 3,
		baseDelay:  100 * time.Millisecond,
		clock:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// log returns the explicitly configured logger, or the one carried by
// the caller's context.
func (m *Manager) log(ctx context.Context) *zerolog.Logger {
	if m.logger != nil {
		return m.logger
	}
	return logging.FromContext(ctx)
}

// Close releases the database handle when the manager owns it.
func (m *Manager) Close() error {
	if m.ownsDB {
		return m.db.Close()
	}
	return nil
}

// Capture reads the full current store state for the entity type through
// the reader and persists it durably before returning. A failed store
// read surfaces as a CaptureError; the caller must abort the sync rather
// than proceed without a snapshot.
func (m *Manager) Capture(ctx context.Context, entityType records.EntityType, reader store.Reader) (string, error) {
	recs, err := reader.Load(ctx, entityType)
	if err != nil {
		return "", errors.NewCaptureError(string(entityType), err)
	}

	payload, checksum, err := encodeRecords(recs)
	if err != nil {
		return "", errors.NewCaptureError(string(entityType), err)
	}

	now := m.clock()
	id := newSnapshotID(entityType, now)

	_, err = m.db.ExecContext(ctx,
		`INSERT INTO snapshots (id, entity_type, captured_at, record_count, checksum, records)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, string(entityType), now.Format(timeFormat), len(recs), checksum, string(payload))
	if err != nil {
		return "", errors.NewCaptureError(string(entityType), err)
	}

	m.log(ctx).Info().
		Str("snapshot_id", id).
		Str("entity_type", string(entityType)).
		Int("records", len(recs)).
		Msg("snapshot captured")
	return id, nil
}

// Restore replaces the current store state for the snapshot's entity type
// with the snapshot's records via a single atomic write. On failure it
// retries with exponential backoff a bounded number of times before
// surfacing a RestoreFailedError. Restoring the same snapshot twice
// yields the same store state.
func (m *Manager) Restore(ctx context.Context, id string, writer store.Writer) (*RestoreResult, error) {
	meta, recs, err := m.load(ctx, id)
	if err != nil {
		return nil, err
	}
	// A corrupted snapshot must never be written back to the store.
	if _, checksum, cerr := encodeRecords(recs); cerr != nil {
		return nil, cerr
	} else if checksum != meta.Checksum {
		return nil, errors.NewChecksumError(id, meta.Checksum, checksum)
	}

	attempts := 0
	delay := m.baseDelay
	var lastErr error
	for attempts <= m.maxRetries {
		attempts++
		lastErr = writer.ReplaceAll(ctx, meta.EntityType, recs)
		if lastErr == nil {
			m.log(ctx).Info().
				Str("snapshot_id", id).
				Str("entity_type", string(meta.EntityType)).
				Int("attempts", attempts).
				Msg("snapshot restored")
			return &RestoreResult{
				SnapshotID:      id,
				EntityType:      meta.EntityType,
				RecordsRestored: len(recs),
				Attempts:        attempts,
				RestoredAt:      m.clock(),
			}, nil
		}
		m.log(ctx).Warn().
			Err(lastErr).
			Str("snapshot_id", id).
			Int("attempt", attempts).
			Msg("restore attempt failed")
		if attempts > m.maxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return nil, errors.NewRestoreFailedError(id, attempts, ctx.Err())
		case <-time.After(delay):
		}
		delay *= 2
	}

	return nil, errors.NewRestoreFailedError(id, attempts, lastErr)
}

// Verify recomputes the snapshot's checksum and compares it against the
// recorded one.
func (m *Manager) Verify(ctx context.Context, id string) error {
	meta, recs, err := m.load(ctx, id)
	if err != nil {
		return err
	}
	_, checksum, err := encodeRecords(recs)
	if err != nil {
		return err
	}
	if checksum != meta.Checksum {
		return errors.NewChecksumError(id, meta.Checksum, checksum)
	}
	return nil
}

// Meta returns one snapshot's metadata without its record payload.
func (m *Manager) Meta(ctx context.Context, id string) (Meta, error) {
	row := m.db.QueryRowContext(ctx,
		`SELECT id, entity_type, captured_at, record_count, checksum
		 FROM snapshots WHERE id = ?`, id)
	meta, err := scanMeta(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Meta{}, errors.NewSnapshotNotFoundError(id)
		}
		return Meta{}, err
	}
	return meta, nil
}

// List returns snapshot metadata for an entity type, newest first.
func (m *Manager) List(ctx context.Context, entityType records.EntityType) ([]Meta, error) {
	rows, err := m.db.QueryContext(ctx,
		`SELECT id, entity_type, captured_at, record_count, checksum
		 FROM snapshots WHERE entity_type = ? ORDER BY captured_at DESC, id DESC`,
		string(entityType))
	if err != nil {
		return nil, errors.WrapIO("read", "snapshots", err)
	}
	defer rows.Close()

	var out []Meta
	for rows.Next() {
		meta, err := scanMeta(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, meta)
	}
	return out, rows.Err()
}

// Prune deletes snapshots captured before the cutoff. Returns how many
// were removed. Housekeeping only; never on the critical path.
func (m *Manager) Prune(ctx context.Context, olderThan time.Time) (int, error) {
	res, err := m.db.ExecContext(ctx,
		`DELETE FROM snapshots WHERE captured_at < ?`,
		olderThan.UTC().Format(timeFormat))
	if err != nil {
		return 0, &errors.PruneError{OlderThan: olderThan, Err: err}
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// load fetches one snapshot's metadata and decoded records.
func (m *Manager) load(ctx context.Context, id string) (Meta, []records.NormalizedRecord, error) {
	row := m.db.QueryRowContext(ctx,
		`SELECT id, entity_type, captured_at, record_count, checksum, records
		 FROM snapshots WHERE id = ?`, id)

	var (
		meta       Meta
		entityType string
		capturedAt string
		payload    string
	)
	err := row.Scan(&meta.ID, &entityType, &capturedAt, &meta.RecordCount, &meta.Checksum, &payload)
	if err == sql.ErrNoRows {
		return Meta{}, nil, errors.NewSnapshotNotFoundError(id)
	}
	if err != nil {
		return Meta{}, nil, errors.WrapIO("read", "snapshots."+id, err)
	}
	meta.EntityType = records.EntityType(entityType)
	if t, perr := time.Parse(timeFormat, capturedAt); perr == nil {
		meta.CapturedAt = t
	}

	var recs []records.NormalizedRecord
	if err := json.Unmarshal([]byte(payload), &recs); err != nil {
		return Meta{}, nil, errors.WrapParse("json", "snapshots."+id, err)
	}
	return meta, recs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMeta(row rowScanner) (Meta, error) {
	var (
		meta       Meta
		entityType string
		capturedAt string
	)
	if err := row.Scan(&meta.ID, &entityType, &capturedAt, &meta.RecordCount, &meta.Checksum); err != nil {
		return Meta{}, errors.WrapIO("read", "snapshots", err)
	}
	meta.EntityType = records.EntityType(entityType)
	if t, err := time.Parse(timeFormat, capturedAt); err == nil {
		meta.CapturedAt = t
	}
	return meta, nil
}

// encodeRecords serializes records in canonical key order and returns the
// payload with its sha256 checksum. Canonical ordering makes the checksum
// stable across capture and restore.
func encodeRecords(recs []records.NormalizedRecord) ([]byte, string, error) {
	sorted := make([]records.NormalizedRecord, len(recs))
	for i, r := range recs {
		sorted[i] = r.Clone()
	}
	records.SortByKey(sorted)
	if sorted == nil {
		sorted = []records.NormalizedRecord{}
	}
	payload, err := json.Marshal(sorted)
	if err != nil {
		return nil, "", err
	}
	sum := sha256.Sum256(payload)
	return payload, hex.EncodeToString(sum[:]), nil
}

// newSnapshotID builds a time-ordered id: sync_<entity>_<stamp>_<suffix>.
// The uuid suffix keeps ids unique within one clock second.
func newSnapshotID(entityType records.EntityType, now time.Time) string {
	suffix := uuid.NewString()[:8]
	return fmt.Sprintf("sync_%s_%s_%s", entityType, now.Format("20060102_150405"), suffix)
}
