package journal

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteJournal implements Journal using SQLite.
type SQLiteJournal struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteJournal opens the journal database. Use ":memory:" for tests.
func NewSQLiteJournal(dbPath string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	j := &SQLiteJournal{db: db}
	if err := j.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return j, nil
}

func (j *SQLiteJournal) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS calls (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		request_id TEXT NOT NULL,
		origin TEXT NOT NULL,
		snap_id TEXT NOT NULL,
		method TEXT NOT NULL,
		outcome TEXT NOT NULL,
		duration_us INTEGER NOT NULL,
		error TEXT,
		timestamp_ms INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_calls_snap_id ON calls(snap_id);
	CREATE INDEX IF NOT EXISTS idx_calls_timestamp ON calls(timestamp_ms);
	`
	_, err := j.db.Exec(schema)
	return err
}

func (j *SQLiteJournal) Append(ctx context.Context, e Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO calls (request_id, origin, snap_id, method, outcome, duration_us, error, timestamp_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.RequestID, e.Origin, e.SnapID, e.Method, e.Outcome,
		e.Duration.Microseconds(), e.Error, e.Timestamp.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert call: %w", err)
	}
	return nil
}

const selectColumns = "SELECT id, request_id, origin, snap_id, method, outcome, duration_us, error, timestamp_ms FROM calls"

func (j *SQLiteJournal) BySnap(ctx context.Context, snapID string) ([]Entry, error) {
	return j.query(ctx, selectColumns+" WHERE snap_id = ? ORDER BY id", snapID)
}

func (j *SQLiteJournal) Range(ctx context.Context, start, end time.Time) ([]Entry, error) {
	return j.query(ctx, selectColumns+" WHERE timestamp_ms >= ? AND timestamp_ms <= ? ORDER BY id",
		start.UnixMilli(), end.UnixMilli())
}

func (j *SQLiteJournal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	return j.query(ctx, selectColumns+" ORDER BY id DESC LIMIT ?", limit)
}

func (j *SQLiteJournal) query(ctx context.Context, q string, args ...any) ([]Entry, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	rows, err := j.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query calls: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e          Entry
			durationUS int64
			errText    sql.NullString
			tsMillis   int64
		)
		if err := rows.Scan(&e.ID, &e.RequestID, &e.Origin, &e.SnapID, &e.Method, &e.Outcome, &durationUS, &errText, &tsMillis); err != nil {
			return nil, fmt.Errorf("scan call: %w", err)
		}
		e.Duration = time.Duration(durationUS) * time.Microsecond
		e.Error = errText.String
		e.Timestamp = time.UnixMilli(tsMillis)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return entries, nil
}

func (j *SQLiteJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.db.Close()
}
