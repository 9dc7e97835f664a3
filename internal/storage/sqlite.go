package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"git.home.luguber.info/inful/snapbridge/internal/snap"
)

// SQLiteStore implements Store on a single SQLite table.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at dbPath.
// Use ":memory:" for a throwaway database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single connection keeps ":memory:" databases coherent and serializes writers.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS snap_state (
		snap_id TEXT PRIMARY KEY,
		document BLOB NOT NULL,
		updated_at INTEGER NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) Get(ctx context.Context, snapID string) (snap.Document, bool, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT document FROM snap_state WHERE snap_id = ?", snapID,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query document: %w", err)
	}

	doc, err := decode(data)
	if err != nil {
		return nil, false, err
	}
	return doc, true, nil
}

func (s *SQLiteStore) Put(ctx context.Context, snapID string, doc snap.Document) error {
	data, err := encode(doc)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO snap_state (snap_id, document, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(snap_id) DO UPDATE SET document = excluded.document, updated_at = excluded.updated_at`,
		snapID, data, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, snapID string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM snap_state WHERE snap_id = ?", snapID); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
