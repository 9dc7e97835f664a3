// Package journal records one entry per snap RPC call handled by the host.
package journal

import (
	"context"
	"time"
)

// Outcome values recorded for a call.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Entry describes one handled RPC call.
type Entry struct {
	ID        int64         `json:"id"`
	RequestID string        `json:"request_id"`
	Origin    string        `json:"origin"`
	SnapID    string        `json:"snap_id"`
	Method    string        `json:"method"`
	Outcome   string        `json:"outcome"`
	Duration  time.Duration `json:"duration"`
	Error     string        `json:"error,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// Journal persists and queries call entries.
type Journal interface {
	// Append records an entry. ID is assigned by the journal.
	Append(ctx context.Context, e Entry) error

	// BySnap returns entries for one snap, oldest first.
	BySnap(ctx context.Context, snapID string) ([]Entry, error)

	// Range returns entries with start <= Timestamp <= end, oldest first.
	Range(ctx context.Context, start, end time.Time) ([]Entry, error)

	// Recent returns up to limit entries, newest first.
	Recent(ctx context.Context, limit int) ([]Entry, error)

	Close() error
}

// Noop discards every entry.
type Noop struct{}

func (Noop) Append(context.Context, Entry) error                          { return nil }
func (Noop) BySnap(context.Context, string) ([]Entry, error)              { return nil, nil }
func (Noop) Range(context.Context, time.Time, time.Time) ([]Entry, error) { return nil, nil }
func (Noop) Recent(context.Context, int) ([]Entry, error)                 { return nil, nil }
func (Noop) Close() error                                                 { return nil }

// Open returns a SQLite journal at path, or Noop when path is empty.
func Open(path string) (Journal, error) {
	if path == "" {
		return Noop{}, nil
	}
	return NewSQLiteJournal(path)
}
