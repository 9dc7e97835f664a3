package journal

import (
	"context"
	"sort"
	"time"
)

// MethodSummary aggregates the calls made to one snap method.
type MethodSummary struct {
	SnapID    string        `json:"snap_id"`
	Method    string        `json:"method"`
	Calls     int           `json:"calls"`
	Errors    int           `json:"errors"`
	TotalTime time.Duration `json:"total_time"`
	LastCall  time.Time     `json:"last_call"`
	LastError string        `json:"last_error,omitempty"`
}

// Summarize folds the journal's entries in [start, end] into per-method
// summaries, sorted by snap ID then method.
func Summarize(ctx context.Context, j Journal, start, end time.Time) ([]MethodSummary, error) {
	entries, err := j.Range(ctx, start, end)
	if err != nil {
		return nil, err
	}

	byKey := make(map[[2]string]*MethodSummary)
	for _, e := range entries {
		key := [2]string{e.SnapID, e.Method}
		s, ok := byKey[key]
		if !ok {
			s = &MethodSummary{SnapID: e.SnapID, Method: e.Method}
			byKey[key] = s
		}
		s.Calls++
		s.TotalTime += e.Duration
		if e.Timestamp.After(s.LastCall) {
			s.LastCall = e.Timestamp
		}
		if e.Outcome == OutcomeError {
			s.Errors++
			s.LastError = e.Error
		}
	}

	out := make([]MethodSummary, 0, len(byKey))
	for _, s := range byKey {
		out = append(out, *s)
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].SnapID != out[b].SnapID {
			return out[a].SnapID < out[b].SnapID
		}
		return out[a].Method < out[b].Method
	})
	return out, nil
}
