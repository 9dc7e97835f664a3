package ui

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"git.home.luguber.info/inful/snapbridge/internal/logfields"
)

// Presenter shows a dialog on behalf of a snap and returns the user's answer.
type Presenter interface {
	Present(ctx context.Context, snapID string, d Dialog) (any, error)
}

// Record is one dialog shown by an AutoPresenter.
type Record struct {
	ID        string     `json:"id"`
	SnapID    string     `json:"snap_id"`
	Type      DialogType `json:"type"`
	Text      string     `json:"text"`
	Result    any        `json:"result"`
	Presented time.Time  `json:"presented"`
}

// AutoPresenter approves every dialog, logs its text and keeps the most
// recent dialogs for inspection.
type AutoPresenter struct {
	mu      sync.Mutex
	history []Record
	limit   int
	clock   clockwork.Clock
	logger  *slog.Logger
}

// NewAutoPresenter keeps at most limit records. A nil logger uses slog.Default.
func NewAutoPresenter(limit int, clock clockwork.Clock, logger *slog.Logger) *AutoPresenter {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if limit <= 0 {
		limit = 1
	}
	return &AutoPresenter{limit: limit, clock: clock, logger: logger}
}

// Present answers confirmations with true, prompts with an empty string and
// alerts with nil.
func (p *AutoPresenter) Present(ctx context.Context, snapID string, d Dialog) (any, error) {
	var result any
	switch d.Type {
	case DialogConfirmation:
		result = true
	case DialogPrompt:
		result = ""
	}

	rec := Record{
		ID:        uuid.NewString(),
		SnapID:    snapID,
		Type:      d.Type,
		Text:      RenderText(d.Content),
		Result:    result,
		Presented: p.clock.Now(),
	}
	p.logger.InfoContext(ctx, "Dialog shown",
		logfields.SnapID(snapID),
		slog.String("dialog_type", string(d.Type)),
		slog.String("text", rec.Text))

	p.mu.Lock()
	p.history = append(p.history, rec)
	if over := len(p.history) - p.limit; over > 0 {
		p.history = append([]Record(nil), p.history[over:]...)
	}
	p.mu.Unlock()

	return result, nil
}

// History returns the retained dialogs, oldest first.
func (p *AutoPresenter) History() []Record {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Record, len(p.history))
	copy(out, p.history)
	return out
}

// Last returns the most recent dialog, if any.
func (p *AutoPresenter) Last() (Record, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.history) == 0 {
		return Record{}, false
	}
	return p.history[len(p.history)-1], true
}

// RejectingPresenter declines every dialog: confirmations yield false,
// prompts and alerts yield nil.
type RejectingPresenter struct{}

func (RejectingPresenter) Present(_ context.Context, _ string, d Dialog) (any, error) {
	if d.Type == DialogConfirmation {
		return false, nil
	}
	return nil, nil
}
