package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	foundationerrors "git.home.luguber.info/inful/snapbridge/internal/foundation/errors"
	"git.home.luguber.info/inful/snapbridge/internal/journal"
	"git.home.luguber.info/inful/snapbridge/internal/server/responses"
	"git.home.luguber.info/inful/snapbridge/internal/snap/ui"
)

// DefaultJournalLimit is the number of entries /api/journal returns without ?limit.
const DefaultJournalLimit = 50

// DialogSource lists the dialogs shown so far.
type DialogSource interface {
	History() []ui.Record
}

// APIHandlers serves the read-only admin API.
type APIHandlers struct {
	snaps        SnapSource
	dialogs      DialogSource
	journal      journal.Journal
	origin       string
	errorAdapter *foundationerrors.HTTPErrorAdapter
}

// NewAPIHandlers creates API handlers. origin is the page origin whose
// permissions /api/snaps reports. A nil dialogs or journal serves empty lists.
func NewAPIHandlers(snaps SnapSource, dialogs DialogSource, j journal.Journal, origin string) *APIHandlers {
	if j == nil {
		j = journal.Noop{}
	}
	return &APIHandlers{
		snaps:        snaps,
		dialogs:      dialogs,
		journal:      j,
		origin:       origin,
		errorAdapter: foundationerrors.NewHTTPErrorAdapter(slog.Default()),
	}
}

// HandleSnaps lists installed snaps.
func (h *APIHandlers) HandleSnaps(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.errorAdapter.WriteErrorResponse(w, r, methodNotAllowed(r, http.MethodGet))
		return
	}

	resp := responses.SnapsResponse{Status: "ok", Origin: h.origin, Snaps: []responses.SnapInfo{}, Timestamp: time.Now().UTC()}
	if h.snaps == nil {
		h.write(w, r, resp)
		return
	}
	for _, d := range h.snaps.Installed() {
		resp.Snaps = append(resp.Snaps, responses.SnapInfo{
			Descriptor: d,
			Local:      d.IsLocal(),
			Permitted:  h.snaps.Permitted(h.origin, d.ID),
		})
	}
	h.write(w, r, resp)
}

// HandleDialogs lists recent dialogs.
func (h *APIHandlers) HandleDialogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.errorAdapter.WriteErrorResponse(w, r, methodNotAllowed(r, http.MethodGet))
		return
	}

	resp := responses.DialogsResponse{Status: "ok", Dialogs: []ui.Record{}, Timestamp: time.Now().UTC()}
	if h.dialogs != nil {
		resp.Dialogs = append(resp.Dialogs, h.dialogs.History()...)
	}
	h.write(w, r, resp)
}

// HandleJournal lists journaled calls. Query parameters:
//
//	snap=<id>        entries for one snap, oldest first
//	limit=<n>        most recent n entries, newest first (default 50)
//	summary=1        per-method summary over the last ?since (default 24h)
func (h *APIHandlers) HandleJournal(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.errorAdapter.WriteErrorResponse(w, r, methodNotAllowed(r, http.MethodGet))
		return
	}
	q := r.URL.Query()

	if s := q.Get("summary"); s == "1" || s == "true" {
		h.handleSummary(w, r)
		return
	}

	var (
		entries []journal.Entry
		err     error
	)
	if snapID := q.Get("snap"); snapID != "" {
		entries, err = h.journal.BySnap(r.Context(), snapID)
	} else {
		limit := DefaultJournalLimit
		if raw := q.Get("limit"); raw != "" {
			limit, err = strconv.Atoi(raw)
			if err != nil || limit <= 0 {
				h.errorAdapter.WriteErrorResponse(w, r, foundationerrors.ValidationError("limit must be a positive integer").
					WithContext("limit", raw).
					Build())
				return
			}
		}
		entries, err = h.journal.Recent(r.Context(), limit)
	}
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, foundationerrors.StorageError("query journal").WithCause(err).Build())
		return
	}
	if entries == nil {
		entries = []journal.Entry{}
	}
	h.write(w, r, responses.JournalResponse{Status: "ok", Entries: entries, Timestamp: time.Now().UTC()})
}

func (h *APIHandlers) handleSummary(w http.ResponseWriter, r *http.Request) {
	since := 24 * time.Hour
	if raw := r.URL.Query().Get("since"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			h.errorAdapter.WriteErrorResponse(w, r, foundationerrors.ValidationError("since must be a positive duration").
				WithContext("since", raw).
				Build())
			return
		}
		since = d
	}

	end := time.Now()
	start := end.Add(-since)
	methods, err := journal.Summarize(r.Context(), h.journal, start, end)
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, foundationerrors.StorageError("summarize journal").WithCause(err).Build())
		return
	}
	h.write(w, r, responses.JournalSummaryResponse{
		Status:    "ok",
		Start:     start.UTC(),
		End:       end.UTC(),
		Methods:   methods,
		Timestamp: time.Now().UTC(),
	})
}

func (h *APIHandlers) write(w http.ResponseWriter, r *http.Request, v any) {
	if err := writeJSONPretty(w, r, http.StatusOK, v); err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, foundationerrors.WrapError(err, foundationerrors.CategoryInternal, "failed to write response").Build())
	}
}
