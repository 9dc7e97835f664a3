// Package responses defines API response types used by the snapbridge admin handlers.
package responses

import (
	"time"

	"git.home.luguber.info/inful/snapbridge/internal/journal"
	"git.home.luguber.info/inful/snapbridge/internal/snap"
	"git.home.luguber.info/inful/snapbridge/internal/snap/ui"
)

// HealthResponse represents the health check API response.
type HealthResponse struct {
	Status         string    `json:"status"`
	Timestamp      time.Time `json:"timestamp"`
	Version        string    `json:"version"`
	Uptime         float64   `json:"uptime"`
	InstalledSnaps int       `json:"installed_snaps"`
}

// SnapInfo is an installed snap plus whether the page origin may invoke it.
type SnapInfo struct {
	snap.Descriptor
	Local     bool `json:"local"`
	Permitted bool `json:"permitted"`
}

// SnapsResponse lists installed snaps.
type SnapsResponse struct {
	Status    string     `json:"status"`
	Origin    string     `json:"origin"`
	Snaps     []SnapInfo `json:"snaps"`
	Timestamp time.Time  `json:"timestamp"`
}

// DialogsResponse lists the most recent dialogs, oldest first.
type DialogsResponse struct {
	Status    string      `json:"status"`
	Dialogs   []ui.Record `json:"dialogs"`
	Timestamp time.Time   `json:"timestamp"`
}

// JournalResponse lists journaled calls.
type JournalResponse struct {
	Status    string          `json:"status"`
	Entries   []journal.Entry `json:"entries"`
	Timestamp time.Time       `json:"timestamp"`
}

// JournalSummaryResponse aggregates journaled calls per snap and method.
type JournalSummaryResponse struct {
	Status    string                  `json:"status"`
	Start     time.Time               `json:"start"`
	End       time.Time               `json:"end"`
	Methods   []journal.MethodSummary `json:"methods"`
	Timestamp time.Time               `json:"timestamp"`
}
