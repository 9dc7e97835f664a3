package snap

import (
	"context"
	"encoding/json"
	"strings"

	"git.home.luguber.info/inful/snapbridge/internal/snap/ui"
)

// LocalPrefix marks a snap served from a local development build.
const LocalPrefix = "local:"

// Document is a snap's persisted key-value state.
type Document map[string]any

// Request is a single JSON-RPC call addressed to a snap.
type Request struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Handler is implemented by every snap.
type Handler interface {
	OnRPCRequest(ctx context.Context, origin string, req Request) (any, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, origin string, req Request) (any, error)

func (f HandlerFunc) OnRPCRequest(ctx context.Context, origin string, req Request) (any, error) {
	return f(ctx, origin, req)
}

// Host is the set of capabilities the wallet runtime grants a snap. State
// operations are scoped to the calling snap's identity.
type Host interface {
	// GetState returns the persisted document, or nil when none exists.
	GetState(ctx context.Context) (Document, error)
	UpdateState(ctx context.Context, doc Document) error
	ClearState(ctx context.Context) error
	Dialog(ctx context.Context, d ui.Dialog) (any, error)
	// InvokeSnap performs an inter-plugin call and returns the raw result.
	InvokeSnap(ctx context.Context, snapID string, req Request) (json.RawMessage, error)
}

// Descriptor identifies an installed snap as reported by wallet_getSnaps.
type Descriptor struct {
	ID      string `json:"id"`
	Version string `json:"version"`
	Enabled bool   `json:"enabled"`
	Blocked bool   `json:"blocked"`
}

// IsLocal reports whether the descriptor points at a local development build.
func (d Descriptor) IsLocal() bool { return IsLocal(d.ID) }

// InstallParams are the per-snap options of wallet_requestSnaps.
type InstallParams struct {
	Version string `json:"version,omitempty"`
}

// IsLocal reports whether a snap ID carries the local development prefix.
func IsLocal(snapID string) bool {
	return strings.HasPrefix(snapID, LocalPrefix)
}

// PrettyJSON renders v with two-space indentation.
func PrettyJSON(v any) (string, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}
