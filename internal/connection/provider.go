package connection

import (
	"context"

	"git.home.luguber.info/inful/snapbridge/internal/snap"
)

// Provider is the host capability a page talks to. host.Session implements it
// in-process and gateway.Client over the network.
type Provider interface {
	ClientVersion(ctx context.Context) (string, error)
	GetSnaps(ctx context.Context) (map[string]snap.Descriptor, error)
	RequestSnaps(ctx context.Context, req map[string]snap.InstallParams) (map[string]snap.Descriptor, error)
	InvokeSnap(ctx context.Context, snapID string, req snap.Request) (any, error)
}

// Origins names the two snaps the page drives.
type Origins struct {
	State   string
	Encrypt string
}
