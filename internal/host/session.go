package host

import (
	"context"
	"fmt"

	foundationerrors "git.home.luguber.info/inful/snapbridge/internal/foundation/errors"
	"git.home.luguber.info/inful/snapbridge/internal/snap"
	"git.home.luguber.info/inful/snapbridge/internal/version"
)

// ClientVersion is what web3_clientVersion reports. Pages detect snap support
// by looking for "flask" in it.
func ClientVersion() string {
	return "MetaMask/v" + version.Version + "-flask"
}

// Session is the provider surface a page sees, bound to the page's origin.
type Session struct {
	rt     *Runtime
	origin string
}

// NewSession binds a session to origin.
func (rt *Runtime) NewSession(origin string) *Session {
	return &Session{rt: rt, origin: origin}
}

// Origin returns the origin the session acts for.
func (s *Session) Origin() string { return s.origin }

// ClientVersion implements web3_clientVersion.
func (s *Session) ClientVersion(context.Context) (string, error) {
	return ClientVersion(), nil
}

// GetSnaps implements wallet_getSnaps: the snaps this origin is connected to.
func (s *Session) GetSnaps(context.Context) (map[string]snap.Descriptor, error) {
	return s.rt.GetSnaps(s.origin), nil
}

// RequestSnaps implements wallet_requestSnaps.
func (s *Session) RequestSnaps(ctx context.Context, req map[string]snap.InstallParams) (map[string]snap.Descriptor, error) {
	if len(req) == 0 {
		return nil, foundationerrors.InvalidParamsError("wallet_requestSnaps requires at least one snap").Build()
	}
	return s.rt.RequestSnaps(ctx, s.origin, req)
}

// InvokeSnap implements wallet_invokeSnap. The origin must have connected to
// the snap first.
func (s *Session) InvokeSnap(ctx context.Context, snapID string, req snap.Request) (any, error) {
	if !s.rt.Permitted(s.origin, snapID) {
		return nil, foundationerrors.PermissionError(fmt.Sprintf("The snap %q has not been connected to %s.", snapID, s.origin)).
			WithContext("snap_id", snapID).
			WithContext("origin", s.origin).
			Build()
	}
	return s.rt.Invoke(ctx, s.origin, snapID, req)
}
