// Package encryptsnap is the snap that pulls the state snap's document over an
// inter-plugin call and shows it to the user after passing it through a
// Transform.
package encryptsnap

import (
	"context"
	"encoding/json"
	"log/slog"

	foundationerrors "git.home.luguber.info/inful/snapbridge/internal/foundation/errors"
	"git.home.luguber.info/inful/snapbridge/internal/host"
	"git.home.luguber.info/inful/snapbridge/internal/logfields"
	"git.home.luguber.info/inful/snapbridge/internal/snap"
	"git.home.luguber.info/inful/snapbridge/internal/snap/ui"
	"git.home.luguber.info/inful/snapbridge/internal/snaps/statesnap"
)

// Version of the bundled encrypt snap.
const Version = "0.1.0"

// MethodInvokeSnap is the single RPC method the snap exposes.
const MethodInvokeSnap = "invoke_snap"

// Transform derives what is displayed and returned from the fetched state.
// No encryption scheme is implemented; Passthrough is the default.
type Transform func(ctx context.Context, state snap.Document) (any, error)

// Passthrough logs the fetched state and returns it unchanged.
func Passthrough(ctx context.Context, state snap.Document) (any, error) {
	slog.DebugContext(ctx, "Fetched state from state snap", slog.Any("state", state))
	return state, nil
}

// Service implements the encrypt snap.
type Service struct {
	host        snap.Host
	stateSnapID string
	transform   Transform
	router      *snap.Router
}

// Option customizes a Service.
type Option func(*Service)

// WithTransform replaces the Passthrough transform.
func WithTransform(t Transform) Option {
	return func(s *Service) {
		if t != nil {
			s.transform = t
		}
	}
}

// New creates the snap bound to h, reading state from stateSnapID.
func New(h snap.Host, stateSnapID string, opts ...Option) *Service {
	s := &Service{host: h, stateSnapID: stateSnapID, transform: Passthrough}
	for _, opt := range opts {
		opt(s)
	}
	s.router = snap.NewRouter().Handle(MethodInvokeSnap, s.handleInvoke)
	return s
}

// Package returns the installable package for snapID, addressing the state
// snap at stateSnapID.
func Package(snapID, stateSnapID string, opts ...Option) host.Package {
	return host.Package{
		ID:          snapID,
		Version:     Version,
		Description: "Reads the state snap's document and shows it to the user",
		Factory:     func(h snap.Host) snap.Handler { return New(h, stateSnapID, opts...) },
	}
}

// OnRPCRequest implements snap.Handler.
func (s *Service) OnRPCRequest(ctx context.Context, origin string, req snap.Request) (any, error) {
	return s.router.OnRPCRequest(ctx, origin, req)
}

// Invoke fetches the state document, transforms it, shows the result in a
// confirmation dialog and returns the dialog's answer.
func (s *Service) Invoke(ctx context.Context) (any, error) {
	raw, err := s.host.InvokeSnap(ctx, s.stateSnapID, snap.Request{Method: statesnap.MethodGetState})
	if err != nil {
		return nil, foundationerrors.InterPluginError("state snap call failed").
			WithCause(err).
			WithContext("target", s.stateSnapID).
			Build()
	}
	state, err := snap.DecodeDocument(raw)
	if err != nil {
		return nil, foundationerrors.InterPluginError("state snap returned a non-object result").
			WithCause(err).
			WithContext("target", s.stateSnapID).
			Build()
	}

	shown, err := s.transform(ctx, state)
	if err != nil {
		return nil, err
	}
	pretty, err := snap.PrettyJSON(shown)
	if err != nil {
		return nil, err
	}

	slog.DebugContext(ctx, "Showing state snap document", logfields.SnapID(s.stateSnapID))
	return s.host.Dialog(ctx, ui.Confirmation(ui.Panel(
		ui.Text("Other snap state:"),
		ui.Copyable(pretty),
	)))
}

func (s *Service) handleInvoke(ctx context.Context, _ string, _ json.RawMessage) (any, error) {
	return s.Invoke(ctx)
}
