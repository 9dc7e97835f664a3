// Package statesnap is the snap that owns a persisted key-value document and
// exposes setState, getState and clearState.
package statesnap

import (
	"context"
	"encoding/json"

	"git.home.luguber.info/inful/snapbridge/internal/host"
	"git.home.luguber.info/inful/snapbridge/internal/snap"
	"git.home.luguber.info/inful/snapbridge/internal/snap/ui"
)

// Version of the bundled state snap.
const Version = "0.1.0"

// RPC method names.
const (
	MethodSetState   = "setState"
	MethodGetState   = "getState"
	MethodClearState = "clearState"
)

// Service implements the state snap on top of the host capabilities.
type Service struct {
	host   snap.Host
	router *snap.Router
}

// New creates the snap bound to h.
func New(h snap.Host) *Service {
	s := &Service{host: h}
	s.router = snap.NewRouter().
		Handle(MethodSetState, s.handleSetState).
		Handle(MethodGetState, s.handleGetState).
		Handle(MethodClearState, s.handleClearState)
	return s
}

// Package returns the installable package for snapID.
func Package(snapID string) host.Package {
	return host.Package{
		ID:          snapID,
		Version:     Version,
		Description: "Persists a key-value document and shows it after every update",
		Factory:     func(h snap.Host) snap.Handler { return New(h) },
	}
}

// OnRPCRequest implements snap.Handler.
func (s *Service) OnRPCRequest(ctx context.Context, origin string, req snap.Request) (any, error) {
	return s.router.OnRPCRequest(ctx, origin, req)
}

// SetState merges params into the stored document, persists the result,
// shows it in a confirmation dialog and returns it.
func (s *Service) SetState(ctx context.Context, params snap.Document) (snap.Document, error) {
	current, err := s.GetState(ctx)
	if err != nil {
		return nil, err
	}
	merged := snap.Merge(current, params)
	if err := s.host.UpdateState(ctx, merged); err != nil {
		return nil, err
	}

	pretty, err := snap.PrettyJSON(merged)
	if err != nil {
		return nil, err
	}
	if _, err := s.host.Dialog(ctx, ui.Confirmation(ui.Panel(
		ui.Text("State set to:"),
		ui.Copyable(pretty),
	))); err != nil {
		return nil, err
	}
	return merged, nil
}

// GetState returns the stored document, or an empty one.
func (s *Service) GetState(ctx context.Context) (snap.Document, error) {
	doc, err := s.host.GetState(ctx)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return snap.Document{}, nil
	}
	return doc, nil
}

// ClearState deletes the stored document.
func (s *Service) ClearState(ctx context.Context) (bool, error) {
	if err := s.host.ClearState(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) handleSetState(ctx context.Context, _ string, params json.RawMessage) (any, error) {
	doc, err := snap.DecodeParams(params)
	if err != nil {
		return nil, err
	}
	return s.SetState(ctx, doc)
}

func (s *Service) handleGetState(ctx context.Context, _ string, _ json.RawMessage) (any, error) {
	return s.GetState(ctx)
}

func (s *Service) handleClearState(ctx context.Context, _ string, _ json.RawMessage) (any, error) {
	return s.ClearState(ctx)
}
