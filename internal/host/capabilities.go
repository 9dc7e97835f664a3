package host

import (
	"context"
	"encoding/json"

	foundationerrors "git.home.luguber.info/inful/snapbridge/internal/foundation/errors"
	"git.home.luguber.info/inful/snapbridge/internal/snap"
	"git.home.luguber.info/inful/snapbridge/internal/snap/ui"
)

// snapHost is the snap.Host handed to one installed snap.
type snapHost struct {
	rt     *Runtime
	snapID string
}

var _ snap.Host = (*snapHost)(nil)

func (h *snapHost) GetState(ctx context.Context) (snap.Document, error) {
	doc, found, err := h.rt.store.Get(ctx, h.snapID)
	if err != nil {
		return nil, foundationerrors.StorageError("read snap state").WithCause(err).WithContext("snap_id", h.snapID).Build()
	}
	if !found {
		return nil, nil
	}
	return doc, nil
}

func (h *snapHost) UpdateState(ctx context.Context, doc snap.Document) error {
	if err := h.rt.store.Put(ctx, h.snapID, doc); err != nil {
		return foundationerrors.StorageError("write snap state").WithCause(err).WithContext("snap_id", h.snapID).Build()
	}
	return nil
}

func (h *snapHost) ClearState(ctx context.Context) error {
	if err := h.rt.store.Delete(ctx, h.snapID); err != nil {
		return foundationerrors.StorageError("clear snap state").WithCause(err).WithContext("snap_id", h.snapID).Build()
	}
	return nil
}

func (h *snapHost) Dialog(ctx context.Context, d ui.Dialog) (any, error) {
	return h.rt.presenter.Present(ctx, h.snapID, d)
}

func (h *snapHost) InvokeSnap(ctx context.Context, snapID string, req snap.Request) (json.RawMessage, error) {
	return h.rt.invokeFromSnap(ctx, h.snapID, snapID, req)
}
