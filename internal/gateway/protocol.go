package gateway

import (
	"encoding/json"

	"github.com/sourcegraph/jsonrpc2"

	foundationerrors "git.home.luguber.info/inful/snapbridge/internal/foundation/errors"
	"git.home.luguber.info/inful/snapbridge/internal/snap"
)

// Provider methods served by the gateway.
const (
	MethodClientVersion = "web3_clientVersion"
	MethodGetSnaps      = "wallet_getSnaps"
	MethodRequestSnaps  = "wallet_requestSnaps"
	MethodInvokeSnap    = "wallet_invokeSnap"
)

// InvokeParams are the params of wallet_invokeSnap.
type InvokeParams struct {
	SnapID  string       `json:"snapId"`
	Request snap.Request `json:"request"`
}

var rpcAdapter = foundationerrors.NewRPCErrorAdapter()

// toWire converts err into the error object sent to the peer.
func toWire(err error) *jsonrpc2.Error {
	obj := rpcAdapter.ToRPC(err)
	wire := &jsonrpc2.Error{Code: obj.Code, Message: obj.Message}
	if obj.Data != nil {
		wire.SetError(obj.Data)
	}
	return wire
}

// fromWire rebuilds a classified error from a received error object.
func fromWire(wire *jsonrpc2.Error) error {
	obj := foundationerrors.RPCErrorObject{Code: wire.Code, Message: wire.Message}
	if wire.Data != nil {
		_ = json.Unmarshal(*wire.Data, &obj.Data)
	}
	return rpcAdapter.FromRPC(obj)
}

func rawParams(req *jsonrpc2.Request) json.RawMessage {
	if req.Params == nil {
		return nil
	}
	return *req.Params
}
