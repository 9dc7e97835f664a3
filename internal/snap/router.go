package snap

import (
	"context"
	"encoding/json"
	"sort"

	foundationerrors "git.home.luguber.info/inful/snapbridge/internal/foundation/errors"
)

// MethodNotFoundMessage is the message carried by every unknown-method error.
const MethodNotFoundMessage = "Method not found."

// ErrMethodNotFound matches any error returned for an unknown method via errors.Is.
var ErrMethodNotFound = foundationerrors.MethodNotFoundError(MethodNotFoundMessage).Build()

// MethodFunc handles one RPC method.
type MethodFunc func(ctx context.Context, origin string, params json.RawMessage) (any, error)

// Router dispatches requests by method name.
type Router struct {
	methods map[string]MethodFunc
}

// NewRouter creates an empty router.
func NewRouter() *Router {
	return &Router{methods: make(map[string]MethodFunc)}
}

// Handle registers fn for method, replacing any previous registration.
func (r *Router) Handle(method string, fn MethodFunc) *Router {
	r.methods[method] = fn
	return r
}

// Methods lists the registered method names in sorted order.
func (r *Router) Methods() []string {
	names := make([]string, 0, len(r.methods))
	for name := range r.methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// OnRPCRequest implements Handler.
func (r *Router) OnRPCRequest(ctx context.Context, origin string, req Request) (any, error) {
	fn, ok := r.methods[req.Method]
	if !ok {
		return nil, foundationerrors.MethodNotFoundError(MethodNotFoundMessage).
			WithContext("method", req.Method).
			Build()
	}
	return fn(ctx, origin, req.Params)
}
