package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/sourcegraph/jsonrpc2"

	"git.home.luguber.info/inful/snapbridge/internal/connection"
	foundationerrors "git.home.luguber.info/inful/snapbridge/internal/foundation/errors"
	"git.home.luguber.info/inful/snapbridge/internal/snap"
)

// DefaultDialTimeout bounds Dial when ctx has no deadline.
const DefaultDialTimeout = 5 * time.Second

// Client talks to a gateway. It implements connection.Provider.
type Client struct {
	conn *jsonrpc2.Conn
	addr string
}

var _ connection.Provider = (*Client)(nil)

// Dial connects to the gateway at addr.
func Dial(ctx context.Context, addr string) (*Client, error) {
	d := net.Dialer{Timeout: DefaultDialTimeout}
	c, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, foundationerrors.NetworkError(fmt.Sprintf("connect to gateway %s", addr)).
			WithCause(err).
			WithContext("addr", addr).
			Retryable().
			Build()
	}
	return NewClient(ctx, c), nil
}

// NewClient wraps an established connection.
func NewClient(ctx context.Context, c net.Conn) *Client {
	conn := jsonrpc2.NewConn(ctx,
		jsonrpc2.NewBufferedStream(c, jsonrpc2.VSCodeObjectCodec{}),
		jsonrpc2.HandlerWithError(refuseRequests))
	return &Client{conn: conn, addr: c.RemoteAddr().String()}
}

// The gateway never calls back into a page.
func refuseRequests(_ context.Context, _ *jsonrpc2.Conn, req *jsonrpc2.Request) (any, error) {
	return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeMethodNotFound, Message: "client does not serve " + req.Method}
}

// Close closes the connection.
func (c *Client) Close() error {
	if err := c.conn.Close(); err != nil && !errors.Is(err, jsonrpc2.ErrClosed) {
		return err
	}
	return nil
}

// Done is closed when the connection to the gateway is gone.
func (c *Client) Done() <-chan struct{} {
	return c.conn.DisconnectNotify()
}

func (c *Client) call(ctx context.Context, method string, params, result any) error {
	err := c.conn.Call(ctx, method, params, result)
	if err == nil {
		return nil
	}
	var wire *jsonrpc2.Error
	if errors.As(err, &wire) {
		return fromWire(wire)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return foundationerrors.NetworkError(fmt.Sprintf("%s via gateway %s", method, c.addr)).
		WithCause(err).
		WithContext("method", method).
		Build()
}

// ClientVersion implements web3_clientVersion.
func (c *Client) ClientVersion(ctx context.Context) (string, error) {
	var v string
	if err := c.call(ctx, MethodClientVersion, nil, &v); err != nil {
		return "", err
	}
	return v, nil
}

// GetSnaps implements wallet_getSnaps.
func (c *Client) GetSnaps(ctx context.Context) (map[string]snap.Descriptor, error) {
	var out map[string]snap.Descriptor
	if err := c.call(ctx, MethodGetSnaps, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// RequestSnaps implements wallet_requestSnaps.
func (c *Client) RequestSnaps(ctx context.Context, req map[string]snap.InstallParams) (map[string]snap.Descriptor, error) {
	var out map[string]snap.Descriptor
	if err := c.call(ctx, MethodRequestSnaps, req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// InvokeSnap implements wallet_invokeSnap. The result is decoded into plain
// JSON values (map[string]any, []any, float64, string, bool or nil).
func (c *Client) InvokeSnap(ctx context.Context, snapID string, req snap.Request) (any, error) {
	var raw json.RawMessage
	if err := c.call(ctx, MethodInvokeSnap, InvokeParams{SnapID: snapID, Request: req}, &raw); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, foundationerrors.InternalError("decode snap result").WithCause(err).Build()
	}
	return out, nil
}
