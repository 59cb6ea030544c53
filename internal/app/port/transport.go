package port

import (
	"context"

	"portfolio_tracker/internal/domain/entity"
)

// RPCCall is one element of a JSON-RPC batch. Result must be a pointer.
type RPCCall struct {
	Method string
	Params []any
	Result any
	Error  error
}

// Transport performs network requests on behalf of the adapters and owns
// timeouts, rate limiting and retries of transient failures.
type Transport interface {
	CallJSONRPC(ctx context.Context, ep entity.Endpoint, result any, method string, params ...any) error
	// BatchJSONRPC sends calls in one request. Per-call failures are stored in RPCCall.Error;
	// the returned error covers the request as a whole.
	BatchJSONRPC(ctx context.Context, ep entity.Endpoint, calls []RPCCall) error
	// GetJSON issues a REST GET for ep.URL+path and decodes the body into out.
	GetJSON(ctx context.Context, ep entity.Endpoint, path string, out any) error
}
