package transport_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"portfolio_tracker/internal/app/port"
	"portfolio_tracker/internal/domain/entity"
	"portfolio_tracker/internal/infrastructure/metrics"
	"portfolio_tracker/internal/infrastructure/network/transport"
)

type rpcRequest struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcHandler func(method string, params []json.RawMessage) (any, *rpcError)

// newRPCServer serves single and batched JSON-RPC requests.
func newRPCServer(t *testing.T, handle rpcHandler) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		respond := func(req rpcRequest) map[string]any {
			result, rerr := handle(req.Method, req.Params)
			msg := map[string]any{"jsonrpc": "2.0", "id": req.ID}
			if rerr != nil {
				msg["error"] = rerr
			} else {
				msg["result"] = result
			}
			return msg
		}

		w.Header().Set("Content-Type", "application/json")
		if strings.HasPrefix(strings.TrimSpace(string(body)), "[") {
			var reqs []rpcRequest
			require.NoError(t, json.Unmarshal(body, &reqs))
			out := make([]map[string]any, len(reqs))
			for i, req := range reqs {
				out[i] = respond(req)
			}
			_ = json.NewEncoder(w).Encode(out)
			return
		}
		var req rpcRequest
		require.NoError(t, json.Unmarshal(body, &req))
		_ = json.NewEncoder(w).Encode(respond(req))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTransport(maxRetries int) *transport.TransportImpl {
	return transport.New(transport.Options{
		RequestTimeout: 2 * time.Second,
		MaxRetries:     maxRetries,
		BackoffBase:    time.Millisecond,
		RatePerSecond:  1000,
		Burst:          100,
	}, zap.NewNop(), metrics.New())
}

func TestCallJSONRPC(t *testing.T) {
	srv := newRPCServer(t, func(method string, params []json.RawMessage) (any, *rpcError) {
		require.Equal(t, "eth_getBalance", method)
		require.Len(t, params, 2)
		return "0xde0b6b3a7640000", nil
	})
	tr := newTransport(0)
	defer tr.Close()

	var balance hexutil.Big
	err := tr.CallJSONRPC(context.Background(), entity.Endpoint{URL: srv.URL}, &balance, "eth_getBalance", "0x000000000000000000000000000000000000dEaD", "latest")
	require.NoError(t, err)
	assert.Equal(t, "1000000000000000000", balance.ToInt().String())
}

func TestCallJSONRPCRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "upstream busy", http.StatusServiceUnavailable)
			return
		}
		var req rpcRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		_ = json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": "0x1"})
	}))
	defer srv.Close()

	tr := newTransport(3)
	var out string
	require.NoError(t, tr.CallJSONRPC(context.Background(), entity.Endpoint{URL: srv.URL}, &out, "eth_chainId"))
	assert.Equal(t, "0x1", out)
	assert.Equal(t, int32(3), calls.Load())
}

func TestCallJSONRPCDoesNotRetryRPCErrors(t *testing.T) {
	var calls atomic.Int32
	srv := newRPCServer(t, func(string, []json.RawMessage) (any, *rpcError) {
		calls.Add(1)
		return nil, &rpcError{Code: -32602, Message: "invalid params"}
	})
	tr := newTransport(3)

	var out string
	err := tr.CallJSONRPC(context.Background(), entity.Endpoint{URL: srv.URL}, &out, "getBalance", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid params")
	assert.Equal(t, int32(1), calls.Load())
}

func TestBatchJSONRPCReportsPerCallErrors(t *testing.T) {
	srv := newRPCServer(t, func(method string, params []json.RawMessage) (any, *rpcError) {
		if method == "eth_call" {
			return nil, &rpcError{Code: 3, Message: "execution reverted"}
		}
		return "0x2a", nil
	})
	tr := newTransport(0)

	var ok, bad hexutil.Big
	calls := []port.RPCCall{
		{Method: "eth_getBalance", Params: []any{"0x0", "latest"}, Result: &ok},
		{Method: "eth_call", Params: []any{map[string]any{"to": "0x0"}, "latest"}, Result: &bad},
	}
	require.NoError(t, tr.BatchJSONRPC(context.Background(), entity.Endpoint{URL: srv.URL}, calls))
	assert.NoError(t, calls[0].Error)
	assert.Equal(t, int64(42), ok.ToInt().Int64())
	assert.Error(t, calls[1].Error)
}

func TestGetJSONHonoursRetryAfterAndAuth(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/accounts/abc", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = io.WriteString(w, `{"balance": 5000000000}`)
	}))
	defer srv.Close()

	tr := newTransport(2)
	var out struct {
		Balance int64 `json:"balance"`
	}
	err := tr.GetJSON(context.Background(), entity.Endpoint{URL: srv.URL + "/v2/", APIKey: "secret"}, "/accounts/abc", &out)
	require.NoError(t, err)
	assert.Equal(t, int64(5_000_000_000), out.Balance)
	assert.Equal(t, int32(2), calls.Load())
}

func TestGetJSONClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"error":"entity not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	tr := newTransport(3)
	var out map[string]any
	err := tr.GetJSON(context.Background(), entity.Endpoint{URL: srv.URL}, "/jettons/x", &out)

	var statusErr *transport.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.Code)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGetJSONStopsOnCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(500 * time.Millisecond):
		}
		_, _ = io.WriteString(w, `{}`)
	}))
	defer srv.Close()

	tr := newTransport(3)
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	started := time.Now()
	var out map[string]any
	err := tr.GetJSON(ctx, entity.Endpoint{URL: srv.URL}, "/slow", &out)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(started), 400*time.Millisecond)
}
