package transport

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	jsoniter "github.com/json-iterator/go"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"portfolio_tracker/internal/app/port"
	"portfolio_tracker/internal/domain/entity"
	"portfolio_tracker/internal/infrastructure/metrics"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Options configures TransportImpl.
type Options struct {
	RequestTimeout time.Duration
	MaxRetries     int
	BackoffBase    time.Duration
	RatePerSecond  float64
	Burst          int
	ClientIdle     time.Duration
}

// TransportImpl implements port.Transport with go-ethereum's JSON-RPC client and fasthttp for REST.
type TransportImpl struct {
	opts    Options
	pool    *rpcClientPool
	rest    *fasthttp.Client
	retry   retryPolicy
	logger  *zap.Logger
	metrics *metrics.Metrics

	limitersMu sync.Mutex
	limiters   map[string]*rate.Limiter
}

// New creates the transport. m may be nil.
func New(opts Options, logger *zap.Logger, m *metrics.Metrics) *TransportImpl {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 15 * time.Second
	}
	if opts.ClientIdle <= 0 {
		opts.ClientIdle = 10 * time.Minute
	}
	if opts.RatePerSecond <= 0 {
		opts.RatePerSecond = 10
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}
	logger = logger.Named("Transport")
	return &TransportImpl{
		opts:     opts,
		pool:     newRPCClientPool(opts.ClientIdle, &http.Client{}, logger),
		rest:     &fasthttp.Client{Name: "portfolio_tracker"},
		retry:    retryPolicy{maxRetries: opts.MaxRetries, base: opts.BackoffBase},
		logger:   logger,
		metrics:  m,
		limiters: make(map[string]*rate.Limiter),
	}
}

var _ port.Transport = (*TransportImpl)(nil)

// CallJSONRPC implements port.Transport.
func (t *TransportImpl) CallJSONRPC(ctx context.Context, ep entity.Endpoint, result any, method string, params ...any) error {
	client, err := t.pool.get(ctx, ep)
	if err != nil {
		return err
	}
	return t.run(ctx, "jsonrpc", ep.URL, func(actx context.Context) error {
		return client.CallContext(actx, result, method, params...)
	})
}

// BatchJSONRPC implements port.Transport.
func (t *TransportImpl) BatchJSONRPC(ctx context.Context, ep entity.Endpoint, calls []port.RPCCall) error {
	if len(calls) == 0 {
		return nil
	}
	client, err := t.pool.get(ctx, ep)
	if err != nil {
		return err
	}

	var elems []rpc.BatchElem
	err = t.run(ctx, "batch", ep.URL, func(actx context.Context) error {
		elems = make([]rpc.BatchElem, len(calls))
		for i, c := range calls {
			elems[i] = rpc.BatchElem{Method: c.Method, Args: c.Params, Result: c.Result}
		}
		return client.BatchCallContext(actx, elems)
	})
	if err != nil {
		return err
	}
	for i := range calls {
		calls[i].Error = elems[i].Error
	}
	return nil
}

// GetJSON implements port.Transport.
func (t *TransportImpl) GetJSON(ctx context.Context, ep entity.Endpoint, path string, out any) error {
	requestURL := strings.TrimRight(ep.URL, "/") + path
	return t.run(ctx, "rest", ep.URL, func(actx context.Context) error {
		body, err := t.get(actx, requestURL, ep.APIKey)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("failed to decode response from %s: %w", requestURL, err)
		}
		return nil
	})
}

// Close drops every pooled client.
func (t *TransportImpl) Close() {
	t.pool.closeAll()
}

// run wraps one logical request with rate limiting, per-attempt timeouts, retries and metrics.
func (t *TransportImpl) run(ctx context.Context, kind, endpoint string, call func(context.Context) error) error {
	host := hostOf(endpoint)
	limiter := t.limiter(host)
	started := time.Now()

	err := t.retry.do(ctx, func(attempt int) error {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}
		if attempt > 0 {
			t.logger.Debug("Retrying request", zap.String("kind", kind), zap.String("host", host), zap.Int("attempt", attempt))
		}
		actx, cancel := context.WithTimeout(ctx, t.opts.RequestTimeout)
		defer cancel()
		return call(actx)
	})

	outcome := "ok"
	if err != nil {
		outcome = "error"
		t.logger.Debug("Request failed", zap.String("kind", kind), zap.String("host", host), zap.Error(err))
	}
	t.metrics.ObserveRequest(kind, host, outcome, time.Since(started))
	return err
}

func (t *TransportImpl) limiter(host string) *rate.Limiter {
	t.limitersMu.Lock()
	defer t.limitersMu.Unlock()
	l, ok := t.limiters[host]
	if !ok {
		l = rate.NewLimiter(rate.Limit(t.opts.RatePerSecond), t.opts.Burst)
		t.limiters[host] = l
	}
	return l
}

type restResult struct {
	body []byte
	err  error
}

// get performs a GET with fasthttp. fasthttp has no context support, so the request runs in
// its own goroutine with a deadline and the caller stops waiting when ctx is done.
func (t *TransportImpl) get(ctx context.Context, requestURL, apiKey string) ([]byte, error) {
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(t.opts.RequestTimeout)
	}

	done := make(chan restResult, 1)
	go func() {
		req := fasthttp.AcquireRequest()
		defer fasthttp.ReleaseRequest(req)
		resp := fasthttp.AcquireResponse()
		defer fasthttp.ReleaseResponse(resp)

		req.SetRequestURI(requestURL)
		req.Header.SetMethod(fasthttp.MethodGet)
		req.Header.Set("Accept", "application/json")
		if apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+apiKey)
		}

		if err := t.rest.DoDeadline(req, resp, deadline); err != nil {
			done <- restResult{err: fmt.Errorf("failed to execute request to %s: %w", requestURL, err)}
			return
		}
		body := append([]byte(nil), resp.Body()...)
		if code := resp.StatusCode(); code < 200 || code > 299 {
			done <- restResult{err: &StatusError{
				URL:        requestURL,
				Code:       code,
				RetryAfter: parseRetryAfter(string(resp.Header.Peek("Retry-After")), time.Now()),
				Body:       string(body),
			}}
			return
		}
		done <- restResult{body: body}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		return r.body, r.err
	}
}

func hostOf(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return endpoint
	}
	return u.Host
}
