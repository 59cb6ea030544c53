package transport

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"portfolio_tracker/internal/domain/entity"
)

// rpcClientPool keeps one JSON-RPC client per endpoint and closes clients left idle.
type rpcClientPool struct {
	clients    *cache.Cache
	mu         sync.Mutex
	httpClient *http.Client
	logger     *zap.Logger
}

func newRPCClientPool(idle time.Duration, httpClient *http.Client, logger *zap.Logger) *rpcClientPool {
	p := &rpcClientPool{
		clients:    cache.New(idle, idle),
		httpClient: httpClient,
		logger:     logger,
	}
	p.clients.OnEvicted(func(key string, v interface{}) {
		if client, ok := v.(*rpc.Client); ok {
			client.Close()
			p.logger.Debug("Closed idle RPC client", zap.String("endpoint", key))
		}
	})
	return p
}

func poolKey(ep entity.Endpoint) string {
	if ep.APIKey == "" {
		return ep.URL
	}
	return ep.URL + "#auth"
}

// get returns the cached client for the endpoint, dialing a new one when needed.
func (p *rpcClientPool) get(ctx context.Context, ep entity.Endpoint) (*rpc.Client, error) {
	key := poolKey(ep)

	p.mu.Lock()
	defer p.mu.Unlock()

	if v, ok := p.clients.Get(key); ok {
		// продлеваем TTL при каждом использовании
		p.clients.SetDefault(key, v)
		return v.(*rpc.Client), nil
	}

	opts := []rpc.ClientOption{rpc.WithHTTPClient(p.httpClient)}
	if ep.APIKey != "" {
		opts = append(opts, rpc.WithHeader("Authorization", "Bearer "+ep.APIKey))
	}
	client, err := rpc.DialOptions(ctx, ep.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to dial RPC %s: %w", ep.URL, err)
	}
	p.logger.Debug("Created new RPC client", zap.String("endpoint", ep.URL))
	p.clients.SetDefault(key, client)
	return client, nil
}

// size reports the number of pooled clients.
func (p *rpcClientPool) size() int {
	return p.clients.ItemCount()
}

// closeAll evicts every client, closing it.
func (p *rpcClientPool) closeAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for key := range p.clients.Items() {
		p.clients.Delete(key)
	}
}
