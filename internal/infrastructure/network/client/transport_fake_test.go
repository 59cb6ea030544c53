package client

import (
	"context"
	"errors"
	"sync"

	jsoniter "github.com/json-iterator/go"

	"portfolio_tracker/internal/app/port"
	"portfolio_tracker/internal/domain/entity"
	"portfolio_tracker/internal/pkg/logger"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var testLogger = logger.NewSlogAdapter()

var errRPC = errors.New("rpc failure")

// fakeTransport answers every request from canned JSON.
type fakeTransport struct {
	mu      sync.Mutex
	rpc     func(method string, params []any) (string, error)
	rest    func(path string) (string, error)
	batches int
	paths   []string
}

var _ port.Transport = (*fakeTransport)(nil)

func (f *fakeTransport) CallJSONRPC(_ context.Context, _ entity.Endpoint, result any, method string, params ...any) error {
	raw, err := f.rpc(method, params)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(raw), result)
}

func (f *fakeTransport) BatchJSONRPC(_ context.Context, _ entity.Endpoint, calls []port.RPCCall) error {
	f.mu.Lock()
	f.batches++
	f.mu.Unlock()
	for i := range calls {
		raw, err := f.rpc(calls[i].Method, calls[i].Params)
		if err != nil {
			calls[i].Error = err
			continue
		}
		calls[i].Error = json.Unmarshal([]byte(raw), calls[i].Result)
	}
	return nil
}

func (f *fakeTransport) GetJSON(_ context.Context, _ entity.Endpoint, path string, out any) error {
	f.mu.Lock()
	f.paths = append(f.paths, path)
	f.mu.Unlock()
	raw, err := f.rest(path)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(raw), out)
}
