package rpc

import (
	"context"
	"time"

	"github.com/go-i2p/respool/lib/pool"
)

// PooledConfig configures a PooledClient.
type PooledConfig struct {
	ClientConfig

	// Pool holds the pool parameters. InitialCapacity connections are
	// dialed eagerly when the pooled client is created.
	Pool pool.Config
}

// DefaultPooledConfig returns a PooledConfig with sensible defaults.
func DefaultPooledConfig() PooledConfig {
	return PooledConfig{
		ClientConfig: ClientConfig{
			Timeout: 30 * time.Second,
		},
		Pool: pool.Config{
			InitialCapacity: 2,
			ScaleInterval:   30 * time.Second,
			MinIdle:         1,
		},
	}
}

// PooledClient is a remote-service client multiplexing calls over a pool of
// connections. It is safe for concurrent use; each call borrows one Client
// for its duration.
type PooledClient struct {
	pool *pool.Pool[*Client]
}

// NewPooledClient creates a pooled client, eagerly dialing the pool's
// initial connections.
func NewPooledClient(cfg PooledConfig) (*PooledClient, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	factory := func(ctx context.Context) (*Client, error) {
		return Dial(ctx, cfg.ClientConfig)
	}

	p, err := pool.New(factory, cfg.Pool)
	if err != nil {
		return nil, err
	}

	log.WithField("initial", p.TotalCapacity()).Debug("pooled rpc client created")
	return &PooledClient{pool: p}, nil
}

// Call borrows a connection from the pool, invokes the remote method, and
// returns the connection. A connection broken by a transport failure is
// returned too: it redials itself on its next use, so pool capacity
// accounting stays exact.
func (pc *PooledClient) Call(ctx context.Context, method string, params, result any) error {
	c, err := pc.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer pc.pool.Release(c)

	return c.Call(ctx, method, params, result)
}

// Stats exposes the underlying pool statistics.
func (pc *PooledClient) Stats() pool.Stats {
	return pc.pool.Stats()
}

// Close tears down the pool and every idle connection.
func (pc *PooledClient) Close() error {
	return pc.pool.Close()
}
