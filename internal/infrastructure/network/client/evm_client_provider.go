package client

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"wallet_console/internal/app/port"
	"wallet_console/internal/domain/entity"

	"golang.org/x/time/rate"
)

// ProviderConfig carries the connection settings of the chain adapter.
type ProviderConfig struct {
	ConnectionTimeout time.Duration
	RPCCallTimeout    time.Duration
	RateLimit         float64
	BurstLimit        int
}

// EVMClientProvider implements port.ChainQuerier on top of a lazily dialled EVMClient. A node
// that is down at startup does not stop the console; dialling is retried on the next query.
type EVMClientProvider struct {
	netDef            entity.NetworkDefinition
	limiter           *rate.Limiter
	connectionTimeout time.Duration
	rpcCallTimeout    time.Duration
	logger            port.Logger

	mu     sync.Mutex
	client *EVMClient
}

var _ port.ChainQuerier = (*EVMClientProvider)(nil)

// NewEVMClientProvider creates a provider for netDef. All queries share one rate limiter.
func NewEVMClientProvider(netDef entity.NetworkDefinition, cfg ProviderConfig, l port.Logger) *EVMClientProvider {
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.BurstLimit
	if burst <= 0 {
		burst = 1
	}
	return &EVMClientProvider{
		netDef:            netDef,
		limiter:           rate.NewLimiter(limit, burst),
		connectionTimeout: cfg.ConnectionTimeout,
		rpcCallTimeout:    cfg.RPCCallTimeout,
		logger:            l,
	}
}

// GetClient returns the cached client, dialling it first if needed.
func (p *EVMClientProvider) GetClient() (*EVMClient, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client != nil {
		return p.client, nil
	}

	p.logger.Info("Creating new EVM client", "network", p.netDef.Name, "rpc_primary", p.netDef.PrimaryRPCURL)
	newClient, err := NewEVMClient(p.netDef, p.limiter, p.connectionTimeout, p.rpcCallTimeout)
	if err != nil {
		p.logger.Error("Failed to create EVM client", "network", p.netDef.Name, "error", err)
		return nil, fmt.Errorf("failed to create EVM client for %s: %w", p.netDef.Name, err)
	}

	p.client = newClient
	p.logger.Info("Successfully created EVM client", "network", p.netDef.Name, "rpc", newClient.Endpoint())
	return newClient, nil
}

// GetNativeBalance implements port.ChainQuerier.
func (p *EVMClientProvider) GetNativeBalance(ctx context.Context, account string) (*big.Int, error) {
	c, err := p.GetClient()
	if err != nil {
		return nil, err
	}
	return c.GetNativeBalance(ctx, account)
}

// Call implements port.ChainQuerier.
func (p *EVMClientProvider) Call(ctx context.Context, contract string, data []byte) ([]byte, error) {
	c, err := p.GetClient()
	if err != nil {
		return nil, err
	}
	return c.Call(ctx, contract, data)
}

// Close releases the cached client, if any.
func (p *EVMClientProvider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil {
		p.client.Close()
		p.client = nil
	}
}
