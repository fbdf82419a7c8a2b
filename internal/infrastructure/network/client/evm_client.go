package client

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"wallet_console/internal/domain/entity"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"golang.org/x/time/rate"
)

// EVMClient implements port.ChainQuerier for EVM-compatible chains.
type EVMClient struct {
	ethClient      *ethclient.Client
	netDef         entity.NetworkDefinition
	rpcURL         string
	limiter        *rate.Limiter
	rpcCallTimeout time.Duration
}

// NewEVMClient dials the primary RPC URL of netDef and then its fallbacks, in order, and
// returns a client for the first endpoint that answers with the expected chain id.
func NewEVMClient(netDef entity.NetworkDefinition, limiter *rate.Limiter, connectionTimeout, rpcCallTimeout time.Duration) (*EVMClient, error) {
	rpcURLs := append([]string{netDef.PrimaryRPCURL}, netDef.FallbackRPCURLs...)
	var lastErr error

	for _, rpcURL := range rpcURLs {
		if rpcURL == "" {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), connectionTimeout)
		client, err := dialAndVerify(ctx, rpcURL, netDef.ChainID)
		cancel()

		if err == nil {
			return &EVMClient{
				ethClient:      client,
				netDef:         netDef,
				rpcURL:         rpcURL,
				limiter:        limiter,
				rpcCallTimeout: rpcCallTimeout,
			}, nil
		}
		lastErr = fmt.Errorf("failed to connect to RPC %s: %w", rpcURL, err)
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no RPC URL configured")
	}

	return nil, fmt.Errorf("all RPC connection attempts failed for network %s: %w", netDef.Name, lastErr)
}

func dialAndVerify(ctx context.Context, rpcURL string, expectedChainID uint64) (*ethclient.Client, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, err
	}
	if expectedChainID == 0 {
		return client, nil
	}
	chainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to verify chainID: %w", err)
	}
	if chainID.Uint64() != expectedChainID {
		client.Close()
		return nil, fmt.Errorf("chainID mismatch: expected %d, got %d", expectedChainID, chainID.Uint64())
	}
	return client, nil
}

// GetNativeBalance fetches the latest native balance of account, in wei.
func (c *EVMClient) GetNativeBalance(ctx context.Context, account string) (*big.Int, error) {
	if !common.IsHexAddress(account) {
		return nil, fmt.Errorf("invalid account address %q", account)
	}
	ctx, cancel, err := c.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	balance, err := c.ethClient.BalanceAt(ctx, common.HexToAddress(account), nil)
	if err != nil {
		return nil, fmt.Errorf("eth_getBalance for %s on %s: %w", account, c.netDef.Name, err)
	}
	return balance, nil
}

// Call executes a read-only eth_call against contract at the latest block.
func (c *EVMClient) Call(ctx context.Context, contract string, data []byte) ([]byte, error) {
	if !common.IsHexAddress(contract) {
		return nil, fmt.Errorf("invalid contract address %q", contract)
	}
	ctx, cancel, err := c.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	to := common.HexToAddress(contract)
	out, err := c.ethClient.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("eth_call to %s on %s: %w", contract, c.netDef.Name, err)
	}
	return out, nil
}

// begin waits for the rate limiter and applies the per-call timeout.
func (c *EVMClient) begin(ctx context.Context) (context.Context, context.CancelFunc, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, nil, fmt.Errorf("rate limiter: %w", err)
		}
	}
	if c.rpcCallTimeout <= 0 {
		ctx, cancel := context.WithCancel(ctx)
		return ctx, cancel, nil
	}
	ctx, cancel := context.WithTimeout(ctx, c.rpcCallTimeout)
	return ctx, cancel, nil
}

// Endpoint returns the RPC URL the client is connected to.
func (c *EVMClient) Endpoint() string {
	return c.rpcURL
}

// Close releases the underlying RPC connection.
func (c *EVMClient) Close() {
	c.ethClient.Close()
}
