package port

import (
	"context"
	"math/big"

	"wallet_console/internal/domain/entity"
)

// ChainQuerier is the read-only chain-query capability.
// Implementations may fail per call; they have no side effects.
type ChainQuerier interface {
	// GetNativeBalance fetches the native currency balance (e.g., ETH) for an account, in wei.
	GetNativeBalance(ctx context.Context, account string) (*big.Int, error)

	// Call executes a read-only contract call with ABI-encoded calldata and returns the raw result.
	Call(ctx context.Context, contract string, data []byte) ([]byte, error)
}

// NetworkDefinitionProvider defines the interface for providing network definitions.
type NetworkDefinitionProvider interface {
	// GetNetworkDefinitionByName returns a specific network definition by its identifier.
	GetNetworkDefinitionByName(nameOrIdentifier string) (entity.NetworkDefinition, bool)
}
