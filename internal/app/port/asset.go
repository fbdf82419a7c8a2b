package port

import (
	"context"

	"wallet_console/internal/domain/entity"
)

// AssetRegistry supplies the ordered list of known fungible assets.
type AssetRegistry interface {
	Entries() []entity.RegistryEntry
}

// BalanceAggregator resolves the balances of the native asset and every registry asset.
type BalanceAggregator interface {
	// ResolveOutcomes returns one outcome per asset: native first, then registry order.
	ResolveOutcomes(ctx context.Context, account string) []entity.AssetOutcome

	// Resolve returns the assets that resolved, in order, and the failures of the others.
	Resolve(ctx context.Context, account string) ([]entity.Asset, []error)

	// ResolveOne refreshes the balance of a single, already resolved asset.
	ResolveOne(ctx context.Context, account string, asset entity.Asset) (entity.Asset, error)
}

// TransferSubmitter converts and submits a transfer of the session's selected asset.
type TransferSubmitter interface {
	Submit(ctx context.Context, session entity.SessionSnapshot, recipient, amountText string) (*entity.TransferReceipt, error)
}
