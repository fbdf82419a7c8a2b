package port

import (
	"context"

	"wallet_console/internal/domain/entity"
)

// SessionController owns the session state and is the entry point of the HTTP API.
type SessionController interface {
	Connect(ctx context.Context) error
	Disconnect()
	Refresh(ctx context.Context) error
	SelectAsset(ctx context.Context, assetID string) error
	SetPendingTransfer(recipient, amountText string)
	Transfer(ctx context.Context, recipient, amountText string) (string, error)
	SubmitPending(ctx context.Context) (string, error)
	Snapshot() entity.SessionSnapshot
	RecentTransfers() []entity.TransferRecord
}
