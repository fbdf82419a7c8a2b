package port

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/event"
)

// WalletConnector is the wallet capability: it hands out the user's accounts and notifies
// account changes. An empty account list means the wallet disconnected.
type WalletConnector interface {
	RequestAccounts(ctx context.Context) ([]string, error)
	SubscribeAccountsChanged(ch chan<- []string) event.Subscription
}

// Signer is the signing/broadcast capability. Both calls may wait for an out-of-band user
// approval before settling and return the transaction hash.
type Signer interface {
	SendNative(ctx context.Context, from, to string, amount *big.Int) (string, error)
	SendContractCall(ctx context.Context, from, contract string, data []byte) (string, error)
}
