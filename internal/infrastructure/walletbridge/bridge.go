// Package walletbridge talks to the user's wallet through an EIP-1193 style bridge: JSON-RPC
// over HTTP for requests and a websocket stream for account-change events.
package walletbridge

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"wallet_console/internal/app/port"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/event"
	"go.uber.org/zap"
)

// Config holds the bridge endpoints and timeouts.
type Config struct {
	RPCURL          string
	EventsURL       string
	RequestTimeout  time.Duration
	ApprovalTimeout time.Duration
	ReconnectDelay  time.Duration
}

// Bridge implements port.WalletConnector and port.Signer.
type Bridge struct {
	rpc             *rpcClient
	eventsURL       string
	approvalTimeout time.Duration
	reconnectDelay  time.Duration
	logger          *zap.Logger

	feed  event.Feed
	scope event.SubscriptionScope
}

var (
	_ port.WalletConnector = (*Bridge)(nil)
	_ port.Signer          = (*Bridge)(nil)
)

// New creates a bridge client. Nothing is dialled until the first request or Listen.
func New(cfg Config, logger *zap.Logger) *Bridge {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	if cfg.ApprovalTimeout <= 0 {
		cfg.ApprovalTimeout = 2 * time.Minute
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 5 * time.Second
	}
	logger = logger.Named("WalletBridge")
	return &Bridge{
		rpc:             newRPCClient(cfg.RPCURL, cfg.RequestTimeout, logger),
		eventsURL:       cfg.EventsURL,
		approvalTimeout: cfg.ApprovalTimeout,
		reconnectDelay:  cfg.ReconnectDelay,
		logger:          logger,
	}
}

// RequestAccounts asks the wallet for its accounts. The user may have to approve the
// connection, so the approval timeout applies.
func (b *Bridge) RequestAccounts(ctx context.Context) ([]string, error) {
	var raw []string
	if err := b.rpc.call(ctx, "eth_requestAccounts", nil, &raw, b.approvalTimeout); err != nil {
		return nil, err
	}
	accounts, err := normalizeAccounts(raw)
	if err != nil {
		return nil, err
	}
	b.logger.Info("Wallet accounts received", zap.Int("count", len(accounts)))
	return accounts, nil
}

// SubscribeAccountsChanged delivers every account list the wallet announces. An empty list
// means the wallet disconnected.
func (b *Bridge) SubscribeAccountsChanged(ch chan<- []string) event.Subscription {
	return b.scope.Track(b.feed.Subscribe(ch))
}

type txArgs struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Value string `json:"value"`
	Data  string `json:"data,omitempty"`
}

// SendNative asks the wallet to sign and broadcast a plain value transfer.
func (b *Bridge) SendNative(ctx context.Context, from, to string, amount *big.Int) (string, error) {
	if amount == nil || amount.Sign() < 0 {
		return "", fmt.Errorf("invalid amount %v", amount)
	}
	return b.sendTransaction(ctx, txArgs{
		From:  from,
		To:    to,
		Value: hexutil.EncodeBig(amount),
	})
}

// SendContractCall asks the wallet to sign and broadcast a call of contract with data.
func (b *Bridge) SendContractCall(ctx context.Context, from, contract string, data []byte) (string, error) {
	return b.sendTransaction(ctx, txArgs{
		From:  from,
		To:    contract,
		Value: "0x0",
		Data:  hexutil.Encode(data),
	})
}

func (b *Bridge) sendTransaction(ctx context.Context, tx txArgs) (string, error) {
	if !common.IsHexAddress(tx.From) || !common.IsHexAddress(tx.To) {
		return "", fmt.Errorf("invalid transaction addresses from=%q to=%q", tx.From, tx.To)
	}
	tx.From = common.HexToAddress(tx.From).Hex()
	tx.To = common.HexToAddress(tx.To).Hex()

	b.logger.Info("Requesting wallet signature", zap.String("from", tx.From), zap.String("to", tx.To), zap.String("value", tx.Value))
	var hash string
	if err := b.rpc.call(ctx, "eth_sendTransaction", []any{tx}, &hash, b.approvalTimeout); err != nil {
		return "", err
	}
	if _, err := hexutil.Decode(hash); err != nil || len(hash) != 66 {
		return "", fmt.Errorf("wallet returned a malformed transaction hash %q", hash)
	}
	b.logger.Info("Transaction broadcast", zap.String("hash", hash))
	return hash, nil
}

// Close ends every subscription handed out by the bridge.
func (b *Bridge) Close() {
	b.scope.Close()
}

func normalizeAccounts(raw []string) ([]string, error) {
	accounts := make([]string, 0, len(raw))
	for _, a := range raw {
		if !common.IsHexAddress(a) {
			return nil, fmt.Errorf("wallet returned an invalid account %q", a)
		}
		accounts = append(accounts, common.HexToAddress(a).Hex())
	}
	return accounts, nil
}
