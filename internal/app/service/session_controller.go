package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"wallet_console/internal/app/port"
	"wallet_console/internal/domain/entity"
	"wallet_console/internal/pkg/metrics"
	"wallet_console/internal/pkg/utils"
)

var errSessionChanged = errors.New("account changed while the operation was in flight")

var _ port.SessionController = (*SessionControllerImpl)(nil)

// SessionControllerImpl implements port.SessionController. The mutex guards the fields below
// it and is never held across a capability call. Every asynchronous result is tagged with the
// generation and account current when it started and is dropped if either moved on meanwhile.
// Full resolutions also carry resolveSeq so that only the latest one started is applied.
type SessionControllerImpl struct {
	wallet     port.WalletConnector
	aggregator port.BalanceAggregator
	submitter  port.TransferSubmitter
	transfers  *TransferLog
	logger     port.Logger
	now        func() time.Time

	mu         sync.Mutex
	state      entity.SessionState
	account    string
	assets     []entity.Asset
	selected   *entity.Asset
	pending    *entity.PendingTransfer
	lastTxID   string
	lastErr    string
	generation uint64
	resolveSeq uint64
	updatedAt  time.Time
}

// NewSessionController creates a disconnected session.
func NewSessionController(
	wallet port.WalletConnector,
	aggregator port.BalanceAggregator,
	submitter port.TransferSubmitter,
	transfers *TransferLog,
	l port.Logger,
) *SessionControllerImpl {
	if transfers == nil {
		transfers = NewTransferLog(0, 0)
	}
	return &SessionControllerImpl{
		wallet:     wallet,
		aggregator: aggregator,
		submitter:  submitter,
		transfers:  transfers,
		logger:     l,
		now:        time.Now,
		state:      entity.StateDisconnected,
	}
}

// Run follows the wallet's account-change notifications until ctx is done. Each notification
// invalidates the session immediately, in arrival order; the balance resolutions run
// concurrently and only the latest one is applied.
func (c *SessionControllerImpl) Run(ctx context.Context) error {
	ch := make(chan []string, 16)
	sub := c.wallet.SubscribeAccountsChanged(ch)
	defer sub.Unsubscribe()

	var wg sync.WaitGroup
	defer wg.Wait()

	c.logger.Info("Following wallet account changes")
	for {
		select {
		case accounts := <-ch:
			gen, account, ok := c.beginAccountChange(accounts)
			if !ok {
				continue
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				c.resolveAndApply(ctx, gen, account)
			}()
		case err := <-sub.Err():
			if err != nil {
				c.logger.Error("Account change subscription failed", "error", err)
			}
			return err
		case <-ctx.Done():
			c.logger.Info("Stopped following wallet account changes")
			return nil
		}
	}
}

// HandleAccountsChanged processes one account-change notification synchronously.
func (c *SessionControllerImpl) HandleAccountsChanged(ctx context.Context, accounts []string) {
	gen, account, ok := c.beginAccountChange(accounts)
	if !ok {
		return
	}
	c.resolveAndApply(ctx, gen, account)
}

// Connect asks the wallet for its accounts and resolves the balances of the first one.
func (c *SessionControllerImpl) Connect(ctx context.Context) error {
	c.mu.Lock()
	c.generation++
	gen := c.generation
	c.state = entity.StateConnecting
	c.lastErr = ""
	c.touch()
	c.mu.Unlock()

	accounts, err := c.wallet.RequestAccounts(ctx)
	if err == nil && len(accounts) == 0 {
		err = errors.New("wallet returned no accounts")
	}
	if err != nil {
		werr := entity.NewError(entity.KindConnectionFailed, "connect", "", err)
		c.logger.Warn("Wallet connection failed", "error", err)
		c.mu.Lock()
		if c.generation == gen {
			c.generation++
			c.resetLocked()
			c.lastErr = werr.Error()
		}
		c.mu.Unlock()
		return werr
	}

	account := accounts[0]
	c.mu.Lock()
	if c.generation != gen {
		c.mu.Unlock()
		c.discardStale("connect", account)
		return nil
	}
	gen = c.setAccountLocked(account)
	c.mu.Unlock()

	c.logger.Info("Wallet connected", "account", account)
	c.resolveAndApply(ctx, gen, account)
	return nil
}

// Disconnect clears the session.
func (c *SessionControllerImpl) Disconnect() {
	c.mu.Lock()
	c.generation++
	account := c.account
	c.resetLocked()
	c.mu.Unlock()
	c.logger.Info("Session disconnected", "account", account)
}

// Refresh re-resolves every balance of the current account.
func (c *SessionControllerImpl) Refresh(ctx context.Context) error {
	c.mu.Lock()
	gen, account := c.generation, c.account
	c.mu.Unlock()
	if account == "" {
		return entity.NewError(entity.KindPreconditionFailed, "refresh", "", errors.New("no connected account"))
	}
	c.resolveAndApply(ctx, gen, account)
	return nil
}

// SelectAsset selects a resolved asset and refreshes its balance. Selection and balance change
// together or not at all.
func (c *SessionControllerImpl) SelectAsset(ctx context.Context, assetID string) error {
	c.mu.Lock()
	gen, account := c.generation, c.account
	asset, found := c.findLocked(assetID)
	c.mu.Unlock()

	if account == "" {
		return entity.NewError(entity.KindPreconditionFailed, "select asset", assetID, errors.New("no connected account"))
	}
	if !found {
		return entity.NewError(entity.KindPreconditionFailed, "select asset", assetID, entity.ErrUnknownAsset)
	}

	refreshed, err := c.aggregator.ResolveOne(ctx, account, asset)

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.currentLocked(gen, account) {
		c.discardStale("select asset", account)
		return entity.NewError(entity.KindPreconditionFailed, "select asset", assetID, errSessionChanged)
	}
	if err != nil {
		c.lastErr = err.Error()
		c.touch()
		return err
	}
	c.replaceAssetLocked(refreshed)
	selected := refreshed.Clone()
	c.selected = &selected
	c.lastErr = ""
	c.touch()
	c.logger.Debug("Asset selected", "account", account, "asset", refreshed.Symbol, "balance", refreshed.FormattedBalance)
	return nil
}

// SetPendingTransfer stores the transfer form.
func (c *SessionControllerImpl) SetPendingTransfer(recipient, amountText string) {
	c.mu.Lock()
	c.pending = &entity.PendingTransfer{Recipient: recipient, AmountText: amountText}
	c.touch()
	c.mu.Unlock()
}

// SubmitPending submits the stored transfer form.
func (c *SessionControllerImpl) SubmitPending(ctx context.Context) (string, error) {
	c.mu.Lock()
	pending := c.pending
	c.mu.Unlock()
	if pending == nil {
		return "", entity.NewError(entity.KindPreconditionFailed, "submit transfer", "", errors.New("no pending transfer"))
	}
	return c.Transfer(ctx, pending.Recipient, pending.AmountText)
}

// Transfer submits a transfer of the selected asset. The transaction id becomes the session's
// last transaction only if the account did not change while the wallet was signing.
func (c *SessionControllerImpl) Transfer(ctx context.Context, recipient, amountText string) (string, error) {
	c.mu.Lock()
	gen := c.generation
	snapshot := c.snapshotLocked()
	c.mu.Unlock()

	receipt, err := c.submitter.Submit(ctx, snapshot, recipient, amountText)
	if err != nil {
		c.mu.Lock()
		if c.currentLocked(gen, snapshot.Account) {
			c.lastErr = err.Error()
			c.touch()
		}
		c.mu.Unlock()
		return "", err
	}

	c.transfers.Add(c.recordOf(snapshot.Account, receipt))

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.currentLocked(gen, snapshot.Account) {
		metrics.StaleResultsDiscarded.Inc()
		c.logger.Warn("Account changed during transfer; not recording it on the session", "tx", receipt.TransactionID, "account", snapshot.Account)
		return receipt.TransactionID, nil
	}
	c.lastTxID = receipt.TransactionID
	c.pending = nil
	c.lastErr = ""
	if receipt.Refreshed != nil {
		c.replaceAssetLocked(*receipt.Refreshed)
	} else if receipt.RefreshErr != nil {
		c.lastErr = receipt.RefreshErr.Error()
	}
	c.touch()
	return receipt.TransactionID, nil
}

// Snapshot returns a deep copy of the session.
func (c *SessionControllerImpl) Snapshot() entity.SessionSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// RecentTransfers lists the logged transfers of the current account, newest first.
func (c *SessionControllerImpl) RecentTransfers() []entity.TransferRecord {
	c.mu.Lock()
	account := c.account
	c.mu.Unlock()
	if account == "" {
		return []entity.TransferRecord{}
	}
	return c.transfers.ForAccount(account)
}

// beginAccountChange invalidates everything tied to the previous account. It returns false when
// the notification means the wallet disconnected.
func (c *SessionControllerImpl) beginAccountChange(accounts []string) (uint64, string, bool) {
	metrics.AccountChanges.Inc()
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(accounts) == 0 {
		c.logger.Info("Wallet reported no accounts, disconnecting", "previous", c.account)
		c.generation++
		c.resetLocked()
		return c.generation, "", false
	}
	c.logger.Info("Wallet account changed", "previous", c.account, "account", accounts[0])
	gen := c.setAccountLocked(accounts[0])
	c.state = entity.StateAccountSwitching
	return gen, accounts[0], true
}

func (c *SessionControllerImpl) resolveAndApply(ctx context.Context, gen uint64, account string) {
	c.mu.Lock()
	if !c.currentLocked(gen, account) {
		c.mu.Unlock()
		c.discardStale("resolve balances", account)
		return
	}
	c.resolveSeq++
	seq := c.resolveSeq
	c.mu.Unlock()

	assets, errs := c.aggregator.Resolve(ctx, account)

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.currentLocked(gen, account) || c.resolveSeq != seq {
		metrics.StaleResultsDiscarded.Inc()
		c.logger.Debug("Discarding stale balance resolution", "account", account, "generation", gen, "current", c.generation)
		return
	}
	c.state = entity.StateConnected
	c.assets = cloneAssets(assets)
	if c.selected != nil {
		if fresh, ok := c.findLocked(c.selected.ID()); ok {
			c.selected = &fresh
		} else {
			c.selected = nil
		}
	}
	c.lastErr = ""
	if len(errs) > 0 {
		c.lastErr = errors.Join(errs...).Error()
	}
	c.touch()
}

func (c *SessionControllerImpl) discardStale(op, account string) {
	metrics.StaleResultsDiscarded.Inc()
	c.logger.Debug("Discarding superseded result", "op", op, "account", account)
}

// currentLocked reports whether a result started under gen for account may still be applied.
func (c *SessionControllerImpl) currentLocked(gen uint64, account string) bool {
	return c.generation == gen && c.account == account
}

// setAccountLocked commits a new account and returns the generation its results must carry.
func (c *SessionControllerImpl) setAccountLocked(account string) uint64 {
	c.generation++
	c.account = account
	c.assets = nil
	c.selected = nil
	c.lastTxID = ""
	c.touch()
	return c.generation
}

func (c *SessionControllerImpl) resetLocked() {
	c.state = entity.StateDisconnected
	c.account = ""
	c.assets = nil
	c.selected = nil
	c.pending = nil
	c.lastTxID = ""
	c.lastErr = ""
	c.touch()
}

// findLocked returns a copy of the resolved asset with the given id.
func (c *SessionControllerImpl) findLocked(id string) (entity.Asset, bool) {
	snap := entity.SessionSnapshot{Assets: c.assets}
	asset, ok := snap.FindAsset(id)
	if !ok {
		return entity.Asset{}, false
	}
	return asset.Clone(), true
}

// replaceAssetLocked swaps in a refreshed asset and keeps the selection pointing at it.
func (c *SessionControllerImpl) replaceAssetLocked(fresh entity.Asset) {
	for i := range c.assets {
		if c.assets[i].SameAs(fresh) {
			c.assets[i] = fresh.Clone()
			break
		}
	}
	if c.selected != nil && c.selected.SameAs(fresh) {
		selected := fresh.Clone()
		c.selected = &selected
	}
}

func (c *SessionControllerImpl) snapshotLocked() entity.SessionSnapshot {
	snap := entity.SessionSnapshot{
		State:             c.state,
		Account:           c.account,
		Assets:            cloneAssets(c.assets),
		LastTransactionID: c.lastTxID,
		LastError:         c.lastErr,
		Generation:        c.generation,
		UpdatedAt:         c.updatedAt,
	}
	if c.selected != nil {
		selected := c.selected.Clone()
		snap.Selected = &selected
	}
	if c.pending != nil {
		pending := *c.pending
		snap.PendingTransfer = &pending
	}
	return snap
}

func (c *SessionControllerImpl) recordOf(account string, receipt *entity.TransferReceipt) entity.TransferRecord {
	req := receipt.Request
	amount, err := utils.FormatBigInt(req.AmountBaseUnits, req.Asset.Decimals)
	if err != nil {
		amount = req.AmountBaseUnits.String()
	}
	return entity.TransferRecord{
		TransactionID: receipt.TransactionID,
		Account:       account,
		AssetID:       req.Asset.ID(),
		Symbol:        req.Asset.Symbol,
		Recipient:     req.Recipient,
		Amount:        amount,
		SubmittedAt:   c.now(),
	}
}

func (c *SessionControllerImpl) touch() {
	c.updatedAt = c.now()
}

func cloneAssets(in []entity.Asset) []entity.Asset {
	out := make([]entity.Asset, len(in))
	for i, a := range in {
		out[i] = a.Clone()
	}
	return out
}
