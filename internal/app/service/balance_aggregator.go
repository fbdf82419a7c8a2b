package service

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"wallet_console/internal/app/port"
	"wallet_console/internal/domain/entity"
	"wallet_console/internal/pkg/erc20"
	"wallet_console/internal/pkg/metrics"
	"wallet_console/internal/pkg/utils"

	"golang.org/x/sync/errgroup"
)

// BalanceAggregatorImpl implements port.BalanceAggregator.
type BalanceAggregatorImpl struct {
	chain                 port.ChainQuerier
	registry              port.AssetRegistry
	nativeSymbol          string
	logger                port.Logger
	maxConcurrentRoutines int
}

// NewBalanceAggregator creates a new instance of BalanceAggregatorImpl.
func NewBalanceAggregator(
	chain port.ChainQuerier,
	registry port.AssetRegistry,
	nativeSymbol string,
	l port.Logger,
	maxRoutines int,
) port.BalanceAggregator {
	if maxRoutines <= 0 {
		maxRoutines = 1
	}
	if nativeSymbol == "" {
		nativeSymbol = "ETH"
	}
	return &BalanceAggregatorImpl{
		chain:                 chain,
		registry:              registry,
		nativeSymbol:          nativeSymbol,
		logger:                l,
		maxConcurrentRoutines: maxRoutines,
	}
}

// ResolveOutcomes queries every asset concurrently and returns one outcome per asset, native
// first and then in registry order, whatever the completion order was.
func (s *BalanceAggregatorImpl) ResolveOutcomes(ctx context.Context, account string) []entity.AssetOutcome {
	started := time.Now()
	entries := s.registry.Entries()
	outcomes := make([]entity.AssetOutcome, len(entries)+1)
	s.logger.Debug("Resolving balances", "account", account, "assets", len(outcomes))

	var g errgroup.Group
	g.SetLimit(s.maxConcurrentRoutines)

	outcomes[0].Entry = entity.NativeEntry(s.nativeSymbol)
	g.Go(func() error {
		asset, err := s.resolveNative(ctx, account)
		outcomes[0].Asset, outcomes[0].Err = asset, err
		return nil
	})

	for i, entry := range entries {
		slot := i + 1
		outcomes[slot].Entry = entry
		g.Go(func() error {
			asset, err := s.resolveToken(ctx, account, entry)
			outcomes[slot].Asset, outcomes[slot].Err = asset, err
			return nil
		})
	}

	// Workers never return errors; failures live in the outcomes.
	_ = g.Wait()

	metrics.AggregationDuration.Observe(time.Since(started).Seconds())
	return outcomes
}

// Resolve runs ResolveOutcomes and keeps only the assets that resolved.
func (s *BalanceAggregatorImpl) Resolve(ctx context.Context, account string) ([]entity.Asset, []error) {
	assets, errs := FilterResolved(s.ResolveOutcomes(ctx, account))
	s.logger.Info("Balances resolved", "account", account, "resolved", len(assets), "failed", len(errs))
	return assets, errs
}

// ResolveOne re-reads the balance of an asset that already resolved once. Token decimals are
// read again, the symbol is kept.
func (s *BalanceAggregatorImpl) ResolveOne(ctx context.Context, account string, asset entity.Asset) (entity.Asset, error) {
	if asset.IsNative {
		refreshed, err := s.resolveNative(ctx, account)
		if err != nil {
			return entity.Asset{}, err
		}
		refreshed.Name = asset.Name
		return refreshed, nil
	}

	var (
		balance  *big.Int
		decimals uint8
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		balance, err = s.balanceOf(gctx, asset.Address, account)
		return err
	})
	g.Go(func() error {
		var err error
		decimals, err = s.decimals(gctx, asset.Address)
		return err
	})
	if err := g.Wait(); err != nil {
		metrics.AssetQueries.WithLabelValues(metrics.AssetKind(false), metrics.OutcomeFailure).Inc()
		s.logger.Warn("Failed to refresh token balance", "token", asset.Symbol, "address", asset.Address, "account", account, "error", err)
		return entity.Asset{}, entity.NewError(entity.KindAssetQueryFailed, "refresh token", asset.Address, err)
	}
	metrics.AssetQueries.WithLabelValues(metrics.AssetKind(false), metrics.OutcomeSuccess).Inc()
	return newAsset(asset.Symbol, asset.Name, asset.Address, false, decimals, balance), nil
}

// FilterResolved splits outcomes into the resolved assets, in outcome order, and the failures.
func FilterResolved(outcomes []entity.AssetOutcome) ([]entity.Asset, []error) {
	assets := make([]entity.Asset, 0, len(outcomes))
	var errs []error
	for _, o := range outcomes {
		if o.OK() {
			assets = append(assets, o.Asset)
			continue
		}
		errs = append(errs, o.Err)
	}
	return assets, errs
}

func (s *BalanceAggregatorImpl) resolveNative(ctx context.Context, account string) (entity.Asset, error) {
	raw, err := s.chain.GetNativeBalance(ctx, account)
	if err == nil && raw == nil {
		err = errors.New("empty balance")
	}
	if err != nil {
		metrics.AssetQueries.WithLabelValues(metrics.AssetKind(true), metrics.OutcomeFailure).Inc()
		s.logger.Warn("Failed to get native balance", "account", account, "symbol", s.nativeSymbol, "error", err)
		return entity.Asset{}, entity.NewError(entity.KindNativeQueryFailed, "native balance", account, err)
	}
	metrics.AssetQueries.WithLabelValues(metrics.AssetKind(true), metrics.OutcomeSuccess).Inc()
	return newAsset(s.nativeSymbol, s.nativeSymbol, "", true, entity.NativeDecimals, raw), nil
}

// resolveToken issues balanceOf, decimals and symbol in parallel; all three must succeed.
func (s *BalanceAggregatorImpl) resolveToken(ctx context.Context, account string, entry entity.RegistryEntry) (entity.Asset, error) {
	var (
		balance  *big.Int
		decimals uint8
		symbol   string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		balance, err = s.balanceOf(gctx, entry.ContractAddress, account)
		return err
	})
	g.Go(func() error {
		var err error
		decimals, err = s.decimals(gctx, entry.ContractAddress)
		return err
	})
	g.Go(func() error {
		var err error
		symbol, err = s.symbol(gctx, entry.ContractAddress)
		return err
	})
	if err := g.Wait(); err != nil {
		metrics.AssetQueries.WithLabelValues(metrics.AssetKind(false), metrics.OutcomeFailure).Inc()
		s.logger.Warn("Failed to resolve token", "token", entry.DisplayName, "address", entry.ContractAddress, "account", account, "error", err)
		return entity.Asset{}, entity.NewError(entity.KindAssetQueryFailed, "resolve token", entry.ContractAddress, err)
	}
	metrics.AssetQueries.WithLabelValues(metrics.AssetKind(false), metrics.OutcomeSuccess).Inc()
	return newAsset(symbol, entry.DisplayName, entry.ContractAddress, false, decimals, balance), nil
}

func (s *BalanceAggregatorImpl) balanceOf(ctx context.Context, contract, account string) (*big.Int, error) {
	data, err := erc20.PackBalanceOf(account)
	if err != nil {
		return nil, err
	}
	out, err := s.chain.Call(ctx, contract, data)
	if err != nil {
		return nil, fmt.Errorf("balanceOf call: %w", err)
	}
	return erc20.UnpackBalanceOf(out)
}

func (s *BalanceAggregatorImpl) decimals(ctx context.Context, contract string) (uint8, error) {
	return readDecimals(ctx, s.chain, contract)
}

func (s *BalanceAggregatorImpl) symbol(ctx context.Context, contract string) (string, error) {
	data, err := erc20.PackSymbol()
	if err != nil {
		return "", err
	}
	out, err := s.chain.Call(ctx, contract, data)
	if err != nil {
		return "", fmt.Errorf("symbol call: %w", err)
	}
	return erc20.UnpackSymbol(out)
}

// readDecimals is shared with the transfer submitter, which re-reads decimals before converting.
func readDecimals(ctx context.Context, chain port.ChainQuerier, contract string) (uint8, error) {
	data, err := erc20.PackDecimals()
	if err != nil {
		return 0, err
	}
	out, err := chain.Call(ctx, contract, data)
	if err != nil {
		return 0, fmt.Errorf("decimals call: %w", err)
	}
	return erc20.UnpackDecimals(out)
}

func newAsset(symbol, name, address string, native bool, decimals uint8, raw *big.Int) entity.Asset {
	formatted, err := utils.FormatBigInt(raw, decimals)
	if err != nil {
		formatted = raw.String()
	}
	return entity.Asset{
		Symbol:           symbol,
		Name:             name,
		Address:          address,
		IsNative:         native,
		Decimals:         decimals,
		RawBalance:       new(big.Int).Set(raw),
		Balance:          utils.ToDisplayUnits(raw, decimals),
		FormattedBalance: formatted,
	}
}
