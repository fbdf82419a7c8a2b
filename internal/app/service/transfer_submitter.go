package service

import (
	"context"
	"errors"
	"math/big"
	"strings"

	"wallet_console/internal/app/port"
	"wallet_console/internal/domain/entity"
	"wallet_console/internal/pkg/erc20"
	"wallet_console/internal/pkg/metrics"
	"wallet_console/internal/pkg/utils"

	"github.com/ethereum/go-ethereum/common"
)

// TransferSubmitterImpl implements port.TransferSubmitter.
type TransferSubmitterImpl struct {
	chain      port.ChainQuerier
	signer     port.Signer
	aggregator port.BalanceAggregator
	logger     port.Logger
}

// NewTransferSubmitter creates a new instance of TransferSubmitterImpl.
func NewTransferSubmitter(chain port.ChainQuerier, signer port.Signer, aggregator port.BalanceAggregator, l port.Logger) port.TransferSubmitter {
	return &TransferSubmitterImpl{
		chain:      chain,
		signer:     signer,
		aggregator: aggregator,
		logger:     l,
	}
}

// Submit sends amountText of the session's selected asset to recipient. Preconditions are checked
// before any capability is touched. On success the selected asset is read again and the fresh
// value, or the refresh error, is reported in the receipt.
func (s *TransferSubmitterImpl) Submit(ctx context.Context, session entity.SessionSnapshot, recipient, amountText string) (*entity.TransferReceipt, error) {
	recipient = strings.TrimSpace(recipient)
	amountText = strings.TrimSpace(amountText)
	if err := checkPreconditions(session, recipient, amountText); err != nil {
		s.logger.Warn("Transfer rejected before submission", "error", err)
		return nil, err
	}

	asset := *session.Selected
	kind := metrics.AssetKind(asset.IsNative)
	s.logger.Debug("Submitting transfer", "from", session.Account, "to", recipient, "asset", asset.Symbol, "amount", amountText)

	req, txID, err := s.send(ctx, session.Account, asset, recipient, amountText)
	if err != nil {
		metrics.Transfers.WithLabelValues(kind, metrics.OutcomeFailure).Inc()
		s.logger.Error("Transfer failed", "from", session.Account, "to", recipient, "asset", asset.Symbol, "error", err)
		return nil, entity.NewError(entity.KindTransferFailed, "submit transfer", asset.Symbol, err)
	}
	metrics.Transfers.WithLabelValues(kind, metrics.OutcomeSuccess).Inc()
	s.logger.Info("Transfer submitted", "tx", txID, "from", session.Account, "to", recipient, "asset", asset.Symbol, "base_units", req.AmountBaseUnits.String())

	receipt := &entity.TransferReceipt{TransactionID: txID, Request: req}
	refreshed, err := s.aggregator.ResolveOne(ctx, session.Account, asset)
	if err != nil {
		s.logger.Warn("Balance refresh after transfer failed", "tx", txID, "asset", asset.Symbol, "error", err)
		receipt.RefreshErr = err
		return receipt, nil
	}
	receipt.Refreshed = &refreshed
	return receipt, nil
}

func (s *TransferSubmitterImpl) send(ctx context.Context, from string, asset entity.Asset, recipient, amountText string) (entity.TransferRequest, string, error) {
	if asset.IsNative {
		req, err := newTransferRequest(asset, recipient, amountText, entity.NativeDecimals)
		if err != nil {
			return entity.TransferRequest{}, "", err
		}
		txID, err := s.signer.SendNative(ctx, from, req.Recipient, req.AmountBaseUnits)
		return req, txID, err
	}

	// The precision is read again rather than trusting the value cached at aggregation time.
	decimals, err := readDecimals(ctx, s.chain, asset.Address)
	if err != nil {
		return entity.TransferRequest{}, "", err
	}
	req, err := newTransferRequest(asset, recipient, amountText, decimals)
	if err != nil {
		return entity.TransferRequest{}, "", err
	}
	data, err := erc20.PackTransfer(req.Recipient, req.AmountBaseUnits)
	if err != nil {
		return entity.TransferRequest{}, "", err
	}
	txID, err := s.signer.SendContractCall(ctx, from, asset.Address, data)
	return req, txID, err
}

func checkPreconditions(session entity.SessionSnapshot, recipient, amountText string) error {
	var missing []string
	if session.Account == "" {
		missing = append(missing, "account")
	}
	if session.Selected == nil {
		missing = append(missing, "selected asset")
	}
	if recipient == "" {
		missing = append(missing, "recipient")
	}
	if amountText == "" {
		missing = append(missing, "amount")
	}
	if len(missing) > 0 {
		return entity.NewError(entity.KindPreconditionFailed, "submit transfer", strings.Join(missing, ", "), errors.New("missing required fields"))
	}
	if !common.IsHexAddress(recipient) {
		return entity.NewError(entity.KindPreconditionFailed, "submit transfer", recipient, errors.New("recipient is not a hex address"))
	}
	return nil
}

// newTransferRequest is the only place a TransferRequest is built; the amount always goes
// through the decimal converter.
func newTransferRequest(asset entity.Asset, recipient, amountText string, decimals uint8) (entity.TransferRequest, error) {
	amount, err := utils.ToBaseUnits(amountText, decimals)
	if err != nil {
		return entity.TransferRequest{}, err
	}
	asset.Decimals = decimals
	return entity.TransferRequest{
		Asset:           asset,
		Recipient:       common.HexToAddress(recipient).Hex(),
		AmountBaseUnits: new(big.Int).Set(amount),
	}, nil
}
