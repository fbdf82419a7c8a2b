package entity

import (
	"math/big"
	"time"
)

// TransferRequest is a validated outbound transfer. The amount always comes from the decimal
// converter, never from unvalidated input.
type TransferRequest struct {
	Asset           Asset
	Recipient       string
	AmountBaseUnits *big.Int
}

// TransferReceipt is what a successful submission returns.
type TransferReceipt struct {
	TransactionID string
	Request       TransferRequest
	// Refreshed is the selected asset re-read after submission, nil when the refresh failed.
	Refreshed  *Asset
	RefreshErr error
}

// TransferRecord is an entry of the in-memory transfer log.
type TransferRecord struct {
	TransactionID string    `json:"transactionId"`
	Account       string    `json:"account"`
	AssetID       string    `json:"assetId"`
	Symbol        string    `json:"symbol"`
	Recipient     string    `json:"recipient"`
	Amount        string    `json:"amount"`
	SubmittedAt   time.Time `json:"submittedAt"`
}
