package entity

import (
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// NativeAssetID is the identity key of the chain's native asset. It can never collide with a
// contract address because registry entries are always hex addresses.
const NativeAssetID = "native"

// NativeDecimals is the fixed precision of the native asset on EVM chains.
const NativeDecimals uint8 = 18

// ZeroAddress represents the Ethereum zero address.
const ZeroAddress = "0x0000000000000000000000000000000000000000"

// Asset is a resolved holding of the connected account: either the native asset or a fungible
// token read from its contract.
type Asset struct {
	Symbol           string          `json:"symbol"`
	Name             string          `json:"name,omitempty"`
	Address          string          `json:"address,omitempty"`
	IsNative         bool            `json:"isNative"`
	Decimals         uint8           `json:"decimals"`
	RawBalance       *big.Int        `json:"rawBalance"`
	Balance          decimal.Decimal `json:"balance"`
	FormattedBalance string          `json:"formattedBalance"`
}

// ID returns the identity key of the asset.
func (a Asset) ID() string {
	if a.IsNative {
		return NativeAssetID
	}
	return a.Address
}

// SameAs reports whether both values describe the same asset, ignoring balances.
func (a Asset) SameAs(other Asset) bool {
	if a.IsNative || other.IsNative {
		return a.IsNative == other.IsNative
	}
	return strings.EqualFold(a.Address, other.Address)
}

// Clone returns a copy that does not share the balance integer.
func (a Asset) Clone() Asset {
	if a.RawBalance != nil {
		a.RawBalance = new(big.Int).Set(a.RawBalance)
	}
	return a
}

// AssetOutcome is the result of resolving one asset: exactly one of Asset or Err is meaningful.
type AssetOutcome struct {
	Entry RegistryEntry
	Asset Asset
	Err   error
}

// OK reports whether the asset resolved.
func (o AssetOutcome) OK() bool {
	return o.Err == nil
}
