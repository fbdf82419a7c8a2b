// Package erc20 encodes and decodes the ERC20 calls the console needs.
package erc20

import (
	"bytes"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const (
	MethodBalanceOf = "balanceOf"
	MethodDecimals  = "decimals"
	MethodSymbol    = "symbol"
	MethodTransfer  = "transfer"
)

// ERC20 ABI: the read calls used for balances plus transfer.
const erc20ABI = `[
	{"constant":true,"inputs":[{"name":"_owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"balance","type":"uint256"}],"payable":false,"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"payable":false,"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[],"name":"symbol","outputs":[{"name":"","type":"string"}],"payable":false,"stateMutability":"view","type":"function"},
	{"constant":false,"inputs":[{"name":"_to","type":"address"},{"name":"_value","type":"uint256"}],"name":"transfer","outputs":[{"name":"success","type":"bool"}],"payable":false,"stateMutability":"nonpayable","type":"function"}
]`

var (
	parsedERC20ABI  abi.ABI
	parsedERC20Once sync.Once
)

// ABI returns the parsed ERC20 ABI.
func ABI() abi.ABI {
	parsedERC20Once.Do(func() {
		var err error
		parsedERC20ABI, err = abi.JSON(strings.NewReader(erc20ABI))
		if err != nil {
			// The ABI is a constant; failing to parse it is a programming error.
			panic(fmt.Sprintf("failed to parse ERC20 ABI: %v", err))
		}
	})
	return parsedERC20ABI
}

// PackBalanceOf encodes balanceOf(owner).
func PackBalanceOf(owner string) ([]byte, error) {
	if !common.IsHexAddress(owner) {
		return nil, fmt.Errorf("invalid owner address %q", owner)
	}
	return ABI().Pack(MethodBalanceOf, common.HexToAddress(owner))
}

// PackDecimals encodes decimals().
func PackDecimals() ([]byte, error) {
	return ABI().Pack(MethodDecimals)
}

// PackSymbol encodes symbol().
func PackSymbol() ([]byte, error) {
	return ABI().Pack(MethodSymbol)
}

// PackTransfer encodes transfer(to, amount).
func PackTransfer(to string, amount *big.Int) ([]byte, error) {
	if !common.IsHexAddress(to) {
		return nil, fmt.Errorf("invalid recipient address %q", to)
	}
	if amount == nil || amount.Sign() < 0 {
		return nil, fmt.Errorf("transfer amount must be a non-negative integer")
	}
	return ABI().Pack(MethodTransfer, common.HexToAddress(to), amount)
}

// UnpackBalanceOf decodes the uint256 result of balanceOf.
func UnpackBalanceOf(data []byte) (*big.Int, error) {
	out, err := unpackSingle(MethodBalanceOf, data)
	if err != nil {
		return nil, err
	}
	balance, ok := out.(*big.Int)
	if !ok {
		return nil, fmt.Errorf("balanceOf: unexpected result type %T", out)
	}
	return balance, nil
}

// UnpackDecimals decodes the uint8 result of decimals.
func UnpackDecimals(data []byte) (uint8, error) {
	out, err := unpackSingle(MethodDecimals, data)
	if err != nil {
		return 0, err
	}
	decimals, ok := out.(uint8)
	if !ok {
		return 0, fmt.Errorf("decimals: unexpected result type %T", out)
	}
	return decimals, nil
}

// UnpackSymbol decodes the string result of symbol.
func UnpackSymbol(data []byte) (string, error) {
	out, err := unpackSingle(MethodSymbol, data)
	if err != nil {
		return "", err
	}
	symbol, ok := out.(string)
	if !ok {
		return "", fmt.Errorf("symbol: unexpected result type %T", out)
	}
	return symbol, nil
}

// PackResult encodes return values of method, the way a contract would answer an eth_call.
func PackResult(method string, values ...interface{}) ([]byte, error) {
	m, ok := ABI().Methods[method]
	if !ok {
		return nil, fmt.Errorf("unknown ERC20 method %q", method)
	}
	return m.Outputs.Pack(values...)
}

// MethodBySelector returns the ERC20 method name encoded in calldata.
func MethodBySelector(data []byte) (string, bool) {
	if len(data) < 4 {
		return "", false
	}
	for name, m := range ABI().Methods {
		if bytes.Equal(m.ID, data[:4]) {
			return name, true
		}
	}
	return "", false
}

// UnpackInputs decodes the arguments of calldata for the given method.
func UnpackInputs(method string, data []byte) ([]interface{}, error) {
	m, ok := ABI().Methods[method]
	if !ok {
		return nil, fmt.Errorf("unknown ERC20 method %q", method)
	}
	if len(data) < 4 {
		return nil, fmt.Errorf("%s: calldata too short", method)
	}
	return m.Inputs.Unpack(data[4:])
}

func unpackSingle(method string, data []byte) (interface{}, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%s: empty result, contract may not exist", method)
	}
	out, err := ABI().Unpack(method, data)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s result: %w", method, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s unpack returned no data", method)
	}
	return out[0], nil
}
