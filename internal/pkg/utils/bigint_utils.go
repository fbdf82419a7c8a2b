package utils

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"wallet_console/internal/domain/entity"

	"github.com/shopspring/decimal"
)

var (
	errEmptyAmount     = errors.New("amount is empty")
	errMalformedAmount = errors.New("amount is not a non-negative decimal number")
)

// ToBaseUnits converts a human-readable decimal amount into the asset's smallest unit.
// Example: amountText="1.5", decimals=18 => 1500000000000000000
// The conversion is exact: it never rounds and rejects amounts with more fractional digits
// than the asset supports.
func ToBaseUnits(amountText string, decimals uint8) (*big.Int, error) {
	amount, err := parseBaseUnits(strings.TrimSpace(amountText), decimals)
	if err != nil {
		return nil, entity.NewError(entity.KindInvalidAmount, "convert amount", amountText, err)
	}
	return amount, nil
}

func parseBaseUnits(s string, decimals uint8) (*big.Int, error) {
	if s == "" {
		return nil, errEmptyAmount
	}

	intPart, fracPart, _ := strings.Cut(s, ".")
	if intPart == "" && fracPart == "" {
		return nil, errMalformedAmount
	}
	if !isDigits(intPart) || !isDigits(fracPart) {
		return nil, errMalformedAmount
	}
	if len(fracPart) > int(decimals) {
		return nil, fmt.Errorf("amount %q has %d fractional digits, asset supports %d", s, len(fracPart), decimals)
	}

	// intPart followed by fracPart right-padded to exactly `decimals` digits is the base-unit value.
	digits := intPart + fracPart + strings.Repeat("0", int(decimals)-len(fracPart))
	digits = strings.TrimLeft(digits, "0")
	if digits == "" {
		return new(big.Int), nil
	}
	amount, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return nil, errMalformedAmount
	}
	return amount, nil
}

// ToDisplayUnits computes raw / 10^decimals for display. The result is exact; callers that need
// a float accept the precision loss of converting it.
func ToDisplayUnits(raw *big.Int, decimals uint8) decimal.Decimal {
	if raw == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(raw, -int32(decimals))
}

// FormatBigInt converts a big.Int value to a human-readable string,
// considering the given number of decimals.
// Example: amount=1234500000000000000, decimals=18 => "1.2345"
func FormatBigInt(amount *big.Int, decimals uint8) (string, error) {
	if amount == nil {
		return "0", nil
	}
	if amount.Sign() < 0 {
		return "", fmt.Errorf("negative amount %s cannot be formatted", amount.String())
	}
	if decimals == 0 {
		return amount.String(), nil
	}

	// Pad so that there is always at least one digit before the decimal point.
	digits := amount.String()
	if len(digits) <= int(decimals) {
		digits = strings.Repeat("0", int(decimals)-len(digits)+1) + digits
	}
	point := len(digits) - int(decimals)
	formatted := digits[:point] + "." + digits[point:]

	formatted = strings.TrimRight(formatted, "0")
	formatted = strings.TrimSuffix(formatted, ".")
	return formatted, nil
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
