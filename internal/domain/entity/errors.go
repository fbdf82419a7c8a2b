package entity

import (
	"errors"
	"fmt"
)

// ErrorKind classifies every failure the console reports to its caller.
type ErrorKind string

const (
	KindInvalidAmount      ErrorKind = "InvalidAmount"
	KindAssetQueryFailed   ErrorKind = "AssetQueryFailed"
	KindNativeQueryFailed  ErrorKind = "NativeQueryFailed"
	KindPreconditionFailed ErrorKind = "PreconditionFailed"
	KindTransferFailed     ErrorKind = "TransferFailed"
	KindConnectionFailed   ErrorKind = "ConnectionFailed"
)

// Sentinels for errors.Is. They match any *WalletError of the same kind.
var (
	ErrInvalidAmount      = &WalletError{Kind: KindInvalidAmount}
	ErrAssetQueryFailed   = &WalletError{Kind: KindAssetQueryFailed}
	ErrNativeQueryFailed  = &WalletError{Kind: KindNativeQueryFailed}
	ErrPreconditionFailed = &WalletError{Kind: KindPreconditionFailed}
	ErrTransferFailed     = &WalletError{Kind: KindTransferFailed}
	ErrConnectionFailed   = &WalletError{Kind: KindConnectionFailed}
)

// ErrUnknownAsset is the cause of a selection that names no resolved asset.
var ErrUnknownAsset = errors.New("unknown asset")

// WalletError is a classified failure. Op names the operation, Subject the asset, account or
// input the failure is about, Err the underlying cause.
type WalletError struct {
	Kind    ErrorKind
	Op      string
	Subject string
	Err     error
}

// NewError builds a classified error.
func NewError(kind ErrorKind, op, subject string, cause error) *WalletError {
	return &WalletError{Kind: kind, Op: op, Subject: subject, Err: cause}
}

func (e *WalletError) Error() string {
	msg := string(e.Kind)
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Subject != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Subject)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *WalletError) Unwrap() error {
	return e.Err
}

// Is matches on kind so that wrapped causes of a different kind stay reachable through Unwrap.
func (e *WalletError) Is(target error) bool {
	t, ok := target.(*WalletError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the outermost WalletError in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var we *WalletError
	if errors.As(err, &we) {
		return we.Kind, true
	}
	return "", false
}
