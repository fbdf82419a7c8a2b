package entity

import (
	"strings"
	"time"
)

// SessionState is the connection state of the console session.
type SessionState int

const (
	StateDisconnected SessionState = iota
	StateConnecting
	StateConnected
	StateAccountSwitching
)

func (s SessionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateAccountSwitching:
		return "account_switching"
	default:
		return "unknown"
	}
}

// MarshalText renders the state by name.
func (s SessionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// PendingTransfer holds the transfer form the user is filling in.
type PendingTransfer struct {
	Recipient  string `json:"recipient"`
	AmountText string `json:"amount"`
}

// SessionSnapshot is an immutable copy of the session state.
type SessionSnapshot struct {
	State             SessionState     `json:"state"`
	Account           string           `json:"account,omitempty"`
	Assets            []Asset          `json:"assets"`
	Selected          *Asset           `json:"selected,omitempty"`
	PendingTransfer   *PendingTransfer `json:"pendingTransfer,omitempty"`
	LastTransactionID string           `json:"lastTransactionId,omitempty"`
	LastError         string           `json:"lastError,omitempty"`
	Generation        uint64           `json:"generation"`
	UpdatedAt         time.Time        `json:"updatedAt"`
}

// FindAsset returns the resolved asset with the given identity key.
func (s SessionSnapshot) FindAsset(id string) (Asset, bool) {
	for _, a := range s.Assets {
		if a.ID() == id || (!a.IsNative && strings.EqualFold(a.Address, id)) {
			return a, true
		}
	}
	return Asset{}, false
}

