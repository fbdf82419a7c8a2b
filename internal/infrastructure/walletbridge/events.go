package walletbridge

import (
	"context"
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	eventAccountsChanged = "accountsChanged"
	eventDisconnect      = "disconnect"
)

type walletEvent struct {
	Type     string   `json:"type"`
	Accounts []string `json:"accounts"`
}

// Listen reads wallet events from the websocket endpoint until ctx is done and relays account
// changes to subscribers. A dropped connection is dialled again after the reconnect delay.
func (b *Bridge) Listen(ctx context.Context) error {
	if b.eventsURL == "" {
		return errors.New("wallet bridge events URL is not configured")
	}
	for {
		err := b.readEvents(ctx)
		if ctx.Err() != nil {
			b.logger.Info("Stopped listening for wallet events")
			return nil
		}
		b.logger.Warn("Wallet event stream interrupted, reconnecting", zap.Error(err), zap.Duration("delay", b.reconnectDelay))
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(b.reconnectDelay):
		}
	}
}

func (b *Bridge) readEvents(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, b.eventsURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	b.logger.Info("Connected to wallet event stream", zap.String("url", b.eventsURL))

	// Unblocks ReadJSON when ctx ends.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		var msg walletEvent
		if err := conn.ReadJSON(&msg); err != nil {
			return err
		}
		switch msg.Type {
		case eventAccountsChanged:
			accounts, err := normalizeAccounts(msg.Accounts)
			if err != nil {
				b.logger.Warn("Ignoring malformed accountsChanged event", zap.Error(err))
				continue
			}
			n := b.feed.Send(accounts)
			b.logger.Debug("Relayed accountsChanged", zap.Int("accounts", len(accounts)), zap.Int("subscribers", n))
		case eventDisconnect:
			b.feed.Send([]string{})
			b.logger.Info("Wallet reported disconnect")
		default:
			b.logger.Debug("Ignoring wallet event", zap.String("type", msg.Type))
		}
	}
}
