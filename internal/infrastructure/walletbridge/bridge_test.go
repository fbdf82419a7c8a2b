package walletbridge

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	account  = "0xaAaAaAaaAaAaAaaAaAAAAAAAAaaaAaAaAaaAaaAa"
	token    = "0x779877A7B0D9E8603169DdbD7836e478b4624789"
	receiver = "0x1111111111111111111111111111111111111111"
	txHash   = "0x5c504ed432cb51138bcf09aa5e8a410dd4a1e204ef84bfed1be16dfba1b22060"
)

type capturedCall struct {
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
	ID     json.RawMessage   `json:"id"`
}

// bridgeServer answers JSON-RPC posts with the handler's result or error.
type bridgeServer struct {
	mu     sync.Mutex
	calls  []capturedCall
	answer func(method string) (any, map[string]any)
}

func (s *bridgeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var call capturedCall
	if err := json.NewDecoder(r.Body).Decode(&call); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	s.calls = append(s.calls, call)
	s.mu.Unlock()

	result, rpcErr := s.answer(call.Method)
	resp := map[string]any{"jsonrpc": "2.0", "id": call.ID}
	if rpcErr != nil {
		resp["error"] = rpcErr
	} else {
		resp["result"] = result
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *bridgeServer) lastTx(t *testing.T) map[string]string {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.calls) == 0 {
		t.Fatalf("no calls recorded")
	}
	call := s.calls[len(s.calls)-1]
	if call.Method != "eth_sendTransaction" || len(call.Params) != 1 {
		t.Fatalf("call=%+v", call)
	}
	var tx map[string]string
	if err := json.Unmarshal(call.Params[0], &tx); err != nil {
		t.Fatalf("decode tx: %v", err)
	}
	return tx
}

func newTestBridge(t *testing.T, answer func(string) (any, map[string]any)) (*Bridge, *bridgeServer) {
	t.Helper()
	srv := &bridgeServer{answer: answer}
	hs := httptest.NewServer(srv)
	t.Cleanup(hs.Close)
	b := New(Config{RPCURL: hs.URL, RequestTimeout: time.Second, ApprovalTimeout: time.Second}, zap.NewNop())
	return b, srv
}

func TestRequestAccounts(t *testing.T) {
	b, _ := newTestBridge(t, func(string) (any, map[string]any) {
		return []string{strings.ToLower(account)}, nil
	})
	accounts, err := b.RequestAccounts(context.Background())
	if err != nil {
		t.Fatalf("RequestAccounts: %v", err)
	}
	if len(accounts) != 1 || accounts[0] != account {
		t.Fatalf("accounts=%v", accounts)
	}
}

func TestRequestAccountsRejected(t *testing.T) {
	b, _ := newTestBridge(t, func(string) (any, map[string]any) {
		return nil, map[string]any{"code": CodeUserRejected, "message": "User rejected the request."}
	})
	_, err := b.RequestAccounts(context.Background())
	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) || !rpcErr.UserRejected() {
		t.Fatalf("err=%v", err)
	}
}

func TestSendContractCall(t *testing.T) {
	b, srv := newTestBridge(t, func(string) (any, map[string]any) { return txHash, nil })
	data := []byte{0xa9, 0x05, 0x9c, 0xbb, 0x01}

	hash, err := b.SendContractCall(context.Background(), account, token, data)
	if err != nil {
		t.Fatalf("SendContractCall: %v", err)
	}
	if hash != txHash {
		t.Fatalf("hash=%s", hash)
	}
	tx := srv.lastTx(t)
	if tx["from"] != account || tx["to"] != token || tx["data"] != "0xa9059cbb01" || tx["value"] != "0x0" {
		t.Fatalf("tx=%v", tx)
	}
}

func TestSendNative(t *testing.T) {
	b, srv := newTestBridge(t, func(string) (any, map[string]any) { return txHash, nil })
	amount, _ := new(big.Int).SetString("1500000000000000000", 10)

	if _, err := b.SendNative(context.Background(), account, receiver, amount); err != nil {
		t.Fatalf("SendNative: %v", err)
	}
	tx := srv.lastTx(t)
	if tx["value"] != "0x14d1120d7b160000" || tx["to"] != receiver {
		t.Fatalf("tx=%v", tx)
	}
	if _, ok := tx["data"]; ok {
		t.Fatalf("native transfer carries calldata: %v", tx)
	}
}

func TestSendRejectsMalformedHash(t *testing.T) {
	b, _ := newTestBridge(t, func(string) (any, map[string]any) { return "0x1234", nil })
	if _, err := b.SendNative(context.Background(), account, receiver, big.NewInt(1)); err == nil {
		t.Fatalf("expected malformed hash error")
	}
}

func TestHTTPErrorStatus(t *testing.T) {
	hs := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bridge offline", http.StatusServiceUnavailable)
	}))
	defer hs.Close()
	b := New(Config{RPCURL: hs.URL}, zap.NewNop())
	if _, err := b.RequestAccounts(context.Background()); err == nil || !strings.Contains(err.Error(), "503") {
		t.Fatalf("err=%v", err)
	}
}

func TestListenRelaysAccountChangesAndReconnects(t *testing.T) {
	upgrader := websocket.Upgrader{}
	var (
		mu    sync.Mutex
		dials int
	)
	hs := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		mu.Lock()
		dials++
		n := dials
		mu.Unlock()

		if n == 1 {
			_ = conn.WriteJSON(map[string]any{"type": "chainChanged", "chainId": "0xaa36a7"})
			_ = conn.WriteJSON(map[string]any{"type": eventAccountsChanged, "accounts": []string{strings.ToLower(account)}})
			// Dropping the connection forces a reconnect.
			return
		}
		_ = conn.WriteJSON(map[string]any{"type": eventDisconnect})
		_, _, _ = conn.ReadMessage()
	}))
	defer hs.Close()

	b := New(Config{
		RPCURL:         hs.URL,
		EventsURL:      "ws" + strings.TrimPrefix(hs.URL, "http"),
		ReconnectDelay: 10 * time.Millisecond,
	}, zap.NewNop())
	ch := make(chan []string, 4)
	sub := b.SubscribeAccountsChanged(ch)
	defer sub.Unsubscribe()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Listen(ctx) }()

	select {
	case accounts := <-ch:
		if len(accounts) != 1 || accounts[0] != account {
			t.Fatalf("accounts=%v", accounts)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no accountsChanged relayed")
	}
	select {
	case accounts := <-ch:
		if len(accounts) != 0 {
			t.Fatalf("disconnect relayed as %v", accounts)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no disconnect relayed after reconnect")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Listen: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Listen did not stop")
	}
}

func TestListenRequiresURL(t *testing.T) {
	b := New(Config{RPCURL: "http://127.0.0.1:1"}, zap.NewNop())
	if err := b.Listen(context.Background()); err == nil {
		t.Fatalf("expected configuration error")
	}
}
