package restapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"wallet_console/internal/domain/entity"
	"wallet_console/internal/pkg/metrics"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// fakeSession records calls and returns canned errors.
type fakeSession struct {
	snapshot    entity.SessionSnapshot
	connectErr  error
	selectErr   error
	transferErr error
	txID        string
	selected    string
	pending     *entity.PendingTransfer
	transfers   []entity.TransferRecord
}

func (f *fakeSession) Connect(context.Context) error {
	if f.connectErr != nil {
		return f.connectErr
	}
	f.snapshot.State = entity.StateConnected
	f.snapshot.Account = "0xaAaAaAaaAaAaAaaAaAAAAAAAAaaaAaAaAaaAaaAa"
	return nil
}

func (f *fakeSession) Disconnect() {
	f.snapshot = entity.SessionSnapshot{}
}

func (f *fakeSession) Refresh(context.Context) error { return nil }

func (f *fakeSession) SelectAsset(_ context.Context, id string) error {
	f.selected = id
	return f.selectErr
}

func (f *fakeSession) SetPendingTransfer(recipient, amount string) {
	f.pending = &entity.PendingTransfer{Recipient: recipient, AmountText: amount}
	f.snapshot.PendingTransfer = f.pending
}

func (f *fakeSession) Transfer(context.Context, string, string) (string, error) {
	if f.transferErr != nil {
		return "", f.transferErr
	}
	f.snapshot.LastTransactionID = f.txID
	return f.txID, nil
}

func (f *fakeSession) SubmitPending(ctx context.Context) (string, error) {
	if f.pending == nil {
		return "", entity.NewError(entity.KindPreconditionFailed, "submit transfer", "", errors.New("no pending transfer"))
	}
	return f.Transfer(ctx, f.pending.Recipient, f.pending.AmountText)
}

func (f *fakeSession) Snapshot() entity.SessionSnapshot { return f.snapshot }

func (f *fakeSession) RecentTransfers() []entity.TransferRecord { return f.transfers }

// Collectors register once per process, so every router shares one registry.
var testRegistry = prometheus.NewRegistry()

func newTestRouter(session *fakeSession) *gin.Engine {
	gin.SetMode(gin.TestMode)
	metrics.MustRegisterMetrics(testRegistry)
	return SetupRouter(NewSessionHandler(session, nopLogger{}), RouterOptions{
		MetricsHandler: promhttp.HandlerFor(testRegistry, promhttp.HandlerOpts{}),
		Logger:         zap.NewNop(),
	})
}

func do(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) APIErrorResponse {
	t.Helper()
	var body APIErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body %q: %v", w.Body.String(), err)
	}
	return body
}

func TestConnectAndGetSession(t *testing.T) {
	session := &fakeSession{}
	router := newTestRouter(session)

	w := do(router, http.MethodPost, "/api/v1/session/connect", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var snap map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap["state"] != "connected" {
		t.Fatalf("snapshot=%v", snap)
	}

	if w := do(router, http.MethodGet, "/api/v1/session", ""); w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"account":"0xaAaA`) {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(*fakeSession)
		method string
		path   string
		body   string
		status int
		kind   string
	}{
		{
			name:   "connection declined",
			setup:  func(f *fakeSession) { f.connectErr = entity.NewError(entity.KindConnectionFailed, "connect", "", errors.New("rejected")) },
			method: http.MethodPost, path: "/api/v1/session/connect",
			status: http.StatusBadGateway, kind: "ConnectionFailed",
		},
		{
			name: "unknown asset",
			setup: func(f *fakeSession) {
				f.selectErr = entity.NewError(entity.KindPreconditionFailed, "select asset", "x", entity.ErrUnknownAsset)
			},
			method: http.MethodPost, path: "/api/v1/session/select", body: `{"assetId":"0x01"}`,
			status: http.StatusNotFound, kind: "PreconditionFailed",
		},
		{
			name: "invalid amount inside failed transfer",
			setup: func(f *fakeSession) {
				inner := entity.NewError(entity.KindInvalidAmount, "convert amount", "1.2.3", errors.New("malformed"))
				f.transferErr = entity.NewError(entity.KindTransferFailed, "submit transfer", "TOK", inner)
			},
			method: http.MethodPost, path: "/api/v1/session/transfer", body: `{"recipient":"0x1111111111111111111111111111111111111111","amount":"1.2.3"}`,
			status: http.StatusBadRequest, kind: "TransferFailed",
		},
		{
			name: "signer rejection",
			setup: func(f *fakeSession) {
				f.transferErr = entity.NewError(entity.KindTransferFailed, "submit transfer", "ETH", errors.New("user rejected"))
			},
			method: http.MethodPost, path: "/api/v1/session/transfer", body: `{"recipient":"0x1111111111111111111111111111111111111111","amount":"1"}`,
			status: http.StatusBadGateway, kind: "TransferFailed",
		},
		{
			name:   "no pending transfer",
			setup:  func(*fakeSession) {},
			method: http.MethodPost, path: "/api/v1/session/pending/submit",
			status: http.StatusBadRequest, kind: "PreconditionFailed",
		},
		{
			name:   "unclassified",
			setup:  func(f *fakeSession) { f.connectErr = errors.New("boom") },
			method: http.MethodPost, path: "/api/v1/session/connect",
			status: http.StatusInternalServerError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := &fakeSession{}
			tt.setup(session)
			w := do(newTestRouter(session), tt.method, tt.path, tt.body)
			if w.Code != tt.status {
				t.Fatalf("status=%d want %d body=%s", w.Code, tt.status, w.Body.String())
			}
			if got := decodeError(t, w).Kind; got != tt.kind {
				t.Fatalf("kind=%q want %q", got, tt.kind)
			}
		})
	}
}

func TestSelectAssetRequiresID(t *testing.T) {
	session := &fakeSession{}
	w := do(newTestRouter(session), http.MethodPost, "/api/v1/session/select", `{}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", w.Code)
	}
	if session.selected != "" {
		t.Fatalf("controller called without an id")
	}
}

func TestPendingTransferFlow(t *testing.T) {
	session := &fakeSession{txID: "0xabc"}
	router := newTestRouter(session)

	w := do(router, http.MethodPut, "/api/v1/session/pending", `{"recipient":"0x1111111111111111111111111111111111111111","amount":"10"}`)
	if w.Code != http.StatusOK || session.pending == nil || session.pending.AmountText != "10" {
		t.Fatalf("status=%d pending=%+v", w.Code, session.pending)
	}

	w = do(router, http.MethodPost, "/api/v1/session/pending/submit", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var resp struct {
		TransactionID string         `json:"transactionId"`
		Session       map[string]any `json:"session"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.TransactionID != "0xabc" || resp.Session["lastTransactionId"] != "0xabc" {
		t.Fatalf("resp=%+v", resp)
	}
}

func TestRecentTransfers(t *testing.T) {
	session := &fakeSession{transfers: []entity.TransferRecord{{TransactionID: "0x01", Symbol: "TOK", Amount: "10"}}}
	w := do(newTestRouter(session), http.MethodGet, "/api/v1/session/transfers", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"transactionId":"0x01"`) {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestHealthAndMetrics(t *testing.T) {
	router := newTestRouter(&fakeSession{})
	if w := do(router, http.MethodGet, "/healthz", ""); w.Code != http.StatusOK {
		t.Fatalf("healthz status=%d", w.Code)
	}
	w := do(router, http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "wallet_account_changes_total") {
		t.Fatalf("metrics status=%d body=%s", w.Code, w.Body.String())
	}
}
