package restapi

import (
	"errors"
	"net/http"

	"wallet_console/internal/app/port"
	"wallet_console/internal/domain/entity"

	"github.com/gin-gonic/gin"
)

// SessionHandler exposes the session controller over HTTP.
type SessionHandler struct {
	session port.SessionController
	logger  port.Logger
}

// NewSessionHandler creates a new instance of SessionHandler.
func NewSessionHandler(session port.SessionController, logger port.Logger) *SessionHandler {
	return &SessionHandler{
		session: session,
		logger:  logger,
	}
}

// APIErrorResponse is the body of every failed request.
type APIErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// TransferRequestBody is the transfer form as sent by the client.
type TransferRequestBody struct {
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"`
}

// SelectAssetRequestBody names the asset to select.
type SelectAssetRequestBody struct {
	AssetID string `json:"assetId" binding:"required"`
}

// TransferResponse is returned after a successful submission.
type TransferResponse struct {
	TransactionID string                 `json:"transactionId"`
	Session       entity.SessionSnapshot `json:"session"`
}

// GetSession returns the current session.
func (h *SessionHandler) GetSession(c *gin.Context) {
	c.JSON(http.StatusOK, h.session.Snapshot())
}

// Connect requests the wallet's accounts and resolves balances.
func (h *SessionHandler) Connect(c *gin.Context) {
	if err := h.session.Connect(c.Request.Context()); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, h.session.Snapshot())
}

// Disconnect clears the session.
func (h *SessionHandler) Disconnect(c *gin.Context) {
	h.session.Disconnect()
	c.JSON(http.StatusOK, h.session.Snapshot())
}

// Refresh re-resolves every balance.
func (h *SessionHandler) Refresh(c *gin.Context) {
	if err := h.session.Refresh(c.Request.Context()); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, h.session.Snapshot())
}

// SelectAsset selects an asset by id ("native" or a contract address).
func (h *SessionHandler) SelectAsset(c *gin.Context) {
	var body SelectAssetRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, APIErrorResponse{Error: "assetId is required"})
		return
	}
	if err := h.session.SelectAsset(c.Request.Context(), body.AssetID); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, h.session.Snapshot())
}

// SetPendingTransfer stores the transfer form without submitting it.
func (h *SessionHandler) SetPendingTransfer(c *gin.Context) {
	var body TransferRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, APIErrorResponse{Error: "invalid transfer form: " + err.Error()})
		return
	}
	h.session.SetPendingTransfer(body.Recipient, body.Amount)
	c.JSON(http.StatusOK, h.session.Snapshot())
}

// Transfer submits the transfer in the body.
func (h *SessionHandler) Transfer(c *gin.Context) {
	var body TransferRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, APIErrorResponse{Error: "invalid transfer form: " + err.Error()})
		return
	}
	txID, err := h.session.Transfer(c.Request.Context(), body.Recipient, body.Amount)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, TransferResponse{TransactionID: txID, Session: h.session.Snapshot()})
}

// SubmitPending submits the stored transfer form.
func (h *SessionHandler) SubmitPending(c *gin.Context) {
	txID, err := h.session.SubmitPending(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, TransferResponse{TransactionID: txID, Session: h.session.Snapshot()})
}

// RecentTransfers lists the transfers submitted for the current account.
func (h *SessionHandler) RecentTransfers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"transfers": h.session.RecentTransfers()})
}

func (h *SessionHandler) fail(c *gin.Context, err error) {
	status := statusFor(err)
	kind, _ := entity.KindOf(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", "path", c.FullPath(), "kind", kind, "error", err)
	} else {
		h.logger.Debug("Request rejected", "path", c.FullPath(), "kind", kind, "error", err)
	}
	c.JSON(status, APIErrorResponse{Error: err.Error(), Kind: string(kind)})
}

// statusFor maps error kinds to HTTP status codes. An invalid amount is the caller's fault even
// when it surfaces wrapped in a failed transfer.
func statusFor(err error) int {
	switch {
	case errors.Is(err, entity.ErrUnknownAsset):
		return http.StatusNotFound
	case errors.Is(err, entity.ErrInvalidAmount), errors.Is(err, entity.ErrPreconditionFailed):
		return http.StatusBadRequest
	case errors.Is(err, entity.ErrConnectionFailed), errors.Is(err, entity.ErrTransferFailed):
		return http.StatusBadGateway
	case errors.Is(err, entity.ErrAssetQueryFailed), errors.Is(err, entity.ErrNativeQueryFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
