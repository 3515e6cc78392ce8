package httpserver

import (
	"context"
	"github.com/Fuonder/marketledger.git/internal/httpserver/middleware"
	"github.com/Fuonder/marketledger.git/internal/logger"
	"github.com/Fuonder/marketledger.git/internal/models"
	"github.com/google/uuid"
	"net/http"
	"strings"
)

type openAccountRequest struct {
	UserID string `json:"user_id"`
}

// OpenAccountHandler is called by the user service right after registration.
func (h Handlers) OpenAccountHandler(rw http.ResponseWriter, r *http.Request) {
	logger.Log.Debug("OpenAccountHandler called")
	var req openAccountRequest
	if !decodeJSON(rw, r, &req) {
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		SendResponse(rw, http.StatusBadRequest, []byte("user_id is required"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	acc, err := h.ledgerSrv.OpenAccount(ctx, req.UserID)
	if err != nil {
		SendError(rw, err)
		return
	}
	SendJSON(rw, http.StatusOK, acc)
}

func (h Handlers) OrderConfirmedHandler(rw http.ResponseWriter, r *http.Request) {
	logger.Log.Debug("OrderConfirmedHandler called")
	var ev models.OrderConfirmed
	if !decodeJSON(rw, r, &ev) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	accrual, err := h.orderSrv.OnOrderConfirmed(ctx, ev)
	if err != nil {
		SendError(rw, err)
		return
	}
	SendJSON(rw, http.StatusOK, accrual)
}

type paymentCallback struct {
	TopupID     uuid.UUID `json:"topup_id"`
	Succeeded   bool      `json:"succeeded"`
	ExternalRef string    `json:"external_ref"`
}

// PaymentCallbackHandler receives the gateway result of a redirect top-up.
func (h Handlers) PaymentCallbackHandler(rw http.ResponseWriter, r *http.Request) {
	logger.Log.Debug("PaymentCallbackHandler called")
	var cb paymentCallback
	if !decodeJSON(rw, r, &cb) {
		return
	}
	if cb.TopupID == uuid.Nil {
		SendResponse(rw, http.StatusBadRequest, []byte("topup_id is required"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	topup, err := h.walletSrv.ConfirmTopup(ctx, cb.TopupID, cb.Succeeded, cb.ExternalRef)
	if err != nil {
		SendError(rw, err)
		return
	}
	SendJSON(rw, http.StatusOK, topup)
}

func callerID(ctx context.Context) string {
	if id, ok := middleware.IdentityFrom(ctx); ok {
		return id.UserID
	}
	return ""
}
