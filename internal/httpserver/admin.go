package httpserver

import (
	"context"
	"github.com/Fuonder/marketledger.git/internal/logger"
	"github.com/Fuonder/marketledger.git/internal/models"
	"github.com/Fuonder/marketledger.git/internal/notifications"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"net/http"
)

type reviewRequest struct {
	Note       string                   `json:"note"`
	ReasonCode notifications.ReasonCode `json:"reason_code,omitempty"`
}

type reviewAction func(ctx context.Context, id uuid.UUID, note string) (models.WithdrawalRequest, error)

func (h Handlers) AdminListWithdrawalsHandler(rw http.ResponseWriter, r *http.Request) {
	logger.Log.Debug("AdminListWithdrawalsHandler called")
	q := r.URL.Query()
	f, err := withdrawalFilter(q)
	if err != nil {
		SendResponse(rw, http.StatusBadRequest, []byte(err.Error()))
		return
	}
	limit, offset, err := pageParams(q)
	if err != nil {
		SendResponse(rw, http.StatusBadRequest, []byte(err.Error()))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	page, err := h.reviewSrv.List(ctx, f, limit, offset)
	if err != nil {
		SendError(rw, err)
		return
	}
	if len(page.Items) == 0 {
		SendResponse(rw, http.StatusNoContent, []byte{})
		return
	}
	SendJSON(rw, http.StatusOK, page)
}

func (h Handlers) AdminGetWithdrawalHandler(rw http.ResponseWriter, r *http.Request) {
	logger.Log.Debug("AdminGetWithdrawalHandler called")
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		SendResponse(rw, http.StatusBadRequest, []byte("invalid withdrawal id"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	w, err := h.reviewSrv.Get(ctx, id)
	if err != nil {
		SendError(rw, err)
		return
	}
	SendJSON(rw, http.StatusOK, w)
}

func (h Handlers) ApproveWithdrawalHandler(rw http.ResponseWriter, r *http.Request) {
	logger.Log.Debug("ApproveWithdrawalHandler called")
	h.review(rw, r, models.WithdrawalPaid, h.reviewSrv.Approve)
}

func (h Handlers) RejectWithdrawalHandler(rw http.ResponseWriter, r *http.Request) {
	logger.Log.Debug("RejectWithdrawalHandler called")
	h.review(rw, r, models.WithdrawalRejected, h.reviewSrv.Reject)
}

func (h Handlers) CancelWithdrawalHandler(rw http.ResponseWriter, r *http.Request) {
	logger.Log.Debug("CancelWithdrawalHandler called")
	h.review(rw, r, models.WithdrawalCancelled, h.reviewSrv.Cancel)
}

func (h Handlers) review(rw http.ResponseWriter, r *http.Request, to models.WithdrawalStatus, action reviewAction) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		SendResponse(rw, http.StatusBadRequest, []byte("invalid withdrawal id"))
		return
	}
	var req reviewRequest
	if r.ContentLength != 0 && !decodeJSON(rw, r, &req) {
		return
	}
	note := req.Note
	if req.ReasonCode != "" {
		note, err = notifications.RejectionNote(req.ReasonCode, req.Note)
		if err != nil {
			SendResponse(rw, http.StatusBadRequest, []byte(err.Error()))
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	w, err := action(ctx, id, note)
	if err != nil {
		SendError(rw, err)
		return
	}
	logger.Log.Info("withdrawal reviewed",
		zap.Stringer("withdrawal", w.ID),
		zap.String("status", string(to)),
		zap.String("admin", callerID(ctx)))
	SendJSON(rw, http.StatusOK, w)
}

func (h Handlers) ReconcileHandler(rw http.ResponseWriter, r *http.Request) {
	logger.Log.Debug("ReconcileHandler called")
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		SendResponse(rw, http.StatusBadRequest, []byte("invalid account id"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	rec, err := h.ledgerSrv.Reconcile(ctx, id)
	if err != nil {
		SendError(rw, err)
		return
	}
	SendJSON(rw, http.StatusOK, rec)
}
