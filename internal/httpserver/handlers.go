package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/Fuonder/marketledger.git/internal/dbservices"
	"github.com/Fuonder/marketledger.git/internal/export"
	"github.com/Fuonder/marketledger.git/internal/httpserver/middleware"
	"github.com/Fuonder/marketledger.git/internal/ledger"
	"github.com/Fuonder/marketledger.git/internal/logger"
	"github.com/Fuonder/marketledger.git/internal/models"
	"github.com/Fuonder/marketledger.git/internal/orders"
	"github.com/Fuonder/marketledger.git/internal/wallets"
	"github.com/Fuonder/marketledger.git/internal/withdrawals"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	requestTimeout = 10 * time.Second
	exportTimeout  = 5 * time.Minute
)

type Handlers struct {
	ledgerSrv ledger.LedgerService
	walletSrv wallets.WalletService
	reviewSrv withdrawals.ReviewService
	orderSrv  orders.OrderService
}

func NewHandlers(DBServices *dbservices.DatabaseServices) *Handlers {
	return &Handlers{ledgerSrv: DBServices.LedgerSrv,
		walletSrv: DBServices.WalletSrv,
		reviewSrv: DBServices.ReviewSrv,
		orderSrv:  DBServices.OrderSrv}
}

func (h Handlers) RootHandler(rw http.ResponseWriter, r *http.Request) {
	logger.Log.Debug("RootHandler called")
	SendResponse(rw, http.StatusNotImplemented, []byte("Not implemented"))
}

func (h Handlers) GetBalanceHandler(rw http.ResponseWriter, r *http.Request) {
	logger.Log.Debug("GetBalanceHandler called")

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	acc, err := h.callerAccount(ctx)
	if err != nil {
		SendError(rw, err)
		return
	}
	balances, err := h.ledgerSrv.GetBalance(ctx, acc.ID)
	if err != nil {
		SendError(rw, err)
		return
	}
	SendJSON(rw, http.StatusOK, balances)
}

func (h Handlers) PostTopupHandler(rw http.ResponseWriter, r *http.Request) {
	logger.Log.Debug("PostTopupHandler called")
	var in wallets.TopupInput
	if !decodeJSON(rw, r, &in) {
		return
	}
	if in.IdempotencyKey == "" {
		in.IdempotencyKey = r.Header.Get("Idempotency-Key")
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	acc, err := h.callerAccount(ctx)
	if err != nil {
		SendError(rw, err)
		return
	}
	topup, err := h.walletSrv.Topup(ctx, acc.ID, in)
	if err != nil {
		SendError(rw, err)
		return
	}
	status := http.StatusOK
	if topup.Status == models.TopupPending {
		status = http.StatusAccepted
	}
	SendJSON(rw, status, topup)
}

type transferRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

func (h Handlers) PostTransferHandler(rw http.ResponseWriter, r *http.Request) {
	logger.Log.Debug("PostTransferHandler called")
	var req transferRequest
	if !decodeJSON(rw, r, &req) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	acc, err := h.callerAccount(ctx)
	if err != nil {
		SendError(rw, err)
		return
	}
	balances, err := h.walletSrv.Transfer(ctx, acc.ID, req.Amount)
	if err != nil {
		SendError(rw, err)
		return
	}
	SendJSON(rw, http.StatusOK, balances)
}

func (h Handlers) PostWithdrawalHandler(rw http.ResponseWriter, r *http.Request) {
	logger.Log.Debug("PostWithdrawalHandler called")
	var in wallets.WithdrawalInput
	if !decodeJSON(rw, r, &in) {
		return
	}
	if in.IdempotencyKey == "" {
		in.IdempotencyKey = r.Header.Get("Idempotency-Key")
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	acc, err := h.callerAccount(ctx)
	if err != nil {
		SendError(rw, err)
		return
	}
	w, err := h.walletSrv.RequestWithdrawal(ctx, acc.ID, in)
	if err != nil {
		SendError(rw, err)
		return
	}
	SendJSON(rw, http.StatusAccepted, w)
}

func (h Handlers) GetWithdrawalsHandler(rw http.ResponseWriter, r *http.Request) {
	logger.Log.Debug("GetWithdrawalsHandler called")
	limit, offset, err := pageParams(r.URL.Query())
	if err != nil {
		SendResponse(rw, http.StatusBadRequest, []byte(err.Error()))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	acc, err := h.callerAccount(ctx)
	if err != nil {
		SendError(rw, err)
		return
	}
	page, err := h.walletSrv.ListWithdrawals(ctx, acc.ID, limit, offset)
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

func (h Handlers) GetTransactionsHandler(rw http.ResponseWriter, r *http.Request) {
	logger.Log.Debug("GetTransactionsHandler called")
	q := r.URL.Query()
	f, err := transactionFilter(q)
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

	acc, err := h.callerAccount(ctx)
	if err != nil {
		SendError(rw, err)
		return
	}
	page, err := h.ledgerSrv.ListTransactions(ctx, acc.ID, f, limit, offset)
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

// ExportTransactionsHandler streams CSV straight to the client. XLSX is rendered into memory
// first because the workbook is only complete once it is closed.
func (h Handlers) ExportTransactionsHandler(rw http.ResponseWriter, r *http.Request) {
	logger.Log.Debug("ExportTransactionsHandler called")
	q := r.URL.Query()
	format, err := export.ParseFormat(q.Get("format"))
	if err != nil {
		SendResponse(rw, http.StatusBadRequest, []byte(err.Error()))
		return
	}
	f, err := transactionFilter(q)
	if err != nil {
		SendResponse(rw, http.StatusBadRequest, []byte(err.Error()))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), exportTimeout)
	defer cancel()

	acc, err := h.callerAccount(ctx)
	if err != nil {
		SendError(rw, err)
		return
	}
	src := func(ctx context.Context, fn func(models.Transaction) error) error {
		return h.ledgerSrv.EachTransaction(ctx, acc.ID, f, fn)
	}
	fileName := format.FileName("transactions-" + time.Now().UTC().Format("20060102"))

	if format == export.FormatXLSX {
		var buf bytes.Buffer
		n, err := export.Write(ctx, &buf, format, src)
		if err != nil {
			SendError(rw, err)
			return
		}
		logger.Log.Debug("transactions exported", zap.Stringer("account", acc.ID), zap.Int("rows", n))
		setAttachment(rw, format, fileName)
		SendResponse(rw, http.StatusOK, buf.Bytes())
		return
	}

	setAttachment(rw, format, fileName)
	out := &countingWriter{w: rw}
	n, err := export.Write(ctx, out, format, src)
	if err != nil {
		if out.n == 0 {
			rw.Header().Del("Content-Disposition")
			rw.Header().Del("Content-Type")
			SendError(rw, err)
			return
		}
		// status is already sent, the client sees a truncated file
		logger.Log.Error("export interrupted",
			zap.Stringer("account", acc.ID), zap.Int("rows", n), zap.Int64("bytes", out.n), zap.Error(err))
		return
	}
	logger.Log.Debug("transactions exported", zap.Stringer("account", acc.ID), zap.Int("rows", n))
}

func setAttachment(rw http.ResponseWriter, format export.Format, fileName string) {
	rw.Header().Set("Content-Type", format.ContentType())
	rw.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// callerAccount returns the account of the authenticated user, opening it on first use.
func (h Handlers) callerAccount(ctx context.Context) (models.Account, error) {
	id, ok := middleware.IdentityFrom(ctx)
	if !ok {
		return models.Account{}, errors.New("request has no identity")
	}
	acc, err := h.ledgerSrv.AccountByUser(ctx, id.UserID)
	if errors.Is(err, models.ErrAccountNotFound) {
		return h.ledgerSrv.OpenAccount(ctx, id.UserID)
	}
	return acc, err
}

func decodeJSON(rw http.ResponseWriter, r *http.Request, v interface{}) bool {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		SendResponse(rw, http.StatusBadRequest, []byte{})
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		SendResponse(rw, http.StatusBadRequest, []byte{})
		return false
	}
	return true
}
