package httpserver

import (
	"encoding/json"
	"errors"
	"github.com/Fuonder/marketledger.git/internal/logger"
	"github.com/Fuonder/marketledger.git/internal/models"
	"go.uber.org/zap"
	"net/http"
)

const retryAfterSeconds = "1"

func SendResponse(rw http.ResponseWriter, status int, message []byte) {
	rw.WriteHeader(status)
	if len(message) == 0 {
		_, _ = rw.Write([]byte(http.StatusText(status)))
		return
	}
	_, _ = rw.Write(message)
}

func SendJSON(rw http.ResponseWriter, status int, v interface{}) {
	resp, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		logger.Log.Error("failed to encode response", zap.Error(err))
		SendResponse(rw, http.StatusInternalServerError, []byte{})
		return
	}
	rw.Header().Set("Content-Type", "application/json")
	SendResponse(rw, status, resp)
}

// SendError maps a service error to its HTTP status. Internal failures are logged and
// answered without detail.
func SendError(rw http.ResponseWriter, err error) {
	status := statusFor(err)
	switch status {
	case http.StatusInternalServerError:
		logger.Log.Error("request failed", zap.Error(err))
		SendResponse(rw, status, []byte{})
		return
	case http.StatusConflict:
		if errors.Is(err, models.ErrConcurrencyConflict) {
			rw.Header().Set("Retry-After", retryAfterSeconds)
		}
	case http.StatusServiceUnavailable:
		logger.Log.Warn("storage unavailable", zap.Error(err))
		rw.Header().Set("Retry-After", retryAfterSeconds)
		SendResponse(rw, status, []byte{})
		return
	}
	SendResponse(rw, status, []byte(err.Error()))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidAmount),
		errors.Is(err, models.ErrBelowMinimum),
		errors.Is(err, models.ErrAboveMaximum),
		errors.Is(err, models.ErrMissingPayoutDetails),
		errors.Is(err, models.ErrUnknownPayoutMethod),
		errors.Is(err, models.ErrUnknownTopupMethod),
		errors.Is(err, models.ErrNoteRequired),
		errors.Is(err, models.ErrInvalidPercent),
		errors.Is(err, models.ErrInvalidOrder):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrInsufficientFunds):
		return http.StatusPaymentRequired
	case errors.Is(err, models.ErrNotPartnerProduct):
		return http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrAccountNotFound),
		errors.Is(err, models.ErrWithdrawalNotFound),
		errors.Is(err, models.ErrTopupNotFound),
		errors.Is(err, models.ErrNoData):
		return http.StatusNotFound
	case errors.Is(err, models.ErrInvalidStateTransition),
		errors.Is(err, models.ErrConcurrencyConflict),
		errors.Is(err, models.ErrAccountAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, models.ErrExternalGateway):
		return http.StatusBadGateway
	case errors.Is(err, models.ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
