package models

import "errors"

var (
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrBelowMinimum           = errors.New("amount is below the allowed minimum")
	ErrAboveMaximum           = errors.New("amount is above the allowed maximum")
	ErrMissingPayoutDetails   = errors.New("payout details are missing")
	ErrUnknownPayoutMethod    = errors.New("unknown payout method")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrNoteRequired           = errors.New("note is required")

	ErrAccountNotFound      = errors.New("account not found")
	ErrAccountAlreadyExists = errors.New("account already exists")
	ErrWithdrawalNotFound   = errors.New("withdrawal request not found")
	ErrTopupNotFound        = errors.New("topup request not found")

	ErrInvalidOrder       = errors.New("invalid order")
	ErrUnknownTopupMethod = errors.New("unknown topup method")

	ErrNotPartnerProduct = errors.New("product is not a partner product")
	ErrInvalidPercent    = errors.New("invalid partner percent")

	ErrConcurrencyConflict = errors.New("concurrent update, retry the request")
	ErrStorageUnavailable  = errors.New("storage is unavailable")
	ErrExternalGateway     = errors.New("payment gateway error")

	ErrNoData = errors.New("no data")
)
