package httpserver

import (
	"fmt"
	"github.com/Fuonder/marketledger.git/internal/models"
	"github.com/google/uuid"
	"net/url"
	"strconv"
	"time"
)

func pageParams(q url.Values) (int, int, error) {
	limit, err := intParam(q, "limit")
	if err != nil {
		return 0, 0, err
	}
	offset, err := intParam(q, "offset")
	if err != nil {
		return 0, 0, err
	}
	return limit, offset, nil
}

func intParam(q url.Values, name string) (int, error) {
	v := q.Get(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s %q", name, v)
	}
	return n, nil
}

// timeParam accepts RFC 3339 timestamps or plain dates (midnight UTC).
func timeParam(q url.Values, name string) (*time.Time, error) {
	v := q.Get(name)
	if v == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q", name, v)
	}
	return &t, nil
}

func transactionFilter(q url.Values) (models.TransactionFilter, error) {
	f := models.TransactionFilter{
		Type:        models.TransactionType(q.Get("type")),
		BalanceType: models.BalanceType(q.Get("balance_type")),
		Status:      models.TransactionStatus(q.Get("status")),
	}
	if f.Type != "" && !f.Type.Valid() {
		return f, fmt.Errorf("invalid type %q", f.Type)
	}
	if f.BalanceType != "" && !f.BalanceType.Valid() {
		return f, fmt.Errorf("invalid balance_type %q", f.BalanceType)
	}
	if f.Status != "" && !f.Status.Valid() {
		return f, fmt.Errorf("invalid status %q", f.Status)
	}
	var err error
	if f.DateFrom, err = timeParam(q, "date_from"); err != nil {
		return f, err
	}
	if f.DateTo, err = timeParam(q, "date_to"); err != nil {
		return f, err
	}
	return f, nil
}

func withdrawalFilter(q url.Values) (models.WithdrawalFilter, error) {
	f := models.WithdrawalFilter{
		Status: models.WithdrawalStatus(q.Get("status")),
		UserID: q.Get("user_id"),
		Method: models.PayoutMethod(q.Get("method")),
	}
	if f.Status != "" && !f.Status.Valid() {
		return f, fmt.Errorf("invalid status %q", f.Status)
	}
	if f.Method != "" && !f.Method.Valid() {
		return f, fmt.Errorf("invalid method %q", f.Method)
	}
	if v := q.Get("account_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return f, fmt.Errorf("invalid account_id %q", v)
		}
		f.AccountID = id
	}
	var err error
	if f.DateFrom, err = timeParam(q, "date_from"); err != nil {
		return f, err
	}
	if f.DateTo, err = timeParam(q, "date_to"); err != nil {
		return f, err
	}
	return f, nil
}
