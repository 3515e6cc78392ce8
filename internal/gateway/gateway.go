// Package gateway talks to the external payment provider used for redirect top-ups.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"github.com/Fuonder/marketledger.git/internal/logger"
	"github.com/Fuonder/marketledger.git/internal/models"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"net/http"
	"time"
)

var errTooManyRequests = errors.New("gateway rate limit")

type PaymentRequest struct {
	TopupID  uuid.UUID       `json:"topup_id"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

type PaymentSession struct {
	PaymentURL  string `json:"payment_url"`
	ExternalRef string `json:"external_ref"`
}

type PaymentGateway interface {
	CreatePayment(ctx context.Context, req PaymentRequest) (PaymentSession, error)
}

type Client struct {
	client *resty.Client
	addr   string
}

func NewClient(addr string) *Client {
	client := resty.New().
		SetTimeout(10 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(time.Second).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= http.StatusInternalServerError
		})
	return &Client{client: client, addr: addr}
}

// CreatePayment registers a payment and returns the URL the user is redirected to.
// Every failure is reported as models.ErrExternalGateway.
func (c *Client) CreatePayment(ctx context.Context, req PaymentRequest) (PaymentSession, error) {
	remoteURL := "http://" + c.addr + "/api/payments"

	var session PaymentSession
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Idempotency-Key", req.TopupID.String()).
		SetBody(req).
		SetResult(&session).
		Post(remoteURL)
	if err != nil {
		return PaymentSession{}, fmt.Errorf("%w: %v", models.ErrExternalGateway, err)
	}

	switch resp.StatusCode() {
	case http.StatusOK, http.StatusCreated:
		if session.PaymentURL == "" {
			return PaymentSession{}, fmt.Errorf("%w: empty payment url", models.ErrExternalGateway)
		}
		logger.Log.Debug("payment created",
			zap.Stringer("topup", req.TopupID), zap.String("external_ref", session.ExternalRef))
		return session, nil
	case http.StatusTooManyRequests:
		return PaymentSession{}, fmt.Errorf("%w: %w", models.ErrExternalGateway, errTooManyRequests)
	default:
		return PaymentSession{}, fmt.Errorf("%w: unexpected status %d", models.ErrExternalGateway, resp.StatusCode())
	}
}
