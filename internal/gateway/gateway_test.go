package gateway

import (
	"context"
	"encoding/json"
	"github.com/Fuonder/marketledger.git/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c := NewClient(strings.TrimPrefix(srv.URL, "http://"))
	c.client.SetRetryCount(0)
	return c
}

func TestCreatePayment_OK(t *testing.T) {
	topupID := uuid.New()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/payments", r.URL.Path)
		assert.Equal(t, topupID.String(), r.Header.Get("Idempotency-Key"))

		var req PaymentRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Amount.Equal(decimal.NewFromInt(500)))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"payment_url":"https://pay.example/p/1","external_ref":"ext-1"}`))
	})

	session, err := c.CreatePayment(context.Background(), PaymentRequest{
		TopupID: topupID, Amount: decimal.NewFromInt(500), Currency: "KGS"})
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example/p/1", session.PaymentURL)
	assert.Equal(t, "ext-1", session.ExternalRef)
}

func TestCreatePayment_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "server error", status: http.StatusBadGateway},
		{name: "rate limited", status: http.StatusTooManyRequests},
		{name: "missing url", status: http.StatusOK, body: `{"external_ref":"x"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := c.CreatePayment(context.Background(), PaymentRequest{TopupID: uuid.New()})
			assert.ErrorIs(t, err, models.ErrExternalGateway)
		})
	}
}

func TestCreatePayment_Unreachable(t *testing.T) {
	c := NewClient("127.0.0.1:1")
	c.client.SetRetryCount(0)
	_, err := c.CreatePayment(context.Background(), PaymentRequest{TopupID: uuid.New()})
	assert.ErrorIs(t, err, models.ErrExternalGateway)
}
