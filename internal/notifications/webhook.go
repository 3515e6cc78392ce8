package notifications

import (
	"context"
	"fmt"
	"github.com/Fuonder/marketledger.git/internal/models"
	"github.com/go-resty/resty/v2"
	"time"
)

type webhookBody struct {
	UserID  string                  `json:"user_id"`
	Kind    models.NotificationKind `json:"kind"`
	Message string                  `json:"message"`
	Payload map[string]string       `json:"payload,omitempty"`
}

// WebhookSender posts notifications to the messaging service.
type WebhookSender struct {
	client *resty.Client
	url    string
}

func NewWebhookSender(url string) *WebhookSender {
	client := resty.New().
		SetTimeout(5 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(3 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() == 429 || r.StatusCode() >= 500
		})
	return &WebhookSender{client: client, url: url}
}

func (w *WebhookSender) Send(ctx context.Context, n models.Notification, message string) error {
	resp, err := w.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(webhookBody{UserID: n.UserID, Kind: n.Kind, Message: message, Payload: n.Payload}).
		Post(w.url)
	if err != nil {
		return fmt.Errorf("notification webhook: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("notification webhook: unexpected status %d", resp.StatusCode())
	}
	return nil
}
