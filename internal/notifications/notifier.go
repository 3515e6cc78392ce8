// Package notifications delivers user-facing messages about ledger outcomes.
// Delivery is asynchronous and best effort: it runs after the ledger has committed.
package notifications

import (
	"context"
	"github.com/Fuonder/marketledger.git/internal/logger"
	"github.com/Fuonder/marketledger.git/internal/models"
	"go.uber.org/zap"
)

type Notifier interface {
	Notify(ctx context.Context, n models.Notification)
}

// Sender performs the actual delivery of a rendered message.
type Sender interface {
	Send(ctx context.Context, n models.Notification, message string) error
}

type LogSender struct{}

func (LogSender) Send(_ context.Context, n models.Notification, message string) error {
	logger.Log.Info("notification",
		zap.String("user", n.UserID),
		zap.String("kind", string(n.Kind)),
		zap.String("message", message))
	return nil
}

// Discard drops every notification.
type Discard struct{}

func (Discard) Notify(context.Context, models.Notification) {}
