package events

import (
	"context"
	"github.com/Fuonder/marketledger.git/internal/logger"
	"github.com/Fuonder/marketledger.git/internal/models"
	"go.uber.org/zap"
)

// Publisher ships committed ledger events to downstream consumers.
// Publish is called after commit and must not be relied on for balance correctness.
type Publisher interface {
	Publish(ctx context.Context, events []models.Event) error
	Close() error
}

// LogPublisher writes events to the service log. Used when no broker is configured.
type LogPublisher struct{}

func (LogPublisher) Publish(_ context.Context, events []models.Event) error {
	for _, e := range events {
		logger.Log.Info("ledger event",
			zap.String("kind", e.Kind),
			zap.Stringer("event_id", e.ID),
			zap.Stringer("account", e.AccountID),
			zap.String("type", string(e.Transaction.Type)),
			zap.String("direction", string(e.Transaction.Direction)),
			zap.String("amount", e.Transaction.Amount.StringFixed(models.MoneyScale)))
	}
	return nil
}

func (LogPublisher) Close() error { return nil }
