package cache

import (
	"context"
	"github.com/Fuonder/marketledger.git/internal/models"
	"github.com/google/uuid"
)

// BalanceCache is a read-through cache in front of the accounts table.
// It is never authoritative: a miss or an error falls back to the store.
type BalanceCache interface {
	Get(ctx context.Context, accountID uuid.UUID) (models.Balances, bool)
	Set(ctx context.Context, b models.Balances)
	Invalidate(ctx context.Context, accountIDs ...uuid.UUID)
}

type Noop struct{}

func (Noop) Get(context.Context, uuid.UUID) (models.Balances, bool) {
	return models.Balances{}, false
}

func (Noop) Set(context.Context, models.Balances) {}

func (Noop) Invalidate(context.Context, ...uuid.UUID) {}
