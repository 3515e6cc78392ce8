package orders

import (
	"context"
	"github.com/Fuonder/marketledger.git/internal/models"
)

type OrderService interface {
	OnOrderConfirmed(ctx context.Context, ev models.OrderConfirmed) (models.PlatformAccrual, error)
	GetAccrual(ctx context.Context, orderID string) (models.PlatformAccrual, error)
}
