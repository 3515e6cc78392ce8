package withdrawals

import (
	"context"
	"github.com/Fuonder/marketledger.git/internal/models"
	"github.com/google/uuid"
)

// ReviewService is the admin side of withdrawal requests.
type ReviewService interface {
	List(ctx context.Context, f models.WithdrawalFilter, limit, offset int) (models.Page[models.WithdrawalRequest], error)
	Get(ctx context.Context, id uuid.UUID) (models.WithdrawalRequest, error)
	Approve(ctx context.Context, id uuid.UUID, note string) (models.WithdrawalRequest, error)
	Reject(ctx context.Context, id uuid.UUID, note string) (models.WithdrawalRequest, error)
	Cancel(ctx context.Context, id uuid.UUID, note string) (models.WithdrawalRequest, error)
}
