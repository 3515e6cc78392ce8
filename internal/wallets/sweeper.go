package wallets

import (
	"context"
	"github.com/Fuonder/marketledger.git/internal/logger"
	"github.com/Fuonder/marketledger.git/internal/storage"
	"go.uber.org/zap"
	"time"
)

const (
	DefaultTopupTTL      = 30 * time.Minute
	DefaultSweepInterval = time.Minute
)

// TopupSweeper fails redirect top-ups the gateway never confirmed. Balances are not touched:
// a pending top-up has not credited anything yet.
type TopupSweeper struct {
	st       storage.Store
	ttl      time.Duration
	interval time.Duration
	now      func() time.Time
}

func NewTopupSweeper(st storage.Store, ttl, interval time.Duration) *TopupSweeper {
	if ttl <= 0 {
		ttl = DefaultTopupTTL
	}
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &TopupSweeper{st: st, ttl: ttl, interval: interval, now: time.Now}
}

// Sweep expires every pending top-up older than the TTL and reports how many it expired.
func (s *TopupSweeper) Sweep(ctx context.Context) (int, error) {
	expired, err := s.st.ExpireTopups(ctx, s.now().Add(-s.ttl))
	if err != nil {
		return 0, err
	}
	for _, t := range expired {
		logger.Log.Info("top-up expired",
			zap.Stringer("topup", t.ID),
			zap.Stringer("account", t.AccountID),
			zap.Time("created_at", t.CreatedAt))
	}
	return len(expired), nil
}

// Run sweeps on every tick until ctx is cancelled.
func (s *TopupSweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	logger.Log.Info("top-up sweeper started", zap.Duration("ttl", s.ttl), zap.Duration("interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				logger.Log.Error("top-up sweep failed", zap.Error(err))
			}
		}
	}
}
