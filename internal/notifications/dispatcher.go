package notifications

import (
	"context"
	"github.com/Fuonder/marketledger.git/internal/logger"
	"github.com/Fuonder/marketledger.git/internal/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"sync/atomic"
	"time"
)

const (
	DefaultQueueSize = 256
	DefaultWorkers   = 4
	sendTimeout      = 10 * time.Second
)

// Dispatcher queues notifications and delivers them from a pool of workers.
type Dispatcher struct {
	sender  Sender
	queue   chan models.Notification
	workers int
	dropped atomic.Int64
}

func NewDispatcher(sender Sender, queueSize, workers int) *Dispatcher {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Dispatcher{
		sender:  sender,
		queue:   make(chan models.Notification, queueSize),
		workers: workers,
	}
}

// Notify never blocks the caller; when the queue is full the notification is dropped.
func (d *Dispatcher) Notify(_ context.Context, n models.Notification) {
	select {
	case d.queue <- n:
	default:
		d.dropped.Add(1)
		logger.Log.Warn("notification queue is full, dropping",
			zap.String("user", n.UserID), zap.String("kind", string(n.Kind)))
	}
}

func (d *Dispatcher) Dropped() int64 {
	return d.dropped.Load()
}

// Run starts the workers and blocks until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := range d.workers {
		g.Go(func() error {
			d.worker(ctx, i)
			return nil
		})
	}
	return g.Wait()
}

func (d *Dispatcher) worker(ctx context.Context, idx int) {
	for {
		select {
		case <-ctx.Done():
			return
		case n := <-d.queue:
			d.deliver(ctx, idx, n)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, idx int, n models.Notification) {
	message, err := Render(n)
	if err != nil {
		logger.Log.Error("failed to render notification", zap.Int("worker", idx), zap.Error(err))
		return
	}
	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	if err := d.sender.Send(sendCtx, n, message); err != nil {
		logger.Log.Error("failed to send notification",
			zap.Int("worker", idx),
			zap.String("user", n.UserID),
			zap.String("kind", string(n.Kind)),
			zap.Error(err))
	}
}
