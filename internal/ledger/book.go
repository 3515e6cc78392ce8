package ledger

import (
	"context"
	"fmt"
	"github.com/Fuonder/marketledger.git/internal/cache"
	"github.com/Fuonder/marketledger.git/internal/events"
	"github.com/Fuonder/marketledger.git/internal/logger"
	"github.com/Fuonder/marketledger.git/internal/models"
	"github.com/Fuonder/marketledger.git/internal/notifications"
	"github.com/Fuonder/marketledger.git/internal/storage"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"time"
)

const publishTimeout = 5 * time.Second

// Entry is one ledger posting request.
type Entry struct {
	AccountID   uuid.UUID
	Type        models.TransactionType
	BalanceType models.BalanceType
	// Direction is required for transfers and must match the fixed sign for every other type.
	Direction   models.Direction
	Amount      decimal.Decimal
	Description string
	ReferenceID string
	// Status defaults to completed. Only debits may be posted as pending.
	Status models.TransactionStatus
}

// Book runs units of work against the store and fans out their side effects after commit.
type Book struct {
	store     storage.Store
	cache     cache.BalanceCache
	publisher events.Publisher
	notifier  notifications.Notifier
	now       func() time.Time
}

func NewBook(store storage.Store, c cache.BalanceCache, p events.Publisher, n notifications.Notifier) *Book {
	if c == nil {
		c = cache.Noop{}
	}
	if p == nil {
		p = events.LogPublisher{}
	}
	if n == nil {
		n = notifications.Discard{}
	}
	return &Book{store: store, cache: c, publisher: p, notifier: n, now: time.Now}
}

func (b *Book) Store() storage.Store {
	return b.store
}

func (b *Book) Cache() cache.BalanceCache {
	return b.cache
}

// Run executes fn as a single database transaction. Cache invalidation, event publishing
// and notifications happen only after a successful commit, outside any row lock.
func (b *Book) Run(ctx context.Context, fn func(ctx context.Context, w *Writer) error) error {
	var w *Writer
	err := b.store.WithinTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		w = newWriter(tx, b.now().UTC())
		return fn(ctx, w)
	})
	if err != nil {
		return err
	}
	b.afterCommit(ctx, w)
	return nil
}

func (b *Book) afterCommit(ctx context.Context, w *Writer) {
	ctx = context.WithoutCancel(ctx)
	if touched := w.touched(); len(touched) > 0 {
		b.cache.Invalidate(ctx, touched...)
	}
	if len(w.events) > 0 {
		pctx, cancel := context.WithTimeout(ctx, publishTimeout)
		if err := b.publisher.Publish(pctx, w.events); err != nil {
			logger.Log.Error("failed to publish ledger events", zap.Int("count", len(w.events)), zap.Error(err))
		}
		cancel()
	}
	for _, n := range w.notes {
		b.notifier.Notify(ctx, n)
	}
}

// Writer is the view of an open unit of work. Accounts are locked on first use and
// stay locked until the unit of work ends.
type Writer struct {
	tx       storage.Tx
	now      time.Time
	accounts map[uuid.UUID]*models.Account
	order    []uuid.UUID
	events   []models.Event
	notes    []models.Notification
}

func newWriter(tx storage.Tx, now time.Time) *Writer {
	return &Writer{tx: tx, now: now, accounts: make(map[uuid.UUID]*models.Account)}
}

func (w *Writer) Tx() storage.Tx {
	return w.tx
}

func (w *Writer) Now() time.Time {
	return w.now
}

// Lock returns the locked account, reading it with SELECT ... FOR UPDATE the first time.
func (w *Writer) Lock(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	if acc, ok := w.accounts[id]; ok {
		return acc, nil
	}
	acc, err := w.tx.LockAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	w.accounts[id] = &acc
	w.order = append(w.order, id)
	return &acc, nil
}

// Post appends a ledger row and moves the cached balance in the same transaction.
func (w *Writer) Post(ctx context.Context, e Entry) (models.Transaction, error) {
	dir, err := resolveEntry(e)
	if err != nil {
		return models.Transaction{}, err
	}
	status := e.Status
	if status == "" {
		status = models.TxStatusCompleted
	}

	acc, err := w.Lock(ctx, e.AccountID)
	if err != nil {
		return models.Transaction{}, err
	}
	if err := acc.Apply(e.BalanceType, dir, e.Amount); err != nil {
		return models.Transaction{}, fmt.Errorf("%w: %s balance %s, requested %s", err,
			e.BalanceType, acc.Balance(e.BalanceType).StringFixed(models.MoneyScale),
			e.Amount.StringFixed(models.MoneyScale))
	}
	acc.UpdatedAt = w.now
	if err := w.tx.SaveBalances(ctx, *acc); err != nil {
		return models.Transaction{}, err
	}

	t, err := w.tx.InsertTransaction(ctx, models.Transaction{
		ID:          uuid.New(),
		AccountID:   e.AccountID,
		Type:        e.Type,
		BalanceType: e.BalanceType,
		Direction:   dir,
		Amount:      e.Amount,
		Description: e.Description,
		Status:      status,
		ReferenceID: e.ReferenceID,
		CreatedAt:   w.now,
	})
	if err != nil {
		return models.Transaction{}, err
	}

	w.events = append(w.events, models.Event{
		ID:          uuid.New(),
		Kind:        models.EventTransactionPosted,
		AccountID:   t.AccountID,
		Transaction: t,
		OccurredAt:  w.now,
	})
	return t, nil
}

// Settle marks a pending reservation debit completed. The balance already reflects it.
func (w *Writer) Settle(ctx context.Context, txID uuid.UUID) error {
	return w.tx.SetTransactionStatus(ctx, txID, models.TxStatusPending, models.TxStatusCompleted)
}

// Notify queues a notification to be sent once the unit of work commits.
func (w *Writer) Notify(n models.Notification) {
	w.notes = append(w.notes, n)
}

func (w *Writer) touched() []uuid.UUID {
	return w.order
}

func resolveEntry(e Entry) (models.Direction, error) {
	if err := models.ValidateAmount(e.Amount); err != nil {
		return "", err
	}
	if !e.Type.Valid() {
		return "", fmt.Errorf("unknown transaction type %q", e.Type)
	}
	if !e.BalanceType.Valid() {
		return "", fmt.Errorf("unknown balance type %q", e.BalanceType)
	}

	dir, fixed := models.DirectionOf(e.Type)
	switch {
	case fixed && e.Direction != "" && e.Direction != dir:
		return "", fmt.Errorf("%s is always a %s", e.Type, dir)
	case !fixed && e.Direction != models.DirectionCredit && e.Direction != models.DirectionDebit:
		return "", fmt.Errorf("%s requires an explicit direction", e.Type)
	case !fixed:
		dir = e.Direction
	}

	switch e.Status {
	case "", models.TxStatusCompleted:
	case models.TxStatusPending:
		if dir != models.DirectionDebit {
			return "", fmt.Errorf("only debits can be reserved as pending")
		}
	default:
		return "", fmt.Errorf("cannot post a transaction as %s", e.Status)
	}
	return dir, nil
}
