// Package ledgertest provides in-memory collaborators for tests of packages built on the ledger.
package ledgertest

import (
	"context"
	"github.com/Fuonder/marketledger.git/internal/ledger"
	"github.com/Fuonder/marketledger.git/internal/models"
	"github.com/Fuonder/marketledger.git/internal/storage/memstore"
	"github.com/google/uuid"
	"sync"
)

type Publisher struct {
	mu     sync.Mutex
	events []models.Event
}

func (p *Publisher) Publish(_ context.Context, events []models.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *Publisher) Close() error { return nil }

func (p *Publisher) Events() []models.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.Event(nil), p.events...)
}

type Notifier struct {
	mu    sync.Mutex
	notes []models.Notification
}

func (n *Notifier) Notify(_ context.Context, note models.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notes = append(n.notes, note)
}

func (n *Notifier) Notifications() []models.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]models.Notification(nil), n.notes...)
}

// Cache is a map-backed balance cache that counts hits.
type Cache struct {
	mu          sync.Mutex
	entries     map[uuid.UUID]models.Balances
	Hits        int
	Invalidated []uuid.UUID
}

func (c *Cache) Get(_ context.Context, id uuid.UUID) (models.Balances, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.entries[id]
	if ok {
		c.Hits++
	}
	return b, ok
}

func (c *Cache) Set(_ context.Context, b models.Balances) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries == nil {
		c.entries = make(map[uuid.UUID]models.Balances)
	}
	c.entries[b.AccountID] = b
}

func (c *Cache) Invalidate(_ context.Context, ids ...uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		delete(c.entries, id)
	}
	c.Invalidated = append(c.Invalidated, ids...)
}

// Env bundles a memstore-backed Book with recording collaborators.
type Env struct {
	Store     *memstore.Store
	Cache     *Cache
	Publisher *Publisher
	Notifier  *Notifier
	Book      *ledger.Book
	Ledger    *ledger.LService
}

func New() *Env {
	e := &Env{
		Store:     memstore.New(),
		Cache:     &Cache{},
		Publisher: &Publisher{},
		Notifier:  &Notifier{},
	}
	e.Book = ledger.NewBook(e.Store, e.Cache, e.Publisher, e.Notifier)
	e.Ledger = ledger.NewLService(e.Book, models.DefaultCurrency)
	return e
}

// OpenAccount opens an account for userID and panics on failure.
func (e *Env) OpenAccount(userID string) models.Account {
	acc, err := e.Ledger.OpenAccount(context.Background(), userID)
	if err != nil {
		panic(err)
	}
	return acc
}

// Fund posts a completed credit of amount to the given balance.
func (e *Env) Fund(accountID uuid.UUID, bt models.BalanceType, amount string) {
	tt := models.TxTopup
	if bt == models.BalanceReferral {
		tt = models.TxReferral
	}
	_, err := e.Ledger.PostTransaction(context.Background(), ledger.Entry{
		AccountID:   accountID,
		Type:        tt,
		BalanceType: bt,
		Amount:      models.MustAmount(amount),
		Description: "test funding",
	})
	if err != nil {
		panic(err)
	}
}

func (e *Env) Balances(accountID uuid.UUID) models.Balances {
	acc, err := e.Store.GetAccount(context.Background(), accountID)
	if err != nil {
		panic(err)
	}
	return acc.Balances()
}
