// Package memstore is an in-process storage.Store. Units of work are serialized
// by a single mutex and rolled back by restoring a snapshot.
package memstore

import (
	"context"
	"fmt"
	"github.com/Fuonder/marketledger.git/internal/models"
	"github.com/Fuonder/marketledger.git/internal/storage"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"sort"
	"sync"
	"time"
)

type state struct {
	accounts    map[uuid.UUID]models.Account
	byUser      map[string]uuid.UUID
	txs         []models.Transaction
	withdrawals map[uuid.UUID]models.WithdrawalRequest
	topups      map[uuid.UUID]models.TopupRequest
	accruals    map[string]models.PlatformAccrual
	seq         int64
}

func newState() *state {
	return &state{
		accounts:    make(map[uuid.UUID]models.Account),
		byUser:      make(map[string]uuid.UUID),
		withdrawals: make(map[uuid.UUID]models.WithdrawalRequest),
		topups:      make(map[uuid.UUID]models.TopupRequest),
		accruals:    make(map[string]models.PlatformAccrual),
	}
}

func (s *state) clone() *state {
	c := &state{
		accounts:    make(map[uuid.UUID]models.Account, len(s.accounts)),
		byUser:      make(map[string]uuid.UUID, len(s.byUser)),
		txs:         append([]models.Transaction(nil), s.txs...),
		withdrawals: make(map[uuid.UUID]models.WithdrawalRequest, len(s.withdrawals)),
		topups:      make(map[uuid.UUID]models.TopupRequest, len(s.topups)),
		accruals:    make(map[string]models.PlatformAccrual, len(s.accruals)),
		seq:         s.seq,
	}
	for k, v := range s.accounts {
		c.accounts[k] = v
	}
	for k, v := range s.byUser {
		c.byUser[k] = v
	}
	for k, v := range s.withdrawals {
		c.withdrawals[k] = v
	}
	for k, v := range s.topups {
		c.topups[k] = v
	}
	for k, v := range s.accruals {
		c.accruals[k] = v
	}
	return c
}

type Store struct {
	mu sync.Mutex
	st *state
	// FailCommit, when set, is returned instead of committing a unit of work.
	FailCommit func() error
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return &Store{st: newState()}
}

func (s *Store) CreateAccount(_ context.Context, acc models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.st.byUser[acc.UserID]; ok {
		return models.ErrAccountAlreadyExists
	}
	if _, ok := s.st.accounts[acc.ID]; ok {
		return models.ErrAccountAlreadyExists
	}
	s.st.accounts[acc.ID] = acc
	s.st.byUser[acc.UserID] = acc.ID
	return nil
}

func (s *Store) GetAccount(_ context.Context, id uuid.UUID) (models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.st.accounts[id]
	if !ok {
		return models.Account{}, models.ErrAccountNotFound
	}
	return acc, nil
}

func (s *Store) GetAccountByUser(_ context.Context, userID string) (models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.st.byUser[userID]
	if !ok {
		return models.Account{}, models.ErrAccountNotFound
	}
	return s.st.accounts[id], nil
}

// sorted returns matching rows newest first, sequence breaking ties.
func (s *Store) sorted(accountID uuid.UUID, f models.TransactionFilter) []models.Transaction {
	var out []models.Transaction
	for _, t := range s.st.txs {
		if t.AccountID == accountID && f.Match(t) {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].Seq > out[j].Seq
	})
	return out
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return append([]T(nil), items[offset:end]...)
}

func (s *Store) ListTransactions(_ context.Context, accountID uuid.UUID, f models.TransactionFilter, limit, offset int) ([]models.Transaction, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.sorted(accountID, f)
	return page(all, limit, offset), len(all), nil
}

func (s *Store) EachTransaction(ctx context.Context, accountID uuid.UUID, f models.TransactionFilter, fn func(models.Transaction) error) error {
	s.mu.Lock()
	all := s.sorted(accountID, f)
	s.mu.Unlock()
	for _, t := range all {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(t); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) GetWithdrawal(_ context.Context, id uuid.UUID) (models.WithdrawalRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.st.withdrawals[id]
	if !ok {
		return models.WithdrawalRequest{}, models.ErrWithdrawalNotFound
	}
	return w, nil
}

func (s *Store) ListWithdrawals(_ context.Context, f models.WithdrawalFilter, limit, offset int) ([]models.WithdrawalRequest, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []models.WithdrawalRequest
	for _, w := range s.st.withdrawals {
		if f.Match(w) {
			all = append(all, w)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID.String() > all[j].ID.String()
	})
	return page(all, limit, offset), len(all), nil
}

func (s *Store) GetTopup(_ context.Context, id uuid.UUID) (models.TopupRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.st.topups[id]
	if !ok {
		return models.TopupRequest{}, models.ErrTopupNotFound
	}
	return t, nil
}

func (s *Store) GetAccrual(_ context.Context, orderID string) (models.PlatformAccrual, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.st.accruals[orderID]
	if !ok {
		return models.PlatformAccrual{}, models.ErrNoData
	}
	return a, nil
}

func (s *Store) ExpireTopups(_ context.Context, before time.Time) ([]models.TopupRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var expired []models.TopupRequest
	for id, t := range s.st.topups {
		if t.Status == models.TopupPending && t.CreatedAt.Before(before) {
			t.Status = models.TopupFailed
			t.UpdatedAt = time.Now()
			s.st.topups[id] = t
			expired = append(expired, t)
		}
	}
	return expired, nil
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	if err := fn(ctx, &memTx{st: s.st}); err != nil {
		s.st = snapshot
		return err
	}
	if s.FailCommit != nil {
		if err := s.FailCommit(); err != nil {
			s.st = snapshot
			return err
		}
	}
	return nil
}

func (s *Store) Close() error { return nil }

// Transactions returns every stored ledger row, for assertions in tests.
func (s *Store) Transactions(accountID uuid.UUID) []models.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sorted(accountID, models.TransactionFilter{})
}

type memTx struct {
	st *state
}

func (m *memTx) LockAccount(_ context.Context, id uuid.UUID) (models.Account, error) {
	acc, ok := m.st.accounts[id]
	if !ok {
		return models.Account{}, models.ErrAccountNotFound
	}
	return acc, nil
}

func (m *memTx) SaveBalances(_ context.Context, acc models.Account) error {
	cur, ok := m.st.accounts[acc.ID]
	if !ok {
		return models.ErrAccountNotFound
	}
	if acc.MainBalance.IsNegative() || acc.ReferralBalance.IsNegative() {
		return fmt.Errorf("balance check violated for account %s", acc.ID)
	}
	cur.MainBalance = acc.MainBalance
	cur.ReferralBalance = acc.ReferralBalance
	cur.UpdatedAt = acc.UpdatedAt
	m.st.accounts[acc.ID] = cur
	return nil
}

func (m *memTx) InsertTransaction(_ context.Context, t models.Transaction) (models.Transaction, error) {
	if _, ok := m.st.accounts[t.AccountID]; !ok {
		return models.Transaction{}, models.ErrAccountNotFound
	}
	m.st.seq++
	t.Seq = m.st.seq
	m.st.txs = append(m.st.txs, t)
	return t, nil
}

func (m *memTx) LedgerTotals(_ context.Context, accountID uuid.UUID) (models.LedgerTotals, error) {
	totals := models.LedgerTotals{Main: decimal.Zero, Referral: decimal.Zero}
	for _, t := range m.st.txs {
		if t.AccountID != accountID || !t.Effective() {
			continue
		}
		if t.BalanceType == models.BalanceReferral {
			totals.Referral = totals.Referral.Add(t.Signed())
		} else {
			totals.Main = totals.Main.Add(t.Signed())
		}
		totals.Count++
	}
	return totals, nil
}

func (m *memTx) SetTransactionStatus(_ context.Context, id uuid.UUID, from, to models.TransactionStatus) error {
	for i := range m.st.txs {
		if m.st.txs[i].ID != id {
			continue
		}
		if m.st.txs[i].Status != from {
			break
		}
		m.st.txs[i].Status = to
		return nil
	}
	return fmt.Errorf("%w: transaction %s is not %s", models.ErrInvalidStateTransition, id, from)
}

func (m *memTx) InsertWithdrawal(_ context.Context, w models.WithdrawalRequest) error {
	if w.IdempotencyKey != "" {
		if _, found, _ := m.FindWithdrawalByKey(context.Background(), w.AccountID, w.IdempotencyKey); found {
			return fmt.Errorf("duplicate idempotency key %q", w.IdempotencyKey)
		}
	}
	m.st.withdrawals[w.ID] = w
	return nil
}

func (m *memTx) FindWithdrawalByKey(_ context.Context, accountID uuid.UUID, key string) (models.WithdrawalRequest, bool, error) {
	for _, w := range m.st.withdrawals {
		if w.AccountID == accountID && w.IdempotencyKey == key {
			return w, true, nil
		}
	}
	return models.WithdrawalRequest{}, false, nil
}

func (m *memTx) ResolveWithdrawal(_ context.Context, id uuid.UUID, to models.WithdrawalStatus, note string, at time.Time) (models.WithdrawalRequest, error) {
	w, ok := m.st.withdrawals[id]
	if !ok {
		return models.WithdrawalRequest{}, models.ErrWithdrawalNotFound
	}
	if w.Status != models.WithdrawalPending {
		return models.WithdrawalRequest{}, fmt.Errorf("%w: withdrawal %s is already %s",
			models.ErrInvalidStateTransition, id, w.Status)
	}
	w.Status = to
	w.AdminNote = note
	w.UpdatedAt = at
	m.st.withdrawals[id] = w
	return w, nil
}

func (m *memTx) InsertTopup(_ context.Context, t models.TopupRequest) error {
	m.st.topups[t.ID] = t
	return nil
}

func (m *memTx) FindTopupByKey(_ context.Context, accountID uuid.UUID, key string) (models.TopupRequest, bool, error) {
	for _, t := range m.st.topups {
		if t.AccountID == accountID && t.IdempotencyKey == key {
			return t, true, nil
		}
	}
	return models.TopupRequest{}, false, nil
}

func (m *memTx) AttachTopupPayment(_ context.Context, id uuid.UUID, paymentURL, externalRef string) error {
	t, ok := m.st.topups[id]
	if !ok {
		return models.ErrTopupNotFound
	}
	t.PaymentURL = paymentURL
	t.ExternalRef = externalRef
	m.st.topups[id] = t
	return nil
}

func (m *memTx) ResolveTopup(_ context.Context, id uuid.UUID, to models.TopupStatus, txID uuid.UUID, externalRef string, at time.Time) (models.TopupRequest, error) {
	t, ok := m.st.topups[id]
	if !ok {
		return models.TopupRequest{}, models.ErrTopupNotFound
	}
	if t.Status != models.TopupPending {
		return models.TopupRequest{}, fmt.Errorf("%w: topup %s is already %s",
			models.ErrInvalidStateTransition, id, t.Status)
	}
	t.Status = to
	t.TransactionID = txID
	t.ExternalRef = externalRef
	t.UpdatedAt = at
	m.st.topups[id] = t
	return t, nil
}

func (m *memTx) InsertAccrual(_ context.Context, a models.PlatformAccrual) (bool, error) {
	if _, ok := m.st.accruals[a.OrderID]; ok {
		return false, nil
	}
	m.st.accruals[a.OrderID] = a
	return true, nil
}
