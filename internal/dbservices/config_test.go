package dbservices

import (
	"context"
	"github.com/Fuonder/marketledger.git/internal/models"
	"github.com/Fuonder/marketledger.git/internal/storage/memstore"
	"github.com/Fuonder/marketledger.git/internal/wallets"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestNewDatabaseServices(t *testing.T) {
	_, err := NewDatabaseServices(Dependencies{})
	assert.Error(t, err)

	s, err := NewDatabaseServices(Dependencies{Store: memstore.New(), Limits: wallets.DefaultLimits()})
	require.NoError(t, err)

	acc, err := s.LedgerSrv.OpenAccount(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "KGS", acc.Currency)

	b, err := s.LedgerSrv.GetBalance(context.Background(), acc.ID)
	require.NoError(t, err)
	assert.True(t, b.Main.IsZero())
}

func TestNewDatabaseServices_DefaultLimits(t *testing.T) {
	s, err := NewDatabaseServices(Dependencies{Store: memstore.New()})
	require.NoError(t, err)

	acc, err := s.LedgerSrv.OpenAccount(context.Background(), "user-2")
	require.NoError(t, err)

	_, err = s.WalletSrv.Topup(context.Background(), acc.ID, wallets.TopupInput{Amount: decimal.NewFromInt(500)})
	require.NoError(t, err)
	_, err = s.WalletSrv.Topup(context.Background(), acc.ID, wallets.TopupInput{Amount: decimal.NewFromInt(50)})
	assert.ErrorIs(t, err, models.ErrBelowMinimum)
}
