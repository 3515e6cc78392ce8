package dbservices

import (
	"errors"
	"github.com/Fuonder/marketledger.git/internal/cache"
	"github.com/Fuonder/marketledger.git/internal/events"
	"github.com/Fuonder/marketledger.git/internal/gateway"
	"github.com/Fuonder/marketledger.git/internal/ledger"
	"github.com/Fuonder/marketledger.git/internal/models"
	"github.com/Fuonder/marketledger.git/internal/notifications"
	"github.com/Fuonder/marketledger.git/internal/orders"
	"github.com/Fuonder/marketledger.git/internal/storage"
	"github.com/Fuonder/marketledger.git/internal/wallets"
	"github.com/Fuonder/marketledger.git/internal/withdrawals"
)

type DatabaseServices struct {
	LedgerSrv ledger.LedgerService
	WalletSrv wallets.WalletService
	ReviewSrv withdrawals.ReviewService
	OrderSrv  orders.OrderService
}

// Dependencies are the collaborators shared by every service. Only Store is required;
// zero Limits fall back to wallets.DefaultLimits.
type Dependencies struct {
	Store     storage.Store
	Cache     cache.BalanceCache
	Publisher events.Publisher
	Notifier  notifications.Notifier
	Gateway   gateway.PaymentGateway
	Limits    wallets.Limits
	Currency  string
}

func NewDatabaseServices(deps Dependencies) (*DatabaseServices, error) {
	if deps.Store == nil {
		return nil, errors.New("storage is required")
	}
	if deps.Currency == "" {
		deps.Currency = models.DefaultCurrency
	}
	if deps.Limits.TopupMax.IsZero() {
		deps.Limits = wallets.DefaultLimits()
	}

	// ledger -> wallets -> withdrawals -> orders, all sharing one book

	book := ledger.NewBook(deps.Store, deps.Cache, deps.Publisher, deps.Notifier)

	return &DatabaseServices{
		LedgerSrv: ledger.NewLService(book, deps.Currency),
		WalletSrv: wallets.NewWService(book, deps.Gateway, deps.Limits, deps.Currency),
		ReviewSrv: withdrawals.NewRService(book),
		OrderSrv:  orders.NewOService(book),
	}, nil
}
