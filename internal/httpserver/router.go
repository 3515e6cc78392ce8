package httpserver

import (
	"fmt"
	"github.com/Fuonder/marketledger.git/internal/httpserver/middleware"
	"github.com/Fuonder/marketledger.git/internal/logger"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

type RouterObject struct {
	h        Handlers
	secret   []byte
	chRouter chi.Router
}

func NewRouterObject(h Handlers, secret []byte) *RouterObject {
	return &RouterObject{h: h, secret: secret, chRouter: chi.NewRouter()}
}

func (r *RouterObject) GetRouter() (chi.Router, error) {
	if r.chRouter == nil {
		return nil, fmt.Errorf("router not initialized")
	}
	if len(r.secret) == 0 {
		return nil, fmt.Errorf("token secret is empty")
	}
	logger.Log.Debug("Configuring Router")
	r.chRouter.Use(chimw.Recoverer)
	r.chRouter.Use(logger.Middleware)

	r.chRouter.Get("/", r.h.RootHandler)

	r.chRouter.Route("/api/user", func(router chi.Router) {
		router.Use(middleware.Auth(r.secret))
		router.Use(middleware.RequireRole(middleware.RoleUser, middleware.RoleAdmin))

		router.Route("/balance", func(router chi.Router) {
			router.Get("/", r.h.GetBalanceHandler)
			router.Post("/topup", r.h.PostTopupHandler)
			router.Post("/transfer", r.h.PostTransferHandler)
		})
		router.Route("/withdrawals", func(router chi.Router) {
			router.Post("/", r.h.PostWithdrawalHandler)
			router.Get("/", r.h.GetWithdrawalsHandler)
		})
		router.Route("/transactions", func(router chi.Router) {
			router.Get("/", r.h.GetTransactionsHandler)
			router.Get("/export", r.h.ExportTransactionsHandler)
		})
	})

	r.chRouter.Route("/api/admin", func(router chi.Router) {
		router.Use(middleware.Auth(r.secret))
		router.Use(middleware.RequireRole(middleware.RoleAdmin))

		router.Route("/withdrawals", func(router chi.Router) {
			router.Get("/", r.h.AdminListWithdrawalsHandler)
			router.Get("/{id}", r.h.AdminGetWithdrawalHandler)
			router.Post("/{id}/approve", r.h.ApproveWithdrawalHandler)
			router.Post("/{id}/reject", r.h.RejectWithdrawalHandler)
			router.Post("/{id}/cancel", r.h.CancelWithdrawalHandler)
		})
		router.Get("/accounts/{id}/reconcile", r.h.ReconcileHandler)
	})

	r.chRouter.Route("/api/internal", func(router chi.Router) {
		router.Use(middleware.Auth(r.secret))
		router.Use(middleware.RequireRole(middleware.RoleService))

		router.Post("/accounts", r.h.OpenAccountHandler)
		router.Post("/orders/confirmed", r.h.OrderConfirmedHandler)
		router.Post("/payments/callback", r.h.PaymentCallbackHandler)
	})
	logger.Log.Info("Successfully initialized Router")
	return r.chRouter, nil
}

/*
GET  /api/user/balance
POST /api/user/balance/topup
POST /api/user/balance/transfer
POST /api/user/withdrawals
GET  /api/user/withdrawals
GET  /api/user/transactions
GET  /api/user/transactions/export
GET  /api/admin/withdrawals
GET  /api/admin/withdrawals/{id}
POST /api/admin/withdrawals/{id}/approve|reject|cancel
GET  /api/admin/accounts/{id}/reconcile
POST /api/internal/accounts
POST /api/internal/orders/confirmed
POST /api/internal/payments/callback
*/
