package httpserver

import (
	"context"
	"errors"
	"github.com/Fuonder/marketledger.git/internal/dbservices"
	"github.com/Fuonder/marketledger.git/internal/logger"
	"go.uber.org/zap"
	"net/http"
	"time"
)

type Service struct {
	apiSrv http.Server
}

func NewService(APIAddr string, services *dbservices.DatabaseServices, secret []byte) (*Service, error) {
	if services == nil {
		return nil, errors.New("services are not initialized")
	}
	h := NewHandlers(services)
	r := NewRouterObject(*h, secret)
	router, err := r.GetRouter()
	if err != nil {
		return nil, err
	}

	service := &Service{
		apiSrv: http.Server{
			Addr:              APIAddr,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
	return service, nil
}

// Run blocks until the server stops. A graceful shutdown is not reported as an error.
func (s *Service) Run() error {
	logger.Log.Info("API Listening at",
		zap.String("Addr", s.apiSrv.Addr))
	err := s.apiSrv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Service) Shutdown(ctx context.Context) error {
	logger.Log.Info("API shutting down")
	return s.apiSrv.Shutdown(ctx)
}
