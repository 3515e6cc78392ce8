package main

import (
	"context"
	"fmt"
	"github.com/Fuonder/marketledger.git/internal/cache"
	"github.com/Fuonder/marketledger.git/internal/dbservices"
	"github.com/Fuonder/marketledger.git/internal/events"
	"github.com/Fuonder/marketledger.git/internal/gateway"
	"github.com/Fuonder/marketledger.git/internal/httpserver"
	"github.com/Fuonder/marketledger.git/internal/logger"
	"github.com/Fuonder/marketledger.git/internal/notifications"
	"github.com/Fuonder/marketledger.git/internal/orders"
	"github.com/Fuonder/marketledger.git/internal/storage/postrge"
	"github.com/Fuonder/marketledger.git/internal/wallets"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"
)

const shutdownTimeout = 10 * time.Second

func main() {
	err := parseFlags()
	if err != nil {
		log.Fatal(err)
	}
	if err := logger.Initialize(CliOptions.LogLevel); err != nil {
		panic(fmt.Errorf("method main: %v", err))
	}
	defer logger.Log.Sync()
	logger.Log.Info("Flags parsed",
		zap.String("flags", CliOptions.String()))

	logger.Log.Info("Starting service")
	if err = run(); err != nil {
		logger.Log.Fatal("", zap.Error(err))
	}
	logger.Log.Info("Service stopped")
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	DBConn, err := postrge.NewConnection(ctx, CliOptions.DatabaseDSN)
	if err != nil {
		return err
	}
	defer DBConn.Close()

	deps := dbservices.Dependencies{
		Store:    DBConn,
		Cache:    cache.Noop{},
		Limits:   CliOptions.Limits(),
		Currency: CliOptions.Currency,
	}

	if CliOptions.RedisAddress != "" {
		client, err := cache.Connect(ctx, CliOptions.RedisAddress)
		if err != nil {
			return err
		}
		defer client.Close()
		deps.Cache = cache.NewRedisBalanceCache(client, 0)
	}

	brokers := CliOptions.Brokers()
	if len(brokers) > 0 {
		publisher := events.NewKafkaPublisher(brokers, CliOptions.KafkaTopic)
		defer publisher.Close()
		deps.Publisher = publisher
	} else {
		deps.Publisher = events.LogPublisher{}
	}

	var sender notifications.Sender = notifications.LogSender{}
	if CliOptions.WebhookURL != "" {
		sender = notifications.NewWebhookSender(CliOptions.WebhookURL)
	}
	dispatcher := notifications.NewDispatcher(sender, 0, 0)
	deps.Notifier = dispatcher

	if addr := CliOptions.GatewayAddress.String(); addr != "" {
		deps.Gateway = gateway.NewClient(addr)
	}

	services, err := dbservices.NewDatabaseServices(deps)
	if err != nil {
		return err
	}

	service, err := httpserver.NewService(CliOptions.APIAddress.String(), services, []byte(CliOptions.Key))
	if err != nil {
		return err
	}
	sweeper := wallets.NewTopupSweeper(DBConn, CliOptions.TopupTTL, CliOptions.SweepInterval)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(service.Run)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return service.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return sweeper.Run(gctx)
	})
	g.Go(func() error {
		return dispatcher.Run(gctx)
	})

	if len(brokers) > 0 && CliOptions.OrdersTopic != "" {
		consumer := orders.NewConsumer(services.OrderSrv,
			orders.NewKafkaReader(brokers, CliOptions.OrdersTopic, CliOptions.KafkaGroup))
		if CliOptions.OrdersDLQ != "" {
			dlq := orders.NewDeadLetterWriter(brokers, CliOptions.OrdersDLQ)
			defer dlq.Close()
			consumer.WithDeadLetter(dlq)
		}
		g.Go(func() error {
			return consumer.Run(gctx)
		})
	}

	if err := g.Wait(); err != nil {
		logger.Log.Debug("exit with error", zap.Error(err))
		return err
	}
	if n := dispatcher.Dropped(); n > 0 {
		logger.Log.Warn("notifications dropped", zap.Int64("count", n))
	}
	return nil
}
