package postrge

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"github.com/Fuonder/marketledger.git/internal/logger"
	"github.com/Fuonder/marketledger.git/internal/models"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
	"strings"
	"time"
)

var timeouts = []time.Duration{1 * time.Second, 3 * time.Second, 5 * time.Second}
var maxRetries = len(timeouts)

const defaultLockTimeout = 5 * time.Second

func isConnectionError(err error) bool {
	var pgErr *pgconn.PgError

	if errors.As(err, &pgErr) {
		state := pgErr.SQLState()
		if strings.HasPrefix(state, "08") {
			return true
		}
	}
	return false
}

// isUnreachable also covers failures that never reached the server.
func isUnreachable(err error) bool {
	var connErr *pgconn.ConnectError
	return isConnectionError(err) || errors.As(err, &connErr) || errors.Is(err, driver.ErrBadConn)
}

// isContentionError reports serialization failures, deadlocks and lock timeouts.
func isContentionError(err error) bool {
	var pgErr *pgconn.PgError

	if errors.As(err, &pgErr) {
		switch pgErr.SQLState() {
		case "40001", "40P01", "55P03":
			return true
		}
	}
	return false
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.SQLState() == "23505"
}

func classify(err error) error {
	if err == nil {
		return nil
	}
	if isContentionError(err) {
		return fmt.Errorf("%w: %v", models.ErrConcurrencyConflict, err)
	}
	if isUnreachable(err) {
		return fmt.Errorf("%w: %v", models.ErrStorageUnavailable, err)
	}
	return err
}

type Connection struct {
	db          *sql.DB
	lockTimeout time.Duration
}

func NewConnection(ctx context.Context, settings string) (*Connection, error) {
	var err error
	c := &Connection{lockTimeout: defaultLockTimeout}

	logger.Log.Info("Connecting to database")
	c.db, err = sql.Open("pgx", settings)
	if err != nil {
		return nil, fmt.Errorf("can not connect with database: %v", err)
	}
	c.db.SetMaxOpenConns(20)
	c.db.SetMaxIdleConns(5)
	c.db.SetConnMaxLifetime(time.Hour)
	c.db.SetConnMaxIdleTime(30 * time.Minute)

	logger.Log.Info("Database initial connection successful")
	err = c.ConnectCtx(ctx)
	if err != nil {
		return nil, fmt.Errorf("access to database: %v", err)
	}

	err = c.MigrateCtx(ctx)
	if err != nil {
		return nil, fmt.Errorf("migration: %v", err)
	}
	logger.Log.Info("Migration successful")
	return c, nil
}

func (c *Connection) ConnectCtx(ctx context.Context) error {
	var err error
	logger.Log.Info("Checking db accessibility")
	if c.db == nil {
		logger.Log.Warn("no active connection with db")
		return fmt.Errorf("no active connection with db")
	}
	for i := 0; i < maxRetries; i++ {
		err = c.db.PingContext(ctx)
		if err == nil {
			logger.Log.Info("Access - OK")
			return nil
		} else if isConnectionError(err) {
			logger.Log.Info("can not access database", zap.Error(err))
			logger.Log.Info("retrying after timeout",
				zap.Duration("timeout", timeouts[i]),
				zap.Int("retry-count", i+1))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(timeouts[i]):
			}
		} else {
			return fmt.Errorf("can not access database: %v", err)
		}
	}
	return fmt.Errorf("can not access database after %d retries: %v", maxRetries, err)
}

func (c *Connection) MigrateCtx(ctx context.Context) error {
	logger.Log.Info("Migrating database")
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, MigrationQuery)
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (c *Connection) Close() error {
	logger.Log.Info("Closing database connection gracefully")
	return c.db.Close()
}
