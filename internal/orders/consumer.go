package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/Fuonder/marketledger.git/internal/logger"
	"github.com/Fuonder/marketledger.git/internal/models"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
	"strconv"
	"time"
)

const retriesCount = 5

// MessageReader is the subset of *kafka.Reader the consumer needs.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// MessageWriter is the subset of *kafka.Writer used to park events that could not be handled.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Consumer feeds order-confirmed events from a topic into the order service.
// Offsets are committed only after an event is handled or dead-lettered, so delivery is at
// least once; OnOrderConfirmed being idempotent per order makes redelivery harmless.
type Consumer struct {
	srv        OrderService
	reader     MessageReader
	deadLetter MessageWriter
	timeouts   []time.Duration
}

func NewConsumer(srv OrderService, reader MessageReader) *Consumer {
	timeouts := make([]time.Duration, retriesCount)
	for i := 0; i < retriesCount; i++ {
		timeouts[i] = time.Duration(2*i+1) * time.Second
	}
	return &Consumer{srv: srv, reader: reader, timeouts: timeouts}
}

// WithDeadLetter makes the consumer copy failed events to w before committing them.
func (c *Consumer) WithDeadLetter(w MessageWriter) *Consumer {
	c.deadLetter = w
	return c
}

func NewKafkaReader(brokers []string, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 1 << 20,
	})
}

func NewDeadLetterWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}
}

// Run consumes until ctx is cancelled. A failed event is logged, dead-lettered when a
// writer is set and then committed so the events behind it are not held up.
func (c *Consumer) Run(ctx context.Context) error {
	defer c.reader.Close()
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if err := c.handle(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if err := c.park(ctx, msg, err); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

// handle retries concurrency conflicts and storage outages with growing timeouts, at most
// len(timeouts) times. Every other error is final.
func (c *Consumer) handle(ctx context.Context, msg kafka.Message) error {
	var ev models.OrderConfirmed
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		return fmt.Errorf("%w: %v", models.ErrInvalidOrder, err)
	}
	for attempt := 0; ; attempt++ {
		_, err := c.srv.OnOrderConfirmed(ctx, ev)
		if err == nil || !retryable(err) {
			return err
		}
		if attempt >= len(c.timeouts) {
			return fmt.Errorf("giving up after %d retries: %w", attempt, err)
		}
		timeout := c.timeouts[attempt]
		logger.Log.Info("retrying order event after timeout",
			zap.String("order", ev.OrderID),
			zap.Duration("timeout", timeout),
			zap.Int("retry-count", attempt+1),
			zap.Error(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(timeout):
		}
	}
}

func (c *Consumer) park(ctx context.Context, msg kafka.Message, cause error) error {
	logger.Log.Error("order event failed",
		zap.Int64("offset", msg.Offset),
		zap.String("key", string(msg.Key)),
		zap.ByteString("value", msg.Value),
		zap.Error(cause))
	if c.deadLetter == nil {
		return nil
	}
	headers := append([]kafka.Header(nil), msg.Headers...)
	headers = append(headers,
		kafka.Header{Key: "error", Value: []byte(cause.Error())},
		kafka.Header{Key: "source-offset", Value: []byte(strconv.FormatInt(msg.Offset, 10))},
	)
	err := c.deadLetter.WriteMessages(ctx, kafka.Message{Key: msg.Key, Value: msg.Value, Headers: headers})
	if err != nil {
		return fmt.Errorf("dead-letter order event at offset %d: %w", msg.Offset, err)
	}
	return nil
}

func retryable(err error) bool {
	return errors.Is(err, models.ErrConcurrencyConflict) || errors.Is(err, models.ErrStorageUnavailable)
}
