package events

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/Fuonder/marketledger.git/internal/logger"
	"github.com/Fuonder/marketledger.git/internal/models"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
	"time"
)

const DefaultTopic = "ledger.transactions"

type KafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaPublisher builds an async writer: Publish only enqueues, delivery errors are logged.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 50 * time.Millisecond,
			Async:        true,
			Completion: func(messages []kafka.Message, err error) {
				if err != nil {
					logger.Log.Error("failed to deliver ledger events",
						zap.Int("count", len(messages)), zap.Error(err))
				}
			},
		},
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, events []models.Event) error {
	if len(events) == 0 {
		return nil
	}
	messages, err := encode(events)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, messages...)
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// encode keys every message by account so one account's events stay ordered within a partition.
func encode(events []models.Event) ([]kafka.Message, error) {
	messages := make([]kafka.Message, 0, len(events))
	for _, e := range events {
		value, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal event %s: %w", e.ID, err)
		}
		messages = append(messages, kafka.Message{
			Key:   []byte(e.AccountID.String()),
			Value: value,
			Time:  e.OccurredAt,
			Headers: []kafka.Header{
				{Key: "kind", Value: []byte(e.Kind)},
			},
		})
	}
	return messages, nil
}
