package repository

import (
	"context"
	"fmt"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
	pkgkafka "SignalForge/pkg/kafka"
)

// BatchPublisher is the subset of the Kafka producer used here.
type BatchPublisher interface {
	PublishBatch(ctx context.Context, topic string, messages []pkgkafka.Message) error
	Close() error
}

type strategyMessage struct {
	RunID    string          `json:"run_id"`
	Rank     int             `json:"rank"`
	Strategy models.Strategy `json:"strategy"`
}

// KafkaStrategyPublisher announces ranked strategies keyed by coin so one
// coin's results stay ordered on a partition.
type KafkaStrategyPublisher struct {
	producer BatchPublisher
	topic    string
}

func NewKafkaStrategyPublisher(producer BatchPublisher, topic string) *KafkaStrategyPublisher {
	return &KafkaStrategyPublisher{producer: producer, topic: topic}
}

func (p *KafkaStrategyPublisher) PublishStrategies(ctx context.Context, runID string, strategies []models.Strategy) error {
	if len(strategies) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(strategies))
	for i, st := range strategies {
		msgs[i] = pkgkafka.Message{
			Key:   []byte(st.Coin),
			Value: strategyMessage{RunID: runID, Rank: i + 1, Strategy: st},
		}
	}
	if err := p.producer.PublishBatch(ctx, p.topic, msgs); err != nil {
		return fmt.Errorf("publish strategies: %w", err)
	}
	return nil
}

func (p *KafkaStrategyPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

var _ domrepo.ResultPublisher = (*KafkaStrategyPublisher)(nil)
