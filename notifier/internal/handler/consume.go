package handler

import (
	"context"
	"encoding/json"

	"github.com/IBM/sarama"
	"github.com/astralibs/lending-service/pkg/kafka"
	"go.uber.org/zap"
)

type dispatch func(ctx context.Context, event kafka.LoanEvent) error

type Consumer struct {
	dispatchHandler dispatch
	log             *zap.Logger
	ready           chan bool
}

func NewConsumer(dispatch dispatch, log *zap.Logger) *Consumer {
	return &Consumer{
		dispatchHandler: dispatch,
		log:             log.Named("consumer"),
		ready:           make(chan bool),
	}
}

func (consumer *Consumer) Setup(sarama.ConsumerGroupSession) error {
	// Mark the consumer as ready
	close(consumer.ready)
	return nil
}

func (consumer *Consumer) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

func (consumer *Consumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok {
				consumer.log.Warn("message channel was closed")
				return nil
			}
			var event kafka.LoanEvent
			if err := json.Unmarshal(message.Value, &event); err != nil {
				consumer.log.Error("", zap.Error(err))
				session.MarkMessage(message, "")
				continue
			}

			if err := consumer.dispatchHandler(context.Background(), event); err != nil {
				consumer.log.Error("consumer.dispatchHandler", zap.Error(err))
			}

			consumer.log.Debug("Message claimed:", zap.String("value", string(message.Value)), zap.Time("timestamp", message.Timestamp), zap.String("topic", message.Topic))
			session.MarkMessage(message, "")
		case <-session.Context().Done():
			return nil
		}
	}
}
