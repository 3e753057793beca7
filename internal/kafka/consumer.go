package kafka

import (
	"context"
	"encoding/json"
	"log"

	"github.com/IBM/sarama"

	"gitlab.ozon.dev/qwestard/cylinders/internal/notify"
)

// NotificationHandler drains the notification topic. Delivery here is a log
// line; the real channel (SMS gateway) sits behind the same shape.
type NotificationHandler struct{}

func (NotificationHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (NotificationHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h NotificationHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		var m notify.Message
		if err := json.Unmarshal(msg.Value, &m); err != nil {
			log.Printf("Skipping malformed notification at offset %d: %v", msg.Offset, err)
			session.MarkMessage(msg, "")
			continue
		}
		log.Printf("Notify %s: %s %v", m.Recipient, m.Template, m.Payload)
		session.MarkMessage(msg, "")
	}
	return nil
}

func StartSaramaConsumer(ctx context.Context, cfg *sarama.Config, brokers []string, groupID string, topics []string) {
	consumerGroup, err := sarama.NewConsumerGroup(brokers, groupID, cfg)
	if err != nil {
		log.Fatalf("Error creating consumer group: %v", err)
	}
	defer func() {
		if err := consumerGroup.Close(); err != nil {
			log.Printf("Error closing consumer group: %v", err)
		}
	}()

	handler := NotificationHandler{}

	for {
		select {
		case <-ctx.Done():
			return
		default:
			if err := consumerGroup.Consume(ctx, topics, handler); err != nil {
				log.Printf("Error from consumer: %v", err)
			}
		}
	}
}
