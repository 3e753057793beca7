package notify

import (
	"context"
	"encoding/json"
	"log"

	"gitlab.ozon.dev/qwestard/cylinders/internal/repository"
)

// Notifier is the outbound-notification collaborator. Send is fire-and-forget:
// the core logs a false return and moves on, it never fails an operation over
// a notification.
type Notifier interface {
	Send(ctx context.Context, recipient, template string, payload map[string]string) bool
}

// Message is what ends up on the Kafka topic once the outbox poller picks the
// task up.
type Message struct {
	Recipient string            `json:"recipient"`
	Template  string            `json:"template"`
	Payload   map[string]string `json:"payload,omitempty"`
}

// OutboxNotifier queues messages as notification tasks; a poller publishes
// them with bounded retries. Delivery is at-least-once and asynchronous.
type OutboxNotifier struct {
	tasks repository.TaskRepository
}

func NewOutboxNotifier(tasks repository.TaskRepository) *OutboxNotifier {
	return &OutboxNotifier{tasks: tasks}
}

func (n *OutboxNotifier) Send(ctx context.Context, recipient, template string, payload map[string]string) bool {
	raw, err := json.Marshal(Message{
		Recipient: recipient,
		Template:  template,
		Payload:   payload,
	})
	if err != nil {
		log.Printf("notify: marshal %s for %s: %v", template, recipient, err)
		return false
	}
	if err := n.tasks.CreateTask(ctx, raw); err != nil {
		log.Printf("notify: enqueue %s for %s: %v", template, recipient, err)
		return false
	}
	return true
}

// Discard drops every notification. Used in tests and when Kafka is not
// configured.
type Discard struct{}

func (Discard) Send(context.Context, string, string, map[string]string) bool { return true }
