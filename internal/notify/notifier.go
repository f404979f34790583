// Package notify publishes job lifecycle events for external consumers.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/fioreale/PaperFlow/internal/pipeline"
	"github.com/fioreale/PaperFlow/shared/rabbitmq"
)

// RabbitNotifier publishes pipeline events as JSON messages to the
// configured RabbitMQ exchange.
type RabbitNotifier struct {
	client *rabbitmq.Client
	logger *slog.Logger
}

// NewRabbitNotifier creates a notifier backed by an existing client.
func NewRabbitNotifier(client *rabbitmq.Client, logger *slog.Logger) *RabbitNotifier {
	return &RabbitNotifier{client: client, logger: logger}
}

// Publish implements pipeline.Notifier.
func (n *RabbitNotifier) Publish(ctx context.Context, event pipeline.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := n.client.Publish(ctx, body, "application/json"); err != nil {
		return err
	}

	n.logger.Debug("Job event published",
		slog.String("event", event.Type),
		slog.String("job_id", event.JobID),
	)
	return nil
}
