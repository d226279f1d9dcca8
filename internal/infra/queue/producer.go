package queue

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// LeadEventPayload is what downstream CRM screens and the autopilot engines
// consume. It carries the fingerprint, never the raw contact fields.
type LeadEventPayload struct {
	TenantID      string `json:"tenant_id"`
	LeadID        string `json:"lead_id"`
	LeadProfileID string `json:"lead_profile_id"`
	Status        string `json:"status"` // created | deduped
	Segment       string `json:"segment"`
	Source        string `json:"source,omitempty"`
	Fingerprint   string `json:"fingerprint"`
}

type RabbitMQProducer struct {
	Conn *amqp.Connection
	Ch   *amqp.Channel
}

func NewProducer(conn *amqp.Connection, ch *amqp.Channel) *RabbitMQProducer {
	return &RabbitMQProducer{
		Conn: conn,
		Ch:   ch,
	}
}

func (p *RabbitMQProducer) PublishLeadIngested(ctx context.Context, payload LeadEventPayload) error {

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal lead event: %w", err)
	}

	err = p.Ch.PublishWithContext(ctx,
		ExchangeName,
		RoutingKey,
		false, // Mandatory
		false, // Immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)

	if err != nil {
		return fmt.Errorf("failed to publish lead event: %w", err)
	}

	return nil
}
