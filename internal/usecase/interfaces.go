package usecase

import (
	"context"

	"github.com/xavierca1/ligue-leads/internal/infra/queue"
)

type QueueProducerInterface interface {
	PublishLeadIngested(ctx context.Context, payload queue.LeadEventPayload) error
}

type EmailService interface {
	NotifyNewLead(to, tenantID, segment, source, fingerprintPrefix string) error
}
