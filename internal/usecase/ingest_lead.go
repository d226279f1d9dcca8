package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xavierca1/ligue-leads/internal/entity"
	"github.com/xavierca1/ligue-leads/internal/infra/queue"
)

type IngestLeadUseCase struct {
	Leads        entity.LeadStoreInterface
	Tenants      entity.TenantRepositoryInterface
	Audit        entity.AuditLoggerInterface
	Queue        QueueProducerInterface
	EmailService EmailService
	SalesInbox   string
	Logger       *zap.Logger
}

func NewIngestLeadUseCase(
	leads entity.LeadStoreInterface,
	tenants entity.TenantRepositoryInterface,
	audit entity.AuditLoggerInterface,
	producer QueueProducerInterface,
	emailService EmailService,
	salesInbox string,
	logger *zap.Logger,
) *IngestLeadUseCase {
	return &IngestLeadUseCase{
		Leads:        leads,
		Tenants:      tenants,
		Audit:        audit,
		Queue:        producer,
		EmailService: emailService,
		SalesInbox:   salesInbox,
		Logger:       logger,
	}
}

// Execute runs normalize → atomic upsert → best-effort audit/events. Field
// validation and authentication have already happened in the handler; the
// only state-changing call here is UpsertByFingerprint.
func (uc *IngestLeadUseCase) Execute(ctx context.Context, input IngestLeadInput, actor entity.Actor) (*IngestLeadOutput, error) {

	exists, err := uc.Tenants.Exists(ctx, input.TenantID)
	if err != nil {
		return nil, &TechnicalError{
			Code:    CodeInternalError,
			Message: "tenant lookup failed: " + err.Error(),
		}
	}
	if !exists {
		return nil, &DomainError{
			Code:    CodeInvalidTenant,
			Message: "tenant does not exist",
		}
	}

	email := NormalizeEmail(input.Lead.Email)
	phone := NormalizePhone(input.Lead.Phone)
	company := NormalizeCompany(input.Lead.CompanyName)
	fingerprint := Fingerprint(email, phone, company)
	segment := ClassifySegment(email, phone, company, input.Lead.JobTitle)

	candidate := &entity.LeadCandidate{
		TenantID:     input.TenantID,
		Fingerprint:  fingerprint,
		Email:        email,
		Phone:        phone,
		FirstName:    input.Lead.FirstName,
		LastName:     input.Lead.LastName,
		CompanyName:  input.Lead.CompanyName,
		JobTitle:     input.Lead.JobTitle,
		Source:       input.Lead.Source,
		Segment:      segment,
		Raw:          input.Lead.Raw,
		NewLeadID:    uuid.New().String(),
		NewProfileID: uuid.New().String(),
	}

	result, err := uc.Leads.UpsertByFingerprint(ctx, candidate)
	if err != nil {
		return nil, &TechnicalError{
			Code:              CodeNormalizeFailed,
			Message:           "lead upsert failed: " + err.Error(),
			FingerprintPrefix: FingerprintPrefix(fingerprint),
		}
	}

	uc.recordAudit(ctx, input.TenantID, actor, result, fingerprint)
	uc.publishEvent(ctx, input.TenantID, result, fingerprint, input.Lead.Source)

	if result.Status == entity.UpsertStatusCreated && result.Segment == entity.SegmentB2B &&
		uc.EmailService != nil && uc.SalesInbox != "" {
		go func() {
			if err := uc.EmailService.NotifyNewLead(
				uc.SalesInbox, input.TenantID, result.Segment, input.Lead.Source,
				FingerprintPrefix(fingerprint),
			); err != nil && uc.Logger != nil {
				uc.Logger.Warn("sales notification failed", zap.Error(err))
			}
		}()
	}

	return &IngestLeadOutput{
		Status:        result.Status,
		TenantID:      input.TenantID,
		LeadID:        result.LeadID,
		LeadProfileID: result.LeadProfileID,
		Fingerprint:   fingerprint,
		Segment:       result.Segment,
		Normalized:    NormalizedContact{Email: email, Phone: phone},
	}, nil
}

// recordAudit is best-effort: a failed write is a warning, never an error for
// the caller.
func (uc *IngestLeadUseCase) recordAudit(ctx context.Context, tenantID string, actor entity.Actor, result *entity.UpsertResult, fingerprint string) {
	if uc.Audit == nil {
		return
	}

	entry := &entity.AuditLogEntry{
		ID:                uuid.New().String(),
		TenantID:          tenantID,
		ActorID:           actor.ID,
		ActorType:         actor.Type,
		Action:            "lead." + result.Status,
		EntityID:          result.LeadProfileID,
		FingerprintPrefix: FingerprintPrefix(fingerprint),
		Metadata: map[string]interface{}{
			"segment": result.Segment,
		},
		CreatedAt: time.Now(),
	}

	if err := uc.Audit.Record(ctx, entry); err != nil && uc.Logger != nil {
		uc.Logger.Warn("audit write failed",
			zap.String("tenant_id", tenantID),
			zap.Error(err),
		)
	}
}

// publishEvent feeds the downstream CRM and autopilot consumers. Same
// contract as audit: failures are logged and swallowed.
func (uc *IngestLeadUseCase) publishEvent(ctx context.Context, tenantID string, result *entity.UpsertResult, fingerprint, source string) {
	if uc.Queue == nil {
		return
	}

	payload := queue.LeadEventPayload{
		TenantID:      tenantID,
		LeadID:        result.LeadID,
		LeadProfileID: result.LeadProfileID,
		Status:        result.Status,
		Segment:       result.Segment,
		Source:        source,
		Fingerprint:   fingerprint,
	}

	if err := uc.Queue.PublishLeadIngested(ctx, payload); err != nil && uc.Logger != nil {
		uc.Logger.Warn("lead event publish failed",
			zap.String("tenant_id", tenantID),
			zap.Error(err),
		)
	}
}
