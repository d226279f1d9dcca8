package entity

import (
	"context"
	"time"
)

// Actor identifies who triggered a gateway operation: a resolved user id or
// the literal "system" for shared-secret callers.
type Actor struct {
	ID   string `json:"id"`
	Type string `json:"type"` // user | system
}

// AuditLogEntry is a redacted activity record. It never carries a raw email
// or phone number, only a truncated fingerprint prefix for correlation.
type AuditLogEntry struct {
	ID                string                 `json:"id"`
	TenantID          string                 `json:"tenant_id"`
	ActorID           string                 `json:"actor_id"`
	ActorType         string                 `json:"actor_type"`
	Action            string                 `json:"action"`
	EntityID          string                 `json:"entity_id"`
	FingerprintPrefix string                 `json:"fingerprint_prefix"`
	Metadata          map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt         time.Time              `json:"created_at"`
}

// AuditLoggerInterface is best-effort by contract: callers log a failed
// Record and move on, they never fail the request over it.
type AuditLoggerInterface interface {
	Record(ctx context.Context, e *AuditLogEntry) error
}
