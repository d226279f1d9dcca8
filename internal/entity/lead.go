package entity

import (
	"context"
	"time"
)

const (
	SegmentUnknown = "unknown"
	SegmentB2B     = "b2b"
	SegmentB2C     = "b2c"
)

const LeadStatusNew = "new"

const (
	UpsertStatusCreated = "created"
	UpsertStatusDeduped = "deduped"
)

// Entidade: Lead
type Lead struct {
	ID           string                 `json:"id"`
	TenantID     string                 `json:"tenant_id"`
	FirstName    string                 `json:"first_name,omitempty"`
	LastName     string                 `json:"last_name,omitempty"`
	Email        string                 `json:"email,omitempty"`
	Phone        string                 `json:"phone,omitempty"`
	BusinessName string                 `json:"business_name,omitempty"`
	Source       string                 `json:"source,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
	Status       string                 `json:"status"`
	CreatedAt    time.Time              `json:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at"`
}

// EnrichmentData lives as JSONB on the profile row. Sources is a set: the
// merge path appends a source only when it is not already present.
type EnrichmentData struct {
	Sources    []string  `json:"sources"`
	LastSeenAt time.Time `json:"last_seen_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// LeadProfile is the dedup unit. At most one row per (tenant_id, fingerprint)
// has IsPrimary = true; the store enforces it with a partial unique index.
type LeadProfile struct {
	ID          string         `json:"id"`
	LeadID      string         `json:"lead_id"`
	TenantID    string         `json:"tenant_id"`
	Fingerprint string         `json:"fingerprint"`
	Segment     string         `json:"segment"`
	IsPrimary   bool           `json:"is_primary"`
	CompanyName string         `json:"company_name,omitempty"`
	JobTitle    string         `json:"job_title,omitempty"`
	Enrichment  EnrichmentData `json:"enrichment_data"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// LeadCandidate carries one normalized sighting of a contact into the store.
// Email/Phone are already canonical; NewLeadID/NewProfileID are only consumed
// when the sighting turns out to be the first one for its fingerprint.
type LeadCandidate struct {
	TenantID     string
	Fingerprint  string
	Email        string
	Phone        string
	FirstName    string
	LastName     string
	CompanyName  string
	JobTitle     string
	Source       string
	Segment      string
	Raw          map[string]interface{}
	NewLeadID    string
	NewProfileID string
}

type UpsertResult struct {
	Status        string `json:"status"` // created | deduped
	LeadID        string `json:"lead_id"`
	LeadProfileID string `json:"lead_profile_id"`
	Segment       string `json:"segment"`
}

type LeadStoreInterface interface {

	// UpsertByFingerprint folds the candidate into at most one primary
	// profile per (tenant, fingerprint), atomically. Concurrent calls for
	// the same fingerprint yield exactly one "created" result.
	UpsertByFingerprint(ctx context.Context, c *LeadCandidate) (*UpsertResult, error)
}
