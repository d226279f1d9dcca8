package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/lib/pq"

	"github.com/xavierca1/ligue-leads/internal/entity"
)

// LeadRepository is the dedup/upsert engine. The whole find-or-create-or-merge
// sequence runs inside one transaction; the at-most-one-primary invariant is
// enforced by the partial unique index ux_lead_profiles_primary on
// (tenant_id, fingerprint) WHERE is_primary, never by application timing.
type LeadRepository struct {
	DB *sql.DB
}

func NewLeadRepository(db *sql.DB) *LeadRepository {
	return &LeadRepository{DB: db}
}

func (r *LeadRepository) UpsertByFingerprint(ctx context.Context, c *entity.LeadCandidate) (*entity.UpsertResult, error) {

	result, err := r.tryUpsert(ctx, c)
	if err == nil {
		return result, nil
	}

	// A unique violation means a concurrent request won the create race.
	// Its row is committed by the time our insert failed, so one retry
	// lands on the merge branch. The race is never a caller-visible error.
	if isUniqueViolation(err) {
		return r.tryUpsert(ctx, c)
	}

	return nil, err
}

func (r *LeadRepository) tryUpsert(ctx context.Context, c *entity.LeadCandidate) (*entity.UpsertResult, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var (
		profileID   string
		leadID      string
		segment     string
		companyName sql.NullString
		jobTitle    sql.NullString
		enrichment  []byte
	)

	err = tx.QueryRowContext(ctx, `
		SELECT id, lead_id, segment, company_name, job_title, enrichment_data
		FROM lead_profiles
		WHERE tenant_id = $1 AND fingerprint = $2 AND is_primary
		FOR UPDATE
	`, c.TenantID, c.Fingerprint).Scan(
		&profileID, &leadID, &segment, &companyName, &jobTitle, &enrichment,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return r.insertNew(ctx, tx, c)
	}
	if err != nil {
		return nil, err
	}

	return r.merge(ctx, tx, c, profileID, leadID, segment, companyName, jobTitle, enrichment)
}

// insertNew writes the lead and its primary profile in the same transaction,
// so there is no orphan-lead hazard and nothing to compensate.
func (r *LeadRepository) insertNew(ctx context.Context, tx *sql.Tx, c *entity.LeadCandidate) (*entity.UpsertResult, error) {
	now := time.Now()

	metadata, err := json.Marshal(c.Raw)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO leads (id, tenant_id, first_name, last_name, email, phone,
			business_name, source, metadata, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
	`,
		c.NewLeadID, c.TenantID,
		nullString(c.FirstName), nullString(c.LastName),
		nullString(c.Email), nullString(c.Phone),
		nullString(c.CompanyName), nullString(c.Source),
		metadata, entity.LeadStatusNew, now,
	)
	if err != nil {
		return nil, err
	}

	enrichment, err := json.Marshal(entity.EnrichmentData{
		Sources:    sourcesFor(c.Source),
		LastSeenAt: now,
		CreatedAt:  now,
	})
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO lead_profiles (id, lead_id, tenant_id, fingerprint, segment,
			is_primary, company_name, job_title, enrichment_data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, TRUE, $6, $7, $8, $9, $9)
	`,
		c.NewProfileID, c.NewLeadID, c.TenantID, c.Fingerprint, c.Segment,
		nullString(c.CompanyName), nullString(c.JobTitle), enrichment, now,
	)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &entity.UpsertResult{
		Status:        entity.UpsertStatusCreated,
		LeadID:        c.NewLeadID,
		LeadProfileID: c.NewProfileID,
		Segment:       c.Segment,
	}, nil
}

// merge updates the locked primary profile: sources set-union, last_seen_at
// refresh, fill-once company/job title, segment upgrade from unknown only.
func (r *LeadRepository) merge(
	ctx context.Context,
	tx *sql.Tx,
	c *entity.LeadCandidate,
	profileID, leadID, segment string,
	companyName, jobTitle sql.NullString,
	rawEnrichment []byte,
) (*entity.UpsertResult, error) {
	now := time.Now()

	var enrichment entity.EnrichmentData
	if len(rawEnrichment) > 0 {
		if err := json.Unmarshal(rawEnrichment, &enrichment); err != nil {
			return nil, err
		}
	}

	if c.Source != "" && !containsString(enrichment.Sources, c.Source) {
		enrichment.Sources = append(enrichment.Sources, c.Source)
	}
	enrichment.LastSeenAt = now
	if enrichment.CreatedAt.IsZero() {
		enrichment.CreatedAt = now
	}

	if !companyName.Valid || companyName.String == "" {
		if c.CompanyName != "" {
			companyName = sql.NullString{String: c.CompanyName, Valid: true}
		}
	}
	if !jobTitle.Valid || jobTitle.String == "" {
		if c.JobTitle != "" {
			jobTitle = sql.NullString{String: c.JobTitle, Valid: true}
		}
	}

	if segment == entity.SegmentUnknown && c.Segment != entity.SegmentUnknown {
		segment = c.Segment
	}

	enrichmentJSON, err := json.Marshal(enrichment)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE lead_profiles
		SET segment = $1, company_name = $2, job_title = $3,
			enrichment_data = $4, updated_at = $5
		WHERE id = $6
	`, segment, companyName, jobTitle, enrichmentJSON, now, profileID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &entity.UpsertResult{
		Status:        entity.UpsertStatusDeduped,
		LeadID:        leadID,
		LeadProfileID: profileID,
		Segment:       segment,
	}, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func sourcesFor(source string) []string {
	if source == "" {
		return []string{}
	}
	return []string{source}
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
