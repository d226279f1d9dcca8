package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/xavierca1/ligue-leads/internal/entity"
)

// optionalAuditColumns vary across deployments; the insert only names the
// ones the target table actually has.
var optionalAuditColumns = []string{"actor_type", "fingerprint_prefix", "metadata"}

// AuditRepository writes redacted activity rows to audit_log. The column set
// is resolved once per process: from the explicit descriptor when one is
// configured, otherwise by probing information_schema on first use.
type AuditRepository struct {
	DB     *sql.DB
	Logger *zap.Logger

	// declaredColumns is the AUDIT_SCHEMA_COLUMNS override; when non-nil
	// the probe is skipped entirely.
	declaredColumns []string

	probeOnce sync.Once
	present   map[string]bool
}

func NewAuditRepository(db *sql.DB, declaredColumns []string, logger *zap.Logger) *AuditRepository {
	return &AuditRepository{
		DB:              db,
		Logger:          logger,
		declaredColumns: declaredColumns,
	}
}

func (r *AuditRepository) Record(ctx context.Context, e *entity.AuditLogEntry) error {
	r.probeOnce.Do(func() { r.resolveColumns(ctx) })

	columns := []string{"id", "tenant_id", "actor_id", "action", "entity_id", "created_at"}
	values := []interface{}{e.ID, e.TenantID, e.ActorID, e.Action, e.EntityID, e.CreatedAt}

	if r.present["actor_type"] {
		columns = append(columns, "actor_type")
		values = append(values, e.ActorType)
	}
	if r.present["fingerprint_prefix"] {
		columns = append(columns, "fingerprint_prefix")
		values = append(values, e.FingerprintPrefix)
	}
	if r.present["metadata"] {
		metadata, err := json.Marshal(e.Metadata)
		if err != nil {
			return err
		}
		columns = append(columns, "metadata")
		values = append(values, metadata)
	}

	placeholders := make([]string, len(columns))
	for i := range columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	query := fmt.Sprintf(
		"INSERT INTO audit_log (%s) VALUES (%s)",
		strings.Join(columns, ", "),
		strings.Join(placeholders, ", "),
	)

	_, err := r.DB.ExecContext(ctx, query, values...)
	return err
}

func (r *AuditRepository) resolveColumns(ctx context.Context) {
	r.present = make(map[string]bool)

	if r.declaredColumns != nil {
		for _, col := range r.declaredColumns {
			r.present[strings.TrimSpace(col)] = true
		}
		return
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT column_name FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = 'audit_log' AND column_name = ANY($1)
	`, pq.Array(optionalAuditColumns))
	if err != nil {
		if r.Logger != nil {
			r.Logger.Warn("audit column probe failed, writing base columns only", zap.Error(err))
		}
		return
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			continue
		}
		r.present[name] = true
	}
}
