package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestAuditRepositoryDeclaredColumns(t *testing.T) {
	// With an explicit capability descriptor the repository never probes
	// the database, so no connection is needed here.
	repo := NewAuditRepository(nil, []string{"actor_type", " fingerprint_prefix "}, zap.NewNop())
	repo.probeOnce.Do(func() { repo.resolveColumns(context.Background()) })

	assert.True(t, repo.present["actor_type"])
	assert.True(t, repo.present["fingerprint_prefix"], "declared columns are trimmed")
	assert.False(t, repo.present["metadata"])
}
