package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xavierca1/ligue-leads/internal/entity"
	"github.com/xavierca1/ligue-leads/internal/infra/queue"
)

// fakeLeadStore mirrors the store-side merge semantics so the usecase can be
// exercised without Postgres: one primary profile per (tenant, fingerprint),
// sources as a set, fill-once company/job title, segment upgrade from
// unknown only.
type fakeLeadStore struct {
	mu       sync.Mutex
	profiles map[string]*fakeProfile
	failWith error
}

type fakeProfile struct {
	leadID    string
	profileID string
	segment   string
	company   string
	jobTitle  string
	sources   []string
}

func newFakeLeadStore() *fakeLeadStore {
	return &fakeLeadStore{profiles: make(map[string]*fakeProfile)}
}

func (s *fakeLeadStore) UpsertByFingerprint(ctx context.Context, c *entity.LeadCandidate) (*entity.UpsertResult, error) {
	if s.failWith != nil {
		return nil, s.failWith
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := c.TenantID + "|" + c.Fingerprint
	p, exists := s.profiles[key]

	if !exists {
		s.profiles[key] = &fakeProfile{
			leadID:    c.NewLeadID,
			profileID: c.NewProfileID,
			segment:   c.Segment,
			company:   c.CompanyName,
			jobTitle:  c.JobTitle,
			sources:   append([]string{}, sourcesOf(c.Source)...),
		}
		return &entity.UpsertResult{
			Status:        entity.UpsertStatusCreated,
			LeadID:        c.NewLeadID,
			LeadProfileID: c.NewProfileID,
			Segment:       c.Segment,
		}, nil
	}

	if c.Source != "" && !contains(p.sources, c.Source) {
		p.sources = append(p.sources, c.Source)
	}
	if p.company == "" && c.CompanyName != "" {
		p.company = c.CompanyName
	}
	if p.jobTitle == "" && c.JobTitle != "" {
		p.jobTitle = c.JobTitle
	}
	p.segment = UpgradeSegment(p.segment, c.Segment)

	return &entity.UpsertResult{
		Status:        entity.UpsertStatusDeduped,
		LeadID:        p.leadID,
		LeadProfileID: p.profileID,
		Segment:       p.segment,
	}, nil
}

func sourcesOf(source string) []string {
	if source == "" {
		return nil
	}
	return []string{source}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// MockTenantRepository
type MockTenantRepository struct {
	mock.Mock
}

func (m *MockTenantRepository) Exists(ctx context.Context, tenantID string) (bool, error) {
	args := m.Called(ctx, tenantID)
	return args.Bool(0), args.Error(1)
}

// MockAuditLogger
type MockAuditLogger struct {
	mock.Mock
}

func (m *MockAuditLogger) Record(ctx context.Context, e *entity.AuditLogEntry) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

// MockQueueProducer
type MockQueueProducer struct {
	mock.Mock
}

func (m *MockQueueProducer) PublishLeadIngested(ctx context.Context, payload queue.LeadEventPayload) error {
	args := m.Called(ctx, payload)
	return args.Error(0)
}

func newTestUseCase(store entity.LeadStoreInterface) *IngestLeadUseCase {
	tenants := new(MockTenantRepository)
	tenants.On("Exists", mock.Anything, mock.Anything).Return(true, nil)

	return NewIngestLeadUseCase(store, tenants, nil, nil, nil, "", zap.NewNop())
}

func ingestInput(tenantID string, lead LeadInput) IngestLeadInput {
	return IngestLeadInput{TenantID: tenantID, Lead: lead}
}

var testActor = entity.Actor{ID: "system", Type: "system"}

func TestIngestLeadIdempotentDedup(t *testing.T) {
	store := newFakeLeadStore()
	uc := newTestUseCase(store)

	input := ingestInput("tenant-1", LeadInput{Email: "john@example.com", Source: "web_form"})

	first, err := uc.Execute(context.Background(), input, testActor)
	require.NoError(t, err)
	assert.Equal(t, entity.UpsertStatusCreated, first.Status)

	for i := 0; i < 4; i++ {
		out, err := uc.Execute(context.Background(), input, testActor)
		require.NoError(t, err)
		assert.Equal(t, entity.UpsertStatusDeduped, out.Status)
		assert.Equal(t, first.LeadID, out.LeadID)
		assert.Equal(t, first.LeadProfileID, out.LeadProfileID)
	}

	assert.Len(t, store.profiles, 1)
}

func TestIngestLeadCaseInsensitiveDedup(t *testing.T) {
	store := newFakeLeadStore()
	uc := newTestUseCase(store)

	first, err := uc.Execute(context.Background(),
		ingestInput("tenant-1", LeadInput{Email: "  John@EXAMPLE.com "}), testActor)
	require.NoError(t, err)

	second, err := uc.Execute(context.Background(),
		ingestInput("tenant-1", LeadInput{Email: "john@example.com"}), testActor)
	require.NoError(t, err)

	assert.Equal(t, first.Fingerprint, second.Fingerprint)
	assert.Equal(t, entity.UpsertStatusDeduped, second.Status)
	assert.Equal(t, "john@example.com", second.Normalized.Email)
}

func TestIngestLeadConcurrentIdenticalFingerprint(t *testing.T) {
	store := newFakeLeadStore()
	uc := newTestUseCase(store)

	input := ingestInput("tenant-1", LeadInput{Email: "race@example.com", Source: "scraper"})

	const workers = 32
	results := make(chan string, workers)
	errs := make(chan error, workers)
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := uc.Execute(context.Background(), input, testActor)
			if err != nil {
				errs <- err
				return
			}
			results <- out.Status
		}()
	}
	wg.Wait()
	close(results)
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	created := 0
	for status := range results {
		if status == entity.UpsertStatusCreated {
			created++
		}
	}

	assert.Equal(t, 1, created, "exactly one winner may report created")
	assert.Len(t, store.profiles, 1)
}

func TestIngestLeadFillOnceCompany(t *testing.T) {
	store := newFakeLeadStore()
	uc := newTestUseCase(store)

	lead := LeadInput{Email: "john@example.com"}
	_, err := uc.Execute(context.Background(), ingestInput("tenant-1", lead), testActor)
	require.NoError(t, err)

	lead.CompanyName = "Acme"
	_, err = uc.Execute(context.Background(), ingestInput("tenant-1", lead), testActor)
	require.NoError(t, err)

	lead.CompanyName = "Other"
	_, err = uc.Execute(context.Background(), ingestInput("tenant-1", lead), testActor)
	require.NoError(t, err)

	profile := store.profiles["tenant-1|"+Fingerprint("john@example.com", "", "")]
	require.NotNil(t, profile)
	assert.Equal(t, "Acme", profile.company, "company is fill-once")
}

func TestIngestLeadSegmentMonotonicity(t *testing.T) {
	store := newFakeLeadStore()
	uc := newTestUseCase(store)

	// First sighting has a business signal.
	first, err := uc.Execute(context.Background(),
		ingestInput("tenant-1", LeadInput{Email: "ceo@gmail.com", JobTitle: "CEO"}), testActor)
	require.NoError(t, err)
	assert.Equal(t, entity.SegmentB2B, first.Segment)

	// Second sighting carries only a consumer signal; the profile stays b2b.
	second, err := uc.Execute(context.Background(),
		ingestInput("tenant-1", LeadInput{Email: "ceo@gmail.com"}), testActor)
	require.NoError(t, err)
	assert.Equal(t, entity.SegmentB2B, second.Segment)
}

func TestIngestLeadSourceAccumulation(t *testing.T) {
	store := newFakeLeadStore()
	uc := newTestUseCase(store)

	for _, source := range []string{"web_form", "scraper", "web_form"} {
		_, err := uc.Execute(context.Background(),
			ingestInput("tenant-1", LeadInput{Email: "john@example.com", Source: source}), testActor)
		require.NoError(t, err)
	}

	profile := store.profiles["tenant-1|"+Fingerprint("john@example.com", "", "")]
	require.NotNil(t, profile)
	assert.Equal(t, []string{"web_form", "scraper"}, profile.sources, "sources is a set")
}

func TestIngestLeadUnknownTenant(t *testing.T) {
	tenants := new(MockTenantRepository)
	tenants.On("Exists", mock.Anything, "ghost").Return(false, nil)

	uc := NewIngestLeadUseCase(newFakeLeadStore(), tenants, nil, nil, nil, "", zap.NewNop())

	_, err := uc.Execute(context.Background(),
		ingestInput("ghost", LeadInput{Email: "john@example.com"}), testActor)

	var domainErr *DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, CodeInvalidTenant, domainErr.Code)
}

func TestIngestLeadStoreFailure(t *testing.T) {
	store := newFakeLeadStore()
	store.failWith = errors.New("connection reset")
	uc := newTestUseCase(store)

	_, err := uc.Execute(context.Background(),
		ingestInput("tenant-1", LeadInput{Email: "john@example.com"}), testActor)

	var technicalErr *TechnicalError
	require.ErrorAs(t, err, &technicalErr)
	assert.Equal(t, CodeNormalizeFailed, technicalErr.Code)
	assert.Len(t, technicalErr.FingerprintPrefix, FingerprintPrefixLen)
}

func TestIngestLeadAuditFailureDoesNotFailRequest(t *testing.T) {
	tenants := new(MockTenantRepository)
	tenants.On("Exists", mock.Anything, mock.Anything).Return(true, nil)

	audit := new(MockAuditLogger)
	audit.On("Record", mock.Anything, mock.Anything).Return(errors.New("audit table missing"))

	uc := NewIngestLeadUseCase(newFakeLeadStore(), tenants, audit, nil, nil, "", zap.NewNop())

	out, err := uc.Execute(context.Background(),
		ingestInput("tenant-1", LeadInput{Email: "john@example.com"}), testActor)

	require.NoError(t, err, "audit is best-effort")
	assert.Equal(t, entity.UpsertStatusCreated, out.Status)
	audit.AssertExpectations(t)
}

func TestIngestLeadAuditEntryIsRedacted(t *testing.T) {
	tenants := new(MockTenantRepository)
	tenants.On("Exists", mock.Anything, mock.Anything).Return(true, nil)

	var captured *entity.AuditLogEntry
	audit := new(MockAuditLogger)
	audit.On("Record", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			captured = args.Get(1).(*entity.AuditLogEntry)
		}).
		Return(nil)

	uc := NewIngestLeadUseCase(newFakeLeadStore(), tenants, audit, nil, nil, "", zap.NewNop())

	actor := entity.Actor{ID: "user-9", Type: "user"}
	_, err := uc.Execute(context.Background(),
		ingestInput("tenant-1", LeadInput{Email: "john@example.com", Phone: "+1 415 555 0100"}), actor)
	require.NoError(t, err)

	require.NotNil(t, captured)
	assert.Equal(t, "lead.created", captured.Action)
	assert.Equal(t, "user-9", captured.ActorID)
	assert.Len(t, captured.FingerprintPrefix, FingerprintPrefixLen)

	// No raw PII anywhere in the entry.
	raw := fmt.Sprintf("%+v", captured)
	assert.NotContains(t, raw, "john@example.com")
	assert.NotContains(t, raw, "4155550100")
}

func TestIngestLeadPublishesEvent(t *testing.T) {
	tenants := new(MockTenantRepository)
	tenants.On("Exists", mock.Anything, mock.Anything).Return(true, nil)

	producer := new(MockQueueProducer)
	producer.On("PublishLeadIngested", mock.Anything, mock.MatchedBy(func(p queue.LeadEventPayload) bool {
		return p.TenantID == "tenant-1" && p.Status == entity.UpsertStatusCreated && p.Fingerprint != ""
	})).Return(nil)

	uc := NewIngestLeadUseCase(newFakeLeadStore(), tenants, nil, producer, nil, "", zap.NewNop())

	_, err := uc.Execute(context.Background(),
		ingestInput("tenant-1", LeadInput{Email: "john@example.com"}), testActor)
	require.NoError(t, err)

	producer.AssertExpectations(t)
}

func TestIngestLeadPublishFailureDoesNotFailRequest(t *testing.T) {
	tenants := new(MockTenantRepository)
	tenants.On("Exists", mock.Anything, mock.Anything).Return(true, nil)

	producer := new(MockQueueProducer)
	producer.On("PublishLeadIngested", mock.Anything, mock.Anything).Return(errors.New("broker down"))

	uc := NewIngestLeadUseCase(newFakeLeadStore(), tenants, nil, producer, nil, "", zap.NewNop())

	out, err := uc.Execute(context.Background(),
		ingestInput("tenant-1", LeadInput{Email: "john@example.com"}), testActor)

	require.NoError(t, err)
	assert.Equal(t, entity.UpsertStatusCreated, out.Status)
}
