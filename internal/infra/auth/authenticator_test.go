package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/ligue-leads/internal/entity"
	"github.com/xavierca1/ligue-leads/internal/usecase"
)

// MockIdentityProvider
type MockIdentityProvider struct {
	mock.Mock
}

func (m *MockIdentityProvider) ResolveUser(ctx context.Context, token string) (string, error) {
	args := m.Called(ctx, token)
	return args.String(0), args.Error(1)
}

func (m *MockIdentityProvider) FetchRoles(ctx context.Context, token, userID string) ([]string, error) {
	args := m.Called(ctx, token, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// MockNonceStore
type MockNonceStore struct {
	mock.Mock
}

func (m *MockNonceStore) Consume(ctx context.Context, scope, nonce string) error {
	args := m.Called(ctx, scope, nonce)
	return args.Error(0)
}

const testSecret = "shared-secret"

func newTestAuthenticator(identity IdentityProvider, nonces entity.NonceStoreInterface) *Authenticator {
	return NewAuthenticator(identity, nonces, testSecret)
}

func systemRequest(secret string, ts time.Time, nonce string) *http.Request {
	r := httptest.NewRequest("POST", "/leads/ingest", nil)
	r.Header.Set(HeaderInternalSecret, secret)
	if !ts.IsZero() {
		r.Header.Set(HeaderRequestTimestamp, strconv.FormatInt(ts.UnixMilli(), 10))
	}
	if nonce != "" {
		r.Header.Set(HeaderRequestNonce, nonce)
	}
	return r
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	var domainErr *usecase.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, code, domainErr.Code)
}

func TestAuthenticateMissingCredentials(t *testing.T) {
	a := newTestAuthenticator(nil, nil)
	r := httptest.NewRequest("POST", "/leads/ingest", nil)

	_, err := a.Authenticate(r, "tenant-1")
	assertCode(t, err, usecase.CodeUnauthorized)
}

func TestAuthenticateSystemPath(t *testing.T) {

	t.Run("valid secret and fresh timestamp", func(t *testing.T) {
		a := newTestAuthenticator(nil, nil)

		p, err := a.Authenticate(systemRequest(testSecret, time.Now(), ""), "tenant-1")
		require.NoError(t, err)
		assert.Equal(t, "system", p.ID)
		assert.Equal(t, "system", p.Type)
		assert.Equal(t, "system", p.RateKey())
	})

	t.Run("wrong secret", func(t *testing.T) {
		a := newTestAuthenticator(nil, nil)

		_, err := a.Authenticate(systemRequest("wrong", time.Now(), ""), "tenant-1")
		assertCode(t, err, usecase.CodeUnauthorized)
	})

	t.Run("empty configured secret never matches", func(t *testing.T) {
		a := NewAuthenticator(nil, nil, "")

		_, err := a.Authenticate(systemRequest("", time.Now(), ""), "tenant-1")
		assertCode(t, err, usecase.CodeUnauthorized)
	})

	t.Run("missing timestamp", func(t *testing.T) {
		a := newTestAuthenticator(nil, nil)

		_, err := a.Authenticate(systemRequest(testSecret, time.Time{}, ""), "tenant-1")
		assertCode(t, err, usecase.CodeTimestampExpired)
	})

	t.Run("timestamp ten minutes old", func(t *testing.T) {
		a := newTestAuthenticator(nil, nil)

		_, err := a.Authenticate(systemRequest(testSecret, time.Now().Add(-10*time.Minute), ""), "tenant-1")
		assertCode(t, err, usecase.CodeTimestampExpired)
	})

	t.Run("timestamp from the future", func(t *testing.T) {
		a := newTestAuthenticator(nil, nil)

		_, err := a.Authenticate(systemRequest(testSecret, time.Now().Add(10*time.Minute), ""), "tenant-1")
		assertCode(t, err, usecase.CodeTimestampExpired)
	})

	t.Run("timestamp just inside the window", func(t *testing.T) {
		a := newTestAuthenticator(nil, nil)

		_, err := a.Authenticate(systemRequest(testSecret, time.Now().Add(-4*time.Minute), ""), "tenant-1")
		assert.NoError(t, err)
	})

	t.Run("malformed timestamp", func(t *testing.T) {
		a := newTestAuthenticator(nil, nil)
		r := systemRequest(testSecret, time.Time{}, "")
		r.Header.Set(HeaderRequestTimestamp, "yesterday")

		_, err := a.Authenticate(r, "tenant-1")
		assertCode(t, err, usecase.CodeTimestampExpired)
	})
}

func TestAuthenticateNonce(t *testing.T) {

	t.Run("fresh nonce is consumed once", func(t *testing.T) {
		nonces := new(MockNonceStore)
		nonces.On("Consume", mock.Anything, "tenant-1", "nonce-1").Return(nil).Once()

		a := newTestAuthenticator(nil, nonces)

		_, err := a.Authenticate(systemRequest(testSecret, time.Now(), "nonce-1"), "tenant-1")
		require.NoError(t, err)
		nonces.AssertExpectations(t)
	})

	t.Run("reused nonce is a replay", func(t *testing.T) {
		nonces := new(MockNonceStore)
		nonces.On("Consume", mock.Anything, "tenant-1", "nonce-1").Return(entity.ErrNonceReused)

		a := newTestAuthenticator(nil, nonces)

		_, err := a.Authenticate(systemRequest(testSecret, time.Now(), "nonce-1"), "tenant-1")
		assertCode(t, err, usecase.CodeReplayDetected)
	})

	t.Run("nonce store outage fails closed", func(t *testing.T) {
		nonces := new(MockNonceStore)
		nonces.On("Consume", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("connection refused"))

		a := newTestAuthenticator(nil, nonces)

		_, err := a.Authenticate(systemRequest(testSecret, time.Now(), "nonce-1"), "tenant-1")
		var technicalErr *usecase.TechnicalError
		require.ErrorAs(t, err, &technicalErr)
		assert.Equal(t, usecase.CodeInternalError, technicalErr.Code)
	})

	t.Run("no nonce header skips the store", func(t *testing.T) {
		nonces := new(MockNonceStore)

		a := newTestAuthenticator(nil, nonces)

		_, err := a.Authenticate(systemRequest(testSecret, time.Now(), ""), "tenant-1")
		require.NoError(t, err)
		nonces.AssertNotCalled(t, "Consume")
	})
}

func TestAuthenticateUserPath(t *testing.T) {

	bearerRequest := func(token string) *http.Request {
		r := httptest.NewRequest("POST", "/leads/ingest", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		return r
	}

	t.Run("authorized role", func(t *testing.T) {
		identity := new(MockIdentityProvider)
		identity.On("ResolveUser", mock.Anything, "tok").Return("user-1", nil)
		identity.On("FetchRoles", mock.Anything, "tok", "user-1").Return([]string{"member", "owner"}, nil)

		a := newTestAuthenticator(identity, nil)

		p, err := a.Authenticate(bearerRequest("tok"), "tenant-1")
		require.NoError(t, err)
		assert.Equal(t, "user-1", p.ID)
		assert.Equal(t, "user", p.Type)
		assert.Equal(t, "user:user-1", p.RateKey())
	})

	t.Run("unauthorized role", func(t *testing.T) {
		identity := new(MockIdentityProvider)
		identity.On("ResolveUser", mock.Anything, "tok").Return("user-1", nil)
		identity.On("FetchRoles", mock.Anything, "tok", "user-1").Return([]string{"member"}, nil)

		a := newTestAuthenticator(identity, nil)

		_, err := a.Authenticate(bearerRequest("tok"), "tenant-1")
		assertCode(t, err, usecase.CodeInsufficientPermissions)
	})

	t.Run("invalid token", func(t *testing.T) {
		identity := new(MockIdentityProvider)
		identity.On("ResolveUser", mock.Anything, "bad").Return("", errors.New("401"))

		a := newTestAuthenticator(identity, nil)

		_, err := a.Authenticate(bearerRequest("bad"), "tenant-1")
		assertCode(t, err, usecase.CodeUnauthorized)
	})

	t.Run("role lookup failure", func(t *testing.T) {
		identity := new(MockIdentityProvider)
		identity.On("ResolveUser", mock.Anything, "tok").Return("user-1", nil)
		identity.On("FetchRoles", mock.Anything, "tok", "user-1").Return(nil, errors.New("rls denied"))

		a := newTestAuthenticator(identity, nil)

		_, err := a.Authenticate(bearerRequest("tok"), "tenant-1")
		assertCode(t, err, usecase.CodeUnauthorized)
	})
}
