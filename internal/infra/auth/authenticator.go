package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/xavierca1/ligue-leads/internal/entity"
	"github.com/xavierca1/ligue-leads/internal/usecase"
)

const (
	HeaderInternalSecret   = "X-Internal-Secret"
	HeaderRequestTimestamp = "X-Request-Timestamp"
	HeaderRequestNonce     = "X-Request-Nonce"
)

// timestampWindow bounds how far a system-path request timestamp may drift
// from server time, in either direction.
const timestampWindow = 5 * time.Minute

// allowedRoles may call the gateway on the user path.
var allowedRoles = map[string]bool{
	"admin":          true,
	"owner":          true,
	"platform_admin": true,
}

type IdentityProvider interface {
	ResolveUser(ctx context.Context, token string) (string, error)
	FetchRoles(ctx context.Context, token, userID string) ([]string, error)
}

type Principal struct {
	ID   string
	Type string // user | system
}

// RateKey is the identity the rate limiter buckets on.
func (p *Principal) RateKey() string {
	if p.Type == "system" {
		return "system"
	}
	return "user:" + p.ID
}

func (p *Principal) Actor() entity.Actor {
	return entity.Actor{ID: p.ID, Type: p.Type}
}

// Authenticator verifies either a bearer user session with an authorized
// role, or the shared-secret system credential with replay protection.
// Successful system-path auth permanently consumes the nonce, when present.
type Authenticator struct {
	Identity IdentityProvider
	Nonces   entity.NonceStoreInterface
	secret   string
	now      func() time.Time
}

func NewAuthenticator(identity IdentityProvider, nonces entity.NonceStoreInterface, secret string) *Authenticator {
	return &Authenticator{
		Identity: identity,
		Nonces:   nonces,
		secret:   secret,
		now:      time.Now,
	}
}

// Authenticate picks the path from the headers present. scope keys the nonce
// store (the tenant id once the body has been validated).
func (a *Authenticator) Authenticate(r *http.Request, scope string) (*Principal, error) {
	ctx := r.Context()

	if authz := r.Header.Get("Authorization"); strings.HasPrefix(authz, "Bearer ") {
		return a.authenticateUser(ctx, strings.TrimPrefix(authz, "Bearer "))
	}

	if secret := r.Header.Get(HeaderInternalSecret); secret != "" {
		return a.authenticateSystem(ctx, r, secret, scope)
	}

	return nil, &usecase.DomainError{
		Code:    usecase.CodeUnauthorized,
		Message: "missing credentials",
	}
}

func (a *Authenticator) authenticateUser(ctx context.Context, token string) (*Principal, error) {
	userID, err := a.Identity.ResolveUser(ctx, token)
	if err != nil {
		return nil, &usecase.DomainError{
			Code:    usecase.CodeUnauthorized,
			Message: "invalid session token",
		}
	}

	roles, err := a.Identity.FetchRoles(ctx, token, userID)
	if err != nil {
		return nil, &usecase.DomainError{
			Code:    usecase.CodeUnauthorized,
			Message: "role verification failed",
		}
	}

	for _, role := range roles {
		if allowedRoles[role] {
			return &Principal{ID: userID, Type: "user"}, nil
		}
	}

	return nil, &usecase.DomainError{
		Code:    usecase.CodeInsufficientPermissions,
		Message: "caller role is not authorized for lead ingestion",
	}
}

func (a *Authenticator) authenticateSystem(ctx context.Context, r *http.Request, secret, scope string) (*Principal, error) {
	if a.secret == "" || subtle.ConstantTimeCompare([]byte(secret), []byte(a.secret)) != 1 {
		return nil, &usecase.DomainError{
			Code:    usecase.CodeUnauthorized,
			Message: "invalid internal secret",
		}
	}

	rawTS := r.Header.Get(HeaderRequestTimestamp)
	if rawTS == "" {
		return nil, &usecase.DomainError{
			Code:    usecase.CodeTimestampExpired,
			Message: "missing request timestamp",
		}
	}

	epochMs, err := strconv.ParseInt(rawTS, 10, 64)
	if err != nil {
		return nil, &usecase.DomainError{
			Code:    usecase.CodeTimestampExpired,
			Message: "malformed request timestamp",
		}
	}

	drift := a.now().Sub(time.UnixMilli(epochMs))
	if drift > timestampWindow || drift < -timestampWindow {
		return nil, &usecase.DomainError{
			Code:    usecase.CodeTimestampExpired,
			Message: "request timestamp outside the accepted window",
		}
	}

	if nonce := r.Header.Get(HeaderRequestNonce); nonce != "" {
		if err := a.Nonces.Consume(ctx, scope, nonce); err != nil {
			if errors.Is(err, entity.ErrNonceReused) {
				return nil, &usecase.DomainError{
					Code:    usecase.CodeReplayDetected,
					Message: "nonce already used",
				}
			}
			// Fail closed: an unreachable nonce store must not open a
			// replay window.
			return nil, &usecase.TechnicalError{
				Code:    usecase.CodeInternalError,
				Message: "nonce store unavailable: " + err.Error(),
			}
		}
	}

	return &Principal{ID: "system", Type: "system"}, nil
}
