package usecase

// Stable machine-readable error codes. Producers (schedulers, scrapers)
// branch on these, so they never change meaning.
const (
	CodeBadRequest              = "bad_request"
	CodeInvalidJSON             = "invalid_json"
	CodeInvalidTenant           = "invalid_tenant"
	CodeTimestampExpired        = "timestamp_expired"
	CodeUnauthorized            = "unauthorized"
	CodeInsufficientPermissions = "insufficient_permissions"
	CodeReplayDetected          = "replay_detected"
	CodeRateLimited             = "rate_limited"
	CodeNormalizeFailed         = "normalize_failed"
	CodeInternalError           = "internal_error"
)

// DomainError covers caller-correctable failures (4xx). Safe to retry after
// fixing the cause; no state was mutated.
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

func IsDomainError(err error) bool {
	_, ok := err.(*DomainError)
	return ok
}

// TechnicalError covers infrastructure failures (5xx). The dedup operation is
// idempotent per fingerprint, so these are safe to retry blindly.
type TechnicalError struct {
	Code    string
	Message string

	// FingerprintPrefix, when set, is safe to surface for correlation.
	FingerprintPrefix string
}

func (e *TechnicalError) Error() string {
	return e.Message
}

func IsTechnicalError(err error) bool {
	_, ok := err.(*TechnicalError)
	return ok
}
