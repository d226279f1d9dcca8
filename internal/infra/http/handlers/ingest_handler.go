package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/xavierca1/ligue-leads/internal/entity"
	"github.com/xavierca1/ligue-leads/internal/infra/auth"
	"github.com/xavierca1/ligue-leads/internal/infra/http/middleware"
	"github.com/xavierca1/ligue-leads/internal/infra/ratelimit"
	"github.com/xavierca1/ligue-leads/internal/usecase"
)

type IngestUseCaseInterface interface {
	Execute(ctx context.Context, input usecase.IngestLeadInput, actor entity.Actor) (*usecase.IngestLeadOutput, error)
}

type AuthenticatorInterface interface {
	Authenticate(r *http.Request, scope string) (*auth.Principal, error)
}

type IngestHandler struct {
	UC          IngestUseCaseInterface
	Auth        AuthenticatorInterface
	RateLimiter ratelimit.Limiter
	Logger      *zap.Logger
}

func NewIngestHandler(uc IngestUseCaseInterface, authenticator AuthenticatorInterface, limiter ratelimit.Limiter, logger *zap.Logger) *IngestHandler {
	return &IngestHandler{
		UC:          uc,
		Auth:        authenticator,
		RateLimiter: limiter,
		Logger:      logger,
	}
}

// Handle runs validate → authenticate → rate-limit → ingest. Nothing before
// the usecase call mutates lead state, so every early rejection is safe to
// retry after correcting the cause.
func (h *IngestHandler) Handle(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if r.ContentLength > usecase.MaxPayloadBytes {
		writeError(w, usecase.CodeBadRequest, "", "", start)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, usecase.MaxPayloadBytes)

	var input usecase.IngestLeadInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, usecase.CodeBadRequest, "", "", start)
			return
		}
		writeError(w, usecase.CodeInvalidJSON, "", "", start)
		return
	}

	// The decoder stops at the end of the JSON value; drain the rest so a
	// body padded past the ceiling still trips the MaxBytesReader.
	if _, err := io.Copy(io.Discard, r.Body); err != nil {
		writeError(w, usecase.CodeBadRequest, input.TenantID, "", start)
		return
	}

	if validationErrors := usecase.ValidateIngestLeadInput(input); len(validationErrors) > 0 {
		if h.Logger != nil {
			h.Logger.Debug("rejected malformed ingest request",
				zap.Int("violations", len(validationErrors)),
			)
		}
		writeError(w, usecase.CodeBadRequest, input.TenantID, "", start)
		return
	}

	principal, err := h.Auth.Authenticate(r, input.TenantID)
	if err != nil {
		code := errorCode(err)
		if code == usecase.CodeReplayDetected {
			middleware.RecordReplayRejection()
		}
		writeError(w, code, input.TenantID, "", start)
		return
	}

	allowed, err := h.RateLimiter.Allow(r.Context(), principal.RateKey())
	if err != nil {
		// A broken limiter backend bounds nothing either way; letting the
		// request through keeps producers working while it recovers.
		if h.Logger != nil {
			h.Logger.Warn("rate limiter unavailable", zap.Error(err))
		}
		allowed = true
	}
	if !allowed {
		middleware.RecordRateLimitRejection()
		writeError(w, usecase.CodeRateLimited, input.TenantID, "", start)
		return
	}

	output, err := h.UC.Execute(r.Context(), input, principal.Actor())
	if err != nil {
		if h.Logger != nil {
			h.Logger.Error("lead ingestion failed",
				zap.String("tenant_id", input.TenantID),
				zap.Error(err),
			)
		}
		writeError(w, errorCode(err), input.TenantID, errorFingerprintPrefix(err), start)
		return
	}

	middleware.RecordLeadIngested(output.Status, output.Segment)
	writeSuccess(w, output, start)
}

func errorCode(err error) string {
	var domainErr *usecase.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	var technicalErr *usecase.TechnicalError
	if errors.As(err, &technicalErr) {
		return technicalErr.Code
	}
	return usecase.CodeInternalError
}

func errorFingerprintPrefix(err error) string {
	var technicalErr *usecase.TechnicalError
	if errors.As(err, &technicalErr) {
		return technicalErr.FingerprintPrefix
	}
	return ""
}
