package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/xavierca1/ligue-leads/internal/usecase"
)

// Every body, success or error, carries ok and duration_ms so producers can
// build retry logic without parsing prose.

type SuccessResponse struct {
	OK            bool                      `json:"ok"`
	Status        string                    `json:"status"`
	TenantID      string                    `json:"tenant_id"`
	LeadID        string                    `json:"lead_id"`
	LeadProfileID string                    `json:"lead_profile_id"`
	Fingerprint   string                    `json:"fingerprint"`
	Segment       string                    `json:"segment"`
	Normalized    usecase.NormalizedContact `json:"normalized"`
	DurationMs    int64                     `json:"duration_ms"`
}

type ErrorResponse struct {
	OK                bool   `json:"ok"`
	Error             string `json:"error"`
	TenantID          string `json:"tenant_id,omitempty"`
	FingerprintPrefix string `json:"fingerprint_prefix,omitempty"`
	DurationMs        int64  `json:"duration_ms"`
}

var statusByCode = map[string]int{
	usecase.CodeBadRequest:              http.StatusBadRequest,
	usecase.CodeInvalidJSON:             http.StatusBadRequest,
	usecase.CodeInvalidTenant:           http.StatusBadRequest,
	usecase.CodeTimestampExpired:        http.StatusBadRequest,
	usecase.CodeUnauthorized:            http.StatusUnauthorized,
	usecase.CodeInsufficientPermissions: http.StatusForbidden,
	usecase.CodeReplayDetected:          http.StatusConflict,
	usecase.CodeRateLimited:             http.StatusTooManyRequests,
	usecase.CodeNormalizeFailed:         http.StatusInternalServerError,
	usecase.CodeInternalError:           http.StatusInternalServerError,
}

func httpStatusFor(code string) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func writeSuccess(w http.ResponseWriter, out *usecase.IngestLeadOutput, start time.Time) {
	writeJSON(w, http.StatusOK, SuccessResponse{
		OK:            true,
		Status:        out.Status,
		TenantID:      out.TenantID,
		LeadID:        out.LeadID,
		LeadProfileID: out.LeadProfileID,
		Fingerprint:   out.Fingerprint,
		Segment:       out.Segment,
		Normalized:    out.Normalized,
		DurationMs:    time.Since(start).Milliseconds(),
	})
}

func writeError(w http.ResponseWriter, code, tenantID, fingerprintPrefix string, start time.Time) {
	writeJSON(w, httpStatusFor(code), ErrorResponse{
		OK:                false,
		Error:             code,
		TenantID:          tenantID,
		FingerprintPrefix: fingerprintPrefix,
		DurationMs:        time.Since(start).Milliseconds(),
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
