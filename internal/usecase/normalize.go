package usecase

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"

	"github.com/xavierca1/ligue-leads/internal/entity"
)

// Everything in this file is pure: same input, same output, no I/O.

// fingerprintSentinel stands in for absent fields so that an email-only
// submission and a later email+phone submission for the same address still
// collide on the email position.
const fingerprintSentinel = "-"

// FingerprintPrefixLen bounds what error responses and audit rows may carry.
const FingerprintPrefixLen = 12

var nonDigits = regexp.MustCompile(`\D`)
var innerSpace = regexp.MustCompile(`\s+`)

// consumerDomains are webmail providers that carry no business signal.
var consumerDomains = map[string]bool{
	"gmail.com":      true,
	"googlemail.com": true,
	"yahoo.com":      true,
	"hotmail.com":    true,
	"outlook.com":    true,
	"live.com":       true,
	"msn.com":        true,
	"icloud.com":     true,
	"me.com":         true,
	"aol.com":        true,
	"proton.me":      true,
	"protonmail.com": true,
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizePhone strips formatting and drops the NANP country prefix, so
// "+1 (415) 555-0100" and "4155550100" canonicalize identically.
func NormalizePhone(phone string) string {
	digits := nonDigits.ReplaceAllString(phone, "")
	if len(digits) == 11 && strings.HasPrefix(digits, "1") {
		digits = digits[1:]
	}
	return digits
}

func NormalizeCompany(company string) string {
	c := strings.ToLower(strings.TrimSpace(company))
	return innerSpace.ReplaceAllString(c, " ")
}

// Fingerprint hashes the three canonical fields into the dedup key. Inputs
// must already be normalized.
func Fingerprint(email, phone, company string) string {
	parts := []string{email, phone, company}
	for i, p := range parts {
		if p == "" {
			parts[i] = fingerprintSentinel
		}
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

// FingerprintPrefix is the only form of the dedup key allowed in error
// bodies and audit rows.
func FingerprintPrefix(fingerprint string) string {
	if len(fingerprint) <= FingerprintPrefixLen {
		return fingerprint
	}
	return fingerprint[:FingerprintPrefixLen]
}

// ClassifySegment derives the coarse business/consumer segment from whatever
// signals the sighting carries. Inputs must already be normalized.
func ClassifySegment(email, phone, company, jobTitle string) string {
	if company != "" || strings.TrimSpace(jobTitle) != "" {
		return entity.SegmentB2B
	}
	if email != "" {
		if at := strings.LastIndex(email, "@"); at >= 0 && at < len(email)-1 {
			if !consumerDomains[email[at+1:]] {
				return entity.SegmentB2B
			}
		}
	}
	if email != "" || phone != "" {
		return entity.SegmentB2C
	}
	return entity.SegmentUnknown
}

// UpgradeSegment applies the monotonic rule: only unknown may be replaced.
// Conflicting non-unknown signals keep the current value.
func UpgradeSegment(current, candidate string) string {
	if current == entity.SegmentUnknown && candidate != entity.SegmentUnknown {
		return candidate
	}
	return current
}
