package usecase

import (
	"fmt"
	"strings"
)

// MaxPayloadBytes is the total request-body ceiling enforced before any I/O.
const MaxPayloadBytes = 10 * 1024

const (
	maxEmailLen    = 254
	maxPhoneLen    = 32
	maxCompanyLen  = 200
	maxNameLen     = 100
	maxJobTitleLen = 100
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func ValidateIngestLeadInput(input IngestLeadInput) []ValidationError {
	var errors []ValidationError

	if strings.TrimSpace(input.TenantID) == "" {
		errors = append(errors, ValidationError{"tenant_id", "is required"})
	}

	lead := input.Lead

	if strings.TrimSpace(lead.Email) == "" && strings.TrimSpace(lead.Phone) == "" {
		errors = append(errors, ValidationError{"lead", "must have at least one of email or phone"})
	}

	if len(lead.Email) > maxEmailLen {
		errors = append(errors, ValidationError{"email", fmt.Sprintf("must not exceed %d characters", maxEmailLen)})
	}
	if len(lead.Phone) > maxPhoneLen {
		errors = append(errors, ValidationError{"phone", fmt.Sprintf("must not exceed %d characters", maxPhoneLen)})
	}
	if len(lead.CompanyName) > maxCompanyLen {
		errors = append(errors, ValidationError{"company_name", fmt.Sprintf("must not exceed %d characters", maxCompanyLen)})
	}
	if len(lead.FirstName) > maxNameLen {
		errors = append(errors, ValidationError{"first_name", fmt.Sprintf("must not exceed %d characters", maxNameLen)})
	}
	if len(lead.LastName) > maxNameLen {
		errors = append(errors, ValidationError{"last_name", fmt.Sprintf("must not exceed %d characters", maxNameLen)})
	}
	if len(lead.JobTitle) > maxJobTitleLen {
		errors = append(errors, ValidationError{"job_title", fmt.Sprintf("must not exceed %d characters", maxJobTitleLen)})
	}

	return errors
}
