package usecase

type LeadInput struct {
	Email       string                 `json:"email,omitempty"`
	Phone       string                 `json:"phone,omitempty"`
	CompanyName string                 `json:"company_name,omitempty"`
	FirstName   string                 `json:"first_name,omitempty"`
	LastName    string                 `json:"last_name,omitempty"`
	JobTitle    string                 `json:"job_title,omitempty"`
	Source      string                 `json:"source,omitempty"`
	Raw         map[string]interface{} `json:"raw,omitempty"`
}

type IngestLeadInput struct {
	TenantID string    `json:"tenant_id"`
	Lead     LeadInput `json:"lead"`
}

type NormalizedContact struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type IngestLeadOutput struct {
	Status        string            `json:"status"` // created | deduped
	TenantID      string            `json:"tenant_id"`
	LeadID        string            `json:"lead_id"`
	LeadProfileID string            `json:"lead_profile_id"`
	Fingerprint   string            `json:"fingerprint"`
	Segment       string            `json:"segment"`
	Normalized    NormalizedContact `json:"normalized"`
}
