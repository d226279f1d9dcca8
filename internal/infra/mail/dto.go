package mail

type NewLeadEmailData struct {
	TenantID          string
	Segment           string
	Source            string
	FingerprintPrefix string
}

type EmailSender struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}
