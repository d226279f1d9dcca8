package mail

import (
	"bytes"
	"fmt"
	"text/template"

	"gopkg.in/gomail.v2"
)

// The notification body stays redacted: segment, source and fingerprint
// prefix only, never the contact's email or phone.
const newLeadTemplate = `<p>A new {{.Segment}} lead just came in.</p>
<ul>
  <li>Tenant: {{.TenantID}}</li>
  <li>Source: {{if .Source}}{{.Source}}{{else}}unknown{{end}}</li>
  <li>Reference: {{.FingerprintPrefix}}</li>
</ul>
<p>Open the CRM dashboard for the full profile.</p>`

func NewEmailSender(host string, port int, user, password, from string) *EmailSender {
	return &EmailSender{
		Host:     host,
		Port:     port,
		User:     user,
		Password: password,
		From:     from,
	}
}

func (s *EmailSender) NotifyNewLead(to, tenantID, segment, source, fingerprintPrefix string) error {
	data := NewLeadEmailData{
		TenantID:          tenantID,
		Segment:           segment,
		Source:            source,
		FingerprintPrefix: fingerprintPrefix,
	}

	t, err := template.New("new_lead").Parse(newLeadTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse notification template: %w", err)
	}

	var body bytes.Buffer
	if err := t.Execute(&body, data); err != nil {
		return fmt.Errorf("failed to render notification: %w", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", fmt.Sprintf("New %s lead (%s)", segment, fingerprintPrefix))
	m.SetBody("text/html", body.String())

	d := gomail.NewDialer(s.Host, s.Port, s.User, s.Password)

	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send notification mail: %w", err)
	}

	return nil
}
