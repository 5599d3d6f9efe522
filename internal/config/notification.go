package config

import (
	"errors"
	"fmt"
)

const (
	// DefaultEmailFrom is the sender address
	DefaultEmailFrom = "noreply@lunar.com"

	// DefaultEmailTo is the recipient address
	DefaultEmailTo = "admin@lunar.com"

	// DefaultSubjectPrefix prefixes every subject line
	DefaultSubjectPrefix = "[Stripe-Lunar ETL]"

	// DefaultSMTPPort is the submission port
	DefaultSMTPPort = 587

	// DefaultTLSPolicy requires STARTTLS
	DefaultTLSPolicy = "mandatory"
)

// NotificationConfig groups the notification channels
type NotificationConfig struct {
	Email EmailConfig `yaml:"email"`
}

// EmailConfig defines email notifications. Enabled gates every toggle;
// the toggles default to true.
type EmailConfig struct {
	Enabled       bool       `yaml:"enabled"`
	OnCompletion  *bool      `yaml:"onCompletion,omitempty"`
	OnFailure     *bool      `yaml:"onFailure,omitempty"`
	OnSummary     *bool      `yaml:"onSummary,omitempty"`
	From          string     `yaml:"from,omitempty"`
	To            string     `yaml:"to,omitempty"`
	SubjectPrefix string     `yaml:"subjectPrefix,omitempty"`
	SMTP          SMTPConfig `yaml:"smtp"`
}

// SMTPConfig defines the outgoing mail relay
type SMTPConfig struct {
	Host         string `yaml:"host,omitempty"`
	Port         int    `yaml:"port,omitempty"`
	Username     string `yaml:"username,omitempty"`
	PasswordFile string `yaml:"passwordFile,omitempty"`
	// TLSPolicy is one of "mandatory", "opportunistic" or "none"
	TLSPolicy string `yaml:"tlsPolicy,omitempty"`
}

func (e *EmailConfig) applyDefaults() {
	setDefault(&e.From, DefaultEmailFrom)
	setDefault(&e.To, DefaultEmailTo)
	setDefault(&e.SubjectPrefix, DefaultSubjectPrefix)
	setDefault(&e.SMTP.TLSPolicy, DefaultTLSPolicy)
	if e.SMTP.Port == 0 {
		e.SMTP.Port = DefaultSMTPPort
	}
}

func (e *EmailConfig) validate() error {
	var errs []error
	switch e.SMTP.TLSPolicy {
	case "mandatory", "opportunistic", "none":
	default:
		errs = append(errs, fmt.Errorf("unsupported smtp.tlsPolicy %q", e.SMTP.TLSPolicy))
	}
	if e.Enabled && e.SMTP.Host == "" {
		errs = append(errs, fmt.Errorf("smtp.host is required when email is enabled"))
	}
	return errors.Join(errs...)
}

// NotifyOnCompletion reports whether completed jobs are mailed
func (e *EmailConfig) NotifyOnCompletion() bool {
	return e.OnCompletion == nil || *e.OnCompletion
}

// NotifyOnFailure reports whether failed jobs are mailed
func (e *EmailConfig) NotifyOnFailure() bool {
	return e.OnFailure == nil || *e.OnFailure
}

// NotifyOnSummary reports whether periodic summaries are mailed
func (e *EmailConfig) NotifyOnSummary() bool {
	return e.OnSummary == nil || *e.OnSummary
}

// GetPassword returns the SMTP password from, in order, PasswordFile or the
// STRIPE_LUNAR_SMTP_PASSWORD environment variable. Empty means no password.
func (s *SMTPConfig) GetPassword() (string, error) {
	return readSecret(s.PasswordFile, EnvSMTPPassword, "")
}
