package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/zlovtnik/stripe-lunar/internal/ledger"
)

const (
	// DefaultFrom is the sender used when none is configured
	DefaultFrom = "noreply@lunar.com"
	// DefaultTo is the recipient used when none is configured
	DefaultTo = "admin@lunar.com"
	// DefaultSubjectPrefix is prepended to every subject
	DefaultSubjectPrefix = "[Stripe-Lunar ETL]"

	timeLayout   = "2006-01-02 15:04:05"
	notAvailable = "N/A"
	footer       = "This is an automated notification from the Stripe-Lunar ETL system."
)

// EmailSettings holds the email toggles and addressing.
// Each toggle is independent of the others; Enabled gates all of them.
type EmailSettings struct {
	Enabled       bool
	OnCompletion  bool
	OnFailure     bool
	OnSummary     bool
	From          string
	To            string
	SubjectPrefix string
}

type emailDispatcher struct {
	mailer   Mailer
	settings EmailSettings
}

// NewEmailDispatcher creates a Dispatcher that sends plain-text mail through mailer
func NewEmailDispatcher(mailer Mailer, settings EmailSettings) Dispatcher {
	if settings.From == "" {
		settings.From = DefaultFrom
	}
	if settings.To == "" {
		settings.To = DefaultTo
	}
	if settings.SubjectPrefix == "" {
		settings.SubjectPrefix = DefaultSubjectPrefix
	}
	return &emailDispatcher{mailer: mailer, settings: settings}
}

func (d *emailDispatcher) NotifyCompletion(ctx context.Context, job *ledger.Record) error {
	if !d.settings.Enabled || !d.settings.OnCompletion || job == nil {
		return nil
	}

	records := notAvailable
	if job.RecordsProcessed != nil {
		records = fmt.Sprintf("%d", *job.RecordsProcessed)
	}
	body := fmt.Sprintf("ETL Job completed successfully.\n\n"+
		"Job Details:\n"+
		"- Job ID: %d\n"+
		"- Job Name: %s\n"+
		"- Start Time: %s\n"+
		"- End Time: %s\n"+
		"- Duration: %s\n"+
		"- Records Processed: %s\n\n"+
		footer,
		job.ID, job.Operation, formatTime(&job.StartTime), formatTime(job.EndTime), jobDuration(job), records)

	return d.send(ctx, "completion",
		fmt.Sprintf("%s Job Completed: %s", d.settings.SubjectPrefix, job.Operation), body)
}

func (d *emailDispatcher) NotifyFailure(ctx context.Context, job *ledger.Record) error {
	if !d.settings.Enabled || !d.settings.OnFailure || job == nil {
		return nil
	}

	message := "Unknown error"
	if job.ErrorMessage != nil && *job.ErrorMessage != "" {
		message = *job.ErrorMessage
	}
	body := fmt.Sprintf("ETL Job failed.\n\n"+
		"Job Details:\n"+
		"- Job ID: %d\n"+
		"- Job Name: %s\n"+
		"- Start Time: %s\n"+
		"- End Time: %s\n"+
		"- Duration: %s\n"+
		"- Error Message: %s\n\n"+
		"Please check the application logs for more details.\n\n"+
		footer,
		job.ID, job.Operation, formatTime(&job.StartTime), formatTime(job.EndTime), jobDuration(job), message)

	return d.send(ctx, "failure",
		fmt.Sprintf("%s Job Failed: %s", d.settings.SubjectPrefix, job.Operation), body)
}

func (d *emailDispatcher) NotifySummary(
	ctx context.Context, period string, success, failure int, totalRecords int64,
) error {
	if !d.settings.Enabled || !d.settings.OnSummary {
		return nil
	}

	total := success + failure
	var rate float64
	if total > 0 {
		rate = float64(success) / float64(total) * 100
	}
	body := fmt.Sprintf("ETL Job Summary for %s.\n\n"+
		"Summary:\n"+
		"- Successful Jobs: %d\n"+
		"- Failed Jobs: %d\n"+
		"- Total Jobs: %d\n"+
		"- Success Rate: %.2f%%\n"+
		"- Total Records Processed: %d\n\n"+
		footer,
		period, success, failure, total, rate, totalRecords)

	return d.send(ctx, "summary",
		fmt.Sprintf("%s Job Summary: %s", d.settings.SubjectPrefix, period), body)
}

func (d *emailDispatcher) send(ctx context.Context, kind, subject, body string) error {
	err := d.mailer.Send(ctx, Message{
		From:    d.settings.From,
		To:      d.settings.To,
		Subject: subject,
		Body:    body,
	})
	if err != nil {
		return &NotificationError{Kind: kind, Err: err}
	}
	slog.Debug("Notification sent", "kind", kind, "to", d.settings.To, "subject", subject)
	return nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return notAvailable
	}
	return t.Format(timeLayout)
}

func jobDuration(job *ledger.Record) string {
	d, ok := job.Duration()
	if !ok {
		return notAvailable
	}
	return FormatDuration(int64(d / time.Second))
}

// FormatDuration renders a number of seconds in the largest fitting unit form
func FormatDuration(seconds int64) string {
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60

	switch {
	case hours > 0:
		return fmt.Sprintf("%d hours, %d minutes, %d seconds", hours, minutes, secs)
	case minutes > 0:
		return fmt.Sprintf("%d minutes, %d seconds", minutes, secs)
	default:
		return fmt.Sprintf("%d seconds", secs)
	}
}
