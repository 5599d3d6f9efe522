// Package export writes job history as CSV.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/zlovtnik/stripe-lunar/internal/etl"
	"github.com/zlovtnik/stripe-lunar/internal/ledger"
)

const (
	// TimeLayout formats start and end times
	TimeLayout = "2006-01-02 15:04:05"

	// DefaultWindow is how far back an unfiltered export reaches
	DefaultWindow = 30 * 24 * time.Hour

	// ContentType is the media type of the export
	ContentType = "text/csv"
)

// Header is the first CSV row
var Header = []string{
	"Job ID", "Job Name", "Start Time", "End Time", "Status",
	"Records Processed", "Duration (seconds)", "Error Message",
}

// Filter selects the jobs to export. JobName takes precedence over Since.
// With neither set, the last DefaultWindow is exported.
type Filter struct {
	JobName string
	Since   *time.Time
}

// Jobs loads the records selected by f, most recent first
func Jobs(ctx context.Context, l ledger.Ledger, f Filter, now time.Time) ([]ledger.Record, error) {
	switch {
	case f.JobName != "":
		return l.ListByOperation(ctx, etl.Operation(f.JobName))
	case f.Since != nil:
		return l.ListSince(ctx, *f.Since)
	default:
		return l.ListSince(ctx, now.Add(-DefaultWindow))
	}
}

// Filename returns the attachment name for an export produced at now
func Filename(now time.Time) string {
	return fmt.Sprintf("etl-job-history-%s.csv", now.Format(time.DateOnly))
}

// WriteCSV writes the header and one row per job. Times are written in UTC;
// fields without a value are empty.
func WriteCSV(w io.Writer, jobs []ledger.Record) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(Header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, job := range jobs {
		if err := writer.Write(row(job)); err != nil {
			return fmt.Errorf("failed to write job %d: %w", job.ID, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return nil
}

func row(job ledger.Record) []string {
	var endTime, records, duration, message string
	if job.EndTime != nil {
		endTime = job.EndTime.UTC().Format(TimeLayout)
	}
	if job.RecordsProcessed != nil {
		records = strconv.FormatInt(*job.RecordsProcessed, 10)
	}
	if d, ok := job.Duration(); ok {
		duration = strconv.FormatInt(int64(d/time.Second), 10)
	}
	if job.ErrorMessage != nil {
		message = *job.ErrorMessage
	}

	var startTime string
	if !job.StartTime.IsZero() {
		startTime = job.StartTime.UTC().Format(TimeLayout)
	}

	return []string{
		strconv.FormatInt(job.ID, 10),
		job.Operation.String(),
		startTime,
		endTime,
		string(job.Status),
		records,
		duration,
		message,
	}
}
