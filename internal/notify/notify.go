// Package notify delivers job completion, failure and summary notifications.
// Delivery is best effort: errors are returned to the caller for logging and
// nothing is retried.
package notify

import (
	"context"
	"fmt"

	"github.com/zlovtnik/stripe-lunar/internal/ledger"
)

// Dispatcher sends notifications about job outcomes.
//
//go:generate mockgen -destination=mocks/mock_notify.go -package=mocks -source=notify.go Dispatcher,Mailer
type Dispatcher interface {
	// NotifyCompletion reports a COMPLETED job.
	NotifyCompletion(ctx context.Context, job *ledger.Record) error
	// NotifyFailure reports a FAILED job.
	NotifyFailure(ctx context.Context, job *ledger.Record) error
	// NotifySummary reports aggregate counts over a reporting period.
	NotifySummary(ctx context.Context, period string, success, failure int, totalRecords int64) error
}

// Mailer delivers a single plain-text message
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// Message is a plain-text email
type Message struct {
	From    string
	To      string
	Subject string
	Body    string
}

// NotificationError wraps a delivery failure
type NotificationError struct {
	Kind string
	Err  error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("failed to send %s notification: %v", e.Kind, e.Err)
}

func (e *NotificationError) Unwrap() error {
	return e.Err
}

// NopDispatcher discards every notification
type NopDispatcher struct{}

// NotifyCompletion implements Dispatcher
func (NopDispatcher) NotifyCompletion(context.Context, *ledger.Record) error { return nil }

// NotifyFailure implements Dispatcher
func (NopDispatcher) NotifyFailure(context.Context, *ledger.Record) error { return nil }

// NotifySummary implements Dispatcher
func (NopDispatcher) NotifySummary(context.Context, string, int, int, int64) error { return nil }

var _ Dispatcher = NopDispatcher{}
