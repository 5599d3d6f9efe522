package coordinator

import (
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/zlovtnik/stripe-lunar/internal/etl"
)

const (
	// DefaultCustomerSyncSpec runs the customer sync daily at midnight
	DefaultCustomerSyncSpec = "0 0 * * *"
	// DefaultPaymentSyncSpec runs the payment sync daily at 01:00
	DefaultPaymentSyncSpec = "0 1 * * *"
	// DefaultFullSyncSpec runs the full sync on Sundays at 02:00
	DefaultFullSyncSpec = "0 2 * * 0"
)

// Schedule binds an operation to a standard five-field cron spec
type Schedule struct {
	Operation etl.Operation
	Spec      string
}

// DefaultSchedules returns the customer, payment and full sync schedules
func DefaultSchedules() []Schedule {
	return []Schedule{
		{Operation: etl.OperationSyncCustomers, Spec: DefaultCustomerSyncSpec},
		{Operation: etl.OperationSyncPayments, Spec: DefaultPaymentSyncSpec},
		{Operation: etl.OperationSyncAll, Spec: DefaultFullSyncSpec},
	}
}

// Validate checks the operation name and parses the cron spec
func (s Schedule) Validate() error {
	if !s.Operation.Valid() {
		return &etl.InvalidOperationError{Name: string(s.Operation)}
	}
	if _, err := cron.ParseStandard(s.Spec); err != nil {
		return fmt.Errorf("invalid schedule %q for %s: %w", s.Spec, s.Operation, err)
	}
	return nil
}
