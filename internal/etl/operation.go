// Package etl defines the fixed set of ETL operations and the error taxonomy
// shared by the orchestration components.
package etl

// Operation names one of the fixed ETL actions.
type Operation string

const (
	// OperationSyncCustomers pulls customers from the payment platform
	OperationSyncCustomers Operation = "syncCustomers"

	// OperationSyncPayments pulls charges from the payment platform
	OperationSyncPayments Operation = "syncPayments"

	// OperationSyncAll runs the customer and payment syncs in sequence
	OperationSyncAll Operation = "syncAll"

	// OperationStatus reports local counts and ledger statistics
	OperationStatus Operation = "status"
)

// Operations returns every known operation in a stable order.
func Operations() []Operation {
	return []Operation{
		OperationSyncCustomers,
		OperationSyncPayments,
		OperationSyncAll,
		OperationStatus,
	}
}

// SyncOperations returns the operations that move data from the platform.
// Ledger statistics and summaries are computed over this set only.
func SyncOperations() []Operation {
	return []Operation{
		OperationSyncCustomers,
		OperationSyncPayments,
		OperationSyncAll,
	}
}

// ParseOperation validates name against the fixed operation set.
func ParseOperation(name string) (Operation, error) {
	op := Operation(name)
	if !op.Valid() {
		return "", &InvalidOperationError{Name: name}
	}
	return op, nil
}

// Valid reports whether the operation belongs to the fixed set.
func (o Operation) Valid() bool {
	switch o {
	case OperationSyncCustomers, OperationSyncPayments, OperationSyncAll, OperationStatus:
		return true
	default:
		return false
	}
}

func (o Operation) String() string {
	return string(o)
}
