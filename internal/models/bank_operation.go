package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BankOperation is a ledger entry a bill can be linked to. The pipeline never
// modifies operations.
type BankOperation struct {
	ID     string
	Date   time.Time
	Amount decimal.Decimal
	Label  string
	// Account is informational; linking does not filter on it.
	Account string
}

// operationNamespace seeds the derived ids of operations that come without
// one, so reading or importing a statement twice yields the same ids.
var operationNamespace = uuid.MustParse("6f1d3c2e-9a4b-4f0e-8c7d-2b5a1e9f4c30")

// DeriveOperationID returns a stable id built from the day, amount, label
// and account of op.
func DeriveOperationID(op BankOperation) string {
	return uuid.NewSHA1(operationNamespace, []byte(
		op.Date.UTC().Format("2006-01-02")+"|"+op.Amount.String()+"|"+op.Label+"|"+op.Account,
	)).String()
}

// WithID returns op with a derived ID when it has none.
func (op BankOperation) WithID() BankOperation {
	if op.ID == "" {
		op.ID = DeriveOperationID(op)
	}
	return op
}

// Link records that a bill was matched to a bank operation.
type Link struct {
	BillID      string
	OperationID string
	// DateOffset is the number of days from the bill date to the operation date.
	DateOffset int
	AmountDiff decimal.Decimal
}
