// Package ledger reads the bank operations bills are linked against.
package ledger

import (
	"context"
	"time"

	"github.com/SomeAverageDev/konnectors/internal/dateutils"
	"github.com/SomeAverageDev/konnectors/internal/models"
)

// Source returns the bank operations dated between from and to, inclusive.
// store.Store satisfies it for the local ledger table.
type Source interface {
	Operations(ctx context.Context, from, to time.Time) ([]models.BankOperation, error)
}

// Static is an in-memory Source.
type Static []models.BankOperation

// Operations filters the slice by calendar day.
func (s Static) Operations(_ context.Context, from, to time.Time) ([]models.BankOperation, error) {
	return Between(s, from, to), nil
}

// Between keeps the operations whose calendar day is in [from, to],
// preserving order.
func Between(ops []models.BankOperation, from, to time.Time) []models.BankOperation {
	from, to = dateutils.Day(from), dateutils.Day(to)
	var out []models.BankOperation
	for _, op := range ops {
		d := dateutils.Day(op.Date)
		if d.Before(from) || d.After(to) {
			continue
		}
		out = append(out, op)
	}
	return out
}
