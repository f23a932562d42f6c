package store

import (
	"context"
	"time"

	"gorm.io/gorm/clause"

	"github.com/SomeAverageDev/konnectors/internal/models"
	"github.com/SomeAverageDev/konnectors/internal/runerror"
)

const importBatchSize = 200

// ImportOperations adds operations to the ledger and returns how many were
// new. Operations already present, by ID, are left untouched.
func (s *Store) ImportOperations(ctx context.Context, ops []models.BankOperation) (int, error) {
	if len(ops) == 0 {
		return 0, nil
	}
	rows := make([]operationRow, len(ops))
	for i, op := range ops {
		rows[i] = newOperationRow(op)
	}

	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(&rows, importBatchSize)
	if res.Error != nil {
		return 0, &runerror.StoreError{Op: "import operations", Err: res.Error}
	}
	return int(res.RowsAffected), nil
}

// Operations returns the ledger entries dated between from and to, inclusive,
// in date order.
func (s *Store) Operations(ctx context.Context, from, to time.Time) ([]models.BankOperation, error) {
	var rows []operationRow
	err := s.db.WithContext(ctx).
		Where("date >= ? AND date <= ?", from.UTC(), to.UTC()).
		Order("date, id").
		Find(&rows).Error
	if err != nil {
		return nil, &runerror.StoreError{Op: "list operations", Err: err}
	}

	ops := make([]models.BankOperation, len(rows))
	for i, r := range rows {
		ops[i] = r.toModel()
	}
	return ops, nil
}
