package store

import (
	"context"
	"fmt"
	"time"

	"github.com/SomeAverageDev/konnectors/internal/models"
	"github.com/SomeAverageDev/konnectors/internal/runerror"
)

// BillFilter narrows ListBills. Zero fields do not filter.
type BillFilter struct {
	Vendor string
	Folder string
	From   time.Time
	To     time.Time
	// Linked keeps only linked (true) or unlinked (false) bills when set.
	Linked *bool
}

// ExistingBills returns the bills already stored for vendor in folder.
func (s *Store) ExistingBills(ctx context.Context, vendor, folder string) ([]models.Bill, error) {
	return s.ListBills(ctx, BillFilter{Vendor: vendor, Folder: folder})
}

// ListBills returns stored bills ordered by date.
func (s *Store) ListBills(ctx context.Context, filter BillFilter) ([]models.Bill, error) {
	q := s.db.WithContext(ctx).Model(&billRow{})
	if filter.Vendor != "" {
		q = q.Where("vendor = ?", filter.Vendor)
	}
	if filter.Folder != "" {
		q = q.Where("folder = ?", filter.Folder)
	}
	if !filter.From.IsZero() {
		q = q.Where("date >= ?", filter.From.UTC())
	}
	if !filter.To.IsZero() {
		q = q.Where("date <= ?", filter.To.UTC())
	}
	if filter.Linked != nil {
		if *filter.Linked {
			q = q.Where("bank_operation_id <> ''")
		} else {
			q = q.Where("bank_operation_id = ''")
		}
	}

	var rows []billRow
	if err := q.Order("date, vendor, id").Find(&rows).Error; err != nil {
		return nil, &runerror.StoreError{Op: "list bills", Err: err}
	}

	bills := make([]models.Bill, len(rows))
	for i, r := range rows {
		bills[i] = r.toModel()
	}
	return bills, nil
}

// SaveBill inserts bill and returns it with its generated ID. The attached
// file content is not stored here.
func (s *Store) SaveBill(ctx context.Context, bill models.Bill, tags []string) (models.Bill, error) {
	row := newBillRow(bill, tags)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return models.Bill{}, &runerror.StoreError{Op: "save bill " + bill.Key().String(), Err: err}
	}
	saved := row.toModel()
	saved.File = bill.File
	return saved, nil
}

// LinkBill annotates an unlinked bill with the bank operation that paid it.
func (s *Store) LinkBill(ctx context.Context, billID, operationID string, at time.Time) error {
	at = at.UTC()
	res := s.db.WithContext(ctx).Model(&billRow{}).
		Where("id = ? AND bank_operation_id = ''", billID).
		Updates(map[string]interface{}{
			"bank_operation_id": operationID,
			"linked_at":         &at,
		})
	if res.Error != nil {
		return &runerror.StoreError{Op: "link bill " + billID, Err: res.Error}
	}
	if res.RowsAffected == 0 {
		return &runerror.StoreError{Op: "link bill " + billID, Err: fmt.Errorf("bill is missing or already linked")}
	}
	return nil
}

// LinkedOperationIDs returns which of ids are already referenced by a bill.
func (s *Store) LinkedOperationIDs(ctx context.Context, ids []string) (map[string]bool, error) {
	linked := make(map[string]bool)
	// An empty id would match every unlinked bill.
	nonEmpty := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" {
			nonEmpty = append(nonEmpty, id)
		}
	}
	if len(nonEmpty) == 0 {
		return linked, nil
	}

	var found []string
	err := s.db.WithContext(ctx).Model(&billRow{}).
		Where("bank_operation_id IN ?", nonEmpty).
		Pluck("bank_operation_id", &found).Error
	if err != nil {
		return nil, &runerror.StoreError{Op: "linked operations", Err: err}
	}
	for _, id := range found {
		linked[id] = true
	}
	return linked, nil
}
