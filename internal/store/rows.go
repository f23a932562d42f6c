package store

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/SomeAverageDev/konnectors/internal/dateutils"
	"github.com/SomeAverageDev/konnectors/internal/models"
)

// billRow is the persisted form of a bill. The unique index mirrors the
// deduplication key within a folder.
type billRow struct {
	ID              string          `gorm:"primaryKey"`
	Vendor          string          `gorm:"not null;uniqueIndex:idx_bill_key,priority:1"`
	Folder          string          `gorm:"not null;uniqueIndex:idx_bill_key,priority:2"`
	Date            time.Time       `gorm:"not null;uniqueIndex:idx_bill_key,priority:3"`
	Amount          decimal.Decimal `gorm:"type:text;not null;uniqueIndex:idx_bill_key,priority:4"`
	Type            string
	DocumentURL     string
	FileName        string
	Tags            string
	BankOperationID string `gorm:"index"`
	LinkedAt        *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (billRow) TableName() string { return "bills" }

func (r *billRow) BeforeCreate(_ *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return nil
}

func newBillRow(b models.Bill, tags []string) billRow {
	return billRow{
		ID:              b.ID,
		Vendor:          b.Vendor,
		Folder:          b.Folder,
		Date:            dateutils.Day(b.Date),
		Amount:          b.Amount,
		Type:            b.Type,
		DocumentURL:     b.DocumentURL,
		FileName:        b.FileName,
		Tags:            strings.Join(tags, ","),
		BankOperationID: b.BankOperationID,
		LinkedAt:        b.LinkedAt,
	}
}

func (r billRow) toModel() models.Bill {
	var linkedAt *time.Time
	if r.LinkedAt != nil {
		t := r.LinkedAt.UTC()
		linkedAt = &t
	}
	return models.Bill{
		ID:              r.ID,
		Vendor:          r.Vendor,
		Folder:          r.Folder,
		Type:            r.Type,
		Date:            r.Date.UTC(),
		Amount:          r.Amount,
		DocumentURL:     r.DocumentURL,
		FileName:        r.FileName,
		BankOperationID: r.BankOperationID,
		LinkedAt:        linkedAt,
	}
}

// operationRow is a bank ledger entry.
type operationRow struct {
	ID        string          `gorm:"primaryKey"`
	Date      time.Time       `gorm:"not null;index"`
	Amount    decimal.Decimal `gorm:"type:text;not null"`
	Label     string          `gorm:"not null"`
	Account   string
	CreatedAt time.Time
}

func (operationRow) TableName() string { return "bank_operations" }

func newOperationRow(op models.BankOperation) operationRow {
	op = op.WithID()
	return operationRow{
		ID:      op.ID,
		Date:    dateutils.Day(op.Date),
		Amount:  op.Amount,
		Label:   op.Label,
		Account: op.Account,
	}
}

func (r operationRow) toModel() models.BankOperation {
	return models.BankOperation{
		ID:      r.ID,
		Date:    r.Date.UTC(),
		Amount:  r.Amount,
		Label:   r.Label,
		Account: r.Account,
	}
}
