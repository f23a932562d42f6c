// Package models provides the data structures shared by connector stages.
package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Bill is one billing document found on a vendor portal. Date and Amount are
// fixed once the bill is accepted; linking only sets BankOperationID.
type Bill struct {
	ID              string          `csv:"id" yaml:"id"`
	Vendor          string          `csv:"vendor" yaml:"vendor"`
	Folder          string          `csv:"folder" yaml:"folder"`
	Type            string          `csv:"type" yaml:"type"`
	Date            time.Time       `csv:"-" yaml:"-"`
	Amount          decimal.Decimal `csv:"amount" yaml:"amount"`
	DocumentURL     string          `csv:"document_url" yaml:"document_url,omitempty"`
	FileName        string          `csv:"file_name" yaml:"file_name,omitempty"`
	BankOperationID string          `csv:"bank_operation_id" yaml:"bank_operation_id,omitempty"`
	LinkedAt        *time.Time      `csv:"-" yaml:"linked_at,omitempty"`

	// File holds the downloaded document until it is written to file storage.
	File []byte `csv:"-" yaml:"-"`
}

// DedupKey identifies a bill for deduplication: vendor, calendar day and the
// exact decimal amount.
type DedupKey struct {
	Vendor string
	Date   string
	Amount string
}

func (k DedupKey) String() string {
	return fmt.Sprintf("%s/%s/%s", k.Vendor, k.Date, k.Amount)
}

// Key returns the deduplication key of the bill. Amounts are compared by
// value, so 60 and 60.00 produce the same key.
func (b Bill) Key() DedupKey {
	return DedupKey{
		Vendor: b.Vendor,
		Date:   b.Date.Format("2006-01-02"),
		Amount: b.Amount.String(),
	}
}

// Linked reports whether the bill carries a bank operation annotation.
func (b Bill) Linked() bool {
	return b.BankOperationID != ""
}

// HasFile reports whether a downloaded document is attached.
func (b Bill) HasFile() bool {
	return len(b.File) > 0
}

// DateString is the ISO calendar day used in CSV and YAML exports.
func (b Bill) DateString() string {
	return b.Date.Format("2006-01-02")
}
