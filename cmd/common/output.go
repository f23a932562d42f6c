// Package common contains shared functionality for command handlers
package common

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/gocarina/gocsv"
	"gopkg.in/yaml.v3"

	"github.com/SomeAverageDev/konnectors/internal/models"
)

// Output formats accepted by WriteBills.
const (
	FormatTable = "table"
	FormatCSV   = "csv"
	FormatYAML  = "yaml"
)

// BillExport is the flat form of a bill written by the list commands.
type BillExport struct {
	Date            string `csv:"date" yaml:"date"`
	Vendor          string `csv:"vendor" yaml:"vendor"`
	Folder          string `csv:"folder" yaml:"folder"`
	Type            string `csv:"type" yaml:"type"`
	Amount          string `csv:"amount" yaml:"amount"`
	FileName        string `csv:"file_name" yaml:"file_name,omitempty"`
	BankOperationID string `csv:"bank_operation_id" yaml:"bank_operation_id,omitempty"`
	ID              string `csv:"id" yaml:"id"`
}

// NewBillExport flattens a bill.
func NewBillExport(b models.Bill) BillExport {
	return BillExport{
		Date:            b.DateString(),
		Vendor:          b.Vendor,
		Folder:          b.Folder,
		Type:            b.Type,
		Amount:          b.Amount.StringFixed(2),
		FileName:        b.FileName,
		BankOperationID: b.BankOperationID,
		ID:              b.ID,
	}
}

// WriteBills renders bills in the given format.
func WriteBills(w io.Writer, bills []models.Bill, format string, delimiter rune) error {
	rows := make([]BillExport, len(bills))
	for i, b := range bills {
		rows[i] = NewBillExport(b)
	}

	switch strings.ToLower(format) {
	case FormatTable, "":
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		_, _ = fmt.Fprintln(tw, "DATE\tVENDOR\tFOLDER\tAMOUNT\tFILE\tOPERATION")
		for _, r := range rows {
			_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
				r.Date, r.Vendor, r.Folder, r.Amount, orDash(r.FileName), orDash(r.BankOperationID))
		}
		return tw.Flush()
	case FormatCSV:
		csvWriter := csv.NewWriter(w)
		if delimiter != 0 {
			csvWriter.Comma = delimiter
		}
		if err := gocsv.MarshalCSV(rows, gocsv.NewSafeCSVWriter(csvWriter)); err != nil {
			return fmt.Errorf("error writing CSV: %w", err)
		}
		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(rows); err != nil {
			return fmt.Errorf("error writing YAML: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format: %s (must be 'table', 'csv' or 'yaml')", format)
	}
}

// PrintResults writes one line per run followed by its notification.
func PrintResults(w io.Writer, results []models.RunResult) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "VENDOR\tFOLDER\tACCEPTED\tFILTERED\tLINKED\tSTATUS")
	for _, r := range results {
		status := "ok"
		if !r.Succeeded() {
			status = fmt.Sprintf("%s: %v", r.ErrorKind, r.Err)
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\n",
			r.Vendor, r.Folder, r.AcceptedCount, r.FilteredCount, r.LinkedCount, status)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	for _, r := range results {
		if r.Notification != "" {
			_, _ = fmt.Fprintln(w, r.Notification)
		}
	}
	return nil
}

// FirstError returns the error of the first failed run.
func FirstError(results []models.RunResult) error {
	for _, r := range results {
		if r.Err != nil {
			return fmt.Errorf("%s: %w", r.Vendor, r.Err)
		}
	}
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
