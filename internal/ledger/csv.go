package ledger

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/SomeAverageDev/konnectors/internal/currencyutils"
	"github.com/SomeAverageDev/konnectors/internal/dateutils"
	"github.com/SomeAverageDev/konnectors/internal/logging"
	"github.com/SomeAverageDev/konnectors/internal/models"
)

// csvRow is one line of a bank statement export.
type csvRow struct {
	ID      string `csv:"id"`
	Date    string `csv:"date"`
	Amount  string `csv:"amount"`
	Label   string `csv:"label"`
	Account string `csv:"account"`
}

// ReadCSV parses a bank statement with id, date, amount, label and account
// columns. Only date, amount and label are required. Dates may be ISO or
// French formatted and amounts may use a decimal comma.
func ReadCSV(r io.Reader, delimiter rune) ([]models.BankOperation, error) {
	reader := csv.NewReader(r)
	if delimiter != 0 {
		reader.Comma = delimiter
	}
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	var rows []csvRow
	if err := gocsv.UnmarshalCSV(reader, &rows); err != nil {
		if err == gocsv.ErrEmptyCSVFile {
			return nil, nil
		}
		return nil, fmt.Errorf("error parsing CSV: %w", err)
	}

	ops := make([]models.BankOperation, 0, len(rows))
	for i, row := range rows {
		op, err := row.toModel()
		if err != nil {
			// Line 1 is the header.
			return nil, fmt.Errorf("line %d: %w", i+2, err)
		}
		ops = append(ops, op)
	}
	return ops, nil
}

func (r csvRow) toModel() (models.BankOperation, error) {
	date, _, err := dateutils.ParseDate(r.Date)
	if err != nil {
		return models.BankOperation{}, err
	}
	amount, err := currencyutils.ParseAmount(r.Amount)
	if err != nil {
		return models.BankOperation{}, err
	}
	label := strings.TrimSpace(r.Label)
	if label == "" {
		return models.BankOperation{}, fmt.Errorf("empty label")
	}
	op := models.BankOperation{
		ID:      strings.TrimSpace(r.ID),
		Date:    date,
		Amount:  amount,
		Label:   label,
		Account: strings.TrimSpace(r.Account),
	}
	return op.WithID(), nil
}

// ReadCSVFile reads a bank statement file.
func ReadCSVFile(path string, delimiter rune) ([]models.BankOperation, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening CSV file: %w", err)
	}
	defer func() { _ = file.Close() }()
	return ReadCSV(file, delimiter)
}

// CSVSource reads the ledger straight from a statement file on every call.
type CSVSource struct {
	Path      string
	Delimiter rune
	logger    logging.Logger
}

// NewCSVSource returns a Source over the statement at path.
func NewCSVSource(path string, delimiter rune, logger logging.Logger) *CSVSource {
	return &CSVSource{Path: path, Delimiter: delimiter, logger: logging.OrDefault(logger)}
}

// Operations implements Source.
func (s *CSVSource) Operations(ctx context.Context, from, to time.Time) ([]models.BankOperation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ops, err := ReadCSVFile(s.Path, s.Delimiter)
	if err != nil {
		return nil, err
	}
	selected := Between(ops, from, to)
	s.logger.Debug("Read bank operations",
		logging.F(logging.FieldFile, s.Path),
		logging.F(logging.FieldCount, len(selected)))
	return selected, nil
}
