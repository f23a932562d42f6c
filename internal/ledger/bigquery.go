package ledger

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"google.golang.org/api/iterator"

	"github.com/SomeAverageDev/konnectors/internal/logging"
	"github.com/SomeAverageDev/konnectors/internal/models"
)

// transactionRow mirrors the columns selected from the transactions table.
type transactionRow struct {
	TransactionID   string              `bigquery:"transaction_id"`
	AccountID       bigquery.NullString `bigquery:"account_id"`
	TransactionDate civil.Date          `bigquery:"transaction_date"`
	Amount          *big.Rat            `bigquery:"amount"`
	RawDescription  string              `bigquery:"raw_description"`
}

func (r transactionRow) toModel() models.BankOperation {
	amount := decimal.Zero
	if r.Amount != nil {
		amount = decimal.RequireFromString(r.Amount.FloatString(2))
	}
	return models.BankOperation{
		ID:      r.TransactionID,
		Date:    r.TransactionDate.In(time.UTC),
		Amount:  amount,
		Label:   r.RawDescription,
		Account: r.AccountID.StringVal,
	}
}

// BigQuerySource reads operations from a BigQuery transactions table.
type BigQuerySource struct {
	client  *bigquery.Client
	project string
	dataset string
	table   string
	logger  logging.Logger
}

// NewBigQuerySource connects to project and reads dataset.table.
func NewBigQuerySource(ctx context.Context, project, dataset, table string, logger logging.Logger) (*BigQuerySource, error) {
	if project == "" || dataset == "" || table == "" {
		return nil, fmt.Errorf("bigquery ledger needs project, dataset and table")
	}
	client, err := bigquery.NewClient(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("bigquery client: %w", err)
	}
	return &BigQuerySource{
		client:  client,
		project: project,
		dataset: dataset,
		table:   table,
		logger:  logging.OrDefault(logger),
	}, nil
}

func (s *BigQuerySource) query() string {
	return fmt.Sprintf(`
		SELECT
			t.transaction_id,
			t.account_id,
			t.transaction_date,
			t.amount,
			t.raw_description
		FROM `+"`%s.%s.%s`"+` AS t
		WHERE t.transaction_date BETWEEN @start_date AND @end_date
		ORDER BY t.transaction_date, t.transaction_id`,
		s.project, s.dataset, s.table)
}

// Operations implements Source.
func (s *BigQuerySource) Operations(ctx context.Context, from, to time.Time) ([]models.BankOperation, error) {
	q := s.client.Query(s.query())
	q.Parameters = []bigquery.QueryParameter{
		{Name: "start_date", Value: civil.DateOf(from)},
		{Name: "end_date", Value: civil.DateOf(to)},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("bigquery ledger query: %w", err)
	}

	var ops []models.BankOperation
	for {
		var row transactionRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("bigquery ledger row: %w", err)
		}
		ops = append(ops, row.toModel())
	}

	s.logger.Debug("Read bank operations from BigQuery",
		logging.F("table", s.dataset+"."+s.table),
		logging.F(logging.FieldCount, len(ops)))
	return ops, nil
}

// Close releases the BigQuery client.
func (s *BigQuerySource) Close() error {
	return s.client.Close()
}
