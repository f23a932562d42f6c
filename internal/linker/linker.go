// Package linker matches bills to the bank operations that paid them.
package linker

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ryanuber/go-glob"
	"github.com/shopspring/decimal"

	"github.com/SomeAverageDev/konnectors/internal/currencyutils"
	"github.com/SomeAverageDev/konnectors/internal/dateutils"
	"github.com/SomeAverageDev/konnectors/internal/logging"
	"github.com/SomeAverageDev/konnectors/internal/models"
)

// Options tune the matching of one connector.
type Options struct {
	// Identifier must appear in the operation label, case-insensitively.
	// It may contain '*' wildcards.
	Identifier string
	// MinDateDelta and MaxDateDelta bound the number of days between the bill
	// date and the operation date, both inclusive.
	MinDateDelta int
	MaxDateDelta int
	// AmountDelta is the inclusive tolerance on the amount difference.
	AmountDelta decimal.Decimal
}

// Validate checks that the options describe a usable window.
func (o Options) Validate() error {
	switch {
	case strings.TrimSpace(o.Identifier) == "":
		return fmt.Errorf("linker identifier is empty")
	case o.MinDateDelta < 0:
		return fmt.Errorf("min date delta must be >= 0, got %d", o.MinDateDelta)
	case o.MaxDateDelta < o.MinDateDelta:
		return fmt.Errorf("max date delta %d is lower than min date delta %d", o.MaxDateDelta, o.MinDateDelta)
	case o.AmountDelta.IsNegative():
		return fmt.Errorf("amount delta must be >= 0, got %s", o.AmountDelta)
	}
	return nil
}

// Linker links bills to bank operations.
type Linker struct {
	opts    Options
	pattern string
	logger  logging.Logger
}

// New validates opts and returns a Linker.
func New(opts Options, logger logging.Logger) (*Linker, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	id := strings.ToLower(strings.TrimSpace(opts.Identifier))
	return &Linker{
		opts:    opts,
		pattern: "*" + id + "*",
		logger:  logging.OrDefault(logger),
	}, nil
}

// Options returns the options the linker was built with.
func (l *Linker) Options() Options {
	return l.opts
}

// Window returns the range of operation dates that can match any of bills.
// ok is false when bills is empty.
func (l *Linker) Window(bills []models.Bill) (from, to time.Time, ok bool) {
	for i, b := range bills {
		day := dateutils.Day(b.Date)
		if i == 0 || day.Before(from) {
			from = day
		}
		if i == 0 || day.After(to) {
			to = day
		}
	}
	if len(bills) == 0 {
		return time.Time{}, time.Time{}, false
	}
	return from.AddDate(0, 0, l.opts.MinDateDelta), to.AddDate(0, 0, l.opts.MaxDateDelta), true
}

// MatchesLabel reports whether label carries the connector identifier.
func (l *Linker) MatchesLabel(label string) bool {
	return glob.Glob(l.pattern, strings.ToLower(label))
}

type candidate struct {
	index      int
	dateOffset int
	amountDiff decimal.Decimal
}

// Link processes bills in order and picks, for each, the eligible operation
// with the smallest day offset, then the smallest amount difference, then the
// earliest position in ops. A linked operation is never offered to a later
// bill. Bills without an eligible operation produce no link. Bills must carry
// their ID; ops are not modified.
func (l *Linker) Link(bills []models.Bill, ops []models.BankOperation) []models.Link {
	used := make([]bool, len(ops))
	links := make([]models.Link, 0, len(bills))

	for _, bill := range bills {
		var candidates []candidate
		for i, op := range ops {
			if used[i] {
				continue
			}
			if c, ok := l.eligible(bill, op); ok {
				c.index = i
				candidates = append(candidates, c)
			}
		}

		if len(candidates) == 0 {
			l.logger.Debug("No bank operation for bill",
				logging.F(logging.FieldVendor, bill.Vendor),
				logging.F(logging.FieldBillDate, dateutils.ToISODate(bill.Date)),
				logging.F(logging.FieldAmount, bill.Amount.String()))
			continue
		}

		sort.SliceStable(candidates, func(a, b int) bool {
			ca, cb := candidates[a], candidates[b]
			if ca.dateOffset != cb.dateOffset {
				return ca.dateOffset < cb.dateOffset
			}
			if !ca.amountDiff.Equal(cb.amountDiff) {
				return ca.amountDiff.LessThan(cb.amountDiff)
			}
			return ca.index < cb.index
		})

		best := candidates[0]
		used[best.index] = true
		links = append(links, models.Link{
			BillID:      bill.ID,
			OperationID: ops[best.index].ID,
			DateOffset:  best.dateOffset,
			AmountDiff:  best.amountDiff,
		})
		l.logger.Debug("Bill linked to bank operation",
			logging.F(logging.FieldVendor, bill.Vendor),
			logging.F(logging.FieldBillDate, dateutils.ToISODate(bill.Date)),
			logging.F(logging.FieldOperation, ops[best.index].ID),
			logging.F("date_offset", best.dateOffset))
	}
	return links
}

// eligible applies the label, date window and amount filters. Ledgers record
// debits as negative amounts, so the operation amount is compared in absolute
// value.
func (l *Linker) eligible(bill models.Bill, op models.BankOperation) (candidate, bool) {
	if !l.MatchesLabel(op.Label) {
		return candidate{}, false
	}
	offset := dateutils.DaysBetween(bill.Date, op.Date)
	if offset < l.opts.MinDateDelta || offset > l.opts.MaxDateDelta {
		return candidate{}, false
	}
	diff := currencyutils.AbsDiff(op.Amount.Abs(), bill.Amount)
	if diff.GreaterThan(l.opts.AmountDelta) {
		return candidate{}, false
	}
	return candidate{dateOffset: offset, amountDiff: diff}, true
}
