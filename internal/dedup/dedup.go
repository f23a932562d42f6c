// Package dedup partitions freshly scraped bills into new ones and ones that
// are already known.
package dedup

import (
	"github.com/SomeAverageDev/konnectors/internal/models"
)

// Result is the partition of a candidate list. Accepted and Duplicates keep the
// candidates' original order and together contain every candidate exactly once.
type Result struct {
	Accepted   []models.Bill
	Duplicates []models.Bill
}

// Filter accepts the candidates whose (vendor, date, amount) key matches no
// existing record. A key repeated inside candidates is accepted once, so
// filtering the accepted bills again yields no new bill.
func Filter(candidates, existing []models.Bill) Result {
	seen := make(map[models.DedupKey]struct{}, len(existing)+len(candidates))
	for _, b := range existing {
		seen[b.Key()] = struct{}{}
	}

	res := Result{
		Accepted:   make([]models.Bill, 0, len(candidates)),
		Duplicates: make([]models.Bill, 0),
	}
	for _, c := range candidates {
		key := c.Key()
		if _, dup := seen[key]; dup {
			res.Duplicates = append(res.Duplicates, c)
			continue
		}
		seen[key] = struct{}{}
		res.Accepted = append(res.Accepted, c)
	}
	return res
}
