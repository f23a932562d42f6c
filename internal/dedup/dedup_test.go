package dedup

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/SomeAverageDev/konnectors/internal/models"
)

func bill(vendor string, y int, m time.Month, d int, amount string) models.Bill {
	return models.Bill{
		Vendor: vendor,
		Date:   time.Date(y, m, d, 0, 0, 0, 0, time.UTC),
		Amount: decimal.RequireFromString(amount),
	}
}

func TestFilter(t *testing.T) {
	jan := bill("edf", 2024, time.January, 10, "60.00")
	feb := bill("edf", 2024, time.February, 10, "45.00")

	tests := []struct {
		name           string
		candidates     []models.Bill
		existing       []models.Bill
		wantAccepted   []models.Bill
		wantDuplicates []models.Bill
	}{
		{
			name:           "nothing known",
			candidates:     []models.Bill{jan, feb},
			wantAccepted:   []models.Bill{jan, feb},
			wantDuplicates: []models.Bill{},
		},
		{
			name:           "one already stored",
			candidates:     []models.Bill{jan, feb},
			existing:       []models.Bill{bill("edf", 2024, time.January, 10, "60")},
			wantAccepted:   []models.Bill{feb},
			wantDuplicates: []models.Bill{jan},
		},
		{
			name:           "same day and amount for another vendor is new",
			candidates:     []models.Bill{jan},
			existing:       []models.Bill{bill("leclercdrive", 2024, time.January, 10, "60.00")},
			wantAccepted:   []models.Bill{jan},
			wantDuplicates: []models.Bill{},
		},
		{
			name:           "amount one cent off is new",
			candidates:     []models.Bill{jan},
			existing:       []models.Bill{bill("edf", 2024, time.January, 10, "60.01")},
			wantAccepted:   []models.Bill{jan},
			wantDuplicates: []models.Bill{},
		},
		{
			name:           "repeated candidate accepted once",
			candidates:     []models.Bill{jan, jan},
			wantAccepted:   []models.Bill{jan},
			wantDuplicates: []models.Bill{jan},
		},
		{
			name:           "empty candidates",
			existing:       []models.Bill{jan},
			wantAccepted:   []models.Bill{},
			wantDuplicates: []models.Bill{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Filter(tt.candidates, tt.existing)
			assert.Equal(t, tt.wantAccepted, res.Accepted)
			assert.Equal(t, tt.wantDuplicates, res.Duplicates)
			assert.Equal(t, len(tt.candidates), len(res.Accepted)+len(res.Duplicates))
		})
	}
}

func TestFilter_Idempotent(t *testing.T) {
	candidates := []models.Bill{
		bill("edf", 2024, time.January, 10, "60.00"),
		bill("edf", 2024, time.February, 10, "45.00"),
		bill("edf", 2024, time.February, 10, "45.00"),
	}

	first := Filter(candidates, nil)
	second := Filter(candidates, first.Accepted)

	assert.Len(t, first.Accepted, 2)
	assert.Empty(t, second.Accepted)
	assert.Len(t, second.Duplicates, len(candidates))
}
