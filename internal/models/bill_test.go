package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestBillKey(t *testing.T) {
	day := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		a, b  Bill
		equal bool
	}{
		{
			name:  "same amount with different scale",
			a:     Bill{Vendor: "edf", Date: day, Amount: decimal.RequireFromString("60.00")},
			b:     Bill{Vendor: "edf", Date: day, Amount: decimal.RequireFromString("60")},
			equal: true,
		},
		{
			name:  "different vendor",
			a:     Bill{Vendor: "edf", Date: day, Amount: decimal.NewFromInt(60)},
			b:     Bill{Vendor: "leclercdrive", Date: day, Amount: decimal.NewFromInt(60)},
			equal: false,
		},
		{
			name:  "different day",
			a:     Bill{Vendor: "edf", Date: day, Amount: decimal.NewFromInt(60)},
			b:     Bill{Vendor: "edf", Date: day.AddDate(0, 0, 1), Amount: decimal.NewFromInt(60)},
			equal: false,
		},
		{
			name:  "amount differs by a cent",
			a:     Bill{Vendor: "edf", Date: day, Amount: decimal.RequireFromString("60.00")},
			b:     Bill{Vendor: "edf", Date: day, Amount: decimal.RequireFromString("60.01")},
			equal: false,
		},
		{
			name:  "type and url are not part of the key",
			a:     Bill{Vendor: "edf", Type: "energy", DocumentURL: "a", Date: day, Amount: decimal.NewFromInt(60)},
			b:     Bill{Vendor: "edf", Type: "other", DocumentURL: "b", Date: day, Amount: decimal.NewFromInt(60)},
			equal: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.equal, tt.a.Key() == tt.b.Key())
		})
	}
}

func TestBillKeyString(t *testing.T) {
	b := Bill{Vendor: "edf", Date: time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC), Amount: decimal.RequireFromString("45.50")}
	assert.Equal(t, "edf/2024-02-10/45.5", b.Key().String())
	assert.Equal(t, "2024-02-10", b.DateString())
}

func TestBillFlags(t *testing.T) {
	b := Bill{}
	assert.False(t, b.Linked())
	assert.False(t, b.HasFile())

	b.BankOperationID = "op-1"
	b.File = []byte("%PDF")
	assert.True(t, b.Linked())
	assert.True(t, b.HasFile())
}

func TestRunResult(t *testing.T) {
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	r := RunResult{StartedAt: start, FinishedAt: start.Add(3 * time.Second)}
	assert.True(t, r.Succeeded())
	assert.Equal(t, 3*time.Second, r.Duration())
}
