package files

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"

	"github.com/SomeAverageDev/konnectors/internal/logging"
	"github.com/SomeAverageDev/konnectors/internal/models"
)

func TestFileName(t *testing.T) {
	bill := models.Bill{
		Vendor: "edf",
		Date:   time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		Amount: decimal.NewFromInt(60),
	}
	assert.Equal(t, "20240110_edf.pdf", FileName(bill, "YYYYMMDD"))
	assert.Equal(t, "20240110_edf.pdf", FileName(bill, ""))
	assert.Equal(t, "2024-01-10_edf.pdf", FileName(bill, "YYYY-MM-DD"))
}

func TestObjectPath(t *testing.T) {
	tests := []struct {
		folder, name, want string
	}{
		{"/Administration/EDF", "a.pdf", "Administration/EDF/a.pdf"},
		{"drive", "a.pdf", "drive/a.pdf"},
		{"", "a.pdf", "a.pdf"},
		{"../../etc", "a.pdf", "etc/a.pdf"},
		{`Factures\Leclerc`, "a.pdf", "Factures/Leclerc/a.pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.folder, func(t *testing.T) {
			assert.Equal(t, tt.want, objectPath(tt.folder, tt.name))
		})
	}
}

func TestLocalStore_Put(t *testing.T) {
	root := t.TempDir()
	s := NewLocalStore(root, logging.NewMockLogger())
	ctx := context.Background()

	loc, err := s.Put(ctx, "/Administration/EDF", "20240110_edf.pdf", []byte("first"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "Administration", "EDF", "20240110_edf.pdf"), loc)

	data, err := os.ReadFile(loc)
	require.NoError(t, err)
	assert.Equal(t, "first", string(data))

	again, err := s.Put(ctx, "/Administration/EDF", "20240110_edf.pdf", []byte("second"))
	require.NoError(t, err)
	assert.Equal(t, loc, again)

	data, err = os.ReadFile(loc)
	require.NoError(t, err)
	assert.Equal(t, "first", string(data), "existing documents are kept")
}

func TestLocalStore_PutCancelled(t *testing.T) {
	s := NewLocalStore(t.TempDir(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Put(ctx, "x", "a.pdf", []byte("data"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFileExistsAndEnsureDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	assert.False(t, FileExists(dir))

	require.NoError(t, EnsureDirectoryExists(dir))
	require.NoError(t, EnsureDirectoryExists(dir))
	assert.False(t, FileExists(dir), "directories are not files")

	file := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))
	assert.True(t, FileExists(file))
}

func TestAlreadyExists(t *testing.T) {
	assert.True(t, alreadyExists(&googleapi.Error{Code: 412}))
	assert.True(t, alreadyExists(fmt.Errorf("close: %w", &googleapi.Error{Code: 412})))
	assert.False(t, alreadyExists(&googleapi.Error{Code: 403}))
	assert.False(t, alreadyExists(errors.New("boom")))
}

func TestValidatePDF_RejectsNonPDF(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"html error page", []byte("<html><body>Session expirée</body></html>")},
		{"truncated header", []byte("%PD")},
		{"header only", []byte("%PDF-1.4\n")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, ValidatePDF(tt.data))
		})
	}
}
