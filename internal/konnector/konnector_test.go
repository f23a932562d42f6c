package konnector

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SomeAverageDev/konnectors/internal/files"
	"github.com/SomeAverageDev/konnectors/internal/ledger"
	"github.com/SomeAverageDev/konnectors/internal/linker"
	"github.com/SomeAverageDev/konnectors/internal/logging"
	"github.com/SomeAverageDev/konnectors/internal/metrics"
	"github.com/SomeAverageDev/konnectors/internal/models"
	"github.com/SomeAverageDev/konnectors/internal/notification"
	"github.com/SomeAverageDev/konnectors/internal/runerror"
	"github.com/SomeAverageDev/konnectors/internal/store"
	"github.com/SomeAverageDev/konnectors/internal/vendor"
)

const folder = "/Administration/EDF"

var creds = vendor.Credentials{Login: "jane@example.org", Password: "secret"}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func edfDefinition() Definition {
	return Definition{
		Vendor:   "edf",
		BillType: "energy",
		Link: linker.Options{
			Identifier:   "EDF",
			MinDateDelta: 4,
			MaxDateDelta: 20,
			AmountDelta:  amount("0.1"),
		},
		NotificationKey: notification.KeyEDF,
		FileTags:        []string{"edf", "energie"},
		FilePattern:     "YYYYMMDD",
	}
}

func edfAdapter() *vendor.MockAdapter {
	return &vendor.MockAdapter{
		VendorName:    "edf",
		ValidLogin:    creds.Login,
		ValidPassword: creds.Password,
		Bills: []models.Bill{
			{Date: day(2024, 1, 10), Amount: amount("60.00"), DocumentURL: "https://portal.test/pdf/jan"},
			{Date: day(2024, 2, 10), Amount: amount("45.00"), DocumentURL: "https://portal.test/pdf/feb"},
		},
		Files: map[string][]byte{
			"https://portal.test/pdf/jan": []byte("%PDF-jan"),
			"https://portal.test/pdf/feb": []byte("%PDF-feb"),
		},
	}
}

func edfLedger() ledger.Static {
	return ledger.Static{
		{ID: "op-jan", Date: day(2024, 1, 14), Amount: amount("60.00"), Label: "EDF PRLV"},
		{ID: "op-feb", Date: day(2024, 2, 25), Amount: amount("45.00"), Label: "PRLV SEPA EDF CLIENTS"},
	}
}

type fixture struct {
	adapter *vendor.MockAdapter
	store   *store.Store
	files   *files.LocalStore
	logger  *logging.MockLogger
	deps    Deps
}

func newFixture(t *testing.T, adapter *vendor.MockAdapter, src ledger.Source) *fixture {
	t.Helper()
	logger := logging.NewMockLogger()
	st, err := store.Open(store.MemoryDSN, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	notifier, err := notification.NewBuilder("fr", nil)
	require.NoError(t, err)

	fs := files.NewLocalStore(t.TempDir(), logger)
	return &fixture{
		adapter: adapter,
		store:   st,
		files:   fs,
		logger:  logger,
		deps: Deps{
			Adapter:  adapter,
			Bills:    st,
			Files:    fs,
			Ledger:   src,
			Notifier: notifier,
			Logger:   logger,
			Now:      func() time.Time { return time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC) },
		},
	}
}

func (f *fixture) run(t *testing.T, def Definition, c vendor.Credentials) models.RunResult {
	t.Helper()
	k, err := New(def, f.deps)
	require.NoError(t, err)
	return k.Run(context.Background(), Request{Credentials: c, Folder: folder})
}

func TestRun_EDFEndToEnd(t *testing.T) {
	f := newFixture(t, edfAdapter(), edfLedger())

	res := f.run(t, edfDefinition(), creds)

	require.NoError(t, res.Err)
	assert.Empty(t, res.ErrorKind)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, 2, res.AcceptedCount)
	assert.Equal(t, 0, res.FilteredCount)
	assert.Equal(t, 2, res.SavedCount)
	assert.Equal(t, 2, res.LinkedCount)
	assert.Equal(t, "2 nouvelles factures EDF ont été téléchargées", res.Notification)
	assert.Empty(t, res.Warnings)

	bills, err := f.store.ListBills(context.Background(), store.BillFilter{Vendor: "edf"})
	require.NoError(t, err)
	require.Len(t, bills, 2)
	assert.Equal(t, "op-jan", bills[0].BankOperationID)
	assert.Equal(t, "op-feb", bills[1].BankOperationID)
	assert.Equal(t, "20240110_edf.pdf", bills[0].FileName)
	assert.Equal(t, folder, bills[0].Folder)
	assert.Equal(t, "energy", bills[0].Type)
	assert.True(t, bills[0].Amount.Equal(amount("60")))

	data, err := os.ReadFile(filepath.Join(f.files.Root(), "Administration", "EDF", "20240210_edf.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-feb", string(data))

	_, fetches, _, downloads, logouts := f.adapter.Calls()
	assert.Equal(t, 1, fetches)
	assert.Equal(t, 2, downloads)
	assert.Equal(t, 1, logouts)
}

func TestRun_CSVLedgerWithoutIDColumn(t *testing.T) {
	statement := filepath.Join(t.TempDir(), "statement.csv")
	require.NoError(t, os.WriteFile(statement, []byte(
		"date,amount,label\n2024-01-14,-60.00,EDF PRLV\n2024-02-25,-45.00,EDF PRLV\n"), 0o600))
	f := newFixture(t, edfAdapter(), ledger.NewCSVSource(statement, ',', nil))

	res := f.run(t, edfDefinition(), creds)

	require.NoError(t, res.Err)
	assert.Equal(t, 2, res.AcceptedCount)
	assert.Equal(t, 2, res.LinkedCount)
	assert.Empty(t, res.Warnings)

	bills, err := f.store.ListBills(context.Background(), store.BillFilter{Vendor: "edf"})
	require.NoError(t, err)
	require.Len(t, bills, 2)
	assert.NotEmpty(t, bills[0].BankOperationID)
	assert.NotEmpty(t, bills[1].BankOperationID)
	assert.NotEqual(t, bills[0].BankOperationID, bills[1].BankOperationID)
}

func TestRun_StaticLedgerWithoutIDs(t *testing.T) {
	src := ledger.Static{
		{Date: day(2024, 1, 14), Amount: amount("-60.00"), Label: "EDF PRLV"},
		{Date: day(2024, 2, 25), Amount: amount("-45.00"), Label: "EDF PRLV"},
	}
	f := newFixture(t, edfAdapter(), src)

	res := f.run(t, edfDefinition(), creds)

	require.NoError(t, res.Err)
	assert.Equal(t, 2, res.LinkedCount)
	assert.Empty(t, src[0].ID, "the source itself is left untouched")
}

func TestRun_SecondRunIsIdempotent(t *testing.T) {
	f := newFixture(t, edfAdapter(), edfLedger())

	first := f.run(t, edfDefinition(), creds)
	require.NoError(t, first.Err)

	second := f.run(t, edfDefinition(), creds)
	require.NoError(t, second.Err)
	assert.Equal(t, 0, second.AcceptedCount)
	assert.Equal(t, 2, second.FilteredCount)
	assert.Equal(t, 0, second.LinkedCount)
	assert.Empty(t, second.Notification, "no notification without new bills")

	bills, err := f.store.ListBills(context.Background(), store.BillFilter{})
	require.NoError(t, err)
	assert.Len(t, bills, 2)
}

func TestRun_OperationPastMaxDeltaLeavesBillUnlinked(t *testing.T) {
	adapter := edfAdapter()
	adapter.Bills = adapter.Bills[:1]
	src := ledger.Static{
		{ID: "op-late", Date: day(2024, 1, 31), Amount: amount("60.00"), Label: "EDF PRLV"},
	}
	f := newFixture(t, adapter, src)

	res := f.run(t, edfDefinition(), creds)

	require.NoError(t, res.Err, "an unlinked bill is not an error")
	assert.Equal(t, 1, res.AcceptedCount)
	assert.Equal(t, 0, res.LinkedCount)
	assert.Equal(t, "1 nouvelle facture EDF a été téléchargée", res.Notification)
}

func TestRun_BadCredentialsFetchesNothing(t *testing.T) {
	tests := []struct {
		name  string
		creds vendor.Credentials
	}{
		{"empty password", vendor.Credentials{Login: creds.Login}},
		{"empty login", vendor.Credentials{Password: creds.Password}},
		{"refused by portal", vendor.Credentials{Login: creds.Login, Password: "wrong"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, edfAdapter(), edfLedger())

			res := f.run(t, edfDefinition(), tt.creds)

			require.Error(t, res.Err)
			assert.Equal(t, "bad_credentials", res.ErrorKind)
			var badCreds *runerror.BadCredentialsError
			assert.ErrorAs(t, res.Err, &badCreds)

			_, fetches, _, downloads, logouts := f.adapter.Calls()
			assert.Equal(t, 0, fetches)
			assert.Equal(t, 0, downloads)
			assert.Equal(t, 0, logouts, "no session, no logout")
			assert.Equal(t, 0, res.AcceptedCount)
		})
	}
}

func TestRun_FetchErrorStillLogsOut(t *testing.T) {
	adapter := edfAdapter()
	adapter.FetchErr = &runerror.FetchError{Vendor: "edf", URL: "https://portal.test/bills", StatusCode: 503}
	f := newFixture(t, adapter, edfLedger())

	res := f.run(t, edfDefinition(), creds)

	assert.Equal(t, "fetch", res.ErrorKind)
	_, _, extracts, _, logouts := adapter.Calls()
	assert.Equal(t, 0, extracts)
	assert.Equal(t, 1, logouts)
}

func TestRun_ParseErrorIsFatal(t *testing.T) {
	adapter := edfAdapter()
	adapter.ExtractErr = &runerror.ParseError{Vendor: "edf", Field: "amount", Value: "n/a"}
	f := newFixture(t, adapter, edfLedger())

	res := f.run(t, edfDefinition(), creds)

	assert.Equal(t, "parse", res.ErrorKind)
	bills, err := f.store.ListBills(context.Background(), store.BillFilter{})
	require.NoError(t, err)
	assert.Empty(t, bills)
}

func TestRun_CancelledContextIsFetchError(t *testing.T) {
	f := newFixture(t, edfAdapter(), edfLedger())
	k, err := New(edfDefinition(), f.deps)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := k.Run(ctx, Request{Credentials: creds, Folder: folder})

	assert.Equal(t, "fetch", res.ErrorKind)
	logins, _, _, _, _ := f.adapter.Calls()
	assert.Equal(t, 0, logins)
}

func TestRun_DownloadFailureStillStoresMetadata(t *testing.T) {
	adapter := edfAdapter()
	adapter.DownloadErr = &runerror.FetchError{Vendor: "edf", URL: "https://portal.test/pdf", StatusCode: 500}
	f := newFixture(t, adapter, edfLedger())

	res := f.run(t, edfDefinition(), creds)

	require.NoError(t, res.Err)
	assert.Equal(t, 2, res.AcceptedCount)
	assert.Equal(t, 2, res.LinkedCount)
	assert.Len(t, res.Warnings, 2)
	assert.NotEmpty(t, f.logger.GetEntriesByLevel("WARN"))

	bills, err := f.store.ListBills(context.Background(), store.BillFilter{})
	require.NoError(t, err)
	require.Len(t, bills, 2)
	assert.Empty(t, bills[0].FileName)
}

func TestRun_InvalidDocumentIsNotStored(t *testing.T) {
	adapter := edfAdapter()
	adapter.Files["https://portal.test/pdf/jan"] = []byte("<html>expired</html>")
	f := newFixture(t, adapter, edfLedger())
	f.deps.ValidateDocument = func(data []byte) error {
		if string(data[:5]) != "%PDF-" {
			return errors.New("not a PDF")
		}
		return nil
	}

	res := f.run(t, edfDefinition(), creds)

	require.NoError(t, res.Err)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "not a PDF")
	assert.False(t, files.FileExists(filepath.Join(f.files.Root(), "Administration", "EDF", "20240110_edf.pdf")))
	assert.True(t, files.FileExists(filepath.Join(f.files.Root(), "Administration", "EDF", "20240210_edf.pdf")))
}

func TestRun_LinkedOperationIsNotReusedByLaterRun(t *testing.T) {
	adapter := edfAdapter()
	adapter.Bills = adapter.Bills[:1]
	f := newFixture(t, adapter, edfLedger())

	first := f.run(t, edfDefinition(), creds)
	require.NoError(t, first.Err)
	require.Equal(t, 1, first.LinkedCount)

	// A second bill of the same amount that would also fit op-jan.
	adapter.Bills = []models.Bill{{Date: day(2024, 1, 5), Amount: amount("60.00")}}
	second := f.run(t, edfDefinition(), creds)
	require.NoError(t, second.Err)
	assert.Equal(t, 1, second.AcceptedCount)
	assert.Equal(t, 0, second.LinkedCount)
}

type failingLedger struct{}

func (failingLedger) Operations(context.Context, time.Time, time.Time) ([]models.BankOperation, error) {
	return nil, errors.New("ledger offline")
}

func TestRun_LedgerFailureIsAWarning(t *testing.T) {
	f := newFixture(t, edfAdapter(), failingLedger{})

	res := f.run(t, edfDefinition(), creds)

	require.NoError(t, res.Err)
	assert.Equal(t, 2, res.AcceptedCount)
	assert.Equal(t, 0, res.LinkedCount)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "ledger offline")
}

type failingBills struct {
	BillStore
	saveErr error
}

func (f failingBills) SaveBill(context.Context, models.Bill, []string) (models.Bill, error) {
	return models.Bill{}, f.saveErr
}

func TestRun_MetadataFailureIsFatal(t *testing.T) {
	f := newFixture(t, edfAdapter(), edfLedger())
	f.deps.Bills = failingBills{BillStore: f.store, saveErr: &runerror.StoreError{Op: "save bill", Err: errors.New("disk full")}}

	res := f.run(t, edfDefinition(), creds)

	assert.Equal(t, "store", res.ErrorKind)
	assert.Equal(t, 2, res.AcceptedCount, "candidates stay partitioned")
	assert.Equal(t, 0, res.FilteredCount)
	assert.Equal(t, 0, res.SavedCount)
	assert.Empty(t, res.Notification)
	_, _, _, _, logouts := f.adapter.Calls()
	assert.Equal(t, 1, logouts)
}

func TestRun_LogoutFailureIsAWarning(t *testing.T) {
	adapter := edfAdapter()
	adapter.LogoutErr = errors.New("connection reset")
	f := newFixture(t, adapter, edfLedger())

	res := f.run(t, edfDefinition(), creds)

	require.NoError(t, res.Err)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "logout")
}

func TestRun_OptionalDepsAreSkipped(t *testing.T) {
	f := newFixture(t, edfAdapter(), nil)
	f.deps.Files = nil
	f.deps.Notifier = nil

	res := f.run(t, edfDefinition(), creds)

	require.NoError(t, res.Err)
	assert.Equal(t, 2, res.AcceptedCount)
	assert.Equal(t, 0, res.LinkedCount)
	assert.Empty(t, res.Notification)
	_, _, _, downloads, _ := f.adapter.Calls()
	assert.Equal(t, 0, downloads)
}

func TestRun_RecordsMetrics(t *testing.T) {
	rec, err := metrics.NewRecorder()
	require.NoError(t, err)
	f := newFixture(t, edfAdapter(), edfLedger())
	f.deps.Metrics = rec

	f.run(t, edfDefinition(), creds)
	f.run(t, edfDefinition(), vendor.Credentials{Login: creds.Login})

	n, err := testutil.GatherAndCount(rec.Gatherer(), "konnectors_runs_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n, "one series per outcome")
}

func TestNew_Validation(t *testing.T) {
	f := newFixture(t, edfAdapter(), nil)

	_, err := New(edfDefinition(), Deps{Bills: f.store})
	assert.Error(t, err)

	_, err = New(edfDefinition(), Deps{Adapter: f.adapter})
	assert.Error(t, err)

	def := edfDefinition()
	def.Link.MaxDateDelta = 2
	_, err = New(def, f.deps)
	assert.Error(t, err)

	def = edfDefinition()
	def.Vendor = ""
	k, err := New(def, f.deps)
	require.NoError(t, err)
	assert.Equal(t, "edf", k.Vendor())
	assert.Equal(t, []string{"login", "fetch", "extract", "filter", "save", "link", "notify"}, k.Stages())
}
