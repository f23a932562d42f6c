package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SomeAverageDev/konnectors/internal/models"
)

func TestObserveRun(t *testing.T) {
	r, err := NewRecorder()
	require.NoError(t, err)

	start := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	r.ObserveRun(models.RunResult{
		Vendor:        "edf",
		AcceptedCount: 2,
		FilteredCount: 1,
		LinkedCount:   2,
		StartedAt:     start,
		FinishedAt:    start.Add(3 * time.Second),
	})
	r.ObserveRun(models.RunResult{
		Vendor:    "edf",
		Err:       errors.New("refused"),
		ErrorKind: "bad_credentials",
	})

	assert.Equal(t, 1.0, testutil.ToFloat64(r.runs.WithLabelValues("edf", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.runs.WithLabelValues("edf", "bad_credentials")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.bills.WithLabelValues("edf", "accepted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.bills.WithLabelValues("edf", "filtered")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.bills.WithLabelValues("edf", "linked")))
	assert.Equal(t, 1, testutil.CollectAndCount(r.duration))
}

func TestNilRecorder(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.ObserveRun(models.RunResult{Vendor: "edf"})
	})
	assert.NoError(t, r.WriteTextfile("ignored.prom"))
}

func TestWriteTextfile(t *testing.T) {
	r, err := NewRecorder()
	require.NoError(t, err)
	r.ObserveRun(models.RunResult{Vendor: "leclercdrive", AcceptedCount: 1})

	path := filepath.Join(t.TempDir(), "konnectors.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `konnectors_runs_total{outcome="success",vendor="leclercdrive"} 1`)
	assert.Contains(t, string(data), `konnectors_bills_total{state="accepted",vendor="leclercdrive"} 1`)
}
