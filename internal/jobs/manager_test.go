package jobs

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/pricelab/avito-price-analyzer/internal/config"
	"github.com/pricelab/avito-price-analyzer/internal/models"
)

func testConfig() *config.Config {
	return &config.Config{
		Scraper: config.ScraperConfig{
			Hosts:          []string{"http://127.0.0.1:0"},
			RequestTimeout: time.Second,
			RetryAttempts:  1,
			UserAgents:     []string{"test-agent/1.0"},
		},
		Analyzer: config.AnalyzerConfig{
			RawListingLimit: 120,
			SelectTop:       40,
		},
	}
}

func writeProductFile(t *testing.T) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetCellValue(sheet, "A1", "Apple"))
	require.NoError(t, f.SetCellValue(sheet, "B1", "iPhone 13"))
	require.NoError(t, f.SetCellValue(sheet, "C1", 50000))

	path := filepath.Join(t.TempDir(), "products.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func waitForTerminal(t *testing.T, m *Manager, id string) Snapshot {
	t.Helper()

	deadline := time.After(10 * time.Second)
	for {
		select {
		case <-deadline:
			t.Fatal("run did not reach a terminal status")
		case <-time.After(20 * time.Millisecond):
		}

		snap, err := m.GetRun(id)
		require.NoError(t, err)
		switch snap.Status {
		case StatusCompleted, StatusFailed, StatusCancelled:
			return snap
		}
	}
}

func TestCreateRunRejectsMissingInput(t *testing.T) {
	m := NewManager(testConfig(), slog.Default())

	_, err := m.CreateRun(filepath.Join(t.TempDir(), "nope.xlsx"), "")
	assert.Error(t, err)
	assert.Empty(t, m.ListRuns())
}

func TestGetRunUnknownID(t *testing.T) {
	m := NewManager(testConfig(), slog.Default())

	_, err := m.GetRun("no-such-run")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestWorkerExecutesRun(t *testing.T) {
	m := NewManager(testConfig(), slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.StartWorker(ctx)

	snap, err := m.CreateRun(writeProductFile(t), "")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, snap.Status)

	final := waitForTerminal(t, m, snap.ID)

	// The host is unreachable, so the row fails to fetch but the run itself
	// completes and writes a report.
	assert.Equal(t, StatusCompleted, final.Status)
	assert.Equal(t, 100, final.Progress)
	assert.NotEmpty(t, final.OutputPath)
	assert.FileExists(t, final.OutputPath)
	assert.Equal(t, 1, final.Outcomes[models.OutcomeFetchFailed])
	assert.NotEmpty(t, final.ChallengeURL)
	assert.NotNil(t, final.StartedAt)
	assert.NotNil(t, final.CompletedAt)
}

func TestCancelPendingRun(t *testing.T) {
	m := NewManager(testConfig(), slog.Default())
	// No worker running, so the run stays pending.

	snap, err := m.CreateRun(writeProductFile(t), "")
	require.NoError(t, err)

	require.NoError(t, m.CancelRun(snap.ID))

	got, err := m.GetRun(snap.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, got.Status)
	assert.NotNil(t, got.CompletedAt)

	// The worker must skip a run cancelled while queued.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.StartWorker(ctx)

	time.Sleep(100 * time.Millisecond)
	got, err = m.GetRun(snap.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, got.Status)
}

func TestCancelRunUnknownID(t *testing.T) {
	m := NewManager(testConfig(), slog.Default())
	assert.ErrorIs(t, m.CancelRun("no-such-run"), ErrRunNotFound)
}

func TestListRunsNewestFirst(t *testing.T) {
	m := NewManager(testConfig(), slog.Default())
	input := writeProductFile(t)

	first, err := m.CreateRun(input, "")
	require.NoError(t, err)
	second, err := m.CreateRun(input, "")
	require.NoError(t, err)

	runs := m.ListRuns()
	require.Len(t, runs, 2)
	assert.Equal(t, second.ID, runs[0].ID)
	assert.Equal(t, first.ID, runs[1].ID)
}
