package api

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/pricelab/avito-price-analyzer/internal/config"
	"github.com/pricelab/avito-price-analyzer/internal/jobs"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	cfg := &config.Config{
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

	manager := jobs.NewManager(cfg, slog.Default())
	return NewRouter(NewHandlers(manager, slog.Default()))
}

func writeWorkbook(t *testing.T) string {
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

func TestHealth(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestCreateRunValidation(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		name string
		body string
	}{
		{"empty body", ""},
		{"malformed json", "{not json"},
		{"missing input_path", `{"cookies_path":"/tmp/cookies.txt"}`},
		{"nonexistent input", `{"input_path":"/nowhere/products.xlsx"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/runs", bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestCreateAndGetRun(t *testing.T) {
	router := newTestRouter(t)

	body, err := json.Marshal(CreateRunRequest{InputPath: writeWorkbook(t)})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/runs", bytes.NewBuffer(body)))
	require.Equal(t, http.StatusCreated, rec.Code)

	var created CreateRunResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotEmpty(t, created.RunID)
	assert.Equal(t, jobs.StatusPending, created.Status)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/runs/"+created.RunID, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var snap jobs.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, created.RunID, snap.ID)
	assert.Equal(t, jobs.StatusPending, snap.Status)
}

func TestGetRunNotFound(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/runs/deadbeef", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCancelRun(t *testing.T) {
	router := newTestRouter(t)

	body, err := json.Marshal(CreateRunRequest{InputPath: writeWorkbook(t)})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/runs", bytes.NewBuffer(body)))
	require.Equal(t, http.StatusCreated, rec.Code)

	var created CreateRunResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/runs/"+created.RunID+"/cancel", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/runs/"+created.RunID, nil))
	var snap jobs.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, jobs.StatusCancelled, snap.Status)
}

func TestCancelRunNotFound(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/runs/deadbeef/cancel", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
