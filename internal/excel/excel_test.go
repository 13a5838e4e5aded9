package excel

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/pricelab/avito-price-analyzer/internal/models"
)

func writeInputWorkbook(t *testing.T, dir string, rows [][]interface{}) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	for i, row := range rows {
		for j, v := range row {
			cell, err := excelize.CoordinatesToCellName(j+1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(sheet, cell, v))
		}
	}

	path := filepath.Join(dir, "report.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestParseCost(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected float64
	}{
		{"Plain integer", "50000", 50000},
		{"Comma decimal", "50000,50", 50000.5},
		{"Thousands spaces", "50 000", 50000},
		{"Non-breaking spaces", "50 000", 50000},
		{"Currency suffix", "50000 ₽", 50000},
		{"Negative", "-120", -120},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, ParseCost(tt.input), 1e-9)
		})
	}
}

func TestParseCostUnparseable(t *testing.T) {
	for _, input := range []string{"", "abc", "₽", "--..--"} {
		assert.True(t, math.IsNaN(ParseCost(input)), "input %q", input)
	}
}

func TestReadRows(t *testing.T) {
	dir := t.TempDir()
	path := writeInputWorkbook(t, dir, [][]interface{}{
		{"Apple", "iPhone 13 128 ГБ", 50000},
		{"Samsung", "Galaxy S21", "42 500,00"},
		{"NoName", "Кабель USB", ""},
	})

	rows, err := ReadRows(path)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, 0, rows[0].RowIndex)
	assert.Equal(t, "Apple", rows[0].Brand)
	assert.Equal(t, "iPhone 13 128 ГБ", rows[0].Description)
	assert.InDelta(t, 50000.0, rows[0].PurchaseCost, 1e-9)

	assert.InDelta(t, 42500.0, rows[1].PurchaseCost, 1e-9)
	assert.True(t, math.IsNaN(rows[2].PurchaseCost))
}

func TestReadRowsTooFewColumns(t *testing.T) {
	dir := t.TempDir()
	path := writeInputWorkbook(t, dir, [][]interface{}{
		{"Apple", "iPhone"},
		{"Samsung", "Galaxy"},
	})

	_, err := ReadRows(path)
	assert.ErrorIs(t, err, ErrTooFewColumns)
}

func TestUniqueOutputPath(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "report.xlsx")

	first := UniqueOutputPath(input)
	assert.Equal(t, filepath.Join(dir, "report_analyzed.xlsx"), first)

	require.NoError(t, os.WriteFile(first, []byte("x"), 0o644))
	second := UniqueOutputPath(input)
	assert.Equal(t, filepath.Join(dir, "report_analyzed (1).xlsx"), second)

	require.NoError(t, os.WriteFile(second, []byte("x"), 0o644))
	third := UniqueOutputPath(input)
	assert.Equal(t, filepath.Join(dir, "report_analyzed (2).xlsx"), third)
}

func TestWriteReport(t *testing.T) {
	dir := t.TempDir()
	input := writeInputWorkbook(t, dir, [][]interface{}{
		{"Apple", "iPhone 13 128 ГБ", 50000},
		{"Samsung", "Galaxy S21", 40000},
	})

	rows, err := ReadRows(input)
	require.NoError(t, err)

	avg := 60000.0
	markup := 20.0
	results := []models.RowResult{
		{
			RowIndex:      0,
			Outcome:       models.OutcomeSuccess,
			AveragePrice:  &avg,
			MarkupPercent: &markup,
			CheapestURL:   "https://www.avito.ru/cheapest",
		},
		{
			RowIndex: 1,
			Outcome:  models.OutcomeFetchFailed,
		},
	}

	outPath, err := WriteReport(input, rows, results)
	require.NoError(t, err)
	assert.NotEqual(t, input, outPath)
	assert.FileExists(t, outPath)

	out, err := excelize.OpenFile(outPath)
	require.NoError(t, err)
	defer out.Close()
	sheet := out.GetSheetName(0)

	// Input columns copied through.
	a1, _ := out.GetCellValue(sheet, "A1")
	assert.Equal(t, "Apple", a1)
	b1, _ := out.GetCellValue(sheet, "B1")
	assert.Equal(t, "iPhone 13 128 ГБ", b1)

	// Computed columns for the successful row.
	d1, _ := out.GetCellValue(sheet, "D1", excelize.Options{RawCellValue: true})
	assert.Equal(t, "60000", d1)
	e1, _ := out.GetCellValue(sheet, "E1", excelize.Options{RawCellValue: true})
	assert.Equal(t, "20", e1)
	f1, _ := out.GetCellValue(sheet, "F1")
	assert.Equal(t, "https://www.avito.ru/cheapest", f1)

	// Failed row keeps D-F empty.
	for _, cell := range []string{"D2", "E2", "F2"} {
		v, _ := out.GetCellValue(sheet, cell)
		assert.Empty(t, v, "cell %s", cell)
	}
}

func TestWriteReportMismatchedLengths(t *testing.T) {
	dir := t.TempDir()
	input := writeInputWorkbook(t, dir, [][]interface{}{{"A", "B", 1}})

	rows, err := ReadRows(input)
	require.NoError(t, err)

	_, err = WriteReport(input, rows, nil)
	assert.Error(t, err)
}
