package excel

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/pricelab/avito-price-analyzer/internal/models"
)

const resultSuffix = "_analyzed"

// Column layout of the report: A-C copied from the input, D-F computed.
var columnWidths = []float64{22, 54, 14, 16, 12, 60}

const (
	currencyFormat = `#,##0" ₽"`
	percentFormat  = `0.00" %"`

	// Row highlight colors by markup tier.
	fillModerate = "FFF9C4"
	fillStrong   = "C8E6C9"
)

// markup thresholds, percent
const (
	markupModerate = 5.0
	markupStrong   = 10.0
)

type reportStyles struct {
	// indexed by fill tier: 0 none, 1 moderate, 2 strong
	plain    [3]int
	currency [3]int
	percent  [3]int
}

// WriteReport writes the analyzed workbook next to the input, never
// overwriting anything: name collisions get an incrementing " (n)" suffix.
// Columns A-C are copied through, D is the average price, E the markup
// percent, F the cheapest listing URL. Rows are highlighted by markup tier.
func WriteReport(inputPath string, rows []models.ProductRow, results []models.RowResult) (string, error) {
	if len(rows) != len(results) {
		return "", fmt.Errorf("row/result count mismatch: %d vs %d", len(rows), len(results))
	}

	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	styles, err := newReportStyles(f)
	if err != nil {
		return "", fmt.Errorf("failed to create styles: %w", err)
	}

	for col, width := range columnWidths {
		name, _ := excelize.ColumnNumberToName(col + 1)
		if err := f.SetColWidth(sheet, name, name, width); err != nil {
			return "", fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for i := range rows {
		if err := writeRow(f, sheet, i+1, rows[i], results[i], styles); err != nil {
			return "", err
		}
	}

	outPath := UniqueOutputPath(inputPath)
	if err := f.SaveAs(outPath); err != nil {
		return "", fmt.Errorf("failed to save report: %w", err)
	}
	return outPath, nil
}

func writeRow(f *excelize.File, sheet string, rowNum int, row models.ProductRow, result models.RowResult, styles reportStyles) error {
	tier := fillTier(result.MarkupPercent)

	set := func(col int, value interface{}, style int) error {
		cell, _ := excelize.CoordinatesToCellName(col, rowNum)
		if value != nil {
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return fmt.Errorf("failed to set %s: %w", cell, err)
			}
		}
		return f.SetCellStyle(sheet, cell, cell, style)
	}

	if err := set(1, row.Brand, styles.plain[tier]); err != nil {
		return err
	}
	if err := set(2, row.Description, styles.plain[tier]); err != nil {
		return err
	}

	var costValue interface{}
	if !math.IsNaN(row.PurchaseCost) {
		costValue = row.PurchaseCost
	} else if row.CostRaw != "" {
		costValue = row.CostRaw
	}
	if err := set(3, costValue, styles.currency[tier]); err != nil {
		return err
	}

	var avgValue, markupValue, urlValue interface{}
	if result.AveragePrice != nil {
		avgValue = *result.AveragePrice
	}
	if result.MarkupPercent != nil {
		markupValue = *result.MarkupPercent
	}
	if result.CheapestURL != "" {
		urlValue = result.CheapestURL
	}

	if err := set(4, avgValue, styles.currency[tier]); err != nil {
		return err
	}
	if err := set(5, markupValue, styles.percent[tier]); err != nil {
		return err
	}
	return set(6, urlValue, styles.plain[tier])
}

// fillTier maps a markup to its highlight tier: rows below the moderate
// threshold (including failed rows with no markup at all) stay unstyled.
func fillTier(markup *float64) int {
	if markup == nil {
		return 0
	}
	switch {
	case *markup >= markupStrong:
		return 2
	case *markup >= markupModerate:
		return 1
	default:
		return 0
	}
}

func newReportStyles(f *excelize.File) (reportStyles, error) {
	var styles reportStyles
	fills := []string{"", fillModerate, fillStrong}

	for tier, color := range fills {
		base := excelize.Style{}
		if color != "" {
			base.Fill = excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{color}}
		}

		plain := base
		id, err := f.NewStyle(&plain)
		if err != nil {
			return styles, err
		}
		styles.plain[tier] = id

		currency := base
		fmtCur := currencyFormat
		currency.CustomNumFmt = &fmtCur
		if id, err = f.NewStyle(&currency); err != nil {
			return styles, err
		}
		styles.currency[tier] = id

		percent := base
		fmtPct := percentFormat
		percent.CustomNumFmt = &fmtPct
		if id, err = f.NewStyle(&percent); err != nil {
			return styles, err
		}
		styles.percent[tier] = id
	}

	return styles, nil
}

// UniqueOutputPath derives the report path from the input path: the
// "_analyzed" suffix, then " (1)", " (2)", ... until the name is free.
func UniqueOutputPath(inputPath string) string {
	ext := ".xlsx"
	base := strings.TrimSuffix(inputPath, filepath.Ext(inputPath)) + resultSuffix

	path := base + ext
	for n := 1; ; n++ {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return path
		}
		path = fmt.Sprintf("%s (%d)%s", base, n, ext)
	}
}
