package excel

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/pricelab/avito-price-analyzer/internal/models"
)

// ErrTooFewColumns means the workbook cannot carry brand/model/cost data.
// This is fatal for the whole run: there is nothing meaningful to degrade to.
var ErrTooFewColumns = errors.New("input workbook needs at least 3 columns (brand, model, purchase cost)")

var costStripPattern = regexp.MustCompile(`[^0-9.\-]`)

// ReadRows reads the headerless input workbook: column A is the brand, B the
// model/description, C the purchase cost. Cost cells tolerate thousands
// separators, non-breaking spaces and comma decimals; unparseable cells
// become NaN rather than failing the row.
func ReadRows(path string) ([]models.ProductRow, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	cells, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	width := 0
	for _, row := range cells {
		if len(row) > width {
			width = len(row)
		}
	}
	if width < 3 {
		return nil, ErrTooFewColumns
	}

	rows := make([]models.ProductRow, 0, len(cells))
	for i, row := range cells {
		costRaw := cell(row, 2)
		rows = append(rows, models.ProductRow{
			RowIndex:     i,
			Brand:        cell(row, 0),
			Description:  cell(row, 1),
			PurchaseCost: ParseCost(costRaw),
			CostRaw:      costRaw,
		})
	}

	return rows, nil
}

func cell(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// ParseCost normalizes a human-entered price cell into a float: spaces and
// NBSPs removed, comma decimal folded to a dot, everything but digits, dot
// and minus stripped. Returns NaN when nothing parseable remains.
func ParseCost(s string) float64 {
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, ",", ".")
	s = costStripPattern.ReplaceAllString(s, "")
	if s == "" {
		return math.NaN()
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
