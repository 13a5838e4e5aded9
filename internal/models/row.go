package models

import (
	"math"
)

// ProductRow is one input row from the workbook: brand, free-text model
// description and the purchase cost in rubles. PurchaseCost is NaN when the
// cell was empty or unparseable.
type ProductRow struct {
	RowIndex     int     `json:"row_index"`
	Brand        string  `json:"brand"`
	Description  string  `json:"description"`
	PurchaseCost float64 `json:"purchase_cost"`
	// CostRaw keeps the cell text as read, so the output workbook can copy
	// column C through unchanged even when parsing failed.
	CostRaw string `json:"-"`
}

func (r ProductRow) HasCost() bool {
	return !math.IsNaN(r.PurchaseCost) && r.PurchaseCost > 0
}

// Listing is a single marketplace search result. PriceRub is nil when the
// card carried no readable price.
type Listing struct {
	Title    string `json:"title"`
	URL      string `json:"url"`
	PriceRub *int   `json:"price_rub,omitempty"`
}

// Outcome classifies how a row finished.
type Outcome string

const (
	OutcomeSuccess         Outcome = "success"
	OutcomeNoResults       Outcome = "no_results"
	OutcomeNoPricedResults Outcome = "no_priced_results"
	OutcomeFetchFailed     Outcome = "fetch_failed"
)

// RowResult is the computed output for one row. AveragePrice, MarkupPercent
// and CheapestURL are only set on OutcomeSuccess; MarkupPercent additionally
// requires a finite positive purchase cost.
type RowResult struct {
	RowIndex      int      `json:"row_index"`
	Outcome       Outcome  `json:"outcome"`
	AveragePrice  *float64 `json:"average_price,omitempty"`
	MarkupPercent *float64 `json:"markup_percent,omitempty"`
	CheapestURL   string   `json:"cheapest_url,omitempty"`
	ListingsUsed  int      `json:"listings_used"`
}
