package analyzer

import (
	"math"

	"github.com/pricelab/avito-price-analyzer/internal/models"
)

// Aggregate reduces the selected priced listings to the row's market
// estimate: mean price rounded to two decimals, markup over the purchase
// cost, and the cheapest listing's URL (ties keep selection order). The
// markup is left unset unless the purchase cost is a finite positive number;
// the division is never attempted otherwise. listings must be non-empty.
func Aggregate(row models.ProductRow, listings []models.Listing) models.RowResult {
	result := models.RowResult{
		RowIndex:     row.RowIndex,
		Outcome:      models.OutcomeSuccess,
		ListingsUsed: len(listings),
	}

	sum := 0
	var cheapest *models.Listing
	for i := range listings {
		price := *listings[i].PriceRub
		sum += price
		if cheapest == nil || price < *cheapest.PriceRub {
			cheapest = &listings[i]
		}
	}

	avg := math.Round(float64(sum)/float64(len(listings))*100) / 100
	result.AveragePrice = &avg
	result.CheapestURL = cheapest.URL

	if row.HasCost() {
		markup := (avg - row.PurchaseCost) / row.PurchaseCost * 100.0
		result.MarkupPercent = &markup
	}

	return result
}
