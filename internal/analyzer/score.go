package analyzer

import (
	"sort"
	"strings"

	"github.com/pricelab/avito-price-analyzer/internal/models"
	"github.com/pricelab/avito-price-analyzer/internal/search"
)

// Score is the fraction of tokens found as substrings of the normalized
// title, in [0, 1]. An empty token set scores zero. This is a recall-biased
// heuristic: false positives are expected and damped by averaging, not
// eliminated.
func Score(title string, tokens []string) float64 {
	if len(tokens) == 0 {
		return 0.0
	}

	normalized := search.Normalize(title)
	hits := 0
	for _, t := range tokens {
		if strings.Contains(normalized, t) {
			hits++
		}
	}
	return float64(hits) / float64(len(tokens))
}

// Select ranks listings by score descending (stable, so ties keep extraction
// order), truncates to the top candidates and drops listings without a price.
func Select(listings []models.Listing, tokens []string, top int) []models.Listing {
	type scored struct {
		listing models.Listing
		score   float64
	}

	ranked := make([]scored, len(listings))
	for i, l := range listings {
		ranked[i] = scored{listing: l, score: Score(l.Title, tokens)}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	if len(ranked) > top {
		ranked = ranked[:top]
	}

	priced := make([]models.Listing, 0, len(ranked))
	for _, s := range ranked {
		l := s.listing
		if l.PriceRub != nil && *l.PriceRub > 0 {
			priced = append(priced, l)
		}
	}
	return priced
}
