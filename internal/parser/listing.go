package parser

import (
	"errors"
	"fmt"
	"hash/fnv"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pricelab/avito-price-analyzer/internal/models"
)

// ErrBlocked means the page is an anti-bot challenge rather than a search
// results document. Callers treat it like an empty result set but should log
// it separately so an operator can tell defense from a genuine miss.
var ErrBlocked = errors.New("page is an anti-bot challenge")

const canonicalBaseURL = "https://www.avito.ru"

// challengePhrases show up in the visible text of Avito's robot-check pages.
var challengePhrases = []string{"не робот", "captcha", "подтвердите"}

// cardStrategy is one way of locating listing cards in the markup. Strategies
// are tried most-specific first and their results unioned, so the extractor
// survives markup drift without caller changes.
type cardStrategy struct {
	name     string
	selector string
}

var digitsPattern = regexp.MustCompile(`\d+`)

// ListingParser turns a search-results document into deduplicated listings.
type ListingParser struct {
	strategies []cardStrategy
	limit      int
}

// NewListingParser builds a parser capped at limit raw listings. The cap
// bounds downstream scoring cost, it is not a correctness requirement.
func NewListingParser(limit int) *ListingParser {
	return &ListingParser{
		limit: limit,
		strategies: []cardStrategy{
			{name: "item_marker", selector: `div[data-marker="item"]`},
			{name: "iva_class", selector: `div[class*="iva-item"]`},
			{name: "article_tag", selector: `article`},
		},
	}
}

// ExtractListings parses the document and returns every card that has both a
// title and a link. Cards found by more than one strategy are counted once,
// keyed by the listing identifier when present, else a hash of the visible
// text. Returns ErrBlocked when the page is a robot challenge.
func (p *ListingParser) ExtractListings(html string) ([]models.Listing, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	if isChallengePage(doc) {
		return nil, ErrBlocked
	}

	var cards []*goquery.Selection
	seen := make(map[string]struct{})
	for _, strat := range p.strategies {
		doc.Find(strat.selector).Each(func(i int, s *goquery.Selection) {
			key := cardKey(s)
			if _, dup := seen[key]; dup {
				return
			}
			seen[key] = struct{}{}
			cards = append(cards, s)
		})
	}

	listings := make([]models.Listing, 0, len(cards))
	for _, card := range cards {
		if len(listings) >= p.limit {
			break
		}

		listing, ok := extractCard(card)
		if !ok {
			continue
		}
		listings = append(listings, listing)
	}

	return listings, nil
}

func isChallengePage(doc *goquery.Document) bool {
	text := strings.ToLower(visibleText(doc.Selection))
	for _, phrase := range challengePhrases {
		if strings.Contains(text, phrase) {
			return true
		}
	}
	return false
}

func cardKey(s *goquery.Selection) string {
	if id, ok := s.Attr("data-item-id"); ok && id != "" {
		return id
	}
	h := fnv.New64a()
	h.Write([]byte(visibleText(s)))
	return fmt.Sprintf("txt:%x", h.Sum64())
}

func extractCard(card *goquery.Selection) (models.Listing, bool) {
	anchor := findAnchor(card)
	if anchor == nil {
		return models.Listing{}, false
	}

	title := visibleText(anchor)
	href, _ := anchor.Attr("href")
	if title == "" || href == "" {
		return models.Listing{}, false
	}

	return models.Listing{
		Title:    title,
		URL:      resolveHref(href),
		PriceRub: extractPrice(card),
	}, true
}

// findAnchor picks the card's link: the title-marker anchor first, then the
// generic link class, then any anchor with an href.
func findAnchor(card *goquery.Selection) *goquery.Selection {
	selectors := []string{
		`a[data-marker="item-title"]`,
		`a[class*="link-link"]`,
		`a[href]`,
	}
	for _, sel := range selectors {
		if a := card.Find(sel).First(); a.Length() > 0 {
			return a
		}
	}
	return nil
}

func resolveHref(href string) string {
	if strings.HasPrefix(href, "http") {
		return href
	}
	if strings.HasPrefix(href, "/") {
		return canonicalBaseURL + href
	}
	return canonicalBaseURL + "/" + href
}

// extractPrice prefers the machine-readable price metadata, falling back to
// digit extraction from the human-readable price element. Thousands
// separators are irrelevant: all digit groups are concatenated.
func extractPrice(card *goquery.Selection) *int {
	if content, ok := card.Find(`meta[itemprop="price"]`).First().Attr("content"); ok {
		if price, err := strconv.Atoi(content); err == nil && price > 0 {
			return &price
		}
	}

	priceSelectors := []string{
		`[data-marker="item-price"]`,
		`span[itemprop="price"]`,
		`strong[class*="price"]`,
	}
	for _, sel := range priceSelectors {
		el := card.Find(sel).First()
		if el.Length() == 0 {
			continue
		}
		digits := digitsPattern.FindAllString(visibleText(el), -1)
		if len(digits) == 0 {
			continue
		}
		if price, err := strconv.Atoi(strings.Join(digits, "")); err == nil && price > 0 {
			return &price
		}
	}

	return nil
}

// visibleText is the selection's text with whitespace collapsed, matching how
// a reader sees it across nested elements.
func visibleText(s *goquery.Selection) string {
	return strings.Join(strings.Fields(s.Text()), " ")
}
