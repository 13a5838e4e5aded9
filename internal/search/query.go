package search

import (
	"net/url"
	"strings"
)

// maxQueryTokens caps how many leading tokens make it into the search query;
// more tokens narrow Avito's results to the point of returning nothing.
const maxQueryTokens = 8

// DefaultHosts are tried in order. The mobile endpoint serves the same search
// and is defended less aggressively, so it is the fallback.
var DefaultHosts = []string{
	"https://www.avito.ru",
	"https://m.avito.ru",
}

// BuildQuery joins up to the first eight tokens into a search query. When
// tokenization produced nothing usable it falls back to the raw brand and
// description so the row still gets a search instead of an empty query.
func BuildQuery(tokens []string, brand, description string) string {
	if len(tokens) == 0 {
		return strings.TrimSpace(brand + " " + description)
	}
	if len(tokens) > maxQueryTokens {
		tokens = tokens[:maxQueryTokens]
	}
	return strings.Join(tokens, " ")
}

// SearchURLs returns the candidate search URLs for a query, one per host,
// preserving host order. A nil or empty hosts slice falls back to
// DefaultHosts.
func SearchURLs(query string, hosts []string) []string {
	if len(hosts) == 0 {
		hosts = DefaultHosts
	}
	q := url.Values{"q": {query}}.Encode()
	urls := make([]string, 0, len(hosts))
	for _, h := range hosts {
		urls = append(urls, strings.TrimRight(h, "/")+"/rossiya?"+q)
	}
	return urls
}
