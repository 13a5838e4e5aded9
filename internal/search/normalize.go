package search

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	gbPattern      = regexp.MustCompile(`(\d+)\s*(гб|gb)`)
	tbPattern      = regexp.MustCompile(`(\d+)\s*(тб|tb)`)
	allowedPattern = regexp.MustCompile(`[^a-z0-9а-яё\s\-]+`)
	spacePattern   = regexp.MustCompile(`\s+`)
	tokenPattern   = regexp.MustCompile(`[a-z0-9а-яё\-]+`)
)

// stopwords are filler words that carry no signal for matching listings
// against a product description.
var stopwords = map[string]struct{}{
	"и": {}, "или": {}, "а": {}, "для": {}, "с": {}, "на": {}, "в": {},
	"из": {}, "к": {}, "по": {}, "без": {}, "до": {}, "от": {}, "что": {},
	"цвет": {}, "новый": {}, "бу": {}, "есть": {}, "нет": {}, "про": {},
	"про-": {}, "встроенный": {}, "версия": {},
}

// Normalize canonicalizes free text for tokenization and scoring: lowercase,
// fold the ё spelling of "чёрный", fuse capacity patterns ("256 ГБ" ->
// "256gb"), strip everything outside letters/digits/hyphen/space and collapse
// whitespace. Empty input yields an empty string.
func Normalize(text string) string {
	s := strings.ToLower(text)
	s = strings.ReplaceAll(s, "чёр", "чер")
	s = gbPattern.ReplaceAllString(s, "${1}gb")
	s = tbPattern.ReplaceAllString(s, "${1}tb")
	s = allowedPattern.ReplaceAllString(s, " ")
	s = spacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Tokenize derives the ordered token set for a product: brand and description
// are normalized together, split on token boundaries, stopwords and
// single-character tokens dropped, duplicates removed keeping first-seen
// order. The order matters downstream: query truncation uses the leading
// tokens.
func Tokenize(brand, description string) []string {
	full := Normalize(brand + " " + description)
	raw := tokenPattern.FindAllString(full, -1)

	tokens := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, t := range raw {
		if utf8.RuneCountInString(t) <= 1 {
			continue
		}
		if _, stop := stopwords[t]; stop {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		tokens = append(tokens, t)
	}
	return tokens
}
