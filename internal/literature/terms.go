package literature

import (
	"strings"
	"unicode"
)

var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "that": {}, "this": {}, "from": {},
	"into": {}, "are": {}, "was": {}, "were": {}, "our": {}, "how": {}, "can": {},
	"what": {}, "why": {}, "who": {}, "when": {}, "where": {}, "which": {}, "their": {},
	"there": {}, "these": {}, "those": {}, "about": {}, "while": {}, "without": {},
	"more": {}, "most": {}, "less": {}, "many": {}, "much": {}, "have": {}, "has": {},
	"not": {}, "but": {}, "all": {}, "any": {}, "its": {}, "they": {}, "them": {},
	"reduce": {}, "improve": {}, "increase": {}, "need": {}, "needs": {}, "way": {},
	"ways": {}, "help": {}, "make": {}, "use": {}, "using": {}, "new": {}, "better": {},
}

// SearchTerms extracts up to max distinct keywords from description in
// order of first appearance.
func SearchTerms(description string, max int) []string {
	words := strings.FieldsFunc(strings.ToLower(description), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	})

	seen := make(map[string]struct{})
	var terms []string
	for _, w := range words {
		w = strings.Trim(w, "-")
		if len([]rune(w)) < 3 {
			continue
		}
		if _, stop := stopwords[w]; stop {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		terms = append(terms, w)
		if max > 0 && len(terms) == max {
			break
		}
	}
	return terms
}

// matches reports whether any term occurs in text, case-insensitively.
func matches(text string, terms []string) bool {
	text = strings.ToLower(text)
	for _, t := range terms {
		if strings.Contains(text, t) {
			return true
		}
	}
	return false
}
