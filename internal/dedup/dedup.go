// Package dedup merges near-duplicate news items by title overlap.
package dedup

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"newsdigest/internal/domain"
)

// OverlapThreshold is the share of the smaller token set that must appear in the
// larger one for two titles to count as the same story.
const OverlapThreshold = 0.6

const minTokenRunes = 4

// stopWords are Italian articles, prepositions, conjunctions and copula forms.
// Only words longer than three runes matter, shorter ones are dropped anyway.
var stopWords = map[string]struct{}{
	"dello": {}, "della": {}, "degli": {}, "delle": {},
	"allo": {}, "alla": {}, "agli": {}, "alle": {},
	"dallo": {}, "dalla": {}, "dagli": {}, "dalle": {},
	"nello": {}, "nella": {}, "negli": {}, "nelle": {},
	"sullo": {}, "sulla": {}, "sugli": {}, "sulle": {},
	"coll": {}, "colla": {}, "dall": {}, "dell": {}, "nell": {}, "sull": {},
	"contro": {}, "senza": {}, "sopra": {}, "sotto": {},
	"verso": {}, "presso": {}, "durante": {}, "tramite": {},
	"come": {}, "però": {}, "perché": {}, "quando": {}, "mentre": {}, "oppure": {},
	"quindi": {}, "ovvero": {}, "cioè": {}, "dunque": {},
	"sono": {}, "sarà": {}, "saranno": {}, "essere": {}, "stato": {}, "stata": {},
	"stati": {}, "state": {}, "erano": {}, "siamo": {},
}

// Tokens returns the qualifying words of a title: case-folded, longer than three runes,
// stop words removed.
func Tokens(title string) map[string]struct{} {
	words := strings.FieldsFunc(strings.ToLower(title), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	tokens := make(map[string]struct{}, len(words))
	for _, w := range words {
		if utf8.RuneCountInString(w) < minTokenRunes {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		tokens[w] = struct{}{}
	}
	return tokens
}

// Duplicate reports whether two titles describe the same story.
func Duplicate(a, b string) bool {
	return duplicateTokens(normalize(a), Tokens(a), normalize(b), Tokens(b))
}

func duplicateTokens(normA string, tokA map[string]struct{}, normB string, tokB map[string]struct{}) bool {
	if normA == normB {
		return true
	}
	if len(tokA) == 0 || len(tokB) == 0 {
		return false
	}

	small, large := tokA, tokB
	if len(small) > len(large) {
		small, large = large, small
	}

	shared := 0
	for w := range small {
		if _, ok := large[w]; ok {
			shared++
		}
	}
	return float64(shared)/float64(len(small)) > OverlapThreshold
}

func normalize(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}

type accepted struct {
	norm   string
	tokens map[string]struct{}
}

// Filter accepts titles left to right, rejecting any title that duplicates one
// accepted earlier. The zero value is ready to use.
type Filter struct {
	kept []accepted
}

// Add reports whether title is new, and remembers it if so.
func (f *Filter) Add(title string) bool {
	norm, tokens := normalize(title), Tokens(title)
	for _, k := range f.kept {
		if duplicateTokens(k.norm, k.tokens, norm, tokens) {
			return false
		}
	}
	f.kept = append(f.kept, accepted{norm: norm, tokens: tokens})
	return true
}

// Len returns how many titles were accepted.
func (f *Filter) Len() int {
	return len(f.kept)
}

// Dedupe drops near-duplicates, keeping the first occurrence and the input order.
func Dedupe(items []domain.CandidateItem) []domain.CandidateItem {
	var f Filter
	out := make([]domain.CandidateItem, 0, len(items))
	for _, item := range items {
		if f.Add(item.Title) {
			out = append(out, item)
		}
	}
	return out
}
