package dedup

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"newsdigest/internal/domain"
)

func item(title string) domain.CandidateItem {
	return domain.CandidateItem{Title: title, Link: "https://example.com/" + title}
}

func TestDuplicate(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want bool
	}{
		{"high overlap", "Governo approva nuova manovra economica", "Governo, approvata la manovra economica", true},
		{"no overlap", "Governo approva manovra", "Juventus vince il derby", false},
		{"exact after folding", "  Allerta meteo in Liguria ", "allerta METEO in liguria", true},
		{"short generic titles only match exactly", "Il sì", "Il no", false},
		{"identical short titles", "Oggi", "oggi", true},
		{"stop words do not count", "Mercati sono sotto pressione della crisi", "Elezioni sono sotto pressione della piazza", false},
		{"exactly at threshold is not a duplicate", "alpha bravo charlie delta echo", "alpha bravo charlie foxtrot golf", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Duplicate(tt.a, tt.b))
			assert.Equal(t, tt.want, Duplicate(tt.b, tt.a), "Duplicate must be symmetric")
		})
	}
}

func TestTokens(t *testing.T) {
	tokens := Tokens("Governo, approvata la manovra economica")

	assert.Len(t, tokens, 4)
	assert.Contains(t, tokens, "governo")
	assert.Contains(t, tokens, "approvata")
	assert.NotContains(t, tokens, "la")

	// Only articles, prepositions, conjunctions and the copula are stop words.
	assert.Len(t, Tokens("Anche questa volta sono della partita"), 4)
}

func TestDedupeKeepsFirstAndOrder(t *testing.T) {
	a := item("Governo approva nuova manovra economica")
	b := item("Governo, approvata la manovra economica")
	c := item("Juventus vince il derby")

	got := Dedupe([]domain.CandidateItem{a, b, c})

	assert.Equal(t, []domain.CandidateItem{a, c}, got)
}

func TestDedupeComparesAgainstEveryAccepted(t *testing.T) {
	a := item("Juventus vince il derby")
	b := item("Governo approva nuova manovra economica")
	c := item("Manovra economica, governo approva il testo")

	got := Dedupe([]domain.CandidateItem{a, b, c})

	assert.Equal(t, []domain.CandidateItem{a, b}, got)
}

func TestFilter(t *testing.T) {
	var f Filter

	assert.True(t, f.Add("Incendio a Roma, evacuati due palazzi"))
	assert.False(t, f.Add("Roma, incendio: evacuati palazzi"))
	assert.True(t, f.Add("Borsa di Milano in rialzo"))
	assert.Equal(t, 2, f.Len())
}
