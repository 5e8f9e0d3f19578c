package summarize

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"newsdigest/internal/domain"
)

// Tier is a quality/cost level of the text generator.
type Tier string

const (
	TierFast Tier = "fast"
	TierDeep Tier = "deep"
)

// FlashMaxEntries caps both the fast-tier input and its parsed output.
const FlashMaxEntries = 5

var (
	// ErrSummarization covers transport errors and empty responses of either tier.
	ErrSummarization = errors.New("summarization failed")
	// ErrNoBlocks means the fast tier answered but no block matched the grammar.
	ErrNoBlocks = fmt.Errorf("%w: no parsable blocks", ErrSummarization)
)

// Generator produces text for a prompt at a given tier.
type Generator interface {
	Generate(ctx context.Context, tier Tier, prompt string) (string, error)
}

// Limits bound the prompt size of each tier.
type Limits struct {
	FastChars int
	DeepItems int
	DeepChars int
}

// DefaultLimits keep the fast prompt short and give the deep tier more text per item.
var DefaultLimits = Limits{FastChars: 600, DeepItems: 12, DeepChars: 1500}

// Gateway builds tier prompts and parses tier responses. It never panics or
// returns partial results: every failure is an error wrapping ErrSummarization.
type Gateway struct {
	gen    Generator
	limits Limits
	log    logrus.FieldLogger
}

// NewGateway wraps gen.
func NewGateway(gen Generator, limits Limits, logger logrus.FieldLogger) *Gateway {
	if limits == (Limits{}) {
		limits = DefaultLimits
	}
	return &Gateway{gen: gen, limits: limits, log: logger.WithField("component", "summarizer")}
}

// Flash asks the fast tier for up to five title/summary/link blocks in relevance order.
func (g *Gateway) Flash(ctx context.Context, items []domain.CandidateItem) ([]domain.DigestEntry, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: no items", ErrSummarization)
	}
	if len(items) > FlashMaxEntries {
		items = items[:FlashMaxEntries]
	}

	raw, err := g.generate(ctx, TierFast, flashPrompt(items, g.limits.FastChars))
	if err != nil {
		return nil, err
	}

	entries := ParseFlash(raw)
	if len(entries) == 0 {
		g.log.WithField("response_chars", len(raw)).Warn("Fast tier response had no valid blocks")
		return nil, ErrNoBlocks
	}
	g.log.WithField("entries", len(entries)).Info("Fast tier summary parsed")
	return entries, nil
}

// DeepDive asks the deep tier for one rich analysis. Any non-empty answer is accepted verbatim.
func (g *Gateway) DeepDive(ctx context.Context, items []domain.CandidateItem) (domain.DeepDive, error) {
	if len(items) == 0 {
		return domain.DeepDive{}, fmt.Errorf("%w: no items", ErrSummarization)
	}
	if g.limits.DeepItems > 0 && len(items) > g.limits.DeepItems {
		items = items[:g.limits.DeepItems]
	}

	raw, err := g.generate(ctx, TierDeep, deepPrompt(items, g.limits.DeepChars))
	if err != nil {
		return domain.DeepDive{}, err
	}

	body := strings.TrimSpace(raw)
	title, _, _ := strings.Cut(body, "\n")
	return domain.DeepDive{Title: strings.TrimSpace(title), Body: body}, nil
}

func (g *Gateway) generate(ctx context.Context, tier Tier, prompt string) (text string, err error) {
	log := g.log.WithField("tier", tier)
	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("Generator panicked")
			text, err = "", fmt.Errorf("%w: generator panic: %v", ErrSummarization, r)
		}
	}()

	text, err = g.gen.Generate(ctx, tier, prompt)
	if err != nil {
		log.WithError(err).Error("Generator call failed")
		return "", fmt.Errorf("%w: %s tier: %w", ErrSummarization, tier, err)
	}
	if strings.TrimSpace(text) == "" {
		log.Warn("Generator returned an empty response")
		return "", fmt.Errorf("%w: %s tier: empty response", ErrSummarization, tier)
	}
	return text, nil
}

const flashInstructions = `Sei un giornalista italiano che cura un notiziario flash.
Dalle notizie seguenti scegli le più rilevanti (al massimo 5) e ordinale per importanza.
Per ciascuna scrivi un blocco esattamente in questo formato, senza altro testo:

### NOTIZIA
TITOLO: <titolo breve e chiaro>
RIASSUNTO: <2-3 frasi su una sola riga>
LINK: <link originale, copiato senza modifiche>

NOTIZIE:
`

const deepInstructions = `Sei un analista che scrive l'approfondimento serale di un canale di notizie italiano.
Leggi le notizie seguenti e scrivi in italiano:
- nella prima riga un titolo che colga il tema principale della giornata;
- da tre a cinque paragrafi di analisi che colleghino i fatti tra loro;
- una sezione finale "Punti chiave" con da tre a cinque punti elenco.
Usa testo semplice, senza markdown.

NOTIZIE:
`

func flashPrompt(items []domain.CandidateItem, maxChars int) string {
	var b strings.Builder
	b.WriteString(flashInstructions)
	for i, item := range items {
		fmt.Fprintf(&b, "\n[%d] Titolo: %s\nTesto: %s\nLink: %s\n", i+1, item.Title, prefix(item.Content, maxChars), item.Link)
	}
	return b.String()
}

func deepPrompt(items []domain.CandidateItem, maxChars int) string {
	var b strings.Builder
	b.WriteString(deepInstructions)
	for i, item := range items {
		fmt.Fprintf(&b, "\n[%d] Titolo: %s\nTesto: %s\n", i+1, item.Title, prefix(item.Content, maxChars))
	}
	return b.String()
}

func prefix(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

var (
	blockMarker  = regexp.MustCompile(`(?mi)^[ \t]*#{2,3}[ \t]*NOTIZIA\b.*$`)
	titleField   = regexp.MustCompile(`(?mi)^[ \t*]*TITOLO[ \t*]*:[ \t*]*(\S.*?)[ \t*]*$`)
	summaryField = regexp.MustCompile(`(?mi)^[ \t*]*RIASSUNTO[ \t*]*:[ \t*]*(\S.*?)[ \t*]*$`)
	linkField    = regexp.MustCompile(`(?mi)^[ \t*]*LINK[ \t*]*:[ \t*<]*(https?://[^\s>]+)`)
)

// ParseFlash splits a fast-tier response into blocks and keeps those carrying
// all three fields, in response order, at most FlashMaxEntries.
func ParseFlash(raw string) []domain.DigestEntry {
	blocks := blockMarker.Split(strings.ReplaceAll(raw, "\r\n", "\n"), -1)
	if len(blocks) > 0 {
		// text before the first marker is not a block
		blocks = blocks[1:]
	}

	entries := make([]domain.DigestEntry, 0, FlashMaxEntries)
	for _, block := range blocks {
		title := titleField.FindStringSubmatch(block)
		summary := summaryField.FindStringSubmatch(block)
		link := linkField.FindStringSubmatch(block)
		if title == nil || summary == nil || link == nil {
			continue
		}
		entries = append(entries, domain.DigestEntry{
			Title:   title[1],
			Summary: summary[1],
			Link:    link[1],
		})
		if len(entries) == FlashMaxEntries {
			break
		}
	}
	return entries
}
