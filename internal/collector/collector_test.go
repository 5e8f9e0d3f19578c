package collector

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsdigest/internal/feed"
	"newsdigest/internal/scraper"
	"newsdigest/internal/storage"
)

type fakeReader struct {
	feeds map[string][]feed.Entry
	fail  map[string]error
}

func (f fakeReader) Read(_ context.Context, url string) ([]feed.Entry, error) {
	if err := f.fail[url]; err != nil {
		return nil, err
	}
	return f.feeds[url], nil
}

type fakeExtractor struct {
	articles map[string]scraper.Article
	calls    []string
}

func (f *fakeExtractor) Extract(_ context.Context, link string) (scraper.Article, error) {
	f.calls = append(f.calls, link)
	article, ok := f.articles[link]
	if !ok {
		return scraper.Article{}, errors.New("connection reset")
	}
	return article, nil
}

// recordingLedger counts calls and can simulate an unavailable store.
type recordingLedger struct {
	mu       sync.Mutex
	inner    *storage.Ledger
	marked   []string
	seenFail bool
}

func newRecordingLedger() *recordingLedger {
	return &recordingLedger{inner: storage.NewLedger(storage.NewMemoryStore())}
}

func (r *recordingLedger) Seen(ctx context.Context, link string) (bool, error) {
	if r.seenFail {
		return false, storage.ErrStoreUnavailable
	}
	return r.inner.Seen(ctx, link)
}

func (r *recordingLedger) MarkSeen(ctx context.Context, link string) error {
	r.mu.Lock()
	r.marked = append(r.marked, link)
	r.mu.Unlock()
	return r.inner.MarkSeen(ctx, link)
}

func quietLogger() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func body(topic string) string {
	return "Testo completo dell'articolo su " + topic + ", con abbastanza dettagli da superare la soglia minima di contenuto."
}

func entry(link, title string) feed.Entry {
	return feed.Entry{Link: link, Title: title}
}

func newCollector(reader feed.Reader, extractor scraper.Extractor, links storage.LinkLedger, sources ...string) *Collector {
	return New(Deps{
		Sources:   sources,
		Reader:    reader,
		Extractor: extractor,
		Links:     links,
		Logger:    quietLogger(),
	})
}

func TestCollect_ConsumeModeMarksAcceptedLinks(t *testing.T) {
	reader := fakeReader{feeds: map[string][]feed.Entry{
		"ansa": {
			entry("https://ansa.it/1", "Governo approva manovra"),
			entry("https://ansa.it/2", "Juventus vince il derby"),
			entry("https://ansa.it/3", "Allerta meteo in Liguria"),
		},
	}}
	extractor := &fakeExtractor{articles: map[string]scraper.Article{
		"https://ansa.it/1": {Text: body("manovra"), Image: "https://ansa.it/1.jpg"},
		"https://ansa.it/2": {Text: body("derby")},
		"https://ansa.it/3": {Text: body("meteo")},
	}}
	links := newRecordingLedger()
	c := newCollector(reader, extractor, links, "ansa")
	ctx := context.Background()

	items := c.Collect(ctx, Options{PerSource: 5, MarkPosted: true})
	require.Len(t, items, 3)
	assert.Equal(t, "Governo approva manovra", items[0].Title)
	assert.Equal(t, "https://ansa.it/1.jpg", items[0].Image)
	assert.Equal(t, "ansa", items[0].Source)
	assert.Equal(t, []string{"https://ansa.it/1", "https://ansa.it/2", "https://ansa.it/3"}, links.marked)

	again := c.Collect(ctx, Options{PerSource: 5, MarkPosted: true})
	assert.Empty(t, again, "consumed links must not be collected twice")
}

func TestCollect_PeekModeLeavesLedgerUntouched(t *testing.T) {
	reader := fakeReader{feeds: map[string][]feed.Entry{
		"ilpost": {entry("https://ilpost.it/a", "Sciopero dei treni venerdì")},
	}}
	extractor := &fakeExtractor{articles: map[string]scraper.Article{
		"https://ilpost.it/a": {Text: body("sciopero")},
	}}
	links := newRecordingLedger()
	c := newCollector(reader, extractor, links, "ilpost")

	first := c.Collect(context.Background(), Options{PerSource: 3})
	second := c.Collect(context.Background(), Options{PerSource: 3})

	assert.Len(t, first, 1)
	assert.Len(t, second, 1)
	assert.Empty(t, links.marked)
}

func TestCollect_PeekModeResurfacesConsumedLinks(t *testing.T) {
	reader := fakeReader{feeds: map[string][]feed.Entry{
		"ansa": {
			entry("https://ansa.it/1", "Governo approva manovra"),
			entry("https://ansa.it/2", "Juventus vince il derby"),
		},
	}}
	extractor := &fakeExtractor{articles: map[string]scraper.Article{
		"https://ansa.it/1": {Text: body("manovra")},
		"https://ansa.it/2": {Text: body("derby")},
	}}
	links := newRecordingLedger()
	c := newCollector(reader, extractor, links, "ansa")
	ctx := context.Background()

	consumed := c.Collect(ctx, Options{PerSource: 5, MarkPosted: true})
	require.Len(t, consumed, 2)

	peeked := c.Collect(ctx, Options{PerSource: 5})
	require.Len(t, peeked, 2)
	assert.Equal(t, "https://ansa.it/1", peeked[0].Link)
	assert.Equal(t, "https://ansa.it/2", peeked[1].Link)
	assert.Len(t, links.marked, 2, "peek adds no marks")
}

func TestCollect_IsolatesSourceFailures(t *testing.T) {
	reader := fakeReader{
		feeds: map[string][]feed.Entry{
			"repubblica": {entry("https://repubblica.it/x", "Borsa di Milano in rialzo")},
		},
		fail: map[string]error{"ansa": errors.New("dns failure")},
	}
	extractor := &fakeExtractor{articles: map[string]scraper.Article{
		"https://repubblica.it/x": {Text: body("borsa")},
	}}
	c := newCollector(reader, extractor, newRecordingLedger(), "ansa", "repubblica")

	items := c.Collect(context.Background(), Options{PerSource: 5})

	require.Len(t, items, 1)
	assert.Equal(t, "https://repubblica.it/x", items[0].Link)
}

func TestCollect_FallsBackToFeedSummary(t *testing.T) {
	longSummary := "<p>" + strings.Repeat("Il consiglio dei ministri ha approvato la manovra. ", 20) + "</p>"
	reader := fakeReader{feeds: map[string][]feed.Entry{
		"ansa": {
			{Link: "https://ansa.it/1", Title: "Governo approva manovra", Summary: longSummary, Image: "https://ansa.it/feed.jpg"},
			{Link: "https://ansa.it/2", Title: "Juventus vince il derby", Content: "<div>Partita decisa nel finale da un gol di testa al novantesimo minuto.</div>"},
		},
	}}
	extractor := &fakeExtractor{articles: map[string]scraper.Article{
		"https://ansa.it/2": {Text: "troppo corto"},
	}}
	c := newCollector(reader, extractor, newRecordingLedger(), "ansa")

	items := c.Collect(context.Background(), Options{PerSource: 5})
	require.Len(t, items, 2)

	assert.NotContains(t, items[0].Content, "<p>")
	assert.LessOrEqual(t, len([]rune(items[0].Content)), DefaultLimits.FallbackChars)
	assert.True(t, strings.HasSuffix(items[0].Content, "…"))
	assert.Equal(t, "https://ansa.it/feed.jpg", items[0].Image)

	assert.Equal(t, "Partita decisa nel finale da un gol di testa al novantesimo minuto.", items[1].Content)
}

func TestCollect_DiscardsUnviableEntries(t *testing.T) {
	reader := fakeReader{feeds: map[string][]feed.Entry{
		"ansa": {
			{Link: "https://ansa.it/short", Title: "Breve", Summary: "Solo poche parole."},
			{Link: "https://ansa.it/untitled", Summary: body("nulla")},
			{Title: "Senza link", Summary: body("link")},
		},
	}}
	c := newCollector(reader, &fakeExtractor{}, newRecordingLedger(), "ansa")

	items := c.Collect(context.Background(), Options{PerSource: 5, MarkPosted: true})

	assert.Empty(t, items)
}

func TestCollect_PrefersExtractedTitle(t *testing.T) {
	reader := fakeReader{feeds: map[string][]feed.Entry{
		"ansa": {
			entry("https://ansa.it/1", "ULTIM'ORA: scossa al sud"),
			entry("https://ansa.it/2", "Allerta meteo in Liguria"),
		},
	}}
	extractor := &fakeExtractor{articles: map[string]scraper.Article{
		"https://ansa.it/1": {Title: "Terremoto in Calabria", Text: body("terremoto")},
		"https://ansa.it/2": {Text: body("meteo")},
	}}
	c := newCollector(reader, extractor, newRecordingLedger(), "ansa")

	items := c.Collect(context.Background(), Options{PerSource: 5})

	require.Len(t, items, 2)
	assert.Equal(t, "Terremoto in Calabria", items[0].Title)
	assert.Equal(t, "Allerta meteo in Liguria", items[1].Title, "feed title when extraction has none")
}

func TestCollect_UsesExtractedTitleWhenFeedHasNone(t *testing.T) {
	reader := fakeReader{feeds: map[string][]feed.Entry{
		"ansa": {{Link: "https://ansa.it/1"}},
	}}
	extractor := &fakeExtractor{articles: map[string]scraper.Article{
		"https://ansa.it/1": {Title: "Terremoto in Calabria", Text: body("terremoto")},
	}}
	c := newCollector(reader, extractor, newRecordingLedger(), "ansa")

	items := c.Collect(context.Background(), Options{PerSource: 5})

	require.Len(t, items, 1)
	assert.Equal(t, "Terremoto in Calabria", items[0].Title)
}

func TestCollect_AppliesCaps(t *testing.T) {
	var entries []feed.Entry
	titles := []string{"Governo approva manovra", "Juventus vince il derby", "Allerta meteo in Liguria", "Borsa di Milano in rialzo", "Sciopero dei treni venerdì", "Terremoto in Calabria"}
	articles := map[string]scraper.Article{}
	for i, title := range titles {
		link := "https://ansa.it/" + string(rune('a'+i))
		entries = append(entries, entry(link, title))
		articles[link] = scraper.Article{Text: body(title)}
	}
	reader := fakeReader{feeds: map[string][]feed.Entry{"ansa": entries, "ilpost": entries[:2]}}
	extractor := &fakeExtractor{articles: articles}
	links := newRecordingLedger()
	c := newCollector(reader, extractor, links, "ansa", "ilpost")

	items := c.Collect(context.Background(), Options{PerSource: 4, MaxItems: 3, MarkPosted: true})

	require.Len(t, items, 3)
	assert.Equal(t, titles[:3], []string{items[0].Title, items[1].Title, items[2].Title})
	assert.Len(t, links.marked, 3, "only accepted items are consumed")
	assert.Len(t, extractor.calls, 3)
}

func TestCollect_DropsNearDuplicatesAcrossSources(t *testing.T) {
	reader := fakeReader{feeds: map[string][]feed.Entry{
		"ansa":   {entry("https://ansa.it/m", "Governo approva nuova manovra economica")},
		"ilpost": {entry("https://ilpost.it/m", "Governo, approvata la manovra economica"), entry("https://ilpost.it/j", "Juventus vince il derby")},
	}}
	extractor := &fakeExtractor{articles: map[string]scraper.Article{
		"https://ansa.it/m":   {Text: body("manovra")},
		"https://ilpost.it/m": {Text: body("manovra")},
		"https://ilpost.it/j": {Text: body("derby")},
	}}
	links := newRecordingLedger()
	c := newCollector(reader, extractor, links, "ansa", "ilpost")

	items := c.Collect(context.Background(), Options{PerSource: 5, MarkPosted: true})

	require.Len(t, items, 2)
	assert.Equal(t, "https://ansa.it/m", items[0].Link)
	assert.Equal(t, "https://ilpost.it/j", items[1].Link)
	assert.Contains(t, links.marked, "https://ilpost.it/m", "a merged duplicate is still consumed")
}

func TestCollect_TreatsLedgerFailureAsUnseen(t *testing.T) {
	reader := fakeReader{feeds: map[string][]feed.Entry{
		"ansa": {entry("https://ansa.it/1", "Governo approva manovra")},
	}}
	extractor := &fakeExtractor{articles: map[string]scraper.Article{
		"https://ansa.it/1": {Text: body("manovra")},
	}}
	links := newRecordingLedger()
	links.seenFail = true
	c := newCollector(reader, extractor, links, "ansa")

	items := c.Collect(context.Background(), Options{PerSource: 5, MarkPosted: true})

	assert.Len(t, items, 1)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "città", truncate("città", 5))
	assert.Equal(t, "cit…", truncate("città", 4))
	assert.Equal(t, "abc", truncate("abc", 0))
}
