package collector

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"newsdigest/internal/dedup"
	"newsdigest/internal/domain"
	"newsdigest/internal/feed"
	"newsdigest/internal/scraper"
	"newsdigest/internal/storage"
)

// Options select the calling mode and the caps of one collection.
type Options struct {
	// PerSource is how many of the most recent entries are inspected per feed.
	PerSource int
	// MaxItems caps the distinct items returned across all feeds. Zero means no cap.
	MaxItems int
	// MarkPosted skips seen links and marks accepted links as seen (consume mode).
	// When false the collection is a peek: it ignores the link ledger entirely.
	MarkPosted bool
}

// Limits bound the text carried by each candidate.
type Limits struct {
	// MinContent is the exclusive lower bound on content length, in runes.
	MinContent int
	// MaxContent truncates content, in runes.
	MaxContent int
	// FallbackChars truncates the feed-summary fallback, in runes.
	FallbackChars int
}

// DefaultLimits mirror the thresholds of the original bot.
var DefaultLimits = Limits{MinContent: 50, MaxContent: 2000, FallbackChars: 300}

// Deps wires the collaborators of the collector.
type Deps struct {
	Sources   []string
	Reader    feed.Reader
	Extractor scraper.Extractor
	Links     storage.LinkLedger
	// Limiter paces extraction requests. Nil means unlimited.
	Limiter *rate.Limiter
	Limits  Limits
	Logger  logrus.FieldLogger
}

// Collector turns feed entries into deduplicated candidate items.
type Collector struct {
	sources   []string
	reader    feed.Reader
	extractor scraper.Extractor
	links     storage.LinkLedger
	limiter   *rate.Limiter
	limits    Limits
	log       logrus.FieldLogger
}

// New builds a collector. A nil extractor disables extraction.
func New(deps Deps) *Collector {
	extractor := deps.Extractor
	if extractor == nil {
		extractor = scraper.NopExtractor{}
	}
	limits := deps.Limits
	if limits == (Limits{}) {
		limits = DefaultLimits
	}
	return &Collector{
		sources:   deps.Sources,
		reader:    deps.Reader,
		extractor: extractor,
		links:     deps.Links,
		limiter:   deps.Limiter,
		limits:    limits,
		log:       deps.Logger.WithField("component", "collector"),
	}
}

// Collect walks the sources in order and returns viable, deduplicated items in
// source-then-feed order. Consume mode also skips links already seen. Failures of a single source or item are logged and skipped.
func (c *Collector) Collect(ctx context.Context, opts Options) []domain.CandidateItem {
	log := c.log.WithFields(logrus.Fields{"consume": opts.MarkPosted, "per_source": opts.PerSource})

	var (
		items   []domain.CandidateItem
		titles  dedup.Filter
		visited = map[string]struct{}{}
	)

	for _, source := range c.sources {
		if ctx.Err() != nil {
			log.WithError(ctx.Err()).Warn("Collection interrupted")
			break
		}

		srcLog := log.WithField("source", source)
		entries, err := c.reader.Read(ctx, source)
		if err != nil {
			srcLog.WithError(err).Warn("Feed fetch failed, skipping source")
			continue
		}
		if opts.PerSource > 0 && len(entries) > opts.PerSource {
			entries = entries[:opts.PerSource]
		}
		srcLog.WithField("entries", len(entries)).Debug("Inspecting feed entries")

		for _, entry := range entries {
			if opts.MaxItems > 0 && titles.Len() >= opts.MaxItems {
				log.WithField("items", len(items)).Debug("Collection cap reached")
				return items
			}
			if entry.Link == "" {
				continue
			}
			if _, dup := visited[entry.Link]; dup {
				continue
			}
			visited[entry.Link] = struct{}{}

			// Peek mode may re-surface links already delivered by earlier windows.
			if opts.MarkPosted && c.seen(ctx, srcLog, entry.Link) {
				continue
			}

			item, ok := c.build(ctx, srcLog, source, entry)
			if !ok {
				continue
			}

			if opts.MarkPosted {
				if err := c.links.MarkSeen(ctx, item.Link); err != nil {
					srcLog.WithError(err).WithField("url", item.Link).Error("Failed to mark link as seen")
				}
			}

			if !titles.Add(item.Title) {
				srcLog.WithField("title", item.Title).Debug("Near-duplicate dropped")
				continue
			}
			items = append(items, item)
		}
	}

	log.WithField("items", len(items)).Info("Collection finished")
	return items
}

// seen treats ledger failures as unseen so the item is conservatively re-processed.
func (c *Collector) seen(ctx context.Context, log logrus.FieldLogger, link string) bool {
	seen, err := c.links.Seen(ctx, link)
	if err != nil {
		log.WithError(err).WithField("url", link).Warn("Link ledger unavailable, treating link as unseen")
		return false
	}
	return seen
}

func (c *Collector) build(ctx context.Context, log logrus.FieldLogger, source string, entry feed.Entry) (domain.CandidateItem, bool) {
	ilog := log.WithField("url", entry.Link)

	article := c.extract(ctx, ilog, entry.Link)

	title := article.Title
	if title == "" {
		title = entry.Title
	}
	title = scraper.StripMarkup(title)
	if title == "" {
		ilog.Debug("Entry without title discarded")
		return domain.CandidateItem{}, false
	}

	content := article.Text
	if utf8.RuneCountInString(content) <= c.limits.MinContent {
		content = c.fallback(entry)
	}
	content = truncate(content, c.limits.MaxContent)
	if utf8.RuneCountInString(content) <= c.limits.MinContent {
		ilog.Debug("Entry with insufficient content discarded")
		return domain.CandidateItem{}, false
	}

	image := article.Image
	if image == "" {
		image = entry.Image
	}

	return domain.CandidateItem{
		Title:   title,
		Link:    entry.Link,
		Content: content,
		Image:   image,
		Source:  source,
	}, true
}

func (c *Collector) extract(ctx context.Context, log logrus.FieldLogger, link string) scraper.Article {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			log.WithError(err).Warn("Extraction skipped")
			return scraper.Article{}
		}
	}
	article, err := c.extractor.Extract(ctx, link)
	if err != nil {
		log.WithError(err).Info("Extraction failed, falling back to feed text")
		return scraper.Article{}
	}
	return article
}

func (c *Collector) fallback(entry feed.Entry) string {
	for _, raw := range []string{entry.Summary, entry.Content} {
		if text := scraper.StripMarkup(raw); text != "" {
			return truncate(text, c.limits.FallbackChars)
		}
	}
	return ""
}

// truncate cuts s to at most n runes, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:n-1])) + "…"
}
