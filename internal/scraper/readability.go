package scraper

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	maxPageBytes     = 4 << 20
)

// ReadabilityExtractor downloads a page over plain HTTP and extracts the article with readability.
type ReadabilityExtractor struct {
	client *http.Client
	log    logrus.FieldLogger
}

var _ Extractor = (*ReadabilityExtractor)(nil)

// NewReadabilityExtractor builds an extractor with the given per-request timeout.
func NewReadabilityExtractor(timeout time.Duration, logger logrus.FieldLogger) *ReadabilityExtractor {
	return &ReadabilityExtractor{
		client: &http.Client{Timeout: timeout},
		log:    logger.WithField("component", "extractor"),
	}
}

// Extract fetches link and returns title, text and lead image.
func (e *ReadabilityExtractor) Extract(ctx context.Context, link string) (Article, error) {
	log := e.log.WithField("url", link)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return Article{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", browserUserAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		return Article{}, fmt.Errorf("request article: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Article{}, fmt.Errorf("article returned %s", resp.Status)
	}

	html, err := readAllString(resp.Body, maxPageBytes)
	if err != nil {
		return Article{}, fmt.Errorf("read article: %w", err)
	}

	article, err := parseArticle(html, link)
	if err != nil {
		return article, err
	}
	log.WithField("chars", len(article.Text)).Debug("Article extracted")
	return article, nil
}
