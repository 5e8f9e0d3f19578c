package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/sirupsen/logrus"
)

// RodExtractor renders the page in a headless browser before running readability.
// It serves sites that build their article body with JavaScript.
type RodExtractor struct {
	log     logrus.FieldLogger
	timeout time.Duration
}

var _ Extractor = (*RodExtractor)(nil)

// NewRodExtractor creates a new rendering extractor.
func NewRodExtractor(timeout time.Duration, logger logrus.FieldLogger) *RodExtractor {
	return &RodExtractor{
		log:     logger.WithField("component", "extractor"),
		timeout: timeout,
	}
}

// Extract launches a browser for this link, waits for load and parses the rendered HTML.
func (s *RodExtractor) Extract(ctx context.Context, link string) (article Article, err error) {
	log := s.log.WithField("url", link)

	path, exists := launcher.LookPath()
	if !exists {
		return Article{}, errors.New("rod browser dependency not found")
	}
	l := launcher.New().Bin(path)
	controlURL, err := l.Launch()
	if err != nil {
		return Article{}, fmt.Errorf("failed to launch browser: %w", err)
	}
	defer l.Kill()

	browser := rod.New().ControlURL(controlURL)
	if err = browser.Connect(); err != nil {
		return Article{}, fmt.Errorf("failed to connect to browser: %w", err)
	}
	defer func() {
		if closeErr := browser.Close(); closeErr != nil {
			log.WithError(closeErr).Error("Error closing rod browser instance")
		}
	}()

	page, err := browser.Page(proto.TargetCreateTarget{URL: link})
	if err != nil {
		return Article{}, fmt.Errorf("failed to create page: %w", err)
	}
	defer func(p *rod.Page) {
		if closeErr := p.Close(); closeErr != nil {
			log.WithError(closeErr).Debug("Error closing rod page")
		}
	}(page)

	pageCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	page = page.Context(pageCtx)

	if err = page.WaitLoad(); err != nil {
		if errors.Is(pageCtx.Err(), context.DeadlineExceeded) {
			log.WithError(pageCtx.Err()).Warn("Rendering timed out")
			return Article{}, fmt.Errorf("rendering timed out for %s: %w", link, pageCtx.Err())
		}
		return Article{}, fmt.Errorf("failed waiting for page load: %w", err)
	}

	html, err := page.HTML()
	if err != nil {
		return Article{}, fmt.Errorf("failed to read rendered html: %w", err)
	}

	article, err = parseArticle(html, link)
	if err != nil {
		return article, err
	}
	log.WithField("chars", len(article.Text)).Debug("Rendered article extracted")
	return article, nil
}
