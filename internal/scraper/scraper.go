package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

// ErrNoContent means the page was fetched but held no readable article.
var ErrNoContent = errors.New("no readable content")

// Article is what an extractor could recover from a page. Any field may be empty.
type Article struct {
	Title string
	Text  string
	Image string
}

// Extractor fetches a link and returns its article text.
type Extractor interface {
	Extract(ctx context.Context, link string) (Article, error)
}

// NopExtractor never extracts anything, so the collector always falls back to feed text.
type NopExtractor struct{}

// Extract always returns ErrNoContent.
func (NopExtractor) Extract(context.Context, string) (Article, error) {
	return Article{}, ErrNoContent
}

// parseArticle runs readability over an HTML document and fills the lead image
// from og:image when readability finds none.
func parseArticle(html string, link string) (Article, error) {
	pageURL, err := url.Parse(link)
	if err != nil {
		return Article{}, fmt.Errorf("parse url %s: %w", link, err)
	}

	parsed, err := readability.FromReader(strings.NewReader(html), pageURL)
	if err != nil {
		return Article{}, fmt.Errorf("readability %s: %w", link, err)
	}

	article := Article{
		Title: strings.TrimSpace(parsed.Title),
		Text:  CollapseSpace(parsed.TextContent),
		Image: strings.TrimSpace(parsed.Image),
	}
	if article.Image == "" {
		article.Image = metaImage(html)
	}
	if article.Title == "" && article.Text == "" {
		return article, ErrNoContent
	}
	return article, nil
}

func metaImage(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	for _, selector := range []string{`meta[property="og:image"]`, `meta[name="twitter:image"]`} {
		if content, ok := doc.Find(selector).First().Attr("content"); ok && strings.HasPrefix(content, "http") {
			return strings.TrimSpace(content)
		}
	}
	return ""
}

// StripMarkup returns the visible text of an HTML fragment with whitespace collapsed.
func StripMarkup(fragment string) string {
	if !strings.Contains(fragment, "<") {
		return CollapseSpace(fragment)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return CollapseSpace(fragment)
	}
	return CollapseSpace(doc.Text())
}

// CollapseSpace joins all whitespace runs into single spaces.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func readAllString(r io.Reader, limit int64) (string, error) {
	raw, err := io.ReadAll(io.LimitReader(r, limit))
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
