package feed

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/sirupsen/logrus"
)

// Entry is a raw feed item.
type Entry struct {
	Link    string
	Title   string
	Summary string // RSS description / Atom summary
	Content string // content:encoded / Atom content
	Image   string
}

// Reader returns the entries of a feed in feed order.
type Reader interface {
	Read(ctx context.Context, url string) ([]Entry, error)
}

// GofeedReader parses RSS and Atom feeds.
type GofeedReader struct {
	parser *gofeed.Parser
	log    logrus.FieldLogger
}

var _ Reader = (*GofeedReader)(nil)

// NewGofeedReader builds a reader whose requests time out after timeout.
func NewGofeedReader(timeout time.Duration, logger logrus.FieldLogger) *GofeedReader {
	parser := gofeed.NewParser()
	parser.Client = &http.Client{Timeout: timeout}
	parser.UserAgent = "newsdigest/1.0"
	return &GofeedReader{parser: parser, log: logger.WithField("component", "feed")}
}

// Read fetches and parses url.
func (r *GofeedReader) Read(ctx context.Context, url string) ([]Entry, error) {
	parsed, err := r.parser.ParseURLWithContext(url, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", url, err)
	}

	entries := make([]Entry, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if item == nil {
			continue
		}
		entries = append(entries, Entry{
			Link:    strings.TrimSpace(item.Link),
			Title:   strings.TrimSpace(item.Title),
			Summary: item.Description,
			Content: item.Content,
			Image:   pickImage(item),
		})
	}

	r.log.WithFields(logrus.Fields{"url": url, "entries": len(entries)}).Debug("Feed parsed")
	return entries, nil
}

func pickImage(item *gofeed.Item) string {
	if item.Image != nil && item.Image.URL != "" {
		return item.Image.URL
	}
	for _, enc := range item.Enclosures {
		if enc != nil && strings.HasPrefix(enc.Type, "image/") && enc.URL != "" {
			return enc.URL
		}
	}
	return ""
}
