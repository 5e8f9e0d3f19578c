package domain

import "time"

// CandidateItem is a harvested news item before deduplication.
// Link is the identity key. Items are built once by the collector and never mutated.
type CandidateItem struct {
	// Title is the headline, never empty.
	Title string `json:"title"`

	// Link is the source URL of the article.
	Link string `json:"link"`

	// Content is the best available text: full extraction, else feed summary, else description.
	Content string `json:"content"`

	// Image is an optional lead image URL.
	Image string `json:"image,omitempty"`

	// Source is the feed URL the item was read from.
	Source string `json:"source"`
}

// DigestEntry is one block of a FLASH digest, ready for delivery.
type DigestEntry struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
	Link    string `json:"link"`
}

// DeepDive is the free-form body of a PRO digest, delivered verbatim.
type DeepDive struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Message is what the delivery channel receives.
type Message struct {
	Text  string
	Image string
	HTML  bool
}

// LedgerRecord is the persisted idempotency fact for a link or a window.
type LedgerRecord struct {
	Key         string    `json:"key"`
	ProcessedAt time.Time `json:"processed_at"`
}
