package digest

import (
	"fmt"
	"strings"

	"newsdigest/internal/domain"
	"newsdigest/internal/summarize"
)

// Telegram HTML only needs these three escaped.
var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// Escape makes generated text safe for HTML parse mode.
func Escape(s string) string {
	return htmlEscaper.Replace(s)
}

// FormatFlash renders up to five entries as one HTML message, in the given order.
func FormatFlash(entries []domain.DigestEntry) string {
	if len(entries) > summarize.FlashMaxEntries {
		entries = entries[:summarize.FlashMaxEntries]
	}

	var b strings.Builder
	b.WriteString("<b>⚡ FLASH NEWS</b>\n")
	for i, e := range entries {
		fmt.Fprintf(&b, "\n<b>%d. %s</b>\n%s\n🔗 %s\n", i+1, Escape(e.Title), Escape(e.Summary), Escape(e.Link))
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatDeepDive renders the deep-dive body verbatim under a bold headline.
func FormatDeepDive(d domain.DeepDive) string {
	body := strings.TrimSpace(d.Body)
	title := strings.TrimSpace(d.Title)
	if title != "" {
		if rest, ok := strings.CutPrefix(body, title); ok {
			body = strings.TrimSpace(rest)
		}
	}

	var b strings.Builder
	b.WriteString("<b>📊 APPROFONDIMENTO PRO</b>\n")
	if title != "" {
		fmt.Fprintf(&b, "\n<b>%s</b>\n", Escape(title))
	}
	if body != "" {
		fmt.Fprintf(&b, "\n%s", Escape(body))
	}
	return strings.TrimRight(b.String(), "\n")
}
