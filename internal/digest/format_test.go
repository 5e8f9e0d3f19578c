package digest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"newsdigest/internal/domain"
)

func TestEscape(t *testing.T) {
	assert.Equal(t, "a &lt;b&gt; &amp; c", Escape("a <b> & c"))
	assert.Equal(t, `"citazione"`, Escape(`"citazione"`))
}

func TestFormatFlash(t *testing.T) {
	text := FormatFlash([]domain.DigestEntry{
		{Title: "Borse <giù>", Summary: "Vendite & paura.", Link: "https://example.com/a?x=1&y=2"},
		{Title: "Meteo", Summary: "Sole.", Link: "https://example.com/b"},
	})

	want := "<b>⚡ FLASH NEWS</b>\n" +
		"\n<b>1. Borse &lt;giù&gt;</b>\nVendite &amp; paura.\n🔗 https://example.com/a?x=1&amp;y=2\n" +
		"\n<b>2. Meteo</b>\nSole.\n🔗 https://example.com/b"
	assert.Equal(t, want, text)
}

func TestFormatFlash_CapsAtFive(t *testing.T) {
	text := FormatFlash(entries(7))
	assert.Equal(t, 5, strings.Count(text, "🔗"))
	assert.NotContains(t, text, "Titolo 6")
}

func TestFormatDeepDive(t *testing.T) {
	text := FormatDeepDive(domain.DeepDive{
		Title: "Una giornata <tesa>",
		Body:  "Una giornata <tesa>\n\nPrimo paragrafo.\n\nPunti chiave:\n- uno",
	})

	want := "<b>📊 APPROFONDIMENTO PRO</b>\n" +
		"\n<b>Una giornata &lt;tesa&gt;</b>\n" +
		"\nPrimo paragrafo.\n\nPunti chiave:\n- uno"
	assert.Equal(t, want, text)
}

func TestFormatDeepDive_BodyOnly(t *testing.T) {
	text := FormatDeepDive(domain.DeepDive{Body: "Solo testo."})
	assert.Equal(t, "<b>📊 APPROFONDIMENTO PRO</b>\n\nSolo testo.", text)
}
