package modem

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeGSMText prepares text for AT+CSCS="GSM": accents are stripped
// (é -> e), anything still outside printable ASCII becomes '?', and the
// Ctrl+Z / ESC bytes that would end or abort the message are removed. Line
// breaks are kept.
func NormalizeGSMText(text string) string {
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(stripMarks, text)
	if err != nil {
		folded = text
	}

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		switch {
		case r == endOfMessage || r == escape:
			continue
		case r == '\n' || r == '\r':
			b.WriteRune(r)
		case r < 0x20 || r > 0x7E:
			b.WriteByte('?')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
