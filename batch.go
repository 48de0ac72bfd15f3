package wkp

import (
	"strings"

	"github.com/mgaitan/wkp/wikitext"
)

// DefaultUnitChars bounds the size of one translation request. Public MT
// endpoints reject or truncate bodies well above this.
const DefaultUnitChars = 4000

// SplitUnits partitions the chunks of a protected document into translation
// units of at most budget characters. Units break only between chunks, so a
// placeholder token is never cut; a prose chunk longer than the budget is
// split at whitespace. An opaque chunk longer than the budget becomes a
// unit of its own — it travels as a single token either way.
func SplitUnits(chunks []wikitext.Chunk, budget int) []Unit {
	if budget <= 0 {
		budget = DefaultUnitChars
	}

	var units []Unit
	var cur strings.Builder

	flush := func() {
		if cur.Len() > 0 {
			units = append(units, Unit{Index: len(units), Text: cur.String()})
			cur.Reset()
		}
	}

	for _, c := range chunks {
		if c.Opaque {
			if cur.Len() > 0 && cur.Len()+len(c.Text) > budget {
				flush()
			}
			cur.WriteString(c.Text)
			continue
		}
		text := c.Text
		for text != "" {
			room := budget - cur.Len()
			if len(text) <= room {
				cur.WriteString(text)
				break
			}
			if room > 0 {
				cut := splitPoint(text, room)
				if cut > 0 {
					cur.WriteString(text[:cut])
					text = text[cut:]
				}
			}
			flush()
			// A prose run that cannot be split at whitespace within the
			// budget goes out oversized rather than mid-word.
			if len(text) > budget && splitPoint(text, budget) == 0 {
				cur.WriteString(text)
				break
			}
		}
	}
	flush()
	return units
}

// splitPoint returns the largest cut <= limit that falls just after a
// whitespace byte, or 0 when there is none.
func splitPoint(text string, limit int) int {
	if limit >= len(text) {
		return len(text)
	}
	for i := limit; i > 0; i-- {
		switch text[i-1] {
		case '\n', ' ', '\t':
			return i
		}
	}
	return 0
}

// JoinUnits concatenates unit texts in index order.
func JoinUnits(units []Unit) string {
	var b strings.Builder
	for _, u := range units {
		b.WriteString(u.Text)
	}
	return b.String()
}
