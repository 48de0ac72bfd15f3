package wikitext

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// markerPairs are candidate delimiters for placeholder tokens, tried in
// order. The characters are mathematical brackets that essentially never
// occur in article prose; the document is still checked before one is used.
var markerPairs = [][2]string{
	{"⟦", "⟧"}, // ⟦ ⟧
	{"⦃", "⦄"}, // ⦃ ⦄
	{"⧼", "⧽"}, // ⧼ ⧽
}

// TokenTable mints placeholder tokens for one document and maps them back
// to the original markup. A table is scoped to a single Protect call; it is
// never shared across documents, so token numbering can restart at zero.
type TokenTable struct {
	open    string
	close   string
	entries []string // token index -> original opaque chunk
}

// newTokenTable picks marker delimiters that cannot collide with doc. If a
// token's opening marker does not occur in the document, no full token can
// either.
func newTokenTable(doc string) *TokenTable {
	for _, pair := range markerPairs {
		if !strings.Contains(doc, pair[0]) {
			return &TokenTable{open: pair[0], close: pair[1]}
		}
	}
	// Document contains every candidate marker. Salt the opening marker
	// until the prefix is absent.
	for salt := 0; ; salt++ {
		open := fmt.Sprintf("%s%d:", markerPairs[0][0], salt)
		if !strings.Contains(doc, open) {
			return &TokenTable{open: open, close: markerPairs[0][1]}
		}
	}
}

// mint registers an opaque chunk and returns its token.
func (tt *TokenTable) mint(chunk string) string {
	tok := tt.open + strconv.Itoa(len(tt.entries)) + tt.close
	tt.entries = append(tt.entries, chunk)
	return tok
}

// Len returns the number of minted tokens.
func (tt *TokenTable) Len() int {
	return len(tt.entries)
}

// pattern returns a regexp matching exactly the token shape of this table.
func (tt *TokenTable) pattern() *regexp.Regexp {
	return regexp.MustCompile(regexp.QuoteMeta(tt.open) + `([0-9]+)` + regexp.QuoteMeta(tt.close))
}

// Chunk is one run of a protected document: either inline translatable
// prose or an opaque placeholder token. Tokens are atomic; batching must
// never split one.
type Chunk struct {
	Text   string
	Opaque bool
}

// ProtectedDoc is a document with its markup replaced by placeholder
// tokens, ready for translation.
type ProtectedDoc struct {
	chunks []Chunk
	table  *TokenTable
}

// Protect substitutes every opaque span in segs with a freshly minted
// token, leaving translatable prose inline. Feeding the unmodified result
// of Text back through Restore reproduces the original document exactly.
func Protect(segs []Segment) *ProtectedDoc {
	var b strings.Builder
	for _, s := range segs {
		b.WriteString(s.Raw)
	}
	table := newTokenTable(b.String())

	d := &ProtectedDoc{table: table}
	for _, s := range segs {
		if s.Opaque() {
			d.addOpaque(s.Raw)
			continue
		}
		// Interleave opaque gaps and translatable subspans.
		pos := 0
		for _, sub := range s.Subs {
			if sub.Off > pos {
				d.addOpaque(s.Raw[pos:sub.Off])
			}
			d.addProse(s.Raw[sub.Off : sub.Off+sub.Len])
			pos = sub.Off + sub.Len
		}
		if pos < len(s.Raw) {
			d.addOpaque(s.Raw[pos:])
		}
	}
	return d
}

func (d *ProtectedDoc) addOpaque(raw string) {
	if raw == "" {
		return
	}
	d.chunks = append(d.chunks, Chunk{Text: d.table.mint(raw), Opaque: true})
}

func (d *ProtectedDoc) addProse(text string) {
	if text == "" {
		return
	}
	// Merge adjacent prose runs so batching sees maximal chunks.
	if n := len(d.chunks); n > 0 && !d.chunks[n-1].Opaque {
		d.chunks[n-1].Text += text
		return
	}
	d.chunks = append(d.chunks, Chunk{Text: text})
}

// Chunks returns the ordered runs of the protected document.
func (d *ProtectedDoc) Chunks() []Chunk {
	return d.chunks
}

// Text returns the full placeholder-substituted document.
func (d *ProtectedDoc) Text() string {
	var b strings.Builder
	for _, c := range d.chunks {
		b.WriteString(c.Text)
	}
	return b.String()
}

// TokenCount returns the number of placeholder tokens in the document.
func (d *ProtectedDoc) TokenCount() int {
	return d.table.Len()
}

// TokenPattern returns a regular expression (as source text) matching the
// document's placeholder tokens. Providers can pass it to a translation
// model as a keep-verbatim instruction.
func (d *ProtectedDoc) TokenPattern() string {
	return regexp.QuoteMeta(d.table.open) + `[0-9]+` + regexp.QuoteMeta(d.table.close)
}

// Restore replaces every placeholder token in translated with its original
// markup. The token population is validated first: each minted token must
// appear exactly once and nothing token-shaped may be left unaccounted for.
// Any violation returns a *ReassemblyError and no document.
func (d *ProtectedDoc) Restore(translated string) (string, error) {
	re := d.table.pattern()
	seen := make([]int, d.table.Len())
	rerr := &ReassemblyError{}

	for _, m := range re.FindAllStringSubmatch(translated, -1) {
		idx, err := strconv.Atoi(m[1])
		if err != nil || idx >= len(seen) {
			rerr.Unknown = append(rerr.Unknown, m[0])
			continue
		}
		seen[idx]++
	}
	for idx, n := range seen {
		tok := d.table.open + strconv.Itoa(idx) + d.table.close
		switch {
		case n == 0:
			rerr.Missing = append(rerr.Missing, tok)
		case n > 1:
			rerr.Duplicated = append(rerr.Duplicated, tok)
		}
	}
	if rerr.violated() {
		return "", rerr
	}

	out := re.ReplaceAllStringFunc(translated, func(tok string) string {
		idx, _ := strconv.Atoi(tok[len(d.table.open) : len(tok)-len(d.table.close)])
		return d.table.entries[idx]
	})
	return out, nil
}

// ReassemblyError reports a placeholder integrity violation: the
// translation service dropped, duplicated, or mangled tokens. The document
// that produced it must be discarded in favor of the untranslated original.
type ReassemblyError struct {
	Missing    []string // minted tokens absent from the translated text
	Duplicated []string // minted tokens appearing more than once
	Unknown    []string // token-shaped strings that were never minted
}

func (e *ReassemblyError) violated() bool {
	return len(e.Missing) > 0 || len(e.Duplicated) > 0 || len(e.Unknown) > 0
}

func (e *ReassemblyError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, fmt.Sprintf("%d missing", len(e.Missing)))
	}
	if len(e.Duplicated) > 0 {
		parts = append(parts, fmt.Sprintf("%d duplicated", len(e.Duplicated)))
	}
	if len(e.Unknown) > 0 {
		parts = append(parts, fmt.Sprintf("%d unknown", len(e.Unknown)))
	}
	return "placeholder integrity violated: " + strings.Join(parts, ", ") + " token(s)"
}
