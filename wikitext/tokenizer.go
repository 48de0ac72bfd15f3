package wikitext

import "strings"

// opaqueTags are paired tags whose entire content is protected. Reference
// and code-like containers must reach the translation service only as
// placeholders.
var opaqueTags = map[string]bool{
	"ref":             true,
	"nowiki":          true,
	"math":            true,
	"pre":             true,
	"code":            true,
	"source":          true,
	"syntaxhighlight": true,
	"gallery":         true,
	"score":           true,
	"timeline":        true,
	"graph":           true,
	"templatedata":    true,
}

// urlSchemes are the prefixes that make a single-bracket span an external link.
var urlSchemes = []string{"//", "http://", "https://", "ftp://"}

// Tokenize splits wikitext into an ordered sequence of segments. The
// returned warnings describe malformed markup the scanner recovered from;
// they never prevent a result. Concatenating the Raw fields of the result
// reproduces src exactly.
func Tokenize(src string) ([]Segment, []Warning) {
	t := &tokenizer{src: src}
	t.run()
	return t.segs, t.warns
}

type tokenizer struct {
	src       string
	pos       int // scan position
	textStart int // start of pending plain text
	segs      []Segment
	warns     []Warning
}

func (t *tokenizer) run() {
	for t.pos < len(t.src) {
		c := t.src[t.pos]
		switch {
		case c == '<' && t.has("<!--"):
			t.comment()
		case c == '{' && t.has("{{"):
			t.template()
		case c == '{' && t.has("{|") && t.atLineStart():
			t.table()
		case c == '[' && t.has("[["):
			t.wikiLink()
		case c == '[' && t.externalURLFollows():
			if !t.externalLink() {
				t.pos++
			}
		case c == '<':
			if !t.tag() {
				t.pos++
			}
		case c == '=' && t.atLineStart():
			if !t.heading() {
				t.pos++
			}
		default:
			t.pos++
		}
	}
	t.flushText(len(t.src))
}

func (t *tokenizer) has(prefix string) bool {
	return strings.HasPrefix(t.src[t.pos:], prefix)
}

func (t *tokenizer) atLineStart() bool {
	return t.pos == 0 || t.src[t.pos-1] == '\n'
}

func (t *tokenizer) warn(off int, msg string) {
	t.warns = append(t.warns, Warning{Offset: off, Message: msg})
}

// flushText emits the pending plain-text run ending at end, if any.
func (t *tokenizer) flushText(end int) {
	if end > t.textStart {
		raw := t.src[t.textStart:end]
		t.segs = append(t.segs, Segment{
			Kind: KindText,
			Raw:  raw,
			Subs: []Span{{Off: 0, Len: len(raw)}},
		})
	}
}

// emit closes the pending text run, appends seg, and restarts text
// accumulation at the current position.
func (t *tokenizer) emit(start int, seg Segment) {
	t.flushText(start)
	t.segs = append(t.segs, seg)
	t.textStart = t.pos
}

func (t *tokenizer) comment() {
	start := t.pos
	end := strings.Index(t.src[start+4:], "-->")
	if end < 0 {
		t.warn(start, "unterminated comment")
		t.pos = len(t.src)
	} else {
		t.pos = start + 4 + end + 3
	}
	t.emit(start, Segment{Kind: KindComment, Raw: t.src[start:t.pos]})
}

// template consumes a {{...}} span, tracking brace depth so nested
// transclusions stay within a single segment.
func (t *tokenizer) template() {
	start := t.pos
	i := start
	depth := 0
	for i < len(t.src) {
		switch {
		case strings.HasPrefix(t.src[i:], "{{"):
			depth++
			i += 2
		case strings.HasPrefix(t.src[i:], "}}"):
			depth--
			i += 2
		default:
			i++
		}
		if depth == 0 {
			break
		}
	}
	if depth != 0 {
		t.warn(start, "unterminated template")
		i = len(t.src)
	}
	t.pos = i
	t.emit(start, Segment{Kind: KindTemplate, Raw: t.src[start:i]})
}

func (t *tokenizer) table() {
	start := t.pos
	i := start
	depth := 0
	for i < len(t.src) {
		switch {
		case strings.HasPrefix(t.src[i:], "{|"):
			depth++
			i += 2
		case strings.HasPrefix(t.src[i:], "|}"):
			depth--
			i += 2
		default:
			i++
		}
		if depth == 0 {
			break
		}
	}
	if depth != 0 {
		t.warn(start, "unterminated table")
		i = len(t.src)
	}
	t.pos = i
	t.emit(start, Segment{Kind: KindTable, Raw: t.src[start:i]})
}

// wikiLink consumes a [[...]] span. The display text after the first
// top-level pipe is translatable; target, delimiters, and anything in a
// namespaced link (File:, Category:, interwiki) are not.
func (t *tokenizer) wikiLink() {
	start := t.pos
	i := start
	depth := 0
	pipe := -1 // first top-level pipe, relative to src
	for i < len(t.src) {
		switch {
		case strings.HasPrefix(t.src[i:], "[["):
			depth++
			i += 2
		case strings.HasPrefix(t.src[i:], "]]"):
			depth--
			i += 2
		case t.src[i] == '|' && depth == 1:
			if pipe < 0 {
				pipe = i
			}
			i++
		default:
			i++
		}
		if depth == 0 {
			break
		}
	}
	if depth != 0 {
		// An unclosed [[ renders literally, so the span really is prose.
		t.warn(start, "unterminated link")
		t.pos = len(t.src)
		t.flushText(t.pos)
		t.textStart = t.pos
		return
	}
	t.pos = i
	raw := t.src[start:i]
	seg := Segment{Kind: KindWikiLink, Raw: raw}

	if pipe >= 0 {
		target := t.src[start+2 : pipe]
		display := Span{Off: pipe - start + 1, Len: len(raw) - 2 - (pipe - start + 1)}
		// Namespaced links carry parameters, not prose.
		if !strings.Contains(target, ":") && display.Len > 0 {
			seg.Subs = []Span{display}
		}
	}
	t.emit(start, seg)
}

func (t *tokenizer) externalURLFollows() bool {
	rest := t.src[t.pos+1:]
	for _, scheme := range urlSchemes {
		if strings.HasPrefix(rest, scheme) {
			return true
		}
	}
	return false
}

// externalLink consumes a [url title] span. Returns false when no closing
// bracket exists on the line, in which case the bracket is plain text.
func (t *tokenizer) externalLink() bool {
	start := t.pos
	end := strings.IndexAny(t.src[start:], "]\n")
	if end < 0 || t.src[start+end] != ']' {
		return false
	}
	t.pos = start + end + 1
	raw := t.src[start:t.pos]
	seg := Segment{Kind: KindExternalLink, Raw: raw}

	inner := raw[1 : len(raw)-1]
	if sp := strings.IndexAny(inner, " \t"); sp >= 0 && sp+1 < len(inner) {
		seg.Subs = []Span{{Off: 1 + sp + 1, Len: len(inner) - sp - 1}}
	}
	t.emit(start, seg)
	return true
}

// tag consumes an HTML-like tag at the current position. Opaque containers
// (<ref>, <nowiki>, ...) are consumed through their matching close tag with
// same-name depth tracking. Formatting tags ('<i>', '</div>', '<br/>')
// yield a tag-only segment and their content keeps being scanned as
// wikitext. Returns false when the '<' does not begin a tag.
func (t *tokenizer) tag() bool {
	start := t.pos
	i := start + 1
	closing := false
	if i < len(t.src) && t.src[i] == '/' {
		closing = true
		i++
	}
	nameStart := i
	for i < len(t.src) && isTagNameByte(t.src[i]) {
		i++
	}
	if i == nameStart {
		return false
	}
	name := strings.ToLower(t.src[nameStart:i])

	gt := strings.IndexByte(t.src[i:], '>')
	if gt < 0 || strings.Contains(t.src[i:i+gt], "<") {
		return false
	}
	tagEnd := i + gt + 1
	selfClosing := strings.HasSuffix(strings.TrimRight(t.src[i:i+gt], " \t"), "/")

	kind := KindHTMLTag
	if name == "ref" {
		kind = KindRef
	}

	if closing || selfClosing || !opaqueTags[name] {
		t.pos = tagEnd
		t.emit(start, Segment{Kind: kind, Raw: t.src[start:t.pos]})
		return true
	}

	// Opaque container: scan to the matching close tag.
	j := tagEnd
	depth := 1
	for depth > 0 {
		k := strings.IndexByte(t.src[j:], '<')
		if k < 0 {
			j = -1
			break
		}
		j += k
		open, cls, next := matchTagAt(t.src, j, name)
		if next < 0 {
			j = -1
			break
		}
		if cls {
			depth--
		} else if open {
			depth++
		}
		j = next
	}
	if j < 0 {
		t.warn(start, "unterminated <"+name+"> tag")
		j = len(t.src)
	}
	t.pos = j
	t.emit(start, Segment{Kind: kind, Raw: t.src[start:j]})
	return true
}

// matchTagAt inspects src[i:] (src[i] == '<') for an opening or closing tag
// with the given name. next is the position just past the tag's '>', or -1
// when the bracket is not a well-formed tag. Self-closing same-name tags
// count as neither open nor close.
func matchTagAt(src string, i int, name string) (open, cls bool, next int) {
	p := i + 1
	isClose := false
	if p < len(src) && src[p] == '/' {
		isClose = true
		p++
	}
	if !hasFoldPrefix(src[p:], name) {
		return false, false, i + 1
	}
	p += len(name)
	if p < len(src) {
		switch src[p] {
		case '>', ' ', '\t', '\n', '/':
		default:
			return false, false, i + 1
		}
	}
	gt := strings.IndexByte(src[p:], '>')
	if gt < 0 {
		return false, false, -1
	}
	end := p + gt + 1
	if isClose {
		return false, true, end
	}
	if strings.HasSuffix(strings.TrimRight(src[p:p+gt], " \t"), "/") {
		return false, false, end
	}
	return true, false, end
}

func hasFoldPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

func isTagNameByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

// heading consumes a == Heading == line. The interior text is translatable,
// the marker runs are not. Returns false when the line is not a heading.
func (t *tokenizer) heading() bool {
	start := t.pos
	lineEnd := len(t.src)
	if nl := strings.IndexByte(t.src[start:], '\n'); nl >= 0 {
		lineEnd = start + nl
	}
	line := t.src[start:lineEnd]
	trimmed := strings.TrimRight(line, " \t")

	lead := 0
	for lead < len(trimmed) && trimmed[lead] == '=' {
		lead++
	}
	trail := 0
	for trail < len(trimmed)-lead && trimmed[len(trimmed)-1-trail] == '=' {
		trail++
	}
	level := lead
	if trail < level {
		level = trail
	}
	if level > 6 {
		level = 6
	}
	if level == 0 || len(trimmed) < 2*level+1 {
		return false
	}

	t.pos = lineEnd
	t.emit(start, Segment{
		Kind: KindHeading,
		Raw:  line,
		Subs: []Span{{Off: level, Len: len(trimmed) - 2*level}},
	})
	return true
}
