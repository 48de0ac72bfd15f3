// Package wikitext implements a markup-preserving segmentation of MediaWiki
// wikitext. It splits a document into typed segments with a nesting-aware
// scanner, substitutes protected markup with opaque placeholder tokens, and
// restores the original markup after the surrounding prose has been
// translated.
//
// The partition is lossless: concatenating the Raw fields of the segments
// returned by Tokenize reproduces the input byte for byte. Protect followed
// by Restore with no translation applied is likewise an identity.
package wikitext

import "fmt"

// SegmentKind classifies a span of wikitext.
type SegmentKind int

const (
	// KindText is free-running prose, fully translatable.
	KindText SegmentKind = iota
	// KindTemplate is a {{...}} transclusion, opaque (parameters included).
	KindTemplate
	// KindWikiLink is an internal [[target|display]] link. The display text,
	// when present, is translatable; target and delimiters are not.
	KindWikiLink
	// KindExternalLink is a bracketed [url title] link; the title is translatable.
	KindExternalLink
	// KindHTMLTag is a standalone HTML-like tag such as <br/> or </div>, or a
	// tag pair whose content is protected (nowiki, math, pre, ...).
	KindHTMLTag
	// KindHeading is a == Heading == line; the interior text is translatable.
	KindHeading
	// KindTable is a {|...|} table block, opaque.
	KindTable
	// KindRef is a <ref>...</ref> citation, opaque. Citation text is left
	// untranslated: references point at sources in their original language.
	KindRef
	// KindComment is an <!-- HTML comment -->, opaque.
	KindComment
)

// String returns a short name for the kind.
func (k SegmentKind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindTemplate:
		return "template"
	case KindWikiLink:
		return "wikilink"
	case KindExternalLink:
		return "extlink"
	case KindHTMLTag:
		return "tag"
	case KindHeading:
		return "heading"
	case KindTable:
		return "table"
	case KindRef:
		return "ref"
	case KindComment:
		return "comment"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Span is a byte range within a segment's Raw text.
type Span struct {
	Off int
	Len int
}

// Segment is an atomic unit of a tokenized document.
type Segment struct {
	Kind SegmentKind
	// Raw is the original text span, byte for byte.
	Raw string
	// Subs lists the ranges within Raw that are prose eligible for
	// translation, in order. Empty for opaque kinds.
	Subs []Span
}

// Opaque reports whether the segment carries no translatable text.
func (s Segment) Opaque() bool {
	return len(s.Subs) == 0
}

// Warning reports a non-fatal markup problem found during tokenization,
// such as an unterminated template. The scanner recovers by closing the
// span at end of input.
type Warning struct {
	Offset  int
	Message string
}

func (w Warning) String() string {
	return fmt.Sprintf("offset %d: %s", w.Offset, w.Message)
}
