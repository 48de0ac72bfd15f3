package wkp

import (
	"context"

	"github.com/mgaitan/wkp/wikitext"
)

// Request is a batch of texts handed to a translation provider. Every text
// is translated independently; the reply must preserve order and arity.
type Request struct {
	Texts      []string
	SourceLang string // e.g. "en"
	TargetLang string // e.g. "es"
	// KeepPattern is a regular expression (source text) matching
	// placeholder tokens embedded in Texts. Providers that talk to a
	// language model should instruct it to copy matches verbatim; plain
	// MT backends may ignore it.
	KeepPattern string
}

// TranslationProvider is the interface for machine translation backends.
type TranslationProvider interface {
	Translate(ctx context.Context, req Request) ([]string, error)
}

// TranslationCache is the interface for translation caching.
type TranslationCache interface {
	Get(key string) (string, bool)
	Set(key string, value string) error
}

// Unit is one contiguous batch of placeholder-substituted text sent to the
// provider as a single request. Units partition the protected document:
// joining their texts in index order reproduces it.
type Unit struct {
	Index int
	Text  string
}

// Result is the outcome of translating one document.
type Result struct {
	// Wikitext is the reassembled document. When Fallback is true it is
	// the untranslated original instead.
	Wikitext string
	// Fallback reports that reassembly failed and the original text was
	// returned in place of a corrupted translation.
	Fallback bool
	// Warnings lists malformed-markup recoveries from tokenization.
	Warnings []wikitext.Warning
	// Units is the number of translation units the document was split into.
	Units int
	// FailedUnits records per-unit provider failures. Those units keep
	// their original text; the rest of the document is still translated.
	FailedUnits []*UnitError
	// TranslatedCount and CachedCount split the successful units by how
	// their translation was obtained.
	TranslatedCount int
	CachedCount     int
}
