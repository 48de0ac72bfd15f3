package wkp

import (
	"context"
	"strings"
	"sync"

	"github.com/mgaitan/wkp/wikitext"
)

// Pipeline runs the markup-preserving translation of one document at a
// time: tokenize, protect, translate in units, reassemble. A Pipeline holds
// no per-document state and is safe for concurrent use; each Translate call
// owns its token table.
type Pipeline struct {
	provider    TranslationProvider
	cache       TranslationCache
	sourceLang  string
	targetLang  string
	unitChars   int
	concurrency int
}

// PipelineOption is a functional option for configuring a Pipeline.
type PipelineOption func(*Pipeline)

// WithCache sets the translation cache.
func WithCache(cache TranslationCache) PipelineOption {
	return func(p *Pipeline) {
		p.cache = cache
	}
}

// WithUnitChars sets the character budget for one translation unit.
func WithUnitChars(n int) PipelineOption {
	return func(p *Pipeline) {
		p.unitChars = n
	}
}

// WithConcurrency sets how many units may be in flight at once.
func WithConcurrency(n int) PipelineOption {
	return func(p *Pipeline) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// NewPipeline creates a Pipeline translating from sourceLang to targetLang
// through the given provider.
func NewPipeline(sourceLang, targetLang string, provider TranslationProvider, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		provider:    provider,
		sourceLang:  NormalizeLang(sourceLang),
		targetLang:  NormalizeLang(targetLang),
		unitChars:   DefaultUnitChars,
		concurrency: 4,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Translate runs the full pipeline on one wikitext document.
//
// Per-unit provider failures are not errors: the affected units keep their
// source text and are listed in Result.FailedUnits. A placeholder integrity
// violation after translation is an error; the returned Result then carries
// the untranslated original (Fallback true) alongside the *ReassemblyError,
// so the caller always has an uncorrupted document to fall back to.
func (p *Pipeline) Translate(ctx context.Context, src string) (*Result, error) {
	segs, warns := wikitext.Tokenize(src)
	res := &Result{Warnings: warns}

	if p.sourceLang == p.targetLang || p.provider == nil {
		res.Wikitext = src
		return res, nil
	}

	doc := wikitext.Protect(segs)
	units := SplitUnits(doc.Chunks(), p.unitChars)
	res.Units = len(units)

	translated := make([]Unit, len(units))
	var misses []int

	for i, u := range units {
		translated[i] = u
		if !translatable(u.Text) {
			continue
		}
		if p.cache != nil {
			key := CacheKey(HashText(u.Text), p.sourceLang, p.targetLang)
			if hit, ok := p.cache.Get(key); ok {
				translated[i].Text = hit
				res.CachedCount++
				continue
			}
		}
		misses = append(misses, i)
	}

	p.translateUnits(ctx, doc, units, misses, translated, res)

	final, err := doc.Restore(JoinUnits(translated))
	if err != nil {
		res.Wikitext = src
		res.Fallback = true
		return res, err
	}
	res.Wikitext = final
	return res, nil
}

// translateUnits dispatches the cache-missed units to the provider, fanning
// out up to p.concurrency requests. Units are independent; only the slot
// each result lands in is ordered.
func (p *Pipeline) translateUnits(ctx context.Context, doc *wikitext.ProtectedDoc, units []Unit, misses []int, translated []Unit, res *Result) {
	if len(misses) == 0 {
		return
	}

	type outcome struct {
		idx  int
		text string
		err  error
	}

	sem := make(chan struct{}, p.concurrency)
	results := make(chan outcome, len(misses))
	var wg sync.WaitGroup

	for _, idx := range misses {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			text, err := p.translateOne(ctx, doc, units[idx].Text)
			results <- outcome{idx: idx, text: text, err: err}
		}(idx)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	for out := range results {
		if out.err != nil {
			// Best effort: the unit ships untranslated.
			res.FailedUnits = append(res.FailedUnits, &UnitError{Index: out.idx, Cause: out.err})
			continue
		}
		translated[out.idx].Text = out.text
		res.TranslatedCount++
		if p.cache != nil {
			key := CacheKey(HashText(units[out.idx].Text), p.sourceLang, p.targetLang)
			_ = p.cache.Set(key, out.text) // cache failures never fail a unit
		}
	}
}

func (p *Pipeline) translateOne(ctx context.Context, doc *wikitext.ProtectedDoc, text string) (string, error) {
	out, err := p.provider.Translate(ctx, Request{
		Texts:       []string{text},
		SourceLang:  p.sourceLang,
		TargetLang:  p.targetLang,
		KeepPattern: doc.TokenPattern(),
	})
	if err != nil {
		return "", err
	}
	if len(out) != 1 {
		return "", &CountMismatchError{Expected: 1, Got: len(out)}
	}
	return out[0], nil
}

// translatable reports whether a unit contains any prose worth sending out.
// Whitespace-only units (common between adjacent markup) are kept verbatim.
func translatable(text string) bool {
	return strings.TrimSpace(text) != ""
}
