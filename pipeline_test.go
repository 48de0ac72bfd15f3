package wkp

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/mgaitan/wkp/wikitext"
)

// stubProvider uppercases prose and copies placeholder tokens verbatim.
type stubProvider struct {
	mu       sync.Mutex
	calls    int
	requests []Request
	err      error
	// failOn makes Translate fail only for texts containing the substring.
	failOn string
}

func (s *stubProvider) Translate(ctx context.Context, req Request) ([]string, error) {
	s.mu.Lock()
	s.calls++
	s.requests = append(s.requests, req)
	err := s.err
	failOn := s.failOn
	s.mu.Unlock()

	if err != nil {
		return nil, err
	}

	var keep *regexp.Regexp
	if req.KeepPattern != "" {
		keep = regexp.MustCompile(req.KeepPattern)
	}
	out := make([]string, len(req.Texts))
	for i, text := range req.Texts {
		if failOn != "" && strings.Contains(text, failOn) {
			return nil, &ProviderError{Message: "stub failure"}
		}
		if keep != nil {
			out[i] = upperKeeping(text, keep)
		} else {
			out[i] = strings.ToUpper(text)
		}
	}
	return out, nil
}

func (s *stubProvider) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// upperKeeping uppercases text while leaving token matches untouched.
func upperKeeping(text string, keep *regexp.Regexp) string {
	var b strings.Builder
	last := 0
	for _, m := range keep.FindAllStringIndex(text, -1) {
		b.WriteString(strings.ToUpper(text[last:m[0]]))
		b.WriteString(text[m[0]:m[1]])
		last = m[1]
	}
	b.WriteString(strings.ToUpper(text[last:]))
	return b.String()
}

// tokenDropper deletes the first placeholder token from its output,
// simulating a model that eats placeholders.
type tokenDropper struct{}

func (tokenDropper) Translate(ctx context.Context, req Request) ([]string, error) {
	re := regexp.MustCompile(req.KeepPattern)
	out := make([]string, len(req.Texts))
	dropped := false
	for i, text := range req.Texts {
		if !dropped {
			if loc := re.FindStringIndex(text); loc != nil {
				text = text[:loc[0]] + text[loc[1]:]
				dropped = true
			}
		}
		out[i] = text
	}
	return out, nil
}

// mapCache is a minimal TranslationCache for tests.
type mapCache struct {
	mu   sync.Mutex
	data map[string]string
	sets int
	gets int
}

func newMapCache() *mapCache {
	return &mapCache{data: make(map[string]string)}
}

func (c *mapCache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	v, ok := c.data[key]
	return v, ok
}

func (c *mapCache) Set(key, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	c.data[key] = value
	return nil
}

func TestPipelineTranslatesProseOnly(t *testing.T) {
	src := "Ada Lovelace {{birth date|1815}} wrote the first program.<ref>Menabrea</ref>"
	p := NewPipeline("en", "es", &stubProvider{})

	res, err := p.Translate(context.Background(), src)
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if res.Fallback {
		t.Fatal("unexpected fallback")
	}
	if !strings.Contains(res.Wikitext, "{{birth date|1815}}") {
		t.Errorf("template altered: %q", res.Wikitext)
	}
	if !strings.Contains(res.Wikitext, "<ref>Menabrea</ref>") {
		t.Errorf("ref altered: %q", res.Wikitext)
	}
	if !strings.Contains(res.Wikitext, "ADA LOVELACE") {
		t.Errorf("prose not translated: %q", res.Wikitext)
	}
	if strings.Contains(res.Wikitext, "MENABREA") {
		t.Errorf("opaque content reached the provider: %q", res.Wikitext)
	}
}

func TestPipelineSameLanguageShortCircuits(t *testing.T) {
	stub := &stubProvider{}
	p := NewPipeline("es", "es", stub)

	res, err := p.Translate(context.Background(), "texto {{tmpl}}")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if res.Wikitext != "texto {{tmpl}}" {
		t.Errorf("same-language input must pass through: %q", res.Wikitext)
	}
	if stub.callCount() != 0 {
		t.Errorf("provider called %d times", stub.callCount())
	}
}

func TestPipelineNilProviderPassesThrough(t *testing.T) {
	p := NewPipeline("en", "es", nil)
	res, err := p.Translate(context.Background(), "unchanged")
	if err != nil || res.Wikitext != "unchanged" {
		t.Fatalf("res = %+v, err = %v", res, err)
	}
}

func TestPipelineRegionVariantsNormalize(t *testing.T) {
	stub := &stubProvider{}
	p := NewPipeline("es-ES", "ES", stub)
	res, _ := p.Translate(context.Background(), "hola")
	if res.Wikitext != "hola" || stub.callCount() != 0 {
		t.Error("es-ES -> es should short-circuit as same language")
	}
}

func TestPipelinePartialFailureKeepsOtherUnits(t *testing.T) {
	// Small budget forces at least two units; only the last one carries
	// "beta" and the stub fails exactly that one.
	src := strings.Repeat("alpha ", 20) + "beta tail."
	stub := &stubProvider{failOn: "beta"}
	p := NewPipeline("en", "es", stub, WithUnitChars(70))

	res, err := p.Translate(context.Background(), src)
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if len(res.FailedUnits) == 0 {
		t.Fatal("expected failed units")
	}
	if !strings.Contains(res.Wikitext, "ALPHA") {
		t.Errorf("healthy unit not translated: %q", res.Wikitext)
	}
	if !strings.Contains(res.Wikitext, "beta") {
		t.Errorf("failed unit must keep source text: %q", res.Wikitext)
	}
	for _, fu := range res.FailedUnits {
		var perr *ProviderError
		if !errors.As(fu, &perr) {
			t.Errorf("failed unit should wrap the provider error: %v", fu)
		}
	}
}

func TestPipelineFallbackOnReassemblyError(t *testing.T) {
	src := "prose {{tmpl}} more prose"
	p := NewPipeline("en", "es", tokenDropper{})

	res, err := p.Translate(context.Background(), src)
	var rerr *wikitext.ReassemblyError
	if !errors.As(err, &rerr) {
		t.Fatalf("err = %v, want *wikitext.ReassemblyError", err)
	}
	if len(rerr.Missing) == 0 {
		t.Errorf("expected missing tokens: %+v", rerr)
	}
	if res == nil || !res.Fallback {
		t.Fatalf("fallback result missing: %+v", res)
	}
	if res.Wikitext != src {
		t.Errorf("fallback must carry the original document: %q", res.Wikitext)
	}
}

func TestPipelineCacheHitSkipsProvider(t *testing.T) {
	src := "Some prose to translate. {{tmpl}}"
	stub := &stubProvider{}
	cache := newMapCache()
	p := NewPipeline("en", "es", stub, WithCache(cache))

	res1, err := p.Translate(context.Background(), src)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	callsAfterFirst := stub.callCount()
	if callsAfterFirst == 0 || res1.TranslatedCount == 0 {
		t.Fatal("first run should hit the provider")
	}

	res2, err := p.Translate(context.Background(), src)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if stub.callCount() != callsAfterFirst {
		t.Errorf("second run hit the provider: %d -> %d calls", callsAfterFirst, stub.callCount())
	}
	if res2.CachedCount == 0 || res2.TranslatedCount != 0 {
		t.Errorf("counts = translated %d, cached %d", res2.TranslatedCount, res2.CachedCount)
	}
	if res2.Wikitext != res1.Wikitext {
		t.Errorf("cached result differs:\n %q\n %q", res1.Wikitext, res2.Wikitext)
	}
}

func TestPipelineCacheKeysAreLanguageScoped(t *testing.T) {
	cache := newMapCache()
	src := "Shared source text."

	if _, err := NewPipeline("en", "es", &stubProvider{}, WithCache(cache)).
		Translate(context.Background(), src); err != nil {
		t.Fatal(err)
	}
	entries := len(cache.data)

	stub := &stubProvider{}
	if _, err := NewPipeline("en", "fr", stub, WithCache(cache)).
		Translate(context.Background(), src); err != nil {
		t.Fatal(err)
	}
	if stub.callCount() == 0 {
		t.Error("a different language pair must not reuse cache entries")
	}
	if len(cache.data) <= entries {
		t.Error("second language pair should add its own entries")
	}
}

func TestPipelineReportsMarkupWarnings(t *testing.T) {
	p := NewPipeline("en", "es", &stubProvider{})
	res, err := p.Translate(context.Background(), "text {{never closed")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if len(res.Warnings) != 1 {
		t.Errorf("Warnings = %v", res.Warnings)
	}
}

func TestPipelineKeepPatternReachesProvider(t *testing.T) {
	stub := &stubProvider{}
	p := NewPipeline("en", "es", stub)
	if _, err := p.Translate(context.Background(), "text {{tmpl}} text"); err != nil {
		t.Fatal(err)
	}
	stub.mu.Lock()
	defer stub.mu.Unlock()
	if len(stub.requests) == 0 || stub.requests[0].KeepPattern == "" {
		t.Fatal("provider requests must carry the token pattern")
	}
	if _, err := regexp.Compile(stub.requests[0].KeepPattern); err != nil {
		t.Errorf("KeepPattern is not a valid regexp: %v", err)
	}
}

func TestPipelineConcurrentUnits(t *testing.T) {
	var parts []string
	for i := 0; i < 20; i++ {
		parts = append(parts, strings.Repeat("sentence ", 8))
	}
	src := strings.Join(parts, "\n\n")

	p := NewPipeline("en", "es", &stubProvider{}, WithUnitChars(80), WithConcurrency(8))
	res, err := p.Translate(context.Background(), src)
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if res.Units < 10 {
		t.Fatalf("expected many units, got %d", res.Units)
	}
	if res.TranslatedCount != res.Units {
		t.Errorf("translated %d of %d units", res.TranslatedCount, res.Units)
	}
	if !strings.Contains(res.Wikitext, "SENTENCE") || strings.Contains(res.Wikitext, "sentence") {
		t.Error("some units left untranslated")
	}
}
