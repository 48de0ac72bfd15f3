package wikitext

import (
	"regexp"
	"strings"
	"testing"
)

func protect(t *testing.T, src string) *ProtectedDoc {
	t.Helper()
	segs, _ := Tokenize(src)
	return Protect(segs)
}

func TestProtectRestoreRoundTrip(t *testing.T) {
	inputs := []string{
		"",
		"no markup at all",
		"{{Infobox|name=Ada}} was a mathematician.<ref>cite</ref>",
		"Nested {{a|{{b|x}}}} stays one token.",
		"A [[target|label]] keeps its label inline.",
		"== History ==\nProse with [https://e.org a link] here.\n",
		"{| class=\"wikitable\"\n| cell\n|}\n",
		"<!-- note -->text<math>x^2</math>",
	}
	for _, src := range inputs {
		doc := protect(t, src)
		out, err := doc.Restore(doc.Text())
		if err != nil {
			t.Errorf("Restore(%q): %v", src, err)
			continue
		}
		if out != src {
			t.Errorf("round trip changed document:\n in  %q\n out %q", src, out)
		}
	}
}

func TestProtectHidesMarkup(t *testing.T) {
	doc := protect(t, "Ada {{birth date|1815}} wrote<ref>note</ref> programs.")
	text := doc.Text()
	for _, markup := range []string{"{{", "}}", "<ref>", "</ref>"} {
		if strings.Contains(text, markup) {
			t.Errorf("protected text still contains %q: %q", markup, text)
		}
	}
	if doc.TokenCount() != 2 {
		t.Errorf("TokenCount = %d, want 2", doc.TokenCount())
	}
}

func TestProtectTokensAreDistinct(t *testing.T) {
	src := strings.Repeat("{{x}} and ", 50)
	doc := protect(t, src)

	re := regexp.MustCompile(doc.TokenPattern())
	toks := re.FindAllString(doc.Text(), -1)
	if len(toks) != doc.TokenCount() {
		t.Fatalf("found %d tokens in text, table has %d", len(toks), doc.TokenCount())
	}
	seen := make(map[string]bool)
	for _, tok := range toks {
		if seen[tok] {
			t.Fatalf("token %q minted twice", tok)
		}
		seen[tok] = true
	}
}

func TestProtectMarkerCollisionFallsBack(t *testing.T) {
	// Document already contains the primary marker; the table must pick
	// another delimiter so no prose string can alias a token.
	src := "prose with a literal ⟦0⟧ in it {{tmpl}}"
	doc := protect(t, src)

	if strings.Contains(doc.TokenPattern(), regexp.QuoteMeta("⟦")+"[0-9]") {
		t.Errorf("table kept a colliding marker: pattern %s", doc.TokenPattern())
	}
	out, err := doc.Restore(doc.Text())
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if out != src {
		t.Errorf("round trip changed document: %q", out)
	}
}

func TestProtectAllMarkersPresentUsesSalt(t *testing.T) {
	src := "⟦ ⦃ ⧼ all markers {{tmpl}} here"
	doc := protect(t, src)
	out, err := doc.Restore(doc.Text())
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if out != src {
		t.Errorf("round trip changed document: %q", out)
	}
}

func TestRestoreMissingToken(t *testing.T) {
	doc := protect(t, "a {{one}} b {{two}} c")
	text := doc.Text()

	re := regexp.MustCompile(doc.TokenPattern())
	toks := re.FindAllString(text, -1)
	mangled := strings.Replace(text, toks[1], "", 1)

	_, err := doc.Restore(mangled)
	rerr, ok := err.(*ReassemblyError)
	if !ok {
		t.Fatalf("err = %v, want *ReassemblyError", err)
	}
	if len(rerr.Missing) != 1 || len(rerr.Duplicated) != 0 || len(rerr.Unknown) != 0 {
		t.Errorf("unexpected violation sets: %+v", rerr)
	}
}

func TestRestoreDuplicatedToken(t *testing.T) {
	doc := protect(t, "a {{one}} b")
	text := doc.Text()

	re := regexp.MustCompile(doc.TokenPattern())
	tok := re.FindString(text)

	_, err := doc.Restore(text + " " + tok)
	rerr, ok := err.(*ReassemblyError)
	if !ok {
		t.Fatalf("err = %v, want *ReassemblyError", err)
	}
	if len(rerr.Duplicated) != 1 {
		t.Errorf("Duplicated = %v, want one entry", rerr.Duplicated)
	}
}

func TestRestoreUnknownToken(t *testing.T) {
	doc := protect(t, "a {{one}} b")
	_, err := doc.Restore(doc.Text() + " ⟦99⟧")
	rerr, ok := err.(*ReassemblyError)
	if !ok {
		t.Fatalf("err = %v, want *ReassemblyError", err)
	}
	if len(rerr.Unknown) != 1 {
		t.Errorf("Unknown = %v, want one entry", rerr.Unknown)
	}
}

func TestRestoreSurvivesReordering(t *testing.T) {
	// Translation may move tokens around; each must still restore to its
	// own markup.
	doc := protect(t, "x {{first}} y {{second}} z")
	re := regexp.MustCompile(doc.TokenPattern())
	toks := re.FindAllString(doc.Text(), -1)

	reordered := toks[1] + " swapped " + toks[0]
	out, err := doc.Restore(reordered)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if out != "{{second}} swapped {{first}}" {
		t.Errorf("out = %q", out)
	}
}

func TestHeadingMarkersProtected(t *testing.T) {
	doc := protect(t, "== Title ==")
	text := doc.Text()
	if strings.Contains(text, "==") {
		t.Errorf("heading markers leaked into prose: %q", text)
	}
	if !strings.Contains(text, " Title ") {
		t.Errorf("heading interior should stay inline: %q", text)
	}
}
