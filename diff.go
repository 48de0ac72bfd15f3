package wkp

import "github.com/mgaitan/wkp/wikitext"

// StructureDiff compares the markup skeletons of two wikitext documents.
// Preview uses it as a structure check on a translated draft: templates,
// links, references, and tables must survive translation untouched, so any
// entry in Added or Removed usually means the draft (or the translation
// service) damaged markup.
type StructureDiff struct {
	// Added lists markup elements present in the draft but not the base.
	Added []wikitext.Segment
	// Removed lists markup elements present in the base but not the draft.
	Removed []wikitext.Segment
	// Unchanged counts elements present in both.
	Unchanged int
}

// HasChanges reports whether any structural element differs.
func (d *StructureDiff) HasChanges() bool {
	return len(d.Added) > 0 || len(d.Removed) > 0
}

// structural reports whether a segment is part of the markup skeleton.
// Prose and headings are expected to change under translation; links keep
// their raw form only when untranslated, so only fully opaque kinds count.
func structural(s wikitext.Segment) bool {
	switch s.Kind {
	case wikitext.KindTemplate, wikitext.KindTable, wikitext.KindRef,
		wikitext.KindComment, wikitext.KindHTMLTag:
		return true
	case wikitext.KindWikiLink, wikitext.KindExternalLink:
		return s.Opaque()
	default:
		return false
	}
}

// DiffStructure tokenizes both documents and diffs their structural
// elements by raw text. Duplicate elements are matched by multiplicity.
func DiffStructure(base, draft string) *StructureDiff {
	baseSegs, _ := wikitext.Tokenize(base)
	draftSegs, _ := wikitext.Tokenize(draft)

	baseCount := make(map[string]int)
	for _, s := range baseSegs {
		if structural(s) {
			baseCount[s.Raw]++
		}
	}

	d := &StructureDiff{}
	for _, s := range draftSegs {
		if !structural(s) {
			continue
		}
		if baseCount[s.Raw] > 0 {
			baseCount[s.Raw]--
			d.Unchanged++
		} else {
			d.Added = append(d.Added, s)
		}
	}
	for _, s := range baseSegs {
		if structural(s) && baseCount[s.Raw] > 0 {
			baseCount[s.Raw]--
			d.Removed = append(d.Removed, s)
		}
	}
	return d
}
