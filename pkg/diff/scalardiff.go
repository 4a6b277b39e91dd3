package diff

import "sort"

// ScalarKind classifies a flat-collection change.
type ScalarKind string

const (
	ScalarAdded    ScalarKind = "added"
	ScalarDeleted  ScalarKind = "deleted"
	ScalarRenamed  ScalarKind = "renamed"
	ScalarProperty ScalarKind = "property_change"
	ScalarType     ScalarKind = "type_change"
)

// ScalarChange is one change against a name-keyed flat collection.
type ScalarChange struct {
	Kind       ScalarKind
	Collection string
	Name       string
	OldName    string // renames only
	Field      string // property and type changes
	Lang       string // multilingual property changes
	Old        string
	New        string
	Entity     *Entity // adds only
	Index      int     // position within the modified collection
}

// DiffScalars compares the flat collections of two root descriptors:
// the processor synonym, attributes, tabular sections with their columns,
// and the form/template membership lists.
func DiffScalars(orig, mod *ExtractedProcessor) []ScalarChange {
	var out []ScalarChange

	for _, lang := range commonLangs(orig.Synonym, mod.Synonym) {
		if orig.Synonym[lang] != mod.Synonym[lang] {
			out = append(out, ScalarChange{
				Kind: ScalarProperty, Collection: "processor", Name: orig.Name,
				Field: "synonym", Lang: lang,
				Old: orig.Synonym[lang], New: mod.Synonym[lang],
			})
		}
	}

	out = append(out, diffCollection("attributes", orig.Attributes, mod.Attributes)...)
	out = append(out, diffNameList("forms", orig.Forms, mod.Forms)...)
	out = append(out, diffCollection("tabular_sections", orig.TabularSections, mod.TabularSections)...)
	out = append(out, diffNameList("templates", orig.Templates, mod.Templates)...)
	return out
}

// DiffFormScalars compares the non-hierarchical sections of two form
// descriptors.
func DiffFormScalars(formName string, orig, mod *ExtractedForm) []ScalarChange {
	var out []ScalarChange
	prefix := "forms." + formName + "."

	events := map[string]struct{}{}
	for ev := range orig.Events {
		events[ev] = struct{}{}
	}
	for ev := range mod.Events {
		events[ev] = struct{}{}
	}
	for _, ev := range sortedKeys(events) {
		ov, nv := orig.Events[ev], mod.Events[ev]
		if ov != nv {
			out = append(out, ScalarChange{
				Kind: ScalarProperty, Collection: prefix + "events", Name: ev,
				Field: "handler", Old: ov, New: nv,
			})
		}
	}

	out = append(out, diffCollection(prefix+"commands", orig.Commands, mod.Commands)...)
	out = append(out, diffCollection(prefix+"form_attributes", orig.FormAttributes, mod.FormAttributes)...)
	out = append(out, diffCollection(prefix+"parameters", orig.Parameters, mod.Parameters)...)
	return out
}

// diffCollection runs the name-keyed three-phase comparison: membership,
// rename adjudication, then per-entity detail.
func diffCollection(collection string, orig, mod []Entity) []ScalarChange {
	var out []ScalarChange

	origByName := map[string]*Entity{}
	for i := range orig {
		origByName[orig[i].Name] = &orig[i]
	}
	modByName := map[string]*Entity{}
	for i := range mod {
		modByName[mod[i].Name] = &mod[i]
	}

	var added []int
	for i := range mod {
		if _, ok := origByName[mod[i].Name]; !ok {
			added = append(added, i)
		}
	}
	var deleted []*Entity
	for i := range orig {
		if _, ok := modByName[orig[i].Name]; !ok {
			deleted = append(deleted, &orig[i])
		}
	}

	// Rename detection: the first structural match (same kind, same child
	// count) pairs a deletion with an addition.
	usedAdds := map[int]bool{}
	for _, old := range deleted {
		matched := false
		for _, i := range added {
			if usedAdds[i] {
				continue
			}
			cand := &mod[i]
			if cand.Kind == old.Kind && len(cand.Children) == len(old.Children) {
				out = append(out, ScalarChange{
					Kind: ScalarRenamed, Collection: collection,
					Name: cand.Name, OldName: old.Name, Index: i,
				})
				out = append(out, entityDelta(collection, cand.Name, old, cand)...)
				usedAdds[i] = true
				matched = true
				break
			}
		}
		if !matched {
			out = append(out, ScalarChange{
				Kind: ScalarDeleted, Collection: collection, Name: old.Name,
			})
		}
	}
	for _, i := range added {
		if usedAdds[i] {
			continue
		}
		ent := mod[i]
		out = append(out, ScalarChange{
			Kind: ScalarAdded, Collection: collection, Name: ent.Name,
			Entity: &ent, Index: i,
		})
	}

	for i := range mod {
		cur := &mod[i]
		old, ok := origByName[cur.Name]
		if !ok {
			continue
		}
		out = append(out, entityDelta(collection, cur.Name, old, cur)...)
		// Nested columns diff under the owning entity's address.
		if len(old.Children) > 0 || len(cur.Children) > 0 {
			out = append(out, diffCollection(collection+"."+cur.Name+".columns", old.Children, cur.Children)...)
		}
	}
	return out
}

// entityDelta emits property and type changes for one matched entity.
func entityDelta(collection, name string, old, cur *Entity) []ScalarChange {
	var out []ScalarChange

	keys := map[string]struct{}{}
	for k := range old.Properties {
		keys[k] = struct{}{}
	}
	for k := range cur.Properties {
		keys[k] = struct{}{}
	}
	for _, k := range sortedKeys(keys) {
		ov, nv := old.Properties[k], cur.Properties[k]
		if ov == nv {
			continue
		}
		kind := ScalarProperty
		if k == "Type" {
			kind = ScalarType
		}
		out = append(out, ScalarChange{
			Kind: kind, Collection: collection, Name: name,
			Field: k, Old: ov, New: nv,
		})
	}

	for tag, oldLangs := range old.Locales {
		curLangs, ok := cur.Locales[tag]
		if !ok {
			continue
		}
		for _, lang := range commonLangs(oldLangs, curLangs) {
			if oldLangs[lang] != curLangs[lang] {
				out = append(out, ScalarChange{
					Kind: ScalarProperty, Collection: collection, Name: name,
					Field: tag, Lang: lang,
					Old: oldLangs[lang], New: curLangs[lang],
				})
			}
		}
	}
	return out
}

// diffNameList compares plain membership lists (forms, templates).
func diffNameList(collection string, orig, mod []string) []ScalarChange {
	var out []ScalarChange
	origSet := map[string]struct{}{}
	for _, n := range orig {
		origSet[n] = struct{}{}
	}
	modSet := map[string]struct{}{}
	for _, n := range mod {
		modSet[n] = struct{}{}
	}
	for _, n := range orig {
		if _, ok := modSet[n]; !ok {
			out = append(out, ScalarChange{Kind: ScalarDeleted, Collection: collection, Name: n})
		}
	}
	for i, n := range mod {
		if _, ok := origSet[n]; !ok {
			out = append(out, ScalarChange{Kind: ScalarAdded, Collection: collection, Name: n, Index: i})
		}
	}
	return out
}

// commonLangs returns the languages present on both sides, sorted.
func commonLangs(a, b map[string]string) []string {
	var out []string
	for lang := range a {
		if _, ok := b[lang]; ok {
			out = append(out, lang)
		}
	}
	sort.Strings(out)
	return out
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
