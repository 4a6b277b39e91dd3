package diff

import (
	"sort"
	"strconv"
	"strings"
)

// PropertyDelta is one changed property value.
type PropertyDelta struct {
	Old string
	New string
}

// AddedNode is an element present only in the modified tree.
type AddedNode struct {
	Node       *ElementNode
	ParentPath string
	Index      int
}

// DeletedNode is an element present only in the original tree.
type DeletedNode struct {
	Node *ElementNode
}

// MovedNode is an element whose position changed.
type MovedNode struct {
	Name     string
	Type     string
	FromPath string
	ToPath   string
	ToIndex  int
}

// ModifiedNode is an element whose properties changed in place.
type ModifiedNode struct {
	Name  string
	Type  string
	Path  string
	Delta map[string]PropertyDelta
}

// RenamedNode pairs a delete candidate with an add candidate that share
// position and structural fingerprint.
type RenamedNode struct {
	Type    string
	Path    string
	OldName string
	NewName string
}

// TreeDelta is the full outcome of a hierarchical diff.
type TreeDelta struct {
	Added    []AddedNode
	Deleted  []DeletedNode
	Moved    []MovedNode
	Modified []ModifiedNode
	Renamed  []RenamedNode
}

// Empty reports whether the delta carries no changes.
func (d *TreeDelta) Empty() bool {
	return len(d.Added) == 0 && len(d.Deleted) == 0 && len(d.Moved) == 0 &&
		len(d.Modified) == 0 && len(d.Renamed) == 0
}

type identity struct {
	name string
	typ  string
}

func flatten(roots []*ElementNode) (map[identity]*ElementNode, []*ElementNode) {
	index := map[identity]*ElementNode{}
	var order []*ElementNode
	var walk func(nodes []*ElementNode)
	walk = func(nodes []*ElementNode) {
		for _, n := range nodes {
			index[identity{n.Name, n.Type}] = n
			order = append(order, n)
			walk(n.Children)
		}
	}
	walk(roots)
	return index, order
}

// DiffTrees computes the delta between two element hierarchies. Identity
// is (name, type); nodes found in both trees are compared by path and by
// properties, the remainder goes through rename adjudication before
// landing in added/deleted.
func DiffTrees(original, modified []*ElementNode) *TreeDelta {
	oldIndex, oldOrder := flatten(original)
	newIndex, newOrder := flatten(modified)

	delta := &TreeDelta{}
	var added []*ElementNode

	for _, n := range newOrder {
		old, ok := oldIndex[identity{n.Name, n.Type}]
		if !ok {
			added = append(added, n)
			continue
		}
		if old.Path != n.Path {
			delta.Moved = append(delta.Moved, MovedNode{
				Name:     n.Name,
				Type:     n.Type,
				FromPath: old.Path,
				ToPath:   n.Path,
				ToIndex:  pathIndex(n.Path),
			})
		}
		if d := propertyDelta(old, n); len(d) > 0 {
			delta.Modified = append(delta.Modified, ModifiedNode{
				Name: n.Name, Type: n.Type, Path: n.Path, Delta: d,
			})
		}
	}

	var deleted []*ElementNode
	for _, n := range oldOrder {
		if _, ok := newIndex[identity{n.Name, n.Type}]; !ok {
			deleted = append(deleted, n)
		}
	}

	// Rename adjudication: a deleted node and an added node sharing parent
	// and structural fingerprint are the same element under a new name.
	usedAdds := map[int]bool{}
	var unmatchedDels []*ElementNode
	for _, old := range deleted {
		matched := false
		for i, add := range added {
			if usedAdds[i] {
				continue
			}
			if parentPath(old.Path) == parentPath(add.Path) && old.fingerprint() == add.fingerprint() {
				delta.Renamed = append(delta.Renamed, RenamedNode{
					Type:    old.Type,
					Path:    add.Path,
					OldName: old.Name,
					NewName: add.Name,
				})
				usedAdds[i] = true
				matched = true
				break
			}
		}
		if !matched {
			unmatchedDels = append(unmatchedDels, old)
		}
	}

	// Whole new or removed subtrees report only their root: the root node
	// carries its children, so descendants would double up.
	deletedPaths := map[string]bool{}
	for _, old := range unmatchedDels {
		deletedPaths[old.Path] = true
	}
	for _, old := range unmatchedDels {
		if hasAncestorIn(old.Path, deletedPaths) {
			continue
		}
		delta.Deleted = append(delta.Deleted, DeletedNode{Node: old})
	}

	addedPaths := map[string]bool{}
	for i, add := range added {
		if !usedAdds[i] {
			addedPaths[add.Path] = true
		}
	}
	for i, add := range added {
		if usedAdds[i] || hasAncestorIn(add.Path, addedPaths) {
			continue
		}
		delta.Added = append(delta.Added, AddedNode{
			Node:       add,
			ParentPath: parentPath(add.Path),
			Index:      pathIndex(add.Path),
		})
	}
	return delta
}

func hasAncestorIn(path string, set map[string]bool) bool {
	for p := range set {
		if p != path && strings.HasPrefix(path, p+".") {
			return true
		}
	}
	return false
}

func pathIndex(path string) int {
	idx, err := strconv.Atoi(siblingIndex(path))
	if err != nil {
		return 0
	}
	return idx
}

// propertyDelta compares scalar properties and multilingual blocks.
// Languages present on only one side are ignored.
func propertyDelta(old, mod *ElementNode) map[string]PropertyDelta {
	out := map[string]PropertyDelta{}

	keys := map[string]struct{}{}
	for k := range old.Properties {
		keys[k] = struct{}{}
	}
	for k := range mod.Properties {
		keys[k] = struct{}{}
	}
	for k := range keys {
		ov, nv := old.Properties[k], mod.Properties[k]
		if ov != nv {
			out[k] = PropertyDelta{Old: ov, New: nv}
		}
	}

	for tag, oldLangs := range old.Locales {
		newLangs, ok := mod.Locales[tag]
		if !ok {
			continue
		}
		for lang, ov := range oldLangs {
			nv, ok := newLangs[lang]
			if !ok {
				continue
			}
			if ov != nv {
				out[tag+"."+lang] = PropertyDelta{Old: ov, New: nv}
			}
		}
	}
	return out
}

// SortedDeltaKeys returns a delta's keys in stable order for reporting.
func SortedDeltaKeys(delta map[string]PropertyDelta) []string {
	keys := make([]string, 0, len(delta))
	for k := range delta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
