package bsl

import (
	"regexp"
	"strings"
)

// ChangeKind classifies one handler-source change.
type ChangeKind string

const (
	ProcedureAdded    ChangeKind = "procedure_added"
	ProcedureDeleted  ChangeKind = "procedure_deleted"
	ProcedureModified ChangeKind = "procedure_modified"
	RegionAdded       ChangeKind = "region_added"
	RegionDeleted     ChangeKind = "region_deleted"
)

// Change is one detected difference between two handler sources.
type Change struct {
	Kind    ChangeKind
	Name    string
	OldBody string
	NewBody string
}

var (
	lineCommentRe = regexp.MustCompile(`//[^\n]*`)
	whitespaceRe  = regexp.MustCompile(`\s+`)
	regionNameRe  = regexp.MustCompile(`(?m)^#(?:Область|Region)[ \t]+(\S+)`)
)

// NormalizeBody reduces a procedure text to its comparable core: comments
// stripped, whitespace collapsed. Two bodies that differ only in comments
// or formatting normalize to the same string.
func NormalizeBody(src string) string {
	src = lineCommentRe.ReplaceAllString(src, "")
	src = whitespaceRe.ReplaceAllString(src, " ")
	return strings.TrimSpace(src)
}

// DiffModules compares two handler sources procedure by procedure, then
// region by region. Order of the result is stable: deletions and
// modifications in old-source order, additions in new-source order.
func DiffModules(oldSrc, newSrc string) []Change {
	oldSplit := Split(oldSrc)
	newSplit := Split(newSrc)

	var changes []Change

	for _, name := range oldSplit.Procedures.Names() {
		oldProc, _ := oldSplit.Procedures.Get(name)
		newProc, ok := newSplit.Procedures.Get(name)
		if !ok {
			changes = append(changes, Change{Kind: ProcedureDeleted, Name: name, OldBody: oldProc.Full})
			continue
		}
		if NormalizeBody(oldProc.Full) != NormalizeBody(newProc.Full) {
			changes = append(changes, Change{
				Kind:    ProcedureModified,
				Name:    name,
				OldBody: oldProc.Full,
				NewBody: newProc.Full,
			})
		}
	}
	for _, name := range newSplit.Procedures.Names() {
		if _, ok := oldSplit.Procedures.Get(name); !ok {
			proc, _ := newSplit.Procedures.Get(name)
			changes = append(changes, Change{Kind: ProcedureAdded, Name: name, NewBody: proc.Full})
		}
	}

	oldRegions := regionNames(oldSrc)
	newRegions := regionNames(newSrc)
	for _, name := range oldRegions.order {
		if _, ok := newRegions.set[name]; !ok {
			changes = append(changes, Change{Kind: RegionDeleted, Name: name})
		}
	}
	for _, name := range newRegions.order {
		if _, ok := oldRegions.set[name]; !ok {
			changes = append(changes, Change{Kind: RegionAdded, Name: name})
		}
	}
	return changes
}

type regionIndex struct {
	order []string
	set   map[string]struct{}
}

func regionNames(src string) regionIndex {
	idx := regionIndex{set: map[string]struct{}{}}
	for _, m := range regionNameRe.FindAllStringSubmatch(src, -1) {
		if _, dup := idx.set[m[1]]; dup {
			continue
		}
		idx.set[m[1]] = struct{}{}
		idx.order = append(idx.order, m[1])
	}
	return idx
}
