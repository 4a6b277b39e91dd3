package sync

// PatchKind classifies a mapped patch by the apply mechanism it needs.
type PatchKind string

const (
	PatchYAMLScalar PatchKind = "yaml_scalar"
	PatchYAMLInsert PatchKind = "yaml_insert"
	PatchYAMLDelete PatchKind = "yaml_delete"
	PatchYAMLMove   PatchKind = "yaml_move"

	PatchHandlerAdd    PatchKind = "handler_add"
	PatchHandlerModify PatchKind = "handler_modify"
	PatchHandlerDelete PatchKind = "handler_delete"
)

// Patch is one approved-or-pending change against the declarative source
// or the handler source.
type Patch struct {
	Kind PatchKind

	// YAML patches. Path addresses the target for scalar sets and the
	// parent sequence for structural operations.
	Path  string
	Name  string
	Index int
	Value any

	// Handler patches.
	Procedure string
	Body      string
	OldBody   string

	// Presentation.
	Description string

	// Filled by the reference checker for deletes.
	References []string
}

// IsStructural reports whether the patch changes YAML structure rather
// than a scalar value.
func (p Patch) IsStructural() bool {
	switch p.Kind {
	case PatchYAMLInsert, PatchYAMLDelete, PatchYAMLMove:
		return true
	}
	return false
}

// IsHandler reports whether the patch targets the handler source.
func (p Patch) IsHandler() bool {
	switch p.Kind {
	case PatchHandlerAdd, PatchHandlerModify, PatchHandlerDelete:
		return true
	}
	return false
}
