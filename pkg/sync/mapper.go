package sync

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/itdeo/go-procgen/pkg/bsl"
	"github.com/itdeo/go-procgen/pkg/diff"
)

// Mapper translates diff output into patches against the currently loaded
// declarative document. It resolves entity names to sequence indices at
// mapping time, so patches address the document as it stands.
type Mapper struct {
	doc *yaml.Node
}

// NewMapper returns a mapper bound to the parsed declarative document.
func NewMapper(doc *yaml.Node) *Mapper {
	return &Mapper{doc: doc}
}

// fieldKeys maps export property names back to declarative keys.
var fieldKeys = map[string]string{
	"ReadOnly":          "read_only",
	"Visible":           "visible",
	"Enabled":           "enabled",
	"Width":             "width",
	"Height":            "height",
	"MultiLine":         "multi_line",
	"PasswordMode":      "password_mode",
	"Action":            "action",
	"Shortcut":          "shortcut",
	"DataPath":          "data_path",
	"Comment":           "comment",
	"Title":             "title",
	"ToolTip":           "tooltip",
	"Synonym":           "synonym",
	"InputHint":         "input_hint",
	"QueryText":         "query_text",
	"MainTable":         "main_table",
	"KeyParameter":      "key_parameter",
	"TitleLocation":     "title_location",
	"ShowTitle":         "show_title",
	"Representation":    "representation",
	"HorizontalStretch": "horizontal_stretch",
	"VerticalStretch":   "vertical_stretch",
}

// xmlTypes maps export type names back to canonical declarative types.
var xmlTypes = map[string]string{
	"xs:string":              "string",
	"xs:decimal":             "number",
	"xs:boolean":             "boolean",
	"xs:dateTime":            "date",
	"v8:BinaryData":          "binary_data",
	"v8:SpreadsheetDocument": "spreadsheet_document",
	"v8:UUID":                "uuid",
}

// MapScalarChanges turns flat-collection diff results into YAML patches.
// Renames additionally emit patches for every cross-reference the renamed
// entity has in the document.
func (m *Mapper) MapScalarChanges(changes []diff.ScalarChange) ([]Patch, error) {
	var out []Patch
	for _, ch := range changes {
		patches, err := m.mapScalarChange(ch)
		if err != nil {
			return nil, err
		}
		out = append(out, patches...)
	}
	return out, nil
}

func (m *Mapper) mapScalarChange(ch diff.ScalarChange) ([]Patch, error) {
	base, err := m.entityPath(ch.Collection, scalarChangeKeyName(ch))
	if err != nil {
		return nil, err
	}

	switch ch.Kind {
	case diff.ScalarProperty:
		if ch.Lang != "" {
			return m.multilangPatch(base, ch)
		}
		if strings.HasSuffix(ch.Collection, "events") {
			return []Patch{{
				Kind:        PatchYAMLScalar,
				Path:        base,
				Value:       ch.New,
				Description: fmt.Sprintf("event %s: handler %s -> %s", ch.Name, ch.Old, ch.New),
			}}, nil
		}
		key, ok := fieldKeys[ch.Field]
		if !ok {
			key = snakeName(ch.Field)
		}
		return []Patch{{
			Kind:        PatchYAMLScalar,
			Path:        base + "." + key,
			Value:       scalarValue(ch.New),
			Description: fmt.Sprintf("%s %s: %s %q -> %q", ch.Collection, ch.Name, key, ch.Old, ch.New),
		}}, nil

	case diff.ScalarType:
		fields := typeFields(ch.New)
		patches := make([]Patch, 0, len(fields))
		for _, f := range fields {
			patches = append(patches, Patch{
				Kind:        PatchYAMLScalar,
				Path:        base + "." + f.key,
				Value:       f.value,
				Description: fmt.Sprintf("%s %s: %s -> %v", ch.Collection, ch.Name, f.key, f.value),
			})
		}
		return patches, nil

	case diff.ScalarRenamed:
		patches := []Patch{{
			Kind:        PatchYAMLScalar,
			Path:        base + ".name",
			Value:       ch.Name,
			Description: fmt.Sprintf("%s: rename %s -> %s", ch.Collection, ch.OldName, ch.Name),
		}}
		patches = append(patches, m.renameReferences(ch.Collection, ch.OldName, ch.Name)...)
		return patches, nil

	case diff.ScalarAdded:
		parent, err := m.collectionPath(ch.Collection)
		if err != nil {
			return nil, err
		}
		return []Patch{{
			Kind:        PatchYAMLInsert,
			Path:        parent,
			Name:        ch.Name,
			Index:       ch.Index,
			Value:       entityData(ch.Entity),
			Description: fmt.Sprintf("%s: add %s", ch.Collection, ch.Name),
		}}, nil

	case diff.ScalarDeleted:
		parent, err := m.collectionPath(ch.Collection)
		if err != nil {
			return nil, err
		}
		return []Patch{{
			Kind:        PatchYAMLDelete,
			Path:        parent,
			Name:        ch.Name,
			Description: fmt.Sprintf("%s: delete %s", ch.Collection, ch.Name),
		}}, nil
	}
	return nil, nil
}

// multilangPatch rewrites one language of a pipe-delimited multilingual
// value in place, keeping the other languages as they stand in the
// document.
func (m *Mapper) multilangPatch(base string, ch diff.ScalarChange) ([]Patch, error) {
	key, ok := fieldKeys[ch.Field]
	if !ok {
		key = snakeName(ch.Field)
	}

	// A language-suffixed key in the document wins over the pipe form.
	suffixed := base + "." + key + "_" + ch.Lang
	if _, err := m.lookup(suffixed); err == nil {
		return []Patch{{
			Kind:        PatchYAMLScalar,
			Path:        suffixed,
			Value:       ch.New,
			Description: fmt.Sprintf("%s %s: %s[%s] %q -> %q", ch.Collection, ch.Name, key, ch.Lang, ch.Old, ch.New),
		}}, nil
	}

	langs := m.languages()
	current, err := m.lookup(base + "." + key)
	segments := make([]string, len(langs))
	if err == nil {
		for i, part := range strings.Split(current, "|") {
			if i < len(segments) {
				segments[i] = part
			}
		}
	}
	for i, lang := range langs {
		if lang == ch.Lang {
			segments[i] = strings.ReplaceAll(ch.New, "|", `\|`)
		}
	}
	return []Patch{{
		Kind:        PatchYAMLScalar,
		Path:        base + "." + key,
		Value:       strings.Join(segments, "|"),
		Description: fmt.Sprintf("%s %s: %s[%s] %q -> %q", ch.Collection, ch.Name, key, ch.Lang, ch.Old, ch.New),
	}}, nil
}

// renameReferences emits patches for document fields that referenced the
// old name: element attribute bindings for attribute renames, element
// command bindings for command renames, table bindings for section
// renames.
func (m *Mapper) renameReferences(collection, oldName, newName string) []Patch {
	var refKey string
	switch {
	case collection == "attributes", strings.HasSuffix(collection, ".columns"):
		refKey = "attribute"
	case strings.HasSuffix(collection, "commands"):
		refKey = "command"
	case collection == "tabular_sections":
		refKey = "tabular_section"
	default:
		return nil
	}

	var out []Patch
	root := m.root()
	forms := mappingValue(root, "forms")
	if forms == nil || forms.Kind != yaml.SequenceNode {
		return nil
	}
	for fi, form := range forms.Content {
		elements := mappingValue(deref(form), "elements")
		if elements == nil {
			continue
		}
		var walk func(seq *yaml.Node, path string)
		walk = func(seq *yaml.Node, path string) {
			if seq.Kind != yaml.SequenceNode {
				return
			}
			for i, item := range seq.Content {
				item = deref(item)
				itemPath := fmt.Sprintf("%s[%d]", path, i)
				if v := mappingValue(item, refKey); v != nil && v.Value == oldName {
					out = append(out, Patch{
						Kind:        PatchYAMLScalar,
						Path:        itemPath + "." + refKey,
						Value:       newName,
						Description: fmt.Sprintf("element %s: %s %s -> %s", itemName(item), refKey, oldName, newName),
					})
				}
				if children := mappingValue(item, "children"); children != nil {
					walk(children, itemPath+".children")
				}
			}
		}
		walk(elements, fmt.Sprintf("forms[%d].elements", fi))
	}
	return out
}

// MapTreeDelta turns a form's hierarchical delta into structural and
// scalar patches.
func (m *Mapper) MapTreeDelta(formName string, delta *diff.TreeDelta) ([]Patch, error) {
	formIdx, err := m.formIndex(formName)
	if err != nil {
		return nil, err
	}
	prefix := fmt.Sprintf("forms[%d]", formIdx)
	var out []Patch

	for _, ren := range delta.Renamed {
		out = append(out, Patch{
			Kind:        PatchYAMLScalar,
			Path:        prefix + yamlElementPath(ren.Path) + ".name",
			Value:       ren.NewName,
			Description: fmt.Sprintf("form %s: rename element %s -> %s", formName, ren.OldName, ren.NewName),
		})
	}
	for _, mod := range delta.Modified {
		for _, field := range diff.SortedDeltaKeys(mod.Delta) {
			d := mod.Delta[field]
			key, value := elementFieldPatch(field, d.New)
			if key == "" {
				continue
			}
			out = append(out, Patch{
				Kind:        PatchYAMLScalar,
				Path:        prefix + yamlElementPath(mod.Path) + "." + key,
				Value:       value,
				Description: fmt.Sprintf("form %s: element %s %s %q -> %q", formName, mod.Name, key, d.Old, d.New),
			})
		}
	}
	// Deletes first, in descending index order within a parent, so later
	// structural patches see stable indices.
	for i := len(delta.Deleted) - 1; i >= 0; i-- {
		del := delta.Deleted[i]
		out = append(out, Patch{
			Kind:        PatchYAMLDelete,
			Path:        prefix + yamlElementParent(del.Node.Path),
			Name:        del.Node.Name,
			Description: fmt.Sprintf("form %s: delete element %s", formName, del.Node.Name),
		})
	}
	for _, add := range delta.Added {
		out = append(out, Patch{
			Kind:        PatchYAMLInsert,
			Path:        prefix + yamlElementParent(add.Node.Path),
			Name:        add.Node.Name,
			Index:       add.Index,
			Value:       elementData(add.Node),
			Description: fmt.Sprintf("form %s: add element %s (%s)", formName, add.Node.Name, add.Node.Type),
		})
	}
	for _, mv := range delta.Moved {
		out = append(out, Patch{
			Kind:        PatchYAMLMove,
			Path:        prefix + yamlElementParent(mv.ToPath),
			Name:        mv.Name,
			Index:       mv.ToIndex,
			Description: fmt.Sprintf("form %s: move element %s to index %d", formName, mv.Name, mv.ToIndex),
		})
	}
	return out, nil
}

// MapHandlerChanges turns module-level procedure diffs into handler
// patches.
func (m *Mapper) MapHandlerChanges(changes []bsl.Change) []Patch {
	var out []Patch
	for _, ch := range changes {
		switch ch.Kind {
		case bsl.ProcedureAdded:
			out = append(out, Patch{
				Kind:        PatchHandlerAdd,
				Procedure:   ch.Name,
				Body:        ch.NewBody,
				Description: "handler added: " + ch.Name,
			})
		case bsl.ProcedureDeleted:
			out = append(out, Patch{
				Kind:        PatchHandlerDelete,
				Procedure:   ch.Name,
				OldBody:     ch.OldBody,
				Description: "handler deleted: " + ch.Name,
			})
		case bsl.ProcedureModified:
			out = append(out, Patch{
				Kind:        PatchHandlerModify,
				Procedure:   ch.Name,
				Body:        ch.NewBody,
				OldBody:     ch.OldBody,
				Description: "handler modified: " + ch.Name,
			})
		}
	}
	return out
}

// entityPath resolves "collection[.owner.columns]" plus an entity name to
// a concrete indexed path.
func (m *Mapper) entityPath(collection, name string) (string, error) {
	parent, err := m.collectionPath(collection)
	if err != nil {
		return "", err
	}
	if name == "" || collection == "processor" {
		return parent, nil
	}
	seq, err := m.node(parent)
	if err != nil {
		return "", err
	}
	if seq.Kind == yaml.MappingNode {
		// events map addressed by key
		return parent + "." + name, nil
	}
	for i, item := range seq.Content {
		if itemName(deref(item)) == name {
			return fmt.Sprintf("%s[%d]", parent, i), nil
		}
	}
	return "", fmt.Errorf("%w: %s has no entry %q", ErrPatchConflict, collection, name)
}

// collectionPath translates a diff collection label into a document path.
// Labels: "attributes", "tabular_sections", "tabular_sections.<ts>.columns",
// "forms.<form>.commands", "forms.<form>.events", …
func (m *Mapper) collectionPath(collection string) (string, error) {
	parts := strings.Split(collection, ".")
	switch parts[0] {
	case "processor":
		return "processor", nil
	case "attributes", "templates", "forms_list":
		return parts[0], nil
	case "tabular_sections":
		if len(parts) == 1 {
			return "tabular_sections", nil
		}
		idx, err := m.indexIn("tabular_sections", parts[1])
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("tabular_sections[%d].columns", idx), nil
	case "forms":
		if len(parts) == 1 {
			return "forms", nil
		}
		idx, err := m.formIndex(parts[1])
		if err != nil {
			return "", err
		}
		section := parts[len(parts)-1]
		return fmt.Sprintf("forms[%d].%s", idx, section), nil
	}
	return "", fmt.Errorf("%w: unknown collection %q", ErrPatchConflict, collection)
}

func (m *Mapper) root() *yaml.Node {
	root, _ := documentRoot(m.doc)
	return root
}

func (m *Mapper) node(path string) (*yaml.Node, error) {
	segs, err := parsePath(path)
	if err != nil {
		return nil, err
	}
	return resolve(m.root(), segs)
}

func (m *Mapper) lookup(path string) (string, error) {
	n, err := m.node(path)
	if err != nil {
		return "", err
	}
	return n.Value, nil
}

func (m *Mapper) indexIn(section, name string) (int, error) {
	seq, err := m.node(section)
	if err != nil {
		return 0, err
	}
	for i, item := range seq.Content {
		if itemName(deref(item)) == name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: %s has no entry %q", ErrPatchConflict, section, name)
}

func (m *Mapper) formIndex(name string) (int, error) {
	return m.indexIn("forms", name)
}

// languages reads the document's language list, defaulting to the
// standard three.
func (m *Mapper) languages() []string {
	seq, err := m.node("languages")
	if err != nil || seq.Kind != yaml.SequenceNode || len(seq.Content) == 0 {
		return []string{"ru", "uk", "en"}
	}
	out := make([]string, 0, len(seq.Content))
	for _, item := range seq.Content {
		out = append(out, item.Value)
	}
	return out
}

// scalarChangeKeyName returns the name the entity is currently stored
// under in the document: the old name for renames, nothing for membership
// changes, the entity name otherwise.
func scalarChangeKeyName(ch diff.ScalarChange) string {
	if ch.Kind == diff.ScalarRenamed {
		return ch.OldName
	}
	if ch.Kind == diff.ScalarAdded || ch.Kind == diff.ScalarDeleted {
		return ""
	}
	return ch.Name
}

// yamlElementPath converts a diff tree path into a document path under a
// form: ".elements[1].child_items[0]" -> ".elements[1].children[0]".
func yamlElementPath(path string) string {
	return strings.ReplaceAll(path, ".child_items[", ".children[")
}

// yamlElementParent returns the document path of the sequence containing
// the node at path.
func yamlElementParent(path string) string {
	converted := yamlElementPath(path)
	if i := strings.LastIndex(converted, "["); i >= 0 {
		return converted[:i]
	}
	return converted
}

// elementFieldPatch maps an export property delta onto an element's
// declarative key and value. Unknown properties patch into the element
// mapping under their snake-case name.
func elementFieldPatch(field, newValue string) (string, any) {
	if strings.HasPrefix(field, "Title.") {
		return "", nil // multilingual element titles ride on the properties map
	}
	if strings.HasPrefix(field, "event:") {
		return "", nil
	}
	if field == "DataPath" {
		return "", nil // bindings change through attribute renames, not path edits
	}
	key, ok := fieldKeys[field]
	if !ok {
		key = snakeName(field)
	}
	return key, scalarValue(newValue)
}

// elementData reconstructs the declarative form of an element added in
// the designer.
func elementData(node *diff.ElementNode) map[string]any {
	out := map[string]any{
		"type": node.Type,
		"name": node.Name,
	}
	if dp := node.Properties["DataPath"]; dp != "" {
		out["attribute"] = attributeFromDataPath(dp)
	}
	if cmd := node.Properties["CommandName"]; cmd != "" {
		out["command"] = strings.TrimPrefix(cmd, "Form.Command.")
	}
	for field, value := range node.Properties {
		switch field {
		case "DataPath", "CommandName":
			continue
		}
		if strings.HasPrefix(field, "event:") {
			continue
		}
		key, ok := fieldKeys[field]
		if !ok {
			key = snakeName(field)
		}
		out[key] = scalarValue(value)
	}
	if title, ok := node.Locales["Title"]; ok && len(title) > 0 {
		for lang, v := range title {
			out["title_"+lang] = v
		}
	}
	if len(node.Children) > 0 {
		children := make([]map[string]any, 0, len(node.Children))
		for _, child := range node.Children {
			children = append(children, elementData(child))
		}
		out["children"] = children
	}
	return out
}

// entityData reconstructs the declarative form of a flat entity added in
// the designer.
func entityData(ent *diff.Entity) map[string]any {
	out := map[string]any{"name": ent.Name}
	for field, value := range ent.Properties {
		if field == "Type" {
			for _, f := range typeFields(value) {
				out[f.key] = f.value
			}
			continue
		}
		key, ok := fieldKeys[field]
		if !ok {
			key = snakeName(field)
		}
		out[key] = scalarValue(value)
	}
	for tag, langs := range ent.Locales {
		key, ok := fieldKeys[tag]
		if !ok {
			key = snakeName(tag)
		}
		for lang, v := range langs {
			out[key+"_"+lang] = v
		}
	}
	if len(ent.Children) > 0 {
		cols := make([]map[string]any, 0, len(ent.Children))
		for i := range ent.Children {
			cols = append(cols, entityData(&ent.Children[i]))
		}
		out["columns"] = cols
	}
	return out
}

// attributeFromDataPath strips the object prefix and collection segments
// off an export data path, leaving the declarative attribute name.
func attributeFromDataPath(path string) string {
	for _, prefix := range []string{"Объект.", "Object."} {
		path = strings.TrimPrefix(path, prefix)
	}
	if i := strings.LastIndex(path, "."); i >= 0 {
		return path[i+1:]
	}
	return path
}

type typedField struct {
	key   string
	value any
}

// typeFields decomposes a flattened export type block into declarative
// type keys.
func typeFields(flat string) []typedField {
	var out []typedField
	for _, part := range strings.Split(flat, ",") {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "Type":
			if canonical, ok := xmlTypes[kv[1]]; ok {
				out = append(out, typedField{"type", canonical})
			} else {
				out = append(out, typedField{"type", kv[1]})
			}
		case "Length":
			out = append(out, typedField{"length", atoiOr(kv[1])})
		case "Digits":
			out = append(out, typedField{"digits", atoiOr(kv[1])})
		case "FractionDigits":
			out = append(out, typedField{"fraction_digits", atoiOr(kv[1])})
		}
	}
	return out
}

func atoiOr(s string) any {
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return s
}

// scalarValue maps export scalar text onto the natural YAML value.
func scalarValue(s string) any {
	switch s {
	case "true":
		return true
	case "false":
		return false
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return s
}

var upperRunRe = regexp.MustCompile(`([a-zа-я0-9])([A-ZА-Я])`)

// snakeName converts an export element name into a declarative key.
func snakeName(name string) string {
	return strings.ToLower(upperRunRe.ReplaceAllString(name, "${1}_${2}"))
}
