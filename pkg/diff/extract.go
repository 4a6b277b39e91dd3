package diff

import (
	"fmt"
	"strings"
)

// ElementNode is one UI element lifted out of a form descriptor. Identity
// across versions is (Name, Type); Path is the canonical address of its
// position in the tree.
type ElementNode struct {
	Name       string
	Type       string
	Properties map[string]string
	Locales    map[string]map[string]string
	Children   []*ElementNode
	Path       string
}

// localeTags are multilingual property blocks folded into Locales rather
// than Properties.
var localeTags = map[string]struct{}{
	"Title": {}, "ToolTip": {}, "InputHint": {}, "Synonym": {},
}

// structuralTags never land in the property map.
var structuralTags = map[string]struct{}{
	"ChildItems": {}, "ExtendedTooltip": {}, "ContextMenu": {}, "SearchStringAddition": {},
	"ViewStatusAddition": {}, "SearchControlAddition": {},
}

// ExtractFormElements lifts the element hierarchy out of a parsed
// Form.xml, rooted at its ChildItems. Paths follow the
// `.elements[i].child_items[j]` grammar.
func ExtractFormElements(form *Node) []*ElementNode {
	items := form.Child("ChildItems")
	if items == nil {
		return nil
	}
	var out []*ElementNode
	for i, child := range items.Children {
		out = append(out, extractElement(child, fmt.Sprintf(".elements[%d]", i)))
	}
	return out
}

func extractElement(n *Node, path string) *ElementNode {
	el := &ElementNode{
		Name:       n.Attr("name"),
		Type:       n.Name,
		Path:       path,
		Properties: map[string]string{},
		Locales:    map[string]map[string]string{},
	}
	for _, child := range n.Children {
		if _, skip := structuralTags[child.Name]; skip {
			continue
		}
		if _, loc := localeTags[child.Name]; loc {
			el.Locales[child.Name] = n.LocaleText(child.Name)
			continue
		}
		if child.Name == "Events" {
			for _, ev := range child.ChildrenNamed("Event") {
				el.Properties["event:"+ev.Attr("name")] = ev.Text
			}
			continue
		}
		if len(child.Children) == 0 {
			el.Properties[child.Name] = child.Text
		}
	}
	if items := n.Child("ChildItems"); items != nil {
		for i, child := range items.Children {
			el.Children = append(el.Children,
				extractElement(child, fmt.Sprintf("%s.child_items[%d]", path, i)))
		}
	}
	return el
}

// fingerprint captures the structural identity used for rename
// detection: the tag, the child count and the sibling position.
func (e *ElementNode) fingerprint() string {
	return fmt.Sprintf("%s/%d/%s", e.Type, len(e.Children), siblingIndex(e.Path))
}

// parentPath strips the last path segment.
func parentPath(path string) string {
	if i := strings.LastIndex(path, "."); i > 0 {
		return path[:i]
	}
	return ""
}

func siblingIndex(path string) string {
	if i := strings.LastIndex(path, "["); i >= 0 {
		return strings.TrimSuffix(path[i+1:], "]")
	}
	return ""
}

// Entity is one flat, name-keyed object of the root descriptor or a
// form's scalar sections: an attribute, command, tabular section, column,
// template or parameter.
type Entity struct {
	Name       string
	Kind       string
	Properties map[string]string
	Locales    map[string]map[string]string
	Children   []Entity // tabular-section / value-table columns
}

// ExtractedProcessor is the flat view of a root descriptor used by the
// scalar differ.
type ExtractedProcessor struct {
	Name            string
	Synonym         map[string]string
	Attributes      []Entity
	TabularSections []Entity
	Forms           []string
	Templates       []string
}

// ExtractProcessor reads the flat collections out of a parsed root
// descriptor.
func ExtractProcessor(root *Node) (*ExtractedProcessor, error) {
	body := root.Child("ExternalDataProcessor")
	if body == nil {
		return nil, fmt.Errorf("%w: no ExternalDataProcessor element", ErrMalformedXML)
	}
	props := body.Child("Properties")
	if props == nil {
		return nil, fmt.Errorf("%w: no Properties element", ErrMalformedXML)
	}
	out := &ExtractedProcessor{
		Name:    props.ChildText("Name"),
		Synonym: props.LocaleText("Synonym"),
	}
	children := body.Child("ChildObjects")
	if children == nil {
		return out, nil
	}
	for _, child := range children.Children {
		switch child.Name {
		case "Attribute":
			out.Attributes = append(out.Attributes, extractEntity(child, "attribute"))
		case "TabularSection":
			ts := extractEntity(child, "tabular_section")
			if nested := child.Child("ChildObjects"); nested != nil {
				for _, col := range nested.ChildrenNamed("Attribute") {
					ts.Children = append(ts.Children, extractEntity(col, "column"))
				}
			}
			out.TabularSections = append(out.TabularSections, ts)
		case "Form":
			out.Forms = append(out.Forms, child.Text)
		case "Template":
			out.Templates = append(out.Templates, child.Text)
		}
	}
	return out, nil
}

// ExtractedForm is the flat view of a form descriptor's non-hierarchical
// sections.
type ExtractedForm struct {
	Commands       []Entity
	FormAttributes []Entity
	Parameters     []Entity
	Events         map[string]string
}

// ExtractFormScalars reads the flat sections out of a parsed Form.xml.
func ExtractFormScalars(form *Node) *ExtractedForm {
	out := &ExtractedForm{Events: map[string]string{}}
	if events := form.Child("Events"); events != nil {
		for _, ev := range events.ChildrenNamed("Event") {
			out.Events[ev.Attr("name")] = ev.Text
		}
	}
	if cmds := form.Child("Commands"); cmds != nil {
		for _, cmd := range cmds.ChildrenNamed("Command") {
			out.Commands = append(out.Commands, extractEntity(cmd, "command"))
		}
	}
	if attrs := form.Child("Attributes"); attrs != nil {
		for _, attr := range attrs.ChildrenNamed("Attribute") {
			ent := extractEntity(attr, "form_attribute")
			if cols := attr.Child("Columns"); cols != nil {
				for _, col := range cols.ChildrenNamed("Column") {
					ent.Children = append(ent.Children, extractEntity(col, "column"))
				}
			}
			out.FormAttributes = append(out.FormAttributes, ent)
		}
	}
	if params := form.Child("Parameters"); params != nil {
		for _, p := range params.ChildrenNamed("Parameter") {
			out.Parameters = append(out.Parameters, extractEntity(p, "parameter"))
		}
	}
	return out
}

// extractEntity folds an XML object into a flat entity: locale blocks into
// Locales, scalar leaves (including those under Properties) into
// Properties, the type block into a normalized "Type" string.
func extractEntity(n *Node, kind string) Entity {
	ent := Entity{
		Kind:       kind,
		Name:       n.Attr("name"),
		Properties: map[string]string{},
		Locales:    map[string]map[string]string{},
	}
	fold := func(owner *Node) {
		for _, child := range owner.Children {
			switch {
			case child.Name == "Name":
				ent.Name = child.Text
			case child.Name == "Type":
				ent.Properties["Type"] = flattenType(child)
			case hasLocaleItems(child):
				ent.Locales[child.Name] = owner.LocaleText(child.Name)
			case len(child.Children) == 0 && child.Text != "":
				ent.Properties[child.Name] = child.Text
			}
		}
	}
	if props := n.Child("Properties"); props != nil {
		fold(props)
	} else {
		fold(n)
	}
	return ent
}

func hasLocaleItems(n *Node) bool {
	for _, c := range n.Children {
		if c.Name == "item" {
			return true
		}
	}
	return false
}

// flattenType renders a v8 type block into a single comparable string,
// qualifiers included.
func flattenType(n *Node) string {
	var parts []string
	var walk func(node *Node)
	walk = func(node *Node) {
		if len(node.Children) == 0 {
			if node.Text != "" {
				parts = append(parts, node.Name+"="+node.Text)
			}
			return
		}
		for _, c := range node.Children {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(parts, ",")
}
