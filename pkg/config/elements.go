package config

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/itdeo/go-procgen/internal/model"
	"github.com/itdeo/go-procgen/internal/schema"
)

// reservedElementKeys are structural keys handled outside the schema table.
var reservedElementKeys = map[string]struct{}{
	"type": {}, "name": {}, "attribute": {}, "command": {},
	"tabular_section": {}, "value_table": {}, "value_tree": {},
	"dynamic_list": {}, "events": {},
	"elements": {}, "pages": {}, "child_items": {},
}

// parseElement builds one UI node, resolving the element type through the
// alias table and recursing into children per the schema's children key.
// A nil result with nil error means the node was dropped with a warning.
func (p *parser) parseElement(n *yaml.Node, formName string) (*model.FormElement, error) {
	rawType := stringAt(n, "type")
	if rawType == "" {
		return nil, malformedf("form %s: element without a type", formName)
	}
	typ, ok := schema.CanonicalElementType(rawType)
	if !ok {
		if hint := schema.Suggest(rawType); hint != "" {
			return nil, malformedf("form %s: unknown element type %q, did you mean %q?", formName, rawType, hint)
		}
		return nil, malformedf("form %s: unknown element type %q", formName, rawType)
	}
	spec, _ := schema.Get(typ)

	el := &model.FormElement{
		Type: typ,
		Name: stringAt(n, "name"),
	}
	if el.Name == "" {
		return nil, malformedf("form %s: %s element without a name", formName, typ)
	}

	if spec.HasAttribute {
		el.Attribute = stringAt(n, "attribute")
	}
	if spec.HasCommand {
		el.CommandName = stringAt(n, "command")
		if el.CommandName == "" {
			return nil, malformedf("form %s: button %s without a command", formName, el.Name)
		}
	}
	if spec.HasTabularSection {
		if err := p.bindTableSource(el, n, formName); err != nil {
			return nil, err
		}
	}

	el.Events = eventBindings(mapLookup(n, "events"))

	props, err := p.extractProps(n, spec, formName, el.Name)
	if err != nil {
		return nil, err
	}
	el.Properties = props

	if spec.HasChildren {
		key := schema.ChildrenKeyOf(typ)
		for _, cn := range seqItems(mapLookup(n, key)) {
			child, err := p.parseElement(cn, formName)
			if err != nil {
				return nil, err
			}
			if child == nil {
				continue
			}
			if typ == "ColumnGroup" {
				if _, allowed := schema.ColumnGroupAllowedChildren[child.Type]; !allowed {
					p.warnf("form %s: ColumnGroup %s drops unsupported child %s (%s)",
						formName, el.Name, child.Name, child.Type)
					continue
				}
			}
			el.Children = append(el.Children, child)
		}
	}

	return el, nil
}

// bindTableSource resolves which data collection a Table element shows. The
// source key doubles as a marker for form-local collections.
func (p *parser) bindTableSource(el *model.FormElement, n *yaml.Node, formName string) error {
	type binding struct {
		key  string
		prop string
	}
	bound := ""
	for _, b := range []binding{
		{key: "tabular_section"},
		{key: "value_table", prop: "is_value_table"},
		{key: "value_tree", prop: "is_value_table"},
		{key: "dynamic_list", prop: "is_dynamic_list"},
	} {
		v := stringAt(n, b.key)
		if v == "" {
			continue
		}
		if bound != "" {
			return malformedf("form %s: table %s binds both %s and %s", formName, el.Name, bound, b.key)
		}
		bound = b.key
		el.TabularSection = v
		if b.prop != "" {
			if el.Properties == nil {
				el.Properties = map[string]any{}
			}
			el.Properties[b.prop] = true
		}
	}
	if bound == "" {
		return malformedf("form %s: table %s has no data source", formName, el.Name)
	}
	return nil
}

// extractProps pulls schema-declared properties from the element node. The
// multilingual ones expand to per-language keys; the rest carry defaults
// when the schema declares them.
func (p *parser) extractProps(n *yaml.Node, spec schema.ElementSchema, formName, elName string) (map[string]any, error) {
	props := map[string]any{}
	known := map[string]struct{}{}

	for _, ps := range spec.Props {
		known[ps.Key] = struct{}{}
		if ps.Multilang {
			for _, lang := range p.languages {
				known[ps.Key+"_"+lang] = struct{}{}
			}
			ls, err := p.multilangProp(n, ps.Key)
			if err != nil {
				return nil, fmt.Errorf("form %s element %s: %w", formName, elName, err)
			}
			if ls == nil {
				continue
			}
			for _, lang := range p.languages {
				if v := ls.Get(lang); v != "" {
					props[ps.Key+"_"+lang] = v
				}
			}
			continue
		}
		target := ps.Target
		if target == "" {
			target = ps.Key
		}
		if vn := mapLookup(n, ps.Key); vn != nil {
			props[target] = decodeAny(vn)
		} else if ps.Default != nil {
			props[target] = ps.Default
		}
	}

	for _, e := range mapEntries(n) {
		if _, reserved := reservedElementKeys[e.key]; reserved {
			continue
		}
		if _, ok := known[e.key]; !ok {
			p.warnf("form %s: element %s (%s) ignores unknown property %q",
				formName, elName, spec.ElementType, e.key)
		}
	}
	return props, nil
}

// multilangProp reads one multilingual property in either the unified or the
// suffixed spelling; nil means the property is absent.
func (p *parser) multilangProp(n *yaml.Node, key string) (*model.LocalizedString, error) {
	if unified := mapLookup(n, key); unified != nil {
		ls, err := p.localized(unified, "")
		if err != nil {
			return nil, err
		}
		return &ls, nil
	}
	var out model.LocalizedString
	found := false
	for _, lang := range p.languages {
		if v := stringAt(n, key+"_"+lang); v != "" {
			out.Set(lang, v)
			found = true
		}
	}
	if !found {
		return nil, nil
	}
	fillMissing(&out, p.languages)
	return &out, nil
}
