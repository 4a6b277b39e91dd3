package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/itdeo/go-procgen/internal/model"
)

func (p *parser) parseForms(proc *model.Processor, root *yaml.Node) error {
	for _, n := range seqItems(mapLookup(root, "forms")) {
		merged, err := p.resolveInclude(n)
		if err != nil {
			return err
		}
		form, err := p.parseForm(merged)
		if err != nil {
			return err
		}
		for _, existing := range proc.Forms {
			if existing.Name == form.Name {
				return malformedf("duplicate form %q", form.Name)
			}
		}
		proc.Forms = append(proc.Forms, form)
	}
	if len(proc.Forms) == 1 {
		proc.Forms[0].Default = true
	}
	return nil
}

// resolveInclude merges a form entry with its include target. Keys present
// on the outer entry win; included keys fill the gaps.
func (p *parser) resolveInclude(n *yaml.Node) (*yaml.Node, error) {
	include := stringAt(n, "include")
	if include == "" {
		return n, nil
	}
	full := include
	if !filepath.IsAbs(full) {
		full = filepath.Join(p.dir, include)
	}
	raw, err := os.ReadFile(full)
	if err != nil {
		return nil, malformedf("form include %s: %v", include, err)
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, malformedf("form include %s: %v", include, err)
	}
	inner := unwrapDoc(&doc)
	if inner == nil || inner.Kind != yaml.MappingNode {
		return nil, malformedf("form include %s: root must be a mapping", include)
	}

	merged := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	outerKeys := map[string]struct{}{}
	for i := 0; i+1 < len(n.Content); i += 2 {
		key := n.Content[i].Value
		if key == "include" {
			continue
		}
		outerKeys[key] = struct{}{}
		merged.Content = append(merged.Content, n.Content[i], n.Content[i+1])
	}
	for i := 0; i+1 < len(inner.Content); i += 2 {
		if _, taken := outerKeys[inner.Content[i].Value]; taken {
			continue
		}
		merged.Content = append(merged.Content, inner.Content[i], inner.Content[i+1])
	}
	return merged, nil
}

func (p *parser) parseForm(n *yaml.Node) (*model.Form, error) {
	name := stringAt(n, "name")
	if name == "" {
		return nil, malformedf("form without a name")
	}
	form := &model.Form{
		Name:    name,
		Default: boolAt(n, "default", false),
		UUID:    newUUID(),
	}

	syn, err := p.localizedField(n, "synonym", name)
	if err != nil {
		return nil, err
	}
	form.Synonym = syn

	if err := p.resolveHandlers(form, n); err != nil {
		return nil, err
	}
	if doc := stringAt(n, "documentation_file"); doc != "" {
		body, err := p.readRelative(doc)
		if err != nil {
			return nil, err
		}
		form.Documentation = body
	}

	form.Events = eventBindings(mapLookup(n, "events"))

	for _, pn := range seqItems(mapLookup(n, "parameters")) {
		param, err := p.parseFormParameter(pn, name)
		if err != nil {
			return nil, err
		}
		form.Parameters = append(form.Parameters, param)
	}
	for _, fn := range seqItems(mapLookup(n, "form_attributes")) {
		fa, err := p.parseFormAttribute(fn, name)
		if err != nil {
			return nil, err
		}
		form.FormAttributes = append(form.FormAttributes, fa)
	}
	for _, vn := range seqItems(mapLookup(n, "value_tables")) {
		vt, err := p.parseValueTable(vn, name, false)
		if err != nil {
			return nil, err
		}
		form.ValueTables = append(form.ValueTables, vt)
	}
	for _, vn := range seqItems(mapLookup(n, "value_trees")) {
		vt, err := p.parseValueTable(vn, name, true)
		if err != nil {
			return nil, err
		}
		form.ValueTrees = append(form.ValueTrees, vt)
	}
	for _, dn := range seqItems(mapLookup(n, "dynamic_lists")) {
		dl, err := p.parseDynamicList(dn, name)
		if err != nil {
			return nil, err
		}
		form.DynamicLists = append(form.DynamicLists, dl)
	}
	for _, cn := range seqItems(mapLookup(n, "commands")) {
		cmd, err := p.parseCommand(cn, name)
		if err != nil {
			return nil, err
		}
		if form.FindCommand(cmd.Name) != nil {
			return nil, malformedf("form %s: duplicate command %q", name, cmd.Name)
		}
		form.Commands = append(form.Commands, cmd)
	}
	for _, en := range seqItems(mapLookup(n, "elements")) {
		el, err := p.parseElement(en, name)
		if err != nil {
			return nil, err
		}
		if el != nil {
			form.Elements = append(form.Elements, el)
		}
	}
	for _, en := range seqItems(mapLookup(n, "auto_command_bar")) {
		el, err := p.parseElement(en, name)
		if err != nil {
			return nil, err
		}
		if el != nil {
			form.AutoCommandBar = append(form.AutoCommandBar, el)
		}
	}
	for _, an := range seqItems(mapLookup(n, "conditional_appearances")) {
		form.ConditionalAppearances = append(form.ConditionalAppearances, parseAppearance(an))
	}
	return form, nil
}

// resolveHandlers records the handler source for the form. A direct
// handlers_file wins over handlers_dir; handlers_dir holds one
// <HandlerName>.bsl per handler. Both must exist; a form with neither key
// simply has no handlers.
func (p *parser) resolveHandlers(form *model.Form, n *yaml.Node) error {
	if path := stringAt(n, "handlers_file"); path != "" {
		if !filepath.IsAbs(path) {
			path = filepath.Join(p.dir, path)
		}
		if _, err := os.Stat(path); err != nil {
			return malformedf("form %s: handlers file %s: %v", form.Name, path, err)
		}
		form.HandlersFile = path
		return nil
	}
	if dir := stringAt(n, "handlers_dir"); dir != "" {
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(p.dir, dir)
		}
		info, err := os.Stat(dir)
		if err != nil {
			return malformedf("form %s: handlers dir %s: %v", form.Name, dir, err)
		}
		if !info.IsDir() {
			return malformedf("form %s: handlers dir %s is not a directory", form.Name, dir)
		}
		form.HandlersDir = dir
	}
	return nil
}

func eventBindings(n *yaml.Node) []model.EventBinding {
	var out []model.EventBinding
	for _, e := range mapEntries(n) {
		out = append(out, model.EventBinding{Event: e.key, Handler: scalarString(e.node)})
	}
	return out
}

func (p *parser) parseFormParameter(n *yaml.Node, formName string) (*model.FormParameter, error) {
	name := stringAt(n, "name")
	if name == "" {
		return nil, malformedf("form %s: parameter without a name", formName)
	}
	syn, err := p.localizedField(n, "synonym", "")
	if err != nil {
		return nil, err
	}
	return &model.FormParameter{
		Name:         name,
		Type:         stringAt(n, "type"),
		Synonym:      syn,
		KeyParameter: boolAt(n, "key_parameter", false),
	}, nil
}

func (p *parser) parseFormAttribute(n *yaml.Node, formName string) (*model.FormAttribute, error) {
	name := stringAt(n, "name")
	if name == "" {
		return nil, malformedf("form %s: form attribute without a name", formName)
	}
	typ, err := p.canonicalValueType(stringAt(n, "type"), fmt.Sprintf("form %s attribute %s", formName, name))
	if err != nil {
		return nil, err
	}
	title, err := p.localizedField(n, "title", name)
	if err != nil {
		return nil, err
	}
	return &model.FormAttribute{
		Name:           name,
		Type:           typ,
		Title:          title,
		Length:         intAt(n, "length"),
		Digits:         intAt(n, "digits"),
		FractionDigits: intAt(n, "fraction_digits"),
	}, nil
}

func (p *parser) parseValueTable(n *yaml.Node, formName string, tree bool) (*model.ValueTableAttribute, error) {
	name := stringAt(n, "name")
	if name == "" {
		return nil, malformedf("form %s: value table without a name", formName)
	}
	title, err := p.localizedField(n, "title", name)
	if err != nil {
		return nil, err
	}
	owner := fmt.Sprintf("form %s value table %s", formName, name)
	cols, err := p.parseColumns(seqItems(mapLookup(n, "columns")), owner)
	if err != nil {
		return nil, err
	}
	return &model.ValueTableAttribute{Name: name, Title: title, Columns: cols, Tree: tree}, nil
}

func (p *parser) parseDynamicList(n *yaml.Node, formName string) (*model.DynamicListAttribute, error) {
	name := stringAt(n, "name")
	if name == "" {
		return nil, malformedf("form %s: dynamic list without a name", formName)
	}
	owner := fmt.Sprintf("form %s dynamic list %s", formName, name)
	cols, err := p.parseColumns(seqItems(mapLookup(n, "columns")), owner)
	if err != nil {
		return nil, err
	}
	return &model.DynamicListAttribute{
		Name:      name,
		QueryText: stringAt(n, "query_text"),
		MainTable: stringAt(n, "main_table"),
		Columns:   cols,
	}, nil
}

func (p *parser) parseCommand(n *yaml.Node, formName string) (*model.Command, error) {
	name := stringAt(n, "name")
	if name == "" {
		return nil, malformedf("form %s: command without a name", formName)
	}
	title, err := p.localizedField(n, "title", name)
	if err != nil {
		return nil, err
	}
	tooltip, err := p.localizedField(n, "tooltip", "")
	if err != nil {
		return nil, err
	}
	cmd := &model.Command{
		Name:          name,
		Title:         title,
		Tooltip:       tooltip,
		Action:        stringAt(n, "action"),
		Picture:       stringAt(n, "picture"),
		Shortcut:      stringAt(n, "shortcut"),
		LongOperation: boolAt(n, "long_operation", false),
		UUID:          newUUID(),
	}
	if cmd.Action == "" {
		cmd.Action = name
	}
	if lo := mapLookup(n, "long_operation_settings"); lo != nil {
		cmd.LongOperation = true
		cmd.LongOp = &model.LongOperationSettings{
			TimeoutSeconds:   intAt(lo, "timeout_seconds"),
			ShowProgress:     boolAt(lo, "show_progress", true),
			ProgressMessage:  stringAt(lo, "progress_message"),
			CheckBeforeStart: boolAt(lo, "check_before_start", false),
			HandleResult:     boolAt(lo, "handle_result", true),
		}
		if cmd.LongOp.TimeoutSeconds == 0 {
			cmd.LongOp.TimeoutSeconds = 300
		}
	}
	if cmd.LongOperation && cmd.LongOp == nil {
		cmd.LongOp = &model.LongOperationSettings{TimeoutSeconds: 300, ShowProgress: true, HandleResult: true}
	}
	return cmd, nil
}

func parseAppearance(n *yaml.Node) model.ConditionalAppearance {
	ca := model.ConditionalAppearance{}
	for _, f := range seqItems(mapLookup(n, "fields")) {
		ca.SelectedFields = append(ca.SelectedFields, scalarString(f))
	}
	for _, fn := range seqItems(mapLookup(n, "filters")) {
		ca.Filters = append(ca.Filters, model.AppearanceFilter{
			Field:          stringAt(fn, "field"),
			ComparisonType: stringAt(fn, "comparison"),
			Value:          decodeAny(mapLookup(fn, "value")),
		})
	}
	if pres := mapLookup(n, "presentation"); pres != nil {
		if m, ok := decodeAny(pres).(map[string]any); ok {
			ca.Presentation = m
		}
	}
	return ca
}
