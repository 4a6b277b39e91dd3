package config

import (
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/itdeo/go-procgen/internal/model"
)

var templateKindAliases = map[string]string{
	"html":                "HTMLDocument",
	"HTML":                "HTMLDocument",
	"HTMLDocument":        "HTMLDocument",
	"mxl":                 "SpreadsheetDocument",
	"MXL":                 "SpreadsheetDocument",
	"spreadsheet":         "SpreadsheetDocument",
	"SpreadsheetDocument": "SpreadsheetDocument",
}

func (p *parser) parseTemplates(proc *model.Processor, root *yaml.Node) error {
	for _, n := range seqItems(mapLookup(root, "templates")) {
		tmpl, err := p.parseTemplate(proc, n)
		if err != nil {
			return err
		}
		if proc.FindTemplate(tmpl.Name) != nil {
			return malformedf("duplicate template %q", tmpl.Name)
		}
		proc.Templates = append(proc.Templates, tmpl)
	}
	return nil
}

func (p *parser) parseTemplate(proc *model.Processor, n *yaml.Node) (*model.Template, error) {
	name := stringAt(n, "name")
	if name == "" {
		return nil, malformedf("template without a name")
	}
	rawKind := stringAt(n, "kind")
	if rawKind == "" {
		rawKind = stringAt(n, "type")
	}
	kind, ok := templateKindAliases[rawKind]
	if !ok {
		return nil, malformedf("template %s: unknown kind %q (accepted: html, mxl)", name, rawKind)
	}
	syn, err := p.localizedField(n, "synonym", name)
	if err != nil {
		return nil, err
	}
	tmpl := &model.Template{
		Name:       name,
		Kind:       kind,
		Synonym:    syn,
		File:       stringAt(n, "file"),
		AutoField:  boolAt(n, "auto_field", false),
		TargetForm: stringAt(n, "target_form"),
		FieldName:  stringAt(n, "field_name"),
		Sanitize:   boolAt(n, "sanitize", false),
		UUID:       newUUID(),
	}

	if exprs := mapLookup(n, "expressions"); exprs != nil {
		tmpl.Expressions = map[string]string{}
		for _, e := range mapEntries(exprs) {
			tmpl.Expressions[e.key] = scalarString(e.node)
		}
	}
	if assets := mapLookup(n, "assets"); assets != nil {
		tmpl.Assets.CSS = stringListAt(assets, "css")
		tmpl.Assets.JS = stringListAt(assets, "js")
	}

	if tmpl.File != "" {
		content, err := p.readRelative(tmpl.File)
		if err != nil {
			return nil, err
		}
		tmpl.Content = content
	} else if inline := stringAt(n, "content"); inline != "" {
		tmpl.Content = inline
	}

	if tmpl.Kind == "HTMLDocument" {
		if err := p.inlineAssets(tmpl); err != nil {
			return nil, err
		}
		if tmpl.Sanitize {
			tmpl.Content = p.sanitizer.Sanitize(tmpl.Content)
		}
	}

	if tmpl.AutoField {
		if tmpl.TargetForm == "" {
			if def := proc.DefaultForm(); def != nil {
				tmpl.TargetForm = def.Name
			}
		}
		if tmpl.TargetForm == "" {
			return nil, malformedf("template %s: auto_field needs a target form", name)
		}
		found := false
		for _, f := range proc.Forms {
			if f.Name == tmpl.TargetForm {
				found = true
				break
			}
		}
		if !found {
			return nil, malformedf("template %s: target form %q does not exist", name, tmpl.TargetForm)
		}
		if tmpl.FieldName == "" {
			tmpl.FieldName = tmpl.Name
		}
	}
	return tmpl, nil
}

// inlineAssets folds referenced CSS and JS files into the HTML body so the
// emitted template is self-contained.
func (p *parser) inlineAssets(tmpl *model.Template) error {
	for _, css := range tmpl.Assets.CSS {
		body, err := p.readRelative(css)
		if err != nil {
			return err
		}
		block := "<style>\n" + body + "\n</style>"
		tmpl.Content = insertBefore(tmpl.Content, "</head>", block)
	}
	for _, js := range tmpl.Assets.JS {
		body, err := p.readRelative(js)
		if err != nil {
			return err
		}
		block := "<script>\n" + body + "\n</script>"
		tmpl.Content = insertBefore(tmpl.Content, "</body>", block)
	}
	return nil
}

func insertBefore(doc, marker, block string) string {
	idx := strings.Index(doc, marker)
	if idx < 0 {
		idx = strings.Index(doc, strings.ToUpper(marker))
	}
	if idx < 0 {
		return doc + "\n" + block
	}
	return doc[:idx] + block + "\n" + doc[idx:]
}
