package model

import "github.com/google/uuid"

// NewProcessor mints a processor with its five stable identifiers.
func NewProcessor(name string) *Processor {
	return &Processor{
		Name:          name,
		Languages:     []string{"ru", "uk", "en"},
		UUID:          uuid.NewString(),
		ObjectUUID:    uuid.NewString(),
		TypeUUID:      uuid.NewString(),
		ValueUUID:     uuid.NewString(),
		FormGroupUUID: uuid.NewString(),
	}
}

// AddAttribute appends a new attribute and returns it.
func (p *Processor) AddAttribute(name, typ string) *Attribute {
	attr := &Attribute{
		Name: name,
		Type: typ,
		UUID: uuid.NewString(),
	}
	p.Attributes = append(p.Attributes, attr)
	return attr
}

// AddTabularSection appends a new tabular section with its identifier set.
func (p *Processor) AddTabularSection(name string) *TabularSection {
	ts := &TabularSection{
		Name:         name,
		UUID:         uuid.NewString(),
		TypeUUID:     uuid.NewString(),
		ValueUUID:    uuid.NewString(),
		RowTypeUUID:  uuid.NewString(),
		RowValueUUID: uuid.NewString(),
	}
	p.TabularSections = append(p.TabularSections, ts)
	return ts
}

// AddColumn appends a column to the section.
func (ts *TabularSection) AddColumn(name, typ string) *Column {
	col := &Column{Name: name, Type: typ, UUID: uuid.NewString()}
	ts.Columns = append(ts.Columns, col)
	return col
}

// AddForm appends a new form and returns it.
func (p *Processor) AddForm(name string) *Form {
	form := &Form{Name: name, UUID: uuid.NewString()}
	p.Forms = append(p.Forms, form)
	return form
}

// AddCommand appends a new command and returns it.
func (f *Form) AddCommand(name string) *Command {
	cmd := &Command{Name: name, UUID: uuid.NewString()}
	f.Commands = append(f.Commands, cmd)
	return cmd
}

// AddTemplate appends a new template and returns it.
func (p *Processor) AddTemplate(name, kind string) *Template {
	tmpl := &Template{Name: name, Kind: kind, UUID: uuid.NewString()}
	p.Templates = append(p.Templates, tmpl)
	return tmpl
}

// DefaultForm returns the form marked default, or the first form, or nil.
func (p *Processor) DefaultForm() *Form {
	for _, f := range p.Forms {
		if f.Default {
			return f
		}
	}
	if len(p.Forms) > 0 {
		return p.Forms[0]
	}
	return nil
}

// FindTabularSection resolves a processor-level section by name.
func (p *Processor) FindTabularSection(name string) *TabularSection {
	for _, ts := range p.TabularSections {
		if ts.Name == name {
			return ts
		}
	}
	return nil
}

// FindAttribute resolves a processor-level attribute by name.
func (p *Processor) FindAttribute(name string) *Attribute {
	for _, a := range p.Attributes {
		if a.Name == name {
			return a
		}
	}
	return nil
}

// FindTemplate resolves a template by name.
func (p *Processor) FindTemplate(name string) *Template {
	for _, t := range p.Templates {
		if t.Name == name {
			return t
		}
	}
	return nil
}

// FindValueTable resolves a form-local value table or value tree by name.
func (f *Form) FindValueTable(name string) *ValueTableAttribute {
	for _, vt := range f.ValueTables {
		if vt.Name == name {
			return vt
		}
	}
	for _, vt := range f.ValueTrees {
		if vt.Name == name {
			return vt
		}
	}
	return nil
}

// FindDynamicList resolves a form-local dynamic list by name.
func (f *Form) FindDynamicList(name string) *DynamicListAttribute {
	for _, dl := range f.DynamicLists {
		if dl.Name == name {
			return dl
		}
	}
	return nil
}

// FindCommand resolves a form command by name.
func (f *Form) FindCommand(name string) *Command {
	for _, c := range f.Commands {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Minimal returns a starter processor: one string attribute and one default
// form with a single input field bound to it.
func Minimal(name, platformVersion string) *Processor {
	p := NewProcessor(name)
	p.PlatformVersion = platformVersion
	p.Synonym = LocalizedString{RU: name, UK: name, EN: name}

	attr := p.AddAttribute("Комментарий", "string")
	attr.Length = 100
	attr.Synonym = LocalizedString{RU: "Комментарий", UK: "Коментар", EN: "Comment"}

	form := p.AddForm("Форма")
	form.Default = true
	form.Elements = append(form.Elements, &FormElement{
		Type:      "InputField",
		Name:      attr.Name,
		Attribute: attr.Name,
	})
	return p
}
