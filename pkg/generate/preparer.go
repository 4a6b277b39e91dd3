package generate

import (
	"github.com/itdeo/go-procgen/internal/ids"
	"github.com/itdeo/go-procgen/internal/model"
)

// EmitRecord is one node of the render tree the artifact writer consumes:
// the declarative element resolved against its data context, with its
// numeric ID assigned.
type EmitRecord struct {
	Type        string
	Name        string
	ID          int
	DataPath    string
	CommandName string
	Properties  map[string]any
	Events      []model.EventBinding
	Children    []*EmitRecord
}

// PreparedForm is the render-ready projection of one form.
type PreparedForm struct {
	Form           *model.Form
	Items          []*EmitRecord
	AutoCommandBar []*EmitRecord
	NextID         int
}

// tableContext describes the data collection surrounding a field while
// walking into Table children.
type tableContext struct {
	section    string
	objectPath bool // processor-level section, addressed through Объект
}

// fieldLike element types that synthesize a data path from their attribute.
var fieldLike = map[string]struct{}{
	"InputField":       {},
	"LabelField":       {},
	"CheckBoxField":    {},
	"PictureField":     {},
	"RadioButtonField": {},
	"HTMLDocumentField": {},
	"SpreadSheetDocumentField": {},
	"CalendarField": {},
	"ChartField":    {},
	"PlannerField":  {},
}

// PrepareForm walks the form body in document order, assigning IDs and
// synthesizing data paths, then continues into the auto command bar from
// the allocator's current value.
func PrepareForm(proc *model.Processor, form *model.Form, alloc *ids.Allocator) *PreparedForm {
	p := &preparer{proc: proc, form: form, alloc: alloc}
	prepared := &PreparedForm{Form: form}
	prepared.Items = p.walk(form.Elements, nil)
	prepared.AutoCommandBar = p.walk(form.AutoCommandBar, nil)
	prepared.NextID = alloc.Peek()
	return prepared
}

type preparer struct {
	proc  *model.Processor
	form  *model.Form
	alloc *ids.Allocator
}

func (p *preparer) walk(els []*model.FormElement, table *tableContext) []*EmitRecord {
	var out []*EmitRecord
	for _, el := range els {
		out = append(out, p.prepareElement(el, table))
	}
	return out
}

func (p *preparer) prepareElement(el *model.FormElement, table *tableContext) *EmitRecord {
	rec := &EmitRecord{
		Type:        el.Type,
		Name:        el.Name,
		ID:          p.alloc.Next(p.idType(el, table)),
		CommandName: el.CommandName,
		Properties:  cloneProps(el.Properties),
		Events:      el.Events,
	}

	if el.Type == "Table" {
		p.prepareTable(el, rec)
		return rec
	}

	if _, ok := fieldLike[el.Type]; ok && el.Attribute != "" {
		rec.DataPath = p.dataPath(el, table)
	}

	if len(el.Children) > 0 {
		rec.Children = p.walk(el.Children, table)
	}
	return rec
}

// idType picks the increment class: columns inside tables and pages have
// dedicated increments, everything else uses the element type.
func (p *preparer) idType(el *model.FormElement, table *tableContext) string {
	if table != nil {
		return "TableColumn"
	}
	return el.Type
}

// dataPath resolves the binding address for a field. Inside a table the
// attribute names a column of the surrounding section; at form level it is
// either a processor attribute (addressed through Объект) or a form-local
// attribute.
func (p *preparer) dataPath(el *model.FormElement, table *tableContext) string {
	if explicit, ok := el.Properties["data_path"].(string); ok && explicit != "" {
		return explicit
	}
	if table != nil {
		if table.objectPath {
			return "Объект." + table.section + "." + el.Attribute
		}
		return table.section + "." + el.Attribute
	}
	if p.proc.FindAttribute(el.Attribute) != nil {
		return "Объект." + el.Attribute
	}
	return el.Attribute
}

func (p *preparer) prepareTable(el *model.FormElement, rec *EmitRecord) {
	name := el.TabularSection

	if ts := p.proc.FindTabularSection(name); ts != nil {
		ctx := &tableContext{section: name, objectPath: true}
		rec.DataPath = "Объект." + name
		rec.Children = append(rec.Children, p.lineNumberColumn(el.Name, ctx))
		rec.Children = append(rec.Children, p.tableChildren(el, ctx, columnRecords(ts.Columns))...)
		return
	}
	if vt := p.form.FindValueTable(name); vt != nil {
		ctx := &tableContext{section: name}
		rec.DataPath = name
		rec.Children = p.tableChildren(el, ctx, columnRecords(vt.Columns))
		return
	}
	if dl := p.form.FindDynamicList(name); dl != nil {
		ctx := &tableContext{section: name}
		rec.DataPath = name
		cols := dl.Columns
		if len(cols) == 0 {
			cols = []*model.Column{{
				Name:    "Description",
				Type:    "string",
				Synonym: model.LocalizedString{RU: "Наименование", UK: "Найменування", EN: "Description"},
			}}
		}
		rec.Children = p.tableChildren(el, ctx, columnRecords(cols))
		return
	}
}

// tableChildren merges explicitly declared children with columns
// synthesized for every declared column not already covered by them.
func (p *preparer) tableChildren(el *model.FormElement, ctx *tableContext, columns []*model.Column) []*EmitRecord {
	covered := map[string]struct{}{}
	var collect func(els []*model.FormElement)
	collect = func(els []*model.FormElement) {
		for _, child := range els {
			if child.Attribute != "" {
				covered[child.Attribute] = struct{}{}
			}
			collect(child.Children)
		}
	}
	collect(el.Children)

	out := p.walk(el.Children, ctx)
	for _, col := range columns {
		if _, ok := covered[col.Name]; ok {
			continue
		}
		out = append(out, p.columnField(el.Name, col, ctx))
	}
	return out
}

func (p *preparer) lineNumberColumn(tableName string, ctx *tableContext) *EmitRecord {
	path := ctx.section + ".НомерСтроки"
	if ctx.objectPath {
		path = "Объект." + path
	}
	return &EmitRecord{
		Type:     "InputField",
		Name:     tableName + "НомерСтроки",
		ID:       p.alloc.Next("TableColumn"),
		DataPath: path,
		Properties: map[string]any{
			"title_ru": "N",
			"width":    4,
		},
	}
}

func (p *preparer) columnField(tableName string, col *model.Column, ctx *tableContext) *EmitRecord {
	typ := "InputField"
	if col.Type == "boolean" {
		typ = "CheckBoxField"
	}
	path := ctx.section + "." + col.Name
	if ctx.objectPath {
		path = "Объект." + path
	}
	props := map[string]any{}
	for _, lang := range []string{"ru", "uk", "en"} {
		if v := col.Synonym.Get(lang); v != "" {
			props["title_"+lang] = v
		}
	}
	if col.ReadOnly {
		props["read_only"] = true
	}
	return &EmitRecord{
		Type:     typ,
		Name:     tableName + col.Name,
		ID:       p.alloc.Next("TableColumn"),
		DataPath: path,
		Properties: props,
	}
}

func columnRecords(cols []*model.Column) []*model.Column { return cols }

func cloneProps(props map[string]any) map[string]any {
	if props == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(props))
	for k, v := range props {
		out[k] = v
	}
	return out
}
