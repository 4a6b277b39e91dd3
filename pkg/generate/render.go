package generate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/itdeo/go-procgen/internal/ids"
	"github.com/itdeo/go-procgen/internal/model"
)

// FormatVersion is the export format version stamped on every artifact.
const FormatVersion = "2.17"

// typeXML renders the v8 type block for a canonical attribute type,
// including qualifiers where the type carries them.
func typeXML(typ string, length, digits, fraction int) string {
	var b strings.Builder
	switch typ {
	case "string":
		if length == 0 {
			length = 10
		}
		b.WriteString("<v8:Type>xs:string</v8:Type>")
		fmt.Fprintf(&b, "<v8:StringQualifiers><v8:Length>%d</v8:Length><v8:AllowedLength>Variable</v8:AllowedLength></v8:StringQualifiers>", length)
	case "number":
		if digits == 0 {
			digits = 10
		}
		b.WriteString("<v8:Type>xs:decimal</v8:Type>")
		fmt.Fprintf(&b, "<v8:NumberQualifiers><v8:Digits>%d</v8:Digits><v8:FractionDigits>%d</v8:FractionDigits><v8:AllowedSign>Any</v8:AllowedSign></v8:NumberQualifiers>", digits, fraction)
	case "boolean":
		b.WriteString("<v8:Type>xs:boolean</v8:Type>")
	case "date":
		b.WriteString("<v8:Type>xs:dateTime</v8:Type>")
		b.WriteString("<v8:DateQualifiers><v8:DateFractions>DateTime</v8:DateFractions></v8:DateQualifiers>")
	case "binary_data":
		b.WriteString("<v8:Type>v8:BinaryData</v8:Type>")
	case "spreadsheet_document":
		b.WriteString("<v8:Type>v8:SpreadsheetDocument</v8:Type>")
	case "uuid":
		b.WriteString("<v8:Type>v8:UUID</v8:Type>")
	default:
		// Platform type references (cfg:, v8:) pass through unchanged.
		if strings.Contains(typ, ":") {
			fmt.Fprintf(&b, "<v8:Type>%s</v8:Type>", xmlEscape(typ))
		} else {
			b.WriteString("<v8:Type>xs:string</v8:Type>")
		}
	}
	return b.String()
}

// localeItems projects a localized string into the lang/content pairs the
// templates iterate over, in the processor's language order.
func localeItems(ls model.LocalizedString, langs []string) []map[string]string {
	var out []map[string]string
	for _, lang := range langs {
		if v := ls.Get(lang); v != "" {
			out = append(out, map[string]string{"lang": lang, "content": v})
		}
	}
	return out
}

func localeBlock(b *strings.Builder, tag string, ls model.LocalizedString, langs []string) {
	items := localeItems(ls, langs)
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "<%s>", tag)
	for _, item := range items {
		fmt.Fprintf(b, "<v8:item><v8:lang>%s</v8:lang><v8:content>%s</v8:content></v8:item>",
			item["lang"], xmlEscape(item["content"]))
	}
	fmt.Fprintf(b, "</%s>", tag)
}

// propertyTags maps declarative property keys to their export element names.
// Keys consumed elsewhere (titles, data paths, targets) never reach here.
var propertyTags = map[string]string{
	"width":              "Width",
	"height":             "Height",
	"read_only":          "ReadOnly",
	"visible":            "Visible",
	"enabled":            "Enabled",
	"multi_line":         "MultiLine",
	"password_mode":      "PasswordMode",
	"horizontal_stretch": "HorizontalStretch",
	"vertical_stretch":   "VerticalStretch",
	"auto_max_width":     "AutoMaxWidth",
	"auto_max_height":    "AutoMaxHeight",
	"group":              "Group",
	"representation":     "Representation",
	"show_title":         "ShowTitle",
	"title_location":     "TitleLocation",
	"picture_size":       "PictureSize",
	"hyperlink":          "Hyperlink",
	"header":             "Header",
	"footer":             "Footer",
	"choice_button":      "ChoiceButton",
	"clear_button":       "ClearButton",
	"spin_button":        "SpinButton",
	"drop_list_button":   "DropListButton",
	"mark_negatives":     "MarkNegatives",
	"mask":               "Mask",
	"format":             "Format",
	"edit_format":        "EditFormat",
	"wrap":               "Wrap",
	"output":             "Output",
	"default_button":     "DefaultButton",
}

// consumedPropKeys are handled by dedicated rendering, never as plain tags.
var consumedPropKeys = map[string]struct{}{
	"data_path": {}, "command": {}, "is_value_table": {}, "is_dynamic_list": {},
}

func propValue(v any) string {
	switch t := v.(type) {
	case bool:
		if t {
			return "true"
		}
		return "false"
	case string:
		return xmlEscape(t)
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%v", t)
	default:
		return xmlEscape(fmt.Sprintf("%v", t))
	}
}

// renderProperties emits the mapped scalar properties of a record in a
// stable key order.
func renderProperties(b *strings.Builder, props map[string]any) {
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if strings.HasPrefix(k, "title_") || strings.HasPrefix(k, "tooltip_") || strings.HasPrefix(k, "input_hint_") {
			continue
		}
		if _, ok := consumedPropKeys[k]; ok {
			continue
		}
		tag, ok := propertyTags[k]
		if !ok {
			tag = camelName(k)
		}
		fmt.Fprintf(b, "<%s>%s</%s>", tag, propValue(props[k]), tag)
	}
}

// camelName turns a snake_case property key into an export element name.
func camelName(key string) string {
	parts := strings.Split(key, "_")
	var b strings.Builder
	for _, part := range parts {
		if part == "" {
			continue
		}
		r := []rune(part)
		b.WriteString(strings.ToUpper(string(r[0])))
		b.WriteString(string(r[1:]))
	}
	return b.String()
}

// renderer turns prepared emit records into logform XML fragments.
type renderer struct {
	proc  *model.Processor
	langs []string
}

func newRenderer(proc *model.Processor) *renderer {
	langs := proc.Languages
	if len(langs) == 0 {
		langs = []string{"ru"}
	}
	return &renderer{proc: proc, langs: langs}
}

// Elements renders a record list as sibling logform items.
func (r *renderer) Elements(recs []*EmitRecord) string {
	var b strings.Builder
	for _, rec := range recs {
		r.element(&b, rec, false)
	}
	return b.String()
}

func (r *renderer) element(b *strings.Builder, rec *EmitRecord, inTable bool) {
	switch rec.Type {
	case "Button":
		r.button(b, rec)
	case "Table":
		r.table(b, rec)
	case "UsualGroup", "Pages", "Page", "ColumnGroup", "ButtonGroup", "CommandBar", "Popup":
		r.group(b, rec)
	default:
		r.field(b, rec, inTable)
	}
}

func (r *renderer) titled(b *strings.Builder, rec *EmitRecord) {
	localeBlock(b, "Title", localizedFromProps(rec.Properties, "title"), r.langs)
}

// common renders the shared tail of every item: title, mapped properties,
// tooltip, events and the reserved sub-element slots. Items inside tables
// advance by the column increment and have no context menu slot.
func (r *renderer) common(b *strings.Builder, rec *EmitRecord, inTable bool) {
	r.titled(b, rec)
	renderProperties(b, rec.Properties)
	if tooltip := localizedFromProps(rec.Properties, "tooltip"); !tooltip.IsZero() {
		localeBlock(b, "ToolTip", tooltip, r.langs)
	}
	if len(rec.Events) > 0 {
		b.WriteString("<Events>")
		for _, ev := range rec.Events {
			fmt.Fprintf(b, "<Event name=%q>%s</Event>", ev.Event, xmlEscape(ev.Handler))
		}
		b.WriteString("</Events>")
	}
	fmt.Fprintf(b, "<ExtendedTooltip name=%q id=\"%d\"/>",
		rec.Name+"РасширеннаяПодсказка", rec.ID+1)
	if !inTable && ids.IncrementFor(rec.Type) > 2 {
		fmt.Fprintf(b, "<ContextMenu name=%q id=\"%d\"/>",
			rec.Name+"КонтекстноеМеню", rec.ID+2)
	}
}

func (r *renderer) field(b *strings.Builder, rec *EmitRecord, inTable bool) {
	fmt.Fprintf(b, "<%s name=%q id=\"%d\">", rec.Type, rec.Name, rec.ID)
	if rec.DataPath != "" {
		fmt.Fprintf(b, "<DataPath>%s</DataPath>", xmlEscape(rec.DataPath))
	}
	r.common(b, rec, inTable)
	if len(rec.Children) > 0 {
		b.WriteString("<ChildItems>")
		for _, child := range rec.Children {
			r.element(b, child, inTable)
		}
		b.WriteString("</ChildItems>")
	}
	fmt.Fprintf(b, "</%s>", rec.Type)
}

func (r *renderer) group(b *strings.Builder, rec *EmitRecord) {
	fmt.Fprintf(b, "<%s name=%q id=\"%d\">", rec.Type, rec.Name, rec.ID)
	r.common(b, rec, rec.Type == "ColumnGroup")
	if len(rec.Children) > 0 {
		b.WriteString("<ChildItems>")
		for _, child := range rec.Children {
			r.element(b, child, rec.Type == "ColumnGroup")
		}
		b.WriteString("</ChildItems>")
	}
	fmt.Fprintf(b, "</%s>", rec.Type)
}

func (r *renderer) button(b *strings.Builder, rec *EmitRecord) {
	fmt.Fprintf(b, "<Button name=%q id=\"%d\">", rec.Name, rec.ID)
	b.WriteString("<Type>UsualButton</Type>")
	if rec.CommandName != "" {
		fmt.Fprintf(b, "<CommandName>Form.Command.%s</CommandName>", xmlEscape(rec.CommandName))
	}
	r.common(b, rec, false)
	b.WriteString("</Button>")
}

func (r *renderer) table(b *strings.Builder, rec *EmitRecord) {
	fmt.Fprintf(b, "<Table name=%q id=\"%d\">", rec.Name, rec.ID)
	if rec.DataPath != "" {
		fmt.Fprintf(b, "<DataPath>%s</DataPath>", xmlEscape(rec.DataPath))
	}
	r.common(b, rec, false)
	if len(rec.Children) > 0 {
		b.WriteString("<ChildItems>")
		for _, child := range rec.Children {
			r.element(b, child, true)
		}
		b.WriteString("</ChildItems>")
	}
	b.WriteString("</Table>")
}

// FormEvents renders the form-level event bindings.
func (r *renderer) FormEvents(form *model.Form) string {
	var b strings.Builder
	for _, ev := range form.Events {
		fmt.Fprintf(&b, "<Event name=%q>%s</Event>", ev.Event, xmlEscape(ev.Handler))
	}
	return b.String()
}

// FormAttributes renders the attribute list: the main object attribute
// first, then form-local scalars, value tables, value trees and dynamic
// lists, each with its own ID sequence.
func (r *renderer) FormAttributes(form *model.Form) string {
	var b strings.Builder
	id := 1

	fmt.Fprintf(&b, "<Attribute name=\"Объект\" id=\"%d\">", id)
	fmt.Fprintf(&b, "<Type><v8:Type>cfg:ExternalDataProcessorObject.%s</v8:Type></Type>", xmlEscape(r.proc.Name))
	b.WriteString("<MainAttribute>true</MainAttribute>")
	b.WriteString("</Attribute>")
	id++

	for _, fa := range form.FormAttributes {
		fmt.Fprintf(&b, "<Attribute name=%q id=\"%d\">", fa.Name, id)
		fmt.Fprintf(&b, "<Type>%s</Type>", typeXML(fa.Type, fa.Length, fa.Digits, fa.FractionDigits))
		localeBlock(&b, "Title", fa.Title, r.langs)
		b.WriteString("</Attribute>")
		id++
	}
	for _, vt := range form.ValueTables {
		id = r.valueTable(&b, vt, id, false)
	}
	for _, vt := range form.ValueTrees {
		id = r.valueTable(&b, vt, id, true)
	}
	for _, dl := range form.DynamicLists {
		fmt.Fprintf(&b, "<Attribute name=%q id=\"%d\">", dl.Name, id)
		b.WriteString("<Type><v8:Type>v8:DynamicList</v8:Type></Type>")
		b.WriteString("<Settings>")
		if dl.QueryText != "" {
			fmt.Fprintf(&b, "<QueryText>%s</QueryText>", xmlEscape(dl.QueryText))
		}
		if dl.MainTable != "" {
			fmt.Fprintf(&b, "<MainTable>%s</MainTable>", xmlEscape(dl.MainTable))
		}
		b.WriteString("<DynamicDataRead>true</DynamicDataRead>")
		b.WriteString("<AutoFillAvailableFields>true</AutoFillAvailableFields>")
		b.WriteString("</Settings>")
		b.WriteString("</Attribute>")
		id++
	}
	return b.String()
}

func (r *renderer) valueTable(b *strings.Builder, vt *model.ValueTableAttribute, id int, tree bool) int {
	fmt.Fprintf(b, "<Attribute name=%q id=\"%d\">", vt.Name, id)
	if tree {
		b.WriteString("<Type><v8:Type>v8:ValueTree</v8:Type></Type>")
	} else {
		b.WriteString("<Type><v8:Type>v8:ValueTable</v8:Type></Type>")
	}
	localeBlock(b, "Title", vt.Title, r.langs)
	id++
	if len(vt.Columns) > 0 {
		b.WriteString("<Columns>")
		for _, col := range vt.Columns {
			fmt.Fprintf(b, "<Column name=%q id=\"%d\">", col.Name, id)
			fmt.Fprintf(b, "<Type>%s</Type>", typeXML(col.Type, col.Length, col.Digits, col.FractionDigits))
			localeBlock(b, "Title", col.Synonym, r.langs)
			b.WriteString("</Column>")
			id++
		}
		b.WriteString("</Columns>")
	}
	b.WriteString("</Attribute>")
	return id
}

// Commands renders form commands with actions, pictures and shortcuts.
func (r *renderer) Commands(form *model.Form) string {
	var b strings.Builder
	for i, cmd := range form.Commands {
		fmt.Fprintf(&b, "<Command name=%q id=\"%d\">", cmd.Name, i+1)
		localeBlock(&b, "Title", cmd.Title, r.langs)
		localeBlock(&b, "ToolTip", cmd.Tooltip, r.langs)
		action := cmd.Action
		if cmd.LongOperation {
			action = cmd.Name + "Кнопка"
		}
		fmt.Fprintf(&b, "<Action>%s</Action>", xmlEscape(action))
		if cmd.Picture != "" {
			fmt.Fprintf(&b, "<Picture><xr:Ref>%s</xr:Ref><xr:LoadTransparent>true</xr:LoadTransparent></Picture>", xmlEscape(cmd.Picture))
			b.WriteString("<Representation>PictureAndText</Representation>")
		}
		if cmd.Shortcut != "" {
			fmt.Fprintf(&b, "<Shortcut>%s</Shortcut>", xmlEscape(cmd.Shortcut))
		}
		b.WriteString("</Command>")
	}
	return b.String()
}

// Parameters renders form opening parameters.
func (r *renderer) Parameters(form *model.Form) string {
	var b strings.Builder
	for _, p := range form.Parameters {
		fmt.Fprintf(&b, "<Parameter name=%q>", p.Name)
		fmt.Fprintf(&b, "<Type>%s</Type>", typeXML(p.Type, 0, 0, 0))
		if p.KeyParameter {
			b.WriteString("<KeyParameter>true</KeyParameter>")
		}
		b.WriteString("</Parameter>")
	}
	return b.String()
}

// Appearances renders conditional appearance items.
func (r *renderer) Appearances(form *model.Form) string {
	var b strings.Builder
	for _, app := range form.ConditionalAppearances {
		b.WriteString("<dcsset:Item>")
		b.WriteString("<dcsset:SelectedFields>")
		for _, f := range app.SelectedFields {
			fmt.Fprintf(&b, "<dcsset:Item xsi:type=\"dcsset:SelectedItemField\"><dcsset:Field>%s</dcsset:Field></dcsset:Item>", xmlEscape(f))
		}
		b.WriteString("</dcsset:SelectedFields>")
		b.WriteString("<dcsset:Filter>")
		for _, flt := range app.Filters {
			b.WriteString("<dcsset:Item xsi:type=\"dcsset:FilterItemComparison\">")
			fmt.Fprintf(&b, "<dcsset:Left xsi:type=\"dcscor:Field\">%s</dcsset:Left>", xmlEscape(flt.Field))
			fmt.Fprintf(&b, "<dcsset:ComparisonType>%s</dcsset:ComparisonType>", xmlEscape(flt.ComparisonType))
			fmt.Fprintf(&b, "<dcsset:Right xsi:type=\"xs:string\">%s</dcsset:Right>", propValue(flt.Value))
			b.WriteString("</dcsset:Item>")
		}
		b.WriteString("</dcsset:Filter>")
		b.WriteString("<dcsset:Appearance>")
		keys := make([]string, 0, len(app.Presentation))
		for k := range app.Presentation {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "<dcscor:Item><dcscor:Parameter>%s</dcscor:Parameter><dcscor:Value xsi:type=\"xs:string\">%s</dcscor:Value></dcscor:Item>",
				xmlEscape(camelName(k)), propValue(app.Presentation[k]))
		}
		b.WriteString("</dcsset:Appearance>")
		b.WriteString("</dcsset:Item>")
	}
	return b.String()
}

func localizedFromProps(props map[string]any, key string) model.LocalizedString {
	var out model.LocalizedString
	for _, lang := range []string{"ru", "uk", "en"} {
		if v, ok := props[key+"_"+lang].(string); ok {
			out.Set(lang, v)
		}
	}
	return out
}
