package schema

import "strings"

// ElementTypeAliases fuzzy-maps accepted spellings to canonical element
// types. Lookups also try a case-insensitive match before giving up.
var ElementTypeAliases = map[string]string{
	"SpreadsheetDocumentField": "SpreadSheetDocumentField",
	"SpreadsheetField":         "SpreadSheetDocumentField",
	"SpreadSheet":              "SpreadSheetDocumentField",

	"HtmlDocumentField": "HTMLDocumentField",
	"HTMLField":         "HTMLDocumentField",
	"HtmlField":         "HTMLDocumentField",

	"Input":     "InputField",
	"TextField": "InputField",
	"TextInput": "InputField",
	"TextBox":   "InputField",

	"Label":      "LabelDecoration",
	"StaticText": "LabelDecoration",

	"Picture":          "PictureDecoration",
	"Image":            "PictureDecoration",
	"ImageDecoration":  "PictureDecoration",

	"ImageField": "PictureField",

	"DataTable": "Table",
	"Grid":      "Table",
	"DataGrid":  "Table",

	"CommandButton": "Button",
	"Btn":           "Button",

	"RadioButton": "RadioButtonField",
	"Radio":       "RadioButtonField",

	"CheckBox": "CheckBoxField",
	"Checkbox": "CheckBoxField",

	"Calendar":   "CalendarField",
	"DatePicker": "CalendarField",

	"Chart":   "ChartField",
	"Diagram": "ChartField",

	"Scheduler": "PlannerField",
	"Kanban":    "PlannerField",

	"Group":     "UsualGroup",
	"FormGroup": "UsualGroup",
	"Panel":     "UsualGroup",

	"PopupMenu": "Popup",
	"Menu":      "Popup",
	"DropDown":  "Popup",

	"TabControl": "Pages",
	"Tabs":       "Pages",
	"TabPages":   "Pages",

	"Tab":     "Page",
	"TabPage": "Page",
}

// FormAttributeTypeAliases maps accepted spellings of form attribute types
// to their canonical lowercase form.
var FormAttributeTypeAliases = map[string]string{
	"SpreadsheetDocument": "spreadsheet_document",
	"SpreadSheetDocument": "spreadsheet_document",
	"Spreadsheet":         "spreadsheet_document",
	"MXL":                 "spreadsheet_document",

	"BinaryData": "binary_data",
	"Binary":     "binary_data",
	"Blob":       "binary_data",

	"String": "string",
	"Text":   "string",
	"Строка": "string",

	"Number":  "number",
	"Numeric": "number",
	"Integer": "number",
	"Decimal": "number",
	"Число":   "number",

	"Date":     "date",
	"DateTime": "date",
	"Дата":     "date",

	"Boolean": "boolean",
	"Bool":    "boolean",
	"Булево":  "boolean",

	"Planner":      "planner",
	"Планировщик":  "planner",
}

// CanonicalElementType resolves an element type through the alias table.
// The second result reports whether the final value is a known element type.
func CanonicalElementType(raw string) (string, bool) {
	if _, ok := schemas[raw]; ok {
		return raw, true
	}
	if canonical, ok := ElementTypeAliases[raw]; ok {
		return canonical, true
	}
	// Case-insensitive fallback over canonical names and aliases.
	lower := strings.ToLower(raw)
	for name := range schemas {
		if strings.ToLower(name) == lower {
			return name, true
		}
	}
	for alias, canonical := range ElementTypeAliases {
		if strings.ToLower(alias) == lower {
			return canonical, true
		}
	}
	return raw, false
}

// CanonicalFormAttributeType resolves a form attribute type through its
// alias table; unknown values pass through unchanged with ok=false.
func CanonicalFormAttributeType(raw string) (string, bool) {
	if canonical, ok := FormAttributeTypeAliases[raw]; ok {
		return canonical, true
	}
	switch raw {
	case "string", "number", "boolean", "date",
		"spreadsheet_document", "binary_data", "planner":
		return raw, true
	}
	return raw, false
}

// Suggest returns the closest canonical element type for an unknown value,
// or empty when nothing scores at least 0.5.
func Suggest(raw string) string {
	return Closest(raw, Types())
}

// Closest returns the candidate most similar to raw, or empty when nothing
// scores at least 0.5.
func Closest(raw string, candidates []string) string {
	best, bestScore := "", 0.0
	for _, name := range candidates {
		if score := similarity(strings.ToLower(raw), strings.ToLower(name)); score > bestScore {
			best, bestScore = name, score
		}
	}
	if bestScore < 0.5 {
		return ""
	}
	return best
}

// similarity is a ratio in [0,1]: twice the longest common subsequence over
// the combined length, the same shape difflib uses.
func similarity(a, b string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for i := 1; i <= len(ra); i++ {
		for j := 1; j <= len(rb); j++ {
			if ra[i-1] == rb[j-1] {
				cur[j] = prev[j-1] + 1
			} else if prev[j] >= cur[j-1] {
				cur[j] = prev[j]
			} else {
				cur[j] = cur[j-1]
			}
		}
		prev, cur = cur, prev
	}
	lcs := prev[len(rb)]
	return 2 * float64(lcs) / float64(len(ra)+len(rb))
}
