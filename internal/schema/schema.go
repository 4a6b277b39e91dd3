// Package schema holds the element schema table that drives config parsing
// and element preparation: which properties each element type accepts,
// whether it binds an attribute, a command or a tabular section, and where
// its children live.
package schema

import "sort"

// PropSpec describes one accepted property of an element type.
type PropSpec struct {
	Key       string
	Target    string // rename on parse; empty means Key is the target
	Multilang bool
	Default   any
}

// ElementSchema describes one element type.
type ElementSchema struct {
	ElementType        string
	Props              []PropSpec
	HasAttribute       bool
	HasCommand         bool
	HasTabularSection  bool
	HasChildren        bool
	ChildrenKey        string // elements | pages | child_items
}

var multilangTitle = []PropSpec{
	{Key: "title", Multilang: true},
	{Key: "tooltip", Multilang: true},
}

var alignmentProps = []PropSpec{
	{Key: "horizontal_align"},
	{Key: "vertical_align"},
}

var sizeProps = []PropSpec{
	{Key: "width"},
	{Key: "height"},
	{Key: "horizontal_stretch"},
	{Key: "vertical_stretch"},
}

func concat(groups ...[]PropSpec) []PropSpec {
	var out []PropSpec
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

var schemas = map[string]ElementSchema{
	"InputField": {
		ElementType:  "InputField",
		HasAttribute: true,
		Props: concat(multilangTitle, []PropSpec{
			{Key: "input_hint", Multilang: true},
		}, sizeProps, alignmentProps, []PropSpec{
			{Key: "read_only"},
			{Key: "multi_line", Target: "multiline"},
			{Key: "multiline"},
			{Key: "password_mode"},
			{Key: "text_edit"},
			{Key: "auto_max_width"},
			{Key: "auto_max_height"},
			{Key: "title_location"},
			{Key: "choice_list"},
			{Key: "choice_mode"},
			{Key: "choice_folders_and_items"},
			{Key: "quick_choice"},
			{Key: "choice_history_on_input"},
			{Key: "title_text_color"},
			{Key: "title_font"},
			{Key: "text_color"},
			{Key: "back_color"},
			{Key: "border_color"},
			{Key: "font"},
			{Key: "choice_button_picture"},
		}),
	},
	"LabelField": {
		ElementType:  "LabelField",
		HasAttribute: true,
		Props: concat(multilangTitle, []PropSpec{
			{Key: "data_path"},
			{Key: "hyperlink"},
		}, alignmentProps),
	},
	"LabelDecoration": {
		ElementType: "LabelDecoration",
		Props: concat(multilangTitle, []PropSpec{
			{Key: "formatted"},
			{Key: "hyperlink"},
			{Key: "font"},
		}, alignmentProps),
	},
	"PictureDecoration": {
		ElementType: "PictureDecoration",
		Props: []PropSpec{
			{Key: "svg_source"},
			{Key: "picture"},
			{Key: "svg_width"},
			{Key: "svg_height"},
			{Key: "form_width"},
			{Key: "form_height"},
			{Key: "width"},
			{Key: "height"},
			{Key: "alignment"},
			{Key: "hyperlink"},
			{Key: "picture_size", Default: "Proportionally"},
			{Key: "zoomable"},
		},
	},
	"PictureField": {
		ElementType:  "PictureField",
		HasAttribute: true,
		Props: []PropSpec{
			{Key: "title_location"},
			{Key: "picture_size"},
			{Key: "zoomable"},
			{Key: "width"},
			{Key: "height"},
		},
	},
	"Table": {
		ElementType:       "Table",
		HasTabularSection: true,
		HasChildren:       true,
		Props: []PropSpec{
			{Key: "read_only"},
			{Key: "height"},
			{Key: "horizontal_stretch"},
			{Key: "is_value_table"},
			{Key: "is_dynamic_list"},
			{Key: "representation"},
			{Key: "initial_tree_view"},
			{Key: "show_root"},
			{Key: "allow_root_choice"},
			{Key: "choice_folders_and_items"},
		},
	},
	"Button": {
		ElementType: "Button",
		HasCommand:  true,
		Props: concat([]PropSpec{
			{Key: "width"},
			{Key: "representation"},
		}, alignmentProps),
	},
	"RadioButtonField": {
		ElementType:  "RadioButtonField",
		HasAttribute: true,
		Props: []PropSpec{
			{Key: "radio_button_type"},
			{Key: "choice_list"},
			{Key: "title_location"},
		},
	},
	"CheckBoxField": {
		ElementType:  "CheckBoxField",
		HasAttribute: true,
		Props: []PropSpec{
			{Key: "width"},
			{Key: "title_location"},
		},
	},
	"SpreadSheetDocumentField": {
		ElementType:  "SpreadSheetDocumentField",
		HasAttribute: true,
		Props: []PropSpec{
			{Key: "title_location"},
			{Key: "vertical_scrollbar"},
			{Key: "horizontal_scrollbar"},
			{Key: "show_grid"},
			{Key: "show_headers"},
			{Key: "edit"},
			{Key: "protection"},
		},
	},
	"HTMLDocumentField": {
		ElementType:  "HTMLDocumentField",
		HasAttribute: true,
		Props: []PropSpec{
			{Key: "title_location"},
			{Key: "width"},
			{Key: "height"},
			{Key: "horizontal_stretch"},
			{Key: "vertical_stretch"},
			{Key: "stretch"},
			{Key: "template", Target: "template_ref"},
		},
	},
	"CalendarField": {
		ElementType:  "CalendarField",
		HasAttribute: true,
		Props: []PropSpec{
			{Key: "title_location"},
			{Key: "width"},
			{Key: "height"},
			{Key: "show_current_date"},
			{Key: "first_day_of_week"},
			{Key: "begin_of_representation_period"},
			{Key: "end_of_representation_period"},
		},
	},
	"ChartField": {
		ElementType:  "ChartField",
		HasAttribute: true,
		Props: []PropSpec{
			{Key: "title_location"},
			{Key: "width"},
			{Key: "height"},
			{Key: "chart_type"},
			{Key: "show_legend"},
			{Key: "transparent_background"},
		},
	},
	"PlannerField": {
		ElementType:  "PlannerField",
		HasAttribute: true,
		Props: []PropSpec{
			{Key: "title_location"},
			{Key: "width"},
			{Key: "height"},
			{Key: "enable_drag"},
			{Key: "show_weekends"},
			{Key: "period"},
			{Key: "representation"},
		},
	},
	"UsualGroup": {
		ElementType: "UsualGroup",
		HasChildren: true,
		Props: concat(multilangTitle, []PropSpec{
			{Key: "show_title", Default: false},
			{Key: "group_direction", Default: "Vertical"},
			{Key: "representation", Default: "None"},
			{Key: "behavior"},
			{Key: "read_only"},
		}),
	},
	"ButtonGroup": {
		ElementType: "ButtonGroup",
		HasChildren: true,
		Props: concat(multilangTitle, []PropSpec{
			{Key: "group_direction", Default: "Horizontal"},
		}),
	},
	"ColumnGroup": {
		ElementType: "ColumnGroup",
		HasChildren: true,
		Props: concat(multilangTitle, []PropSpec{
			{Key: "group_layout", Default: "Horizontal"},
			{Key: "show_in_header", Default: true},
		}, alignmentProps),
	},
	"Popup": {
		ElementType: "Popup",
		HasChildren: true,
		ChildrenKey: "child_items",
		Props: concat(multilangTitle, []PropSpec{
			{Key: "picture"},
			{Key: "representation"},
		}),
	},
	"Pages": {
		ElementType: "Pages",
		HasChildren: true,
		ChildrenKey: "pages",
		Props: []PropSpec{
			{Key: "pages_representation", Default: "TabsOnTop"},
		},
	},
	"Page": {
		ElementType: "Page",
		HasChildren: true,
		Props: []PropSpec{
			{Key: "title", Multilang: true},
		},
	},
}

// ColumnGroupAllowedChildren lists the only element types a ColumnGroup may
// contain; anything else is dropped with a warning during parsing.
var ColumnGroupAllowedChildren = map[string]struct{}{
	"LabelField":    {},
	"InputField":    {},
	"CheckBoxField": {},
	"PictureField":  {},
}

// Get returns the schema for an element type, or false when unknown.
func Get(elementType string) (ElementSchema, bool) {
	s, ok := schemas[elementType]
	return s, ok
}

// Types returns the canonical element type names in sorted order.
func Types() []string {
	out := make([]string, 0, len(schemas))
	for name := range schemas {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// ChildrenKeyOf reports where the children of an element type live in the
// declarative source: "elements", "pages" or "child_items". Empty for leaf
// element types.
func ChildrenKeyOf(elementType string) string {
	s, ok := schemas[elementType]
	if !ok || !s.HasChildren {
		return ""
	}
	if s.ChildrenKey == "" {
		return "elements"
	}
	return s.ChildrenKey
}
