// Package model defines the processor model shared by the forward and
// reverse paths: the root Processor, its attributes, tabular sections, forms
// with nested element trees, commands, and templates. Forms reference
// processor-level entities by name only; resolution happens at prepare time.
package model

// LocalizedString carries one value per supported language. Missing languages
// are filled from the first declared language during config normalization.
type LocalizedString struct {
	RU string `yaml:"ru,omitempty"`
	UK string `yaml:"uk,omitempty"`
	EN string `yaml:"en,omitempty"`
}

// IsZero reports whether no language has a value.
func (l LocalizedString) IsZero() bool {
	return l.RU == "" && l.UK == "" && l.EN == ""
}

// Get returns the value for a language code, empty when unset.
func (l LocalizedString) Get(lang string) string {
	switch lang {
	case "ru":
		return l.RU
	case "uk":
		return l.UK
	case "en":
		return l.EN
	}
	return ""
}

// Set assigns the value for a language code.
func (l *LocalizedString) Set(lang, value string) {
	switch lang {
	case "ru":
		l.RU = value
	case "uk":
		l.UK = value
	case "en":
		l.EN = value
	}
}

// EventBinding maps a platform event name to a handler procedure name.
// A slice keeps declaration order so generation stays deterministic.
type EventBinding struct {
	Event   string
	Handler string
}

// Processor is the root entity the compiler emits.
type Processor struct {
	Name            string
	Synonym         LocalizedString
	Comment         string
	PlatformVersion string
	Languages       []string

	Attributes      []*Attribute
	TabularSections []*TabularSection
	Forms           []*Form
	Templates       []*Template

	Validation   *ValidationConfig
	ObjectModule string

	// Stable identifiers minted at construction.
	UUID          string
	ObjectUUID    string
	TypeUUID      string
	ValueUUID     string
	FormGroupUUID string
}

// Attribute is a processor-level data attribute.
type Attribute struct {
	Name           string
	Type           string
	Synonym        LocalizedString
	Tooltip        LocalizedString
	Length         int
	Digits         int
	FractionDigits int
	UUID           string
}

// Column belongs to a tabular section, value table, value tree or dynamic
// list. For form-local tables the column lives on the form, not the object.
type Column struct {
	Name           string
	Type           string
	Synonym        LocalizedString
	Length         int
	Digits         int
	FractionDigits int
	ReadOnly       bool
	UUID           string
}

// TabularSection is a processor-owned collection with columns.
type TabularSection struct {
	Name    string
	Synonym LocalizedString
	Columns []*Column

	UUID         string
	TypeUUID     string
	ValueUUID    string
	RowTypeUUID  string
	RowValueUUID string
}

// Form is a screen whose UI is a tree of form elements.
type Form struct {
	Name          string
	Default       bool
	Synonym       LocalizedString
	HandlersFile  string
	HandlersDir   string
	Documentation string

	Elements       []*FormElement
	AutoCommandBar []*FormElement
	Commands       []*Command
	Events         []EventBinding

	FormAttributes []*FormAttribute
	ValueTables    []*ValueTableAttribute
	ValueTrees     []*ValueTableAttribute
	DynamicLists   []*DynamicListAttribute
	Parameters     []*FormParameter

	ConditionalAppearances []ConditionalAppearance

	// HelperProcedures collects handler-source procedures not consumed by
	// event weaving; they are emitted verbatim into the utilities region.
	HelperProcedures []HelperProcedure

	UUID string
}

// HelperProcedure is an orphan procedure carried into the module as-is.
type HelperProcedure struct {
	Name string
	Body string
}

// FormElement is a recursive UI node. Properties not modeled as fields live
// in the free-form Properties map, keyed by the schema table's prop names.
type FormElement struct {
	Type string
	Name string

	Attribute      string // data binding, by name
	CommandName    string // for Button nodes
	TabularSection string // for Table nodes

	Events     []EventBinding
	Properties map[string]any
	Children   []*FormElement
}

// Title returns the multilingual title stashed in Properties, if any.
func (e *FormElement) Title() LocalizedString {
	return localizedProp(e.Properties, "title")
}

// Command is a form command with its handler action.
type Command struct {
	Name     string
	Title    LocalizedString
	Tooltip  LocalizedString
	Action   string
	Picture  string
	Shortcut string

	LongOperation bool
	LongOp        *LongOperationSettings

	UUID string
}

// LongOperationSettings tunes the background-job pattern a long-operation
// command expands into.
type LongOperationSettings struct {
	TimeoutSeconds   int
	ShowProgress     bool
	ProgressMessage  string
	CheckBeforeStart bool
	HandleResult     bool
}

// FormAttribute is form-local scalar data.
type FormAttribute struct {
	Name           string
	Type           string
	Title          LocalizedString
	Length         int
	Digits         int
	FractionDigits int
}

// ValueTableAttribute is form-local tabular data whose columns are defined on
// the form itself. Tree marks a value tree (hierarchical rows).
type ValueTableAttribute struct {
	Name    string
	Title   LocalizedString
	Columns []*Column
	Tree    bool
}

// DynamicListAttribute binds a live query to a form table.
type DynamicListAttribute struct {
	Name      string
	QueryText string
	MainTable string
	Columns   []*Column
}

// FormParameter is a form opening parameter.
type FormParameter struct {
	Name         string
	Type         string
	Synonym      LocalizedString
	KeyParameter bool
}

// ConditionalAppearance declares conditional formatting on form items.
type ConditionalAppearance struct {
	SelectedFields []string
	Filters        []AppearanceFilter
	Presentation   map[string]any
}

// AppearanceFilter is one filter item of a conditional appearance.
type AppearanceFilter struct {
	Field          string
	ComparisonType string
	Value          any
}

// Template is an HTML or spreadsheet document attached to the processor.
type Template struct {
	Name    string
	Kind    string // HTMLDocument | SpreadsheetDocument
	Synonym LocalizedString
	File    string
	Content string
	Binary  []byte

	AutoField  bool
	TargetForm string
	FieldName  string

	Expressions map[string]string
	Assets      TemplateAssets
	Sanitize    bool

	UUID string
}

// TemplateAssets are CSS and JS files inlined into HTML template content.
type TemplateAssets struct {
	CSS []string
	JS  []string
}

// ValidationConfig selects platform-driver validation passes.
type ValidationConfig struct {
	Syntax   bool
	Semantic bool

	ThinClient         bool
	WebClient          bool
	Server             bool
	ExternalConnection bool
}

func localizedProp(props map[string]any, key string) LocalizedString {
	var out LocalizedString
	if props == nil {
		return out
	}
	for _, lang := range []string{"ru", "uk", "en"} {
		if v, ok := props[key+"_"+lang].(string); ok {
			out.Set(lang, v)
		}
	}
	return out
}
