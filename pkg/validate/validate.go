// Package validate enforces model-level invariants before generation:
// identifier shape, identifier uniqueness, numeric qualifier ranges,
// picture whitelist membership and reference resolution.
package validate

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/itdeo/go-procgen/internal/model"
	"github.com/itdeo/go-procgen/internal/schema"
)

// ErrInvalidModel marks a model that failed validation.
var ErrInvalidModel = errors.New("validate: invalid model")

// Result accumulates everything one validation pass found.
type Result struct {
	Errors   []string
	Warnings []string
}

func (r *Result) errorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *Result) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Err folds the accumulated errors into a single ErrInvalidModel, or nil.
func (r *Result) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %d error(s), first: %s", ErrInvalidModel, len(r.Errors), r.Errors[0])
}

// Validator checks processors against the model invariants.
type Validator struct {
	logger *slog.Logger
}

// Option configures a Validator.
type Option func(*Validator)

// WithLogger overrides the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(v *Validator) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// New returns a Validator with defaults applied.
func New(opts ...Option) *Validator {
	v := &Validator{}
	for _, opt := range opts {
		opt(v)
	}
	if v.logger == nil {
		v.logger = slog.Default()
	}
	return v
}

var identifierRe = regexp.MustCompile(`^[\p{L}_][\p{L}\p{N}_]*$`)

// ValidateModel runs every model check and returns the accumulated result.
// Callers turn it into an error with Result.Err.
func (v *Validator) ValidateModel(proc *model.Processor) *Result {
	res := &Result{}

	v.checkIdentifier(res, "processor", proc.Name)
	if _, reserved := schema.ReservedMetadataNames[proc.Name]; reserved {
		res.errorf("processor name %q is a reserved metadata name", proc.Name)
	}
	if proc.PlatformVersion != "" {
		if _, ok := schema.PlatformVersions[proc.PlatformVersion]; !ok {
			res.warnf("platform version %q is not in the supported table", proc.PlatformVersion)
		}
	}

	v.checkUUIDs(res, proc)
	v.checkAttributes(res, proc)
	v.checkTabularSections(res, proc)
	v.checkForms(res, proc)
	v.checkTemplates(res, proc)

	v.logger.Debug("model validated",
		"processor", proc.Name,
		"errors", len(res.Errors),
		"warnings", len(res.Warnings))
	return res
}

func (v *Validator) checkIdentifier(res *Result, kind, name string) {
	if name == "" {
		res.errorf("%s: empty identifier", kind)
		return
	}
	if !identifierRe.MatchString(name) {
		res.errorf("%s: %q is not a valid identifier", kind, name)
	}
	if len(name) > 1024 {
		res.errorf("%s: identifier %q exceeds 1024 characters", kind, name[:32]+"…")
	}
}

// checkUUIDs verifies the 8-4-4-4-12 lowercase shape and global uniqueness
// of every stable identifier on the processor.
func (v *Validator) checkUUIDs(res *Result, proc *model.Processor) {
	seen := map[string]string{}
	check := func(owner, id string) {
		if id == "" {
			return
		}
		if id != strings.ToLower(id) {
			res.errorf("%s: identifier %s is not lowercase", owner, id)
			return
		}
		if _, err := uuid.Parse(id); err != nil {
			res.errorf("%s: malformed identifier %s", owner, id)
			return
		}
		if prev, dup := seen[id]; dup {
			res.errorf("%s: identifier %s already used by %s", owner, id, prev)
			return
		}
		seen[id] = owner
	}

	check("processor", proc.UUID)
	check("processor object", proc.ObjectUUID)
	check("processor type", proc.TypeUUID)
	check("processor value", proc.ValueUUID)
	check("processor form group", proc.FormGroupUUID)
	for _, a := range proc.Attributes {
		check("attribute "+a.Name, a.UUID)
	}
	for _, ts := range proc.TabularSections {
		check("tabular section "+ts.Name, ts.UUID)
		check("tabular section "+ts.Name+" type", ts.TypeUUID)
		check("tabular section "+ts.Name+" value", ts.ValueUUID)
		check("tabular section "+ts.Name+" row type", ts.RowTypeUUID)
		check("tabular section "+ts.Name+" row value", ts.RowValueUUID)
		for _, c := range ts.Columns {
			check("column "+ts.Name+"."+c.Name, c.UUID)
		}
	}
	for _, f := range proc.Forms {
		check("form "+f.Name, f.UUID)
		for _, c := range f.Commands {
			check("command "+f.Name+"."+c.Name, c.UUID)
		}
	}
	for _, t := range proc.Templates {
		check("template "+t.Name, t.UUID)
	}
}

func checkQualifiers(res *Result, owner, typ string, length, digits, fraction int) {
	switch typ {
	case "string":
		// Zero means the qualifier is absent: a bare string is a legal
		// unbounded type. Only an explicit negative or oversized length fails.
		if length < 0 || length > 1024 {
			res.errorf("%s: length %d invalid, must be unset or in (0, 1024]", owner, length)
		}
	case "number":
		if digits <= 0 || digits > 38 {
			res.errorf("%s: digits %d out of range (0, 38]", owner, digits)
			return
		}
		if fraction < 0 || fraction >= digits {
			res.errorf("%s: fraction digits %d must satisfy 0 <= fraction < digits (%d)", owner, fraction, digits)
		}
	}
}

func (v *Validator) checkAttributes(res *Result, proc *model.Processor) {
	for _, a := range proc.Attributes {
		v.checkIdentifier(res, "attribute", a.Name)
		if _, reserved := schema.ReservedMetadataNames[a.Name]; reserved {
			res.errorf("attribute %q shadows a reserved metadata name", a.Name)
		}
		checkQualifiers(res, "attribute "+a.Name, a.Type, a.Length, a.Digits, a.FractionDigits)
	}
}

func (v *Validator) checkTabularSections(res *Result, proc *model.Processor) {
	for _, ts := range proc.TabularSections {
		v.checkIdentifier(res, "tabular section", ts.Name)
		for _, c := range ts.Columns {
			v.checkIdentifier(res, "column "+ts.Name+".", c.Name)
			checkQualifiers(res, "column "+ts.Name+"."+c.Name, c.Type, c.Length, c.Digits, c.FractionDigits)
		}
	}
}

func (v *Validator) checkForms(res *Result, proc *model.Processor) {
	defaults := 0
	names := map[string]struct{}{}
	for _, f := range proc.Forms {
		v.checkIdentifier(res, "form", f.Name)
		if _, dup := names[f.Name]; dup {
			res.errorf("duplicate form name %q", f.Name)
		}
		names[f.Name] = struct{}{}
		if f.Default {
			defaults++
		}

		v.checkHandlerNames(res, f)
		v.checkCommands(res, f)
		v.checkElements(res, proc, f)
	}
	if defaults > 1 {
		res.errorf("more than one form is marked default")
	}
}

func (v *Validator) checkHandlerNames(res *Result, f *model.Form) {
	check := func(owner, handler string) {
		if handler == "" {
			return
		}
		if _, bad := schema.ReservedKeywords[handler]; bad {
			res.errorf("%s: handler name %q is a reserved keyword", owner, handler)
		}
		if _, bad := schema.FormBuiltinMethods[handler]; bad {
			res.errorf("%s: handler name %q collides with a built-in form method", owner, handler)
		}
	}
	for _, e := range f.Events {
		check("form "+f.Name, e.Handler)
	}
	var walk func(els []*model.FormElement)
	walk = func(els []*model.FormElement) {
		for _, el := range els {
			for _, e := range el.Events {
				check("form "+f.Name+" element "+el.Name, e.Handler)
			}
			walk(el.Children)
		}
	}
	walk(f.Elements)
	walk(f.AutoCommandBar)
}

func (v *Validator) checkCommands(res *Result, f *model.Form) {
	for _, cmd := range f.Commands {
		owner := "form " + f.Name + " command " + cmd.Name
		v.checkIdentifier(res, owner, cmd.Name)
		if cmd.Picture != "" {
			v.checkPicture(res, owner, cmd.Picture)
		}
		if cmd.LongOp != nil {
			if cmd.LongOp.TimeoutSeconds < 1 || cmd.LongOp.TimeoutSeconds > 3600 {
				res.errorf("%s: timeout %d out of range [1, 3600]", owner, cmd.LongOp.TimeoutSeconds)
			}
			if cmd.LongOp.ShowProgress && cmd.LongOp.ProgressMessage == "" {
				res.warnf("%s: progress requested without a progress message", owner)
			}
		}
	}
}

// checkPicture accepts StdPicture.* against the whitelist and
// CommonPicture.* unconditionally (those resolve at configuration level).
func (v *Validator) checkPicture(res *Result, owner, picture string) {
	if strings.HasPrefix(picture, "CommonPicture.") {
		return
	}
	if _, ok := schema.StdPictures[picture]; ok {
		return
	}
	candidates := make([]string, 0, len(schema.StdPictures))
	for name := range schema.StdPictures {
		candidates = append(candidates, name)
	}
	if hint := schema.Closest(picture, candidates); hint != "" {
		res.errorf("%s: unknown picture %q, did you mean %q?", owner, picture, hint)
		return
	}
	res.errorf("%s: unknown picture %q", owner, picture)
}

func (v *Validator) checkElements(res *Result, proc *model.Processor, f *model.Form) {
	formAttrs := map[string]struct{}{}
	for _, fa := range f.FormAttributes {
		formAttrs[fa.Name] = struct{}{}
	}
	for _, vt := range f.ValueTables {
		formAttrs[vt.Name] = struct{}{}
	}
	for _, vt := range f.ValueTrees {
		formAttrs[vt.Name] = struct{}{}
	}
	for _, dl := range f.DynamicLists {
		formAttrs[dl.Name] = struct{}{}
	}

	var walk func(els []*model.FormElement, table *model.FormElement)
	walk = func(els []*model.FormElement, table *model.FormElement) {
		for _, el := range els {
			owner := fmt.Sprintf("form %s element %s", f.Name, el.Name)
			v.checkIdentifier(res, owner, el.Name)

			if el.Type == "Button" {
				if f.FindCommand(el.CommandName) == nil {
					res.errorf("%s: command %q does not exist", owner, el.CommandName)
				}
			}
			if el.Type == "Table" {
				name := el.TabularSection
				if proc.FindTabularSection(name) == nil &&
					f.FindValueTable(name) == nil && f.FindDynamicList(name) == nil {
					res.errorf("%s: data source %q does not exist", owner, name)
				}
				walk(el.Children, el)
				continue
			}
			if el.Attribute != "" && table == nil {
				if proc.FindAttribute(el.Attribute) == nil {
					if _, formLocal := formAttrs[el.Attribute]; !formLocal {
						res.errorf("%s: attribute %q does not exist", owner, el.Attribute)
					}
				}
			}
			if el.Attribute != "" && table != nil {
				v.checkColumnRef(res, owner, proc, f, table, el.Attribute)
			}
			if pic, ok := el.Properties["picture"].(string); ok && pic != "" {
				v.checkPicture(res, owner, pic)
			}
			walk(el.Children, table)
		}
	}
	walk(f.Elements, nil)
	walk(f.AutoCommandBar, nil)
}

func (v *Validator) checkColumnRef(res *Result, owner string, proc *model.Processor, f *model.Form, table *model.FormElement, column string) {
	name := table.TabularSection
	if ts := proc.FindTabularSection(name); ts != nil {
		for _, c := range ts.Columns {
			if c.Name == column {
				return
			}
		}
		res.errorf("%s: column %q not found in tabular section %s", owner, column, name)
		return
	}
	if vt := f.FindValueTable(name); vt != nil {
		for _, c := range vt.Columns {
			if c.Name == column {
				return
			}
		}
		res.errorf("%s: column %q not found in value table %s", owner, column, name)
		return
	}
	if dl := f.FindDynamicList(name); dl != nil {
		for _, c := range dl.Columns {
			if c.Name == column {
				return
			}
		}
		// Dynamic list columns may come from the query; soft signal only.
		res.warnf("%s: column %q not declared on dynamic list %s", owner, column, name)
	}
}

func (v *Validator) checkTemplates(res *Result, proc *model.Processor) {
	for _, t := range proc.Templates {
		v.checkIdentifier(res, "template", t.Name)
		if t.Kind != "HTMLDocument" && t.Kind != "SpreadsheetDocument" {
			res.errorf("template %s: unknown kind %q", t.Name, t.Kind)
		}
		if t.AutoField && t.TargetForm != "" {
			found := false
			for _, f := range proc.Forms {
				if f.Name == t.TargetForm {
					found = true
					break
				}
			}
			if !found {
				res.errorf("template %s: target form %q does not exist", t.Name, t.TargetForm)
			}
		}
	}
}
