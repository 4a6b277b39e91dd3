package generate

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/itdeo/go-procgen/internal/ids"
	"github.com/itdeo/go-procgen/internal/model"
	"github.com/itdeo/go-procgen/pkg/bsl"
	"github.com/itdeo/go-procgen/pkg/config"
	"github.com/itdeo/go-procgen/pkg/platform"
	"github.com/itdeo/go-procgen/pkg/validate"
)

// Version is stamped into snapshot metadata; overridden at build time.
var Version = "dev"

// Generator drives the forward path end to end: load, validate, weave,
// prepare, render, write, snapshot.
type Generator struct {
	loader    *config.Loader
	validator *validate.Validator
	injector  *bsl.Injector
	assembler *bsl.Assembler
	engine    *Engine
	writer    *Writer
	driver    platform.Driver
	epfPath   string
	logger    *slog.Logger
	now       func() time.Time
	version   string
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithLogger sets the generator's logger.
func WithLogger(l *slog.Logger) GeneratorOption {
	return func(g *Generator) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithEngine overrides the template engine.
func WithEngine(e *Engine) GeneratorOption {
	return func(g *Generator) {
		if e != nil {
			g.engine = e
		}
	}
}

// WithFinalizer sets the module finalizer applied to every assembled
// handler module.
func WithFinalizer(f bsl.ModuleFinalizer) GeneratorOption {
	return func(g *Generator) { g.assembler = bsl.NewAssembler(bsl.WithFinalizer(f)) }
}

// WithDriver installs a platform driver for post-generation checks.
func WithDriver(d platform.Driver) GeneratorOption {
	return func(g *Generator) { g.driver = d }
}

// WithEPFOutput asks for a compiled .epf at path after the tree is
// written; the snapshot is then rebuilt from the driver's own export.
func WithEPFOutput(path string) GeneratorOption {
	return func(g *Generator) { g.epfPath = path }
}

// WithClock overrides the time source used for snapshot metadata.
func WithClock(now func() time.Time) GeneratorOption {
	return func(g *Generator) {
		if now != nil {
			g.now = now
		}
	}
}

// NewGenerator returns a Generator with defaults applied.
func NewGenerator(opts ...GeneratorOption) *Generator {
	g := &Generator{version: Version}
	for _, opt := range opts {
		opt(g)
	}
	if g.logger == nil {
		g.logger = slog.Default()
	}
	if g.loader == nil {
		g.loader = config.New(config.WithLogger(g.logger))
	}
	if g.validator == nil {
		g.validator = validate.New(validate.WithLogger(g.logger))
	}
	if g.injector == nil {
		g.injector = bsl.NewInjector(bsl.WithLogger(g.logger))
	}
	if g.assembler == nil {
		g.assembler = bsl.NewAssembler()
	}
	if g.engine == nil {
		g.engine = NewEngine()
	}
	if g.writer == nil {
		g.writer = NewWriter(WithWriterLogger(g.logger))
	}
	if g.now == nil {
		g.now = time.Now
	}
	return g
}

// Report summarizes one generation run.
type Report struct {
	Processor string   `json:"processor"`
	OutputDir string   `json:"output_dir"`
	Forms     []string `json:"forms"`
	Templates []string `json:"templates"`
	Artifacts int      `json:"artifacts"`
	Warnings  []string `json:"warnings,omitempty"`
}

// Generate compiles the config at configPath into the artifact tree under
// outDir.
func (g *Generator) Generate(ctx context.Context, configPath, outDir string) (*Report, error) {
	res, err := g.loader.Load(ctx, configPath)
	if err != nil {
		return nil, err
	}
	proc := res.Processor
	report := &Report{Processor: proc.Name, OutputDir: outDir, Warnings: res.Warnings}

	vres := g.validator.ValidateModel(proc)
	report.Warnings = append(report.Warnings, vres.Warnings...)
	if err := vres.Err(); err != nil {
		for _, msg := range vres.Errors {
			g.logger.Error("model validation", "error", msg)
		}
		return nil, err
	}

	artifacts, rootXML, modules, formXML, err := g.buildArtifacts(proc, report)
	if err != nil {
		return nil, err
	}

	meta := newSnapshotMeta(g.now(), proc.Name, proc.PlatformVersion, res.ConfigDir, g.version)
	snapshot, err := buildSnapshot(meta, rootXML, modules, formXML, formNames(proc))
	if err != nil {
		return nil, err
	}
	for i := range snapshot {
		snapshot[i].Path = SnapshotDir + "/" + snapshot[i].Path
	}
	artifacts = append(artifacts, snapshot...)

	if err := g.writer.Write(ctx, outDir, artifacts); err != nil {
		return nil, err
	}
	report.Artifacts = len(artifacts)

	if err := g.runPlatformChecks(ctx, proc, outDir); err != nil {
		return nil, err
	}
	if g.epfPath != "" {
		if g.driver == nil {
			g.logger.Warn("epf output requested without a platform driver, skipping")
		} else if err := g.exportSnapshot(ctx, proc, outDir, meta); err != nil {
			return nil, err
		}
	}

	g.logger.Info("generation complete",
		"processor", proc.Name, "forms", len(proc.Forms), "artifacts", report.Artifacts)
	return report, nil
}

// runPlatformChecks compiles the emitted tree through the platform driver
// when the config asks for validation. Without a driver the checks are
// skipped.
func (g *Generator) runPlatformChecks(ctx context.Context, proc *model.Processor, outDir string) error {
	vc := proc.Validation
	if g.driver == nil || vc == nil || (!vc.Syntax && !vc.Semantic) {
		return nil
	}
	rootXML := filepath.Join(outDir, proc.Name, proc.Name+".xml")
	epfPath := filepath.Join(outDir, proc.Name+".epf")

	res, err := platform.Run(ctx, platform.DefaultTimeout, g.logger, func(ctx context.Context) (*platform.Result, error) {
		if vc.Semantic {
			return g.driver.CompileWithConfiguration(ctx, outDir, epfPath, nil, proc,
				platform.ConfigCompileOptions{})
		}
		return g.driver.Compile(ctx, rootXML, epfPath, platform.CompileOptions{Validate: vc.Syntax})
	})
	if err != nil {
		return err
	}
	for _, msg := range res.Messages {
		g.logger.Warn("platform check", "message", msg)
	}
	if !res.OK {
		return fmt.Errorf("generate: platform checks failed")
	}
	return nil
}

// exportSnapshot compiles the written tree into the requested .epf,
// decompiles it back and replaces the snapshot with the designer's own
// export. A driver that produces no export leaves the initial snapshot
// in place.
func (g *Generator) exportSnapshot(ctx context.Context, proc *model.Processor, outDir string, meta SnapshotMeta) error {
	rootXML := filepath.Join(outDir, proc.Name, proc.Name+".xml")
	res, err := platform.Run(ctx, platform.DefaultTimeout, g.logger, func(ctx context.Context) (*platform.Result, error) {
		return g.driver.Compile(ctx, rootXML, g.epfPath, platform.CompileOptions{})
	})
	if err != nil {
		return err
	}
	if !res.OK {
		return fmt.Errorf("generate: epf compile failed: %s", strings.Join(res.Messages, "; "))
	}

	exportDir, err := os.MkdirTemp("", "procgen-export-*")
	if err != nil {
		return fmt.Errorf("generate: create export dir: %w", err)
	}
	defer os.RemoveAll(exportDir)

	if _, err := platform.Run(ctx, platform.DefaultTimeout, g.logger, func(ctx context.Context) (*platform.Result, error) {
		return g.driver.Decompile(ctx, g.epfPath, exportDir, platform.DecompileOptions{})
	}); err != nil {
		return err
	}

	meta.SnapshotType = "epf_export"
	snapshot, err := snapshotFromExport(exportDir, meta)
	if err != nil {
		return err
	}
	if snapshot == nil {
		g.logger.Info("driver produced no export, keeping the initial snapshot", "epf", g.epfPath)
		return nil
	}
	g.logger.Info("snapshot rebuilt from epf export", "epf", g.epfPath)
	return g.writer.Write(ctx, filepath.Join(outDir, SnapshotDir), snapshot)
}

// buildArtifacts produces the artifact tree minus the snapshot: the root
// descriptor, the object module, and per-form metadata, layout and module
// files, plus templates.
func (g *Generator) buildArtifacts(proc *model.Processor, report *Report) ([]Artifact, string, []moduleSnapshot, map[string]string, error) {
	var artifacts []Artifact
	var modules []moduleSnapshot
	formXML := map[string]string{}

	rootXML, err := g.renderProcessor(proc)
	if err != nil {
		return nil, "", nil, nil, err
	}
	artifacts = append(artifacts, TextArtifact(proc.Name+"/"+proc.Name+".xml", rootXML, true))

	// The designer's export nests the content tree one level below the
	// root descriptor: <name>/<name>.xml beside <name>/<name>/Ext|Forms.
	inner := proc.Name + "/" + proc.Name

	objectModule := g.assembler.ObjectModule(proc, ids.Start)
	artifacts = append(artifacts, TextArtifact(
		inner+"/Ext/ObjectModule."+ModuleExtension, objectModule, false))
	modules = append(modules, moduleSnapshot{Owner: "ObjectModule", Source: objectModule})

	rend := newRenderer(proc)
	for _, form := range proc.Forms {
		module, xml, err := g.buildForm(proc, form, rend, report)
		if err != nil {
			return nil, "", nil, nil, err
		}
		base := inner + "/Forms/" + form.Name
		metaXML, err := g.renderFormMeta(proc, form)
		if err != nil {
			return nil, "", nil, nil, err
		}
		artifacts = append(artifacts,
			TextArtifact(base+".xml", metaXML, true),
			TextArtifact(base+"/Ext/Form.xml", xml, true),
			TextArtifact(base+"/Ext/Form/Module."+ModuleExtension, module, false))
		modules = append(modules, moduleSnapshot{Owner: form.Name, Source: module})
		formXML[form.Name] = xml
		report.Forms = append(report.Forms, form.Name)
	}

	for _, tmpl := range proc.Templates {
		tmplArtifacts, err := g.buildTemplate(proc, tmpl)
		if err != nil {
			return nil, "", nil, nil, err
		}
		artifacts = append(artifacts, tmplArtifacts...)
		report.Templates = append(report.Templates, tmpl.Name)
	}

	return artifacts, rootXML, modules, formXML, nil
}

// buildForm weaves the form's handlers into its module and renders its
// layout XML.
func (g *Generator) buildForm(proc *model.Processor, form *model.Form, rend *renderer, report *Report) (module, formXML string, err error) {
	var split *bsl.SplitResult
	switch {
	case form.HandlersFile != "":
		split, err = bsl.SplitFile(form.HandlersFile)
	case form.HandlersDir != "":
		split, err = bsl.LoadHandlerDir(form.HandlersDir, form)
	}
	if err != nil {
		return "", "", err
	}

	hres := g.validator.ValidateHandlers(form, split)
	report.Warnings = append(report.Warnings, hres.Warnings...)
	if err := hres.Err(); err != nil {
		return "", "", err
	}

	woven, err := g.injector.Weave(form, split)
	if err != nil {
		return "", "", fmt.Errorf("generate: form %s: %w", form.Name, err)
	}
	for _, warn := range woven.Warnings {
		g.logger.Warn("handler weaving", "form", form.Name, "warning", warn)
		report.Warnings = append(report.Warnings, "form "+form.Name+": "+warn)
	}
	form.HelperProcedures = woven.Helpers

	prepared := PrepareForm(proc, form, ids.New())

	preamble := ""
	if split != nil {
		preamble = split.Preamble
	}
	module = g.assembler.FormModule(proc, form, woven, preamble, prepared.NextID)
	data := map[string]any{
		"format_version":   FormatVersion,
		"auto_command_bar": rend.Elements(prepared.AutoCommandBar),
		"events":           rend.FormEvents(form),
		"items":            rend.Elements(prepared.Items),
		"attributes":       rend.FormAttributes(form),
		"commands":         rend.Commands(form),
		"parameters":       rend.Parameters(form),
		"appearances":      rend.Appearances(form),
	}
	formXML, err = g.engine.Render("form.xml.tpl", data)
	if err != nil {
		return "", "", err
	}
	return module, formXML, nil
}

func (g *Generator) renderProcessor(proc *model.Processor) (string, error) {
	langs := proc.Languages
	attrs := make([]map[string]any, 0, len(proc.Attributes))
	for _, a := range proc.Attributes {
		attrs = append(attrs, map[string]any{
			"uuid":     a.UUID,
			"name":     a.Name,
			"synonym":  localeItems(a.Synonym, langs),
			"tooltip":  localeItems(a.Tooltip, langs),
			"type_xml": typeXML(a.Type, a.Length, a.Digits, a.FractionDigits),
		})
	}
	sections := make([]map[string]any, 0, len(proc.TabularSections))
	for _, ts := range proc.TabularSections {
		cols := make([]map[string]any, 0, len(ts.Columns))
		for _, col := range ts.Columns {
			cols = append(cols, map[string]any{
				"uuid":     col.UUID,
				"name":     col.Name,
				"synonym":  localeItems(col.Synonym, langs),
				"type_xml": typeXML(col.Type, col.Length, col.Digits, col.FractionDigits),
			})
		}
		sections = append(sections, map[string]any{
			"uuid":           ts.UUID,
			"name":           ts.Name,
			"synonym":        localeItems(ts.Synonym, langs),
			"type_uuid":      ts.TypeUUID,
			"value_uuid":     ts.ValueUUID,
			"row_type_uuid":  ts.RowTypeUUID,
			"row_value_uuid": ts.RowValueUUID,
			"columns":        cols,
		})
	}
	defaultForm := ""
	if f := proc.DefaultForm(); f != nil {
		defaultForm = f.Name
	}
	templateNames := make([]string, 0, len(proc.Templates))
	for _, t := range proc.Templates {
		templateNames = append(templateNames, t.Name)
	}
	data := map[string]any{
		"format_version":   FormatVersion,
		"uuid":             proc.UUID,
		"object_uuid":      proc.ObjectUUID,
		"type_uuid":        proc.TypeUUID,
		"value_uuid":       proc.ValueUUID,
		"name":             proc.Name,
		"synonym":          localeItems(proc.Synonym, langs),
		"comment":          proc.Comment,
		"default_form":     defaultForm,
		"attributes":       attrs,
		"tabular_sections": sections,
		"forms":            formNames(proc),
		"templates":        templateNames,
	}
	return g.engine.Render("processor.xml.tpl", data)
}

func (g *Generator) renderFormMeta(proc *model.Processor, form *model.Form) (string, error) {
	return g.engine.Render("form_meta.xml.tpl", map[string]any{
		"format_version": FormatVersion,
		"uuid":           form.UUID,
		"name":           form.Name,
		"synonym":        localeItems(form.Synonym, proc.Languages),
	})
}

// buildTemplate emits the template's metadata descriptor and its content
// file: HTML documents as text, spreadsheet documents as raw bytes.
func (g *Generator) buildTemplate(proc *model.Processor, tmpl *model.Template) ([]Artifact, error) {
	metaXML, err := g.engine.Render("template_meta.xml.tpl", map[string]any{
		"format_version": FormatVersion,
		"uuid":           tmpl.UUID,
		"name":           tmpl.Name,
		"kind":           tmpl.Kind,
		"synonym":        localeItems(tmpl.Synonym, proc.Languages),
	})
	if err != nil {
		return nil, err
	}
	base := proc.Name + "/" + proc.Name + "/Templates/" + tmpl.Name
	artifacts := []Artifact{TextArtifact(base+".xml", metaXML, true)}

	switch tmpl.Kind {
	case "HTMLDocument":
		helpXML, err := g.engine.Render("template_help.xml.tpl", map[string]any{
			"languages": proc.Languages,
		})
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, TextArtifact(base+"/Ext/Template.xml", helpXML, true))
		// The designer keeps one payload page per configured language.
		for _, lang := range proc.Languages {
			artifacts = append(artifacts, TextArtifact(base+"/Ext/Template/"+lang+".html", tmpl.Content, false))
		}
	case "SpreadsheetDocument":
		content := string(tmpl.Binary)
		if strings.TrimSpace(content) == "" {
			content = emptySpreadsheetXML
		}
		// MXL ships inline as the Ext descriptor; no reflow, the designer's
		// own serialization is authoritative.
		artifacts = append(artifacts, TextArtifact(base+"/Ext/Template.xml", content, false))
	default:
		return nil, fmt.Errorf("generate: template %s: unsupported kind %s", tmpl.Name, tmpl.Kind)
	}
	return artifacts, nil
}

const emptySpreadsheetXML = `<?xml version="1.0" encoding="UTF-8"?>
<document xmlns="http://v8.1c.ru/8.2/data/spreadsheet"/>`

func formNames(proc *model.Processor) []string {
	names := make([]string, 0, len(proc.Forms))
	for _, f := range proc.Forms {
		names = append(names, f.Name)
	}
	return names
}
