// Package config loads the declarative processor description from YAML into
// the shared model. Parsing is strict: the document is checked against a
// published schema, element and attribute types go through alias resolution
// with closest-match suggestions, and every referenced file must resolve.
package config

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"gopkg.in/yaml.v3"

	"github.com/itdeo/go-procgen/internal/model"
	"github.com/itdeo/go-procgen/internal/schema"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Loader parses processor configuration documents.
type Loader struct {
	logger    *slog.Logger
	sanitizer *bluemonday.Policy
	languages []string
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger overrides the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithSanitizer overrides the HTML sanitization policy applied to templates
// that opt into sanitizing.
func WithSanitizer(p *bluemonday.Policy) Option {
	return func(l *Loader) {
		if p != nil {
			l.sanitizer = p
		}
	}
}

// New returns a Loader with defaults applied.
func New(opts ...Option) *Loader {
	l := &Loader{}
	for _, opt := range opts {
		opt(l)
	}
	l.applyDefaults()
	return l
}

func (l *Loader) applyDefaults() {
	if l.logger == nil {
		l.logger = slog.Default()
	}
	if l.sanitizer == nil {
		l.sanitizer = bluemonday.UGCPolicy()
	}
	if len(l.languages) == 0 {
		l.languages = append([]string(nil), schema.Languages...)
	}
}

// Result is a parsed configuration plus everything the caller needs to act
// on it: non-fatal warnings and the directory all relative paths resolved
// against.
type Result struct {
	Processor *model.Processor
	Warnings  []string
	ConfigDir string
}

// Load reads and parses the configuration at path.
func (l *Loader) Load(ctx context.Context, path string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	raw = bytes.TrimPrefix(raw, utf8BOM)

	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, malformedf("parse %s: %v", path, err)
	}
	root := unwrapDoc(&doc)
	if root == nil || root.Kind != yaml.MappingNode {
		return nil, malformedf("%s: document root must be a mapping", path)
	}

	p := &parser{
		Loader: l,
		dir:    filepath.Dir(path),
	}
	if langs := stringListAt(root, "languages"); len(langs) > 0 {
		p.languages = langs
	}

	if err := validateDocument(root); err != nil {
		return nil, err
	}

	proc, err := p.parseProcessor(root)
	if err != nil {
		return nil, err
	}

	l.logger.Debug("config loaded",
		"path", path,
		"attributes", len(proc.Attributes),
		"forms", len(proc.Forms),
		"warnings", len(p.warnings))

	return &Result{Processor: proc, Warnings: p.warnings, ConfigDir: p.dir}, nil
}

// parser carries per-document state: the resolved language list, the base
// directory for relative paths and accumulated warnings.
type parser struct {
	*Loader
	dir      string
	warnings []string
}

func (p *parser) warnf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	p.warnings = append(p.warnings, msg)
	p.logger.Warn(msg)
}

func (p *parser) parseProcessor(root *yaml.Node) (*model.Processor, error) {
	head := mapLookup(root, "processor")
	if head == nil {
		return nil, malformedf("missing required section 'processor'")
	}
	name := stringAt(head, "name")
	if name == "" {
		return nil, malformedf("processor.name is required")
	}

	proc := model.NewProcessor(name)
	proc.Languages = append([]string(nil), p.languages...)
	proc.Comment = stringAt(head, "comment")
	proc.PlatformVersion = stringAt(head, "platform_version")
	if proc.PlatformVersion == "" {
		proc.PlatformVersion = "8.3.25"
	}

	syn, err := p.localizedField(head, "synonym", name)
	if err != nil {
		return nil, err
	}
	proc.Synonym = syn

	if err := p.parseAttributes(proc, root); err != nil {
		return nil, err
	}
	if err := p.parseTabularSections(proc, root); err != nil {
		return nil, err
	}
	if err := p.parseForms(proc, root); err != nil {
		return nil, err
	}
	if err := p.parseTemplates(proc, root); err != nil {
		return nil, err
	}
	if err := p.parseObjectModule(proc, root); err != nil {
		return nil, err
	}
	p.parseValidation(proc, root)

	return proc, nil
}

// localizedField reads a multilingual field accepting both the unified form
// (synonym: ...) and the suffixed form (synonym_ru: ...).
func (p *parser) localizedField(n *yaml.Node, key, fallback string) (model.LocalizedString, error) {
	if unified := mapLookup(n, key); unified != nil {
		return p.localized(unified, fallback)
	}
	var out model.LocalizedString
	found := false
	for _, lang := range p.languages {
		if v := stringAt(n, key+"_"+lang); v != "" {
			out.Set(lang, v)
			found = true
		}
	}
	if !found && fallback != "" {
		out.Set(p.languages[0], fallback)
	}
	fillMissing(&out, p.languages)
	return out, nil
}

func (p *parser) parseAttributes(proc *model.Processor, root *yaml.Node) error {
	for _, n := range seqItems(mapLookup(root, "attributes")) {
		attr, err := p.parseAttribute(n)
		if err != nil {
			return err
		}
		if proc.FindAttribute(attr.Name) != nil {
			return malformedf("duplicate attribute %q", attr.Name)
		}
		proc.Attributes = append(proc.Attributes, attr)
	}
	return nil
}

func (p *parser) parseAttribute(n *yaml.Node) (*model.Attribute, error) {
	name := stringAt(n, "name")
	if name == "" {
		return nil, malformedf("attribute without a name")
	}
	typ, err := p.canonicalValueType(stringAt(n, "type"), "attribute "+name)
	if err != nil {
		return nil, err
	}
	syn, err := p.localizedField(n, "synonym", name)
	if err != nil {
		return nil, err
	}
	tip, err := p.localizedField(n, "tooltip", "")
	if err != nil {
		return nil, err
	}
	return &model.Attribute{
		Name:           name,
		Type:           typ,
		Synonym:        syn,
		Tooltip:        tip,
		Length:         intAt(n, "length"),
		Digits:         intAt(n, "digits"),
		FractionDigits: intAt(n, "fraction_digits"),
		UUID:           newUUID(),
	}, nil
}

func (p *parser) parseTabularSections(proc *model.Processor, root *yaml.Node) error {
	for _, n := range seqItems(mapLookup(root, "tabular_sections")) {
		name := stringAt(n, "name")
		if name == "" {
			return malformedf("tabular section without a name")
		}
		if proc.FindTabularSection(name) != nil {
			return malformedf("duplicate tabular section %q", name)
		}
		ts := proc.AddTabularSection(name)
		syn, err := p.localizedField(n, "synonym", name)
		if err != nil {
			return err
		}
		ts.Synonym = syn
		cols, err := p.parseColumns(seqItems(mapLookup(n, "columns")), "tabular section "+name)
		if err != nil {
			return err
		}
		ts.Columns = cols
	}
	return nil
}

func (p *parser) parseColumns(nodes []*yaml.Node, owner string) ([]*model.Column, error) {
	var out []*model.Column
	seen := map[string]struct{}{}
	for _, n := range nodes {
		name := stringAt(n, "name")
		if name == "" {
			return nil, malformedf("%s: column without a name", owner)
		}
		if _, dup := seen[name]; dup {
			return nil, malformedf("%s: duplicate column %q", owner, name)
		}
		seen[name] = struct{}{}
		typ, err := p.canonicalValueType(stringAt(n, "type"), owner+" column "+name)
		if err != nil {
			return nil, err
		}
		syn, err := p.localizedField(n, "synonym", name)
		if err != nil {
			return nil, err
		}
		if syn.IsZero() {
			title, terr := p.localizedField(n, "title", name)
			if terr != nil {
				return nil, terr
			}
			syn = title
		}
		out = append(out, &model.Column{
			Name:           name,
			Type:           typ,
			Synonym:        syn,
			Length:         intAt(n, "length"),
			Digits:         intAt(n, "digits"),
			FractionDigits: intAt(n, "fraction_digits"),
			ReadOnly:       boolAt(n, "read_only", false),
			UUID:           newUUID(),
		})
	}
	return out, nil
}

// canonicalValueType resolves a data type through the form-attribute alias
// table; unresolvable values are rejected with the accepted set.
func (p *parser) canonicalValueType(raw, owner string) (string, error) {
	if raw == "" {
		return "", malformedf("%s: missing type", owner)
	}
	canonical, ok := schema.CanonicalFormAttributeType(raw)
	if !ok {
		return "", malformedf("%s: unknown type %q (accepted: string, number, boolean, date, spreadsheet_document, binary_data, planner)", owner, raw)
	}
	return canonical, nil
}

func (p *parser) parseObjectModule(proc *model.Processor, root *yaml.Node) error {
	om := mapLookup(root, "object_module")
	if om == nil {
		return nil
	}
	file := stringAt(om, "file")
	if file == "" {
		return malformedf("object_module.file is required when object_module is present")
	}
	body, err := p.readRelative(file)
	if err != nil {
		return err
	}
	proc.ObjectModule = body
	return nil
}

func (p *parser) parseValidation(proc *model.Processor, root *yaml.Node) {
	v := mapLookup(root, "validation")
	if v == nil {
		return
	}
	proc.Validation = &model.ValidationConfig{
		Syntax:             boolAt(v, "syntax", true),
		Semantic:           boolAt(v, "semantic", false),
		ThinClient:         boolAt(v, "thin_client", true),
		WebClient:          boolAt(v, "web_client", false),
		Server:             boolAt(v, "server", true),
		ExternalConnection: boolAt(v, "external_connection", false),
	}
}

// readRelative loads a file referenced from the config, resolving against
// the config's directory and stripping a UTF-8 BOM.
func (p *parser) readRelative(rel string) (string, error) {
	full := rel
	if !filepath.IsAbs(full) {
		full = filepath.Join(p.dir, rel)
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return "", malformedf("referenced file %s: %v", rel, err)
	}
	return strings.ReplaceAll(string(bytes.TrimPrefix(data, utf8BOM)), "\r\n", "\n"), nil
}
