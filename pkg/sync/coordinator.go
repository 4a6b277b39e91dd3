package sync

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/itdeo/go-procgen/pkg/bsl"
	"github.com/itdeo/go-procgen/pkg/diff"
)

// ErrAborted reports that the user quit the confirmation loop. Nothing
// has been written when this is returned.
var ErrAborted = errors.New("sync: aborted")

// ErrReferenceBlocked reports a structural delete with live references
// that was not forced.
var ErrReferenceBlocked = errors.New("sync: delete blocked by references")

// Decision is one answer from the confirmation prompt.
type Decision int

const (
	DecisionApply Decision = iota
	DecisionSkip
	DecisionApplyAll
	DecisionSkipAll
	DecisionDetail
	DecisionSideBySide
	DecisionQuit
)

// PromptDriver asks the user about one pending patch. Detail requests
// loop back into Confirm after showing.
type PromptDriver interface {
	Confirm(p Patch) (Decision, error)
	ShowDetail(p Patch)
	ShowSideBySide(p Patch)
}

// autoApprove applies everything without asking.
type autoApprove struct{}

func (autoApprove) Confirm(Patch) (Decision, error) { return DecisionApply, nil }
func (autoApprove) ShowDetail(Patch)                {}
func (autoApprove) ShowSideBySide(Patch)            {}

// Options configure one sync run.
type Options struct {
	ConfigPath   string
	HandlersPath string
	SnapshotDir  string

	// The designer-edited export.
	ModifiedXML      string
	ModifiedHandlers string
	ModifiedForms    map[string]string // form name -> edited Form.xml path

	AutoApprove bool
	Force       bool
}

// Applied counts patches by category for the report.
type Applied struct {
	YAMLUpdates       int `json:"yaml_updates"`
	HandlerUpdates    int `json:"handler_updates"`
	StructuralUpdates int `json:"structural_updates"`
}

// Report is the structured outcome of a sync run.
type Report struct {
	Status         string   `json:"status"` // success | error | cancelled
	BackupDir      string   `json:"backup_dir,omitempty"`
	ChangesApplied Applied  `json:"changes_applied"`
	Details        []string `json:"details,omitempty"`
	Error          string   `json:"error,omitempty"`
}

// Coordinator drives the reverse path: diff, map, confirm, backup,
// apply, and roll back on failure.
type Coordinator struct {
	prompt    PromptDriver
	yamlPatch *YAMLPatcher
	bslPatch  *bsl.Patcher
	logger    *slog.Logger
	now       func() time.Time
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithPrompt installs the interactive confirmation driver.
func WithPrompt(p PromptDriver) CoordinatorOption {
	return func(c *Coordinator) {
		if p != nil {
			c.prompt = p
		}
	}
}

// WithLogger sets the coordinator's logger.
func WithLogger(l *slog.Logger) CoordinatorOption {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithClock overrides the time source used for backup naming.
func WithClock(now func() time.Time) CoordinatorOption {
	return func(c *Coordinator) {
		if now != nil {
			c.now = now
		}
	}
}

// NewCoordinator returns a Coordinator with defaults applied.
func NewCoordinator(opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		yamlPatch: NewYAMLPatcher(),
		bslPatch:  bsl.NewPatcher(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.prompt == nil {
		c.prompt = autoApprove{}
	}
	return c
}

var snapshotBOM = []byte{0xEF, 0xBB, 0xBF}

func readTextFile(path string) (string, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	payload = bytes.TrimPrefix(payload, snapshotBOM)
	return strings.ReplaceAll(string(payload), "\r\n", "\n"), nil
}

// Sync runs the reverse path end to end and returns the report. The
// report's status is authoritative; the error return carries the cause
// for non-success outcomes that should abort the process.
func (c *Coordinator) Sync(ctx context.Context, opts Options) (*Report, error) {
	report := &Report{Status: "error"}

	patches, doc, err := c.collectPatches(ctx, opts)
	if err != nil {
		report.Error = err.Error()
		return report, err
	}
	if len(patches) == 0 {
		report.Status = "success"
		report.Details = append(report.Details, "no changes detected")
		return report, nil
	}

	approved, skipped, err := c.confirm(patches, opts)
	if err != nil {
		if errors.Is(err, ErrAborted) {
			report.Status = "cancelled"
			return report, nil
		}
		report.Error = err.Error()
		return report, err
	}
	report.Details = append(report.Details, skipped...)
	if len(approved) == 0 {
		report.Status = "success"
		report.Details = append(report.Details, "all changes skipped")
		return report, nil
	}

	now := time.Now
	if c.now != nil {
		now = c.now
	}
	backup, err := CreateBackup(filepath.Dir(opts.ConfigPath), now(), opts.ConfigPath, opts.HandlersPath)
	if err != nil {
		report.Error = err.Error()
		return report, err
	}
	report.BackupDir = backup.Dir

	applied, err := c.apply(doc, approved, opts)
	report.ChangesApplied = applied
	if err != nil {
		c.logger.Error("apply failed, restoring backup", "error", err)
		if rerr := backup.Restore(); rerr != nil {
			c.logger.Error("restore failed", "error", rerr)
		}
		report.Error = err.Error()
		return report, err
	}

	for _, p := range approved {
		report.Details = append(report.Details, p.Description)
	}
	report.Status = "success"
	c.logger.Info("sync complete",
		"yaml", applied.YAMLUpdates, "structural", applied.StructuralUpdates, "handlers", applied.HandlerUpdates)
	return report, nil
}

// collectPatches loads the snapshot and the modified export, runs every
// differ and maps the union of deltas into patches.
func (c *Coordinator) collectPatches(ctx context.Context, opts Options) ([]Patch, *yaml.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	snapXML, err := readTextFile(filepath.Join(opts.SnapshotDir, "original.xml"))
	if err != nil {
		return nil, nil, fmt.Errorf("sync: load snapshot descriptor: %w", err)
	}
	modXML, err := readTextFile(opts.ModifiedXML)
	if err != nil {
		return nil, nil, fmt.Errorf("sync: load modified descriptor: %w", err)
	}

	configRaw, err := os.ReadFile(opts.ConfigPath)
	if err != nil {
		return nil, nil, fmt.Errorf("sync: load declarative source: %w", err)
	}
	doc := &yaml.Node{}
	if err := yaml.Unmarshal(bytes.TrimPrefix(configRaw, snapshotBOM), doc); err != nil {
		return nil, nil, fmt.Errorf("sync: parse declarative source: %w", err)
	}

	origRoot, err := diff.ParseXML([]byte(snapXML))
	if err != nil {
		return nil, nil, err
	}
	modRoot, err := diff.ParseXML([]byte(modXML))
	if err != nil {
		return nil, nil, err
	}
	origProc, err := diff.ExtractProcessor(origRoot)
	if err != nil {
		return nil, nil, err
	}
	modProc, err := diff.ExtractProcessor(modRoot)
	if err != nil {
		return nil, nil, err
	}

	mapper := NewMapper(doc)
	var patches []Patch

	scalarPatches, err := mapper.MapScalarChanges(diff.DiffScalars(origProc, modProc))
	if err != nil {
		return nil, nil, err
	}
	patches = append(patches, scalarPatches...)

	formNames := make([]string, 0, len(opts.ModifiedForms))
	for name := range opts.ModifiedForms {
		formNames = append(formNames, name)
	}
	sort.Strings(formNames)
	for _, name := range formNames {
		formPatches, err := c.diffForm(mapper, opts, origProc.Name, name)
		if err != nil {
			return nil, nil, err
		}
		patches = append(patches, formPatches...)
	}

	handlerPatches, err := c.diffHandlers(mapper, opts)
	if err != nil {
		return nil, nil, err
	}
	patches = append(patches, handlerPatches...)

	c.attachReferences(doc, opts, patches)
	return patches, doc, nil
}

// diffForm diffs one form's snapshot Form.xml copy against the edited
// one: the element hierarchy and the flat form sections.
func (c *Coordinator) diffForm(mapper *Mapper, opts Options, procName, formName string) ([]Patch, error) {
	snapPath := filepath.Join(opts.SnapshotDir, procName, "Forms", formName, "Ext", "Form.xml")
	snapText, err := readTextFile(snapPath)
	if err != nil {
		if os.IsNotExist(err) {
			c.logger.Warn("no snapshot form copy, skipping form diff", "form", formName)
			return nil, nil
		}
		return nil, fmt.Errorf("sync: load snapshot form %s: %w", formName, err)
	}
	modText, err := readTextFile(opts.ModifiedForms[formName])
	if err != nil {
		return nil, fmt.Errorf("sync: load modified form %s: %w", formName, err)
	}

	snapForm, err := diff.ParseXML([]byte(snapText))
	if err != nil {
		return nil, err
	}
	modForm, err := diff.ParseXML([]byte(modText))
	if err != nil {
		return nil, err
	}

	var patches []Patch
	scalars, err := mapper.MapScalarChanges(diff.DiffFormScalars(formName,
		diff.ExtractFormScalars(snapForm), diff.ExtractFormScalars(modForm)))
	if err != nil {
		return nil, err
	}
	patches = append(patches, scalars...)

	delta := diff.DiffTrees(diff.ExtractFormElements(snapForm), diff.ExtractFormElements(modForm))
	treePatches, err := mapper.MapTreeDelta(formName, delta)
	if err != nil {
		return nil, err
	}
	return append(patches, treePatches...), nil
}

func (c *Coordinator) diffHandlers(mapper *Mapper, opts Options) ([]Patch, error) {
	if opts.ModifiedHandlers == "" {
		return nil, nil
	}
	snapHandlers, err := readTextFile(filepath.Join(opts.SnapshotDir, "original_handlers.bsl"))
	if err != nil {
		return nil, fmt.Errorf("sync: load snapshot handlers: %w", err)
	}
	modHandlers, err := readTextFile(opts.ModifiedHandlers)
	if err != nil {
		return nil, fmt.Errorf("sync: load modified handlers: %w", err)
	}
	return mapper.MapHandlerChanges(bsl.DiffModules(snapHandlers, modHandlers)), nil
}

// attachReferences runs the reference checker over every structural
// delete and stores citations on the patch.
func (c *Coordinator) attachReferences(doc *yaml.Node, opts Options, patches []Patch) {
	handlers := ""
	if opts.HandlersPath != "" {
		if text, err := readTextFile(opts.HandlersPath); err == nil {
			handlers = text
		}
	}
	checker := NewRefChecker(doc, handlers)
	for i := range patches {
		p := &patches[i]
		if p.Kind != PatchYAMLDelete {
			continue
		}
		target := RefElement
		switch {
		case p.Path == "attributes" || strings.Contains(p.Path, "].columns"):
			target = RefAttribute
		case strings.HasSuffix(p.Path, ".commands"):
			target = RefCommand
		case p.Path == "forms":
			target = RefForm
		}
		p.References = checker.Check(target, p.Name)
	}
}

// confirm runs the interactive loop. Reference-blocked deletes are
// never offered: they are skipped with their citations reported, and
// the remaining changes proceed. Force lifts the block.
func (c *Coordinator) confirm(patches []Patch, opts Options) (approved []Patch, skipped []string, err error) {
	prompt := c.prompt
	if opts.AutoApprove {
		prompt = autoApprove{}
	}

	applyAll := false
	skipAll := false
	for _, p := range patches {
		if len(p.References) > 0 && !opts.Force {
			for _, ref := range p.References {
				c.logger.Warn("delete blocked", "target", p.Name, "reference", ref)
			}
			skipped = append(skipped,
				fmt.Sprintf("skipped (%d references): %s", len(p.References), p.Description))
			continue
		}
		if len(p.References) > 0 {
			for _, ref := range p.References {
				c.logger.Warn("forced delete over reference", "target", p.Name, "reference", ref)
			}
		}
		if skipAll {
			continue
		}
		if applyAll {
			approved = append(approved, p)
			continue
		}
		decision, err := c.ask(prompt, p)
		if err != nil {
			return nil, nil, err
		}
		switch decision {
		case DecisionApply:
			approved = append(approved, p)
		case DecisionSkip:
		case DecisionApplyAll:
			applyAll = true
			approved = append(approved, p)
		case DecisionSkipAll:
			skipAll = true
		case DecisionQuit:
			return nil, nil, ErrAborted
		}
	}
	return approved, skipped, nil
}

// ask loops on detail requests until the driver answers with a real
// decision.
func (c *Coordinator) ask(prompt PromptDriver, p Patch) (Decision, error) {
	for {
		decision, err := prompt.Confirm(p)
		if err != nil {
			return DecisionQuit, err
		}
		switch decision {
		case DecisionDetail:
			prompt.ShowDetail(p)
		case DecisionSideBySide:
			prompt.ShowSideBySide(p)
		default:
			return decision, nil
		}
	}
}

// apply writes the approved patches: scalars first, then structural
// changes (deletes before inserts), then handler patches.
func (c *Coordinator) apply(doc *yaml.Node, approved []Patch, opts Options) (Applied, error) {
	var applied Applied

	ordered := make([]Patch, 0, len(approved))
	for _, p := range approved {
		if p.Kind == PatchYAMLScalar {
			ordered = append(ordered, p)
		}
	}
	for _, p := range approved {
		if p.Kind == PatchYAMLDelete {
			ordered = append(ordered, p)
		}
	}
	for _, p := range approved {
		if p.Kind == PatchYAMLInsert || p.Kind == PatchYAMLMove {
			ordered = append(ordered, p)
		}
	}

	for _, p := range ordered {
		if p.Kind == PatchYAMLDelete && len(p.References) > 0 && !opts.Force {
			return applied, fmt.Errorf("%w: %s", ErrReferenceBlocked, p.Name)
		}
		var err error
		switch p.Kind {
		case PatchYAMLScalar:
			err = c.yamlPatch.Set(doc, p.Path, p.Value)
			applied.YAMLUpdates++
		case PatchYAMLDelete:
			err = c.yamlPatch.Delete(doc, p.Path, p.Name)
			applied.StructuralUpdates++
		case PatchYAMLInsert:
			err = c.yamlPatch.Insert(doc, p.Path, p.Index, p.Value)
			applied.StructuralUpdates++
		case PatchYAMLMove:
			err = c.yamlPatch.Move(doc, p.Path, p.Name, p.Index)
			applied.StructuralUpdates++
		}
		if err != nil {
			return applied, fmt.Errorf("sync: apply %s: %w", p.Description, err)
		}
	}

	if applied.YAMLUpdates+applied.StructuralUpdates > 0 {
		if err := writeYAML(opts.ConfigPath, doc); err != nil {
			return applied, err
		}
	}

	handlerPatches := make([]Patch, 0)
	for _, p := range approved {
		if p.IsHandler() {
			handlerPatches = append(handlerPatches, p)
		}
	}
	if len(handlerPatches) > 0 {
		if err := c.applyHandlers(opts.HandlersPath, handlerPatches, &applied); err != nil {
			return applied, err
		}
	}
	return applied, nil
}

func (c *Coordinator) applyHandlers(path string, patches []Patch, applied *Applied) error {
	src, err := readTextFile(path)
	if err != nil {
		return fmt.Errorf("sync: load handler source: %w", err)
	}
	for _, p := range patches {
		switch p.Kind {
		case PatchHandlerAdd:
			src = c.bslPatch.Add(src, p.Body)
			applied.HandlerUpdates++
		case PatchHandlerModify:
			patched, err := c.bslPatch.Modify(src, p.Procedure, p.Body, p.OldBody)
			if err != nil {
				c.logger.Warn("handler modify skipped", "procedure", p.Procedure, "error", err)
				continue
			}
			src = patched
			applied.HandlerUpdates++
		case PatchHandlerDelete:
			patched, err := c.bslPatch.Delete(src, p.Procedure)
			if err != nil {
				c.logger.Warn("handler delete skipped", "procedure", p.Procedure, "error", err)
				continue
			}
			src = patched
			applied.HandlerUpdates++
		}
	}
	payload := append(append([]byte{}, snapshotBOM...), []byte(src)...)
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return fmt.Errorf("sync: write handler source: %w", err)
	}
	return nil
}

// writeYAML re-serializes the patched document with two-space indents,
// preserving comments.
func writeYAML(path string, doc *yaml.Node) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("sync: encode declarative source: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("sync: encode declarative source: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("sync: write declarative source: %w", err)
	}
	return nil
}
