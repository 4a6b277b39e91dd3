// Command procgen compiles declarative processor configs into 1C artifact
// trees and syncs designer edits back into the config.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/jessevdk/go-flags"

	"github.com/itdeo/go-procgen/internal/logging"
	"github.com/itdeo/go-procgen/pkg/config"
	"github.com/itdeo/go-procgen/pkg/generate"
	"github.com/itdeo/go-procgen/pkg/platform"
	procsync "github.com/itdeo/go-procgen/pkg/sync"
	"github.com/itdeo/go-procgen/pkg/sync/tui"
	"github.com/itdeo/go-procgen/pkg/validate"
)

// Exit codes. Zero is success, one is a generic failure; the rest are
// matched against sentinel errors so scripts can branch on the cause.
const (
	exitOK               = 0
	exitFailure          = 1
	exitMalformedConfig  = 2
	exitInvalidModel     = 3
	exitDriverTimeout    = 4
	exitReferenceBlocked = 5
)

type rootOptions struct {
	LogLevel string `long:"log-level" default:"info" description:"debug, info, warn or error"`

	Generate generateCommand `command:"generate" description:"compile a YAML config into an artifact tree"`
	Sync     syncCommand     `command:"sync" description:"merge designer edits back into the config"`
	Validate validateCommand `command:"validate" description:"load and validate a config without writing"`
	Init     initCommand     `command:"init" description:"write a starter config"`
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	var opts rootOptions
	parser := flags.NewParser(&opts, flags.Default)
	parser.CommandHandler = func(cmd flags.Commander, cmdArgs []string) error {
		logging.New(opts.LogLevel, os.Stderr)
		return cmd.Execute(cmdArgs)
	}

	if _, err := parser.ParseArgs(args); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) {
			if flagsErr.Type == flags.ErrHelp {
				return exitOK
			}
			// go-flags already printed the usage error.
			return exitFailure
		}
		fmt.Fprintln(os.Stderr, "procgen: "+err.Error())
		return exitCode(err)
	}
	return exitOK
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, config.ErrMalformed):
		return exitMalformedConfig
	case errors.Is(err, validate.ErrInvalidModel):
		return exitInvalidModel
	case errors.Is(err, platform.ErrDriverTimeout):
		return exitDriverTimeout
	case errors.Is(err, procsync.ErrReferenceBlocked):
		return exitReferenceBlocked
	}
	return exitFailure
}

// signalContext cancels on interrupt so temp directories and prompts
// unwind cleanly.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

type generateCommand struct {
	Config string `short:"c" long:"config" required:"true" description:"path to the YAML config"`
	Out    string `short:"o" long:"out" default:"out" description:"output directory for the artifact tree"`
	EPF    string `long:"epf" description:"also compile the tree into an .epf via the platform driver"`
}

func (c *generateCommand) Execute([]string) error {
	ctx, cancel := signalContext()
	defer cancel()

	var gopts []generate.GeneratorOption
	if c.EPF != "" {
		// No external compiler is bundled; the no-op driver keeps the
		// pipeline exercised until a real one is configured.
		gopts = append(gopts,
			generate.WithDriver(platform.NopDriver{}),
			generate.WithEPFOutput(c.EPF))
	}
	report, err := generate.NewGenerator(gopts...).Generate(ctx, c.Config, c.Out)
	if err != nil {
		return err
	}
	return printJSON(report)
}

type syncCommand struct {
	Config      string `short:"c" long:"config" required:"true" description:"path to the YAML config"`
	Handlers    string `long:"handlers" description:"path to the handler source file"`
	Snapshot    string `long:"snapshot" description:"snapshot directory (default: _snapshot beside the output)"`
	Export      string `short:"e" long:"export" required:"true" description:"directory with the designer-edited XML export"`
	AutoApprove bool   `short:"y" long:"yes" description:"apply every change without asking"`
	Force       bool   `long:"force" description:"allow deletes that still have references"`
	ReportPath  string `long:"report" description:"write the JSON report here instead of stdout"`
}

func (c *syncCommand) Execute([]string) error {
	ctx, cancel := signalContext()
	defer cancel()

	opts, err := c.buildOptions()
	if err != nil {
		return err
	}

	coord := procsync.NewCoordinator(procsync.WithPrompt(tui.New()))
	report, err := coord.Sync(ctx, opts)
	if report != nil {
		if werr := c.writeReport(report); werr != nil && err == nil {
			err = werr
		}
	}
	return err
}

func (c *syncCommand) buildOptions() (procsync.Options, error) {
	snapDir := c.Snapshot
	if snapDir == "" {
		snapDir = filepath.Join(filepath.Dir(c.Config), "out", generate.SnapshotDir)
	}

	meta, err := readSnapshotMeta(snapDir)
	if err != nil {
		return procsync.Options{}, err
	}

	rootXML, err := findExportRoot(c.Export, meta.ProcessorName)
	if err != nil {
		return procsync.Options{}, err
	}

	forms, err := findExportForms(c.Export, meta.ProcessorName)
	if err != nil {
		return procsync.Options{}, err
	}

	handlersPath, err := collectExportModules(c.Export, meta.ProcessorName)
	if err != nil {
		return procsync.Options{}, err
	}

	return procsync.Options{
		ConfigPath:       c.Config,
		HandlersPath:     c.Handlers,
		SnapshotDir:      snapDir,
		ModifiedXML:      rootXML,
		ModifiedHandlers: handlersPath,
		ModifiedForms:    forms,
		AutoApprove:      c.AutoApprove,
		Force:            c.Force,
	}, nil
}

func (c *syncCommand) writeReport(report *procsync.Report) error {
	if c.ReportPath == "" {
		return printJSON(report)
	}
	payload, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return os.WriteFile(c.ReportPath, append(payload, '\n'), 0o644)
}

func readSnapshotMeta(snapDir string) (*generate.SnapshotMeta, error) {
	payload, err := os.ReadFile(filepath.Join(snapDir, "metadata.json"))
	if err != nil {
		return nil, fmt.Errorf("read snapshot metadata: %w", err)
	}
	return generate.ReadSnapshotMeta(payload)
}

// findExportRoot locates the root descriptor in the export directory:
// the file named after the processor, else the only top-level XML file.
func findExportRoot(exportDir, procName string) (string, error) {
	named := filepath.Join(exportDir, procName+".xml")
	if _, err := os.Stat(named); err == nil {
		return named, nil
	}
	matches, err := filepath.Glob(filepath.Join(exportDir, "*.xml"))
	if err != nil || len(matches) == 0 {
		return "", fmt.Errorf("no root descriptor found in %s", exportDir)
	}
	return matches[0], nil
}

func findExportForms(exportDir, procName string) (map[string]string, error) {
	pattern := filepath.Join(exportDir, procName, "Forms", "*", "Ext", "Form.xml")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}
	forms := map[string]string{}
	for _, m := range matches {
		// .../Forms/<name>/Ext/Form.xml
		name := filepath.Base(filepath.Dir(filepath.Dir(m)))
		forms[name] = m
	}
	return forms, nil
}

// collectExportModules concatenates the export's BSL modules into one
// temp file the differ can consume: the object module first, then each
// form module.
func collectExportModules(exportDir, procName string) (string, error) {
	var sources []string
	object := filepath.Join(exportDir, procName, "Ext", "ObjectModule.bsl")
	if payload, err := os.ReadFile(object); err == nil {
		sources = append(sources, string(stripBOM(payload)))
	}
	pattern := filepath.Join(exportDir, procName, "Forms", "*", "Ext", "Form", "Module.bsl")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return "", err
	}
	for _, m := range matches {
		payload, err := os.ReadFile(m)
		if err != nil {
			return "", err
		}
		sources = append(sources, string(stripBOM(payload)))
	}
	if len(sources) == 0 {
		return "", nil
	}

	tmp, err := os.CreateTemp("", "procgen-modules-*.bsl")
	if err != nil {
		return "", err
	}
	defer tmp.Close()
	if _, err := tmp.WriteString(strings.Join(sources, "\n")); err != nil {
		return "", err
	}
	return tmp.Name(), nil
}

func stripBOM(payload []byte) []byte {
	if len(payload) >= 3 && payload[0] == 0xEF && payload[1] == 0xBB && payload[2] == 0xBF {
		return payload[3:]
	}
	return payload
}

type validateCommand struct {
	Config string `short:"c" long:"config" required:"true" description:"path to the YAML config"`
}

func (c *validateCommand) Execute([]string) error {
	ctx, cancel := signalContext()
	defer cancel()

	res, err := config.New().Load(ctx, c.Config)
	if err != nil {
		return err
	}
	vres := validate.New().ValidateModel(res.Processor)
	for _, w := range append(res.Warnings, vres.Warnings...) {
		fmt.Fprintln(os.Stderr, "warning: "+w)
	}
	for _, e := range vres.Errors {
		fmt.Fprintln(os.Stderr, "error: "+e)
	}
	if err := vres.Err(); err != nil {
		return err
	}
	fmt.Printf("%s: ok\n", res.Processor.Name)
	return nil
}

type initCommand struct {
	Args struct {
		Name string `positional-arg-name:"name" required:"true" description:"processor name"`
	} `positional-args:"true"`
	Out string `short:"o" long:"out" default:"." description:"directory for the starter config"`
}

const starterConfig = `processor:
  name: %[1]s
  synonym: %[1]s
  platform_version: "8.3.24"

attributes:
  - name: Период
    type: date
    synonym: Период

forms:
  - name: Форма
    default: true
    elements:
      - name: Период
        type: input_field
        attribute: Период
`

func (c *initCommand) Execute([]string) error {
	name := strings.TrimSpace(c.Args.Name)
	if name == "" {
		return errors.New("init: processor name is required")
	}
	path := filepath.Join(c.Out, strings.ToLower(name)+".yaml")
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("init: %s already exists", path)
	}
	if err := os.MkdirAll(c.Out, 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(fmt.Sprintf(starterConfig, name)), 0o644); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}

func printJSON(v any) error {
	payload, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(payload))
	return nil
}
