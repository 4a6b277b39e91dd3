// Package tui provides the interactive confirmation driver for sync runs,
// built on survey prompts.
package tui

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"

	procsync "github.com/itdeo/go-procgen/pkg/sync"
)

const sideBySideWidth = 60

var decisionOptions = []string{
	"apply",
	"skip",
	"apply all remaining",
	"skip all remaining",
	"show details",
	"show side-by-side",
	"quit",
}

var decisionByIndex = []procsync.Decision{
	procsync.DecisionApply,
	procsync.DecisionSkip,
	procsync.DecisionApplyAll,
	procsync.DecisionSkipAll,
	procsync.DecisionDetail,
	procsync.DecisionSideBySide,
	procsync.DecisionQuit,
}

// Driver asks about each pending patch on the terminal.
type Driver struct {
	out io.Writer
}

// DriverOption configures a Driver.
type DriverOption func(*Driver)

// WithOutput redirects informational output, mainly for tests.
func WithOutput(w io.Writer) DriverOption {
	return func(d *Driver) {
		if w != nil {
			d.out = w
		}
	}
}

// New returns a terminal-backed confirmation driver.
func New(opts ...DriverOption) *Driver {
	d := &Driver{out: os.Stdout}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Confirm presents one patch and returns the chosen decision. An
// interrupt maps to quit so the coordinator aborts atomically.
func (d *Driver) Confirm(p procsync.Patch) (procsync.Decision, error) {
	fmt.Fprintln(d.out, summaryLine(p))
	for _, ref := range p.References {
		fmt.Fprintln(d.out, "  ! "+ref)
	}

	var out string
	prompt := &survey.Select{
		Message: "Apply this change?",
		Options: decisionOptions,
		Default: decisionOptions[0],
	}
	if err := survey.AskOne(prompt, &out); err != nil {
		return procsync.DecisionQuit, translateSurveyErr(err)
	}
	for i, option := range decisionOptions {
		if option == out {
			return decisionByIndex[i], nil
		}
	}
	return procsync.DecisionSkip, nil
}

// ShowDetail prints the full patch payload.
func (d *Driver) ShowDetail(p procsync.Patch) {
	fmt.Fprintf(d.out, "kind: %s\n", p.Kind)
	if p.Path != "" {
		fmt.Fprintf(d.out, "path: %s\n", p.Path)
	}
	if p.Name != "" {
		fmt.Fprintf(d.out, "name: %s\n", p.Name)
	}
	if p.Procedure != "" {
		fmt.Fprintf(d.out, "procedure: %s\n", p.Procedure)
	}
	if p.Value != nil {
		fmt.Fprintf(d.out, "value: %v\n", p.Value)
	}
	if p.OldBody != "" {
		fmt.Fprintln(d.out, "--- old")
		fmt.Fprintln(d.out, p.OldBody)
	}
	if p.Body != "" {
		fmt.Fprintln(d.out, "+++ new")
		fmt.Fprintln(d.out, p.Body)
	}
}

// ShowSideBySide prints old and new handler bodies in two columns. For
// patches without bodies it falls back to the detail view.
func (d *Driver) ShowSideBySide(p procsync.Patch) {
	if p.OldBody == "" && p.Body == "" {
		d.ShowDetail(p)
		return
	}
	oldLines := strings.Split(p.OldBody, "\n")
	newLines := strings.Split(p.Body, "\n")
	rows := len(oldLines)
	if len(newLines) > rows {
		rows = len(newLines)
	}
	for i := 0; i < rows; i++ {
		var left, right string
		if i < len(oldLines) {
			left = oldLines[i]
		}
		if i < len(newLines) {
			right = newLines[i]
		}
		marker := " "
		if left != right {
			marker = "|"
		}
		fmt.Fprintf(d.out, "%-*s %s %s\n", sideBySideWidth, clip(left), marker, clip(right))
	}
}

func clip(s string) string {
	runes := []rune(s)
	if len(runes) <= sideBySideWidth {
		return s
	}
	return string(runes[:sideBySideWidth-1]) + "…"
}

func summaryLine(p procsync.Patch) string {
	if p.Description != "" {
		return p.Description
	}
	return fmt.Sprintf("%s %s", p.Kind, p.Path)
}

func translateSurveyErr(err error) error {
	if errors.Is(err, terminal.InterruptErr) {
		return procsync.ErrAborted
	}
	return err
}
