package bsl

import (
	"fmt"
	"strings"

	"github.com/itdeo/go-procgen/internal/model"
)

// Module region names, in emission order.
const (
	RegionDocumentation  = "Документация"
	RegionFormEvents     = "ОбработчикиСобытийФормы"
	RegionElementEvents  = "ОбработчикиСобытийЭлементовШапкиФормы"
	RegionCommands       = "ОбработчикиКомандФормы"
	RegionLongOperations = "ДлительныеОперации"
	RegionHelpers        = "СлужебныеПроцедурыИФункции"
)

// ModuleFinalizer gets the last word on every assembled module. currentID
// is the next element ID the form's allocator would hand out, so a stage
// that synthesizes elements can keep numbering contiguous. The default
// passes code through untouched; callers can swap in obfuscation or
// instrumentation stages.
type ModuleFinalizer interface {
	Finalize(code, seed string, currentID int, moduleType string) string
}

type identityFinalizer struct{}

func (identityFinalizer) Finalize(code, _ string, _ int, _ string) string { return code }

// IdentityFinalizer returns the pass-through finalizer.
func IdentityFinalizer() ModuleFinalizer { return identityFinalizer{} }

// Assembler builds complete module texts out of woven handler groups.
type Assembler struct {
	finalizer ModuleFinalizer
}

// AssemblerOption configures an Assembler.
type AssemblerOption func(*Assembler)

// WithFinalizer overrides the module finalizer.
func WithFinalizer(f ModuleFinalizer) AssemblerOption {
	return func(a *Assembler) {
		if f != nil {
			a.finalizer = f
		}
	}
}

// NewAssembler returns an Assembler with defaults applied.
func NewAssembler(opts ...AssemblerOption) *Assembler {
	a := &Assembler{}
	for _, opt := range opts {
		opt(a)
	}
	if a.finalizer == nil {
		a.finalizer = identityFinalizer{}
	}
	return a
}

func region(name, body string) string {
	return fmt.Sprintf("#Область %s\n\n%s\n\n#КонецОбласти", name, body)
}

func joinOr(parts []string, fallback string) string {
	if len(parts) == 0 {
		return fallback
	}
	return strings.Join(parts, "\n\n")
}

// FormModule assembles the module for one form. A non-empty handler-source
// preamble becomes the module prefix ahead of all regions; currentID is the
// form's next free element ID, passed through to the finalizer.
func (a *Assembler) FormModule(proc *model.Processor, form *model.Form, w *Woven, preamble string, currentID int) string {
	if w == nil {
		w = &Woven{}
	}
	var parts []string

	if preamble != "" {
		parts = append(parts, preamble)
	}
	if form.Documentation != "" {
		parts = append(parts, region(RegionDocumentation, form.Documentation))
	}

	parts = append(parts,
		region(RegionFormEvents, joinOr(w.FormHandlers, "// Обработчики событий формы")),
		region(RegionElementEvents, joinOr(w.ElementHandlers, "// Обработчики событий элементов формы")),
		region(RegionCommands, joinOr(w.CommandHandlers, "// Обработчики команд формы")))

	if len(w.LongOperations) > 0 {
		parts = append(parts, region(RegionLongOperations, strings.Join(w.LongOperations, "\n\n")))
	}

	var helpers []string
	for _, h := range w.Helpers {
		helpers = append(helpers, h.Body)
	}
	parts = append(parts, region(RegionHelpers, joinOr(helpers, "// Вспомогательные функции")))

	code := strings.Join(parts, "\n\n") + "\n"
	return a.finalizer.Finalize(code, proc.Name+"_"+form.Name, currentID, "form")
}

// ObjectModule assembles the processor-level module. A user-supplied body
// that already carries regions is kept as-is; a bare body is wrapped into
// the public-interface region.
func (a *Assembler) ObjectModule(proc *model.Processor, currentID int) string {
	body := strings.TrimSpace(proc.ObjectModule)
	var code string
	switch {
	case body == "":
		code = region("ПрограммныйИнтерфейс", "// Публичные функции") + "\n\n" +
			region(RegionHelpers, "// Вспомогательные функции") + "\n"
	case strings.Contains(body, "#Область") || strings.Contains(body, "#Region"):
		code = body + "\n"
	default:
		code = region("ПрограммныйИнтерфейс", body) + "\n\n" +
			region(RegionHelpers, "// Вспомогательные функции") + "\n"
	}
	return a.finalizer.Finalize(code, proc.Name, currentID, "object")
}
