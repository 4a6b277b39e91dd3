package bsl

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/itdeo/go-procgen/internal/model"
)

// ErrMissingHandler marks the one fatal weaving failure: a long-operation
// command without its business-logic procedure.
var ErrMissingHandler = errors.New("bsl: missing handler")

// Injector weaves user handler procedures into a form according to the
// event contract tables.
type Injector struct {
	logger *slog.Logger
}

// InjectorOption configures an Injector.
type InjectorOption func(*Injector)

// WithLogger overrides the default logger.
func WithLogger(logger *slog.Logger) InjectorOption {
	return func(i *Injector) {
		if logger != nil {
			i.logger = logger
		}
	}
}

// NewInjector returns an Injector with defaults applied.
func NewInjector(opts ...InjectorOption) *Injector {
	inj := &Injector{}
	for _, opt := range opts {
		opt(inj)
	}
	if inj.logger == nil {
		inj.logger = slog.Default()
	}
	return inj
}

// Woven is the per-form result of handler weaving, grouped by target module
// region.
type Woven struct {
	FormHandlers    []string
	ElementHandlers []string
	CommandHandlers []string
	LongOperations  []string
	Helpers         []model.HelperProcedure
	Warnings        []string
}

// Weave resolves every event, command and element binding of the form
// against the split handler source. A nil split weaves stubs throughout.
func (inj *Injector) Weave(form *model.Form, split *SplitResult) (*Woven, error) {
	if split == nil {
		split = &SplitResult{Procedures: NewProcedureSet()}
	}
	w := &Woven{}
	consumed := map[string]struct{}{}

	inj.weaveFormEvents(form, split, w, consumed)
	inj.weaveElementEvents(form, split, w, consumed)
	if err := inj.weaveCommands(form, split, w, consumed); err != nil {
		return nil, err
	}

	for _, name := range split.Procedures.Names() {
		if _, used := consumed[name]; used {
			continue
		}
		proc, _ := split.Procedures.Get(name)
		w.Helpers = append(w.Helpers, model.HelperProcedure{Name: name, Body: proc.Full})
	}

	w.Warnings = append(w.Warnings, split.Warnings...)
	inj.logger.Debug("handlers woven",
		"form", form.Name,
		"form_events", len(w.FormHandlers),
		"element_events", len(w.ElementHandlers),
		"commands", len(w.CommandHandlers),
		"helpers", len(w.Helpers))
	return w, nil
}

func (inj *Injector) weaveFormEvents(form *model.Form, split *SplitResult, w *Woven, consumed map[string]struct{}) {
	for _, binding := range form.Events {
		sig, known := FormEventSignatures[binding.Event]

		if proc, ok := split.Procedures.Get(binding.Handler); ok {
			w.FormHandlers = append(w.FormHandlers, proc.Full)
			consumed[binding.Handler] = struct{}{}
			// Server-call events carry their companion even when the
			// client handler is user-supplied.
			if known && sig.ServerCall != "" {
				w.FormHandlers = append(w.FormHandlers, serverCompanion(sig.ServerCall, split, consumed))
			}
			continue
		}
		if !known {
			w.Warnings = append(w.Warnings,
				fmt.Sprintf("form %s: no contract for event %q, handler %s skipped", form.Name, binding.Event, binding.Handler))
			continue
		}
		if sig.ServerCall != "" {
			w.FormHandlers = append(w.FormHandlers,
				FormatServerCall(binding.Handler, sig.Params, sig.ServerCall),
				serverCompanion(sig.ServerCall, split, consumed))
			continue
		}
		w.Warnings = append(w.Warnings,
			fmt.Sprintf("form %s: handler %s for event %s not found, emitting stub", form.Name, binding.Handler, binding.Event))
		w.FormHandlers = append(w.FormHandlers, FormatHandler(sig, binding.Handler, ""))
	}
}

// serverCompanion resolves the server half of a server-call contract: the
// user's procedure when the split carries it, a stub otherwise.
func serverCompanion(name string, split *SplitResult, consumed map[string]struct{}) string {
	if server, ok := split.Procedures.Get(name); ok {
		consumed[name] = struct{}{}
		return server.Full
	}
	return FormatServerStub(name)
}

func (inj *Injector) weaveElementEvents(form *model.Form, split *SplitResult, w *Woven, consumed map[string]struct{}) {
	var walk func(els []*model.FormElement)
	walk = func(els []*model.FormElement) {
		for _, el := range els {
			for _, binding := range el.Events {
				inj.weaveOneElementEvent(form, el, binding, split, w, consumed)
			}
			walk(el.Children)
		}
	}
	walk(form.Elements)
	walk(form.AutoCommandBar)
}

func (inj *Injector) weaveOneElementEvent(form *model.Form, el *model.FormElement, binding model.EventBinding, split *SplitResult, w *Woven, consumed map[string]struct{}) {
	sig, known := ElementEventSignatures[binding.Event]

	if proc, ok := split.Procedures.Get(binding.Handler); ok {
		w.ElementHandlers = append(w.ElementHandlers, proc.Full)
		consumed[binding.Handler] = struct{}{}
		if known && sig.ServerCallSuffix != "" {
			w.ElementHandlers = append(w.ElementHandlers,
				serverCompanion(binding.Handler+sig.ServerCallSuffix, split, consumed))
		}
		return
	}
	if !known {
		w.Warnings = append(w.Warnings,
			fmt.Sprintf("form %s: element %s has no contract for event %q", form.Name, el.Name, binding.Event))
		return
	}
	if sig.ServerCallSuffix != "" {
		serverName := binding.Handler + sig.ServerCallSuffix
		w.ElementHandlers = append(w.ElementHandlers,
			FormatServerCall(binding.Handler, sig.Params, serverName),
			serverCompanion(serverName, split, consumed))
		return
	}
	w.Warnings = append(w.Warnings,
		fmt.Sprintf("form %s: handler %s for element event %s not found, emitting stub", form.Name, binding.Handler, binding.Event))
	w.ElementHandlers = append(w.ElementHandlers, FormatHandler(sig, binding.Handler, ""))
}

func (inj *Injector) weaveCommands(form *model.Form, split *SplitResult, w *Woven, consumed map[string]struct{}) error {
	for _, cmd := range form.Commands {
		if cmd.LongOperation {
			if err := inj.weaveLongOperation(form, cmd, split, w, consumed); err != nil {
				return err
			}
			continue
		}
		if proc, ok := split.Procedures.Get(cmd.Action); ok {
			w.CommandHandlers = append(w.CommandHandlers, proc.Full)
			consumed[cmd.Action] = struct{}{}
			// Server companion by naming convention.
			serverName := cmd.Action + "НаСервере"
			if server, ok := split.Procedures.Get(serverName); ok {
				w.CommandHandlers = append(w.CommandHandlers, server.Full)
				consumed[serverName] = struct{}{}
			}
			continue
		}
		w.Warnings = append(w.Warnings,
			fmt.Sprintf("form %s: command %s has no handler %s, emitting stub", form.Name, cmd.Name, cmd.Action))
		w.CommandHandlers = append(w.CommandHandlers, FormatCommandStub(cmd.Action))
	}
	return nil
}

// weaveLongOperation expands a long-operation command into its fixed
// four-procedure pattern. The business-logic procedure <Name>НаСервере must
// be supplied by the user.
func (inj *Injector) weaveLongOperation(form *model.Form, cmd *model.Command, split *SplitResult, w *Woven, consumed map[string]struct{}) error {
	settings := cmd.LongOp
	if settings == nil {
		settings = &model.LongOperationSettings{TimeoutSeconds: 300, ShowProgress: true, HandleResult: true}
	}

	serverName := cmd.Name + "НаСервере"
	server, ok := split.Procedures.Get(serverName)
	if !ok {
		return fmt.Errorf("%w: long operation %q requires procedure %s(Параметры, АдресРезультата)",
			ErrMissingHandler, cmd.Name, serverName)
	}
	consumed[serverName] = struct{}{}

	validateName := cmd.Name + "ПроверкаПередЗапуском"
	validate, hasValidate := split.Procedures.Get(validateName)
	if hasValidate {
		consumed[validateName] = struct{}{}
	}
	completeName := cmd.Name + "ОбработкаРезультата"
	complete, hasComplete := split.Procedures.Get(completeName)
	if hasComplete {
		consumed[completeName] = struct{}{}
	}

	w.LongOperations = append(w.LongOperations,
		renderLongOpButton(cmd, settings, hasValidate),
		renderLongOpServerStart(cmd, settings),
		renderLongOpCompletion(cmd, hasComplete),
		server.Full)
	if hasValidate {
		w.LongOperations = append(w.LongOperations, validate.Full)
	}
	if hasComplete {
		w.LongOperations = append(w.LongOperations, complete.Full)
	}
	return nil
}

func renderLongOpButton(cmd *model.Command, settings *model.LongOperationSettings, hasValidate bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "&НаКлиенте\nПроцедура %s(Команда)\n", cmd.Action)
	if hasValidate || settings.CheckBeforeStart {
		fmt.Fprintf(&b, "\tЕсли НЕ %sПроверкаПередЗапуском() Тогда\n\t\tВозврат;\n\tКонецЕсли;\n\n", cmd.Name)
	}
	fmt.Fprintf(&b, "\tОперация = %sЗапуститьВФоне();\n\n", cmd.Name)
	b.WriteString("\tПараметрыОжидания = ДлительныеОперацииКлиент.ПараметрыОжидания(ЭтотОбъект);\n")
	if settings.ShowProgress {
		b.WriteString("\tПараметрыОжидания.ВыводитьОкноОжидания = Истина;\n")
		msg := settings.ProgressMessage
		if msg == "" {
			msg = "Выполнение операции..."
		}
		fmt.Fprintf(&b, "\tПараметрыОжидания.ТекстСообщения = \"%s\";\n", msg)
	} else {
		b.WriteString("\tПараметрыОжидания.ВыводитьОкноОжидания = Ложь;\n")
	}
	fmt.Fprintf(&b, "\n\tОповещение = Новый ОписаниеОповещения(\"%sЗавершение\", ЭтотОбъект);\n", cmd.Name)
	b.WriteString("\tДлительныеОперацииКлиент.ОжидатьЗавершение(Операция, Оповещение, ПараметрыОжидания);\nКонецПроцедуры")
	return b.String()
}

func renderLongOpServerStart(cmd *model.Command, settings *model.LongOperationSettings) string {
	var b strings.Builder
	fmt.Fprintf(&b, "&НаСервере\nФункция %sЗапуститьВФоне()\n", cmd.Name)
	b.WriteString("\tПараметрыЗадания = Новый Структура;\n")
	b.WriteString("\tПараметрыВыполнения = ДлительныеОперации.ПараметрыВыполненияВФоне(УникальныйИдентификатор);\n")
	fmt.Fprintf(&b, "\tПараметрыВыполнения.НаименованиеФоновогоЗадания = \"%s\";\n", cmd.Title.Get("ru"))
	fmt.Fprintf(&b, "\tВозврат ДлительныеОперации.ВыполнитьПроцедуру(ПараметрыВыполнения, \"%sНаСервере\", ПараметрыЗадания);\nКонецФункции", cmd.Name)
	return b.String()
}

func renderLongOpCompletion(cmd *model.Command, hasComplete bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "&НаКлиенте\nПроцедура %sЗавершение(Результат, ДополнительныеПараметры) Экспорт\n", cmd.Name)
	b.WriteString("\tЕсли Результат = Неопределено Тогда\n\t\tСообщить(\"Операция отменена пользователем\");\n\t\tВозврат;\n\tКонецЕсли;\n\n")
	b.WriteString("\tЕсли Результат.Статус = \"Ошибка\" Тогда\n\t\tПоказатьПредупреждение(, Результат.КраткоеПредставлениеОшибки);\n\t\tВозврат;\n\tКонецЕсли;\n\n")
	if hasComplete {
		b.WriteString("\tРезультатОперации = ПолучитьИзВременногоХранилища(Результат.АдресРезультата);\n")
		fmt.Fprintf(&b, "\t%sОбработкаРезультата(РезультатОперации);\n\n", cmd.Name)
	}
	b.WriteString("\tСообщить(\"Операция успешно завершена!\");\nКонецПроцедуры")
	return b.String()
}
