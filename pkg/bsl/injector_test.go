package bsl

import (
	"errors"
	"strings"
	"testing"

	"github.com/itdeo/go-procgen/internal/model"
)

func weaveForm(t *testing.T, form *model.Form, src string) *Woven {
	t.Helper()
	w, err := NewInjector().Weave(form, Split(src))
	if err != nil {
		t.Fatalf("weave: %v", err)
	}
	return w
}

func TestWeaveFormEventVerbatim(t *testing.T) {
	form := &model.Form{
		Name:   "Форма",
		Events: []model.EventBinding{{Event: "ПриСозданииНаСервере", Handler: "ПриСозданииНаСервере"}},
	}
	src := "&НаСервере\nПроцедура ПриСозданииНаСервере(Отказ, СтандартнаяОбработка)\n\tА = 1;\nКонецПроцедуры\n"

	w := weaveForm(t, form, src)
	if len(w.FormHandlers) != 1 {
		t.Fatalf("form handlers = %d", len(w.FormHandlers))
	}
	if !strings.Contains(w.FormHandlers[0], "А = 1;") {
		t.Error("user body not emitted verbatim")
	}
	if len(w.Helpers) != 0 {
		t.Errorf("consumed handler leaked into helpers: %v", w.Helpers)
	}
}

func TestWeaveServerCallCompanion(t *testing.T) {
	form := &model.Form{
		Name:   "Форма",
		Events: []model.EventBinding{{Event: "ПриОткрытии", Handler: "ПриОткрытии"}},
	}
	w := weaveForm(t, form, "")

	if len(w.FormHandlers) != 2 {
		t.Fatalf("expected call-through plus server stub, got %d", len(w.FormHandlers))
	}
	if !strings.Contains(w.FormHandlers[0], "ПриОткрытииНаСервере();") {
		t.Errorf("client is not a call-through:\n%s", w.FormHandlers[0])
	}
	if !strings.Contains(w.FormHandlers[1], "&НаСервере") {
		t.Errorf("server companion missing directive:\n%s", w.FormHandlers[1])
	}
}

func TestWeaveServerCallCompanionWithUserClient(t *testing.T) {
	form := &model.Form{
		Name:   "Форма",
		Events: []model.EventBinding{{Event: "ПриОткрытии", Handler: "ПриОткрытии"}},
	}
	src := "&НаКлиенте\nПроцедура ПриОткрытии(Отказ)\n\tОбновитьЗаголовок();\nКонецПроцедуры\n"

	w := weaveForm(t, form, src)
	if len(w.FormHandlers) != 2 {
		t.Fatalf("expected user client plus server companion, got %d", len(w.FormHandlers))
	}
	if !strings.Contains(w.FormHandlers[0], "ОбновитьЗаголовок();") {
		t.Errorf("user client body lost:\n%s", w.FormHandlers[0])
	}
	if !strings.Contains(w.FormHandlers[1], "&НаСервере") ||
		!strings.Contains(w.FormHandlers[1], "ПриОткрытииНаСервере") {
		t.Errorf("server companion missing:\n%s", w.FormHandlers[1])
	}
}

func TestWeaveServerCallBothUserProcedures(t *testing.T) {
	form := &model.Form{
		Name:   "Форма",
		Events: []model.EventBinding{{Event: "ПриОткрытии", Handler: "ПриОткрытии"}},
	}
	src := "&НаКлиенте\nПроцедура ПриОткрытии(Отказ)\n\tОбновитьЗаголовок();\nКонецПроцедуры\n\n" +
		"&НаСервере\nПроцедура ПриОткрытииНаСервере()\n\tЗаполнитьСписки();\nКонецПроцедуры\n"

	w := weaveForm(t, form, src)
	if len(w.FormHandlers) != 2 {
		t.Fatalf("form handlers = %d", len(w.FormHandlers))
	}
	if !strings.Contains(w.FormHandlers[1], "ЗаполнитьСписки();") {
		t.Errorf("user server body lost:\n%s", w.FormHandlers[1])
	}
	if len(w.Helpers) != 0 {
		t.Errorf("consumed server companion leaked into helpers: %v", w.Helpers)
	}
}

func TestWeaveElementEventServerSuffix(t *testing.T) {
	form := &model.Form{
		Name: "Форма",
		Elements: []*model.FormElement{{
			Type: "InputField", Name: "Период",
			Events: []model.EventBinding{{Event: "ПриИзменении", Handler: "ПериодПриИзменении"}},
		}},
	}
	src := "&НаСервере\nПроцедура ПериодПриИзмененииНаСервере()\n\tПересчитать();\nКонецПроцедуры\n"

	w := weaveForm(t, form, src)
	if len(w.ElementHandlers) != 2 {
		t.Fatalf("element handlers = %d", len(w.ElementHandlers))
	}
	if !strings.Contains(w.ElementHandlers[0], "ПериодПриИзмененииНаСервере();") {
		t.Errorf("client call-through wrong:\n%s", w.ElementHandlers[0])
	}
	if !strings.Contains(w.ElementHandlers[1], "Пересчитать();") {
		t.Errorf("user server body lost:\n%s", w.ElementHandlers[1])
	}
}

func TestWeaveElementEventSuffixWithUserClient(t *testing.T) {
	form := &model.Form{
		Name: "Форма",
		Elements: []*model.FormElement{{
			Type: "InputField", Name: "Период",
			Events: []model.EventBinding{{Event: "ПриИзменении", Handler: "ПериодПриИзменении"}},
		}},
	}
	src := "&НаКлиенте\nПроцедура ПериодПриИзменении(Элемент)\n\tПроверитьПериод();\nКонецПроцедуры\n"

	w := weaveForm(t, form, src)
	if len(w.ElementHandlers) != 2 {
		t.Fatalf("element handlers = %d", len(w.ElementHandlers))
	}
	if !strings.Contains(w.ElementHandlers[0], "ПроверитьПериод();") {
		t.Errorf("user client body lost:\n%s", w.ElementHandlers[0])
	}
	if !strings.Contains(w.ElementHandlers[1], "ПериодПриИзмененииНаСервере") {
		t.Errorf("server companion missing:\n%s", w.ElementHandlers[1])
	}
}

func TestWeaveCommandStub(t *testing.T) {
	form := &model.Form{
		Name:     "Форма",
		Commands: []*model.Command{{Name: "Загрузить", Action: "Загрузить"}},
	}
	w := weaveForm(t, form, "")
	if len(w.CommandHandlers) != 1 {
		t.Fatalf("command handlers = %d", len(w.CommandHandlers))
	}
	if !strings.Contains(w.CommandHandlers[0], "Процедура Загрузить(Команда)") {
		t.Errorf("stub signature wrong:\n%s", w.CommandHandlers[0])
	}
	if len(w.Warnings) == 0 {
		t.Error("missing handler produced no warning")
	}
}

func TestWeaveLongOperationRequiresServerHandler(t *testing.T) {
	form := &model.Form{
		Name: "Форма",
		Commands: []*model.Command{{
			Name: "Обработать", Action: "Обработать", LongOperation: true,
		}},
	}
	_, err := NewInjector().Weave(form, Split(""))
	if err == nil {
		t.Fatal("expected error for missing business-logic handler")
	}
	if !errors.Is(err, ErrMissingHandler) {
		t.Errorf("error %v is not ErrMissingHandler", err)
	}
}

func TestWeaveLongOperationPattern(t *testing.T) {
	form := &model.Form{
		Name: "Форма",
		Commands: []*model.Command{{
			Name: "Обработать", Action: "Обработать",
			Title:         model.LocalizedString{RU: "Обработать"},
			LongOperation: true,
			LongOp:        &model.LongOperationSettings{TimeoutSeconds: 60, ShowProgress: true, ProgressMessage: "Идет обработка..."},
		}},
	}
	src := "&НаСервере\nПроцедура ОбработатьНаСервере(Параметры, АдресРезультата) Экспорт\n\tРезультат = Истина;\nКонецПроцедуры\n"

	w := weaveForm(t, form, src)
	if len(w.LongOperations) != 4 {
		t.Fatalf("long operation procedures = %d, want 4", len(w.LongOperations))
	}
	joined := strings.Join(w.LongOperations, "\n")
	for _, needle := range []string{
		"Процедура Обработать(Команда)",
		"Функция ОбработатьЗапуститьВФоне()",
		"Процедура ОбработатьЗавершение(Результат, ДополнительныеПараметры)",
		"Процедура ОбработатьНаСервере(Параметры, АдресРезультата)",
		"Идет обработка...",
	} {
		if !strings.Contains(joined, needle) {
			t.Errorf("long operation output missing %q", needle)
		}
	}
	if len(w.Helpers) != 0 {
		t.Errorf("server handler leaked into helpers")
	}
}

func TestWeaveUnconsumedBecomesHelper(t *testing.T) {
	form := &model.Form{Name: "Форма"}
	src := "Функция ПолучитьЦвет(Код)\n\tВозврат Код;\nКонецФункции\n"
	w := weaveForm(t, form, src)
	if len(w.Helpers) != 1 || w.Helpers[0].Name != "ПолучитьЦвет" {
		t.Fatalf("helpers = %+v", w.Helpers)
	}
}
