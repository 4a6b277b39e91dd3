package bsl

import (
	"strings"
	"testing"

	"github.com/itdeo/go-procgen/internal/model"
)

func TestFormModuleRegionOrder(t *testing.T) {
	proc := &model.Processor{Name: "Тест"}
	form := &model.Form{Name: "Форма", Documentation: "Описание формы."}
	w := &Woven{
		FormHandlers:    []string{"&НаСервере\nПроцедура ПриСозданииНаСервере(Отказ, СтандартнаяОбработка)\nКонецПроцедуры"},
		CommandHandlers: []string{"&НаКлиенте\nПроцедура Загрузить(Команда)\nКонецПроцедуры"},
		LongOperations:  []string{"&НаКлиенте\nПроцедура Фон(Команда)\nКонецПроцедуры"},
		Helpers:         []model.HelperProcedure{{Name: "Вспомогательная", Body: "Процедура Вспомогательная()\nКонецПроцедуры"}},
	}

	code := NewAssembler().FormModule(proc, form, w, "", 1)

	order := []string{
		"#Область " + RegionDocumentation,
		"#Область " + RegionFormEvents,
		"#Область " + RegionElementEvents,
		"#Область " + RegionCommands,
		"#Область " + RegionLongOperations,
		"#Область " + RegionHelpers,
	}
	last := -1
	for _, marker := range order {
		idx := strings.Index(code, marker)
		if idx < 0 {
			t.Fatalf("module missing region %q:\n%s", marker, code)
		}
		if idx < last {
			t.Errorf("region %q out of order", marker)
		}
		last = idx
	}
	if !strings.HasSuffix(code, "\n") {
		t.Error("module must end with a newline")
	}
}

func TestFormModulePreamblePrefix(t *testing.T) {
	proc := &model.Processor{Name: "Тест"}
	form := &model.Form{Name: "Форма"}
	code := NewAssembler().FormModule(proc, form, &Woven{}, "Перем КэшДанных;", 1)
	if !strings.HasPrefix(code, "Перем КэшДанных;") {
		t.Errorf("preamble not emitted as module prefix:\n%s", code)
	}
}

func TestObjectModuleWrapsBareBody(t *testing.T) {
	proc := &model.Processor{Name: "Тест", ObjectModule: "Функция Версия() Экспорт\n\tВозврат \"1.0\";\nКонецФункции"}
	code := NewAssembler().ObjectModule(proc, 1)
	if !strings.Contains(code, "#Область ПрограммныйИнтерфейс") {
		t.Errorf("bare body not wrapped:\n%s", code)
	}
}

func TestObjectModuleKeepsRegions(t *testing.T) {
	body := "#Область ПрограммныйИнтерфейс\n// свой код\n#КонецОбласти"
	proc := &model.Processor{Name: "Тест", ObjectModule: body}
	code := NewAssembler().ObjectModule(proc, 1)
	if strings.Count(code, "#Область ПрограммныйИнтерфейс") != 1 {
		t.Errorf("user regions duplicated:\n%s", code)
	}
}

type upperFinalizer struct{}

func (upperFinalizer) Finalize(code, _ string, _ int, _ string) string { return strings.ToUpper(code) }

func TestAssemblerFinalizerHook(t *testing.T) {
	proc := &model.Processor{Name: "Тест"}
	code := NewAssembler(WithFinalizer(upperFinalizer{})).ObjectModule(proc, 1)
	if code != strings.ToUpper(code) {
		t.Error("finalizer not applied")
	}
}

type recordingFinalizer struct {
	seed       string
	currentID  int
	moduleType string
}

func (f *recordingFinalizer) Finalize(code, seed string, currentID int, moduleType string) string {
	f.seed, f.currentID, f.moduleType = seed, currentID, moduleType
	return code
}

func TestFinalizerReceivesCurrentID(t *testing.T) {
	proc := &model.Processor{Name: "Тест"}
	form := &model.Form{Name: "Форма"}
	rec := &recordingFinalizer{}
	a := NewAssembler(WithFinalizer(rec))

	a.FormModule(proc, form, &Woven{}, "", 42)
	if rec.seed != "Тест_Форма" || rec.currentID != 42 || rec.moduleType != "form" {
		t.Errorf("form finalizer got (%q, %d, %q)", rec.seed, rec.currentID, rec.moduleType)
	}

	a.ObjectModule(proc, 1)
	if rec.seed != "Тест" || rec.currentID != 1 || rec.moduleType != "object" {
		t.Errorf("object finalizer got (%q, %d, %q)", rec.seed, rec.currentID, rec.moduleType)
	}
}
