package bsl

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const sampleHandlers = `// Обработчики формы ЗагрузкаДанных
// ============================================

&НаСервере
Процедура ПриСозданииНаСервере(Отказ, СтандартнаяОбработка)
	ЗаполнитьНачальныеЗначения();
КонецПроцедуры

&НаКлиенте
Процедура Загрузить(Команда)
	// Если файл не выбран, спрашиваем
	Если ПустаяСтрока(Объект.ИмяФайла) Тогда
		Возврат;
	КонецЕсли;
	ЗагрузитьНаСервере();
КонецПроцедуры

Функция РазмерФайла(Путь)
	Возврат 0;
КонецФункции
`

func TestSplitProcedures(t *testing.T) {
	res := Split(sampleHandlers)

	want := []string{"ПриСозданииНаСервере", "Загрузить", "РазмерФайла"}
	if diff := cmp.Diff(want, res.Procedures.Names()); diff != "" {
		t.Fatalf("procedure order mismatch (-want +got):\n%s", diff)
	}

	proc, ok := res.Procedures.Get("ПриСозданииНаСервере")
	if !ok {
		t.Fatal("missing ПриСозданииНаСервере")
	}
	if got := proc.Directives; len(got) != 1 || got[0] != "&НаСервере" {
		t.Errorf("directives = %v", got)
	}
	if !strings.Contains(proc.Full, "КонецПроцедуры") {
		t.Errorf("full text lost closer:\n%s", proc.Full)
	}

	fn, _ := res.Procedures.Get("РазмерФайла")
	if !fn.IsFunction {
		t.Error("РазмерФайла not detected as function")
	}

	if res.Preamble != "" {
		t.Errorf("comment banner must not count as preamble, got %q", res.Preamble)
	}
}

func TestSplitPreambleSignificant(t *testing.T) {
	src := "Перем КэшДанных;\n\n// комментарий\n\n&НаКлиенте\nПроцедура Тест()\nКонецПроцедуры\n"
	res := Split(src)
	if res.Preamble != "Перем КэшДанных;" {
		t.Errorf("preamble = %q", res.Preamble)
	}
}

func TestSplitRegions(t *testing.T) {
	src := `#Область Документация
Обработка загружает данные из файла.
#КонецОбласти

#Область МодульОбъекта
Функция ВерсияОбработки() Экспорт
	Возврат "1.0.0";
КонецФункции
#КонецОбласти

&НаКлиенте
Процедура Обновить(Команда)
КонецПроцедуры
`
	res := Split(src)
	if res.Documentation != "Обработка загружает данные из файла." {
		t.Errorf("documentation = %q", res.Documentation)
	}
	if !strings.Contains(res.ObjectModule, "ВерсияОбработки") {
		t.Errorf("object module region = %q", res.ObjectModule)
	}
	if res.Procedures.Len() != 1 {
		t.Errorf("procedures = %v", res.Procedures.Names())
	}
}

func TestSplitIgnoresKeywordsInComments(t *testing.T) {
	src := `Процедура Внешняя()
	// КонецПроцедуры
	А = 1;
КонецПроцедуры
`
	res := Split(src)
	proc, ok := res.Procedures.Get("Внешняя")
	if !ok {
		t.Fatal("procedure not parsed")
	}
	if !strings.Contains(proc.Body, "А = 1;") {
		t.Errorf("body truncated at commented closer:\n%s", proc.Body)
	}
}

func TestSplitDuplicateLastWins(t *testing.T) {
	src := `Процедура Дубль()
	Версия = 1;
КонецПроцедуры

Процедура Дубль()
	Версия = 2;
КонецПроцедуры
`
	res := Split(src)
	if res.Procedures.Len() != 1 {
		t.Fatalf("expected one procedure, got %v", res.Procedures.Names())
	}
	proc, _ := res.Procedures.Get("Дубль")
	if !strings.Contains(proc.Body, "Версия = 2") {
		t.Error("duplicate did not take the later definition")
	}
	if len(res.Warnings) == 0 {
		t.Error("duplicate produced no warning")
	}
}

func TestSplitEnglishKeywords(t *testing.T) {
	src := "&AtServer\nProcedure FillDefaults(Cancel)\nEndProcedure\n"
	res := Split(src)
	if _, ok := res.Procedures.Get("FillDefaults"); !ok {
		t.Errorf("english opener not recognized: %v", res.Procedures.Names())
	}
}
