package bsl

import (
	"strings"
	"testing"
)

const patchedModule = `#Область ОбработчикиКомандФормы

&НаКлиенте
Процедура Загрузить(Команда)
	// старое тело
	А = 1;
КонецПроцедуры

#КонецОбласти
`

func TestPatcherAddBeforeLastRegionEnd(t *testing.T) {
	got := NewPatcher().Add(patchedModule, "&НаКлиенте\nПроцедура Новая(Команда)\nКонецПроцедуры")
	idxNew := strings.Index(got, "Процедура Новая")
	idxEnd := strings.LastIndex(got, "#КонецОбласти")
	if idxNew < 0 || idxNew > idxEnd {
		t.Errorf("procedure not inserted before last region closer:\n%s", got)
	}
}

func TestPatcherAddWithoutRegions(t *testing.T) {
	got := NewPatcher().Add("// пусто\n", "Процедура Новая()\nКонецПроцедуры")
	if !strings.HasSuffix(strings.TrimSpace(got), "КонецПроцедуры") {
		t.Errorf("procedure not appended:\n%s", got)
	}
}

func TestPatcherModify(t *testing.T) {
	replacement := "&НаКлиенте\nПроцедура Загрузить(Команда)\n\tА = 2;\nКонецПроцедуры"
	got, err := NewPatcher().Modify(patchedModule, "Загрузить", replacement, "")
	if err != nil {
		t.Fatalf("modify: %v", err)
	}
	if strings.Contains(got, "А = 1;") || !strings.Contains(got, "А = 2;") {
		t.Errorf("body not replaced:\n%s", got)
	}
	if strings.Count(got, "Процедура Загрузить") != 1 {
		t.Errorf("procedure duplicated:\n%s", got)
	}
}

func TestPatcherModifyExactFallback(t *testing.T) {
	src := "часть без процедуры\nстарый текст\nконец"
	got, err := NewPatcher().Modify(src, "Неизвестная", "новый текст", "старый текст")
	if err != nil {
		t.Fatalf("modify fallback: %v", err)
	}
	if !strings.Contains(got, "новый текст") || strings.Contains(got, "старый текст") {
		t.Errorf("fallback replacement failed:\n%s", got)
	}
}

func TestPatcherModifyMissing(t *testing.T) {
	if _, err := NewPatcher().Modify("нет процедур", "Нет", "x", ""); err == nil {
		t.Fatal("expected error for missing procedure")
	}
}

func TestPatcherDelete(t *testing.T) {
	got, err := NewPatcher().Delete(patchedModule, "Загрузить")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if strings.Contains(got, "Процедура Загрузить") {
		t.Errorf("procedure still present:\n%s", got)
	}
	if !strings.Contains(got, "#Область ОбработчикиКомандФормы") {
		t.Errorf("surrounding region damaged:\n%s", got)
	}
}
