package bsl

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/itdeo/go-procgen/internal/model"
)

func writeHandler(t *testing.T, dir, name, code string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name+".bsl"), []byte(code), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadHandlerDirWrapsBareBody(t *testing.T) {
	dir := t.TempDir()
	writeHandler(t, dir, "ПриСозданииНаСервере", "А = 1;\nБ = 2;\n")
	form := &model.Form{
		Name:   "Форма",
		Events: []model.EventBinding{{Event: "ПриСозданииНаСервере", Handler: "ПриСозданииНаСервере"}},
	}

	res, err := LoadHandlerDir(dir, form)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	proc, ok := res.Procedures.Get("ПриСозданииНаСервере")
	if !ok {
		t.Fatalf("procedure not loaded, names = %v", res.Procedures.Names())
	}
	if !strings.Contains(proc.Full, "&НаСервере") {
		t.Errorf("directive missing:\n%s", proc.Full)
	}
	if !strings.Contains(proc.Full, "Процедура ПриСозданииНаСервере(Отказ, СтандартнаяОбработка)") {
		t.Errorf("canonical signature missing:\n%s", proc.Full)
	}
	if !strings.Contains(proc.Full, "\tА = 1;") {
		t.Errorf("body not indented:\n%s", proc.Full)
	}
}

func TestLoadHandlerDirKeepsSignedSource(t *testing.T) {
	dir := t.TempDir()
	src := "&НаКлиенте\nПроцедура ПриОткрытии(Отказ)\n\tОбновить();\nКонецПроцедуры"
	writeHandler(t, dir, "ПриОткрытии", src)
	form := &model.Form{
		Name:   "Форма",
		Events: []model.EventBinding{{Event: "ПриОткрытии", Handler: "ПриОткрытии"}},
	}

	res, err := LoadHandlerDir(dir, form)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	proc, ok := res.Procedures.Get("ПриОткрытии")
	if !ok {
		t.Fatal("procedure not loaded")
	}
	if !strings.Contains(proc.Full, "Обновить();") {
		t.Errorf("signed source not kept verbatim:\n%s", proc.Full)
	}
}

func TestLoadHandlerDirWarnsOnMissingRequired(t *testing.T) {
	form := &model.Form{
		Name:   "Форма",
		Events: []model.EventBinding{{Event: "ПриСозданииНаСервере", Handler: "ПриСозданииНаСервере"}},
	}
	res, err := LoadHandlerDir(t.TempDir(), form)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0], "ПриСозданииНаСервере.bsl") {
		t.Errorf("warnings = %v", res.Warnings)
	}
}

func TestLoadHandlerDirCommandCompanion(t *testing.T) {
	dir := t.TempDir()
	writeHandler(t, dir, "Загрузить", "ЗагрузитьНаСервере();\n")
	writeHandler(t, dir, "ЗагрузитьНаСервере", "ВыполнитьЗагрузку();\n")
	form := &model.Form{
		Name:     "Форма",
		Commands: []*model.Command{{Name: "Загрузить", Action: "Загрузить"}},
	}

	res, err := LoadHandlerDir(dir, form)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Procedures.Len() != 2 {
		t.Fatalf("procedures = %v", res.Procedures.Names())
	}
	server, _ := res.Procedures.Get("ЗагрузитьНаСервере")
	if !strings.Contains(server.Full, "&НаСервере") {
		t.Errorf("companion directive missing:\n%s", server.Full)
	}

	w, err := NewInjector().Weave(form, res)
	if err != nil {
		t.Fatalf("weave: %v", err)
	}
	if len(w.CommandHandlers) != 2 {
		t.Fatalf("command handlers = %d", len(w.CommandHandlers))
	}
}
