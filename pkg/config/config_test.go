package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const minimalConfig = `
processor:
  name: ЗагрузкаДанных
  synonym: "Загрузка данных|Завантаження даних|Data loading"
  platform_version: "8.3.25"

attributes:
  - name: Период
    type: date
  - name: Комментарий
    type: string
    length: 150

tabular_sections:
  - name: Товары
    columns:
      - name: Номенклатура
        type: string
        length: 100
      - name: Количество
        type: number
        digits: 15
        fraction_digits: 3

forms:
  - name: Форма
    default: true
    events:
      ПриСозданииНаСервере: ПриСозданииНаСервере
    elements:
      - type: InputField
        name: Период
        attribute: Период
      - type: Table
        name: Товары
        tabular_section: Товары
`

func TestLoadMinimal(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "processor.yaml", minimalConfig)

	res, err := New().Load(context.Background(), path)
	require.NoError(t, err)

	proc := res.Processor
	require.Equal(t, "ЗагрузкаДанных", proc.Name)
	require.Equal(t, "Завантаження даних", proc.Synonym.UK)
	require.Len(t, proc.Attributes, 2)
	require.Equal(t, "date", proc.Attributes[0].Type)
	require.Equal(t, 150, proc.Attributes[1].Length)

	require.Len(t, proc.TabularSections, 1)
	ts := proc.TabularSections[0]
	require.Len(t, ts.Columns, 2)
	require.Equal(t, 3, ts.Columns[1].FractionDigits)

	require.Len(t, proc.Forms, 1)
	form := proc.Forms[0]
	require.True(t, form.Default)
	require.Equal(t, []string{"ru", "uk", "en"}, proc.Languages)
	require.Len(t, form.Events, 1)
	require.Equal(t, "ПриСозданииНаСервере", form.Events[0].Event)
	require.Len(t, form.Elements, 2)
	require.Equal(t, "Товары", form.Elements[1].TabularSection)

	require.NotEmpty(t, proc.UUID)
	require.NotEqual(t, proc.UUID, proc.ObjectUUID)
}

func TestLoadRejectsUnknownTopLevelKey(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "bad.yaml", `
processor:
  name: Тест
atributes:
  - name: Поле
    type: string
`)
	_, err := New().Load(context.Background(), path)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrMalformed))
}

func TestLoadSuggestsElementType(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "bad.yaml", `
processor:
  name: Тест
forms:
  - name: Форма
    elements:
      - type: InputFeild
        name: Поле
        attribute: Поле
`)
	_, err := New().Load(context.Background(), path)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrMalformed))
	require.Contains(t, err.Error(), "did you mean")
	require.Contains(t, err.Error(), "InputField")
}

func TestLoadResolvesElementAliases(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "cfg.yaml", `
processor:
  name: Тест
forms:
  - name: Форма
    elements:
      - type: TextBox
        name: Поле
        attribute: Поле
      - type: CheckBox
        name: Флаг
        attribute: Флаг
`)
	res, err := New().Load(context.Background(), path)
	require.NoError(t, err)
	els := res.Processor.Forms[0].Elements
	require.Equal(t, "InputField", els[0].Type)
	require.Equal(t, "CheckBoxField", els[1].Type)
}

func TestLoadIncludeOuterWins(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "forms/main.yaml", `
name: Включаемая
synonym: Из файла
elements:
  - type: LabelDecoration
    name: Подпись
    title: Подпись из файла
`)
	path := writeFile(t, dir, "cfg.yaml", `
processor:
  name: Тест
forms:
  - include: forms/main.yaml
    name: Основная
`)
	res, err := New().Load(context.Background(), path)
	require.NoError(t, err)
	form := res.Processor.Forms[0]
	require.Equal(t, "Основная", form.Name)
	require.Len(t, form.Elements, 1)
	require.Equal(t, "Подпись", form.Elements[0].Name)
}

func TestLoadUnresolvableInclude(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "cfg.yaml", `
processor:
  name: Тест
forms:
  - include: forms/missing.yaml
`)
	_, err := New().Load(context.Background(), path)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrMalformed))
}

func TestColumnGroupDropsUnsupportedChildren(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "cfg.yaml", `
processor:
  name: Тест
forms:
  - name: Форма
    value_tables:
      - name: Данные
        columns:
          - name: Имя
            type: string
    elements:
      - type: Table
        name: Данные
        value_table: Данные
        elements:
          - type: ColumnGroup
            name: Группа
            elements:
              - type: InputField
                name: Имя
                attribute: Имя
              - type: Button
                name: Кнопка
                command: Команда
`)
	res, err := New().Load(context.Background(), path)
	require.NoError(t, err)

	group := res.Processor.Forms[0].Elements[0].Children[0]
	require.Len(t, group.Children, 1)
	require.Equal(t, "InputField", group.Children[0].Type)

	joined := strings.Join(res.Warnings, "\n")
	require.Contains(t, joined, "Группа")
}

func TestLoadHandlersFileMustExist(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "cfg.yaml", `
processor:
  name: Тест
forms:
  - name: Форма
    handlers_file: handlers/missing.bsl
`)
	_, err := New().Load(context.Background(), path)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrMalformed))
}

func TestLoadHandlersDirResolved(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "handlers/ПриОткрытии.bsl", "// обработчик\n")
	path := writeFile(t, dir, "cfg.yaml", `
processor:
  name: Тест
forms:
  - name: Форма
    handlers_dir: handlers
`)
	res, err := New().Load(context.Background(), path)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "handlers"), res.Processor.Forms[0].HandlersDir)
	require.Empty(t, res.Processor.Forms[0].HandlersFile)
}

func TestLoadHandlersDirMustExist(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "cfg.yaml", `
processor:
  name: Тест
forms:
  - name: Форма
    handlers_dir: missing
`)
	_, err := New().Load(context.Background(), path)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrMalformed))
}

func TestLoadTemplateSanitize(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "tpl/report.html", `<html><body><p>Отчет</p><script>alert(1)</script></body></html>`)
	path := writeFile(t, dir, "cfg.yaml", `
processor:
  name: Тест
forms:
  - name: Форма
templates:
  - name: Отчет
    kind: html
    file: tpl/report.html
    sanitize: true
    auto_field: true
    target_form: Форма
`)
	res, err := New().Load(context.Background(), path)
	require.NoError(t, err)
	tmpl := res.Processor.Templates[0]
	require.NotContains(t, tmpl.Content, "<script>")
	require.Contains(t, tmpl.Content, "Отчет")
	require.Equal(t, "Отчет", tmpl.FieldName)
}

func TestLoadLongOperationDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "cfg.yaml", `
processor:
  name: Тест
forms:
  - name: Форма
    commands:
      - name: Загрузить
        title: Загрузить
        long_operation: true
`)
	res, err := New().Load(context.Background(), path)
	require.NoError(t, err)
	cmd := res.Processor.Forms[0].Commands[0]
	require.True(t, cmd.LongOperation)
	require.NotNil(t, cmd.LongOp)
	require.Equal(t, 300, cmd.LongOp.TimeoutSeconds)
}
