package generate

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/itdeo/go-procgen/internal/ids"
	"github.com/itdeo/go-procgen/internal/model"
)

func testProcessor() *model.Processor {
	proc := model.NewProcessor("ЗагрузкаДанных")
	proc.AddAttribute("Период", "date")

	ts := proc.AddTabularSection("Товары")
	ts.AddColumn("Номенклатура", "string").Length = 100
	ts.AddColumn("Отмечен", "boolean")

	form := proc.AddForm("Форма")
	form.Default = true
	form.Elements = []*model.FormElement{
		{Type: "InputField", Name: "Период", Attribute: "Период"},
		{Type: "Table", Name: "Товары", TabularSection: "Товары"},
		{Type: "Button", Name: "КнопкаЗагрузить", CommandName: "Загрузить"},
	}
	return proc
}

func TestPrepareFormIDsAndPaths(t *testing.T) {
	proc := testProcessor()
	form := proc.Forms[0]

	prepared := PrepareForm(proc, form, ids.New())
	require.Len(t, prepared.Items, 3)

	field := prepared.Items[0]
	require.Equal(t, 1, field.ID)
	require.Equal(t, "Объект.Период", field.DataPath)

	table := prepared.Items[1]
	require.Equal(t, 4, table.ID)
	require.Equal(t, "Объект.Товары", table.DataPath)

	// Line-number column first, then one column per declaration, each
	// advancing by the column increment.
	require.Len(t, table.Children, 3)
	require.Equal(t, "ТоварыНомерСтроки", table.Children[0].Name)
	require.Equal(t, 7, table.Children[0].ID)
	require.Equal(t, "Объект.Товары.НомерСтроки", table.Children[0].DataPath)
	require.Equal(t, 9, table.Children[1].ID)
	require.Equal(t, "Объект.Товары.Номенклатура", table.Children[1].DataPath)
	require.Equal(t, 11, table.Children[2].ID)

	button := prepared.Items[2]
	require.Equal(t, 13, button.ID)
	require.Equal(t, "Загрузить", button.CommandName)
}

func TestPrepareBooleanColumnBecomesCheckBox(t *testing.T) {
	proc := testProcessor()
	prepared := PrepareForm(proc, proc.Forms[0], ids.New())

	table := prepared.Items[1]
	require.Equal(t, "InputField", table.Children[1].Type)
	require.Equal(t, "CheckBoxField", table.Children[2].Type)
}

func TestPrepareExplicitChildSuppressesSynthesis(t *testing.T) {
	proc := testProcessor()
	form := proc.Forms[0]
	form.Elements[1].Children = []*model.FormElement{
		{Type: "InputField", Name: "ТоварыНоменклатура", Attribute: "Номенклатура"},
	}

	prepared := PrepareForm(proc, form, ids.New())
	table := prepared.Items[1]

	require.Len(t, table.Children, 3)
	require.Equal(t, "ТоварыНомерСтроки", table.Children[0].Name)
	require.Equal(t, "ТоварыНоменклатура", table.Children[1].Name)
	require.Equal(t, "Объект.Товары.Номенклатура", table.Children[1].DataPath)
	// Only the column the explicit child did not cover is synthesized.
	require.Equal(t, "ТоварыОтмечен", table.Children[2].Name)
}

func TestPrepareValueTablePaths(t *testing.T) {
	proc := testProcessor()
	form := proc.Forms[0]
	form.ValueTables = []*model.ValueTableAttribute{{
		Name:    "ТаблицаОшибок",
		Columns: []*model.Column{{Name: "Сообщение", Type: "string"}},
	}}
	form.Elements = []*model.FormElement{
		{Type: "Table", Name: "ТаблицаОшибок", TabularSection: "ТаблицаОшибок"},
	}

	prepared := PrepareForm(proc, form, ids.New())
	table := prepared.Items[0]
	require.Equal(t, "ТаблицаОшибок", table.DataPath)
	require.Len(t, table.Children, 1)
	require.Equal(t, "ТаблицаОшибок.Сообщение", table.Children[0].DataPath)
}

func TestPrepareDynamicListDefaultColumn(t *testing.T) {
	proc := testProcessor()
	form := proc.Forms[0]
	form.DynamicLists = []*model.DynamicListAttribute{{
		Name:      "Список",
		MainTable: "Справочник.Номенклатура",
	}}
	form.Elements = []*model.FormElement{
		{Type: "Table", Name: "Список", TabularSection: "Список"},
	}

	prepared := PrepareForm(proc, form, ids.New())
	table := prepared.Items[0]
	require.Len(t, table.Children, 1)
	require.Equal(t, "Список.Description", table.Children[0].DataPath)
	require.Equal(t, "Наименование", table.Children[0].Properties["title_ru"])
}

func TestPrepareAutoCommandBarContinuesSequence(t *testing.T) {
	proc := testProcessor()
	form := proc.Forms[0]
	form.AutoCommandBar = []*model.FormElement{
		{Type: "Button", Name: "КнопкаЗакрыть", CommandName: "Закрыть"},
	}

	prepared := PrepareForm(proc, form, ids.New())
	require.Equal(t, 16, prepared.AutoCommandBar[0].ID)
	require.Equal(t, 19, prepared.NextID)
}
