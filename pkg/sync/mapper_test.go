package sync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/itdeo/go-procgen/pkg/bsl"
	"github.com/itdeo/go-procgen/pkg/diff"
)

const mapperFixture = `processor:
  name: ЗагрузкаЦен
  synonym: Загрузка цен|Завантаження цін|Price loading

attributes:
  - name: Период
    type: date
  - name: Ответственный
    type: string
    length: 50

tabular_sections:
  - name: Товары
    columns:
      - name: Количество
        type: number

forms:
  - name: Форма
    default: true
    events:
      ПриСозданииНаСервере: ПриСозданииНаСервере
    elements:
      - name: Период
        type: input_field
        attribute: Период
      - name: Товары
        type: table
        tabular_section: Товары
        children:
          - name: ТоварыКоличество
            type: input_field
            attribute: Количество
`

func mapperDoc(t *testing.T) *Mapper {
	t.Helper()
	doc := &yaml.Node{}
	require.NoError(t, yaml.Unmarshal([]byte(mapperFixture), doc))
	return NewMapper(doc)
}

func TestMapPropertyChange(t *testing.T) {
	m := mapperDoc(t)
	patches, err := m.MapScalarChanges([]diff.ScalarChange{{
		Kind: diff.ScalarProperty, Collection: "attributes", Name: "Ответственный",
		Field: "PasswordMode", Old: "false", New: "true",
	}})
	require.NoError(t, err)
	require.Len(t, patches, 1)
	assert.Equal(t, PatchYAMLScalar, patches[0].Kind)
	assert.Equal(t, "attributes[1].password_mode", patches[0].Path)
	assert.Equal(t, true, patches[0].Value)
}

func TestMapTypeChangeDecomposes(t *testing.T) {
	m := mapperDoc(t)
	patches, err := m.MapScalarChanges([]diff.ScalarChange{{
		Kind: diff.ScalarType, Collection: "attributes", Name: "Ответственный",
		Field: "Type", New: "Type=xs:string,Length=100",
	}})
	require.NoError(t, err)
	require.Len(t, patches, 2)
	assert.Equal(t, "attributes[1].type", patches[0].Path)
	assert.Equal(t, "string", patches[0].Value)
	assert.Equal(t, "attributes[1].length", patches[1].Path)
	assert.Equal(t, 100, patches[1].Value)
}

func TestMapRenameEmitsCrossReferences(t *testing.T) {
	m := mapperDoc(t)
	patches, err := m.MapScalarChanges([]diff.ScalarChange{{
		Kind: diff.ScalarRenamed, Collection: "attributes",
		OldName: "Период", Name: "Дата",
	}})
	require.NoError(t, err)
	require.Len(t, patches, 2)

	assert.Equal(t, "attributes[0].name", patches[0].Path)
	assert.Equal(t, "Дата", patches[0].Value)

	// The form element bound to the attribute follows the rename.
	assert.Equal(t, "forms[0].elements[0].attribute", patches[1].Path)
	assert.Equal(t, "Дата", patches[1].Value)
}

func TestMapColumnRenameFollowsNestedBinding(t *testing.T) {
	m := mapperDoc(t)
	patches, err := m.MapScalarChanges([]diff.ScalarChange{{
		Kind: diff.ScalarRenamed, Collection: "tabular_sections.Товары.columns",
		OldName: "Количество", Name: "Кол",
	}})
	require.NoError(t, err)
	require.Len(t, patches, 2)
	assert.Equal(t, "tabular_sections[0].columns[0].name", patches[0].Path)

	// The table column field keeps pointing at the renamed column.
	assert.Equal(t, "forms[0].elements[1].children[0].attribute", patches[1].Path)
	assert.Equal(t, "Кол", patches[1].Value)
}

func TestMapProcessorSynonymLanguageSplice(t *testing.T) {
	m := mapperDoc(t)
	patches, err := m.MapScalarChanges([]diff.ScalarChange{{
		Kind: diff.ScalarProperty, Collection: "processor", Name: "ЗагрузкаЦен",
		Field: "synonym", Lang: "uk",
		Old: "Завантаження цін", New: "Завантаження прайсів",
	}})
	require.NoError(t, err)
	require.Len(t, patches, 1)
	assert.Equal(t, "processor.synonym", patches[0].Path)
	assert.Equal(t, "Загрузка цен|Завантаження прайсів|Price loading", patches[0].Value)
}

func TestMapEventRebound(t *testing.T) {
	m := mapperDoc(t)
	patches, err := m.MapScalarChanges([]diff.ScalarChange{{
		Kind: diff.ScalarProperty, Collection: "forms.Форма.events", Name: "ПриСозданииНаСервере",
		Field: "handler", Old: "ПриСозданииНаСервере", New: "ПриСозданииНаСервереНовый",
	}})
	require.NoError(t, err)
	require.Len(t, patches, 1)
	assert.Equal(t, "forms[0].events.ПриСозданииНаСервере", patches[0].Path)
	assert.Equal(t, "ПриСозданииНаСервереНовый", patches[0].Value)
}

func TestMapAddedAttribute(t *testing.T) {
	m := mapperDoc(t)
	patches, err := m.MapScalarChanges([]diff.ScalarChange{{
		Kind: diff.ScalarAdded, Collection: "attributes", Name: "Организация", Index: 2,
		Entity: &diff.Entity{
			Name:       "Организация",
			Kind:       "attribute",
			Properties: map[string]string{"Type": "Type=xs:string,Length=150"},
		},
	}})
	require.NoError(t, err)
	require.Len(t, patches, 1)
	assert.Equal(t, PatchYAMLInsert, patches[0].Kind)
	assert.Equal(t, "attributes", patches[0].Path)
	assert.Equal(t, 2, patches[0].Index)

	data, ok := patches[0].Value.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Организация", data["name"])
	assert.Equal(t, "string", data["type"])
	assert.Equal(t, 150, data["length"])
}

func TestMapDeletedAttribute(t *testing.T) {
	m := mapperDoc(t)
	patches, err := m.MapScalarChanges([]diff.ScalarChange{{
		Kind: diff.ScalarDeleted, Collection: "attributes", Name: "Ответственный",
	}})
	require.NoError(t, err)
	require.Len(t, patches, 1)
	assert.Equal(t, PatchYAMLDelete, patches[0].Kind)
	assert.Equal(t, "attributes", patches[0].Path)
	assert.Equal(t, "Ответственный", patches[0].Name)
}

func TestMapUnknownEntityIsConflict(t *testing.T) {
	m := mapperDoc(t)
	_, err := m.MapScalarChanges([]diff.ScalarChange{{
		Kind: diff.ScalarProperty, Collection: "attributes", Name: "Нет",
		Field: "Width", New: "10",
	}})
	assert.ErrorIs(t, err, ErrPatchConflict)
}

func TestMapTreeDeltaOrdering(t *testing.T) {
	m := mapperDoc(t)
	delta := &diff.TreeDelta{
		Modified: []diff.ModifiedNode{{
			Name: "Период", Type: "InputField", Path: ".elements[0]",
			Delta: map[string]diff.PropertyDelta{"ReadOnly": {Old: "false", New: "true"}},
		}},
		Deleted: []diff.DeletedNode{{
			Node: &diff.ElementNode{Name: "ТоварыКоличество", Type: "InputField",
				Path: ".elements[1].child_items[0]"},
		}},
		Added: []diff.AddedNode{{
			Node: &diff.ElementNode{
				Name: "Комментарий", Type: "InputField", Path: ".elements[2]",
				Properties: map[string]string{"DataPath": "Объект.Комментарий"},
			},
			ParentPath: "", Index: 2,
		}},
	}

	patches, err := m.MapTreeDelta("Форма", delta)
	require.NoError(t, err)
	require.Len(t, patches, 3)

	assert.Equal(t, "forms[0].elements[0].read_only", patches[0].Path)
	assert.Equal(t, true, patches[0].Value)

	// Structural deletes precede inserts, and nested paths use children.
	assert.Equal(t, PatchYAMLDelete, patches[1].Kind)
	assert.Equal(t, "forms[0].elements[1].children", patches[1].Path)

	assert.Equal(t, PatchYAMLInsert, patches[2].Kind)
	assert.Equal(t, "forms[0].elements", patches[2].Path)
	data, ok := patches[2].Value.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Комментарий", data["attribute"])
}

func TestMapTreeDeltaModifiedFieldsStableOrder(t *testing.T) {
	m := mapperDoc(t)
	delta := &diff.TreeDelta{
		Modified: []diff.ModifiedNode{{
			Name: "Период", Type: "InputField", Path: ".elements[0]",
			Delta: map[string]diff.PropertyDelta{
				"Width":    {Old: "10", New: "20"},
				"ReadOnly": {Old: "false", New: "true"},
			},
		}},
	}

	patches, err := m.MapTreeDelta("Форма", delta)
	require.NoError(t, err)
	require.Len(t, patches, 2)

	// Map iteration order must not leak into patch order.
	assert.Equal(t, "forms[0].elements[0].read_only", patches[0].Path)
	assert.Equal(t, "forms[0].elements[0].width", patches[1].Path)
}

func TestMapTreeDeltaMoveAndRename(t *testing.T) {
	m := mapperDoc(t)
	delta := &diff.TreeDelta{
		Renamed: []diff.RenamedNode{{
			Type: "InputField", Path: ".elements[0]",
			OldName: "Период", NewName: "Дата",
		}},
		Moved: []diff.MovedNode{{
			Name: "Товары", Type: "Table",
			FromPath: ".elements[1]", ToPath: ".elements[0]", ToIndex: 0,
		}},
	}

	patches, err := m.MapTreeDelta("Форма", delta)
	require.NoError(t, err)
	require.Len(t, patches, 2)
	assert.Equal(t, "forms[0].elements[0].name", patches[0].Path)
	assert.Equal(t, "Дата", patches[0].Value)
	assert.Equal(t, PatchYAMLMove, patches[1].Kind)
	assert.Equal(t, "forms[0].elements", patches[1].Path)
	assert.Equal(t, 0, patches[1].Index)
}

func TestMapHandlerChanges(t *testing.T) {
	m := mapperDoc(t)
	patches := m.MapHandlerChanges([]bsl.Change{
		{Kind: bsl.ProcedureAdded, Name: "Новая", NewBody: "Процедура Новая()\nКонецПроцедуры"},
		{Kind: bsl.ProcedureModified, Name: "Загрузить", OldBody: "старое", NewBody: "новое"},
		{Kind: bsl.ProcedureDeleted, Name: "Старая", OldBody: "тело"},
	})
	require.Len(t, patches, 3)
	assert.Equal(t, PatchHandlerAdd, patches[0].Kind)
	assert.Equal(t, PatchHandlerModify, patches[1].Kind)
	assert.Equal(t, "новое", patches[1].Body)
	assert.Equal(t, PatchHandlerDelete, patches[2].Kind)
}

func TestSnakeName(t *testing.T) {
	assert.Equal(t, "horizontal_stretch", snakeName("HorizontalStretch"))
	assert.Equal(t, "width", snakeName("Width"))
}
