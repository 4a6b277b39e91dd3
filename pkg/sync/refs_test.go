package sync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const refsConfig = `processor:
  name: ЗагрузкаЦен

attributes:
  - name: Период
    type: date

forms:
  - name: Форма
    default: true
    elements:
      - name: Период
        type: input_field
        attribute: Период
      - name: Группа
        type: group
        children:
          - name: Кнопка
            type: button
            command: Загрузить
`

const refsHandlers = `&НаСервере
Процедура ЗагрузитьНаСервере()
	Т = Объект.Период;
	Элементы.Период.Видимость = Ложь;
КонецПроцедуры
`

func refChecker(t *testing.T) *RefChecker {
	t.Helper()
	doc := &yaml.Node{}
	require.NoError(t, yaml.Unmarshal([]byte(refsConfig), doc))
	return NewRefChecker(doc, refsHandlers)
}

func TestCheckAttributeReferences(t *testing.T) {
	refs := refChecker(t).Check(RefAttribute, "Период")
	require.Len(t, refs, 2)
	assert.Contains(t, refs[0], "element Период")
	assert.Contains(t, refs[1], "handlers line 3")
}

func TestCheckCommandReferenceInNestedChildren(t *testing.T) {
	refs := refChecker(t).Check(RefCommand, "Загрузить")
	require.NotEmpty(t, refs)
	assert.Contains(t, refs[0], "element Кнопка")
}

func TestCheckUnreferencedNameIsClean(t *testing.T) {
	refs := refChecker(t).Check(RefAttribute, "Ответственный")
	assert.Empty(t, refs)
}

func TestCheckDefaultForm(t *testing.T) {
	refs := refChecker(t).Check(RefForm, "Форма")
	require.NotEmpty(t, refs)
	assert.Contains(t, refs[0], "default form")
}
