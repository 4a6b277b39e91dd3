package sync

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const patchFixture = `# Обработка загрузки цен
processor:
  name: ЗагрузкаЦен
  synonym: Загрузка цен|Завантаження цін|Price loading

attributes:
  # основной период
  - name: Период
    type: date
  - name: Ответственный
    type: string
    length: 50

forms:
  - name: Форма
    default: true
    elements:
      - name: Период
        type: input_field
        attribute: Период
      # командная кнопка
      - name: Загрузить
        type: button
        command: Загрузить
`

func parseFixture(t *testing.T) *yaml.Node {
	t.Helper()
	doc := &yaml.Node{}
	require.NoError(t, yaml.Unmarshal([]byte(patchFixture), doc))
	return doc
}

func encode(t *testing.T, doc *yaml.Node) string {
	t.Helper()
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	require.NoError(t, enc.Encode(doc))
	require.NoError(t, enc.Close())
	return buf.String()
}

func TestSetScalarKeepsComments(t *testing.T) {
	doc := parseFixture(t)
	p := NewYAMLPatcher()

	require.NoError(t, p.Set(doc, "attributes[1].length", 100))

	out := encode(t, doc)
	assert.Contains(t, out, "length: 100")
	assert.Contains(t, out, "# Обработка загрузки цен")
	assert.Contains(t, out, "# основной период")
	assert.Contains(t, out, "# командная кнопка")
}

func TestSetAppendsMissingKey(t *testing.T) {
	doc := parseFixture(t)
	p := NewYAMLPatcher()

	require.NoError(t, p.Set(doc, "attributes[0].tooltip", "Дата загрузки"))

	out := encode(t, doc)
	assert.Contains(t, out, "tooltip: Дата загрузки")
}

func TestSetMergesMappings(t *testing.T) {
	doc := parseFixture(t)
	p := NewYAMLPatcher()

	require.NoError(t, p.Set(doc, "forms[0].elements[0]", map[string]any{
		"read_only": true,
	}))

	out := encode(t, doc)
	// Merged key added, existing keys and their neighbours untouched.
	assert.Contains(t, out, "read_only: true")
	assert.Contains(t, out, "attribute: Период")
}

func TestSetMissingPathIsConflict(t *testing.T) {
	doc := parseFixture(t)
	p := NewYAMLPatcher()

	err := p.Set(doc, "attributes[5].length", 10)
	assert.ErrorIs(t, err, ErrPatchConflict)

	err = p.Set(doc, "nonexistent.key", "x")
	assert.ErrorIs(t, err, ErrPatchConflict)
}

func TestInsertAtIndex(t *testing.T) {
	doc := parseFixture(t)
	p := NewYAMLPatcher()

	require.NoError(t, p.Insert(doc, "attributes", 1, map[string]any{
		"name": "Организация",
		"type": "string",
	}))

	out := encode(t, doc)
	first := bytes.Index([]byte(out), []byte("name: Период"))
	second := bytes.Index([]byte(out), []byte("name: Организация"))
	third := bytes.Index([]byte(out), []byte("name: Ответственный"))
	assert.True(t, first < second && second < third, "insertion order wrong:\n%s", out)
}

func TestInsertNameCollision(t *testing.T) {
	doc := parseFixture(t)
	p := NewYAMLPatcher()

	err := p.Insert(doc, "attributes", 0, map[string]any{"name": "Период"})
	assert.ErrorIs(t, err, ErrPatchConflict)
}

func TestDeleteHoistsHeadComment(t *testing.T) {
	doc := parseFixture(t)
	p := NewYAMLPatcher()

	require.NoError(t, p.Delete(doc, "attributes", "Период"))

	out := encode(t, doc)
	assert.NotContains(t, out, "type: date")
	// The deleted item's comment survives on the next sibling.
	assert.Contains(t, out, "# основной период")
	assert.Contains(t, out, "name: Ответственный")
}

func TestDeleteMissingItem(t *testing.T) {
	doc := parseFixture(t)
	err := NewYAMLPatcher().Delete(doc, "attributes", "Нет")
	assert.ErrorIs(t, err, ErrPatchConflict)
}

func TestMoveReorders(t *testing.T) {
	doc := parseFixture(t)
	p := NewYAMLPatcher()

	require.NoError(t, p.Move(doc, "forms[0].elements", "Загрузить", 0))

	out := encode(t, doc)
	button := bytes.Index([]byte(out), []byte("name: Загрузить"))
	field := bytes.Index([]byte(out), []byte("name: Период\n        type: input_field"))
	assert.True(t, button >= 0 && field >= 0 && button < field, "move failed:\n%s", out)
}

func TestParsePathSegments(t *testing.T) {
	segs, err := parsePath("forms[0].elements[2].name")
	require.NoError(t, err)
	require.Len(t, segs, 5)
	assert.Equal(t, "forms", segs[0].key)
	assert.Equal(t, 0, segs[1].index)
	assert.Equal(t, "elements", segs[2].key)
	assert.Equal(t, 2, segs[3].index)
	assert.Equal(t, "name", segs[4].key)

	_, err = parsePath("forms[x]")
	assert.ErrorIs(t, err, ErrPatchConflict)
}
