package generate

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeXMLBreaksTags(t *testing.T) {
	in := "<a><b>text</b></a>"
	want := "<a>\n<b>text</b>\n</a>\n"
	require.Equal(t, want, NormalizeXML(in))
}

func TestNormalizeXMLCollapsesBlankRuns(t *testing.T) {
	in := "<a>\n\n\n\n</a>"
	require.Equal(t, "<a>\n\n</a>\n", NormalizeXML(in))
}

func TestWriterAddsBOM(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "build")

	w := NewWriter()
	err := w.Write(context.Background(), out, []Artifact{
		TextArtifact("Обработка/Обработка.xml", "<a/>", true),
		{Path: "raw.bin", Content: []byte{0x01, 0x02}, Binary: true},
	})
	require.NoError(t, err)

	xml, err := os.ReadFile(filepath.Join(out, "Обработка", "Обработка.xml"))
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(xml, utf8BOM))

	raw, err := os.ReadFile(filepath.Join(out, "raw.bin"))
	require.NoError(t, err)
	require.Equal(t, []byte{0x01, 0x02}, raw)
}

func TestWriterReplacesPreviousOutput(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "build")

	w := NewWriter()
	first := []Artifact{TextArtifact("old.xml", "<old/>", true)}
	require.NoError(t, w.Write(context.Background(), out, first))

	second := []Artifact{TextArtifact("new.xml", "<new/>", true)}
	require.NoError(t, w.Write(context.Background(), out, second))

	_, err := os.Stat(filepath.Join(out, "old.xml"))
	require.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(out, "new.xml"))
	require.NoError(t, err)
	_, err = os.Stat(out + ".previous")
	require.True(t, os.IsNotExist(err))
}

func TestTypeXMLQualifiers(t *testing.T) {
	require.Contains(t, typeXML("string", 100, 0, 0), "<v8:Length>100</v8:Length>")
	require.Contains(t, typeXML("number", 0, 15, 3), "<v8:FractionDigits>3</v8:FractionDigits>")
	require.Contains(t, typeXML("date", 0, 0, 0), "xs:dateTime")
	require.Contains(t, typeXML("binary_data", 0, 0, 0), "v8:BinaryData")
	require.Contains(t, typeXML("cfg:CatalogRef.Номенклатура", 0, 0, 0), "cfg:CatalogRef.Номенклатура")
}
