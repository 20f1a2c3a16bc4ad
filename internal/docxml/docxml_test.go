package docxml

import (
	"bytes"
	"encoding/xml"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `<?xml version="1.0" encoding="UTF-8"?>
<add>
  <doc>
    <field name="id">/img/test/01.jpg</field>
    <field name="localimagefile">/img/test/01.jpg</field>
    <field name="title">a &amp; b</field>
  </doc>
  <doc>
    <field name="id">/img/test/02.jpg</field>
    <field name="imgurl">http://example.org/02.jpg</field>
    <field name="tag">x</field>
    <field name="tag">y</field>
  </doc>
</add>`

func TestRead(t *testing.T) {
	list, err := Read(strings.NewReader(sample))
	require.NoError(t, err)

	assert.Equal(t, "add", list.XMLName.Local)
	require.Equal(t, 2, list.Len())
	assert.Equal(t, "doc", list.Docs[0].XMLName.Local)
	v, ok := list.Docs[0].Get("title")
	assert.True(t, ok)
	assert.Equal(t, "a & b", v)
	assert.Equal(t, []string{"x", "y"}, list.Docs[1].All("tag"))
	assert.Equal(t, "/img/test/02.jpg", list.Docs[1].ID())
}

func TestRead_Empty(t *testing.T) {
	_, err := Read(strings.NewReader(""))
	assert.Error(t, err)
}

func TestWriteRoundTrip(t *testing.T) {
	list, err := Read(strings.NewReader(sample))
	require.NoError(t, err)
	list.Docs[0].Add(FieldCategories, "cat cat dog ")

	var buf bytes.Buffer
	require.NoError(t, list.Write(&buf))
	assert.True(t, strings.HasPrefix(buf.String(), "<?xml"))
	assert.Contains(t, buf.String(), `<field name="categories_ws">cat cat dog </field>`)

	again, err := Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, list.Docs[0].Fields, again.Docs[0].Fields)
}

func TestWriteRoundTrip_KeepsAttributesAndOtherChildren(t *testing.T) {
	in := `<add overwrite="true"><doc boost="2"><field name="id" update="set">x</field>` +
		`<other kind="note">keep <b>this</b></other><field name="title">t</field></doc></add>`
	list, err := Read(strings.NewReader(in))
	require.NoError(t, err)
	list.Docs[0].Add(FieldCategories, "tabby ")

	var buf bytes.Buffer
	require.NoError(t, list.Write(&buf))
	out := buf.String()
	assert.Contains(t, out, `<add overwrite="true">`)
	assert.Contains(t, out, `<doc boost="2">`)
	assert.Contains(t, out, `<field name="id" update="set">x</field>`)
	assert.Contains(t, out, `<other kind="note">keep <b>this</b></other>`)
	assert.Contains(t, out, `<field name="categories_ws">tabby </field>`)

	again, err := Read(&buf)
	require.NoError(t, err)
	require.Equal(t, 1, again.Len())
	doc := again.Docs[0]
	assert.Equal(t, "x", doc.ID())
	require.Len(t, doc.Extra, 1)
	assert.Equal(t, "other", doc.Extra[0].XMLName.Local)
	assert.Equal(t, []string{"id", "title", "categories_ws"}, []string{doc.Fields[0].Name, doc.Fields[1].Name, doc.Fields[2].Name})
	assert.Equal(t, []xml.Attr{{Name: xml.Name{Local: "update"}, Value: "set"}}, doc.Fields[0].Attrs)
}

func TestWrite_DefaultsElementNames(t *testing.T) {
	list := &DocumentList{Docs: []*Document{{}}}
	list.Docs[0].Add(FieldID, "1")

	var buf bytes.Buffer
	require.NoError(t, list.Write(&buf))
	assert.Contains(t, buf.String(), "<add>")
	assert.Contains(t, buf.String(), "<doc>")
}

func TestDocumentRemove(t *testing.T) {
	d := NewDocument()
	d.Add("a", "1")
	d.Add("b", "2")
	d.Add("a", "3")

	assert.Equal(t, 2, d.Remove("a"))
	assert.Equal(t, []string{"2"}, d.All("b"))
	_, ok := d.Get("a")
	assert.False(t, ok)
}

func TestOutputPath(t *testing.T) {
	assert.Equal(t, "data/list_cat.xml", OutputPath("data/list.xml"))
	assert.Equal(t, "list_cat.xml", OutputPath("list"))
}

func TestImagePathsAndFind(t *testing.T) {
	list, err := Read(strings.NewReader(sample))
	require.NoError(t, err)

	assert.Equal(t, []string{"/img/test/01.jpg"}, ImagePaths(list))
	found := FindBySuffix(list, "02.jpg")
	require.Len(t, found, 1)
	assert.Equal(t, "/img/test/02.jpg", found[0].ID())
}

func TestSplitFiles(t *testing.T) {
	dir := t.TempDir()
	list := NewDocumentList()
	for i := 0; i < 5; i++ {
		d := NewDocument()
		d.Add(FieldID, string(rune('a'+i)))
		list.Docs = append(list.Docs, d)
	}
	var script bytes.Buffer

	paths, err := SplitFiles(list, "big.xml", SplitOptions{
		PerFile:   2,
		Dir:       dir,
		Script:    &script,
		UpdateURL: "http://localhost:8983/solr/lire/update",
	})
	require.NoError(t, err)

	require.Len(t, paths, 3)
	assert.Equal(t, filepath.Join(dir, "big002.xml"), paths[2])
	last, err := ReadFile(paths[2])
	require.NoError(t, err)
	assert.Equal(t, 1, last.Len())
	assert.Equal(t, 6, strings.Count(script.String(), "curl "))
	_, err = os.Stat(paths[0])
	assert.NoError(t, err)
}

func TestMerge(t *testing.T) {
	src := NewDocumentList(
		NewDocument(),
		NewDocument(),
	)
	src.Docs[0].Add(FieldID, "/data/test/01.jpg")
	src.Docs[0].Add(FieldFeatureHist, "AAEC")
	src.Docs[1].Add(FieldID, "/data/test/03.jpg")

	target := NewDocumentList(NewDocument(), NewDocument())
	target.Docs[0].Add(FieldID, " /data/test/01.jpg ")
	target.Docs[1].Add(FieldID, "/data/test/02.jpg")

	st := Merge(src, target, "test/")

	assert.Equal(t, 1, st.Merged)
	assert.Equal(t, []string{"/data/test/02.jpg"}, st.Missing)
	v, _ := target.Docs[0].Get(FieldFeatureHist)
	assert.Equal(t, "AAEC", v)
	u, _ := target.Docs[0].Get(FieldImageURL)
	assert.Equal(t, "test/01.jpg", u)
	assert.Len(t, target.Docs[0].All(FieldID), 1)
	assert.Len(t, target.Docs[1].Fields, 1)
}
