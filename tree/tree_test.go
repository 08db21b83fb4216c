package tree

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFindElementByCanonicalPath(t *testing.T) {
	d, err := Load([]byte(`<library><name>City</name><books>Dune</books></library>`))
	require.NoError(t, err)

	name := d.FindElement("/library/name")
	require.NotNil(t, name)
	require.Equal(t, "City", name.Text())
}

func TestFindElementWithIndexedSibling(t *testing.T) {
	d, err := Load([]byte(`<departments><department>a</department><department>b</department></departments>`))
	require.NoError(t, err)

	second := d.FindElement("/departments/department[2]")
	require.NotNil(t, second)
	require.Equal(t, "b", second.Text())
}

func TestInsertFirstChild(t *testing.T) {
	d, err := Load([]byte(`<library><books>Dune</books></library>`))
	require.NoError(t, err)

	root := d.Root()
	newEl := root.CreateElement("name")
	require.True(t, Remove(newEl)) // placed last by CreateElement; detach then reinsert
	require.True(t, Insert(newEl, root, FirstChild))

	children := root.ChildElements()
	require.Equal(t, "name", children[0].Tag)
	require.Equal(t, "books", children[1].Tag)
}

func TestRemoveSurplusSibling(t *testing.T) {
	d, err := Load([]byte(`<departments><department>a</department><department>b</department></departments>`))
	require.NoError(t, err)

	last := d.FindElement("/departments/department[2]")
	require.True(t, Remove(last))
	require.Len(t, d.Root().ChildElements(), 1)
}

func TestReorderChildren(t *testing.T) {
	d, err := Load([]byte(`<employee><age>30</age><email>x@y.z</email><firstName>J</firstName><lastName>D</lastName></employee>`))
	require.NoError(t, err)

	root := d.Root()
	require.True(t, ReorderChildren(root, []string{"firstName", "lastName", "age", "email"}))

	var tags []string
	for _, c := range root.ChildElements() {
		tags = append(tags, c.Tag)
	}
	require.Equal(t, []string{"firstName", "lastName", "age", "email"}, tags)
}

func TestSetTextReplacesContent(t *testing.T) {
	d, err := Load([]byte(`<age>15</age>`))
	require.NoError(t, err)

	root := d.Root()
	SetText(root, "18")
	require.Equal(t, "18", root.Text())
}

func TestSetAndRemoveAttribute(t *testing.T) {
	d, err := Load([]byte(`<employee id="1"/>`))
	require.NoError(t, err)

	root := d.Root()
	SetAttribute(root, "status", "active")
	require.Equal(t, "active", root.SelectAttrValue("status", ""))

	require.True(t, RemoveAttribute(root, "id"))
	require.Nil(t, root.SelectAttr("id"))
}
