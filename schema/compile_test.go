package schema

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const librarySchema = `<?xml version="1.0" encoding="UTF-8"?>
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema">
  <xs:element name="library">
    <xs:complexType>
      <xs:sequence>
        <xs:element name="name" type="xs:string"/>
        <xs:element name="books" type="xs:string"/>
      </xs:sequence>
    </xs:complexType>
  </xs:element>
</xs:schema>`

func TestCompileSimpleSequence(t *testing.T) {
	model, err := CompileBytes([]byte(librarySchema), CompileOptions{})
	require.NoError(t, err)
	require.NotEqual(t, NoRef, model.Root)

	root := model.Element(model.Root)
	require.Equal(t, "library", root.Name)
	require.Equal(t, ContentComplex, root.ContentKind)
	require.Equal(t, Sequence, root.Content.Kind)
	require.Len(t, root.Content.Members, 2)

	name := model.Element(root.Content.Members[0].Element)
	require.Equal(t, "name", name.Name)
	require.True(t, name.Required())
}

func TestCompileCardinalityAndEnumeration(t *testing.T) {
	const xsd = `<?xml version="1.0"?>
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema">
  <xs:element name="departments">
    <xs:complexType>
      <xs:sequence>
        <xs:element name="department" maxOccurs="5">
          <xs:complexType>
            <xs:sequence>
              <xs:element name="name">
                <xs:simpleType>
                  <xs:restriction base="xs:string">
                    <xs:enumeration value="Engineering"/>
                    <xs:enumeration value="Marketing"/>
                    <xs:enumeration value="Sales"/>
                    <xs:enumeration value="HR"/>
                    <xs:enumeration value="Finance"/>
                  </xs:restriction>
                </xs:simpleType>
              </xs:element>
            </xs:sequence>
          </xs:complexType>
        </xs:element>
      </xs:sequence>
    </xs:complexType>
  </xs:element>
</xs:schema>`
		model, err := CompileBytes([]byte(xsd), CompileOptions{})
	require.NoError(t, err)

	root := model.Element(model.Root)
	dept := root.Content.Members[0]
	require.True(t, dept.IsElement)
	require.EqualValues(t, 5, dept.MaxOccurs)

	deptEl := model.Element(dept.Element)
	nameEl := model.Element(deptEl.Content.Members[0].Element)
	require.Equal(t, ContentSimple, nameEl.ContentKind)
	require.Len(t, nameEl.Constraints, 1)
	require.Equal(t, Enumeration, nameEl.Constraints[0].Kind)
	require.Equal(t, []string{"Engineering", "Marketing", "Sales", "HR", "Finance"}, nameEl.Constraints[0].Values)
}

func TestCompileRecursiveElement(t *testing.T) {
	const xsd = `<?xml version="1.0"?>
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema">
  <xs:element name="node">
    <xs:complexType>
      <xs:sequence>
        <xs:element ref="node" minOccurs="0" maxOccurs="unbounded"/>
      </xs:sequence>
    </xs:complexType>
  </xs:element>
</xs:schema>`
	model, err := CompileBytes([]byte(xsd), CompileOptions{})
	require.NoError(t, err)

	root := model.Element(model.Root)
	require.Equal(t, "node", root.Name)
	child := root.Content.Members[0]
	require.Equal(t, model.Root, child.Element)
	require.EqualValues(t, 0, child.MinOccurs)
	require.Equal(t, Unbounded, child.MaxOccurs)
}

func TestCompileRejectsNonSchemaRoot(t *testing.T) {
	_, err := CompileBytes([]byte(`<notASchema/>`), CompileOptions{})
	require.Error(t, err)
	var structErr *StructureError
	require.ErrorAs(t, err, &structErr)
}

func TestCompileFacetInconsistencyWarns(t *testing.T) {
	const xsd = `<?xml version="1.0"?>
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema">
  <xs:simpleType name="badRange">
    <xs:restriction base="xs:int">
      <xs:minInclusive value="10"/>
      <xs:maxInclusive value="1"/>
    </xs:restriction>
  </xs:simpleType>
  <xs:element name="root" type="badRange"/>
</xs:schema>`
	model, err := CompileBytes([]byte(xsd), CompileOptions{})
	require.NoError(t, err)
	require.NotEmpty(t, model.Diagnostics)
	require.Equal(t, DiagWarning, model.Diagnostics[0].Severity)
}
