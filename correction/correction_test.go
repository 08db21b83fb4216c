package correction

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agentflare-ai/xmlschemafix/schema"
	"github.com/agentflare-ai/xmlschemafix/tree"
	"github.com/agentflare-ai/xmlschemafix/validator"
)

func run(t *testing.T, xsd, xml string) (*tree.Document, *schema.Model, Result) {
	t.Helper()
	model, err := schema.CompileBytes([]byte(xsd), schema.CompileOptions{})
	require.NoError(t, err)

	before := validator.Validate([]byte(xml), model)
	doc, err := tree.Load([]byte(xml))
	require.NoError(t, err)

	plan := Plan(before.Errors, doc, model)
	result := Execute(doc, plan, model, before)
	return doc, model, result
}

const librarySchema = `<?xml version="1.0"?>
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

func TestFixMissingRequiredElement(t *testing.T) {
	doc, _, result := run(t, librarySchema, `<library><books/></library>`)

	require.True(t, result.Success)
	require.NotNil(t, result.AfterValidation)
	require.True(t, result.AfterValidation.Valid)

	name := doc.FindElement("/library/name")
	require.NotNil(t, name)
}

const departmentsSchema = `<?xml version="1.0"?>
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema">
  <xs:element name="departments">
    <xs:complexType>
      <xs:sequence>
        <xs:element name="department" maxOccurs="5" type="xs:string"/>
      </xs:sequence>
    </xs:complexType>
  </xs:element>
</xs:schema>`

func TestFixCardinalityExcess(t *testing.T) {
	doc := `<departments>` +
		`<department>a</department><department>b</department><department>c</department>` +
		`<department>d</department><department>e</department><department>f</department>` +
		`</departments>`
	d, _, result := run(t, departmentsSchema, doc)

	require.True(t, result.Success)
	require.Equal(t, 1, result.Applied)
	require.Len(t, d.Root().ChildElements(), 5)
}

const employeeSchema = `<?xml version="1.0"?>
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema">
  <xs:element name="employee">
    <xs:complexType>
      <xs:sequence>
        <xs:element name="firstName" type="xs:string"/>
        <xs:element name="lastName" type="xs:string"/>
        <xs:element name="age" type="xs:int"/>
        <xs:element name="email" type="xs:string"/>
      </xs:sequence>
    </xs:complexType>
  </xs:element>
</xs:schema>`

func TestFixOrderingViolation(t *testing.T) {
	doc := `<employee><age>30</age><email>x@y.z</email><firstName>J</firstName><lastName>D</lastName></employee>`
	d, _, result := run(t, employeeSchema, doc)

	require.True(t, result.Success)
	var tags []string
	for _, c := range d.Root().ChildElements() {
		tags = append(tags, c.Tag)
	}
	require.Equal(t, []string{"firstName", "lastName", "age", "email"}, tags)
}

func TestFixDataTypeCoercion(t *testing.T) {
	doc := `<employee><firstName>J</firstName><lastName>D</lastName><age>not_a_number</age><email>x@y.z</email></employee>`
	d, _, result := run(t, employeeSchema, doc)

	require.True(t, result.Success)
	age := d.FindElement("/employee/age")
	require.Equal(t, "0", age.Text())
}

const departmentNameSchema = `<?xml version="1.0"?>
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema">
  <xs:element name="department">
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
</xs:schema>`

func TestFixEnumerationRepair(t *testing.T) {
	d, _, result := run(t, departmentNameSchema, `<department><name>InvalidDepartment</name></department>`)

	require.True(t, result.Success)
	name := d.FindElement("/department/name")
	require.Equal(t, "Engineering", name.Text())
}

const ageRangeSchema = `<?xml version="1.0"?>
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema">
  <xs:element name="employee">
    <xs:complexType>
      <xs:sequence>
        <xs:element name="age">
          <xs:simpleType>
            <xs:restriction base="xs:int">
              <xs:minInclusive value="18"/>
              <xs:maxInclusive value="65"/>
            </xs:restriction>
          </xs:simpleType>
        </xs:element>
      </xs:sequence>
    </xs:complexType>
  </xs:element>
</xs:schema>`

func TestFixNumericRangeClamp(t *testing.T) {
	d, _, result := run(t, ageRangeSchema, `<employee><age>15</age></employee>`)
	require.True(t, result.Success)
	age := d.FindElement("/employee/age")
	require.Equal(t, "18", age.Text())
}

func TestFixNoChangesRequiredOnCleanDocument(t *testing.T) {
	_, _, result := run(t, librarySchema, `<library><name>City</name><books>Dune</books></library>`)
	require.True(t, result.Success)
	require.True(t, result.NoChangesRequired)
	require.Nil(t, result.AfterValidation)
}
