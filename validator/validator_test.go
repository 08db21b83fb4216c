package validator

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agentflare-ai/xmlschemafix/errmodel"
	"github.com/agentflare-ai/xmlschemafix/schema"
)

func compile(t *testing.T, xsd string) *schema.Model {
	t.Helper()
	model, err := schema.CompileBytes([]byte(xsd), schema.CompileOptions{})
	require.NoError(t, err)
	return model
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

func TestValidateMissingRequiredElement(t *testing.T) {
	model := compile(t, librarySchema)
	result := Validate([]byte(`<library><books>Dune</books></library>`), model)

	require.False(t, result.Valid)
	require.Condition(t, func() bool {
		for _, e := range result.Errors {
			if e.Kind == errmodel.MissingRequiredElement && e.ElementName == "name" {
				return true
			}
		}
		return false
	})
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

func TestValidateTooManyOccurrences(t *testing.T) {
	model := compile(t, departmentsSchema)
	doc := `<departments>` +
		`<department>a</department><department>b</department><department>c</department>` +
		`<department>d</department><department>e</department><department>f</department>` +
		`</departments>`
	result := Validate([]byte(doc), model)

	require.False(t, result.Valid)
	found := false
	for _, e := range result.Errors {
		if e.Kind == errmodel.TooManyOccurrences {
			found = true
		}
	}
	require.True(t, found)
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

func TestValidateInvalidElementOrder(t *testing.T) {
	model := compile(t, employeeSchema)
	doc := `<employee><age>30</age><email>x@y.z</email><firstName>J</firstName><lastName>D</lastName></employee>`
	result := Validate([]byte(doc), model)

	require.False(t, result.Valid)
	found := false
	for _, e := range result.Errors {
		if e.Kind == errmodel.InvalidElementOrder {
			found = true
		}
	}
	require.True(t, found)
}

func TestValidateDataTypeMismatch(t *testing.T) {
	model := compile(t, employeeSchema)
	doc := `<employee><firstName>J</firstName><lastName>D</lastName><age>not_a_number</age><email>x@y.z</email></employee>`
	result := Validate([]byte(doc), model)

	require.False(t, result.Valid)
	found := false
	for _, e := range result.Errors {
		if e.Kind == errmodel.InvalidDataType && e.ElementName == "age" {
			require.Equal(t, "not_a_number", e.ActualValue)
			found = true
		}
	}
	require.True(t, found)
}

func TestValidateCleanDocumentIsValid(t *testing.T) {
	model := compile(t, librarySchema)
	result := Validate([]byte(`<library><name>City</name><books>Dune</books></library>`), model)
	require.True(t, result.Valid)
	require.Empty(t, result.Errors)
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

func TestValidateNumericRangeViolation(t *testing.T) {
	model := compile(t, ageRangeSchema)
	result := Validate([]byte(`<employee><age>15</age></employee>`), model)

	require.False(t, result.Valid)
	found := false
	for _, e := range result.Errors {
		if e.Kind == errmodel.InvalidValueRange {
			found = true
		}
	}
	require.True(t, found)
}
