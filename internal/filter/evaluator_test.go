package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KilimcininKorOglu/obacore/internal/dn"
	"github.com/KilimcininKorOglu/obacore/internal/ldap"
)

// Helper function to create a test entry
func createTestEntry(d string, attrs map[string][]string) *ldap.Entry {
	entry := ldap.NewEntry(dn.MustParse(d))
	for name, values := range attrs {
		entry.SetAttribute(name, values...)
	}
	return entry
}

func aliceEntry() *ldap.Entry {
	return createTestEntry("uid=alice,ou=people,dc=example,dc=com", map[string][]string{
		"uid":         {"alice"},
		"cn":          {"Alice Smith"},
		"mail":        {"alice@example.com"},
		"objectClass": {"person", "inetOrgPerson"},
		"age":         {"30"},
	})
}

func TestEvaluateNilInputs(t *testing.T) {
	e := NewEvaluator()
	entry := aliceEntry()

	assert.False(t, e.Evaluate(nil, entry))
	assert.False(t, e.Evaluate(NewPresentFilter("uid"), nil))
	assert.False(t, e.Evaluate(nil, nil))

	var f *Filter
	assert.True(t, f.Matches(entry), "nil filter matches everything")
	assert.False(t, f.Matches(nil))
}

func TestEvaluateFilterStrings(t *testing.T) {
	entry := aliceEntry()

	tests := []struct {
		filter   string
		expected bool
	}{
		{"(uid=alice)", true},
		{"(uid=ALICE)", true},
		{"(UID=alice)", true},
		{"(uid=bob)", false},
		{"(description=test)", false},
		{"(objectClass=inetOrgPerson)", true},
		{"(objectClass=groupOfNames)", false},
		{"(mail=*)", true},
		{"(telephoneNumber=*)", false},
		{"(cn=Alice*)", true},
		{"(cn=*smith)", true},
		{"(cn=*ice*)", true},
		{"(cn=Bob*)", false},
		{"(mail=alice*example*com)", true},
		{"(age>=25)", true},
		{"(age<=25)", false},
		{"(cn~=alice  smith)", true},
		{"(&(objectClass=person)(uid=alice))", true},
		{"(&(objectClass=person)(uid=bob))", false},
		{"(|(uid=bob)(uid=alice))", true},
		{"(|(uid=bob)(uid=carol))", false},
		{"(!(uid=bob))", true},
		{"(!(uid=alice))", false},
		{"(&(|(uid=bob)(cn=Alice*))(!(mail=*@other.org)))", true},
		{"(uid:caseExactMatch:=alice)", true},
		{"(uid:caseExactMatch:=ALICE)", false},
		{"(ou:dn:=people)", true},
		{"(ou:=people)", false},
		{"(:dn:caseIgnoreMatch:=example)", true},
		{"uid=alice", true},
	}

	for _, tt := range tests {
		t.Run(tt.filter, func(t *testing.T) {
			f, err := Parse(tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, f.Matches(entry))
		})
	}
}

func TestEvaluateEscapedValue(t *testing.T) {
	entry := createTestEntry("cn=a,dc=com", map[string][]string{
		"description": {"a*b(c)"},
	})

	f, err := Parse(`(description=a\2ab\28c\29)`)
	require.NoError(t, err)
	require.Equal(t, FilterEquality, f.Type)
	assert.Equal(t, "a*b(c)", f.Value)
	assert.True(t, f.Matches(entry))
}

func TestEvaluateEmptyComposites(t *testing.T) {
	e := NewEvaluator()
	entry := aliceEntry()

	assert.True(t, e.Evaluate(NewAndFilter(), entry))
	assert.False(t, e.Evaluate(NewOrFilter(), entry))
	assert.False(t, e.Evaluate(&Filter{Type: FilterNot}, entry))
	assert.False(t, e.Evaluate(&Filter{Type: FilterSubstring, Attribute: "cn"}, entry))
	assert.False(t, e.Evaluate(&Filter{Type: FilterType(42)}, entry))
}

func TestParseErrors(t *testing.T) {
	tests := []string{
		"",
		"   ",
		"()",
		"(uid=alice",
		"(&(uid=alice)",
	}

	for _, input := range tests {
		t.Run(input, func(t *testing.T) {
			_, err := Parse(input)
			assert.Error(t, err)
		})
	}
}

func TestParseStructure(t *testing.T) {
	f, err := Parse("(&(objectClass=person)(|(cn=a*b*c)(sn>=x))(!(uid=*)))")
	require.NoError(t, err)

	require.Equal(t, FilterAnd, f.Type)
	require.Len(t, f.Children, 3)
	assert.Equal(t, FilterEquality, f.Children[0].Type)

	or := f.Children[1]
	require.Equal(t, FilterOr, or.Type)
	sub := or.Children[0]
	require.Equal(t, FilterSubstring, sub.Type)
	assert.Equal(t, "a", sub.Substring.Initial)
	assert.Equal(t, []string{"b"}, sub.Substring.Any)
	assert.Equal(t, "c", sub.Substring.Final)
	assert.Equal(t, FilterGreaterOrEqual, or.Children[1].Type)

	not := f.Children[2]
	require.Equal(t, FilterNot, not.Type)
	assert.Equal(t, FilterPresent, not.Child.Type)
	assert.Equal(t, "uid", not.Child.Attribute)
}

func TestFilterStringRoundTrip(t *testing.T) {
	inputs := []string{
		"(uid=alice)",
		"(&(objectClass=person)(!(cn=*smith)))",
		"(|(age>=3)(age<=1)(cn~=x))",
		"(cn=a*b*c)",
		"(ou:dn:2.5.13.2:=people)",
		`(description=a\2ab)`,
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			f := MustParse(input)
			again, err := Parse(f.String())
			require.NoError(t, err)
			assert.Equal(t, f, again)
		})
	}
}
