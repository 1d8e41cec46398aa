package ldap

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KilimcininKorOglu/obacore/internal/dn"
)

func newPerson(t *testing.T) *Entry {
	t.Helper()
	e := NewEntry(dn.MustParse("cn=bob,ou=people,dc=example,dc=com"))
	e.SetAttribute("objectClass", "top", "person")
	e.SetAttribute("cn", "bob")
	e.SetAttribute("sn", "Smith")
	return e
}

func TestEntryAttributesAreCaseInsensitive(t *testing.T) {
	e := newPerson(t)

	assert.Equal(t, []string{"top", "person"}, e.GetAttribute("OBJECTCLASS"))
	assert.Equal(t, "Smith", e.GetFirstAttribute("SN"))
	assert.True(t, e.HasAttribute("cn"))
	assert.False(t, e.HasAttribute("mail"))
	assert.Empty(t, e.GetFirstAttribute("mail"))
	assert.True(t, e.HasObjectClass("Person"))
	assert.False(t, e.HasObjectClass("groupOfNames"))
}

func TestEntryAddAttributeValueSkipsDuplicates(t *testing.T) {
	e := newPerson(t)
	e.AddAttributeValue("mail", "bob@example.com")
	e.AddAttributeValue("MAIL", "BOB@example.com")

	assert.Equal(t, []string{"bob@example.com"}, e.GetAttribute("mail"))
}

func TestEntryDeleteAttributeValue(t *testing.T) {
	e := newPerson(t)
	e.SetAttribute("mail", "a@example.com", "b@example.com")

	assert.True(t, e.DeleteAttributeValue("mail", "A@example.com"))
	assert.Equal(t, []string{"b@example.com"}, e.GetAttribute("mail"))
	assert.False(t, e.DeleteAttributeValue("mail", "missing"))

	assert.True(t, e.DeleteAttributeValue("mail", "b@example.com"))
	assert.False(t, e.HasAttribute("mail"))
	_, present := e.Attributes["mail"]
	assert.False(t, present)
}

func TestEntryDuplicateIsDeep(t *testing.T) {
	e := newPerson(t)
	clone := e.Duplicate()
	clone.AddAttributeValue("sn", "Jones")
	clone.SetAttribute("cn", "alice")

	assert.Equal(t, []string{"Smith"}, e.GetAttribute("sn"))
	assert.Equal(t, []string{"bob"}, e.GetAttribute("cn"))
	assert.Nil(t, (*Entry)(nil).Duplicate())
}

func TestEntryRename(t *testing.T) {
	e := newPerson(t)

	tests := []struct {
		name         string
		deleteOldRDN bool
		wantCN       []string
	}{
		{name: "keep old rdn", deleteOldRDN: false, wantCN: []string{"bob", "robert"}},
		{name: "delete old rdn", deleteOldRDN: true, wantCN: []string{"robert"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			renamed := e.Rename(dn.MustParse("cn=robert,ou=staff,dc=example,dc=com"), tt.deleteOldRDN)

			assert.Equal(t, "cn=robert,ou=staff,dc=example,dc=com", renamed.DN.String())
			assert.Equal(t, tt.wantCN, renamed.GetAttribute("cn"))
			assert.Equal(t, "cn=bob,ou=people,dc=example,dc=com", e.DN.String())
			assert.Equal(t, []string{"bob"}, e.GetAttribute("cn"))
		})
	}
}

func TestEntryRenameSameRDNValueKeepsIt(t *testing.T) {
	e := newPerson(t)
	moved := e.Rename(dn.MustParse("cn=bob,ou=staff,dc=example,dc=com"), true)
	assert.Equal(t, []string{"bob"}, moved.GetAttribute("cn"))
}

func TestEntryFromAttributes(t *testing.T) {
	e := EntryFromAttributes(dn.MustParse("cn=g,dc=com"), []Attribute{
		{Type: "objectClass", Values: []string{"groupOfNames"}},
		{Type: "member", Values: []string{"cn=a,dc=com", "cn=b,dc=com"}},
	})

	assert.True(t, e.HasObjectClass("groupofnames"))
	assert.Len(t, e.GetAttribute("member"), 2)
	assert.Equal(t, []string{"member", "objectclass"}, e.AttributeNames())
}

func TestApplyModifications(t *testing.T) {
	tests := []struct {
		name     string
		mods     []Modification
		wantCode ResultCode
		check    func(t *testing.T, e *Entry)
	}{
		{
			name: "add value",
			mods: []Modification{NewModification(ModAdd, "mail", "bob@example.com")},
			check: func(t *testing.T, e *Entry) {
				assert.Equal(t, []string{"bob@example.com"}, e.GetAttribute("mail"))
			},
		},
		{
			name:     "add existing value",
			mods:     []Modification{NewModification(ModAdd, "sn", "smith")},
			wantCode: ResultAttributeOrValueExists,
		},
		{
			name: "delete whole attribute",
			mods: []Modification{NewModification(ModDelete, "sn")},
			check: func(t *testing.T, e *Entry) {
				assert.False(t, e.HasAttribute("sn"))
			},
		},
		{
			name:     "delete missing attribute",
			mods:     []Modification{NewModification(ModDelete, "mail")},
			wantCode: ResultNoSuchAttribute,
		},
		{
			name:     "delete missing value",
			mods:     []Modification{NewModification(ModDelete, "sn", "Jones")},
			wantCode: ResultNoSuchAttribute,
		},
		{
			name: "replace",
			mods: []Modification{NewModification(ModReplace, "sn", "Jones", "Brown")},
			check: func(t *testing.T, e *Entry) {
				assert.Equal(t, []string{"Jones", "Brown"}, e.GetAttribute("sn"))
			},
		},
		{
			name: "replace with nothing removes",
			mods: []Modification{NewModification(ModReplace, "sn")},
			check: func(t *testing.T, e *Entry) {
				assert.False(t, e.HasAttribute("sn"))
			},
		},
		{
			name:     "rdn value is protected",
			mods:     []Modification{NewModification(ModDelete, "cn", "bob")},
			wantCode: ResultNotAllowedOnRDN,
		},
		{
			name:     "unknown type",
			mods:     []Modification{{Type: ModificationType(9), Attribute: "sn"}},
			wantCode: ResultProtocolError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newPerson(t)
			out, err := ApplyModifications(e, tt.mods)
			if tt.wantCode != ResultSuccess {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, ResultCodeOf(err, ResultOther))
				return
			}
			require.NoError(t, err)
			tt.check(t, out)
			assert.Equal(t, []string{"Smith"}, e.GetAttribute("sn"), "original entry must not change")
		})
	}
}

func TestScopeContains(t *testing.T) {
	base := dn.MustParse("ou=people,dc=example,dc=com")
	self := base
	child := dn.MustParse("cn=bob,ou=people,dc=example,dc=com")
	grandchild := dn.MustParse("cn=x,cn=bob,ou=people,dc=example,dc=com")
	outside := dn.MustParse("ou=groups,dc=example,dc=com")

	tests := []struct {
		scope Scope
		want  [4]bool
	}{
		{ScopeBaseObject, [4]bool{true, false, false, false}},
		{ScopeSingleLevel, [4]bool{false, true, false, false}},
		{ScopeWholeSubtree, [4]bool{true, true, true, false}},
		{ScopeSubordinateSubtree, [4]bool{false, true, true, false}},
	}

	for _, tt := range tests {
		t.Run(tt.scope.String(), func(t *testing.T) {
			got := [4]bool{
				tt.scope.Contains(base, self),
				tt.scope.Contains(base, child),
				tt.scope.Contains(base, grandchild),
				tt.scope.Contains(base, outside),
			}
			assert.Equal(t, tt.want, got)
		})
	}

	assert.False(t, Scope(7).Valid())
	assert.False(t, Scope(7).Contains(base, self))
}

func TestDirectoryError(t *testing.T) {
	cause := errors.New("disk full")
	err := fmt.Errorf("add failed: %w", WrapDirectoryError(ResultOther, "write entry", cause))

	assert.Equal(t, ResultOther, ResultCodeOf(err, ResultSuccess))
	assert.Equal(t, "write entry", MessageOf(err))
	assert.ErrorIs(t, err, cause)

	plain := errors.New("boom")
	assert.Equal(t, ResultOperationsError, ResultCodeOf(plain, ResultOperationsError))
	assert.Equal(t, "boom", MessageOf(plain))
}

func TestResultCodeString(t *testing.T) {
	assert.Equal(t, "Undefined", ResultUndefined.String())
	assert.Equal(t, "Success", ResultSuccess.String())
	assert.Equal(t, "Unknown(9999)", ResultCode(9999).String())
	assert.True(t, ResultCompareTrue.IsSuccess())
	assert.False(t, ResultCanceled.IsSuccess())
	assert.True(t, ResultCanceled.IsError())
	assert.False(t, ResultReferral.IsError())
}

func TestFindControl(t *testing.T) {
	controls := []Control{
		{OID: "1.2.3"},
		{OID: "2.16.840.1.113730.3.4.3", Criticality: true},
	}
	c, ok := FindControl(controls, "2.16.840.1.113730.3.4.3")
	require.True(t, ok)
	assert.True(t, c.Criticality)

	_, ok = FindControl(controls, "9.9")
	assert.False(t, ok)
}
