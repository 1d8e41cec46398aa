package server

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KilimcininKorOglu/obacore/internal/config"
	"github.com/KilimcininKorOglu/obacore/internal/dn"
	"github.com/KilimcininKorOglu/obacore/internal/filter"
	"github.com/KilimcininKorOglu/obacore/internal/ldap"
	"github.com/KilimcininKorOglu/obacore/internal/operation"
	"github.com/KilimcininKorOglu/obacore/internal/psearch"
)

func (f *fixture) persistentSearch(base, filterStr string, ctrl psearch.RequestControl) *operation.Search {
	return operation.NewSearch(f.header(ctrl.Control()), base, ldap.ScopeWholeSubtree,
		filter.MustParse(filterStr), nil, 0)
}

func changeNotification(t *testing.T, controls []ldap.Control) psearch.EntryChangeNotification {
	t.Helper()
	c, ok := ldap.FindControl(controls, psearch.ControlTypeEntryChangeNotification)
	require.True(t, ok)
	ecn, err := psearch.DecodeEntryChangeNotification(c.Value)
	require.NoError(t, err)
	return ecn
}

func TestPersistentSearchLifecycle(t *testing.T) {
	f := newFixture(t, nil)

	search := f.persistentSearch("ou=people,dc=example,dc=com", "(objectClass=person)",
		psearch.RequestControl{ChangeTypes: psearch.AllChangeTypes, ReturnECs: true})
	f.process(search)

	require.Equal(t, ldap.ResultSuccess, search.ResultCode(), search.ErrorMessage())
	assert.Equal(t, []string{"cn=alice,ou=people,dc=example,dc=com"}, f.conn.EntryDNs(), "initial results")
	assert.False(t, search.ResponseSent(), "an enabled persistent search withholds its result")
	assert.Empty(t, f.conn.Responses())
	assert.Equal(t, 1, f.core.Searches.Count())

	f.process(f.addPerson("cn=bob,ou=people,dc=example,dc=com"))
	f.process(operation.NewAdd(f.header(), "cn=staff,ou=people,dc=example,dc=com", []ldap.Attribute{
		{Type: "objectClass", Values: []string{"groupOfNames"}},
	}))
	f.process(f.addPerson("cn=carol,dc=example,dc=com"))

	entries := f.conn.Entries()
	require.Len(t, entries, 2, "only the person added in scope is delivered")
	assert.Equal(t, "cn=bob,ou=people,dc=example,dc=com", entries[1].Entry.DN.String())
	assert.Equal(t, psearch.ChangeTypeAdd, changeNotification(t, entries[1].Controls).ChangeType)

	rename := operation.NewModifyDN(f.header(), "cn=carol,dc=example,dc=com", "cn=carol", true, "ou=people,dc=example,dc=com")
	f.process(rename)
	require.Equal(t, ldap.ResultSuccess, rename.ResultCode(), rename.ErrorMessage())

	entries = f.conn.Entries()
	require.Len(t, entries, 3, "a rename into scope is delivered once")
	ecn := changeNotification(t, entries[2].Controls)
	assert.Equal(t, psearch.ChangeTypeModDN, ecn.ChangeType)
	assert.Equal(t, "cn=carol,dc=example,dc=com", ecn.PreviousDN)

	assert.Equal(t, 1, f.core.Processor.ConnectionClosed(f.conn.ID))
	assert.Zero(t, f.core.Searches.Count())

	f.process(f.addPerson("cn=dave,ou=people,dc=example,dc=com"))
	assert.Len(t, f.conn.Entries(), 3)
}

func TestPersistentSearchChangesOnly(t *testing.T) {
	f := newFixture(t, nil)

	search := f.persistentSearch("dc=example,dc=com", "(objectClass=*)",
		psearch.RequestControl{ChangeTypes: psearch.ChangeTypeDelete, ChangesOnly: true})
	f.process(search)
	require.Equal(t, ldap.ResultSuccess, search.ResultCode())
	assert.Empty(t, f.conn.Entries())

	f.process(f.addPerson("cn=bob,ou=people,dc=example,dc=com"))
	assert.Empty(t, f.conn.Entries(), "adds are not followed")

	f.process(operation.NewDelete(f.header(), "cn=bob,ou=people,dc=example,dc=com"))
	require.Len(t, f.conn.Entries(), 1)
	assert.Nil(t, f.conn.Entries()[0].Controls, "no notification control unless requested")
}

func TestPersistentSearchCancel(t *testing.T) {
	f := newFixture(t, nil)

	search := f.persistentSearch("dc=example,dc=com", "(objectClass=*)",
		psearch.RequestControl{ChangeTypes: psearch.AllChangeTypes, ChangesOnly: true})
	f.process(search)
	require.Equal(t, 1, f.core.Searches.Count())

	res := f.core.Processor.Cancel(context.Background(), search, operation.CancelRequest{NotifyOriginalRequestor: true})
	assert.Equal(t, ldap.ResultCanceled, res.Code)
	assert.Zero(t, f.core.Searches.Count())
	assert.Equal(t, ldap.ResultCanceled, search.ResultCode())
	assert.True(t, search.ResponseSent())
	assert.Len(t, f.conn.Responses(), 1)
}

func TestPersistentSearchAdmission(t *testing.T) {
	f := newFixture(t, func(c *config.Config) {
		c.PersistentSearch.MaxPersistentSearches = 1
	})
	ctrl := psearch.RequestControl{ChangeTypes: psearch.AllChangeTypes, ChangesOnly: true}

	first := f.persistentSearch("dc=example,dc=com", "(objectClass=*)", ctrl)
	f.process(first)
	require.Equal(t, ldap.ResultSuccess, first.ResultCode())

	second := f.persistentSearch("dc=example,dc=com", "(objectClass=*)", ctrl)
	f.process(second)
	assert.Equal(t, ldap.ResultAdminLimitExceeded, second.ResultCode())
	assert.True(t, second.ResponseSent())
	assert.Empty(t, operation.LocalBackendOperations(second), "refused before the workflow")

	next := config.DefaultConfig()
	next.PersistentSearch.MaxPersistentSearches = 2
	require.NoError(t, f.core.Config.Update(next))

	third := f.persistentSearch("dc=example,dc=com", "(objectClass=*)", ctrl)
	f.process(third)
	assert.Equal(t, ldap.ResultSuccess, third.ResultCode(), "the limit follows configuration updates")
	assert.Equal(t, 2, f.core.Searches.Count())
}

func TestPersistentSearchMalformedControl(t *testing.T) {
	f := newFixture(t, nil)

	op := operation.NewSearch(f.header(ldap.Control{OID: psearch.ControlTypePersistentSearch, Value: []byte{0x01}}),
		"dc=example,dc=com", ldap.ScopeWholeSubtree, filter.MustParse("(objectClass=*)"), nil, 0)
	f.process(op)
	assert.Equal(t, ldap.ResultProtocolError, op.ResultCode())
	assert.Empty(t, operation.LocalBackendOperations(op))
}

func TestPersistentSearchFailedInitialSearch(t *testing.T) {
	f := newFixture(t, nil)

	search := f.persistentSearch("ou=missing,dc=example,dc=com", "(objectClass=*)",
		psearch.RequestControl{ChangeTypes: psearch.AllChangeTypes})
	f.process(search)
	assert.Equal(t, ldap.ResultNoSuchObject, search.ResultCode())
	assert.True(t, search.ResponseSent())
	assert.Zero(t, f.core.Searches.Count(), "never enabled")
}

func TestCoreClose(t *testing.T) {
	f := newFixture(t, nil)

	search := f.persistentSearch("dc=example,dc=com", "(objectClass=*)",
		psearch.RequestControl{ChangeTypes: psearch.AllChangeTypes, ChangesOnly: true})
	f.process(search)
	require.Equal(t, 1, f.core.Searches.Count())

	f.core.Close()
	assert.Equal(t, ldap.ResultUnavailable, search.ResultCode())
	assert.True(t, search.ResponseSent())

	refused := f.persistentSearch("dc=example,dc=com", "(objectClass=*)",
		psearch.RequestControl{ChangeTypes: psearch.AllChangeTypes, ChangesOnly: true})
	f.process(refused)
	assert.Equal(t, ldap.ResultAdminLimitExceeded, refused.ResultCode())
}

func subentryAttrs(spec string) []ldap.Attribute {
	attrs := []ldap.Attribute{
		{Type: "objectClass", Values: []string{"top", "subentry"}},
		{Type: "cn", Values: []string{"policy"}},
	}
	if spec != "" {
		attrs = append(attrs, ldap.Attribute{Type: "subtreeSpecification", Values: []string{spec}})
	}
	return attrs
}

func TestSubentryMaintenance(t *testing.T) {
	f := newFixture(t, nil)

	add := operation.NewAdd(f.header(), "cn=policy,ou=people,dc=example,dc=com", subentryAttrs(`{ minimum 1 }`))
	f.process(add)
	require.Equal(t, ldap.ResultSuccess, add.ResultCode(), add.ErrorMessage())
	assert.Equal(t, 1, f.core.Subentries.Len())
	assert.Len(t, f.core.Subentries.GetSubentries(dn.MustParse("cn=alice,ou=people,dc=example,dc=com")), 1)
	assert.Empty(t, f.core.Subentries.GetSubentries(dn.MustParse("ou=people,dc=example,dc=com")))

	rename := operation.NewModifyDN(f.header(), "ou=people,dc=example,dc=com", "ou=staff", true, "")
	f.process(rename)
	require.Equal(t, ldap.ResultSuccess, rename.ResultCode(), rename.ErrorMessage())

	_, ok := f.core.Subentries.Subentry(dn.MustParse("cn=policy,ou=staff,dc=example,dc=com"))
	assert.True(t, ok, "the subentry moves with its parent")
	assert.Len(t, f.core.Subentries.GetSubentries(dn.MustParse("cn=alice,ou=staff,dc=example,dc=com")), 1)
	assert.Empty(t, f.core.Subentries.GetSubentries(dn.MustParse("cn=alice,ou=people,dc=example,dc=com")))

	del := operation.NewDelete(f.header(), "cn=policy,ou=staff,dc=example,dc=com")
	f.process(del)
	require.Equal(t, ldap.ResultSuccess, del.ResultCode(), del.ErrorMessage())
	assert.Zero(t, f.core.Subentries.Len())
}

func TestSubentryWithInvalidSpecificationIsRejected(t *testing.T) {
	f := newFixture(t, nil)

	add := operation.NewAdd(f.header(), "cn=policy,ou=people,dc=example,dc=com", subentryAttrs(`{ minimum many }`))
	f.process(add)

	assert.Equal(t, ldap.ResultInvalidAttributeSyntax, add.ResultCode())
	assert.Zero(t, f.core.Subentries.Len())
	_, err := f.backend.GetEntry(context.Background(), dn.MustParse("cn=policy,ou=people,dc=example,dc=com"))
	assert.Error(t, err, "the backend never saw the add")
}

func TestSubentryModifyToInvalidSpecificationIsRejected(t *testing.T) {
	f := newFixture(t, nil)

	f.process(operation.NewAdd(f.header(), "cn=policy,ou=people,dc=example,dc=com", subentryAttrs("")))
	require.Equal(t, 1, f.core.Subentries.Len())

	mod := operation.NewModify(f.header(), "cn=policy,ou=people,dc=example,dc=com", []ldap.Modification{
		ldap.NewModification(ldap.ModReplace, "subtreeSpecification", "{ base }"),
	})
	f.process(mod)
	assert.Equal(t, ldap.ResultInvalidAttributeSyntax, mod.ResultCode())

	s, ok := f.core.Subentries.Subentry(dn.MustParse("cn=policy,ou=people,dc=example,dc=com"))
	require.True(t, ok)
	assert.Equal(t, "{ }", s.Specification().String(), "the indexed subentry is unchanged")
}

func TestLoadSubentries(t *testing.T) {
	f := newFixture(t, nil)

	err := f.core.LoadSubentries(
		entry("cn=alice,ou=people,dc=example,dc=com", "objectClass", "person"),
		entry("cn=policy,dc=example,dc=com", "objectClass", "subentry", "subtreeSpecification", `{ base "ou=people" }`),
		entry("cn=broken,dc=example,dc=com", "objectClass", "subentry", "subtreeSpecification", "{"),
	)
	assert.Error(t, err)
	assert.Equal(t, 1, f.core.Subentries.Len())
}

func TestCorePrometheusCollectors(t *testing.T) {
	f := newFixture(t, nil)

	reg := prometheus.NewRegistry()
	for _, c := range f.core.PrometheusCollectors() {
		require.NoError(t, reg.Register(c))
	}
	f.process(f.addPerson("cn=bob,ou=people,dc=example,dc=com"))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make(map[string]bool)
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	assert.True(t, names["obacore_operations_total"])
	assert.True(t, names["obacore_operations_duration_seconds"])
}
