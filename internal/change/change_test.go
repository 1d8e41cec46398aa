package change

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/KilimcininKorOglu/obacore/internal/dn"
	"github.com/KilimcininKorOglu/obacore/internal/ldap"
	"github.com/KilimcininKorOglu/obacore/internal/operation"
)

func newEntry(s string) *ldap.Entry {
	return ldap.NewEntry(dn.MustParse(s))
}

func TestEventDN(t *testing.T) {
	assert.Equal(t, "cn=new,dc=com", Event{Old: newEntry("cn=old,dc=com"), New: newEntry("cn=new,dc=com")}.DN().String())
	assert.Equal(t, "cn=old,dc=com", Event{Old: newEntry("cn=old,dc=com")}.DN().String())
	assert.True(t, Event{}.DN().IsRoot())
}

func TestFromOperation(t *testing.T) {
	h := operation.Header{OperationID: 1}

	add := operation.NewAdd(h, "cn=a,dc=com", []ldap.Attribute{{Type: "cn", Values: []string{"a"}}})
	add.SetEntryDN(dn.MustParse("cn=a,dc=com"))
	ev, ok := FromOperation(add)
	require.True(t, ok)
	assert.Equal(t, Add, ev.Kind)
	assert.Equal(t, Post, ev.Phase)
	assert.Nil(t, ev.Old)
	assert.Equal(t, "a", ev.New.GetFirstAttribute("cn"))

	del := operation.NewDelete(h, "cn=a,dc=com")
	_, ok = FromOperation(del)
	assert.False(t, ok, "no pre-image recorded")
	del.SetDeletedEntry(newEntry("cn=a,dc=com"))
	ev, ok = FromOperation(del)
	require.True(t, ok)
	assert.Equal(t, Delete, ev.Kind)

	mod := operation.NewModify(h, "cn=a,dc=com", nil)
	mod.SetEntries(newEntry("cn=a,dc=com"), newEntry("cn=a,dc=com"))
	ev, ok = FromOperation(operation.NewWrapper(mod))
	assert.False(t, ok, "untyped wrapper hides the modify images")
	ev, ok = FromOperation(mod)
	require.True(t, ok)
	assert.Equal(t, Modify, ev.Kind)

	mdn := operation.NewModifyDN(h, "cn=a,dc=com", "cn=b", true, "")
	mdn.SetEntries(newEntry("cn=a,dc=com"), newEntry("cn=b,dc=com"))
	ev, ok = FromOperation(mdn)
	require.True(t, ok)
	assert.Equal(t, Rename, ev.Kind)
	assert.Equal(t, "cn=b,dc=com", ev.DN().String())

	_, ok = FromOperation(operation.NewBind(h, "", ""))
	assert.False(t, ok)
}

func TestNotifierPreVetoStopsDelivery(t *testing.T) {
	n := NewNotifier(nil)
	veto := errors.New("veto")
	var calls []string

	n.Register(ListenerFunc(func(context.Context, Event) error {
		calls = append(calls, "first")
		return veto
	}))
	n.Register(ListenerFunc(func(context.Context, Event) error {
		calls = append(calls, "second")
		return nil
	}))

	err := n.Notify(context.Background(), Event{Kind: Add, Phase: Pre, New: newEntry("cn=a,dc=com")})
	assert.ErrorIs(t, err, veto)
	assert.Equal(t, []string{"first"}, calls)
}

func TestNotifierPostIsolatesFailures(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	n := NewNotifier(zap.New(core))
	var calls []string

	n.Register(ListenerFunc(func(context.Context, Event) error {
		calls = append(calls, "failing")
		return errors.New("disk full")
	}))
	n.Register(ListenerFunc(func(context.Context, Event) error {
		calls = append(calls, "panicking")
		panic("boom")
	}))
	n.Register(ListenerFunc(func(context.Context, Event) error {
		calls = append(calls, "healthy")
		return nil
	}))

	err := n.Notify(context.Background(), Event{Kind: Delete, Phase: Post, Old: newEntry("cn=a,dc=com")})
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 2)
	assert.Equal(t, []string{"failing", "panicking", "healthy"}, calls)
	assert.Equal(t, 2, logs.FilterMessage("Change listener failed").Len())
}

func TestNotifierDeregister(t *testing.T) {
	n := NewNotifier(nil)
	count := 0
	id := n.Register(ListenerFunc(func(context.Context, Event) error {
		count++
		return nil
	}))
	require.Equal(t, 1, n.Len())

	require.NoError(t, n.Notify(context.Background(), Event{Phase: Post}))
	assert.True(t, n.Deregister(id))
	assert.False(t, n.Deregister(id))
	require.NoError(t, n.Notify(context.Background(), Event{Phase: Post}))
	assert.Equal(t, 1, count)
}

func TestKindAndPhaseStrings(t *testing.T) {
	assert.Equal(t, "rename", Rename.String())
	assert.Equal(t, "unknown(9)", Kind(9).String())
	assert.Equal(t, "pre", Pre.String())
	assert.Equal(t, "post", Post.String())
}
