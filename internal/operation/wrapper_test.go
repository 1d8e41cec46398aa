package operation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/KilimcininKorOglu/obacore/internal/ldap"
)

// codeOverride changes only the reported result code.
type codeOverride struct {
	*Wrapper
}

func (c codeOverride) ResultCode() ldap.ResultCode { return ldap.ResultBusy }

// typedWrapper keeps the typed interface while wrapping.
type typedWrapper struct {
	AddOperation
}

func (w typedWrapper) Unwrap() Operation { return w.AddOperation }

func TestWrapperForwardsEverything(t *testing.T) {
	op := NewAdd(header(&fakeConn{id: 9}, 5), "cn=bob,dc=com", nil)
	w := NewWrapper(op)

	w.SetResultCode(ldap.ResultSuccess)
	w.SetAttachment("k", "v")

	assert.Equal(t, ldap.ResultSuccess, op.ResultCode())
	v, ok := op.Attachment("k")
	assert.True(t, ok)
	assert.Equal(t, "v", v)
	assert.Equal(t, op.MessageID(), w.MessageID())
	assert.Equal(t, TypeAdd, w.Type())
}

func TestWrapperOverridesSubset(t *testing.T) {
	op := NewAdd(header(nil, 5), "cn=bob,dc=com", nil)
	op.SetResultCode(ldap.ResultSuccess)

	w := codeOverride{NewWrapper(op)}
	assert.Equal(t, ldap.ResultBusy, w.ResultCode())
	assert.Equal(t, ldap.ResultSuccess, op.ResultCode())
	assert.Equal(t, op.Key(), w.Key())
}

func TestEqualThroughNestedWrappers(t *testing.T) {
	conn := &fakeConn{id: 1}
	op := NewAdd(header(conn, 5), "cn=bob,dc=com", nil)

	var nested Operation = op
	for i := 0; i < 5; i++ {
		nested = NewWrapper(nested)
	}
	typed := typedWrapper{op}

	assert.True(t, Equal(op, nested))
	assert.True(t, Equal(nested, op))
	assert.True(t, Equal(typed, nested))
	assert.Equal(t, op.Key(), nested.Key())

	set := map[Key]bool{op.Key(): true}
	assert.True(t, set[nested.Key()])

	other := NewAdd(header(conn, 6), "cn=bob,dc=com", nil)
	assert.False(t, Equal(op, other))

	sameIDOtherConn := NewAdd(header(&fakeConn{id: 2}, 5), "cn=bob,dc=com", nil)
	assert.False(t, Equal(op, sameIDOtherConn))

	assert.True(t, Equal(nil, nil))
	assert.False(t, Equal(op, nil))
}

func TestInnermost(t *testing.T) {
	op := NewDelete(header(nil, 1), "cn=x")
	wrapped := NewWrapper(NewWrapper(typedWrapperDelete{op}))

	assert.Same(t, op, Innermost(wrapped))
	assert.Same(t, op, Innermost(op))
}

type typedWrapperDelete struct {
	DeleteOperation
}

func (w typedWrapperDelete) Unwrap() Operation { return w.DeleteOperation }

func TestWrapperKeepsOnlyTheBaseInterface(t *testing.T) {
	op := NewAdd(header(nil, 5), "cn=bob,dc=com", nil)

	var plain Operation = NewWrapper(op)
	_, ok := plain.(AddOperation)
	assert.False(t, ok)
	add, ok := Innermost(plain).(AddOperation)
	assert.True(t, ok)
	assert.Equal(t, op.RawEntryDN(), add.RawEntryDN())

	var typed Operation = typedWrapper{op}
	_, ok = typed.(AddOperation)
	assert.True(t, ok)
}
