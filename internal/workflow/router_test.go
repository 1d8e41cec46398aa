package workflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KilimcininKorOglu/obacore/internal/dn"
	"github.com/KilimcininKorOglu/obacore/internal/ldap"
	"github.com/KilimcininKorOglu/obacore/internal/operation"
	"github.com/KilimcininKorOglu/obacore/internal/plugin"
)

type recordingBackend struct {
	id    string
	calls []string
	err   error
}

func (b *recordingBackend) ID() string { return b.id }

func (b *recordingBackend) record(name string) error {
	b.calls = append(b.calls, name)
	return b.err
}

func (b *recordingBackend) Add(context.Context, operation.AddOperation) error {
	return b.record("add")
}

func (b *recordingBackend) Bind(context.Context, operation.BindOperation) error {
	return b.record("bind")
}

func (b *recordingBackend) Compare(_ context.Context, op operation.CompareOperation) error {
	op.SetResultCode(ldap.ResultCompareTrue)
	return b.record("compare")
}

func (b *recordingBackend) Delete(context.Context, operation.DeleteOperation) error {
	return b.record("delete")
}

func (b *recordingBackend) Modify(context.Context, operation.ModifyOperation) error {
	return b.record("modify")
}

func (b *recordingBackend) ModifyDN(context.Context, operation.ModifyDNOperation) error {
	return b.record("modifydn")
}

func (b *recordingBackend) Search(context.Context, operation.SearchOperation) error {
	return b.record("search")
}

func newRouter(t *testing.T, plugins *plugin.Pipeline) (*Router, *recordingBackend, *recordingBackend) {
	t.Helper()
	r := NewRouter(plugins, nil)
	com := &recordingBackend{id: "com"}
	people := &recordingBackend{id: "people"}
	require.NoError(t, r.RegisterBackend(dn.MustParse("dc=example,dc=com"), com))
	require.NoError(t, r.RegisterBackend(dn.MustParse("ou=people,dc=example,dc=com"), people))
	return r, com, people
}

func TestRegisterBackendTwice(t *testing.T) {
	r, com, _ := newRouter(t, nil)
	err := r.RegisterBackend(dn.MustParse("DC=Example,DC=Com"), com)
	assert.ErrorIs(t, err, ErrNamingContextExists)

	assert.Len(t, r.NamingContexts(), 2)
	require.NoError(t, r.DeregisterBackend(dn.MustParse("dc=example,dc=com")))
	assert.ErrorIs(t, r.DeregisterBackend(dn.MustParse("dc=example,dc=com")), ErrNoSuchNamingContext)
}

func TestBackendForPicksDeepestNamingContext(t *testing.T) {
	r, com, people := newRouter(t, nil)

	tests := []struct {
		target string
		want   Backend
		found  bool
	}{
		{"cn=bob,ou=people,dc=example,dc=com", people, true},
		{"ou=people,dc=example,dc=com", people, true},
		{"ou=groups,dc=example,dc=com", com, true},
		{"dc=example,dc=com", com, true},
		{"dc=other,dc=org", nil, false},
		{"", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			b, _, ok := r.BackendFor(dn.MustParse(tt.target))
			assert.Equal(t, tt.found, ok)
			if tt.found {
				assert.Same(t, tt.want, b)
			}
		})
	}
}

func TestExecuteRecordsLocalOperation(t *testing.T) {
	r, _, people := newRouter(t, nil)
	op := operation.NewDelete(operation.Header{OperationID: 1}, "cn=bob,ou=people,dc=example,dc=com")

	executed := r.Execute(context.Background(), op, dn.MustParse("cn=bob,ou=people,dc=example,dc=com"))
	require.True(t, executed)
	assert.Equal(t, ldap.ResultSuccess, op.ResultCode())
	assert.Equal(t, []string{"delete"}, people.calls)

	locals := operation.LocalBackendOperations(op)
	require.Len(t, locals, 1)
	local, ok := locals[0].(*LocalDelete)
	require.True(t, ok)
	assert.Same(t, people, local.Backend())
	assert.True(t, operation.Equal(op, local))
	assert.Same(t, op, operation.Innermost(local))
}

func TestExecuteWithoutBackend(t *testing.T) {
	r, _, _ := newRouter(t, nil)
	op := operation.NewAdd(operation.Header{OperationID: 1}, "cn=x,dc=org", nil)

	executed := r.Execute(context.Background(), op, dn.MustParse("cn=x,dc=org"))
	assert.False(t, executed)
	assert.Equal(t, ldap.ResultNoSuchObject, op.ResultCode())
	assert.Empty(t, operation.LocalBackendOperations(op))
}

func TestExecuteBackendError(t *testing.T) {
	r, com, _ := newRouter(t, nil)
	com.err = ldap.NewDirectoryError(ldap.ResultEntryAlreadyExists, "exists")
	op := operation.NewAdd(operation.Header{OperationID: 1}, "cn=x,dc=example,dc=com", nil)

	assert.True(t, r.Execute(context.Background(), op, dn.MustParse("cn=x,dc=example,dc=com")))
	assert.Equal(t, ldap.ResultEntryAlreadyExists, op.ResultCode())
	assert.Equal(t, "exists", op.ErrorMessage())
}

func TestExecuteKeepsBackendResultCode(t *testing.T) {
	r, _, _ := newRouter(t, nil)
	op := operation.NewCompare(operation.Header{OperationID: 1}, "dc=example,dc=com", "dc", "example")

	assert.True(t, r.Execute(context.Background(), op, dn.MustParse("dc=example,dc=com")))
	assert.Equal(t, ldap.ResultCompareTrue, op.ResultCode())
}

func TestExecuteRunsOperationPlugins(t *testing.T) {
	pipeline := plugin.NewPipeline(nil)
	var phases []string
	pipeline.Register(plugin.PhasePreOperation, plugin.Func("pre", func(_ context.Context, p plugin.Phase, op operation.Operation) bool {
		_, isLocal := op.(LocalOperation)
		assert.True(t, isLocal)
		phases = append(phases, p.String())
		return true
	}))
	pipeline.Register(plugin.PhasePostOperation, plugin.Func("post", func(_ context.Context, p plugin.Phase, _ operation.Operation) bool {
		phases = append(phases, p.String())
		return true
	}))

	r, com, _ := newRouter(t, pipeline)
	op := operation.NewModify(operation.Header{OperationID: 1}, "dc=example,dc=com", nil)
	assert.True(t, r.Execute(context.Background(), op, dn.MustParse("dc=example,dc=com")))
	assert.Equal(t, []string{"pre-operation", "post-operation"}, phases)
	assert.Equal(t, []string{"modify"}, com.calls)
}

func TestPreOperationVetoSkipsBackend(t *testing.T) {
	pipeline := plugin.NewPipeline(nil)
	pipeline.Register(plugin.PhasePreOperation, plugin.Func("veto", func(context.Context, plugin.Phase, operation.Operation) bool {
		return false
	}))

	r, com, _ := newRouter(t, pipeline)
	op := operation.NewModify(operation.Header{OperationID: 1}, "dc=example,dc=com", nil)
	assert.True(t, r.Execute(context.Background(), op, dn.MustParse("dc=example,dc=com")))
	assert.Equal(t, ldap.ResultUnwillingToPerform, op.ResultCode())
	assert.Empty(t, com.calls)
	assert.Len(t, operation.LocalBackendOperations(op), 1)
}

func TestCancelBeforeBackend(t *testing.T) {
	r, com, _ := newRouter(t, nil)
	op := operation.NewModify(operation.Header{OperationID: 1}, "dc=example,dc=com", nil)
	op.Abort(operation.CancelRequest{Reason: "abandon"})

	assert.True(t, r.Execute(context.Background(), op, dn.MustParse("dc=example,dc=com")))
	assert.Equal(t, ldap.ResultCanceled, op.ResultCode())
	assert.Empty(t, com.calls)
}

func TestExtendedHandlers(t *testing.T) {
	r := NewRouter(nil, nil)
	r.RegisterExtendedHandler("1.3.6.1.4.1.4203.1.11.3", ExtendedHandlerFunc(func(_ context.Context, op operation.ExtendedOperation) error {
		op.SetResponseValue([]byte("dn:cn=admin"))
		return nil
	}))

	whoami := operation.NewExtended(operation.Header{OperationID: 1}, "1.3.6.1.4.1.4203.1.11.3", nil)
	assert.True(t, r.Execute(context.Background(), whoami, dn.DN{}))
	assert.Equal(t, ldap.ResultSuccess, whoami.ResultCode())
	assert.Equal(t, "dn:cn=admin", string(whoami.ResponseValue()))
	assert.Len(t, operation.LocalBackendOperations(whoami), 1)

	unknown := operation.NewExtended(operation.Header{OperationID: 2}, "1.2.3", nil)
	assert.False(t, r.Execute(context.Background(), unknown, dn.DN{}))
	assert.Equal(t, ldap.ResultProtocolError, unknown.ResultCode())
}
