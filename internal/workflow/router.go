// Package workflow resolves the target of an operation to the backend that
// holds it and executes the operation there.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/KilimcininKorOglu/obacore/internal/dn"
	"github.com/KilimcininKorOglu/obacore/internal/dnindex"
	"github.com/KilimcininKorOglu/obacore/internal/ldap"
	"github.com/KilimcininKorOglu/obacore/internal/operation"
	"github.com/KilimcininKorOglu/obacore/internal/plugin"
)

// Errors returned by the router.
var (
	ErrNamingContextExists = errors.New("naming context already registered")
	ErrNoSuchNamingContext = errors.New("no such naming context")
)

// Executor runs an operation against whatever holds its target DN. It
// reports whether a workflow executed; when it did not, no backend-local
// operation exists for op.
type Executor interface {
	Execute(ctx context.Context, op operation.Operation, target dn.DN) bool
}

// Backend holds the entries of one or more naming contexts.
type Backend interface {
	ID() string
	Add(ctx context.Context, op operation.AddOperation) error
	Bind(ctx context.Context, op operation.BindOperation) error
	Compare(ctx context.Context, op operation.CompareOperation) error
	Delete(ctx context.Context, op operation.DeleteOperation) error
	Modify(ctx context.Context, op operation.ModifyOperation) error
	ModifyDN(ctx context.Context, op operation.ModifyDNOperation) error
	Search(ctx context.Context, op operation.SearchOperation) error
}

// ExtendedHandler handles the extended operations of one request OID.
type ExtendedHandler interface {
	HandleExtended(ctx context.Context, op operation.ExtendedOperation) error
}

// ExtendedHandlerFunc adapts a function to the ExtendedHandler interface.
type ExtendedHandlerFunc func(ctx context.Context, op operation.ExtendedOperation) error

// HandleExtended calls f.
func (f ExtendedHandlerFunc) HandleExtended(ctx context.Context, op operation.ExtendedOperation) error {
	return f(ctx, op)
}

// Router is the Executor that maps a target DN to the backend registered at
// the deepest naming context at or above it.
type Router struct {
	logger  *zap.Logger
	plugins *plugin.Pipeline

	contexts *dnindex.Concurrent[Backend]

	mu       sync.RWMutex
	extended map[string]ExtendedHandler
}

// NewRouter creates a router. Pre- and post-operation plugins of plugins
// run on every backend-local operation.
func NewRouter(plugins *plugin.Pipeline, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		logger:   logger.With(zap.String("component", "workflow")),
		plugins:  plugins,
		contexts: dnindex.NewConcurrent[Backend](),
		extended: make(map[string]ExtendedHandler),
	}
}

// RegisterBackend makes b responsible for the naming context base.
func (r *Router) RegisterBackend(base dn.DN, b Backend) error {
	var err error
	r.contexts.Update(func(idx *dnindex.Index[Backend]) {
		if _, exists := idx.Get(base); exists {
			err = fmt.Errorf("%w: %s", ErrNamingContextExists, base)
			return
		}
		idx.Put(base, b)
	})
	if err != nil {
		return err
	}
	r.logger.Info("Registered naming context", zap.Stringer("base", base), zap.String("backend", b.ID()))
	return nil
}

// DeregisterBackend removes the naming context base.
func (r *Router) DeregisterBackend(base dn.DN) error {
	if _, ok := r.contexts.Delete(base); !ok {
		return fmt.Errorf("%w: %s", ErrNoSuchNamingContext, base)
	}
	return nil
}

// RegisterExtendedHandler routes extended requests with the given OID to h.
func (r *Router) RegisterExtendedHandler(oid string, h ExtendedHandler) {
	r.mu.Lock()
	r.extended[oid] = h
	r.mu.Unlock()
}

// BackendFor returns the backend and naming context holding target.
func (r *Router) BackendFor(target dn.DN) (Backend, dn.DN, bool) {
	base, b, ok := r.contexts.Nearest(target)
	return b, base, ok
}

// NamingContexts returns the registered naming contexts in DN order.
func (r *Router) NamingContexts() []dn.DN {
	var out []dn.DN
	r.contexts.View(func(idx *dnindex.Index[Backend]) {
		idx.Ascend(func(d dn.DN, _ Backend) bool {
			out = append(out, d)
			return true
		})
	})
	return out
}

// Execute implements Executor.
func (r *Router) Execute(ctx context.Context, op operation.Operation, target dn.DN) bool {
	if ext, ok := op.(operation.ExtendedOperation); ok {
		return r.executeExtended(ctx, ext)
	}

	b, _, ok := r.BackendFor(target)
	if !ok {
		op.SetResultCode(ldap.ResultNoSuchObject)
		op.SetErrorMessage(fmt.Sprintf("no backend holds %q", target.String()))
		return false
	}

	local := NewLocal(op, b)
	if local == nil {
		op.SetResultCode(ldap.ResultProtocolError)
		op.SetErrorMessage(fmt.Sprintf("unsupported operation type %s", op.Type()))
		return false
	}
	operation.AddLocalBackendOperation(op, local)
	r.run(ctx, local, func() error { return dispatch(ctx, b, local) })
	return true
}

func (r *Router) executeExtended(ctx context.Context, op operation.ExtendedOperation) bool {
	r.mu.RLock()
	h, ok := r.extended[op.RequestOID()]
	r.mu.RUnlock()
	if !ok {
		op.SetResultCode(ldap.ResultProtocolError)
		op.SetErrorMessage(fmt.Sprintf("unsupported extended operation %s", op.RequestOID()))
		return false
	}

	local := NewLocal(op, nil).(*LocalExtended)
	operation.AddLocalBackendOperation(op, local)
	r.run(ctx, local, func() error { return h.HandleExtended(ctx, local) })
	return true
}

// run drives one backend-local operation: pre-operation plugins, a
// cancellation checkpoint, the backend call and post-operation plugins.
func (r *Router) run(ctx context.Context, local LocalOperation, exec func() error) {
	if !r.plugins.Invoke(ctx, plugin.PhasePreOperation, local) {
		return
	}
	if err := local.CheckIfCanceled(false); err != nil {
		local.SetError(err)
		return
	}

	if err := exec(); err != nil {
		local.SetError(err)
		r.logger.Debug("Backend operation failed",
			zap.Stringer("op", local.Key()),
			zap.Stringer("type", local.Type()),
			zap.Error(err))
	} else if local.ResultCode() == ldap.ResultUndefined {
		local.SetResultCode(ldap.ResultSuccess)
	}

	r.plugins.Invoke(ctx, plugin.PhasePostOperation, local)
}

func dispatch(ctx context.Context, b Backend, op LocalOperation) error {
	switch o := op.(type) {
	case *LocalAdd:
		return b.Add(ctx, o)
	case *LocalBind:
		return b.Bind(ctx, o)
	case *LocalCompare:
		return b.Compare(ctx, o)
	case *LocalDelete:
		return b.Delete(ctx, o)
	case *LocalModify:
		return b.Modify(ctx, o)
	case *LocalModifyDN:
		return b.ModifyDN(ctx, o)
	case *LocalSearch:
		return b.Search(ctx, o)
	default:
		return ldap.NewDirectoryError(ldap.ResultProtocolError,
			fmt.Sprintf("backend %s cannot execute %s", b.ID(), op.Type()))
	}
}
