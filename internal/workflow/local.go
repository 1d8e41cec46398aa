package workflow

import (
	"github.com/KilimcininKorOglu/obacore/internal/operation"
)

// LocalOperation is the view of a client operation handed to one backend.
// It forwards everything to the client operation and remembers the backend
// it was executed against.
type LocalOperation interface {
	operation.Operation
	Backend() Backend
	Unwrap() operation.Operation
}

type local struct {
	backend Backend
}

func (l local) Backend() Backend { return l.backend }

// LocalAdd is an add operation executed by a backend.
type LocalAdd struct {
	operation.AddOperation
	local
}

func (l *LocalAdd) Unwrap() operation.Operation { return l.AddOperation }

// LocalBind is a bind operation executed by a backend.
type LocalBind struct {
	operation.BindOperation
	local
}

func (l *LocalBind) Unwrap() operation.Operation { return l.BindOperation }

// LocalCompare is a compare operation executed by a backend.
type LocalCompare struct {
	operation.CompareOperation
	local
}

func (l *LocalCompare) Unwrap() operation.Operation { return l.CompareOperation }

// LocalDelete is a delete operation executed by a backend.
type LocalDelete struct {
	operation.DeleteOperation
	local
}

func (l *LocalDelete) Unwrap() operation.Operation { return l.DeleteOperation }

// LocalModify is a modify operation executed by a backend.
type LocalModify struct {
	operation.ModifyOperation
	local
}

func (l *LocalModify) Unwrap() operation.Operation { return l.ModifyOperation }

// LocalModifyDN is a modify DN operation executed by a backend.
type LocalModifyDN struct {
	operation.ModifyDNOperation
	local
}

func (l *LocalModifyDN) Unwrap() operation.Operation { return l.ModifyDNOperation }

// LocalSearch is a search operation executed by a backend.
type LocalSearch struct {
	operation.SearchOperation
	local
}

func (l *LocalSearch) Unwrap() operation.Operation { return l.SearchOperation }

// LocalExtended is an extended operation executed by a registered handler.
type LocalExtended struct {
	operation.ExtendedOperation
	local
}

func (l *LocalExtended) Unwrap() operation.Operation { return l.ExtendedOperation }

// NewLocal wraps op for execution against b. It returns nil for operation
// types that have no typed interface.
func NewLocal(op operation.Operation, b Backend) LocalOperation {
	l := local{backend: b}
	switch o := op.(type) {
	case operation.AddOperation:
		return &LocalAdd{o, l}
	case operation.BindOperation:
		return &LocalBind{o, l}
	case operation.CompareOperation:
		return &LocalCompare{o, l}
	case operation.DeleteOperation:
		return &LocalDelete{o, l}
	case operation.ModifyOperation:
		return &LocalModify{o, l}
	case operation.ModifyDNOperation:
		return &LocalModifyDN{o, l}
	case operation.SearchOperation:
		return &LocalSearch{o, l}
	case operation.ExtendedOperation:
		return &LocalExtended{o, l}
	default:
		return nil
	}
}
