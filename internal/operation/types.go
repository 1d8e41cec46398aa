package operation

import (
	"fmt"

	"github.com/KilimcininKorOglu/obacore/internal/ldap"
)

// Type identifies the kind of client request an operation carries.
type Type int

const (
	TypeAdd Type = iota
	TypeBind
	TypeCompare
	TypeDelete
	TypeExtended
	TypeModify
	TypeModifyDN
	TypeSearch
)

// String returns the string representation of the operation type.
func (t Type) String() string {
	switch t {
	case TypeAdd:
		return "add"
	case TypeBind:
		return "bind"
	case TypeCompare:
		return "compare"
	case TypeDelete:
		return "delete"
	case TypeExtended:
		return "extended"
	case TypeModify:
		return "modify"
	case TypeModifyDN:
		return "modifydn"
	case TypeSearch:
		return "search"
	default:
		return fmt.Sprintf("unknown(%d)", int(t))
	}
}

// IsWrite reports whether operations of this type mutate the directory.
func (t Type) IsWrite() bool {
	return t == TypeAdd || t == TypeDelete || t == TypeModify || t == TypeModifyDN
}

// Key identifies an operation independently of any wrapper around it.
type Key struct {
	ConnectionID int64
	OperationID  int64
}

// String returns the string representation of the key.
func (k Key) String() string {
	return fmt.Sprintf("conn=%d op=%d", k.ConnectionID, k.OperationID)
}

// InternalConnectionID is the connection ID of operations that were not
// issued by a client connection.
const InternalConnectionID int64 = -1

// State is a phase of the operation lifecycle.
type State int

const (
	StateCreated State = iota
	StatePreParse
	StateDNResolution
	StateWorkflowExecution
	StateResponseSend
	StatePostResponse
	StateTerminal
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StatePreParse:
		return "pre-parse"
	case StateDNResolution:
		return "dn-resolution"
	case StateWorkflowExecution:
		return "workflow-execution"
	case StateResponseSend:
		return "response-send"
	case StatePostResponse:
		return "post-response"
	case StateTerminal:
		return "terminal"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// CancelRequest asks for an in-flight operation to stop.
type CancelRequest struct {
	// NotifyOriginalRequestor asks for the cancelled operation to still
	// send its (CANCELED) response.
	NotifyOriginalRequestor bool
	// Reason is a human readable cancellation reason.
	Reason string
}

// CancelResult is the outcome of a cancel request.
type CancelResult struct {
	Code    ldap.ResultCode
	Message string
}
