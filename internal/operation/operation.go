package operation

import (
	"context"
	"time"

	"github.com/KilimcininKorOglu/obacore/internal/dn"
	"github.com/KilimcininKorOglu/obacore/internal/ldap"
)

// ClientConnection is the connection an operation was received on.
type ClientConnection interface {
	// ConnectionID returns the unique ID of the connection.
	ConnectionID() int64
	// SendResponse writes the final result of op.
	SendResponse(op Operation) error
	// SendSearchEntry writes one search result entry for op.
	SendSearchEntry(op Operation, entry *ldap.Entry, controls []ldap.Control) error
	// CancelAllOperationsExcept cancels every in-flight operation on the
	// connection apart from the one with the given message ID.
	CancelAllOperationsExcept(req CancelRequest, messageID int)
}

// Operation is the state shared by every client request while it moves
// through the processing lifecycle.
type Operation interface {
	Type() Type
	Key() Key
	ConnectionID() int64
	OperationID() int64
	MessageID() int
	ClientConnection() ClientConnection

	RequestControls() []ldap.Control
	RequestControl(oid string) (ldap.Control, bool)
	ResponseControls() []ldap.Control
	AddResponseControl(c ldap.Control)

	ResultCode() ldap.ResultCode
	SetResultCode(code ldap.ResultCode)
	ErrorMessage() string
	SetErrorMessage(msg string)
	AppendErrorMessage(msg string)
	MatchedDN() dn.DN
	SetMatchedDN(d dn.DN)
	// SetError copies result code, message and matched DN from err.
	SetError(err error)

	Attachment(name string) (any, bool)
	SetAttachment(name string, value any) any
	RemoveAttachment(name string) any

	CancelRequest() *CancelRequest
	CancelResult() *CancelResult
	// SetCancelResult resolves a pending cancel request. It is a no-op when
	// no request is pending or the request is already resolved.
	SetCancelResult(result CancelResult)
	// Abort records req without waiting for it to be resolved.
	Abort(req CancelRequest)
	// Cancel records req and blocks until a checkpoint resolves it or ctx ends.
	Cancel(ctx context.Context, req CancelRequest) CancelResult
	// OnAbort registers fn to run when a cancel request is recorded.
	OnAbort(fn func(CancelRequest))
	// CheckIfCanceled is a cancellation checkpoint. With signalTooLate set
	// a pending request resolves to TOO_LATE instead of stopping the operation.
	CheckIfCanceled(signalTooLate bool) error

	SuppressResponse()
	ResponseSuppressed() bool
	MarkResponseSent()
	ResponseSent() bool

	State() State
	SetState(s State)
	ProcessingStartTime() time.Time
	SetProcessingStartTime(t time.Time)
	ProcessingStopTime() time.Time
	SetProcessingStopTime(t time.Time)
	ProcessingDuration() time.Duration
}

// Equal reports whether a and b are the same operation. Wrappers are
// transparent: only the connection and operation IDs are compared.
func Equal(a, b Operation) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Key() == b.Key()
}
