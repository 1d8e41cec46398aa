// Package operation defines the per-request state shared by every LDAP
// operation type.
//
// An Operation carries its identity (connection, operation and message
// IDs), request and response controls, the result code (initially
// ldap.ResultUndefined), the diagnostic message, a string keyed attachment
// map and the cancellation state.
//
// # Cancellation
//
// Cancellation is cooperative. Abort and Cancel only record a
// CancelRequest; the request takes effect when the processing goroutine
// reaches a checkpoint:
//
//	if err := op.CheckIfCanceled(false); err != nil {
//	    op.SetError(err) // CANCELED
//	    return
//	}
//
// A request that is still pending when the response goes out resolves to
// TOO_LATE. Cancel blocks until the request is resolved and reports
// CANNOT_CANCEL when its context ends first.
//
// # Wrapping
//
// Components that intercept part of an operation embed Wrapper (or the
// typed interface, such as AddOperation) and override only what they need.
// Equal compares the (connection, operation) key, so an operation and any
// number of nested wrappers around it are equal.
package operation
