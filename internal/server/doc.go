// Package server drives client operations through the processing lifecycle.
//
// # Lifecycle
//
// Every operation type moves through the same phases:
//
//	CREATED -> PRE_PARSE -> DN_RESOLUTION -> WORKFLOW_EXECUTION
//	        -> RESPONSE_SEND -> POST_RESPONSE -> TERMINAL
//
// Pre-parse plugins may stop an operation with a result code of their
// choosing. Raw DNs are decoded during DN resolution; a malformed value
// fails the operation before any workflow runs. The workflow resolves the
// target DN to a backend and reports whether it executed. That flag decides
// which post-response plugins run: those registered for the backend-local
// operations when it executed, the operation's own otherwise.
//
// Cancellation is cooperative. A cancel request is only observed at the
// checkpoints after pre-parse and before the workflow, and at the
// backend-local checkpoint inside the workflow.
//
// # Changes
//
// After a successful write the Processor hands a change.Event to every
// registered change.Listener, synchronously and before the response is
// sent. The persistent search registry and the subentry manager are such
// listeners; their failures are logged and never affect the write.
//
// # Responses
//
// The final response is sent exactly once, unless the operation was
// canceled, the requester did not ask to be notified and the
// notifyAbandonedOperations setting is off. An enabled persistent search
// suppresses its own response; it is sent when the search terminates.
//
// Core wires the processor, workflow router, plugin pipeline, persistent
// search registry and subentry manager together from a config.Manager.
package server
