package operation

// LocalBackendOperationsAttachment names the attachment holding the
// backend-local operations the workflow executed for a client operation.
const LocalBackendOperationsAttachment = "localBackendOperations"

// AddLocalBackendOperation appends local to the list of backend-local
// operations recorded on op.
func AddLocalBackendOperation(op, local Operation) {
	ops := LocalBackendOperations(op)
	ops = append(ops, local)
	op.SetAttachment(LocalBackendOperationsAttachment, ops)
}

// LocalBackendOperations returns the backend-local operations recorded on op.
func LocalBackendOperations(op Operation) []Operation {
	v, ok := op.Attachment(LocalBackendOperationsAttachment)
	if !ok {
		return nil
	}
	ops, _ := v.([]Operation)
	return ops
}
