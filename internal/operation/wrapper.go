package operation

// Wrapper forwards the methods of the base Operation interface to the
// wrapped operation. Embed it and override only the methods whose behavior
// changes.
//
// Only the base interface is forwarded: wrapping an AddOperation yields a
// value that is no longer an AddOperation. A wrapper that must keep the
// typed methods embeds the typed interface instead and implements
// Unwrapper, as the workflow Local* operations do.
type Wrapper struct {
	Operation
}

// NewWrapper wraps op.
func NewWrapper(op Operation) *Wrapper {
	return &Wrapper{Operation: op}
}

// Unwrap returns the wrapped operation.
func (w *Wrapper) Unwrap() Operation {
	return w.Operation
}

// Unwrapper is implemented by operations that wrap another operation.
type Unwrapper interface {
	Unwrap() Operation
}

// Innermost follows Unwrap until it reaches an operation that wraps nothing.
func Innermost(op Operation) Operation {
	for {
		u, ok := op.(Unwrapper)
		if !ok {
			return op
		}
		op = u.Unwrap()
	}
}
