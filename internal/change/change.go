// Package change describes committed and proposed directory mutations and
// the single listener interface that observes them.
package change

import (
	"context"
	"fmt"

	"github.com/KilimcininKorOglu/obacore/internal/dn"
	"github.com/KilimcininKorOglu/obacore/internal/ldap"
	"github.com/KilimcininKorOglu/obacore/internal/operation"
)

// Kind is the type of mutation.
type Kind int

const (
	Add Kind = iota
	Delete
	Modify
	Rename
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case Add:
		return "add"
	case Delete:
		return "delete"
	case Modify:
		return "modify"
	case Rename:
		return "rename"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Phase tells whether the mutation is about to happen or has happened.
type Phase int

const (
	// Pre events are delivered before the mutation; an error vetoes it.
	Pre Phase = iota
	// Post events are delivered after the mutation committed.
	Post
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	if p == Pre {
		return "pre"
	}
	return "post"
}

// Event is one mutation. Old is nil for adds and New is nil for deletes.
type Event struct {
	Kind  Kind
	Phase Phase
	Old   *ldap.Entry
	New   *ldap.Entry
	// Operation is the client operation that caused the change, if any.
	Operation operation.Operation
}

// DN returns the DN the event is about: the new DN when there is one,
// otherwise the old DN.
func (e Event) DN() dn.DN {
	if e.New != nil {
		return e.New.DN
	}
	if e.Old != nil {
		return e.Old.DN
	}
	return dn.DN{}
}

// Listener observes mutations.
type Listener interface {
	HandleChange(ctx context.Context, ev Event) error
}

// ListenerFunc adapts a function to the Listener interface.
type ListenerFunc func(ctx context.Context, ev Event) error

// HandleChange calls f.
func (f ListenerFunc) HandleChange(ctx context.Context, ev Event) error {
	return f(ctx, ev)
}

// FromOperation builds the post-commit event for a successful write
// operation from the images its backend recorded. ok is false for other
// operation types or when the images are missing.
func FromOperation(op operation.Operation) (ev Event, ok bool) {
	ev = Event{Phase: Post, Operation: op}
	switch o := op.(type) {
	case operation.AddOperation:
		ev.Kind, ev.New = Add, o.Entry()
	case operation.DeleteOperation:
		ev.Kind, ev.Old = Delete, o.DeletedEntry()
	case operation.ModifyOperation:
		ev.Kind, ev.Old, ev.New = Modify, o.CurrentEntry(), o.ModifiedEntry()
	case operation.ModifyDNOperation:
		ev.Kind, ev.Old, ev.New = Rename, o.OriginalEntry(), o.UpdatedEntry()
	default:
		return Event{}, false
	}
	if ev.Old == nil && ev.New == nil {
		return Event{}, false
	}
	return ev, true
}
