package change

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// ListenerID identifies a registration with a Notifier.
type ListenerID uint64

type entry struct {
	id       ListenerID
	listener Listener
}

// Notifier delivers events to registered listeners in registration order.
// The listener list is copy-on-write, so registration never blocks delivery.
type Notifier struct {
	logger *zap.Logger

	mu        sync.Mutex
	nextID    ListenerID
	listeners []entry
}

// NewNotifier creates a notifier.
func NewNotifier(logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{logger: logger}
}

// Register adds l and returns the ID used to deregister it.
func (n *Notifier) Register(l Listener) ListenerID {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.nextID++
	next := make([]entry, 0, len(n.listeners)+1)
	next = append(next, n.listeners...)
	n.listeners = append(next, entry{id: n.nextID, listener: l})
	return n.nextID
}

// Deregister removes the listener with the given ID. It reports whether the
// listener was registered.
func (n *Notifier) Deregister(id ListenerID) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	next := make([]entry, 0, len(n.listeners))
	found := false
	for _, e := range n.listeners {
		if e.id == id {
			found = true
			continue
		}
		next = append(next, e)
	}
	n.listeners = next
	return found
}

// Len returns the number of registered listeners.
func (n *Notifier) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.listeners)
}

func (n *Notifier) snapshot() []entry {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.listeners
}

// Notify delivers ev. For Pre events delivery stops at the first error,
// which is returned as the veto. For Post events every listener runs;
// failures and panics are logged and returned combined.
func (n *Notifier) Notify(ctx context.Context, ev Event) error {
	var errs error
	for _, e := range n.snapshot() {
		err := n.deliver(ctx, e.listener, ev)
		if err == nil {
			continue
		}
		if ev.Phase == Pre {
			return err
		}
		n.logger.Warn("Change listener failed",
			zap.Uint64("listener", uint64(e.id)),
			zap.Stringer("kind", ev.Kind),
			zap.Stringer("dn", ev.DN()),
			zap.Error(err))
		errs = multierr.Append(errs, err)
	}
	return errs
}

func (n *Notifier) deliver(ctx context.Context, l Listener, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("change listener panicked: %v", r)
		}
	}()
	return l.HandleChange(ctx, ev)
}
