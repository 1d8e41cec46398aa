package subentry

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/KilimcininKorOglu/obacore/internal/change"
	"github.com/KilimcininKorOglu/obacore/internal/dn"
	"github.com/KilimcininKorOglu/obacore/internal/dnindex"
	"github.com/KilimcininKorOglu/obacore/internal/ldap"
)

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// Manager keeps the subentries of the directory indexed by the base DN of
// their subtree specification and answers which subentries govern an
// entry. It implements change.Listener for committed changes.
//
// One lock guards the regular index, the collective index and the exact
// DN index together. Every mutation holds the write lock for its whole
// body, so readers never observe a half-applied change.
type Manager struct {
	logger    *zap.Logger
	metrics   *metrics
	listeners *change.Notifier

	mu         sync.RWMutex
	regular    *dnindex.Buckets[*Subentry]
	collective *dnindex.Buckets[*Subentry]
	byDN       *dnindex.Index[*Subentry]
}

var _ change.Listener = (*Manager)(nil)

// NewManager creates an empty manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		logger:     zap.NewNop(),
		metrics:    newMetrics(),
		regular:    dnindex.NewBuckets[*Subentry](),
		collective: dnindex.NewBuckets[*Subentry](),
		byDN:       dnindex.New[*Subentry](),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With(zap.String("component", "subentry"))
	m.listeners = change.NewNotifier(m.logger)
	return m
}

// PrometheusCollectors returns the manager's metrics.
func (m *Manager) PrometheusCollectors() []prometheus.Collector {
	return m.metrics.collectors()
}

// RegisterChangeListener adds l to the listeners told about subentry
// changes. Pre events are delivered before the index changes and an error
// vetoes the change; Post events are delivered after it committed.
func (m *Manager) RegisterChangeListener(l change.Listener) change.ListenerID {
	return m.listeners.Register(l)
}

// DeregisterChangeListener removes a listener.
func (m *Manager) DeregisterChangeListener(id change.ListenerID) bool {
	return m.listeners.Deregister(id)
}

// Len returns the number of indexed subentries.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.byDN.Len()
}

// Subentry returns the subentry stored at d.
func (m *Manager) Subentry(d dn.DN) (*Subentry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.byDN.Get(d)
}

// Load indexes the subentries among entries. Entries that are not
// subentries are ignored; malformed subentries are skipped and reported in
// the returned error.
func (m *Manager) Load(entries ...*ldap.Entry) error {
	var errs error
	loaded := 0
	m.mu.Lock()
	for _, e := range entries {
		if !IsSubentry(e) {
			continue
		}
		s, err := New(e)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		m.removeLocked(s.DN())
		m.insertLocked(s)
		loaded++
	}
	m.updateGaugesLocked()
	m.mu.Unlock()

	m.logger.Info("Loaded subentries", zap.Int("count", loaded), zap.Int("failed", len(multierr.Errors(errs))))
	return errs
}

// GetSubentries returns the regular subentries whose specification covers
// d. Refinements need the entry and are not evaluated.
func (m *Manager) GetSubentries(d dn.DN) []*Subentry {
	return m.lookup(m.regular, d, func(s *Subentry) bool { return s.spec.IsDNWithinScope(d) })
}

// GetEntrySubentries returns the regular subentries governing e.
func (m *Manager) GetEntrySubentries(e *ldap.Entry) []*Subentry {
	return m.lookup(m.regular, e.DN, func(s *Subentry) bool { return s.spec.IsWithinScope(e) })
}

// GetCollectiveSubentries returns the collective subentries whose
// specification covers d. Refinements are not evaluated.
func (m *Manager) GetCollectiveSubentries(d dn.DN) []*Subentry {
	return m.lookup(m.collective, d, func(s *Subentry) bool { return s.spec.IsDNWithinScope(d) })
}

// GetEntryCollectiveSubentries returns the collective subentries governing e.
func (m *Manager) GetEntryCollectiveSubentries(e *ldap.Entry) []*Subentry {
	return m.lookup(m.collective, e.DN, func(s *Subentry) bool { return s.spec.IsWithinScope(e) })
}

// lookup walks from target up to the root. Bucket membership only says the
// base is an ancestor; each candidate's full specification decides.
func (m *Manager) lookup(idx *dnindex.Buckets[*Subentry], target dn.DN, applies func(*Subentry) bool) []*Subentry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Subentry
	idx.Ancestors(target, func(_ dn.DN, s *Subentry) bool {
		if applies(s) {
			out = append(out, s)
		}
		return true
	})
	return out
}

func (m *Manager) index(s *Subentry) *dnindex.Buckets[*Subentry] {
	if s.IsCollective() {
		return m.collective
	}
	return m.regular
}

func (m *Manager) insertLocked(s *Subentry) {
	m.index(s).Add(s.spec.BaseDN(), s)
	m.byDN.Put(s.DN(), s)
}

// removeLocked removes the subentry stored at d. A DN sits in at most one
// of the two indexes, so the regular index is tried first.
func (m *Manager) removeLocked(d dn.DN) (*Subentry, bool) {
	s, ok := m.byDN.Delete(d)
	if !ok {
		return nil, false
	}
	same := func(v *Subentry) bool { return v.DN().Equal(d) }
	if _, found := m.regular.Remove(s.spec.BaseDN(), same); !found {
		m.collective.Remove(s.spec.BaseDN(), same)
	}
	return s, true
}

// subtreeLocked returns the subentries stored at or below d.
func (m *Manager) subtreeLocked(d dn.DN) []*Subentry {
	var out []*Subentry
	m.byDN.Subtree(d, func(_ dn.DN, s *Subentry) bool {
		out = append(out, s)
		return true
	})
	return out
}

func (m *Manager) updateGaugesLocked() {
	m.metrics.subentries.WithLabelValues("regular").Set(float64(m.regular.Len()))
	m.metrics.subentries.WithLabelValues("collective").Set(float64(m.collective.Len()))
}

type relocation struct {
	from, to *Subentry
}

// relocationsLocked computes where the subentries at or below the renamed
// entry end up. renamed is the new image of the renamed entry itself.
func (m *Manager) relocationsLocked(from dn.DN, renamed *ldap.Entry) []relocation {
	var out []relocation
	for _, s := range m.subtreeLocked(from) {
		var e *ldap.Entry
		if s.DN().Equal(from) {
			e = renamed
		} else {
			newDN, _ := s.DN().Rebase(from, renamed.DN)
			e = s.entry.WithDN(newDN)
		}
		out = append(out, relocation{from: s, to: s.relocate(e)})
	}
	return out
}

// CheckChange validates a proposed change before it is applied. A new or
// modified subentry must have a valid specification, and the registered
// listeners are given the Pre event for every subentry the change affects.
// The first error vetoes the change.
func (m *Manager) CheckChange(ctx context.Context, ev change.Event) error {
	if ev.Kind == change.Add || ev.Kind == change.Modify {
		if IsSubentry(ev.New) {
			if _, err := New(ev.New); err != nil {
				return err
			}
		}
	}
	for _, sev := range m.proposed(ev) {
		if err := m.listeners.Notify(ctx, sev); err != nil {
			return err
		}
	}
	return nil
}

// proposed returns the Pre events for the subentries ev would affect.
func (m *Manager) proposed(ev change.Event) []change.Event {
	pre := func(kind change.Kind, old, next *ldap.Entry) change.Event {
		return change.Event{Kind: kind, Phase: change.Pre, Old: old, New: next, Operation: ev.Operation}
	}

	switch ev.Kind {
	case change.Add:
		if IsSubentry(ev.New) {
			return []change.Event{pre(change.Add, nil, ev.New)}
		}
	case change.Modify:
		if IsSubentry(ev.Old) || IsSubentry(ev.New) {
			return []change.Event{pre(change.Modify, ev.Old, ev.New)}
		}
	case change.Delete:
		if ev.Old == nil {
			return nil
		}
		m.mu.RLock()
		defer m.mu.RUnlock()
		var out []change.Event
		for _, s := range m.subtreeLocked(ev.Old.DN) {
			out = append(out, pre(change.Delete, s.entry, nil))
		}
		return out
	case change.Rename:
		if ev.Old == nil || ev.New == nil {
			return nil
		}
		m.mu.RLock()
		defer m.mu.RUnlock()
		var out []change.Event
		for _, r := range m.relocationsLocked(ev.Old.DN, ev.New) {
			out = append(out, pre(change.Modify, r.from.entry, r.to.entry))
		}
		return out
	}
	return nil
}

// HandleChange updates the index after a committed change and tells the
// registered listeners. It implements change.Listener; Pre events are
// ignored, use CheckChange for those.
func (m *Manager) HandleChange(ctx context.Context, ev change.Event) error {
	if ev.Phase != change.Post {
		return nil
	}

	var (
		events []change.Event
		err    error
	)
	switch ev.Kind {
	case change.Add:
		events, err = m.handleAdd(ev.New)
	case change.Delete:
		events = m.handleDelete(ev.Old)
	case change.Modify:
		events, err = m.handleModify(ev.Old, ev.New)
	case change.Rename:
		events = m.handleRename(ev.Old, ev.New)
	}
	if err != nil {
		m.logger.Error("Could not index subentry", zap.Stringer("dn", ev.DN()), zap.Error(err))
	}

	for _, sev := range events {
		sev.Phase = change.Post
		sev.Operation = ev.Operation
		// Post listener failures are logged by the notifier.
		_ = m.listeners.Notify(ctx, sev)
	}
	return err
}

func (m *Manager) handleAdd(e *ldap.Entry) ([]change.Event, error) {
	if !IsSubentry(e) {
		return nil, nil
	}
	s, err := New(e)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.removeLocked(s.DN())
	m.insertLocked(s)
	m.updateGaugesLocked()
	m.mu.Unlock()

	m.logger.Debug("Subentry added", zap.Stringer("dn", s.DN()), zap.Stringer("kind", s.kind),
		zap.Stringer("base", s.spec.BaseDN()))
	return []change.Event{{Kind: change.Add, New: e}}, nil
}

// handleDelete removes the subentries at or below the deleted entry. The
// existence check runs under the read lock alone; when it finds nothing
// the write lock is never taken. A subentry added below e between the
// check and the delete commit is not caught here.
func (m *Manager) handleDelete(e *ldap.Entry) []change.Event {
	if e == nil {
		return nil
	}

	m.mu.RLock()
	found := m.byDN.HasSubtree(e.DN)
	m.mu.RUnlock()
	if !found {
		m.metrics.fastPathDeletes.Inc()
		return nil
	}

	m.mu.Lock()
	removed := m.subtreeLocked(e.DN)
	for _, s := range removed {
		m.removeLocked(s.DN())
	}
	m.updateGaugesLocked()
	m.mu.Unlock()

	events := make([]change.Event, 0, len(removed))
	for _, s := range removed {
		m.logger.Debug("Subentry removed", zap.Stringer("dn", s.DN()))
		events = append(events, change.Event{Kind: change.Delete, Old: s.entry})
	}
	return events
}

func (m *Manager) handleModify(old, next *ldap.Entry) ([]change.Event, error) {
	if !IsSubentry(old) && !IsSubentry(next) {
		return nil, nil
	}

	var (
		s   *Subentry
		err error
	)
	if IsSubentry(next) {
		// The change is already committed, so an unparsable new image still
		// drops the old subentry from the index.
		s, err = New(next)
	}

	m.mu.Lock()
	removed := false
	if old != nil {
		_, removed = m.removeLocked(old.DN)
	}
	if s != nil {
		m.insertLocked(s)
	}
	m.updateGaugesLocked()
	m.mu.Unlock()

	if s == nil && !removed {
		return nil, err
	}
	return []change.Event{{Kind: change.Modify, Old: old, New: next}}, err
}

// handleRename moves every subentry at or below the renamed entry. Each
// one is replaced, never changed in place, and reported as a modify.
func (m *Manager) handleRename(old, next *ldap.Entry) []change.Event {
	if old == nil || next == nil {
		return nil
	}

	m.mu.Lock()
	moves := m.relocationsLocked(old.DN, next)
	for _, r := range moves {
		m.removeLocked(r.from.DN())
	}
	for _, r := range moves {
		m.insertLocked(r.to)
	}
	m.updateGaugesLocked()
	m.mu.Unlock()

	events := make([]change.Event, 0, len(moves))
	for _, r := range moves {
		m.logger.Debug("Subentry relocated", zap.Stringer("from", r.from.DN()), zap.Stringer("to", r.to.DN()))
		events = append(events, change.Event{Kind: change.Modify, Old: r.from.entry, New: r.to.entry})
	}
	return events
}
