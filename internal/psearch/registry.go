package psearch

import (
	"context"
	"errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/KilimcininKorOglu/obacore/internal/change"
	"github.com/KilimcininKorOglu/obacore/internal/dn"
	"github.com/KilimcininKorOglu/obacore/internal/dnindex"
	"github.com/KilimcininKorOglu/obacore/internal/ldap"
	"github.com/KilimcininKorOglu/obacore/internal/logging"
	"github.com/KilimcininKorOglu/obacore/internal/operation"
)

// Registry errors.
var (
	ErrCanceled      = errors.New("persistent search canceled")
	ErrClosed        = errors.New("persistent search registry closed")
	ErrLimitExceeded = errors.New("persistent search limit exceeded")
)

// Settings are the parts of the server configuration the registry reads on
// every admission and termination.
type Settings struct {
	// MaxPersistentSearches bounds the number of active persistent
	// searches. A negative value means unlimited.
	MaxPersistentSearches int
	// NotifyAbandonedOperations makes an abandoned persistent search
	// still receive its final result.
	NotifyAbandonedOperations bool
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

// WithSettings makes the registry read its settings from fn, so they
// follow configuration reloads.
func WithSettings(fn func() Settings) Option {
	return func(r *Registry) { r.settingsFn = fn }
}

// Registry tracks the active persistent searches and fans committed changes
// out to them. It implements change.Listener.
type Registry struct {
	logger     *zap.Logger
	settingsFn func() Settings
	metrics    *metrics

	mu     sync.RWMutex
	closed bool
	byBase *dnindex.Buckets[*PersistentSearch]
	byConn map[int64]map[*PersistentSearch]struct{}
	count  int

	changeMu     sync.Mutex
	changeNumber int64
}

var _ change.Listener = (*Registry)(nil)

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		logger:     zap.NewNop(),
		settingsFn: func() Settings { return Settings{MaxPersistentSearches: -1} },
		metrics:    newMetrics(),
		byBase:     dnindex.NewBuckets[*PersistentSearch](),
		byConn:     make(map[int64]map[*PersistentSearch]struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With(zap.String("component", "psearch"))
	return r
}

// PrometheusCollectors returns the registry's metrics.
func (r *Registry) PrometheusCollectors() []prometheus.Collector {
	return r.metrics.collectors()
}

func (r *Registry) settings() Settings { return r.settingsFn() }

// AllowNew reports whether another persistent search may be created.
func (r *Registry) AllowNew() bool {
	limit := r.settings().MaxPersistentSearches
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return false
	}
	return limit < 0 || r.count < limit
}

// Count returns the number of active persistent searches.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.count
}

// New creates a persistent search for op as requested by ctrl. It fails
// with ADMIN_LIMIT_EXCEEDED when the registry refuses new searches. The
// search receives nothing until it is enabled.
func (r *Registry) New(op operation.SearchOperation, ctrl RequestControl) (*PersistentSearch, error) {
	if !r.AllowNew() {
		return nil, ldap.WrapDirectoryError(ldap.ResultAdminLimitExceeded,
			"too many persistent searches", ErrLimitExceeded)
	}
	if ctrl.ChangesOnly {
		op.SetSkipInitialResults(true)
	}
	return &PersistentSearch{
		op:          op,
		changeTypes: ctrl.ChangeTypes,
		changesOnly: ctrl.ChangesOnly,
		returnECs:   ctrl.ReturnECs,
		registry:    r,
		logger:      r.logger,
	}, nil
}

func (r *Registry) add(ps *PersistentSearch) error {
	limit := r.settings().MaxPersistentSearches
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	if limit >= 0 && r.count >= limit {
		return ldap.WrapDirectoryError(ldap.ResultAdminLimitExceeded,
			"too many persistent searches", ErrLimitExceeded)
	}
	r.byBase.Add(ps.BaseDN(), ps)
	conn := r.byConn[ps.op.ConnectionID()]
	if conn == nil {
		conn = make(map[*PersistentSearch]struct{})
		r.byConn[ps.op.ConnectionID()] = conn
	}
	conn[ps] = struct{}{}
	r.count++
	r.metrics.active.Set(float64(r.count))
	return nil
}

func (r *Registry) remove(ps *PersistentSearch) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byBase.Remove(ps.BaseDN(), func(v *PersistentSearch) bool { return v == ps }); !ok {
		return
	}
	if conn := r.byConn[ps.op.ConnectionID()]; conn != nil {
		delete(conn, ps)
		if len(conn) == 0 {
			delete(r.byConn, ps.op.ConnectionID())
		}
	}
	r.count--
	r.metrics.active.Set(float64(r.count))
}

// siblings returns the other active persistent searches started by the same
// request on the same connection.
func (r *Registry) siblings(ps *PersistentSearch) []*PersistentSearch {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*PersistentSearch
	for other := range r.byConn[ps.op.ConnectionID()] {
		if other != ps && other.op.MessageID() == ps.op.MessageID() {
			out = append(out, other)
		}
	}
	return out
}

// ConnectionSearches returns the active persistent searches of a connection.
func (r *Registry) ConnectionSearches(connID int64) []*PersistentSearch {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*PersistentSearch, 0, len(r.byConn[connID]))
	for ps := range r.byConn[connID] {
		out = append(out, ps)
	}
	return out
}

// CancelConnection cancels every persistent search of a closing connection.
func (r *Registry) CancelConnection(connID int64) int {
	searches := r.ConnectionSearches(connID)
	for _, ps := range searches {
		ps.Cancel()
	}
	return len(searches)
}

// Close cancels every active persistent search with UNAVAILABLE and refuses
// new ones.
func (r *Registry) Close() {
	r.mu.Lock()
	r.closed = true
	var all []*PersistentSearch
	r.byBase.Each(func(_ dn.DN, ps *PersistentSearch) bool {
		all = append(all, ps)
		return true
	})
	r.mu.Unlock()

	for _, ps := range all {
		ps.terminate(ldap.ResultUnavailable, "server is shutting down")
	}
	r.logger.Info("Persistent search registry closed", zap.Int("canceled", len(all)))
}

// candidates returns the persistent searches whose base is at or above any
// of dns, each once.
func (r *Registry) candidates(dns ...dn.DN) []*PersistentSearch {
	seen := make(map[*PersistentSearch]struct{})
	var out []*PersistentSearch
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, d := range dns {
		r.byBase.Ancestors(d, func(_ dn.DN, ps *PersistentSearch) bool {
			if _, dup := seen[ps]; !dup {
				seen[ps] = struct{}{}
				out = append(out, ps)
			}
			return true
		})
	}
	return out
}

func (r *Registry) nextChangeNumber() int64 {
	r.changeMu.Lock()
	defer r.changeMu.Unlock()
	r.changeNumber++
	return r.changeNumber
}

// HandleChange delivers a committed change to every matching persistent
// search. Delivery happens on the calling goroutine and costs one check per
// persistent search based at or above the changed entry. Delivery failures
// only affect the failing search, so HandleChange never returns an error.
func (r *Registry) HandleChange(_ context.Context, ev change.Event) error {
	if ev.Phase != change.Post {
		return nil
	}

	var dns []dn.DN
	if ev.Old != nil {
		dns = append(dns, ev.Old.DN)
	}
	if ev.New != nil && (ev.Old == nil || !ev.New.DN.Equal(ev.Old.DN)) {
		dns = append(dns, ev.New.DN)
	}
	candidates := r.candidates(dns...)
	if len(candidates) == 0 {
		return nil
	}

	number := r.nextChangeNumber()
	delivered := 0
	for _, ps := range candidates {
		if ps.IsCanceled() {
			continue
		}
		var sent bool
		switch ev.Kind {
		case change.Add:
			sent = ps.ProcessAdd(ev.New, number)
		case change.Delete:
			sent = ps.ProcessDelete(ev.Old, number)
		case change.Modify:
			sent = ps.ProcessModify(ev.New, ev.Old, number)
		case change.Rename:
			sent = ps.ProcessModifyDN(ev.New, ev.Old, number)
		}
		if sent {
			delivered++
		}
	}

	r.logger.Debug("Change delivered to persistent searches",
		zap.Stringer("kind", ev.Kind),
		zap.Stringer("dn", ev.DN()),
		zap.Int64("change_number", number),
		zap.Int("candidates", len(candidates)),
		zap.Int("delivered", delivered))
	return nil
}

func (r *Registry) delivered(ct ChangeType) {
	r.metrics.notifications.WithLabelValues(ct.String()).Inc()
}

func (r *Registry) deliveryFailed(ps *PersistentSearch, err error) {
	r.metrics.deliveryFailures.Inc()
	fields := logging.OperationFields(ps.op)
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	r.logger.Warn("Persistent search delivery failed", fields...)
}
