package server

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/KilimcininKorOglu/obacore/internal/config"
	"github.com/KilimcininKorOglu/obacore/internal/dn"
	"github.com/KilimcininKorOglu/obacore/internal/ldap"
	"github.com/KilimcininKorOglu/obacore/internal/plugin"
	"github.com/KilimcininKorOglu/obacore/internal/psearch"
	"github.com/KilimcininKorOglu/obacore/internal/subentry"
	"github.com/KilimcininKorOglu/obacore/internal/workflow"
)

// EntryGetter is implemented by backends that can return a single entry.
// The subentry plugin needs it to see the current image of modified and
// renamed entries.
type EntryGetter interface {
	GetEntry(ctx context.Context, d dn.DN) (*ldap.Entry, error)
}

// Core is the assembled request-processing core.
type Core struct {
	Config     *config.Manager
	Plugins    *plugin.Pipeline
	Router     *workflow.Router
	Searches   *psearch.Registry
	Subentries *subentry.Manager
	Processor  *Processor

	logger *zap.Logger
}

// NewCore wires a core from cfg. opts are applied to the processor after
// the defaults derived from cfg.
func NewCore(cfg *config.Manager, logger *zap.Logger, opts ...Option) *Core {
	if cfg == nil {
		cfg = config.NewManager(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Core{Config: cfg, logger: logger}
	c.Plugins = plugin.NewPipeline(logger)
	c.Router = workflow.NewRouter(c.Plugins, logger)
	c.Searches = psearch.NewRegistry(
		psearch.WithLogger(logger),
		psearch.WithSettings(RegistrySettings(cfg)),
	)
	c.Subentries = subentry.NewManager(subentry.WithLogger(logger))
	subentry.NewPlugin(c.Subentries, c.lookupEntry).Register(c.Plugins)

	c.Processor = NewProcessor(c.Router, c.Plugins, append([]Option{
		WithLogger(logger),
		WithConfig(cfg),
		WithPersistentSearch(c.Searches),
	}, opts...)...)
	c.Processor.RegisterChangeListener(c.Subentries)

	cfg.OnUpdate(func(oldCfg, newCfg *config.Config) {
		if oldCfg.PersistentSearch.MaxPersistentSearches != newCfg.PersistentSearch.MaxPersistentSearches {
			logger.Info("Persistent search limit changed",
				zap.Int("old", oldCfg.PersistentSearch.MaxPersistentSearches),
				zap.Int("new", newCfg.PersistentSearch.MaxPersistentSearches),
				zap.Int("active", c.Searches.Count()))
		}
	})
	return c
}

// RegisterBackend makes b responsible for the naming context base.
func (c *Core) RegisterBackend(base dn.DN, b workflow.Backend) error {
	return c.Router.RegisterBackend(base, b)
}

// LoadSubentries indexes the subentries among entries, typically the
// contents of a backend at startup.
func (c *Core) LoadSubentries(entries ...*ldap.Entry) error {
	var subentries []*ldap.Entry
	for _, e := range entries {
		if subentry.IsSubentry(e) {
			subentries = append(subentries, e)
		}
	}
	return c.Subentries.Load(subentries...)
}

// PrometheusCollectors returns the metrics of every component.
func (c *Core) PrometheusCollectors() []prometheus.Collector {
	var out []prometheus.Collector
	out = append(out, c.Processor.PrometheusCollectors()...)
	out = append(out, c.Searches.PrometheusCollectors()...)
	out = append(out, c.Subentries.PrometheusCollectors()...)
	return out
}

// Close terminates every persistent search.
func (c *Core) Close() {
	c.Searches.Close()
}

func (c *Core) lookupEntry(ctx context.Context, d dn.DN) (*ldap.Entry, error) {
	b, _, ok := c.Router.BackendFor(d)
	if !ok {
		return nil, ldap.NewDirectoryError(ldap.ResultNoSuchObject, fmt.Sprintf("no backend holds %q", d.String()))
	}
	getter, ok := b.(EntryGetter)
	if !ok {
		return nil, fmt.Errorf("backend %s cannot look up entries", b.ID())
	}
	return getter.GetEntry(ctx, d)
}

// RegistrySettings returns the persistent search settings held by m.
func RegistrySettings(m *config.Manager) func() psearch.Settings {
	return func() psearch.Settings {
		cfg := m.Get()
		return psearch.Settings{
			MaxPersistentSearches:     cfg.PersistentSearch.MaxPersistentSearches,
			NotifyAbandonedOperations: cfg.Operations.NotifyAbandonedOperations,
		}
	}
}
