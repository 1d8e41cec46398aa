package subentry

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/KilimcininKorOglu/obacore/internal/change"
	"github.com/KilimcininKorOglu/obacore/internal/dn"
	"github.com/KilimcininKorOglu/obacore/internal/ldap"
	"github.com/KilimcininKorOglu/obacore/internal/operation"
	"github.com/KilimcininKorOglu/obacore/internal/plugin"
)

// PluginName is the name the pre-operation plugin registers under.
const PluginName = "subentry"

// EntryLookup returns the current entry at d.
type EntryLookup func(ctx context.Context, d dn.DN) (*ldap.Entry, error)

// Plugin is the pre-operation plugin that rejects writes which would leave
// an invalid subentry, or that a subentry change listener vetoes, before
// the backend applies them.
type Plugin struct {
	manager *Manager
	lookup  EntryLookup
	logger  *zap.Logger
}

var _ plugin.Plugin = (*Plugin)(nil)

// NewPlugin creates the plugin. lookup resolves the current image of
// modified and renamed entries.
func NewPlugin(m *Manager, lookup EntryLookup) *Plugin {
	return &Plugin{manager: m, lookup: lookup, logger: m.logger}
}

// Register adds p to the pre-operation phase of pipeline for every write.
func (p *Plugin) Register(pipeline *plugin.Pipeline) {
	pipeline.Register(plugin.PhasePreOperation, p,
		operation.TypeAdd, operation.TypeDelete, operation.TypeModify, operation.TypeModifyDN)
}

func (p *Plugin) Name() string { return PluginName }

func (p *Plugin) Handle(ctx context.Context, _ plugin.Phase, op operation.Operation) bool {
	ev, ok := p.proposal(ctx, op)
	if !ok {
		return true
	}
	if err := p.manager.CheckChange(ctx, ev); err != nil {
		op.SetError(err)
		var de *ldap.DirectoryError
		if !errors.As(err, &de) {
			op.SetResultCode(ldap.ResultUnwillingToPerform)
		}
		p.logger.Debug("Subentry change rejected", zap.Stringer("op", op.Key()), zap.Error(err))
		return false
	}
	return true
}

// proposal builds the Pre event describing what op is about to do. ok is
// false when the current entry cannot be resolved; the backend reports that
// itself.
func (p *Plugin) proposal(ctx context.Context, op operation.Operation) (change.Event, bool) {
	ev := change.Event{Phase: change.Pre, Operation: op}
	switch op.Type() {
	case operation.TypeAdd:
		o, ok := op.(operation.AddOperation)
		if !ok {
			return ev, false
		}
		ev.Kind, ev.New = change.Add, o.Entry()
	case operation.TypeDelete:
		o, ok := op.(operation.DeleteOperation)
		if !ok {
			return ev, false
		}
		ev.Kind, ev.Old = change.Delete, ldap.NewEntry(o.EntryDN())
	case operation.TypeModify:
		o, ok := op.(operation.ModifyOperation)
		if !ok {
			return ev, false
		}
		current, err := p.lookup(ctx, o.EntryDN())
		if err != nil {
			return ev, false
		}
		modified, err := ldap.ApplyModifications(current, o.Modifications())
		if err != nil {
			return ev, false
		}
		ev.Kind, ev.Old, ev.New = change.Modify, current, modified
	case operation.TypeModifyDN:
		o, ok := op.(operation.ModifyDNOperation)
		if !ok {
			return ev, false
		}
		newDN, err := o.NewDN()
		if err != nil {
			return ev, false
		}
		current, err := p.lookup(ctx, o.EntryDN())
		if err != nil {
			return ev, false
		}
		ev.Kind, ev.Old, ev.New = change.Rename, current, current.Rename(newDN, o.DeleteOldRDN())
	default:
		return ev, false
	}
	return ev, true
}
