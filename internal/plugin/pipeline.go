// Package plugin invokes ordered extension hooks at fixed points of the
// operation lifecycle.
package plugin

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/KilimcininKorOglu/obacore/internal/ldap"
	"github.com/KilimcininKorOglu/obacore/internal/operation"
)

// Phase is a point of the lifecycle where plugins run.
type Phase int

const (
	// PhasePreParse runs before request values are resolved.
	PhasePreParse Phase = iota
	// PhasePreOperation runs on a backend-local operation before the backend.
	PhasePreOperation
	// PhasePostOperation runs on a backend-local operation after the backend.
	PhasePostOperation
	// PhasePostResponse runs after the response, whether or not it was sent.
	PhasePostResponse
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhasePreParse:
		return "pre-parse"
	case PhasePreOperation:
		return "pre-operation"
	case PhasePostOperation:
		return "post-operation"
	case PhasePostResponse:
		return "post-response"
	default:
		return fmt.Sprintf("unknown(%d)", int(p))
	}
}

// Plugin is an extension hook. Handle returns false to stop processing; a
// plugin that stops processing sets the result code it wants returned.
type Plugin interface {
	Name() string
	Handle(ctx context.Context, phase Phase, op operation.Operation) bool
}

type funcPlugin struct {
	name string
	fn   func(ctx context.Context, phase Phase, op operation.Operation) bool
}

func (f funcPlugin) Name() string { return f.name }

func (f funcPlugin) Handle(ctx context.Context, phase Phase, op operation.Operation) bool {
	return f.fn(ctx, phase, op)
}

// Func adapts a function to the Plugin interface.
func Func(name string, fn func(ctx context.Context, phase Phase, op operation.Operation) bool) Plugin {
	return funcPlugin{name: name, fn: fn}
}

type registration struct {
	plugin Plugin
	types  map[operation.Type]bool
}

func (r registration) applies(t operation.Type) bool {
	return len(r.types) == 0 || r.types[t]
}

// Pipeline holds the plugins registered for every phase, in registration order.
type Pipeline struct {
	logger *zap.Logger

	mu     sync.RWMutex
	phases map[Phase][]registration
}

// NewPipeline creates an empty pipeline.
func NewPipeline(logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		logger: logger.With(zap.String("component", "plugin")),
		phases: make(map[Phase][]registration),
	}
}

// Register adds p to phase. When types are given, p only sees operations
// of those types.
func (p *Pipeline) Register(phase Phase, plugin Plugin, types ...operation.Type) {
	reg := registration{plugin: plugin}
	if len(types) > 0 {
		reg.types = make(map[operation.Type]bool, len(types))
		for _, t := range types {
			reg.types[t] = true
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	// Copy so that in-flight invocations keep their snapshot.
	regs := make([]registration, 0, len(p.phases[phase])+1)
	regs = append(regs, p.phases[phase]...)
	p.phases[phase] = append(regs, reg)
}

// Deregister removes every registration of the named plugin.
func (p *Pipeline) Deregister(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for phase, regs := range p.phases {
		kept := make([]registration, 0, len(regs))
		for _, r := range regs {
			if r.plugin.Name() != name {
				kept = append(kept, r)
			}
		}
		p.phases[phase] = kept
	}
}

// Len returns the number of plugins registered for phase.
func (p *Pipeline) Len(phase Phase) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.phases[phase])
}

// Invoke runs the plugins of phase against op and reports whether
// processing continues. At PhasePostResponse every plugin runs and the
// result is always true.
func (p *Pipeline) Invoke(ctx context.Context, phase Phase, op operation.Operation) bool {
	if p == nil {
		return true
	}
	p.mu.RLock()
	regs := p.phases[phase]
	p.mu.RUnlock()

	for _, r := range regs {
		if !r.applies(op.Type()) {
			continue
		}
		if p.handle(ctx, phase, r.plugin, op) || phase == PhasePostResponse {
			continue
		}

		if op.ResultCode() == ldap.ResultUndefined || op.ResultCode() == ldap.ResultSuccess {
			op.SetResultCode(ldap.ResultUnwillingToPerform)
			op.AppendErrorMessage(fmt.Sprintf("rejected by plugin %s", r.plugin.Name()))
		}
		p.logger.Debug("Plugin stopped processing",
			zap.String("plugin", r.plugin.Name()),
			zap.Stringer("phase", phase),
			zap.Stringer("op", op.Key()),
			zap.Stringer("result", op.ResultCode()))
		return false
	}
	return true
}

func (p *Pipeline) handle(ctx context.Context, phase Phase, plugin Plugin, op operation.Operation) (cont bool) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Plugin panicked",
				zap.String("plugin", plugin.Name()),
				zap.Stringer("phase", phase),
				zap.Stringer("op", op.Key()),
				zap.Any("panic", r))
			if phase != PhasePostResponse {
				op.SetResultCode(ldap.ResultOperationsError)
				op.SetErrorMessage(fmt.Sprintf("plugin %s failed", plugin.Name()))
			}
			cont = false
		}
	}()
	return plugin.Handle(ctx, phase, op)
}
