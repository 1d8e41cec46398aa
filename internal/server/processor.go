package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/KilimcininKorOglu/obacore/internal/change"
	"github.com/KilimcininKorOglu/obacore/internal/config"
	"github.com/KilimcininKorOglu/obacore/internal/dn"
	"github.com/KilimcininKorOglu/obacore/internal/ldap"
	"github.com/KilimcininKorOglu/obacore/internal/logging"
	"github.com/KilimcininKorOglu/obacore/internal/operation"
	"github.com/KilimcininKorOglu/obacore/internal/plugin"
	"github.com/KilimcininKorOglu/obacore/internal/psearch"
	"github.com/KilimcininKorOglu/obacore/internal/workflow"
)

// errWorkflowSkipped is returned by a prepare step that completed the
// operation itself.
var errWorkflowSkipped = errors.New("workflow skipped")

// steps are the type-specific parts of the lifecycle.
type steps struct {
	// preParse runs before the pre-parse plugins.
	preParse func(ctx context.Context)
	// resolve decodes the raw request values and returns the workflow target.
	resolve func(ctx context.Context) (dn.DN, error)
	// prepare runs after DN resolution, before the last checkpoint.
	prepare func(ctx context.Context) error
	// complete runs after an executed workflow.
	complete func(ctx context.Context)
}

// Option configures a Processor.
type Option func(*Processor)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Processor) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithClock sets the clock used for processing timestamps and cancel waits.
func WithClock(c clock.Clock) Option {
	return func(p *Processor) { p.clock = c }
}

// WithConfig makes the processor read its settings from m on every
// operation.
func WithConfig(m *config.Manager) Option {
	return func(p *Processor) { p.config = m }
}

// WithPersistentSearch enables persistent searches. The registry is
// registered as a change listener.
func WithPersistentSearch(r *psearch.Registry) Option {
	return func(p *Processor) { p.searches = r }
}

// Processor runs operations through the lifecycle.
type Processor struct {
	executor workflow.Executor
	plugins  *plugin.Pipeline
	config   *config.Manager
	searches *psearch.Registry
	changes  *change.Notifier

	clock   clock.Clock
	logger  *zap.Logger
	metrics *metrics
}

// NewProcessor creates a processor executing operations with executor. A
// nil plugins runs no plugins.
func NewProcessor(executor workflow.Executor, plugins *plugin.Pipeline, opts ...Option) *Processor {
	p := &Processor{
		executor: executor,
		plugins:  plugins,
		clock:    clock.New(),
		logger:   zap.NewNop(),
		metrics:  newMetrics(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.config == nil {
		p.config = config.NewManager(nil)
	}
	p.logger = p.logger.With(zap.String("component", "processor"))
	p.changes = change.NewNotifier(p.logger)
	if p.searches != nil {
		p.changes.Register(p.searches)
	}
	return p
}

// PrometheusCollectors returns the processor's metrics.
func (p *Processor) PrometheusCollectors() []prometheus.Collector {
	return p.metrics.collectors()
}

// RegisterChangeListener adds l to the listeners told about every
// successful write.
func (p *Processor) RegisterChangeListener(l change.Listener) change.ListenerID {
	return p.changes.Register(l)
}

// DeregisterChangeListener removes a listener added with
// RegisterChangeListener.
func (p *Processor) DeregisterChangeListener(id change.ListenerID) bool {
	return p.changes.Deregister(id)
}

// Process drives op through the lifecycle. It returns after the
// post-response plugins ran.
func (p *Processor) Process(ctx context.Context, op operation.Operation) {
	cfg := p.config.Get()
	log := p.logger.With(logging.OperationFields(op)...)
	ctx = logging.NewContext(ctx, log)

	op.SetProcessingStartTime(p.clock.Now())

	executed := false
	if s, ok := p.stepsFor(cfg, op); ok {
		executed = p.execute(ctx, op, s)
	} else {
		op.SetResultCode(ldap.ResultProtocolError)
		op.SetErrorMessage(fmt.Sprintf("unsupported operation type %s", op.Type()))
	}

	p.respond(ctx, op, cfg)
	p.postResponse(ctx, op, executed)

	op.SetProcessingStopTime(p.clock.Now())
	op.SetState(operation.StateTerminal)
	p.metrics.observe(op)

	log.Debug("Operation processed",
		zap.Stringer("result", op.ResultCode()),
		zap.Bool("workflow_executed", executed),
		zap.Duration("duration", op.ProcessingDuration()))
}

// Cancel records req on op and waits up to persistentSearch.cancelWait for
// a checkpoint to resolve it.
func (p *Processor) Cancel(ctx context.Context, op operation.Operation, req operation.CancelRequest) operation.CancelResult {
	ctx, cancel := p.clock.WithTimeout(ctx, p.config.Get().PersistentSearch.CancelWait)
	defer cancel()
	return op.Cancel(ctx, req)
}

// ConnectionClosed cancels the persistent searches of a closed connection
// and returns how many there were.
func (p *Processor) ConnectionClosed(connID int64) int {
	if p.searches == nil {
		return 0
	}
	return p.searches.CancelConnection(connID)
}

func (p *Processor) stepsFor(cfg *config.Config, op operation.Operation) (steps, bool) {
	switch op.Type() {
	case operation.TypeAdd:
		if o, ok := op.(operation.AddOperation); ok {
			return p.addSteps(o), true
		}
	case operation.TypeBind:
		if o, ok := op.(operation.BindOperation); ok {
			return p.bindSteps(cfg, o), true
		}
	case operation.TypeCompare:
		if o, ok := op.(operation.CompareOperation); ok {
			return p.compareSteps(o), true
		}
	case operation.TypeDelete:
		if o, ok := op.(operation.DeleteOperation); ok {
			return p.deleteSteps(o), true
		}
	case operation.TypeExtended:
		if o, ok := op.(operation.ExtendedOperation); ok {
			return p.extendedSteps(o), true
		}
	case operation.TypeModify:
		if o, ok := op.(operation.ModifyOperation); ok {
			return p.modifySteps(o), true
		}
	case operation.TypeModifyDN:
		if o, ok := op.(operation.ModifyDNOperation); ok {
			return p.modifyDNSteps(o), true
		}
	case operation.TypeSearch:
		if o, ok := op.(operation.SearchOperation); ok {
			return p.searchSteps(o), true
		}
	}
	return steps{}, false
}

// execute runs the phases up to and including the workflow and reports
// whether a workflow executed.
func (p *Processor) execute(ctx context.Context, op operation.Operation, s steps) bool {
	// Step 1: pre-parse
	op.SetState(operation.StatePreParse)
	if s.preParse != nil {
		s.preParse(ctx)
	}
	if !p.plugins.Invoke(ctx, plugin.PhasePreParse, op) {
		return false
	}
	if !p.checkpoint(op) {
		return false
	}

	// Step 2: DN resolution
	op.SetState(operation.StateDNResolution)
	target, err := s.resolve(ctx)
	if err != nil {
		op.SetError(err)
		return false
	}
	if s.prepare != nil {
		if err := s.prepare(ctx); err != nil {
			if !errors.Is(err, errWorkflowSkipped) {
				op.SetError(err)
			}
			return false
		}
	}
	if !p.checkpoint(op) {
		return false
	}

	// Step 3: workflow
	op.SetState(operation.StateWorkflowExecution)
	if !p.executor.Execute(ctx, op, target) {
		return false
	}
	if s.complete != nil {
		s.complete(ctx)
	}
	p.dispatchChanges(ctx, op)
	return true
}

func (p *Processor) checkpoint(op operation.Operation) bool {
	if err := op.CheckIfCanceled(false); err != nil {
		op.SetError(err)
		return false
	}
	return true
}

// dispatchChanges tells the change listeners about every write the
// workflow committed.
func (p *Processor) dispatchChanges(ctx context.Context, op operation.Operation) {
	if !op.Type().IsWrite() {
		return
	}
	for _, local := range operation.LocalBackendOperations(op) {
		if local.ResultCode() != ldap.ResultSuccess {
			continue
		}
		ev, ok := change.FromOperation(local)
		if !ok {
			continue
		}
		// Listener failures are logged by the notifier.
		_ = p.changes.Notify(ctx, ev)
	}
}

func (p *Processor) respond(ctx context.Context, op operation.Operation, cfg *config.Config) {
	op.SetState(operation.StateResponseSend)
	if op.ResultCode() == ldap.ResultUndefined {
		op.SetResultCode(ldap.ResultOther)
		op.AppendErrorMessage("operation completed without a result")
	}

	if op.ResponseSuppressed() {
		return
	}
	if operation.ResponseWithheld(op, cfg.Operations.NotifyAbandonedOperations) {
		p.metrics.withheld.Inc()
		logging.FromContext(ctx).Debug("Response withheld from canceled operation")
		return
	}

	conn := op.ClientConnection()
	if conn != nil {
		if err := conn.SendResponse(op); err != nil {
			logging.FromContext(ctx).Warn("Failed to send response", zap.Error(err))
			// No checkpoint follows, so a pending cancel can only be too late.
			op.SetCancelResult(operation.CancelResult{Code: ldap.ResultTooLate})
			return
		}
	}
	op.MarkResponseSent()
}

func (p *Processor) postResponse(ctx context.Context, op operation.Operation, executed bool) {
	op.SetState(operation.StatePostResponse)
	if !executed {
		p.plugins.Invoke(ctx, plugin.PhasePostResponse, op)
		return
	}
	for _, local := range operation.LocalBackendOperations(op) {
		p.plugins.Invoke(ctx, plugin.PhasePostResponse, local)
	}
}

// invalidDN returns the error for a raw DN that does not parse.
func invalidDN(what, raw string, err error) error {
	return ldap.WrapDirectoryError(ldap.ResultInvalidDNSyntax,
		fmt.Sprintf("invalid %s %q", what, raw), err)
}
