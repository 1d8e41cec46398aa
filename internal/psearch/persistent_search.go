package psearch

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/KilimcininKorOglu/obacore/internal/dn"
	"github.com/KilimcininKorOglu/obacore/internal/ldap"
	"github.com/KilimcininKorOglu/obacore/internal/logging"
	"github.com/KilimcininKorOglu/obacore/internal/operation"
)

// CancellationCallback runs once when a persistent search is canceled.
type CancellationCallback func(ps *PersistentSearch)

// PersistentSearch is a search that keeps returning entries as they change
// until it is canceled.
type PersistentSearch struct {
	op          operation.SearchOperation
	changeTypes ChangeType
	changesOnly bool
	returnECs   bool

	registry *Registry
	logger   *zap.Logger

	mu        sync.Mutex
	enabled   bool
	canceled  bool
	callbacks []CancellationCallback
}

// Operation returns the search operation behind ps.
func (ps *PersistentSearch) Operation() operation.SearchOperation { return ps.op }

// ChangeTypes returns the change types ps follows.
func (ps *PersistentSearch) ChangeTypes() ChangeType { return ps.changeTypes }

// ChangesOnly reports whether the initial result set is skipped.
func (ps *PersistentSearch) ChangesOnly() bool { return ps.changesOnly }

// ReturnECs reports whether returned entries carry an entry change
// notification control.
func (ps *PersistentSearch) ReturnECs() bool { return ps.returnECs }

// BaseDN returns the search base.
func (ps *PersistentSearch) BaseDN() dn.DN { return ps.op.BaseDN() }

// IsCanceled reports whether ps was canceled.
func (ps *PersistentSearch) IsCanceled() bool {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return ps.canceled
}

// Enable starts delivering changes to ps. The search operation stops
// sending its own final response; it is sent when ps is terminated. A
// cancel request on the operation terminates ps.
func (ps *PersistentSearch) Enable() error {
	ps.mu.Lock()
	if ps.canceled {
		ps.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrCanceled, ps.op.Key())
	}
	if ps.enabled {
		ps.mu.Unlock()
		return nil
	}
	ps.enabled = true
	ps.mu.Unlock()

	if err := ps.registry.add(ps); err != nil {
		ps.mu.Lock()
		ps.enabled = false
		ps.mu.Unlock()
		return err
	}
	// A Cancel that ran between the check above and add found nothing to
	// remove from the registry.
	ps.mu.Lock()
	canceled := ps.canceled
	ps.mu.Unlock()
	if canceled {
		ps.registry.remove(ps)
		return fmt.Errorf("%w: %s", ErrCanceled, ps.op.Key())
	}
	ps.op.SuppressResponse()
	ps.op.OnAbort(func(req operation.CancelRequest) {
		ps.op.SetCancelResult(operation.CancelResult{Code: ldap.ResultCanceled})
		ps.terminate(ldap.ResultCanceled, req.Reason)
	})

	ps.logger.Debug("Persistent search enabled",
		append(logging.OperationFields(ps.op),
			zap.Stringer("base", ps.op.BaseDN()),
			zap.Stringer("change_types", ps.changeTypes))...)
	return nil
}

// RegisterCancellationCallback adds cb to the callbacks run on cancel. A
// callback registered after ps was canceled never runs.
func (ps *PersistentSearch) RegisterCancellationCallback(cb CancellationCallback) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if ps.canceled {
		return
	}
	next := make([]CancellationCallback, 0, len(ps.callbacks)+1)
	next = append(next, ps.callbacks...)
	ps.callbacks = append(next, cb)
}

// Cancel stops ps. Only the first call has an effect: ps is removed from
// the registry, every cancellation callback runs in registration order and
// every other persistent search of the same request on the same connection
// is canceled too. A failing callback is logged and does not stop the rest.
func (ps *PersistentSearch) Cancel() {
	ps.cancel()
}

func (ps *PersistentSearch) cancel() bool {
	ps.mu.Lock()
	if ps.canceled {
		ps.mu.Unlock()
		return false
	}
	ps.canceled = true
	callbacks := ps.callbacks
	ps.callbacks = nil
	ps.mu.Unlock()

	ps.registry.remove(ps)
	for _, cb := range callbacks {
		ps.runCallback(cb)
	}
	for _, sibling := range ps.registry.siblings(ps) {
		sibling.Cancel()
	}

	ps.logger.Debug("Persistent search canceled", logging.OperationFields(ps.op)...)
	return true
}

func (ps *PersistentSearch) runCallback(cb CancellationCallback) {
	defer func() {
		if r := recover(); r != nil {
			ps.logger.Error("Persistent search cancellation callback panicked",
				append(logging.OperationFields(ps.op), zap.Any("panic", r))...)
		}
	}()
	cb(ps)
}

// terminate cancels ps and sends the final result of its search with the
// given code, unless the result must be withheld from an abandoned
// requester.
func (ps *PersistentSearch) terminate(code ldap.ResultCode, message string) {
	if !ps.cancel() {
		return
	}
	ps.op.SetResultCode(code)
	if message != "" {
		ps.op.SetErrorMessage(message)
	}
	if operation.ResponseWithheld(ps.op, ps.registry.settings().NotifyAbandonedOperations) {
		return
	}
	conn := ps.op.ClientConnection()
	if conn == nil || ps.op.ResponseSent() {
		return
	}
	if err := conn.SendResponse(ps.op); err != nil {
		ps.logger.Debug("Could not send persistent search result",
			append(logging.OperationFields(ps.op), zap.Error(err))...)
		return
	}
	ps.op.MarkResponseSent()
}

// inScope reports whether d is within the scope of the search.
func (ps *PersistentSearch) inScope(d dn.DN) bool {
	return ps.op.Scope().Contains(ps.op.BaseDN(), d)
}

func (ps *PersistentSearch) matches(e *ldap.Entry) bool {
	return e != nil && ps.op.Filter().Matches(e)
}

// ProcessAdd returns e to the client if ps follows adds and e is in scope
// and matches the filter. It reports whether e was sent.
func (ps *PersistentSearch) ProcessAdd(e *ldap.Entry, changeNumber int64) bool {
	if e == nil || !ps.changeTypes.Has(ChangeTypeAdd) || !ps.inScope(e.DN) || !ps.matches(e) {
		return false
	}
	return ps.send(e, EntryChangeNotification{ChangeType: ChangeTypeAdd, ChangeNumber: changeNumber})
}

// ProcessDelete returns the deleted entry e under the same rules as ProcessAdd.
func (ps *PersistentSearch) ProcessDelete(e *ldap.Entry, changeNumber int64) bool {
	if e == nil || !ps.changeTypes.Has(ChangeTypeDelete) || !ps.inScope(e.DN) || !ps.matches(e) {
		return false
	}
	return ps.send(e, EntryChangeNotification{ChangeType: ChangeTypeDelete, ChangeNumber: changeNumber})
}

// ProcessModify returns the modified entry when either image is in scope
// and matches the filter.
func (ps *PersistentSearch) ProcessModify(e, old *ldap.Entry, changeNumber int64) bool {
	if e == nil || !ps.changeTypes.Has(ChangeTypeModify) {
		return false
	}
	if !ps.inScope(e.DN) && (old == nil || !ps.inScope(old.DN)) {
		return false
	}
	if !ps.matches(e) && !ps.matches(old) {
		return false
	}
	return ps.send(e, EntryChangeNotification{ChangeType: ChangeTypeModify, ChangeNumber: changeNumber})
}

// ProcessModifyDN returns the renamed entry when either its old or its new
// DN is in scope, so a rename across the scope boundary is reported once.
// old is the entry before the rename.
func (ps *PersistentSearch) ProcessModifyDN(e, old *ldap.Entry, changeNumber int64) bool {
	if e == nil || old == nil || !ps.changeTypes.Has(ChangeTypeModDN) {
		return false
	}
	if !ps.inScope(e.DN) && !ps.inScope(old.DN) {
		return false
	}
	if !ps.matches(e) && !ps.matches(old) {
		return false
	}
	return ps.send(e, EntryChangeNotification{
		ChangeType:   ChangeTypeModDN,
		PreviousDN:   old.DN.String(),
		ChangeNumber: changeNumber,
	})
}

// send returns e through the search operation. A failed or refused
// delivery terminates ps alone.
func (ps *PersistentSearch) send(e *ldap.Entry, ecn EntryChangeNotification) bool {
	if ps.IsCanceled() {
		return false
	}
	var controls []ldap.Control
	if ps.returnECs {
		controls = append(controls, ecn.Control())
	}

	ok, err := ps.op.ReturnEntry(e, controls)
	switch {
	case err != nil:
		ps.registry.deliveryFailed(ps, err)
		ps.terminate(ldap.ResultOther, fmt.Sprintf("persistent search delivery failed: %v", err))
		return false
	case !ok:
		ps.registry.deliveryFailed(ps, nil)
		ps.terminate(ps.op.ResultCode(), "client refused further entries")
		return false
	}
	ps.registry.delivered(ecn.ChangeType)
	return true
}
