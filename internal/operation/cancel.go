package operation

import (
	"context"

	"github.com/KilimcininKorOglu/obacore/internal/ldap"
)

// CancelRequest returns the pending cancel request, or nil.
func (b *Base) CancelRequest() *CancelRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cancelRequest == nil {
		return nil
	}
	req := *b.cancelRequest
	return &req
}

// CancelResult returns the resolved cancel result, or nil.
func (b *Base) CancelResult() *CancelResult {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cancelResult == nil {
		return nil
	}
	res := *b.cancelResult
	return &res
}

// SetCancelResult resolves the pending cancel request.
func (b *Base) SetCancelResult(result CancelResult) {
	b.mu.Lock()
	b.resolveLocked(result)
	b.mu.Unlock()
}

// resolveLocked must be called with mu held.
func (b *Base) resolveLocked(result CancelResult) bool {
	if b.cancelRequest == nil || b.cancelResult != nil {
		return false
	}
	b.cancelResult = &result
	close(b.cancelDone)
	return true
}

// Abort records req. Only the first request is kept. A request that arrives
// after the response was sent resolves to TOO_LATE immediately.
func (b *Base) Abort(req CancelRequest) {
	b.mu.Lock()
	if b.cancelRequest != nil {
		b.mu.Unlock()
		return
	}
	b.cancelRequest = &req
	if b.responseSent {
		b.resolveLocked(CancelResult{Code: ldap.ResultTooLate})
	}
	hooks := b.abortHooks
	b.abortHooks = nil
	b.mu.Unlock()

	for _, fn := range hooks {
		fn(req)
	}
}

// Cancel records req and waits for the operation to resolve it. The result
// is CANCELED when a checkpoint stopped the operation, TOO_LATE when the
// response went out first and CANNOT_CANCEL when ctx ended before either.
func (b *Base) Cancel(ctx context.Context, req CancelRequest) CancelResult {
	b.Abort(req)

	select {
	case <-b.cancelDone:
		b.mu.Lock()
		defer b.mu.Unlock()
		return *b.cancelResult
	case <-ctx.Done():
		return CancelResult{Code: ldap.ResultCannotCancel, Message: ctx.Err().Error()}
	}
}

// OnAbort registers fn to run once a cancel request is recorded. When a
// request is already recorded fn runs immediately.
func (b *Base) OnAbort(fn func(CancelRequest)) {
	b.mu.Lock()
	if b.cancelRequest == nil {
		b.abortHooks = append(b.abortHooks, fn)
		b.mu.Unlock()
		return
	}
	req := *b.cancelRequest
	b.mu.Unlock()
	fn(req)
}

// CheckIfCanceled returns a *CanceledError when a cancel request is pending
// and resolves it to CANCELED. With signalTooLate set the request resolves
// to TOO_LATE and nil is returned.
func (b *Base) CheckIfCanceled(signalTooLate bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cancelRequest == nil {
		return nil
	}
	if b.cancelResult != nil {
		if b.cancelResult.Code == ldap.ResultCanceled {
			return &CanceledError{Request: *b.cancelRequest}
		}
		return nil
	}
	if signalTooLate {
		b.resolveLocked(CancelResult{Code: ldap.ResultTooLate})
		return nil
	}
	b.resolveLocked(CancelResult{Code: ldap.ResultCanceled})
	return &CanceledError{Request: *b.cancelRequest}
}

// MarkResponseSent records that the final response went out. A cancel
// request still pending at this point resolves to TOO_LATE.
func (b *Base) MarkResponseSent() {
	b.mu.Lock()
	b.responseSent = true
	b.resolveLocked(CancelResult{Code: ldap.ResultTooLate})
	b.mu.Unlock()
}

// ResponseSent reports whether the final response went out.
func (b *Base) ResponseSent() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.responseSent
}

// ResponseWithheld reports whether the final response of op must not be
// sent: op was canceled, the requester did not ask to be notified and
// notifyAbandoned is off.
func ResponseWithheld(op Operation, notifyAbandoned bool) bool {
	req := op.CancelRequest()
	if req == nil || req.NotifyOriginalRequestor || notifyAbandoned {
		return false
	}
	if op.ResultCode() == ldap.ResultCanceled {
		return true
	}
	res := op.CancelResult()
	return res != nil && res.Code == ldap.ResultCanceled
}
