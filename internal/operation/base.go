package operation

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/KilimcininKorOglu/obacore/internal/dn"
	"github.com/KilimcininKorOglu/obacore/internal/ldap"
)

// Header carries the identity and controls every operation is created with.
type Header struct {
	// Conn is the connection the request arrived on. Nil for internal operations.
	Conn        ClientConnection
	OperationID int64
	MessageID   int
	Controls    []ldap.Control
}

// Base implements the parts of Operation that do not depend on the request
// type. Concrete operation types embed it.
type Base struct {
	typ         Type
	conn        ClientConnection
	connID      int64
	operationID int64
	messageID   int

	mu               sync.Mutex
	requestControls  []ldap.Control
	responseControls []ldap.Control
	resultCode       ldap.ResultCode
	errorMessage     strings.Builder
	matchedDN        dn.DN
	attachments      map[string]any

	cancelRequest *CancelRequest
	cancelResult  *CancelResult
	cancelDone    chan struct{}
	abortHooks    []func(CancelRequest)

	suppressed   bool
	responseSent bool

	state     State
	startTime time.Time
	stopTime  time.Time
}

func newBase(typ Type, h Header) *Base {
	connID := InternalConnectionID
	if h.Conn != nil {
		connID = h.Conn.ConnectionID()
	}
	return &Base{
		typ:             typ,
		conn:            h.Conn,
		connID:          connID,
		operationID:     h.OperationID,
		messageID:       h.MessageID,
		requestControls: append([]ldap.Control(nil), h.Controls...),
		resultCode:      ldap.ResultUndefined,
		attachments:     make(map[string]any),
		cancelDone:      make(chan struct{}),
	}
}

// Type returns the operation type.
func (b *Base) Type() Type { return b.typ }

// Key returns the identity used for equality.
func (b *Base) Key() Key { return Key{ConnectionID: b.connID, OperationID: b.operationID} }

// ConnectionID returns the ID of the originating connection.
func (b *Base) ConnectionID() int64 { return b.connID }

// OperationID returns the per-connection operation ID.
func (b *Base) OperationID() int64 { return b.operationID }

// MessageID returns the client supplied message ID.
func (b *Base) MessageID() int { return b.messageID }

// ClientConnection returns the originating connection, nil for internal operations.
func (b *Base) ClientConnection() ClientConnection { return b.conn }

// RequestControls returns the request controls in the order they were sent.
func (b *Base) RequestControls() []ldap.Control {
	return b.requestControls
}

// RequestControl returns the first request control with the given OID.
func (b *Base) RequestControl(oid string) (ldap.Control, bool) {
	return ldap.FindControl(b.requestControls, oid)
}

// ResponseControls returns a copy of the response controls.
func (b *Base) ResponseControls() []ldap.Control {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]ldap.Control(nil), b.responseControls...)
}

// AddResponseControl appends a control to the response.
func (b *Base) AddResponseControl(c ldap.Control) {
	b.mu.Lock()
	b.responseControls = append(b.responseControls, c)
	b.mu.Unlock()
}

// ResultCode returns the current result code. It is ResultUndefined until set.
func (b *Base) ResultCode() ldap.ResultCode {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.resultCode
}

// SetResultCode sets the result code.
func (b *Base) SetResultCode(code ldap.ResultCode) {
	b.mu.Lock()
	b.resultCode = code
	b.mu.Unlock()
}

// ErrorMessage returns the diagnostic message.
func (b *Base) ErrorMessage() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.errorMessage.String()
}

// SetErrorMessage replaces the diagnostic message.
func (b *Base) SetErrorMessage(msg string) {
	b.mu.Lock()
	b.errorMessage.Reset()
	b.errorMessage.WriteString(msg)
	b.mu.Unlock()
}

// AppendErrorMessage appends to the diagnostic message, separated by a space.
func (b *Base) AppendErrorMessage(msg string) {
	b.mu.Lock()
	if b.errorMessage.Len() > 0 {
		b.errorMessage.WriteByte(' ')
	}
	b.errorMessage.WriteString(msg)
	b.mu.Unlock()
}

// MatchedDN returns the matched DN.
func (b *Base) MatchedDN() dn.DN {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.matchedDN
}

// SetMatchedDN sets the matched DN.
func (b *Base) SetMatchedDN(d dn.DN) {
	b.mu.Lock()
	b.matchedDN = d
	b.mu.Unlock()
}

// SetError copies the result of err onto the operation. Errors that carry
// no result code map to OTHER; cancellation errors map to CANCELED.
func (b *Base) SetError(err error) {
	if err == nil {
		return
	}
	code := ldap.ResultCodeOf(err, ldap.ResultOther)
	if errors.Is(err, ErrCanceled) {
		code = ldap.ResultCanceled
	}

	var de *ldap.DirectoryError
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resultCode = code
	b.errorMessage.Reset()
	b.errorMessage.WriteString(ldap.MessageOf(err))
	if errors.As(err, &de) && !de.MatchedDN.IsRoot() {
		b.matchedDN = de.MatchedDN
	}
}

// Attachment returns the named attachment.
func (b *Base) Attachment(name string) (any, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.attachments[name]
	return v, ok
}

// SetAttachment stores an attachment and returns the previous value.
func (b *Base) SetAttachment(name string, value any) any {
	b.mu.Lock()
	defer b.mu.Unlock()
	old := b.attachments[name]
	b.attachments[name] = value
	return old
}

// RemoveAttachment removes an attachment and returns its value.
func (b *Base) RemoveAttachment(name string) any {
	b.mu.Lock()
	defer b.mu.Unlock()
	old := b.attachments[name]
	delete(b.attachments, name)
	return old
}

// SuppressResponse marks the operation as not sending a final response.
func (b *Base) SuppressResponse() {
	b.mu.Lock()
	b.suppressed = true
	b.mu.Unlock()
}

// ResponseSuppressed reports whether SuppressResponse was called.
func (b *Base) ResponseSuppressed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.suppressed
}

// State returns the lifecycle state.
func (b *Base) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// SetState moves the operation to a lifecycle state.
func (b *Base) SetState(s State) {
	b.mu.Lock()
	b.state = s
	b.mu.Unlock()
}

// ProcessingStartTime returns when processing started.
func (b *Base) ProcessingStartTime() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.startTime
}

// SetProcessingStartTime records when processing started.
func (b *Base) SetProcessingStartTime(t time.Time) {
	b.mu.Lock()
	b.startTime = t
	b.mu.Unlock()
}

// ProcessingStopTime returns when processing stopped.
func (b *Base) ProcessingStopTime() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stopTime
}

// SetProcessingStopTime records when processing stopped.
func (b *Base) SetProcessingStopTime(t time.Time) {
	b.mu.Lock()
	b.stopTime = t
	b.mu.Unlock()
}

// ProcessingDuration returns stop minus start, or zero while still running.
func (b *Base) ProcessingDuration() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.startTime.IsZero() || b.stopTime.IsZero() {
		return 0
	}
	return b.stopTime.Sub(b.startTime)
}
