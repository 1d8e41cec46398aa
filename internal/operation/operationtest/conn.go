// Package operationtest provides a recording client connection for tests.
package operationtest

import (
	"sync"

	"github.com/KilimcininKorOglu/obacore/internal/ldap"
	"github.com/KilimcininKorOglu/obacore/internal/operation"
)

// SentEntry is a search result entry written to a Conn.
type SentEntry struct {
	Op       operation.Operation
	Entry    *ldap.Entry
	Controls []ldap.Control
}

// Conn is an operation.ClientConnection that records what is written to it.
type Conn struct {
	ID int64

	mu         sync.Mutex
	responses  []operation.Operation
	entries    []SentEntry
	cancels    []int
	sendErr    error
	respErr    error
	responseCh chan operation.Operation
}

// NewConn returns a connection with the given ID.
func NewConn(id int64) *Conn {
	return &Conn{ID: id, responseCh: make(chan operation.Operation, 64)}
}

func (c *Conn) ConnectionID() int64 { return c.ID }

func (c *Conn) SendResponse(op operation.Operation) error {
	c.mu.Lock()
	if c.respErr != nil {
		err := c.respErr
		c.mu.Unlock()
		return err
	}
	c.responses = append(c.responses, op)
	c.mu.Unlock()
	select {
	case c.responseCh <- op:
	default:
	}
	return nil
}

func (c *Conn) SendSearchEntry(op operation.Operation, entry *ldap.Entry, controls []ldap.Control) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	c.entries = append(c.entries, SentEntry{Op: op, Entry: entry, Controls: controls})
	return nil
}

func (c *Conn) CancelAllOperationsExcept(_ operation.CancelRequest, messageID int) {
	c.mu.Lock()
	c.cancels = append(c.cancels, messageID)
	c.mu.Unlock()
}

// FailSends makes every following SendSearchEntry return err.
func (c *Conn) FailSends(err error) {
	c.mu.Lock()
	c.sendErr = err
	c.mu.Unlock()
}

// FailResponses makes every following SendResponse return err.
func (c *Conn) FailResponses(err error) {
	c.mu.Lock()
	c.respErr = err
	c.mu.Unlock()
}

// Responses returns the operations whose result was sent.
func (c *Conn) Responses() []operation.Operation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]operation.Operation(nil), c.responses...)
}

// ResponseSent returns a channel receiving every operation whose result is
// sent.
func (c *Conn) ResponseSent() <-chan operation.Operation { return c.responseCh }

// Entries returns the search result entries written so far.
func (c *Conn) Entries() []SentEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]SentEntry(nil), c.entries...)
}

// EntryDNs returns the DNs of the search result entries written so far.
func (c *Conn) EntryDNs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.Entry.DN.String()
	}
	return out
}

// CancelAllCalls returns the message IDs passed to CancelAllOperationsExcept.
func (c *Conn) CancelAllCalls() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int(nil), c.cancels...)
}
