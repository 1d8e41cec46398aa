package backend

import (
	"context"
	"fmt"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/KilimcininKorOglu/obacore/internal/dn"
	"github.com/KilimcininKorOglu/obacore/internal/dnindex"
	"github.com/KilimcininKorOglu/obacore/internal/ldap"
)

// PasswordAttribute is the standard LDAP attribute name for user passwords.
const PasswordAttribute = "userpassword"

// Option configures a Memory backend.
type Option func(*Memory)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Memory) { m.logger = l }
}

// WithClock sets the clock used for operational timestamps.
func WithClock(c clock.Clock) Option {
	return func(m *Memory) { m.clock = c }
}

// WithoutOperationalAttributes stops the backend from maintaining
// operational attributes on stored entries.
func WithoutOperationalAttributes() Option {
	return func(m *Memory) { m.operational = false }
}

// Memory is a backend that keeps its entries in memory.
type Memory struct {
	id       string
	suffixes []dn.DN

	logger      *zap.Logger
	clock       clock.Clock
	operational bool

	entries *dnindex.Concurrent[*ldap.Entry]
}

// NewMemory creates an empty backend serving the given naming contexts.
func NewMemory(id string, suffixes []dn.DN, opts ...Option) *Memory {
	m := &Memory{
		id:          id,
		suffixes:    append([]dn.DN(nil), suffixes...),
		logger:      zap.NewNop(),
		clock:       clock.New(),
		operational: true,
		entries:     dnindex.NewConcurrent[*ldap.Entry](),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With(zap.String("backend", id))
	return m
}

// ID returns the backend identifier.
func (m *Memory) ID() string { return m.id }

// Suffixes returns the naming contexts served by the backend.
func (m *Memory) Suffixes() []dn.DN {
	return append([]dn.DN(nil), m.suffixes...)
}

// Len returns the number of stored entries.
func (m *Memory) Len() int { return m.entries.Len() }

// GetEntry returns a copy of the entry stored at d.
func (m *Memory) GetEntry(_ context.Context, d dn.DN) (*ldap.Entry, error) {
	e, ok := m.entries.Get(d)
	if !ok {
		return nil, m.noSuchObject(d)
	}
	return e.Duplicate(), nil
}

// Load stores entries without running them through an add operation.
// Entries are stored in the order given, so parents must precede children.
func (m *Memory) Load(entries ...*ldap.Entry) error {
	var err error
	m.entries.Update(func(idx *dnindex.Index[*ldap.Entry]) {
		for _, e := range entries {
			if err = m.checkAddLocked(idx, e.DN); err != nil {
				return
			}
			stored := e.Duplicate()
			if m.operational {
				setOperationalAttrs(stored, opAdd, m.clock.Now())
			}
			idx.Put(e.DN, stored)
		}
	})
	return err
}

// isSuffix reports whether d is one of the backend's naming contexts.
func (m *Memory) isSuffix(d dn.DN) bool {
	for _, s := range m.suffixes {
		if s.Equal(d) {
			return true
		}
	}
	return false
}

// holds reports whether d is at or below one of the backend's naming contexts.
func (m *Memory) holds(d dn.DN) bool {
	for _, s := range m.suffixes {
		if d.IsWithin(s) {
			return true
		}
	}
	return false
}

// checkAddLocked verifies that an entry may be stored at d.
func (m *Memory) checkAddLocked(idx *dnindex.Index[*ldap.Entry], d dn.DN) error {
	if !m.holds(d) {
		return ldap.NewDirectoryError(ldap.ResultNoSuchObject,
			fmt.Sprintf("%q is not within a naming context of backend %s", d.String(), m.id))
	}
	if _, exists := idx.Get(d); exists {
		return ldap.NewDirectoryError(ldap.ResultEntryAlreadyExists,
			fmt.Sprintf("entry %q already exists", d.String()))
	}
	if m.isSuffix(d) {
		return nil
	}
	parent, _ := d.Parent()
	if _, ok := idx.Get(parent); !ok {
		err := ldap.NewDirectoryError(ldap.ResultNoSuchObject,
			fmt.Sprintf("parent entry %q does not exist", parent.String()))
		err.MatchedDN = matchedLocked(idx, parent)
		return err
	}
	return nil
}

func (m *Memory) noSuchObject(d dn.DN) *ldap.DirectoryError {
	err := ldap.NewDirectoryError(ldap.ResultNoSuchObject,
		fmt.Sprintf("entry %q does not exist", d.String()))
	m.entries.View(func(idx *dnindex.Index[*ldap.Entry]) {
		err.MatchedDN = matchedLocked(idx, d)
	})
	return err
}

// matchedLocked returns the deepest existing entry at or above d.
func matchedLocked(idx *dnindex.Index[*ldap.Entry], d dn.DN) dn.DN {
	matched, _, _ := idx.Nearest(d)
	return matched
}
