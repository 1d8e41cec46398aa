package backend

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/KilimcininKorOglu/obacore/internal/dnindex"
	"github.com/KilimcininKorOglu/obacore/internal/ldap"
	"github.com/KilimcininKorOglu/obacore/internal/operation"
)

// Add stores the entry of op. The parent must exist unless the entry is a
// naming context, and the entry must carry an objectClass.
func (m *Memory) Add(_ context.Context, op operation.AddOperation) error {
	e := op.Entry()
	if e == nil {
		return ldap.NewDirectoryError(ldap.ResultProtocolError, "add request carries no entry")
	}
	if !e.HasAttribute(ldap.ObjectClassAttribute) {
		return ldap.NewDirectoryError(ldap.ResultObjectClassViolation,
			fmt.Sprintf("entry %q has no objectClass", e.DN.String()))
	}

	stored := e.Duplicate()
	if m.operational {
		setOperationalAttrs(stored, opAdd, m.clock.Now())
	}

	var err error
	m.entries.Update(func(idx *dnindex.Index[*ldap.Entry]) {
		if err = m.checkAddLocked(idx, stored.DN); err != nil {
			return
		}
		idx.Put(stored.DN, stored)
	})
	if err != nil {
		return err
	}

	op.SetEntry(stored.Duplicate())
	m.logger.Debug("Entry added", zap.Stringer("dn", stored.DN))
	return nil
}
