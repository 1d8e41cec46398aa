package backend

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/KilimcininKorOglu/obacore/internal/dnindex"
	"github.com/KilimcininKorOglu/obacore/internal/ldap"
	"github.com/KilimcininKorOglu/obacore/internal/operation"
)

// Modify applies the modifications of op to the stored entry. Either all
// modifications apply or the entry is left untouched.
func (m *Memory) Modify(_ context.Context, op operation.ModifyOperation) error {
	target := op.EntryDN()
	now := m.clock.Now()

	var (
		current, modified *ldap.Entry
		err               error
	)
	m.entries.Update(func(idx *dnindex.Index[*ldap.Entry]) {
		e, ok := idx.Get(target)
		if !ok {
			de := ldap.NewDirectoryError(ldap.ResultNoSuchObject,
				fmt.Sprintf("entry %q does not exist", target.String()))
			de.MatchedDN = matchedLocked(idx, target)
			err = de
			return
		}

		modified, err = ldap.ApplyModifications(e, op.Modifications())
		if err != nil {
			return
		}
		if !modified.HasAttribute(ldap.ObjectClassAttribute) {
			err = ldap.NewDirectoryError(ldap.ResultObjectClassViolation,
				"modification would remove every objectClass value")
			return
		}
		if m.operational {
			setOperationalAttrs(modified, opModify, now)
		}
		idx.Put(target, modified)
		current = e
	})
	if err != nil {
		return err
	}

	op.SetEntries(current, modified.Duplicate())
	m.logger.Debug("Entry modified",
		zap.Stringer("dn", target),
		zap.Int("modifications", len(op.Modifications())))
	return nil
}
