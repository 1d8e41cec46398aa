package backend

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/KilimcininKorOglu/obacore/internal/dn"
	"github.com/KilimcininKorOglu/obacore/internal/dnindex"
	"github.com/KilimcininKorOglu/obacore/internal/ldap"
	"github.com/KilimcininKorOglu/obacore/internal/operation"
)

// ModifyDN renames or moves an entry together with its whole subtree.
func (m *Memory) ModifyDN(_ context.Context, op operation.ModifyDNOperation) error {
	oldDN := op.EntryDN()
	newDN, err := op.NewDN()
	if err != nil {
		return err
	}
	if !m.holds(newDN) {
		return ldap.NewDirectoryError(ldap.ResultAffectsMultipleDSAs,
			fmt.Sprintf("%q is not within a naming context of backend %s", newDN.String(), m.id))
	}
	if newDN.IsDescendantOf(oldDN) {
		return ldap.NewDirectoryError(ldap.ResultUnwillingToPerform,
			"an entry cannot be moved below itself")
	}
	now := m.clock.Now()

	var (
		original, updated *ldap.Entry
		moved             int
	)
	m.entries.Update(func(idx *dnindex.Index[*ldap.Entry]) {
		e, ok := idx.Get(oldDN)
		if !ok {
			de := ldap.NewDirectoryError(ldap.ResultNoSuchObject,
				fmt.Sprintf("entry %q does not exist", oldDN.String()))
			de.MatchedDN = matchedLocked(idx, oldDN)
			err = de
			return
		}
		if !newDN.Equal(oldDN) {
			if _, exists := idx.Get(newDN); exists {
				err = ldap.NewDirectoryError(ldap.ResultEntryAlreadyExists,
					fmt.Sprintf("entry %q already exists", newDN.String()))
				return
			}
		}
		if parent, ok := newDN.Parent(); ok && !m.isSuffix(newDN) {
			if _, exists := idx.Get(parent); !exists {
				de := ldap.NewDirectoryError(ldap.ResultNoSuchObject,
					fmt.Sprintf("new superior %q does not exist", parent.String()))
				de.MatchedDN = matchedLocked(idx, parent)
				err = de
				return
			}
		}

		type move struct {
			from dn.DN
			e    *ldap.Entry
		}
		var subtree []move
		idx.Subtree(oldDN, func(key dn.DN, v *ldap.Entry) bool {
			subtree = append(subtree, move{from: key, e: v})
			return true
		})
		for _, mv := range subtree {
			idx.Delete(mv.from)
		}

		updated = e.Rename(newDN, op.DeleteOldRDN())
		if m.operational {
			setOperationalAttrs(updated, opRename, now)
		}
		for _, mv := range subtree {
			if mv.from.Equal(oldDN) {
				idx.Put(newDN, updated)
				continue
			}
			to, _ := mv.from.Rebase(oldDN, newDN)
			child := mv.e.WithDN(to)
			if m.operational {
				child.SetAttribute(AttrEntryDN, to.String())
			}
			idx.Put(to, child)
		}
		original = e
		moved = len(subtree)
	})
	if err != nil {
		return err
	}

	op.SetEntries(original, updated.Duplicate())
	m.logger.Debug("Entry renamed",
		zap.Stringer("from", oldDN),
		zap.Stringer("to", newDN),
		zap.Int("entries", moved))
	return nil
}
