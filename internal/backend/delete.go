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

// Delete removes a leaf entry. The removed entry is recorded on op.
func (m *Memory) Delete(_ context.Context, op operation.DeleteOperation) error {
	target := op.EntryDN()

	var (
		removed *ldap.Entry
		err     error
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
		if hasChildrenLocked(idx, target) {
			err = ldap.NewDirectoryError(ldap.ResultNotAllowedOnNonLeaf,
				fmt.Sprintf("entry %q has subordinates", target.String()))
			return
		}
		idx.Delete(target)
		removed = e
	})
	if err != nil {
		return err
	}

	op.SetDeletedEntry(removed)
	m.logger.Debug("Entry deleted", zap.Stringer("dn", target))
	return nil
}

// hasChildrenLocked reports whether any entry is stored below d.
func hasChildrenLocked(idx *dnindex.Index[*ldap.Entry], d dn.DN) bool {
	found := false
	idx.Subtree(d, func(key dn.DN, _ *ldap.Entry) bool {
		if key.Equal(d) {
			return true
		}
		found = true
		return false
	})
	return found
}
