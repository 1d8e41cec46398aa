package backend

import (
	"context"

	"github.com/KilimcininKorOglu/obacore/internal/dn"
	"github.com/KilimcininKorOglu/obacore/internal/dnindex"
	"github.com/KilimcininKorOglu/obacore/internal/ldap"
	"github.com/KilimcininKorOglu/obacore/internal/operation"
)

// Search returns the entries within the scope of op that match its filter.
// Candidates are collected under the read lock and sent after it is
// released, checking for cancellation between entries.
func (m *Memory) Search(ctx context.Context, op operation.SearchOperation) error {
	base := op.BaseDN()
	scope := op.Scope()
	f := op.Filter()

	var (
		found      bool
		candidates []*ldap.Entry
	)
	m.entries.View(func(idx *dnindex.Index[*ldap.Entry]) {
		if _, found = idx.Get(base); !found {
			return
		}
		if op.SkipInitialResults() {
			return
		}
		idx.Subtree(base, func(key dn.DN, e *ldap.Entry) bool {
			if scope.Contains(base, key) && f.Matches(e) {
				candidates = append(candidates, e)
			}
			return true
		})
	})
	if !found {
		return m.noSuchObject(base)
	}

	for _, e := range candidates {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := op.CheckIfCanceled(false); err != nil {
			return err
		}
		more, err := op.ReturnEntry(e, nil)
		if err != nil {
			return err
		}
		if !more {
			break
		}
	}
	return nil
}
