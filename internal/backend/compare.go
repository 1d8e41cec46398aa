package backend

import (
	"context"

	"github.com/KilimcininKorOglu/obacore/internal/ldap"
	"github.com/KilimcininKorOglu/obacore/internal/operation"
)

// Compare sets COMPARE_TRUE or COMPARE_FALSE depending on whether the entry
// holds the asserted value.
func (m *Memory) Compare(_ context.Context, op operation.CompareOperation) error {
	e, ok := m.entries.Get(op.EntryDN())
	if !ok {
		return m.noSuchObject(op.EntryDN())
	}
	if !e.HasAttribute(op.AttributeType()) {
		return ldap.NewDirectoryError(ldap.ResultNoSuchAttribute,
			"entry has no "+op.AttributeType()+" attribute")
	}
	if e.HasValue(op.AttributeType(), op.AssertionValue()) {
		op.SetResultCode(ldap.ResultCompareTrue)
	} else {
		op.SetResultCode(ldap.ResultCompareFalse)
	}
	return nil
}
