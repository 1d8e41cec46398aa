package operation

import (
	"github.com/KilimcininKorOglu/obacore/internal/dn"
)

// CompareOperation is a compare request.
type CompareOperation interface {
	Operation
	RawEntryDN() string
	EntryDN() dn.DN
	SetEntryDN(d dn.DN)
	AttributeType() string
	AssertionValue() string
}

// Compare is the concrete compare operation.
type Compare struct {
	*Base
	rawEntryDN     string
	attributeType  string
	assertionValue string
	entryDN        dn.DN
}

// NewCompare creates a compare operation.
func NewCompare(h Header, rawEntryDN, attributeType, assertionValue string) *Compare {
	return &Compare{
		Base:           newBase(TypeCompare, h),
		rawEntryDN:     rawEntryDN,
		attributeType:  attributeType,
		assertionValue: assertionValue,
	}
}

func (o *Compare) RawEntryDN() string     { return o.rawEntryDN }
func (o *Compare) AttributeType() string  { return o.attributeType }
func (o *Compare) AssertionValue() string { return o.assertionValue }

func (o *Compare) EntryDN() dn.DN {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.entryDN
}

func (o *Compare) SetEntryDN(d dn.DN) {
	o.mu.Lock()
	o.entryDN = d
	o.mu.Unlock()
}
