package operation

import (
	"github.com/KilimcininKorOglu/obacore/internal/dn"
	"github.com/KilimcininKorOglu/obacore/internal/ldap"
)

// AddOperation is an add request.
type AddOperation interface {
	Operation
	RawEntryDN() string
	EntryDN() dn.DN
	SetEntryDN(d dn.DN)
	RawAttributes() []ldap.Attribute
	// Entry returns the entry to add, built from the resolved DN and the
	// request attributes on first use.
	Entry() *ldap.Entry
	SetEntry(e *ldap.Entry)
}

// Add is the concrete add operation.
type Add struct {
	*Base
	rawEntryDN string
	attributes []ldap.Attribute
	entryDN    dn.DN
	entry      *ldap.Entry
}

// NewAdd creates an add operation.
func NewAdd(h Header, rawEntryDN string, attrs []ldap.Attribute) *Add {
	return &Add{
		Base:       newBase(TypeAdd, h),
		rawEntryDN: rawEntryDN,
		attributes: attrs,
	}
}

func (o *Add) RawEntryDN() string              { return o.rawEntryDN }
func (o *Add) RawAttributes() []ldap.Attribute { return o.attributes }

func (o *Add) EntryDN() dn.DN {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.entryDN
}

func (o *Add) SetEntryDN(d dn.DN) {
	o.mu.Lock()
	o.entryDN = d
	o.entry = nil
	o.mu.Unlock()
}

func (o *Add) Entry() *ldap.Entry {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.entry == nil {
		o.entry = ldap.EntryFromAttributes(o.entryDN, o.attributes)
	}
	return o.entry
}

func (o *Add) SetEntry(e *ldap.Entry) {
	o.mu.Lock()
	o.entry = e
	o.mu.Unlock()
}
