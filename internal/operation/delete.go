package operation

import (
	"github.com/KilimcininKorOglu/obacore/internal/dn"
	"github.com/KilimcininKorOglu/obacore/internal/ldap"
)

// DeleteOperation is a delete request.
type DeleteOperation interface {
	Operation
	RawEntryDN() string
	EntryDN() dn.DN
	SetEntryDN(d dn.DN)
	// DeletedEntry is the entry as it was before removal, set by the backend.
	DeletedEntry() *ldap.Entry
	SetDeletedEntry(e *ldap.Entry)
}

// Delete is the concrete delete operation.
type Delete struct {
	*Base
	rawEntryDN   string
	entryDN      dn.DN
	deletedEntry *ldap.Entry
}

// NewDelete creates a delete operation.
func NewDelete(h Header, rawEntryDN string) *Delete {
	return &Delete{
		Base:       newBase(TypeDelete, h),
		rawEntryDN: rawEntryDN,
	}
}

func (o *Delete) RawEntryDN() string { return o.rawEntryDN }

func (o *Delete) EntryDN() dn.DN {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.entryDN
}

func (o *Delete) SetEntryDN(d dn.DN) {
	o.mu.Lock()
	o.entryDN = d
	o.mu.Unlock()
}

func (o *Delete) DeletedEntry() *ldap.Entry {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.deletedEntry
}

func (o *Delete) SetDeletedEntry(e *ldap.Entry) {
	o.mu.Lock()
	o.deletedEntry = e
	o.mu.Unlock()
}
