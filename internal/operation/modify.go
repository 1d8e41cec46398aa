package operation

import (
	"github.com/KilimcininKorOglu/obacore/internal/dn"
	"github.com/KilimcininKorOglu/obacore/internal/ldap"
)

// ModifyOperation is a modify request.
type ModifyOperation interface {
	Operation
	RawEntryDN() string
	EntryDN() dn.DN
	SetEntryDN(d dn.DN)
	Modifications() []ldap.Modification
	// CurrentEntry and ModifiedEntry are the before and after images, set
	// by the backend.
	CurrentEntry() *ldap.Entry
	ModifiedEntry() *ldap.Entry
	SetEntries(current, modified *ldap.Entry)
}

// Modify is the concrete modify operation.
type Modify struct {
	*Base
	rawEntryDN    string
	modifications []ldap.Modification
	entryDN       dn.DN
	current       *ldap.Entry
	modified      *ldap.Entry
}

// NewModify creates a modify operation.
func NewModify(h Header, rawEntryDN string, mods []ldap.Modification) *Modify {
	return &Modify{
		Base:          newBase(TypeModify, h),
		rawEntryDN:    rawEntryDN,
		modifications: mods,
	}
}

func (o *Modify) RawEntryDN() string                  { return o.rawEntryDN }
func (o *Modify) Modifications() []ldap.Modification { return o.modifications }

func (o *Modify) EntryDN() dn.DN {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.entryDN
}

func (o *Modify) SetEntryDN(d dn.DN) {
	o.mu.Lock()
	o.entryDN = d
	o.mu.Unlock()
}

func (o *Modify) CurrentEntry() *ldap.Entry {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.current
}

func (o *Modify) ModifiedEntry() *ldap.Entry {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.modified
}

func (o *Modify) SetEntries(current, modified *ldap.Entry) {
	o.mu.Lock()
	o.current, o.modified = current, modified
	o.mu.Unlock()
}
