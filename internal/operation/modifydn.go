package operation

import (
	"github.com/KilimcininKorOglu/obacore/internal/dn"
	"github.com/KilimcininKorOglu/obacore/internal/ldap"
)

// ModifyDNOperation is a rename or move request.
type ModifyDNOperation interface {
	Operation
	RawEntryDN() string
	RawNewRDN() string
	RawNewSuperior() string
	DeleteOldRDN() bool

	EntryDN() dn.DN
	SetEntryDN(d dn.DN)
	NewRDN() dn.RDN
	SetNewRDN(r dn.RDN)
	// NewSuperior returns the resolved new parent, if the request named one.
	NewSuperior() (dn.DN, bool)
	SetNewSuperior(d dn.DN)
	// NewDN returns the DN the entry is renamed to.
	NewDN() (dn.DN, error)

	// OriginalEntry and UpdatedEntry are the before and after images, set
	// by the backend.
	OriginalEntry() *ldap.Entry
	UpdatedEntry() *ldap.Entry
	SetEntries(original, updated *ldap.Entry)
}

// ModifyDN is the concrete modify DN operation.
type ModifyDN struct {
	*Base
	rawEntryDN     string
	rawNewRDN      string
	rawNewSuperior string
	deleteOldRDN   bool

	entryDN        dn.DN
	newRDN         dn.RDN
	newSuperior    dn.DN
	hasNewSuperior bool
	newDN          *dn.DN

	original *ldap.Entry
	updated  *ldap.Entry
}

// NewModifyDN creates a modify DN operation. An empty rawNewSuperior means
// the entry keeps its parent.
func NewModifyDN(h Header, rawEntryDN, rawNewRDN string, deleteOldRDN bool, rawNewSuperior string) *ModifyDN {
	return &ModifyDN{
		Base:           newBase(TypeModifyDN, h),
		rawEntryDN:     rawEntryDN,
		rawNewRDN:      rawNewRDN,
		rawNewSuperior: rawNewSuperior,
		deleteOldRDN:   deleteOldRDN,
	}
}

func (o *ModifyDN) RawEntryDN() string     { return o.rawEntryDN }
func (o *ModifyDN) RawNewRDN() string      { return o.rawNewRDN }
func (o *ModifyDN) RawNewSuperior() string { return o.rawNewSuperior }
func (o *ModifyDN) DeleteOldRDN() bool     { return o.deleteOldRDN }

func (o *ModifyDN) EntryDN() dn.DN {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.entryDN
}

func (o *ModifyDN) SetEntryDN(d dn.DN) {
	o.mu.Lock()
	o.entryDN = d
	o.newDN = nil
	o.mu.Unlock()
}

func (o *ModifyDN) NewRDN() dn.RDN {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.newRDN
}

func (o *ModifyDN) SetNewRDN(r dn.RDN) {
	o.mu.Lock()
	o.newRDN = r
	o.newDN = nil
	o.mu.Unlock()
}

func (o *ModifyDN) NewSuperior() (dn.DN, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.newSuperior, o.hasNewSuperior
}

func (o *ModifyDN) SetNewSuperior(d dn.DN) {
	o.mu.Lock()
	o.newSuperior = d
	o.hasNewSuperior = true
	o.newDN = nil
	o.mu.Unlock()
}

// NewDN computes the new superior (or the current parent) plus the new RDN.
// The result is cached until one of its inputs changes. Renaming the root
// DSE fails with UNWILLING_TO_PERFORM.
func (o *ModifyDN) NewDN() (dn.DN, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.newDN != nil {
		return *o.newDN, nil
	}
	if o.newRDN.IsZero() {
		return dn.DN{}, ldap.NewDirectoryError(ldap.ResultInvalidDNSyntax, "new RDN has not been resolved")
	}

	parent := o.newSuperior
	if !o.hasNewSuperior {
		p, ok := o.entryDN.Parent()
		if !ok {
			return dn.DN{}, ldap.NewDirectoryError(ldap.ResultUnwillingToPerform,
				"the root DSE cannot be renamed")
		}
		parent = p
	}

	newDN := parent.Child(o.newRDN)
	o.newDN = &newDN
	return newDN, nil
}

func (o *ModifyDN) OriginalEntry() *ldap.Entry {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.original
}

func (o *ModifyDN) UpdatedEntry() *ldap.Entry {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.updated
}

func (o *ModifyDN) SetEntries(original, updated *ldap.Entry) {
	o.mu.Lock()
	o.original, o.updated = original, updated
	o.mu.Unlock()
}
