package operation

import (
	"github.com/KilimcininKorOglu/obacore/internal/dn"
)

// BindOperation is a simple bind request.
type BindOperation interface {
	Operation
	RawBindDN() string
	BindDN() dn.DN
	SetBindDN(d dn.DN)
	Password() string
	// AuthenticatedDN is the identity the connection is bound as after a
	// successful bind.
	AuthenticatedDN() dn.DN
	SetAuthenticatedDN(d dn.DN)
}

// Bind is the concrete bind operation.
type Bind struct {
	*Base
	rawBindDN       string
	password        string
	bindDN          dn.DN
	authenticatedDN dn.DN
}

// NewBind creates a simple bind operation.
func NewBind(h Header, rawBindDN, password string) *Bind {
	return &Bind{
		Base:      newBase(TypeBind, h),
		rawBindDN: rawBindDN,
		password:  password,
	}
}

func (o *Bind) RawBindDN() string { return o.rawBindDN }
func (o *Bind) Password() string  { return o.password }

func (o *Bind) BindDN() dn.DN {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.bindDN
}

func (o *Bind) SetBindDN(d dn.DN) {
	o.mu.Lock()
	o.bindDN = d
	o.mu.Unlock()
}

func (o *Bind) AuthenticatedDN() dn.DN {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.authenticatedDN
}

func (o *Bind) SetAuthenticatedDN(d dn.DN) {
	o.mu.Lock()
	o.authenticatedDN = d
	o.mu.Unlock()
}
