package server

import (
	"context"

	"github.com/KilimcininKorOglu/obacore/internal/dn"
	"github.com/KilimcininKorOglu/obacore/internal/ldap"
	"github.com/KilimcininKorOglu/obacore/internal/operation"
)

func (p *Processor) deleteSteps(op operation.DeleteOperation) steps {
	return steps{
		resolve: func(context.Context) (dn.DN, error) {
			d, err := dn.Parse(op.RawEntryDN())
			if err != nil {
				return dn.DN{}, invalidDN("entry DN", op.RawEntryDN(), err)
			}
			if d.IsRoot() {
				return dn.DN{}, ldap.NewDirectoryError(ldap.ResultUnwillingToPerform,
					"the root DSE cannot be deleted")
			}
			op.SetEntryDN(d)
			return d, nil
		},
	}
}
