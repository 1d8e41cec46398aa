package server

import (
	"context"

	"github.com/KilimcininKorOglu/obacore/internal/dn"
	"github.com/KilimcininKorOglu/obacore/internal/operation"
)

// modifyDNSteps resolves the entry DN, the new RDN and the optional new
// superior, then computes the new DN so that a rename of the root DSE
// fails before the workflow.
func (p *Processor) modifyDNSteps(op operation.ModifyDNOperation) steps {
	return steps{
		resolve: func(context.Context) (dn.DN, error) {
			entryDN, err := dn.Parse(op.RawEntryDN())
			if err != nil {
				return dn.DN{}, invalidDN("entry DN", op.RawEntryDN(), err)
			}
			op.SetEntryDN(entryDN)

			newRDN, err := dn.ParseRDN(op.RawNewRDN())
			if err != nil {
				return dn.DN{}, invalidDN("new RDN", op.RawNewRDN(), err)
			}
			op.SetNewRDN(newRDN)

			if raw := op.RawNewSuperior(); raw != "" {
				superior, err := dn.Parse(raw)
				if err != nil {
					return dn.DN{}, invalidDN("new superior", raw, err)
				}
				op.SetNewSuperior(superior)
			}

			if _, err := op.NewDN(); err != nil {
				return dn.DN{}, err
			}
			return entryDN, nil
		},
	}
}
