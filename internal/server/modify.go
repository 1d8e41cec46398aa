package server

import (
	"context"

	"github.com/KilimcininKorOglu/obacore/internal/dn"
	"github.com/KilimcininKorOglu/obacore/internal/operation"
)

func (p *Processor) modifySteps(op operation.ModifyOperation) steps {
	return steps{
		resolve: func(context.Context) (dn.DN, error) {
			d, err := dn.Parse(op.RawEntryDN())
			if err != nil {
				return dn.DN{}, invalidDN("entry DN", op.RawEntryDN(), err)
			}
			op.SetEntryDN(d)
			return d, nil
		},
	}
}
