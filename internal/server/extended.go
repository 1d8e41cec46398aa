package server

import (
	"context"

	"github.com/KilimcininKorOglu/obacore/internal/dn"
	"github.com/KilimcininKorOglu/obacore/internal/operation"
)

// extendedSteps routes by request OID; the target is always the root DSE.
func (p *Processor) extendedSteps(operation.ExtendedOperation) steps {
	return steps{
		resolve: func(context.Context) (dn.DN, error) {
			return dn.Root(), nil
		},
	}
}
