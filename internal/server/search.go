package server

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/KilimcininKorOglu/obacore/internal/dn"
	"github.com/KilimcininKorOglu/obacore/internal/ldap"
	"github.com/KilimcininKorOglu/obacore/internal/logging"
	"github.com/KilimcininKorOglu/obacore/internal/operation"
	"github.com/KilimcininKorOglu/obacore/internal/psearch"
)

// searchSteps resolves the base DN and, when the persistent search control
// is present, creates the persistent search before the workflow returns the
// initial results and enables it once they completed without error.
func (p *Processor) searchSteps(op operation.SearchOperation) steps {
	var ps *psearch.PersistentSearch
	return steps{
		resolve: func(context.Context) (dn.DN, error) {
			d, err := dn.Parse(op.RawBaseDN())
			if err != nil {
				return dn.DN{}, invalidDN("base DN", op.RawBaseDN(), err)
			}
			op.SetBaseDN(d)
			return d, nil
		},
		prepare: func(context.Context) error {
			ctrl, found, err := psearch.FindRequestControl(op.RequestControls())
			if err != nil {
				return ldap.WrapDirectoryError(ldap.ResultProtocolError, "malformed persistent search control", err)
			}
			if !found {
				return nil
			}
			if p.searches == nil {
				if c, _ := ldap.FindControl(op.RequestControls(), psearch.ControlTypePersistentSearch); c.Criticality {
					return ldap.NewDirectoryError(ldap.ResultUnavailableCriticalExtension,
						"persistent search is not supported")
				}
				return nil
			}
			ps, err = p.searches.New(op, ctrl)
			return err
		},
		complete: func(ctx context.Context) {
			if ps == nil || op.ResultCode() != ldap.ResultSuccess {
				return
			}
			if err := ps.Enable(); err != nil {
				logging.FromContext(ctx).Debug("Could not enable persistent search", zap.Error(err))
				if errors.Is(err, psearch.ErrClosed) {
					err = ldap.WrapDirectoryError(ldap.ResultUnavailable, "server is shutting down", err)
				}
				op.SetError(err)
			}
		},
	}
}
