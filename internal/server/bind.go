package server

import (
	"context"

	"go.uber.org/zap"

	"github.com/KilimcininKorOglu/obacore/internal/config"
	"github.com/KilimcininKorOglu/obacore/internal/dn"
	"github.com/KilimcininKorOglu/obacore/internal/ldap"
	"github.com/KilimcininKorOglu/obacore/internal/logging"
	"github.com/KilimcininKorOglu/obacore/internal/operation"
)

// bindCancelReason is the reason given to operations a bind cancels.
const bindCancelReason = "bind"

// bindSteps cancels the other operations of the connection, resolves the
// bind DN (a malformed DN is reported as INVALID_CREDENTIALS so clients
// cannot test DN validity) and substitutes configured alternate root DNs.
// An anonymous bind completes without a workflow.
func (p *Processor) bindSteps(cfg *config.Config, op operation.BindOperation) steps {
	var resolved dn.DN
	return steps{
		preParse: func(context.Context) {
			if conn := op.ClientConnection(); conn != nil {
				conn.CancelAllOperationsExcept(operation.CancelRequest{Reason: bindCancelReason}, op.MessageID())
			}
		},
		resolve: func(ctx context.Context) (dn.DN, error) {
			d, err := dn.Parse(op.RawBindDN())
			if err != nil {
				logging.FromContext(ctx).Debug("Malformed bind DN", zap.String("dn", op.RawBindDN()), zap.Error(err))
				return dn.DN{}, ldap.NewDirectoryError(ldap.ResultInvalidCredentials, "invalid credentials")
			}
			if root, ok := cfg.AlternateBindDNs()[d.Key()]; ok {
				actual, err := dn.Parse(root)
				if err != nil {
					return dn.DN{}, ldap.NewDirectoryError(ldap.ResultInvalidCredentials, "invalid credentials")
				}
				logging.FromContext(ctx).Debug("Substituted alternate bind DN",
					zap.Stringer("alternate", d), zap.Stringer("root", actual))
				d = actual
			}
			op.SetBindDN(d)
			resolved = d
			return d, nil
		},
		prepare: func(context.Context) error {
			if op.Password() != "" {
				return nil
			}
			if resolved.IsRoot() {
				op.SetAuthenticatedDN(dn.Root())
				op.SetResultCode(ldap.ResultSuccess)
				return errWorkflowSkipped
			}
			return ldap.NewDirectoryError(ldap.ResultUnwillingToPerform, "unauthenticated binds are not allowed")
		},
	}
}
