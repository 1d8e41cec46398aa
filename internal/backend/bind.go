package backend

import (
	"context"

	"go.uber.org/zap"

	"github.com/KilimcininKorOglu/obacore/internal/ldap"
	"github.com/KilimcininKorOglu/obacore/internal/operation"
)

var errInvalidCredentials = ldap.NewDirectoryError(ldap.ResultInvalidCredentials, "invalid credentials")

// Bind authenticates op against the userPassword values of the bind entry.
// A missing entry and a wrong password are indistinguishable to the client.
func (m *Memory) Bind(_ context.Context, op operation.BindOperation) error {
	e, ok := m.entries.Get(op.BindDN())
	if !ok {
		return errInvalidCredentials
	}
	for _, stored := range e.GetAttribute(PasswordAttribute) {
		if VerifyPassword(op.Password(), stored) == nil {
			op.SetAuthenticatedDN(e.DN)
			return nil
		}
	}
	m.logger.Debug("Bind rejected", zap.Stringer("dn", op.BindDN()))
	return errInvalidCredentials
}
