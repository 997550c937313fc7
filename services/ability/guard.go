package ability

import (
	"appforge-controlplane/pkg/errutil"

	"go.uber.org/zap"
)

// Authorize permits the attempted (action, subject) pair or fails with a
// bare Forbidden. The response carries no hint of why the actor was denied;
// the full reason is logged for operator diagnosis only.
func Authorize(ab *AppAbility, actor Actor, action Action, subject Subject) error {
	if ab.Can(action, subject) {
		return nil
	}

	zap.L().Warn("authorization denied",
		zap.String("user_id", actor.UserID),
		zap.String("user_type", actor.UserType),
		zap.String("action", string(action)),
		zap.String("subject", string(subject)),
	)
	return errutil.Forbidden("You don't have permission to perform this action")
}

// AuthorizeSuperadmin permits only instance-level superadmins.
func AuthorizeSuperadmin(actor Actor) error {
	if actor.IsSuperadmin() {
		return nil
	}

	zap.L().Warn("authorization denied",
		zap.String("user_id", actor.UserID),
		zap.String("user_type", actor.UserType),
		zap.String("action", "superadmin"),
	)
	return errutil.Forbidden("You don't have permission to perform this action")
}
