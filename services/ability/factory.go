package ability

import (
	"context"

	"appforge-controlplane/services/license"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	// UserTypeInstance marks an instance-level superadmin, a distinct actor
	// classification from workspace-level admin.
	UserTypeInstance  = "instance"
	UserTypeWorkspace = "workspace"

	GroupAdmin = "admin"
)

// Actor is the identity snapshot abilities are built for.
type Actor struct {
	UserID   string
	UserType string
}

func (a Actor) IsSuperadmin() bool {
	return a.UserType == UserTypeInstance
}

// GroupResolver answers group membership questions for an actor inside an
// organization context. Backed by the organization repository.
type GroupResolver interface {
	HasGroup(ctx context.Context, userID, organizationID, group string) (bool, error)
}

// FeatureChecker gates license-dependent grants. Implemented by the license
// evaluator; a missing license simply reports every feature disabled.
type FeatureChecker interface {
	FeatureEnabled(field license.Field) bool
}

// Factory builds per-request capability sets from role membership and
// license state.
type Factory struct {
	groups  GroupResolver
	license FeatureChecker
}

type FactoryParams struct {
	fx.In
	Groups  GroupResolver
	License FeatureChecker
}

func NewFactory(p FactoryParams) *Factory {
	return &Factory{groups: p.Groups, license: p.License}
}

// OrganizationUserActions synthesizes the ability used for organization-user
// management for the rest of the request. Non-admin actors get an empty set.
func (f *Factory) OrganizationUserActions(ctx context.Context, actor Actor, organizationID string) (*AppAbility, error) {
	builder := NewBuilder()

	isAdmin, err := f.groups.HasGroup(ctx, actor.UserID, organizationID, GroupAdmin)
	if err != nil {
		return nil, err
	}

	if isAdmin {
		builder.Can(ActionInviteUser, SubjectUser)
		builder.Can(ActionArchiveUser, SubjectUser)
		builder.Can(ActionChangeRole, SubjectUser)
		builder.Can(ActionAccessGroupPermission, SubjectUser)
		builder.Can(ActionUpdateOrganizations, SubjectUser)
		builder.Can(ActionViewAllUsers, SubjectUser)

		if f.license.FeatureEnabled(license.FieldAuditLogs) {
			builder.Can(ActionAccessAuditLogs, SubjectUser)
		}
	}

	ab := builder.Build()
	zap.L().Debug("built ability",
		zap.String("user_id", actor.UserID),
		zap.String("organization_id", organizationID),
		zap.Bool("admin", isAdmin),
	)
	return ab, nil
}
