package organization

import (
	"context"

	"appforge-controlplane/pkg/repository"

	"gorm.io/gorm"
)

// Groups resolves group membership questions for the ability factory.
// Role names double as group names; every non-archived member is in
// all_users.
type Groups struct {
	orgUsers repository.Repository[OrganizationUser]
}

func NewGroups(db *gorm.DB) *Groups {
	return &Groups{orgUsers: repository.ProvideStore[OrganizationUser](db)}
}

func (g *Groups) HasGroup(ctx context.Context, userID, organizationID, group string) (bool, error) {
	// Membership is always scoped to one organization; an unscoped query
	// would match memberships anywhere in the instance.
	if userID == "" || organizationID == "" {
		return false, nil
	}

	query := &OrganizationUser{
		OrganizationID: organizationID,
		UserID:         userID,
	}
	if group != GroupAllUsers {
		query.Role = Role(group)
	}

	members, err := g.orgUsers.Find(ctx, query)
	if err != nil {
		return false, err
	}

	for _, m := range members {
		if m.Status != StatusArchived {
			return true, nil
		}
	}
	return false, nil
}
