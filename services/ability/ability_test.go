package ability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"appforge-controlplane/pkg/errutil"
	"appforge-controlplane/services/license"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type fakeGroups struct {
	groups map[string]bool
	err    error
}

func (f *fakeGroups) HasGroup(_ context.Context, userID, organizationID, group string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.groups[userID+"/"+organizationID+"/"+group], nil
}

type fakeFeatures struct {
	enabled map[license.Field]bool
}

func (f *fakeFeatures) FeatureEnabled(field license.Field) bool {
	return f.enabled[field]
}

func TestAbilityNothingGrantedByDefault(t *testing.T) {
	ab := NewBuilder().Build()
	require.False(t, ab.Can(ActionInviteUser, SubjectUser))

	var nilAbility *AppAbility
	require.False(t, nilAbility.Can(ActionInviteUser, SubjectUser))
}

func TestAbilitySubjectAllCoversEverySubject(t *testing.T) {
	ab := NewBuilder().Can(ActionViewAllUsers, SubjectAll).Build()

	require.True(t, ab.Can(ActionViewAllUsers, SubjectUser))
	require.True(t, ab.Can(ActionViewAllUsers, SubjectOrganizationUser))
	require.False(t, ab.Can(ActionInviteUser, SubjectUser))
}

func TestFactoryAdminGrants(t *testing.T) {
	f := &Factory{
		groups:  &fakeGroups{groups: map[string]bool{"u1/org1/admin": true}},
		license: &fakeFeatures{},
	}

	ab, err := f.OrganizationUserActions(context.Background(), Actor{UserID: "u1"}, "org1")
	require.NoError(t, err)

	require.True(t, ab.Can(ActionInviteUser, SubjectUser))
	require.True(t, ab.Can(ActionArchiveUser, SubjectUser))
	require.True(t, ab.Can(ActionChangeRole, SubjectUser))
	require.True(t, ab.Can(ActionViewAllUsers, SubjectUser))
	require.False(t, ab.Can(ActionAccessAuditLogs, SubjectUser))
}

func TestFactoryNonAdminEmpty(t *testing.T) {
	f := &Factory{
		groups:  &fakeGroups{groups: map[string]bool{}},
		license: &fakeFeatures{},
	}

	ab, err := f.OrganizationUserActions(context.Background(), Actor{UserID: "u2"}, "org1")
	require.NoError(t, err)
	require.False(t, ab.Can(ActionInviteUser, SubjectUser))
	require.False(t, ab.Can(ActionViewAllUsers, SubjectUser))
}

func TestFactoryAuditLogGrantTracksLicense(t *testing.T) {
	groups := &fakeGroups{groups: map[string]bool{"u1/org1/admin": true}}
	features := &fakeFeatures{enabled: map[license.Field]bool{}}
	f := &Factory{groups: groups, license: features}

	ab, err := f.OrganizationUserActions(context.Background(), Actor{UserID: "u1"}, "org1")
	require.NoError(t, err)
	require.False(t, ab.Can(ActionAccessAuditLogs, SubjectUser))

	// Abilities are per-request; the next build sees the new license state.
	features.enabled[license.FieldAuditLogs] = true
	ab, err = f.OrganizationUserActions(context.Background(), Actor{UserID: "u1"}, "org1")
	require.NoError(t, err)
	require.True(t, ab.Can(ActionAccessAuditLogs, SubjectUser))
}

func TestFactoryResolverError(t *testing.T) {
	f := &Factory{
		groups:  &fakeGroups{err: errors.New("db down")},
		license: &fakeFeatures{},
	}

	_, err := f.OrganizationUserActions(context.Background(), Actor{UserID: "u1"}, "org1")
	require.Error(t, err)
}

func TestAuthorizeDeniedIsBareForbidden(t *testing.T) {
	ab := NewBuilder().Build()

	err := Authorize(ab, Actor{UserID: "u2"}, ActionInviteUser, SubjectUser)
	require.Error(t, err)

	var base errutil.BaseError
	require.ErrorAs(t, err, &base)
	require.Equal(t, errutil.StatusForbidden, base.Code)
	// The denial reason is never surfaced to the caller.
	require.Equal(t, "You don't have permission to perform this action", base.Message)
}

func TestAuthorizePermitted(t *testing.T) {
	ab := NewBuilder().Can(ActionInviteUser, SubjectUser).Build()
	require.NoError(t, Authorize(ab, Actor{UserID: "u1"}, ActionInviteUser, SubjectUser))
}

func TestAuthorizeSuperadmin(t *testing.T) {
	require.NoError(t, AuthorizeSuperadmin(Actor{UserID: "root", UserType: UserTypeInstance}))
	require.Error(t, AuthorizeSuperadmin(Actor{UserID: "u1", UserType: UserTypeWorkspace}))
}
