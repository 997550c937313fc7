package organization

import (
	"context"
	"errors"
	"fmt"
	"time"

	"appforge-controlplane/pkg/db/option"
	"appforge-controlplane/pkg/db/pagination"
	"appforge-controlplane/pkg/errutil"
	"appforge-controlplane/pkg/repository"
	"appforge-controlplane/pkg/util"
	"appforge-controlplane/services/ability"
	"appforge-controlplane/services/audit"
	"appforge-controlplane/services/license"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	// ErrLastActiveAdmin rejects any mutation that would leave the
	// organization without an active admin.
	ErrLastActiveAdmin = errors.New("Atleast one active admin is required.")
	// ErrInvalidStateTransition rejects a status change the lifecycle does
	// not allow.
	ErrInvalidStateTransition = errors.New("Invalid status transition")
	// ErrUserLimitReached rejects an invite that would exceed licensed seats.
	ErrUserLimitReached = errors.New("You have reached your limit for number of users.")
)

type Service struct {
	db        *gorm.DB
	node      *snowflake.Node
	evaluator *license.Evaluator
	factory   *ability.Factory
	recorder  audit.Recorder
	users     repository.Repository[User]
	orgs      repository.Repository[Organization]
	orgUsers  repository.Repository[OrganizationUser]
}

type ServiceParams struct {
	fx.In
	DB        *gorm.DB
	Node      *snowflake.Node
	Evaluator *license.Evaluator
	Factory   *ability.Factory
	Recorder  audit.Recorder
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:        p.DB,
		node:      p.Node,
		evaluator: p.Evaluator,
		factory:   p.Factory,
		recorder:  p.Recorder,
		users:     repository.ProvideStore[User](p.DB),
		orgs:      repository.ProvideStore[Organization](p.DB),
		orgUsers:  repository.ProvideStore[OrganizationUser](p.DB),
	}
}

func traceLogger(ctx context.Context) *zap.Logger {
	span := trace.SpanFromContext(ctx)
	return zap.L().With(
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.String("span_id", span.SpanContext().SpanID().String()),
	)
}

// CreateOrganization creates a workspace and makes the creator its first
// active admin.
func (s *Service) CreateOrganization(ctx context.Context, actor ability.Actor, name string) (*Organization, error) {
	zapLog := traceLogger(ctx)

	slugName := slug.Make(name)
	if slugName == "" {
		return nil, errutil.BadRequest("organization name is required")
	}

	exist, err := s.orgs.FindOne(ctx, &Organization{Slug: slugName})
	if err != nil {
		zapLog.Error("failed to check existing organization", zap.Error(err))
		return nil, errutil.Internal("failed to create organization")
	}
	if exist != nil {
		return nil, errutil.Conflict("organization already exists")
	}

	org := &Organization{
		ID:   s.node.Generate().String(),
		Name: name,
		Slug: slugName,
	}

	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.orgs.WithTrx(tx).Create(ctx, org); err != nil {
			return fmt.Errorf("create organization: %w", err)
		}

		member := &OrganizationUser{
			ID:             s.node.Generate().String(),
			OrganizationID: org.ID,
			UserID:         actor.UserID,
			Role:           RoleAdmin,
			Status:         StatusActive,
		}
		if err := s.orgUsers.WithTrx(tx).Create(ctx, member); err != nil {
			return fmt.Errorf("create admin membership: %w", err)
		}
		return nil
	}); err != nil {
		zapLog.Error("failed to create organization", zap.Error(err))
		return nil, errutil.Internal("failed to create organization")
	}

	return org, nil
}

// InviteUser invites an email into the organization. The capability check
// always runs before any state or license inspection.
func (s *Service) InviteUser(ctx context.Context, actor ability.Actor, organizationID, email string, role Role) (*OrganizationUser, error) {
	zapLog := traceLogger(ctx)

	if organizationID == "" {
		return nil, errutil.BadRequest("organization id is required")
	}

	ab, err := s.factory.OrganizationUserActions(ctx, actor, organizationID)
	if err != nil {
		zapLog.Error("failed to build ability", zap.Error(err))
		return nil, errutil.Internal("failed to authorize request")
	}
	if err := ability.Authorize(ab, actor, ability.ActionInviteUser, ability.SubjectUser); err != nil {
		return nil, err
	}

	if email == "" {
		return nil, errutil.BadRequest("email is required")
	}
	if role == "" {
		role = RoleViewer
	}
	if !role.Valid() {
		return nil, errutil.BadRequest("unknown role")
	}

	// Seat limits are a ceiling on the existing count, so adding one more
	// requires usage to be strictly below the limit.
	if s.evaluator.HasTerms() {
		total, err := s.users.Count(ctx, &User{})
		if err != nil {
			zapLog.Error("failed to count users", zap.Error(err))
			return nil, errutil.Internal("failed to invite user")
		}
		if !s.evaluator.CheckLimit(license.FieldTotalUsers, total) {
			return nil, ErrUserLimitReached
		}
	}

	user, err := s.users.FindOne(ctx, &User{Email: email})
	if err != nil {
		zapLog.Error("failed to look up user", zap.Error(err))
		return nil, errutil.Internal("failed to invite user")
	}

	if user != nil {
		existing, err := s.orgUsers.FindOne(ctx, &OrganizationUser{
			OrganizationID: organizationID,
			UserID:         user.ID,
		})
		if err != nil {
			zapLog.Error("failed to look up membership", zap.Error(err))
			return nil, errutil.Internal("failed to invite user")
		}
		if existing != nil {
			return nil, errutil.Conflict("User already exists in the organization")
		}
	}

	var member *OrganizationUser
	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if user == nil {
			user = &User{
				ID:              s.node.Generate().String(),
				Email:           email,
				InvitationToken: util.GenerateInvitationToken(),
				Type:            ability.UserTypeWorkspace,
			}
			if err := s.users.WithTrx(tx).Create(ctx, user); err != nil {
				return fmt.Errorf("create user: %w", err)
			}
		}

		member = &OrganizationUser{
			ID:             s.node.Generate().String(),
			OrganizationID: organizationID,
			UserID:         user.ID,
			Role:           role,
			Status:         StatusInvited,
		}
		if err := s.orgUsers.WithTrx(tx).Create(ctx, member); err != nil {
			return fmt.Errorf("create membership: %w", err)
		}
		return nil
	}); err != nil {
		zapLog.Error("failed to invite user", zap.Error(err))
		return nil, errutil.Internal("failed to invite user")
	}

	s.recorder.Record(ctx, audit.RecordPayload{
		ActorID:        actor.UserID,
		OrganizationID: organizationID,
		ActionType:     audit.ActionUserInvite,
		ResourceID:     user.ID,
		ResourceType:   audit.ResourceTypeUser,
		ResourceName:   user.Email,
	})

	return member, nil
}

// ArchiveUser moves an invited or active membership to archived. The
// organization must keep at least one active admin at all times; the check
// runs before any mutation.
func (s *Service) ArchiveUser(ctx context.Context, actor ability.Actor, organizationID, orgUserID string) error {
	zapLog := traceLogger(ctx)

	// An empty scope would turn the membership lookup and the admin count
	// into instance-wide queries.
	if organizationID == "" {
		return errutil.BadRequest("organization id is required")
	}

	ab, err := s.factory.OrganizationUserActions(ctx, actor, organizationID)
	if err != nil {
		zapLog.Error("failed to build ability", zap.Error(err))
		return errutil.Internal("failed to authorize request")
	}
	if err := ability.Authorize(ab, actor, ability.ActionArchiveUser, ability.SubjectUser); err != nil {
		return err
	}

	member, err := s.orgUsers.FindOne(ctx, &OrganizationUser{ID: orgUserID, OrganizationID: organizationID})
	if err != nil {
		zapLog.Error("failed to look up membership", zap.Error(err))
		return errutil.Internal("failed to archive user")
	}
	if member == nil {
		return errutil.NotFound("organization user not found")
	}

	if member.Status == StatusArchived {
		return ErrInvalidStateTransition
	}

	if member.Role == RoleAdmin && member.Status == StatusActive {
		admins, err := s.activeAdminCount(ctx, organizationID)
		if err != nil {
			zapLog.Error("failed to count active admins", zap.Error(err))
			return errutil.Internal("failed to archive user")
		}
		if admins <= 1 {
			return ErrLastActiveAdmin
		}
	}

	if err := s.orgUsers.Update(ctx, member.ID, map[string]any{
		"status":     StatusArchived,
		"updated_at": time.Now(),
	}); err != nil {
		zapLog.Error("failed to archive membership", zap.Error(err))
		return errutil.Internal("failed to archive user")
	}

	s.recordForUser(ctx, actor, organizationID, member.UserID, audit.ActionUserArchive)
	return nil
}

// UnarchiveUser re-invites an archived membership. The invitation token is
// rotated and any stale password cleared so the old credential cannot be
// carried forward.
func (s *Service) UnarchiveUser(ctx context.Context, actor ability.Actor, organizationID, orgUserID string) error {
	zapLog := traceLogger(ctx)

	if organizationID == "" {
		return errutil.BadRequest("organization id is required")
	}

	ab, err := s.factory.OrganizationUserActions(ctx, actor, organizationID)
	if err != nil {
		zapLog.Error("failed to build ability", zap.Error(err))
		return errutil.Internal("failed to authorize request")
	}
	if err := ability.Authorize(ab, actor, ability.ActionArchiveUser, ability.SubjectUser); err != nil {
		return err
	}

	member, err := s.orgUsers.FindOne(ctx, &OrganizationUser{ID: orgUserID, OrganizationID: organizationID})
	if err != nil {
		zapLog.Error("failed to look up membership", zap.Error(err))
		return errutil.Internal("failed to unarchive user")
	}
	if member == nil {
		return errutil.NotFound("organization user not found")
	}

	if member.Status != StatusArchived {
		return ErrInvalidStateTransition
	}

	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.users.WithTrx(tx).Update(ctx, member.UserID, map[string]any{
			"invitation_token": util.GenerateInvitationToken(),
			"password_digest":  "",
			"updated_at":       time.Now(),
		}); err != nil {
			return fmt.Errorf("rotate invitation: %w", err)
		}

		if err := s.orgUsers.WithTrx(tx).Update(ctx, member.ID, map[string]any{
			"status":     StatusInvited,
			"updated_at": time.Now(),
		}); err != nil {
			return fmt.Errorf("update membership: %w", err)
		}
		return nil
	}); err != nil {
		zapLog.Error("failed to unarchive user", zap.Error(err))
		return errutil.Internal("failed to unarchive user")
	}

	s.recordForUser(ctx, actor, organizationID, member.UserID, audit.ActionUserUnarchive)
	return nil
}

// ArchiveAllForUser archives every workspace membership of a user across
// the instance. Reserved for instance-level superadmins.
func (s *Service) ArchiveAllForUser(ctx context.Context, actor ability.Actor, userID string) error {
	zapLog := traceLogger(ctx)

	if err := ability.AuthorizeSuperadmin(actor); err != nil {
		return err
	}

	memberships, err := s.orgUsers.Find(ctx, &OrganizationUser{UserID: userID})
	if err != nil {
		zapLog.Error("failed to list memberships", zap.Error(err))
		return errutil.Internal("failed to archive user")
	}

	for _, member := range memberships {
		if member.Status == StatusArchived {
			continue
		}
		if err := s.orgUsers.Update(ctx, member.ID, map[string]any{
			"status":     StatusArchived,
			"updated_at": time.Now(),
		}); err != nil {
			zapLog.Error("failed to archive membership", zap.String("organization_user_id", member.ID), zap.Error(err))
			return errutil.Internal("failed to archive user")
		}
	}

	s.recordForUser(ctx, actor, "", userID, audit.ActionUserArchiveAll)
	return nil
}

// ChangeRole updates a member's role. Demoting the last active admin is
// rejected for the same reason archiving them is.
func (s *Service) ChangeRole(ctx context.Context, actor ability.Actor, organizationID, orgUserID string, newRole Role) error {
	zapLog := traceLogger(ctx)

	if organizationID == "" {
		return errutil.BadRequest("organization id is required")
	}

	ab, err := s.factory.OrganizationUserActions(ctx, actor, organizationID)
	if err != nil {
		zapLog.Error("failed to build ability", zap.Error(err))
		return errutil.Internal("failed to authorize request")
	}
	if err := ability.Authorize(ab, actor, ability.ActionChangeRole, ability.SubjectUser); err != nil {
		return err
	}

	if !newRole.Valid() {
		return errutil.BadRequest("unknown role")
	}

	member, err := s.orgUsers.FindOne(ctx, &OrganizationUser{ID: orgUserID, OrganizationID: organizationID})
	if err != nil {
		zapLog.Error("failed to look up membership", zap.Error(err))
		return errutil.Internal("failed to change role")
	}
	if member == nil {
		return errutil.NotFound("organization user not found")
	}

	if member.Role == RoleAdmin && newRole != RoleAdmin && member.Status == StatusActive {
		admins, err := s.activeAdminCount(ctx, organizationID)
		if err != nil {
			zapLog.Error("failed to count active admins", zap.Error(err))
			return errutil.Internal("failed to change role")
		}
		if admins <= 1 {
			return ErrLastActiveAdmin
		}
	}

	if err := s.orgUsers.Update(ctx, member.ID, map[string]any{
		"role":       newRole,
		"updated_at": time.Now(),
	}); err != nil {
		zapLog.Error("failed to change role", zap.Error(err))
		return errutil.Internal("failed to change role")
	}

	s.recordForUser(ctx, actor, organizationID, member.UserID, audit.ActionUserRoleChange)
	return nil
}

// ListUsers returns one page of the organization's memberships.
func (s *Service) ListUsers(ctx context.Context, actor ability.Actor, organizationID string, p pagination.Pagination) ([]*OrganizationUser, *pagination.PageInfo, error) {
	zapLog := traceLogger(ctx)

	if organizationID == "" {
		return nil, nil, errutil.BadRequest("organization id is required")
	}

	ab, err := s.factory.OrganizationUserActions(ctx, actor, organizationID)
	if err != nil {
		zapLog.Error("failed to build ability", zap.Error(err))
		return nil, nil, errutil.Internal("failed to authorize request")
	}
	if err := ability.Authorize(ab, actor, ability.ActionViewAllUsers, ability.SubjectUser); err != nil {
		return nil, nil, err
	}

	limit := p.Limit
	if limit <= 0 {
		limit = 10
	}

	// Fetch one extra row so the page info can tell whether more follow.
	members, err := s.orgUsers.Find(ctx, &OrganizationUser{OrganizationID: organizationID},
		option.ApplyPagination(pagination.Pagination{Cursor: p.Cursor, Limit: limit + 1}))
	if err != nil {
		zapLog.Error("failed to list memberships", zap.Error(err))
		return nil, nil, errutil.Internal("failed to list users")
	}

	info := pagination.BuildCursorPageInfo(members, int32(limit), func(m *OrganizationUser) string {
		cursor, err := pagination.EncodeCursor(pagination.Cursor{ID: m.ID})
		if err != nil {
			zapLog.Error("failed to encode cursor", zap.Error(err))
		}
		return cursor
	})
	if len(members) > limit {
		members = members[:limit]
	}
	return members, info, nil
}

// RedeemInvitation finishes the invited -> active transition: the user sets
// a password and every invited membership becomes active.
func (s *Service) RedeemInvitation(ctx context.Context, token, password string) (*User, error) {
	zapLog := traceLogger(ctx)

	if token == "" || len(password) < 8 {
		return nil, errutil.BadRequest("invalid invitation")
	}

	user, err := s.users.FindOne(ctx, &User{InvitationToken: token})
	if err != nil {
		zapLog.Error("failed to look up invitation", zap.Error(err))
		return nil, errutil.Internal("failed to redeem invitation")
	}
	if user == nil {
		return nil, errutil.BadRequest("invalid invitation")
	}

	digest, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errutil.Internal("failed to redeem invitation")
	}

	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.users.WithTrx(tx).Update(ctx, user.ID, map[string]any{
			"password_digest":  string(digest),
			"invitation_token": "",
			"updated_at":       time.Now(),
		}); err != nil {
			return fmt.Errorf("set password: %w", err)
		}

		return tx.Model(&OrganizationUser{}).
			Where("user_id = ? AND status = ?", user.ID, StatusInvited).
			Updates(map[string]any{"status": StatusActive, "updated_at": time.Now()}).Error
	}); err != nil {
		zapLog.Error("failed to redeem invitation", zap.Error(err))
		return nil, errutil.Internal("failed to redeem invitation")
	}

	return user, nil
}

// VerifyPassword authenticates an email/password pair.
func (s *Service) VerifyPassword(ctx context.Context, email, password string) (*User, error) {
	user, err := s.users.FindOne(ctx, &User{Email: email})
	if err != nil {
		traceLogger(ctx).Error("failed to look up user", zap.Error(err))
		return nil, errutil.Internal("failed to sign in")
	}
	if user == nil || user.PasswordDigest == "" {
		return nil, errutil.Unauthorized("invalid email or password")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordDigest), []byte(password)); err != nil {
		return nil, errutil.Unauthorized("invalid email or password")
	}
	return user, nil
}

// GetUser loads a user by ID.
func (s *Service) GetUser(ctx context.Context, id string) (*User, error) {
	user, err := s.users.FindOne(ctx, &User{ID: id})
	if err != nil {
		return nil, errutil.Internal("failed to load user")
	}
	if user == nil {
		return nil, errutil.NotFound("user not found")
	}
	return user, nil
}

// UsersUsage counts current seat consumption for license evaluation.
func (s *Service) UsersUsage(ctx context.Context) (license.Usage, error) {
	var usage license.Usage

	total, err := s.users.Count(ctx, &User{})
	if err != nil {
		return usage, err
	}
	usage.TotalUsers = total

	superadmins, err := s.users.Count(ctx, &User{Type: ability.UserTypeInstance})
	if err != nil {
		return usage, err
	}
	usage.Superadmins = superadmins

	editors, err := s.orgUsers.Count(ctx, &OrganizationUser{Role: RoleDeveloper, Status: StatusActive})
	if err != nil {
		return usage, err
	}
	usage.Editors = editors

	viewers, err := s.orgUsers.Count(ctx, &OrganizationUser{Role: RoleViewer, Status: StatusActive})
	if err != nil {
		return usage, err
	}
	usage.Viewers = viewers

	return usage, nil
}

func (s *Service) activeAdminCount(ctx context.Context, organizationID string) (int64, error) {
	return s.orgUsers.Count(ctx, &OrganizationUser{
		OrganizationID: organizationID,
		Role:           RoleAdmin,
		Status:         StatusActive,
	})
}

func (s *Service) recordForUser(ctx context.Context, actor ability.Actor, organizationID, userID, actionType string) {
	resourceName := ""
	if user, err := s.users.FindOne(ctx, &User{ID: userID}); err == nil && user != nil {
		resourceName = user.Email
	}

	s.recorder.Record(ctx, audit.RecordPayload{
		ActorID:        actor.UserID,
		OrganizationID: organizationID,
		ActionType:     actionType,
		ResourceID:     userID,
		ResourceType:   audit.ResourceTypeUser,
		ResourceName:   resourceName,
	})
}
