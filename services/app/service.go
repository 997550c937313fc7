package app

import (
	"context"
	"errors"

	"appforge-controlplane/pkg/errutil"
	"appforge-controlplane/pkg/repository"
	"appforge-controlplane/services/license"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrAppLimitReached rejects creation beyond the licensed app count.
var ErrAppLimitReached = errors.New("You have reached your limit for number of apps.")

type Service struct {
	node      *snowflake.Node
	evaluator *license.Evaluator
	repo      repository.Repository[App]
}

type ServiceParams struct {
	fx.In
	DB        *gorm.DB
	Node      *snowflake.Node
	Evaluator *license.Evaluator
}

func NewService(p ServiceParams) *Service {
	return &Service{
		node:      p.Node,
		evaluator: p.Evaluator,
		repo:      repository.ProvideStore[App](p.DB),
	}
}

// Create adds an app, honoring the licensed app ceiling when a license is
// active.
func (s *Service) Create(ctx context.Context, organizationID, name, createdBy string) (*App, error) {
	if name == "" {
		return nil, errutil.BadRequest("app name is required")
	}

	if s.evaluator.HasTerms() {
		count, err := s.Count(ctx)
		if err != nil {
			zap.L().Error("failed to count apps", zap.Error(err))
			return nil, errutil.Internal("failed to create app")
		}
		if !s.evaluator.CheckLimit(license.FieldAppCount, count) {
			return nil, ErrAppLimitReached
		}
	}

	app := &App{
		ID:             s.node.Generate().String(),
		OrganizationID: organizationID,
		Name:           name,
		Slug:           slug.Make(name),
		CreatedBy:      createdBy,
	}

	if err := s.repo.Create(ctx, app); err != nil {
		zap.L().Error("failed to create app", zap.Error(err))
		return nil, errutil.Internal("failed to create app")
	}
	return app, nil
}

// Count reports the current number of apps across the instance.
func (s *Service) Count(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx, &App{})
}

var Module = fx.Module("app.module",
	fx.Provide(NewService),
)
