package license

import (
	"context"
	"fmt"

	"appforge-controlplane/pkg/config"
	"appforge-controlplane/pkg/repository"

	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db     *gorm.DB
	node   *snowflake.Node
	config *config.Config
	repo   repository.Repository[License]
	store  *Store
	eval   *Evaluator
}

type ServiceParams struct {
	fx.In
	DB        *gorm.DB
	Node      *snowflake.Node
	Config    *config.Config
	Store     *Store
	Evaluator *Evaluator
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:     p.DB,
		node:   p.Node,
		config: p.Config,
		repo:   repository.ProvideStore[License](p.DB),
		store:  p.Store,
		eval:   p.Evaluator,
	}
}

// Activate decodes an uploaded blob and, on success, persists it and swaps
// the active term set. A decode failure leaves the current terms untouched.
func (s *Service) Activate(ctx context.Context, blob, uploadedBy string) (*Terms, error) {
	span := trace.SpanFromContext(ctx)
	defer span.End()

	zapLog := zap.L().With(
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.String("span_id", span.SpanContext().SpanID().String()),
	)

	key, err := LoadPublicKey(s.config.License.PublicKeyPath)
	if err != nil {
		zapLog.Error("failed to load license public key", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	terms, err := Decode(blob, key)
	if err != nil {
		zapLog.Warn("license decode rejected", zap.Error(err))
		return nil, err
	}

	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&License{}).
			Where("status = ?", StatusActive).
			Update("status", StatusSuperseded).Error; err != nil {
			return fmt.Errorf("supersede previous license: %w", err)
		}

		row := &License{
			ID:         s.node.Generate().String(),
			LicenseKey: blob,
			Status:     StatusActive,
			UploadedBy: uploadedBy,
		}
		if err := tx.Create(row).Error; err != nil {
			return fmt.Errorf("persist license: %w", err)
		}
		return nil
	}); err != nil {
		zapLog.Error("failed to persist license", zap.Error(err))
		return nil, err
	}

	s.store.Replace(terms)
	zapLog.Info("license activated",
		zap.String("type", string(terms.Type)),
		zap.String("expiry", terms.Expiry),
	)

	return terms, nil
}

// Restore re-decodes the most recent active upload into the term store.
// Called at startup; a missing or undecodable license degrades to no gated
// features rather than failing the process.
func (s *Service) Restore(ctx context.Context) {
	row, err := s.repo.FindOne(ctx, &License{Status: StatusActive})
	if err != nil || row == nil {
		zap.L().Info("no stored license to restore", zap.Error(err))
		return
	}

	key, err := LoadPublicKey(s.config.License.PublicKeyPath)
	if err != nil {
		zap.L().Warn("license public key unavailable, running unlicensed", zap.Error(err))
		return
	}

	terms, err := Decode(row.LicenseKey, key)
	if err != nil {
		zap.L().Warn("stored license no longer decodes, running unlicensed", zap.Error(err))
		return
	}

	s.store.Replace(terms)
	zap.L().Info("license restored", zap.String("type", string(terms.Type)))
}

func (s *Service) Terms() *Terms {
	return s.store.Terms()
}

func (s *Service) Evaluator() *Evaluator {
	return s.eval
}
