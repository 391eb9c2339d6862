package usecase

import (
	"context"
	"errors"

	"pos-activation/internal/domain"
	"pos-activation/internal/domain/model"
	"pos-activation/internal/domain/ports/repository"
	"pos-activation/internal/infra/logging"
	"pos-activation/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ FeatureUseCase = (*featureUC)(nil)

// FeatureUseCase is the feature registry: the catalogue of toggleable capabilities.
type FeatureUseCase interface {
	RegisterFeature(ctx context.Context, name, description string, requiresActivation bool) (*model.Feature, error)
	SetEnabled(ctx context.Context, name string, enabled bool) (*model.Feature, error)
	ListFeatures(ctx context.Context) ([]*model.Feature, error)
	GetFeature(ctx context.Context, name string) (*model.Feature, error)
}

type featureUC struct {
	features repository.FeatureRepository
	log      *zerolog.Logger
}

func NewFeatureUseCase(features repository.FeatureRepository, logger *zerolog.Logger) *featureUC {
	return &featureUC{features: features, log: logger}
}

func (u *featureUC) RegisterFeature(ctx context.Context, name, description string, requiresActivation bool) (*model.Feature, error) {
	defer logging.TraceDuration(u.log, "FeatureUC.RegisterFeature")()

	f, err := model.NewFeature(name, description, requiresActivation)
	if err != nil {
		return nil, err
	}
	err = u.features.Create(ctx, repository.NoTX, f)
	metrics.IncAdminAction("feature_register", err)
	if err != nil {
		return nil, err
	}
	logging.With(ctx, u.log).Info().Str("feature", f.Name).Bool("requires_activation", f.RequiresActivation).Msg("feature registered")
	return f, nil
}

func (u *featureUC) SetEnabled(ctx context.Context, name string, enabled bool) (*model.Feature, error) {
	defer logging.TraceDuration(u.log, "FeatureUC.SetEnabled")()

	name = model.NormalizeFeatureName(name)
	action := "feature_disable"
	if enabled {
		action = "feature_enable"
	}
	err := u.features.SetEnabled(ctx, repository.NoTX, name, enabled)
	metrics.IncAdminAction(action, err)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUnknownFeature
		}
		return nil, err
	}
	logging.With(ctx, u.log).Info().Str("feature", name).Bool("enabled", enabled).Msg("feature toggled")
	return u.GetFeature(ctx, name)
}

func (u *featureUC) ListFeatures(ctx context.Context) ([]*model.Feature, error) {
	defer logging.TraceDuration(u.log, "FeatureUC.ListFeatures")()
	return u.features.ListAll(ctx, repository.NoTX)
}

func (u *featureUC) GetFeature(ctx context.Context, name string) (*model.Feature, error) {
	return findFeature(ctx, u.features, repository.NoTX, name)
}

// findFeature resolves a feature by name, turning a miss into ErrUnknownFeature.
func findFeature(ctx context.Context, features repository.FeatureRepository, tx repository.Tx, name string) (*model.Feature, error) {
	f, err := features.FindByName(ctx, tx, model.NormalizeFeatureName(name))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUnknownFeature
		}
		return nil, err
	}
	return f, nil
}
