package usecase

import (
	"context"
	"errors"
	"time"

	"pos-activation/internal/domain"
	"pos-activation/internal/domain/model"
	"pos-activation/internal/domain/ports/repository"
	"pos-activation/internal/infra/logging"
	"pos-activation/internal/infra/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Compile-time check
var _ LedgerUseCase = (*ledgerUC)(nil)

// LedgerUseCase manages which features are switched on for which business.
type LedgerUseCase interface {
	IsActive(ctx context.Context, businessID, featureID string) bool
	// GrantDirect activates a feature that does not require a key.
	GrantDirect(ctx context.Context, businessID, featureName string) (*model.BusinessFeature, error)
	// Revoke deactivates a business's feature; the row is kept.
	Revoke(ctx context.Context, businessID, featureName string) error
	ListForBusiness(ctx context.Context, businessID string) ([]model.BusinessFeatureView, error)
	ListBusinessesWithStatus(ctx context.Context) ([]model.BusinessActivationStatus, error)
}

type ledgerUC struct {
	ledger     repository.BusinessFeatureRepository
	features   repository.FeatureRepository
	businesses repository.BusinessRepository
	log        *zerolog.Logger
	now        func() time.Time
}

func NewLedgerUseCase(
	ledger repository.BusinessFeatureRepository,
	features repository.FeatureRepository,
	businesses repository.BusinessRepository,
	logger *zerolog.Logger,
) *ledgerUC {
	return &ledgerUC{ledger: ledger, features: features, businesses: businesses, log: logger, now: time.Now}
}

func (u *ledgerUC) IsActive(ctx context.Context, businessID, featureID string) bool {
	row, err := u.ledger.Find(ctx, repository.NoTX, businessID, featureID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			logging.With(ctx, u.log).Error().Err(err).Str("feature_id", featureID).Msg("ledger lookup failed")
		}
		return false
	}
	return row.Active
}

func (u *ledgerUC) GrantDirect(ctx context.Context, businessID, featureName string) (*model.BusinessFeature, error) {
	defer logging.TraceDuration(u.log, "LedgerUC.GrantDirect")()

	if err := requireBusiness(ctx, u.businesses, businessID); err != nil {
		return nil, err
	}
	feature, err := findFeature(ctx, u.features, repository.NoTX, featureName)
	if err != nil {
		return nil, err
	}
	if feature.RequiresActivation {
		return nil, domain.ErrActivationRequired
	}

	bf := &model.BusinessFeature{
		ID:          uuid.NewString(),
		BusinessID:  businessID,
		FeatureID:   feature.ID,
		Active:      true,
		ActivatedAt: u.now().UTC(),
	}
	err = u.ledger.Upsert(ctx, repository.NoTX, bf)
	metrics.IncAdminAction("grant", err)
	if err != nil {
		return nil, err
	}
	logging.With(ctx, u.log).Info().Str("business_id", businessID).Str("feature", feature.Name).Msg("feature granted")
	return u.ledger.Find(ctx, repository.NoTX, businessID, feature.ID)
}

func (u *ledgerUC) Revoke(ctx context.Context, businessID, featureName string) error {
	defer logging.TraceDuration(u.log, "LedgerUC.Revoke")()

	feature, err := findFeature(ctx, u.features, repository.NoTX, featureName)
	if err != nil {
		return err
	}
	err = u.ledger.SetActive(ctx, repository.NoTX, businessID, feature.ID, false)
	metrics.IncAdminAction("revoke", err)
	if err != nil {
		return err
	}
	logging.With(ctx, u.log).Info().Str("business_id", businessID).Str("feature", feature.Name).Msg("feature revoked")
	return nil
}

func (u *ledgerUC) ListForBusiness(ctx context.Context, businessID string) ([]model.BusinessFeatureView, error) {
	defer logging.TraceDuration(u.log, "LedgerUC.ListForBusiness")()

	features, err := u.featureIndex(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := u.ledger.ListByBusiness(ctx, repository.NoTX, businessID)
	if err != nil {
		return nil, err
	}
	return toViews(rows, features), nil
}

func (u *ledgerUC) ListBusinessesWithStatus(ctx context.Context) ([]model.BusinessActivationStatus, error) {
	defer logging.TraceDuration(u.log, "LedgerUC.ListBusinessesWithStatus")()

	businesses, err := u.businesses.List(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	features, err := u.featureIndex(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := u.ledger.ListAll(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	byBusiness := make(map[string][]*model.BusinessFeature)
	for _, r := range rows {
		byBusiness[r.BusinessID] = append(byBusiness[r.BusinessID], r)
	}

	out := make([]model.BusinessActivationStatus, 0, len(businesses))
	for _, b := range businesses {
		out = append(out, model.BusinessActivationStatus{
			Business: *b,
			Features: toViews(byBusiness[b.ID], features),
		})
	}
	return out, nil
}

func (u *ledgerUC) featureIndex(ctx context.Context) (map[string]*model.Feature, error) {
	all, err := u.features.ListAll(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	m := make(map[string]*model.Feature, len(all))
	for _, f := range all {
		m[f.ID] = f
	}
	return m, nil
}

func toViews(rows []*model.BusinessFeature, features map[string]*model.Feature) []model.BusinessFeatureView {
	out := make([]model.BusinessFeatureView, 0, len(rows))
	for _, r := range rows {
		v := model.BusinessFeatureView{BusinessFeature: *r}
		if f, ok := features[r.FeatureID]; ok {
			v.FeatureName = f.Name
			v.FeatureEnabled = f.Enabled
		}
		out = append(out, v)
	}
	return out
}
