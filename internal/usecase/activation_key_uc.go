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

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

// Compile-time check
var _ ActivationKeyUseCase = (*activationKeyUC)(nil)

// issueAttempts bounds regeneration on the (astronomically unlikely) digest collision.
const issueAttempts = 3

// IssuedKey carries the plaintext exactly once, at issuance.
type IssuedKey struct {
	Plaintext string               `json:"key"`
	Key       *model.ActivationKey `json:"activation_key"`
}

// ActivationKeyUseCase issues activation keys and lists them for audit.
type ActivationKeyUseCase interface {
	// Issue creates a key for (businessID, featureName). A nil expiresAt never expires.
	Issue(ctx context.Context, businessID, featureName string, expiresAt *time.Time) (*IssuedKey, error)
	// IssueForDays is Issue with an expiry validDays from now; 0 means no expiry.
	IssueForDays(ctx context.Context, businessID, featureName string, validDays int) (*IssuedKey, error)
	FindByDigest(ctx context.Context, digest string) (*model.ActivationKey, error)
	ListForBusiness(ctx context.Context, businessID string) ([]model.KeyView, error)
	ListAll(ctx context.Context) ([]model.KeyView, error)
}

type activationKeyUC struct {
	keys       repository.ActivationKeyRepository
	features   repository.FeatureRepository
	businesses repository.BusinessRepository
	log        *zerolog.Logger
	now        func() time.Time
}

func NewActivationKeyUseCase(
	keys repository.ActivationKeyRepository,
	features repository.FeatureRepository,
	businesses repository.BusinessRepository,
	logger *zerolog.Logger,
) *activationKeyUC {
	return &activationKeyUC{
		keys:       keys,
		features:   features,
		businesses: businesses,
		log:        logger,
		now:        time.Now,
	}
}

func (u *activationKeyUC) Issue(ctx context.Context, businessID, featureName string, expiresAt *time.Time) (*IssuedKey, error) {
	defer logging.TraceDuration(u.log, "ActivationKeyUC.Issue")()

	if err := requireBusiness(ctx, u.businesses, businessID); err != nil {
		return nil, err
	}
	feature, err := findFeature(ctx, u.features, repository.NoTX, featureName)
	if err != nil {
		return nil, err
	}

	var exp *time.Time
	if expiresAt != nil {
		t := expiresAt.UTC()
		exp = &t
	}

	for attempt := 1; ; attempt++ {
		plaintext, err := GenerateKey()
		if err != nil {
			return nil, err
		}
		key := &model.ActivationKey{
			ID:         ulid.Make().String(),
			KeyDigest:  DigestKey(plaintext),
			KeyPrefix:  keyPrefix(plaintext),
			BusinessID: businessID,
			FeatureID:  feature.ID,
			ExpiresAt:  exp,
			CreatedAt:  u.now().UTC(),
		}
		err = u.keys.Create(ctx, repository.NoTX, key)
		if errors.Is(err, domain.ErrAlreadyExists) && attempt < issueAttempts {
			continue
		}
		metrics.IncAdminAction("key_issue", err)
		if err != nil {
			return nil, err
		}
		metrics.IncKeyIssued(feature.Name)
		logging.With(ctx, u.log).Info().
			Str("key_id", key.ID).
			Str("key_prefix", key.KeyPrefix).
			Str("business_id", businessID).
			Str("feature", feature.Name).
			Msg("activation key issued")
		return &IssuedKey{Plaintext: plaintext, Key: key}, nil
	}
}

func (u *activationKeyUC) IssueForDays(ctx context.Context, businessID, featureName string, validDays int) (*IssuedKey, error) {
	if validDays < 0 {
		return nil, domain.ErrInvalidArgument
	}
	var exp *time.Time
	if validDays > 0 {
		t := u.now().AddDate(0, 0, validDays)
		exp = &t
	}
	return u.Issue(ctx, businessID, featureName, exp)
}

func (u *activationKeyUC) FindByDigest(ctx context.Context, digest string) (*model.ActivationKey, error) {
	defer logging.TraceDuration(u.log, "ActivationKeyUC.FindByDigest")()
	return u.keys.FindByDigest(ctx, repository.NoTX, digest)
}

func (u *activationKeyUC) ListForBusiness(ctx context.Context, businessID string) ([]model.KeyView, error) {
	defer logging.TraceDuration(u.log, "ActivationKeyUC.ListForBusiness")()
	keys, err := u.keys.ListByBusiness(ctx, repository.NoTX, businessID)
	if err != nil {
		return nil, err
	}
	return u.views(ctx, keys)
}

func (u *activationKeyUC) ListAll(ctx context.Context) ([]model.KeyView, error) {
	defer logging.TraceDuration(u.log, "ActivationKeyUC.ListAll")()
	keys, err := u.keys.ListAll(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	return u.views(ctx, keys)
}

func (u *activationKeyUC) views(ctx context.Context, keys []*model.ActivationKey) ([]model.KeyView, error) {
	names, err := featureNames(ctx, u.features)
	if err != nil {
		return nil, err
	}
	now := u.now()
	out := make([]model.KeyView, 0, len(keys))
	for _, k := range keys {
		out = append(out, model.KeyView{
			ActivationKey: *k,
			FeatureName:   names[k.FeatureID],
			Status:        k.Status(now),
		})
	}
	return out, nil
}

// featureNames maps feature IDs to names for display.
func featureNames(ctx context.Context, features repository.FeatureRepository) (map[string]string, error) {
	all, err := features.ListAll(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	m := make(map[string]string, len(all))
	for _, f := range all {
		m[f.ID] = f.Name
	}
	return m, nil
}

func requireBusiness(ctx context.Context, businesses repository.BusinessRepository, businessID string) error {
	if businessID == "" {
		return domain.ErrUnknownBusiness
	}
	ok, err := businesses.Exists(ctx, repository.NoTX, businessID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrUnknownBusiness
	}
	return nil
}
