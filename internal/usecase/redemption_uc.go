package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"pos-activation/internal/domain"
	"pos-activation/internal/domain/model"
	"pos-activation/internal/domain/ports/adapter"
	"pos-activation/internal/domain/ports/repository"
	"pos-activation/internal/infra/logging"
	"pos-activation/internal/infra/metrics"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
)

// Compile-time check
var _ RedemptionUseCase = (*redemptionUC)(nil)

// RedemptionUseCase consumes an activation key on behalf of a business.
type RedemptionUseCase interface {
	// Redeem validates presentedKey for businessID, marks it used and activates
	// its feature in one transaction. It returns the activated feature.
	Redeem(ctx context.Context, businessID, presentedKey string) (*model.Feature, error)
}

type RedemptionOptions struct {
	// MaxRetries is how often a transaction that lost a write conflict is re-run.
	MaxRetries int
	// AttemptsPerMinute throttles redemption attempts per business; 0 disables.
	AttemptsPerMinute int
}

type redemptionUC struct {
	keys       repository.ActivationKeyRepository
	features   repository.FeatureRepository
	ledger     repository.BusinessFeatureRepository
	businesses repository.BusinessRepository
	tm         repository.TransactionManager
	limiter    adapter.AttemptLimiter
	opts       RedemptionOptions
	log        *zerolog.Logger
	now        func() time.Time
}

func NewRedemptionUseCase(
	keys repository.ActivationKeyRepository,
	features repository.FeatureRepository,
	ledger repository.BusinessFeatureRepository,
	businesses repository.BusinessRepository,
	tm repository.TransactionManager,
	limiter adapter.AttemptLimiter,
	opts RedemptionOptions,
	logger *zerolog.Logger,
) *redemptionUC {
	if limiter == nil {
		limiter = adapter.NoopLimiter{}
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	return &redemptionUC{
		keys:       keys,
		features:   features,
		ledger:     ledger,
		businesses: businesses,
		tm:         tm,
		limiter:    limiter,
		opts:       opts,
		log:        logger,
		now:        time.Now,
	}
}

// RedeemAttemptKey is the limiter bucket for a business.
func RedeemAttemptKey(businessID string) string {
	return "redeem_attempts:" + businessID
}

func (u *redemptionUC) Redeem(ctx context.Context, businessID, presentedKey string) (*model.Feature, error) {
	defer logging.TraceDuration(u.log, "RedemptionUC.Redeem")()
	log := logging.With(ctx, u.log)

	feature, err := u.redeem(ctx, businessID, strings.TrimSpace(presentedKey))
	result := redemptionResult(err)
	metrics.IncRedemption(result)

	ev := log.Info()
	if result == "error" {
		ev = log.Error().Err(err)
	}
	ev.Str("business_id", businessID).
		Str("key_prefix", keyPrefix(strings.TrimSpace(presentedKey))).
		Str("result", result).
		Msg("activation key redemption")
	return feature, err
}

func (u *redemptionUC) redeem(ctx context.Context, businessID, presented string) (*model.Feature, error) {
	if err := requireBusiness(ctx, u.businesses, businessID); err != nil {
		return nil, err
	}
	if err := u.throttle(ctx, businessID); err != nil {
		return nil, err
	}
	if !wellFormedKey(presented) {
		return nil, domain.ErrInvalidKey
	}
	digest := DigestKey(presented)

	var activated *model.Feature
	txOpts := pgx.TxOptions{IsoLevel: pgx.ReadCommitted}
	for attempt := 0; ; attempt++ {
		err := u.tm.WithTx(ctx, txOpts, func(ctx context.Context, tx repository.Tx) error {
			f, err := u.consume(ctx, tx, businessID, digest)
			if err != nil {
				return err
			}
			activated = f
			return nil
		})
		if errors.Is(err, domain.ErrConcurrentRedemption) && attempt < u.opts.MaxRetries {
			metrics.IncRedemptionRetry()
			continue
		}
		if err != nil {
			return nil, err
		}
		return activated, nil
	}
}

// consume runs the whole check-and-mark sequence on tx.
func (u *redemptionUC) consume(ctx context.Context, tx repository.Tx, businessID, digest string) (*model.Feature, error) {
	key, err := u.keys.FindByDigest(ctx, tx, digest)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidKey
		}
		return nil, err
	}
	// A key issued to another business looks exactly like a missing one.
	if key.BusinessID != businessID {
		return nil, domain.ErrInvalidKey
	}
	if key.Used {
		return nil, domain.ErrKeyAlreadyUsed
	}
	now := u.now().UTC()
	if key.IsExpired(now) {
		return nil, domain.ErrKeyExpired
	}

	feature, err := u.features.FindByID(ctx, tx, key.FeatureID)
	if err != nil {
		return nil, err
	}
	if !feature.Enabled {
		return nil, domain.ErrFeatureDisabled
	}

	won, err := u.keys.MarkUsed(ctx, tx, key.ID, now)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, domain.ErrKeyAlreadyUsed
	}

	keyID := key.ID
	err = u.ledger.Upsert(ctx, tx, &model.BusinessFeature{
		ID:              uuid.NewString(),
		BusinessID:      businessID,
		FeatureID:       feature.ID,
		Active:          true,
		ActivatedAt:     now,
		ActivationKeyID: &keyID,
	})
	if err != nil {
		return nil, err
	}
	return feature, nil
}

func (u *redemptionUC) throttle(ctx context.Context, businessID string) error {
	if u.opts.AttemptsPerMinute <= 0 {
		return nil
	}
	ok, err := u.limiter.Allow(ctx, RedeemAttemptKey(businessID), u.opts.AttemptsPerMinute, time.Minute)
	if err != nil {
		// The limiter is advisory; an outage must not block activations.
		logging.With(ctx, u.log).Warn().Err(err).Msg("redemption limiter unavailable")
		return nil
	}
	if !ok {
		return domain.ErrTooManyAttempts
	}
	return nil
}

func redemptionResult(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrInvalidKey):
		return "invalid_key"
	case errors.Is(err, domain.ErrKeyAlreadyUsed):
		return "already_used"
	case errors.Is(err, domain.ErrKeyExpired):
		return "expired"
	case errors.Is(err, domain.ErrFeatureDisabled):
		return "feature_disabled"
	case errors.Is(err, domain.ErrUnknownBusiness):
		return "unknown_business"
	case errors.Is(err, domain.ErrTooManyAttempts):
		return "throttled"
	case errors.Is(err, domain.ErrConcurrentRedemption):
		return "conflict"
	default:
		return "error"
	}
}
