// Package app assembles stores and use cases from configuration. The server,
// the seeder and keyctl share it so they always see the same wiring.
package app

import (
	"context"
	"fmt"

	"pos-activation/internal/config"
	"pos-activation/internal/domain/ports/adapter"
	portsuc "pos-activation/internal/domain/ports/usecase"
	"pos-activation/internal/infra/db"
	red "pos-activation/internal/infra/redis"
	"pos-activation/internal/usecase"

	"github.com/rs/zerolog"
)

type Services struct {
	Repos      *db.Repositories
	Features   usecase.FeatureUseCase
	Keys       usecase.ActivationKeyUseCase
	Redemption usecase.RedemptionUseCase
	Ledger     usecase.LedgerUseCase
	Gate       portsuc.FeatureGate

	closers []func()
}

// Build opens the configured store (and Redis when configured) and wires the use cases.
func Build(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*Services, error) {
	repos, err := db.Open(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Database.Driver, err)
	}
	s := &Services{Repos: repos, closers: []func(){repos.Close}}

	var limiter adapter.AttemptLimiter = adapter.NoopLimiter{}
	if cfg.Redis.URL != "" && cfg.Redemption.AttemptsPerMinute > 0 {
		client, err := red.NewClient(ctx, cfg.Redis)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("redis: %w", err)
		}
		s.closers = append(s.closers, func() { _ = client.Close() })
		limiter = red.NewRateLimiter(client)
	} else if cfg.Redemption.AttemptsPerMinute > 0 {
		logger.Warn().Msg("redemption.attempts_per_minute is set but no redis is configured; throttling disabled")
	}

	s.Features = usecase.NewFeatureUseCase(repos.Features, logger)
	s.Keys = usecase.NewActivationKeyUseCase(repos.Keys, repos.Features, repos.Businesses, logger)
	s.Redemption = usecase.NewRedemptionUseCase(
		repos.Keys, repos.Features, repos.Ledger, repos.Businesses, repos.TM, limiter,
		usecase.RedemptionOptions{
			MaxRetries:        cfg.Redemption.MaxRetries,
			AttemptsPerMinute: cfg.Redemption.AttemptsPerMinute,
		},
		logger,
	)
	s.Ledger = usecase.NewLedgerUseCase(repos.Ledger, repos.Features, repos.Businesses, logger)
	s.Gate = usecase.NewGateUseCase(repos.Features, repos.Ledger, logger)
	return s, nil
}

// Close releases everything Build opened, in reverse order.
func (s *Services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}
