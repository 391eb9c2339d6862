package usecase

import (
	"context"
	"errors"
	"sync"

	"pos-activation/internal/domain"
	"pos-activation/internal/domain/model"
	"pos-activation/internal/domain/ports/repository"
	portsuc "pos-activation/internal/domain/ports/usecase"
	"pos-activation/internal/infra/logging"
	"pos-activation/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ portsuc.FeatureGate = (*gateUC)(nil)

type gateUC struct {
	features repository.FeatureRepository
	ledger   repository.BusinessFeatureRepository
	log      *zerolog.Logger
}

func NewGateUseCase(features repository.FeatureRepository, ledger repository.BusinessFeatureRepository, logger *zerolog.Logger) *gateUC {
	return &gateUC{features: features, ledger: ledger, log: logger}
}

// IsFeatureActive answers true only for a known, globally enabled feature with an
// active ledger row for the business. Lookup failures are logged and answer false.
func (g *gateUC) IsFeatureActive(ctx context.Context, businessID, featureName string) bool {
	memo := gateMemoFrom(ctx)
	featureName = model.NormalizeFeatureName(featureName)
	memoKey := businessID + "\x00" + featureName
	if memo != nil {
		if v, ok := memo.get(memoKey); ok {
			metrics.IncCacheRequest("gate_memo", "hit")
			return v
		}
		metrics.IncCacheRequest("gate_memo", "miss")
	}

	active, result := g.check(ctx, businessID, featureName)
	metrics.IncGateCheck(result)
	if memo != nil && result != "error" {
		memo.put(memoKey, active)
	}
	return active
}

func (g *gateUC) check(ctx context.Context, businessID, featureName string) (bool, string) {
	feature, err := findFeature(ctx, g.features, repository.NoTX, featureName)
	switch {
	case errors.Is(err, domain.ErrUnknownFeature):
		return false, "unknown"
	case err != nil:
		logging.With(ctx, g.log).Error().Err(err).Str("feature", featureName).Msg("gate: feature lookup failed")
		return false, "error"
	case !feature.Enabled:
		return false, "disabled"
	}

	row, err := g.ledger.Find(ctx, repository.NoTX, businessID, feature.ID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return false, "inactive"
	case err != nil:
		logging.With(ctx, g.log).Error().Err(err).Str("feature", featureName).Msg("gate: ledger lookup failed")
		return false, "error"
	case !row.Active:
		return false, "inactive"
	}
	return true, "active"
}

// gateMemo holds answers for the lifetime of one request only.
type gateMemo struct {
	mu sync.Mutex
	m  map[string]bool
}

func (m *gateMemo) get(k string) (bool, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.m[k]
	return v, ok
}

func (m *gateMemo) put(k string, v bool) {
	m.mu.Lock()
	m.m[k] = v
	m.mu.Unlock()
}

type gateMemoKey struct{}

// WithGateMemo returns a context in which repeated gate checks for the same
// (business, feature) pair are answered from memory. Attach it per request.
func WithGateMemo(ctx context.Context) context.Context {
	return context.WithValue(ctx, gateMemoKey{}, &gateMemo{m: make(map[string]bool)})
}

func gateMemoFrom(ctx context.Context) *gateMemo {
	m, _ := ctx.Value(gateMemoKey{}).(*gateMemo)
	return m
}
