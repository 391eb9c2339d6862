//go:build !integration

package usecase_test

import (
	"context"
	"testing"

	"pos-activation/internal/domain/model"
	portsuc "pos-activation/internal/domain/ports/usecase"
	"pos-activation/internal/usecase"
)

// fixture wires every use case over the same in-memory repositories.
type fixture struct {
	features   *MockFeatureRepo
	keys       *MockActivationKeyRepo
	ledger     *MockBusinessFeatureRepo
	businesses *MockBusinessRepo
	tm         *MockTxManager
	limiter    *MockLimiter

	featureUC usecase.FeatureUseCase
	keyUC     usecase.ActivationKeyUseCase
	redeemUC  usecase.RedemptionUseCase
	ledgerUC  usecase.LedgerUseCase
	gate      portsuc.FeatureGate
}

func newFixture(t *testing.T, opts usecase.RedemptionOptions, businessIDs ...string) *fixture {
	t.Helper()
	logger := newTestLogger()
	f := &fixture{
		features:   NewMockFeatureRepo(),
		keys:       NewMockActivationKeyRepo(),
		ledger:     NewMockBusinessFeatureRepo(),
		businesses: NewMockBusinessRepo(businessIDs...),
		tm:         NewMockTxManager(),
		limiter:    NewMockLimiter(),
	}
	f.featureUC = usecase.NewFeatureUseCase(f.features, logger)
	f.keyUC = usecase.NewActivationKeyUseCase(f.keys, f.features, f.businesses, logger)
	f.redeemUC = usecase.NewRedemptionUseCase(f.keys, f.features, f.ledger, f.businesses, f.tm, f.limiter, opts, logger)
	f.ledgerUC = usecase.NewLedgerUseCase(f.ledger, f.features, f.businesses, logger)
	f.gate = usecase.NewGateUseCase(f.features, f.ledger, logger)
	return f
}

func (f *fixture) mustRegister(t *testing.T, name string, requiresActivation bool) *model.Feature {
	t.Helper()
	feat, err := f.featureUC.RegisterFeature(context.Background(), name, name+" feature", requiresActivation)
	if err != nil {
		t.Fatalf("register %s: %v", name, err)
	}
	return feat
}

func (f *fixture) mustIssue(t *testing.T, businessID, feature string) *usecase.IssuedKey {
	t.Helper()
	issued, err := f.keyUC.Issue(context.Background(), businessID, feature, nil)
	if err != nil {
		t.Fatalf("issue %s for %s: %v", feature, businessID, err)
	}
	return issued
}
