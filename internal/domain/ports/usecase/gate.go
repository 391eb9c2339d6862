package usecase

import "context"

// FeatureGate is the single query the rest of the POS application uses to decide
// whether a business may use a feature right now. It never fails: unknown or
// disabled features are simply inactive.
type FeatureGate interface {
	IsFeatureActive(ctx context.Context, businessID, featureName string) bool
}
