package model

import "time"

// BusinessFeature records whether a feature is switched on for one business.
// There is at most one row per (BusinessID, FeatureID); rows are never deleted.
type BusinessFeature struct {
	ID              string    `json:"id" db:"id"`
	BusinessID      string    `json:"business_id" db:"business_id"`
	FeatureID       string    `json:"feature_id" db:"feature_id"`
	Active          bool      `json:"active" db:"is_active"`
	ActivatedAt     time.Time `json:"activated_at" db:"activated_at"`
	ActivationKeyID *string   `json:"activation_key_id,omitempty" db:"activation_key_id"` // nil for direct grants
}

// BusinessFeatureView joins a ledger row with its feature for display.
type BusinessFeatureView struct {
	BusinessFeature
	FeatureName    string `json:"feature"`
	FeatureEnabled bool   `json:"feature_enabled"`
}

// Effective is what the gate check would answer for this row.
func (v BusinessFeatureView) Effective() bool {
	return v.Active && v.FeatureEnabled
}
