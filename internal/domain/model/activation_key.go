package model

import (
	"time"
)

// KeyStatus is the derived, audit-facing state of an activation key.
type KeyStatus string

const (
	KeyStatusValid   KeyStatus = "valid"
	KeyStatusUsed    KeyStatus = "used"
	KeyStatusExpired KeyStatus = "expired"
)

// ActivationKey is a single-use secret bound to one business and one feature.
// Only the SHA-256 digest of the secret is persisted; KeyPrefix lets admins
// recognise a key without being able to redeem it.
type ActivationKey struct {
	ID         string     `json:"id" db:"id"`
	KeyDigest  string     `json:"-" db:"key_digest"`
	KeyPrefix  string     `json:"key_prefix" db:"key_prefix"`
	BusinessID string     `json:"business_id" db:"business_id"`
	FeatureID  string     `json:"feature_id" db:"feature_id"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty" db:"expires_at"` // nil = never expires
	Used       bool       `json:"used" db:"is_used"`
	UsedAt     *time.Time `json:"used_at,omitempty" db:"used_at"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
}

// IsExpired reports whether the key's expiry lies before now.
// A used key may also be expired; Status resolves that in favour of "used".
func (k *ActivationKey) IsExpired(now time.Time) bool {
	return k.ExpiresAt != nil && k.ExpiresAt.Before(now)
}

// Status derives the audit state at the given instant.
func (k *ActivationKey) Status(now time.Time) KeyStatus {
	switch {
	case k.Used:
		return KeyStatusUsed
	case k.IsExpired(now):
		return KeyStatusExpired
	default:
		return KeyStatusValid
	}
}

// KeyView is an ActivationKey decorated for admin listings.
type KeyView struct {
	ActivationKey
	FeatureName string    `json:"feature"`
	Status      KeyStatus `json:"status"`
}
