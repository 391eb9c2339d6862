package model

import (
	"regexp"
	"strings"
	"time"

	"pos-activation/internal/domain"

	"github.com/google/uuid"
)

// featureNamePattern keeps names usable as URL path segments and template keys.
var featureNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_]{1,63}$`)

// Feature is a globally toggleable capability of the POS application.
// Name is the immutable identity; features are disabled, never deleted.
type Feature struct {
	ID                 string    `json:"id" db:"id"`
	Name               string    `json:"name" db:"name"`
	Description        string    `json:"description" db:"description"`
	Enabled            bool      `json:"enabled" db:"is_enabled"`
	RequiresActivation bool      `json:"requires_activation" db:"requires_activation"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
}

// NewFeature validates and constructs an enabled feature.
func NewFeature(name, description string, requiresActivation bool) (*Feature, error) {
	name = NormalizeFeatureName(name)
	if !ValidFeatureName(name) {
		return nil, domain.ErrInvalidFeatureName
	}
	return &Feature{
		ID:                 uuid.NewString(),
		Name:               name,
		Description:        strings.TrimSpace(description),
		Enabled:            true,
		RequiresActivation: requiresActivation,
		CreatedAt:          time.Now().UTC(),
	}, nil
}

func NormalizeFeatureName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func ValidFeatureName(name string) bool {
	return featureNamePattern.MatchString(name)
}

func (f *Feature) IsZero() bool { return f == nil || f.ID == "" }
