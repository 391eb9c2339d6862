package model

import (
	"strings"
	"time"

	"pos-activation/internal/domain"

	"github.com/google/uuid"
)

// Business is the tenant projection this service needs: identity and a display name.
// Everything else about a business lives in the POS application.
type Business struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

func NewBusiness(id, name string) (*Business, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.ErrInvalidArgument
	}
	if id == "" {
		id = uuid.NewString()
	}
	return &Business{ID: id, Name: name, CreatedAt: time.Now().UTC()}, nil
}

func (b *Business) IsZero() bool { return b == nil || b.ID == "" }

// BusinessActivationStatus is the admin view of one business and its ledger.
type BusinessActivationStatus struct {
	Business Business              `json:"business"`
	Features []BusinessFeatureView `json:"features"`
}
