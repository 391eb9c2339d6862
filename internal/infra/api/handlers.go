package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"pos-activation/internal/domain"
	"pos-activation/internal/domain/model"
	"pos-activation/internal/usecase"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type itemsResponse[T any] struct {
	Items []T `json:"items"`
}

// decode reads and validates a JSON body. It writes the error response itself
// and reports whether the handler may continue.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := render.DecodeJSON(r.Body, dst); err != nil {
		writeMessage(w, r, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		msg := "invalid argument"
		if errors.As(err, &verrs) && len(verrs) > 0 {
			msg = "invalid field " + strings.ToLower(verrs[0].Field()) + ": " + verrs[0].Tag()
		}
		writeMessage(w, r, http.StatusUnprocessableEntity, msg)
		return false
	}
	return true
}

// ---- features ----

type featureCreateRequest struct {
	Name               string `json:"name" validate:"required,max=64"`
	Description        string `json:"description" validate:"max=500"`
	RequiresActivation *bool  `json:"requires_activation"`
}

func (s *Server) handleRegisterFeature(w http.ResponseWriter, r *http.Request) {
	var req featureCreateRequest
	if !s.decode(w, r, &req) {
		return
	}
	requires := true
	if req.RequiresActivation != nil {
		requires = *req.RequiresActivation
	}
	f, err := s.deps.Features.RegisterFeature(r.Context(), req.Name, req.Description, requires)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, f)
}

func (s *Server) handleListFeatures(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.Features.ListFeatures(r.Context())
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	if list == nil {
		list = []*model.Feature{}
	}
	writeJSON(w, r, http.StatusOK, itemsResponse[*model.Feature]{Items: list})
}

type featureEnabledRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

func (s *Server) handleSetFeatureEnabled(w http.ResponseWriter, r *http.Request) {
	var req featureEnabledRequest
	if !s.decode(w, r, &req) {
		return
	}
	f, err := s.deps.Features.SetEnabled(r.Context(), chi.URLParam(r, "name"), *req.Enabled)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, r, http.StatusOK, f)
}

// ---- keys ----

type keyIssueRequest struct {
	BusinessID string     `json:"business_id" validate:"required"`
	Feature    string     `json:"feature" validate:"required"`
	ExpiresAt  *time.Time `json:"expires_at"`
	ValidDays  *int       `json:"valid_days" validate:"omitempty,min=0,max=3650"`
}

type keyIssueResponse struct {
	Key        string     `json:"key"`
	ID         string     `json:"id"`
	Prefix     string     `json:"prefix"`
	BusinessID string     `json:"business_id"`
	Feature    string     `json:"feature"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

func (s *Server) handleIssueKey(w http.ResponseWriter, r *http.Request) {
	var req keyIssueRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.ExpiresAt != nil && req.ValidDays != nil {
		writeMessage(w, r, http.StatusUnprocessableEntity, "expires_at and valid_days are mutually exclusive")
		return
	}

	ctx := r.Context()
	var (
		issued *usecase.IssuedKey
		err    error
	)
	if req.ValidDays != nil {
		issued, err = s.deps.Keys.IssueForDays(ctx, req.BusinessID, req.Feature, *req.ValidDays)
	} else {
		issued, err = s.deps.Keys.Issue(ctx, req.BusinessID, req.Feature, req.ExpiresAt)
	}
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	k := issued.Key
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, r, http.StatusCreated, keyIssueResponse{
		Key:        issued.Plaintext,
		ID:         k.ID,
		Prefix:     k.KeyPrefix,
		BusinessID: k.BusinessID,
		Feature:    model.NormalizeFeatureName(req.Feature),
		ExpiresAt:  k.ExpiresAt,
		CreatedAt:  k.CreatedAt,
	})
}

func (s *Server) handleListKeys(w http.ResponseWriter, r *http.Request) {
	var (
		list []model.KeyView
		err  error
	)
	if bid := r.URL.Query().Get("business_id"); bid != "" {
		list, err = s.deps.Keys.ListForBusiness(r.Context(), bid)
	} else {
		list, err = s.deps.Keys.ListAll(r.Context())
	}
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	if list == nil {
		list = []model.KeyView{}
	}
	writeJSON(w, r, http.StatusOK, itemsResponse[model.KeyView]{Items: list})
}

// ---- grants ----

type grantRequest struct {
	BusinessID string `json:"business_id" validate:"required"`
	Feature    string `json:"feature" validate:"required"`
}

func (s *Server) handleGrant(w http.ResponseWriter, r *http.Request) {
	var req grantRequest
	if !s.decode(w, r, &req) {
		return
	}
	row, err := s.deps.Ledger.GrantDirect(r.Context(), req.BusinessID, req.Feature)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, r, http.StatusOK, row)
}

func (s *Server) handleRevoke(w http.ResponseWriter, r *http.Request) {
	err := s.deps.Ledger.Revoke(r.Context(), chi.URLParam(r, "businessID"), chi.URLParam(r, "feature"))
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListBusinesses(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.Ledger.ListBusinessesWithStatus(r.Context())
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	if list == nil {
		list = []model.BusinessActivationStatus{}
	}
	writeJSON(w, r, http.StatusOK, itemsResponse[model.BusinessActivationStatus]{Items: list})
}

// ---- owner ----

type redeemRequest struct {
	Key string `json:"key" validate:"required,max=256"`
}

type redeemResponse struct {
	Feature string `json:"feature"`
	Message string `json:"message"`
}

func (s *Server) handleRedeem(w http.ResponseWriter, r *http.Request) {
	var req redeemRequest
	if !s.decode(w, r, &req) {
		return
	}
	claims := ClaimsFrom(r.Context())
	f, err := s.deps.Redemption.Redeem(r.Context(), claims.BusinessID, req.Key)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, r, http.StatusOK, redeemResponse{Feature: f.Name, Message: "feature " + f.Name + " activated"})
}

func (s *Server) handleOwnFeatures(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFrom(r.Context())
	list, err := s.deps.Ledger.ListForBusiness(r.Context(), claims.BusinessID)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	if list == nil {
		list = []model.BusinessFeatureView{}
	}
	writeJSON(w, r, http.StatusOK, itemsResponse[model.BusinessFeatureView]{Items: list})
}

// ---- gate ----

type gateResponse struct {
	BusinessID string `json:"business_id"`
	Feature    string `json:"feature"`
	Active     bool   `json:"active"`
}

// handleGate answers for the caller's business. Admins have no business of
// their own and must name one with ?business_id=.
func (s *Server) handleGate(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFrom(r.Context())
	businessID := claims.BusinessID
	if claims.Role == RoleAdmin {
		businessID = r.URL.Query().Get("business_id")
	}
	if businessID == "" {
		writeError(w, r, s.log, domain.ErrInvalidArgument)
		return
	}
	name := model.NormalizeFeatureName(chi.URLParam(r, "feature"))
	writeJSON(w, r, http.StatusOK, gateResponse{
		BusinessID: businessID,
		Feature:    name,
		Active:     s.deps.Gate.IsFeatureActive(r.Context(), businessID, name),
	})
}

// ---- session ----

type sessionResponse struct {
	Role       string    `json:"role"`
	BusinessID string    `json:"business_id,omitempty"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// handleOpenSession re-mints the caller's token into the HttpOnly session cookie.
func (s *Server) handleOpenSession(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFrom(r.Context())
	tok, err := s.deps.Auth.Mint(claims.Role, claims.BusinessID)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	s.deps.Auth.SetCookie(w, tok)
	writeJSON(w, r, http.StatusOK, sessionResponse{
		Role:       claims.Role,
		BusinessID: claims.BusinessID,
		ExpiresAt:  time.Now().UTC().Add(s.deps.Auth.TTL()),
	})
}

func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	s.deps.Auth.ClearCookie(w)
	w.WriteHeader(http.StatusNoContent)
}
