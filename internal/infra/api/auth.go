package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"pos-activation/internal/config"

	"github.com/golang-jwt/jwt/v5"
)

// Roles carried in session claims.
const (
	RoleAdmin   = "admin"
	RoleOwner   = "owner"
	RoleManager = "manager"
	RoleCashier = "cashier"
)

var (
	errMissingToken = errors.New("missing token")
	errInvalidToken = errors.New("invalid token")
)

// Claims identify the caller. BusinessID is empty for platform admins.
type Claims struct {
	Role       string `json:"role"`
	BusinessID string `json:"business_id,omitempty"`
	jwt.RegisteredClaims
}

// AuthManager mints and verifies HS256 session tokens.
type AuthManager struct {
	secret       []byte
	cookieName   string
	cookieDomain string
	secure       bool
	ttl          time.Duration
	now          func() time.Time
}

func NewAuthManager(cfg config.AuthConfig) *AuthManager {
	name := cfg.CookieName
	if name == "" {
		name = "pos_session"
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &AuthManager{
		secret:       []byte(cfg.Secret),
		cookieName:   name,
		cookieDomain: cfg.CookieDomain,
		secure:       cfg.SecureCookie,
		ttl:          ttl,
		now:          time.Now,
	}
}

func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleOwner, RoleManager, RoleCashier:
		return true
	}
	return false
}

// Mint signs a session token. Non-admin roles must name their business.
func (a *AuthManager) Mint(role, businessID string) (string, error) {
	if !ValidRole(role) {
		return "", errors.New("unknown role " + role)
	}
	if role != RoleAdmin && businessID == "" {
		return "", errors.New("role " + role + " requires a business id")
	}
	now := a.now()
	subject := role
	if businessID != "" {
		subject = businessID
	}
	claims := Claims{
		Role:       role,
		BusinessID: businessID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
			Subject:   subject,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// SetCookie stores token in the session cookie.
func (a *AuthManager) SetCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     a.cookieName,
		Value:    token,
		Path:     "/",
		Domain:   a.cookieDomain,
		MaxAge:   int(a.ttl.Seconds()),
		HttpOnly: true,
		Secure:   a.secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// ClearCookie expires the session cookie.
func (a *AuthManager) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     a.cookieName,
		Value:    "",
		Path:     "/",
		Domain:   a.cookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// TTL is the lifetime of minted tokens.
func (a *AuthManager) TTL() time.Duration { return a.ttl }

// ParseFromRequest reads a bearer token first and falls back to the cookie.
func (a *AuthManager) ParseFromRequest(r *http.Request) (*Claims, error) {
	if hdr := r.Header.Get("Authorization"); hdr != "" {
		if len(hdr) > 7 && strings.EqualFold(hdr[:7], "bearer ") {
			return a.parse(strings.TrimSpace(hdr[7:]))
		}
		return nil, errInvalidToken
	}
	if c, err := r.Cookie(a.cookieName); err == nil {
		return a.parse(c.Value)
	}
	return nil, errMissingToken
}

func (a *AuthManager) parse(tok string) (*Claims, error) {
	claims := &Claims{}
	tkn, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(a.now))
	if err != nil || !tkn.Valid {
		return nil, errInvalidToken
	}
	if !ValidRole(claims.Role) || (claims.Role != RoleAdmin && claims.BusinessID == "") {
		return nil, errInvalidToken
	}
	return claims, nil
}
