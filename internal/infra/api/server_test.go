//go:build !integration

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"pos-activation/internal/config"
	"pos-activation/internal/domain"
	"pos-activation/internal/domain/model"
	"pos-activation/internal/domain/ports/repository"
	"pos-activation/internal/infra/db/sqlite"
	"pos-activation/internal/usecase"
)

const testSecret = "test-secret-please-change"

type testEnv struct {
	t       *testing.T
	handler http.Handler
	auth    *AuthManager
	deps    Deps
}

func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

// newTestEnv wires the real use cases over an in-memory SQLite store with two
// businesses, biz-1 and biz-2.
func newTestEnv(t *testing.T, cfg config.HTTPConfig) *testEnv {
	t.Helper()
	store, err := sqlite.NewStore("")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	features := sqlite.NewFeatureRepo(store)
	keys := sqlite.NewActivationKeyRepo(store)
	ledger := sqlite.NewBusinessFeatureRepo(store)
	businesses := sqlite.NewBusinessRepo(store)
	tm := sqlite.NewTxManager(store)
	logger := newTestLogger()

	for _, id := range []string{"biz-1", "biz-2"} {
		b, _ := model.NewBusiness(id, "Store "+id)
		if err := businesses.Save(context.Background(), repository.NoTX, b); err != nil {
			t.Fatalf("seed business: %v", err)
		}
	}

	auth := NewAuthManager(config.AuthConfig{Secret: testSecret, TokenTTL: time.Minute})
	deps := Deps{
		Features:   usecase.NewFeatureUseCase(features, logger),
		Keys:       usecase.NewActivationKeyUseCase(keys, features, businesses, logger),
		Redemption: usecase.NewRedemptionUseCase(keys, features, ledger, businesses, tm, nil, usecase.RedemptionOptions{MaxRetries: 3}, logger),
		Ledger:     usecase.NewLedgerUseCase(ledger, features, businesses, logger),
		Gate:       usecase.NewGateUseCase(features, ledger, logger),
		Auth:       auth,
	}
	return &testEnv{t: t, handler: NewServer(deps, cfg, logger).Router(), auth: auth, deps: deps}
}

func (e *testEnv) token(role, businessID string) string {
	e.t.Helper()
	tok, err := e.auth.Mint(role, businessID)
	if err != nil {
		e.t.Fatalf("mint: %v", err)
	}
	return tok
}

func (e *testEnv) do(method, path, token string, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			e.t.Fatalf("marshal: %v", err)
		}
		rdr = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

func expectStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("expected %d, got %d: %s", want, rr.Code, rr.Body.String())
	}
}

func (e *testEnv) issueKey(admin, businessID, feature string, extra map[string]any) string {
	e.t.Helper()
	body := map[string]any{"business_id": businessID, "feature": feature}
	for k, v := range extra {
		body[k] = v
	}
	rr := e.do(http.MethodPost, "/api/v1/admin/keys", admin, body)
	expectStatus(e.t, rr, http.StatusCreated)
	return decodeBody[keyIssueResponse](e.t, rr).Key
}

func TestAuthentication(t *testing.T) {
	env := newTestEnv(t, config.HTTPConfig{})

	t.Run("no credentials -> 401", func(t *testing.T) {
		expectStatus(t, env.do(http.MethodGet, "/api/v1/admin/features", "", nil), http.StatusUnauthorized)
	})

	t.Run("bearer but invalid jwt -> 401", func(t *testing.T) {
		expectStatus(t, env.do(http.MethodGet, "/api/v1/admin/features", "invalid.jwt.token", nil), http.StatusUnauthorized)
	})

	t.Run("token signed with another secret -> 401", func(t *testing.T) {
		other := NewAuthManager(config.AuthConfig{Secret: "another-secret"})
		tok, _ := other.Mint(RoleAdmin, "")
		expectStatus(t, env.do(http.MethodGet, "/api/v1/admin/features", tok, nil), http.StatusUnauthorized)
	})

	t.Run("owner on admin route -> 403", func(t *testing.T) {
		expectStatus(t, env.do(http.MethodGet, "/api/v1/admin/features", env.token(RoleOwner, "biz-1"), nil), http.StatusForbidden)
	})

	t.Run("cashier cannot redeem -> 403", func(t *testing.T) {
		rr := env.do(http.MethodPost, "/api/v1/activation/redeem", env.token(RoleCashier, "biz-1"), map[string]string{"key": "x"})
		expectStatus(t, rr, http.StatusForbidden)
	})

	t.Run("session cookie -> 200", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/features", nil)
		req.AddCookie(&http.Cookie{Name: "pos_session", Value: env.token(RoleAdmin, "")})
		rr := httptest.NewRecorder()
		env.handler.ServeHTTP(rr, req)
		expectStatus(t, rr, http.StatusOK)
	})

	t.Run("non-admin role without business cannot be minted", func(t *testing.T) {
		if _, err := env.auth.Mint(RoleOwner, ""); err == nil {
			t.Fatal("expected an error")
		}
	})

	t.Run("expired token -> 401", func(t *testing.T) {
		past := NewAuthManager(config.AuthConfig{Secret: testSecret, TokenTTL: time.Minute})
		past.now = func() time.Time { return time.Now().Add(-time.Hour) }
		tok, _ := past.Mint(RoleAdmin, "")
		expectStatus(t, env.do(http.MethodGet, "/api/v1/admin/features", tok, nil), http.StatusUnauthorized)
	})
}

func TestSessionCookie(t *testing.T) {
	env := newTestEnv(t, config.HTTPConfig{})
	auth := NewAuthManager(config.AuthConfig{Secret: testSecret, CookieDomain: "pos.example.com", SecureCookie: true, TokenTTL: time.Minute})
	deps := env.deps
	deps.Auth = auth
	handler := NewServer(deps, config.HTTPConfig{}, newTestLogger()).Router()

	tok, _ := auth.Mint(RoleOwner, "biz-1")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/session", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	expectStatus(t, rr, http.StatusOK)

	sess := decodeBody[sessionResponse](t, rr)
	if sess.Role != RoleOwner || sess.BusinessID != "biz-1" || sess.ExpiresAt.IsZero() {
		t.Errorf("unexpected session %+v", sess)
	}
	cookies := rr.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected one cookie, got %d", len(cookies))
	}
	c := cookies[0]
	if c.Name != "pos_session" || c.Value == "" || !c.HttpOnly || !c.Secure || c.Domain != "pos.example.com" || c.MaxAge != 60 {
		t.Errorf("unexpected cookie %+v", c)
	}

	// The cookie alone authenticates later requests.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/activation/features", nil)
	req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	expectStatus(t, rr, http.StatusOK)

	req = httptest.NewRequest(http.MethodDelete, "/api/v1/session", nil)
	req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	expectStatus(t, rr, http.StatusNoContent)
	cleared := rr.Result().Cookies()
	if len(cleared) != 1 || cleared[0].MaxAge >= 0 || cleared[0].Value != "" {
		t.Errorf("expected the cookie to be cleared, got %+v", cleared)
	}

	expectStatus(t, env.do(http.MethodPost, "/api/v1/session", "", nil), http.StatusUnauthorized)
}

func TestFeatureAdministration(t *testing.T) {
	env := newTestEnv(t, config.HTTPConfig{})
	admin := env.token(RoleAdmin, "")

	rr := env.do(http.MethodPost, "/api/v1/admin/features", admin, map[string]any{"name": "advanced_reporting", "description": "Reports"})
	expectStatus(t, rr, http.StatusCreated)
	f := decodeBody[model.Feature](t, rr)
	if !f.Enabled || !f.RequiresActivation {
		t.Errorf("expected an enabled feature that requires activation, got %+v", f)
	}

	expectStatus(t, env.do(http.MethodPost, "/api/v1/admin/features", admin, map[string]any{"name": "advanced_reporting"}), http.StatusConflict)
	rr = env.do(http.MethodPost, "/api/v1/admin/features", admin, map[string]any{"name": "Not-Valid!"})
	expectStatus(t, rr, http.StatusUnprocessableEntity)
	if msg := decodeBody[ErrorResponse](t, rr).Error; !strings.Contains(msg, "snake_case") {
		t.Errorf("expected the naming rule in the error, got %q", msg)
	}
	expectStatus(t, env.do(http.MethodPost, "/api/v1/admin/features", admin, map[string]any{}), http.StatusUnprocessableEntity)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/features", bytes.NewBufferString("{not json"))
	req.Header.Set("Authorization", "Bearer "+admin)
	bad := httptest.NewRecorder()
	env.handler.ServeHTTP(bad, req)
	expectStatus(t, bad, http.StatusBadRequest)

	rr = env.do(http.MethodPut, "/api/v1/admin/features/advanced_reporting/enabled", admin, map[string]any{"enabled": false})
	expectStatus(t, rr, http.StatusOK)
	if decodeBody[model.Feature](t, rr).Enabled {
		t.Error("expected feature to be disabled")
	}
	expectStatus(t, env.do(http.MethodPut, "/api/v1/admin/features/nope_feature/enabled", admin, map[string]any{"enabled": true}), http.StatusNotFound)
	expectStatus(t, env.do(http.MethodPut, "/api/v1/admin/features/advanced_reporting/enabled", admin, map[string]any{}), http.StatusUnprocessableEntity)

	rr = env.do(http.MethodGet, "/api/v1/admin/features", admin, nil)
	expectStatus(t, rr, http.StatusOK)
	if list := decodeBody[itemsResponse[model.Feature]](t, rr); len(list.Items) != 1 {
		t.Errorf("expected 1 feature, got %d", len(list.Items))
	}
}

func TestIssueAndRedeemFlow(t *testing.T) {
	env := newTestEnv(t, config.HTTPConfig{})
	admin := env.token(RoleAdmin, "")
	owner := env.token(RoleOwner, "biz-1")

	expectStatus(t, env.do(http.MethodPost, "/api/v1/admin/features", admin, map[string]any{"name": "advanced_reporting"}), http.StatusCreated)

	rr := env.do(http.MethodGet, "/api/v1/gate/advanced_reporting", owner, nil)
	expectStatus(t, rr, http.StatusOK)
	if decodeBody[gateResponse](t, rr).Active {
		t.Fatal("feature must be inactive before redemption")
	}

	rr = env.do(http.MethodPost, "/api/v1/admin/keys", admin, map[string]any{"business_id": "biz-1", "feature": "advanced_reporting", "valid_days": 30})
	expectStatus(t, rr, http.StatusCreated)
	if cc := rr.Header().Get("Cache-Control"); cc != "no-store" {
		t.Errorf("expected no-store on issued key, got %q", cc)
	}
	issued := decodeBody[keyIssueResponse](t, rr)
	if issued.Key == "" || issued.ExpiresAt == nil || issued.Prefix != issued.Key[:len(issued.Prefix)] {
		t.Fatalf("unexpected issue response: %+v", issued)
	}

	rr = env.do(http.MethodPost, "/api/v1/activation/redeem", owner, map[string]string{"key": "  " + issued.Key + "\n"})
	expectStatus(t, rr, http.StatusOK)
	if got := decodeBody[redeemResponse](t, rr).Feature; got != "advanced_reporting" {
		t.Errorf("expected advanced_reporting, got %q", got)
	}

	rr = env.do(http.MethodGet, "/api/v1/gate/advanced_reporting", owner, nil)
	if !decodeBody[gateResponse](t, rr).Active {
		t.Error("feature must be active after redemption")
	}

	expectStatus(t, env.do(http.MethodPost, "/api/v1/activation/redeem", owner, map[string]string{"key": issued.Key}), http.StatusConflict)

	rr = env.do(http.MethodGet, "/api/v1/activation/features", owner, nil)
	expectStatus(t, rr, http.StatusOK)
	own := decodeBody[itemsResponse[model.BusinessFeatureView]](t, rr)
	if len(own.Items) != 1 || !own.Items[0].Active || own.Items[0].ActivationKeyID == nil || *own.Items[0].ActivationKeyID != issued.ID {
		t.Errorf("unexpected ledger view: %+v", own.Items)
	}

	rr = env.do(http.MethodGet, "/api/v1/admin/keys?business_id=biz-1", admin, nil)
	expectStatus(t, rr, http.StatusOK)
	keys := decodeBody[itemsResponse[model.KeyView]](t, rr)
	if len(keys.Items) != 1 || keys.Items[0].Status != model.KeyStatusUsed {
		t.Errorf("expected one used key, got %+v", keys.Items)
	}

	// Disabling the feature turns the gate off without touching the ledger.
	expectStatus(t, env.do(http.MethodPut, "/api/v1/admin/features/advanced_reporting/enabled", admin, map[string]any{"enabled": false}), http.StatusOK)
	rr = env.do(http.MethodGet, "/api/v1/gate/advanced_reporting?business_id=biz-1", admin, nil)
	if decodeBody[gateResponse](t, rr).Active {
		t.Error("disabled feature must be inactive")
	}

	rr = env.do(http.MethodGet, "/api/v1/admin/businesses", admin, nil)
	expectStatus(t, rr, http.StatusOK)
	if got := decodeBody[itemsResponse[model.BusinessActivationStatus]](t, rr); len(got.Items) != 2 {
		t.Errorf("expected 2 businesses, got %d", len(got.Items))
	}
}

func TestRedeemRejections(t *testing.T) {
	env := newTestEnv(t, config.HTTPConfig{})
	admin := env.token(RoleAdmin, "")
	owner := env.token(RoleOwner, "biz-1")

	for _, name := range []string{"multi_payment", "inventory_alerts"} {
		expectStatus(t, env.do(http.MethodPost, "/api/v1/admin/features", admin, map[string]any{"name": name}), http.StatusCreated)
	}

	foreign := env.issueKey(admin, "biz-2", "multi_payment", nil)
	expired := env.issueKey(admin, "biz-1", "multi_payment", map[string]any{"expires_at": "2020-01-01T00:00:00Z"})
	disabled := env.issueKey(admin, "biz-1", "inventory_alerts", nil)
	expectStatus(t, env.do(http.MethodPut, "/api/v1/admin/features/inventory_alerts/enabled", admin, map[string]any{"enabled": false}), http.StatusOK)

	cases := []struct {
		name string
		key  string
		want int
	}{
		{"garbage", "not-a-key", http.StatusBadRequest},
		{"well formed but unknown", "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA", http.StatusBadRequest},
		{"other business", foreign, http.StatusBadRequest},
		{"expired", expired, http.StatusGone},
		{"feature disabled", disabled, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := env.do(http.MethodPost, "/api/v1/activation/redeem", owner, map[string]string{"key": tc.key})
			expectStatus(t, rr, tc.want)
			if decodeBody[ErrorResponse](t, rr).Error == "" {
				t.Error("expected an error message")
			}
		})
	}

	expectStatus(t, env.do(http.MethodPost, "/api/v1/activation/redeem", owner, map[string]string{}), http.StatusUnprocessableEntity)

	// The foreign key is still redeemable by its own business.
	expectStatus(t, env.do(http.MethodPost, "/api/v1/activation/redeem", env.token(RoleOwner, "biz-2"), map[string]string{"key": foreign}), http.StatusOK)
}

func TestIssueKeyValidation(t *testing.T) {
	env := newTestEnv(t, config.HTTPConfig{})
	admin := env.token(RoleAdmin, "")
	expectStatus(t, env.do(http.MethodPost, "/api/v1/admin/features", admin, map[string]any{"name": "barcode_labels"}), http.StatusCreated)

	cases := []struct {
		name string
		body map[string]any
		want int
	}{
		{"unknown business", map[string]any{"business_id": "nope", "feature": "barcode_labels"}, http.StatusNotFound},
		{"unknown feature", map[string]any{"business_id": "biz-1", "feature": "nope_feature"}, http.StatusNotFound},
		{"missing feature", map[string]any{"business_id": "biz-1"}, http.StatusUnprocessableEntity},
		{"negative days", map[string]any{"business_id": "biz-1", "feature": "barcode_labels", "valid_days": -1}, http.StatusUnprocessableEntity},
		{"both expiries", map[string]any{"business_id": "biz-1", "feature": "barcode_labels", "valid_days": 1, "expires_at": "2030-01-01T00:00:00Z"}, http.StatusUnprocessableEntity},
		{"no expiry", map[string]any{"business_id": "biz-1", "feature": "barcode_labels"}, http.StatusCreated},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			expectStatus(t, env.do(http.MethodPost, "/api/v1/admin/keys", admin, tc.body), tc.want)
		})
	}
}

func TestGrantAndRevoke(t *testing.T) {
	env := newTestEnv(t, config.HTTPConfig{})
	admin := env.token(RoleAdmin, "")
	manager := env.token(RoleManager, "biz-1")

	expectStatus(t, env.do(http.MethodPost, "/api/v1/admin/features", admin, map[string]any{"name": "barcode_labels", "requires_activation": false}), http.StatusCreated)
	expectStatus(t, env.do(http.MethodPost, "/api/v1/admin/features", admin, map[string]any{"name": "advanced_reporting"}), http.StatusCreated)

	expectStatus(t, env.do(http.MethodPost, "/api/v1/admin/grants", admin, map[string]any{"business_id": "biz-1", "feature": "advanced_reporting"}), http.StatusUnprocessableEntity)
	expectStatus(t, env.do(http.MethodPost, "/api/v1/admin/grants", admin, map[string]any{"business_id": "biz-1", "feature": "barcode_labels"}), http.StatusOK)

	rr := env.do(http.MethodGet, "/api/v1/gate/barcode_labels", manager, nil)
	if !decodeBody[gateResponse](t, rr).Active {
		t.Fatal("expected granted feature to be active")
	}

	expectStatus(t, env.do(http.MethodDelete, "/api/v1/admin/grants/biz-1/barcode_labels", admin, nil), http.StatusNoContent)
	rr = env.do(http.MethodGet, "/api/v1/gate/barcode_labels", manager, nil)
	if decodeBody[gateResponse](t, rr).Active {
		t.Fatal("expected revoked feature to be inactive")
	}
	expectStatus(t, env.do(http.MethodDelete, "/api/v1/admin/grants/biz-2/barcode_labels", admin, nil), http.StatusNotFound)
}

func TestGate_AdminMustNameBusiness(t *testing.T) {
	env := newTestEnv(t, config.HTTPConfig{})
	rr := env.do(http.MethodGet, "/api/v1/gate/anything", env.token(RoleAdmin, ""), nil)
	expectStatus(t, rr, http.StatusUnprocessableEntity)

	rr = env.do(http.MethodGet, "/api/v1/gate/unknown_feature", env.token(RoleCashier, "biz-1"), nil)
	expectStatus(t, rr, http.StatusOK)
	if decodeBody[gateResponse](t, rr).Active {
		t.Error("unknown feature must be inactive")
	}
}

func TestRequireFeature(t *testing.T) {
	env := newTestEnv(t, config.HTTPConfig{})
	ctx := context.Background()
	if _, err := env.deps.Features.RegisterFeature(ctx, "multi_payment", "", false); err != nil {
		t.Fatal(err)
	}
	if _, err := env.deps.Ledger.GrantDirect(ctx, "biz-1", "multi_payment"); err != nil {
		t.Fatal(err)
	}

	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	h := Chain(ok, GateMemo(), Authenticate(env.auth), RequireFeature(env.deps.Gate, "multi_payment"))

	for _, tc := range []struct {
		business string
		want     int
	}{{"biz-1", http.StatusOK}, {"biz-2", http.StatusForbidden}} {
		req := httptest.NewRequest(http.MethodPost, "/checkout", nil)
		req.Header.Set("Authorization", "Bearer "+env.token(RoleCashier, tc.business))
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		expectStatus(t, rr, tc.want)
	}
}

func TestHealthAndTraceID(t *testing.T) {
	env := newTestEnv(t, config.HTTPConfig{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rr := httptest.NewRecorder()
	env.handler.ServeHTTP(rr, req)
	expectStatus(t, rr, http.StatusOK)
	if got := rr.Header().Get("X-Request-ID"); got != "req-123" {
		t.Errorf("expected request id to be echoed, got %q", got)
	}

	deps := env.deps
	deps.Ping = func(context.Context) error { return errors.New("down") }
	down := NewServer(deps, config.HTTPConfig{}, newTestLogger()).Router()
	rr = httptest.NewRecorder()
	down.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	expectStatus(t, rr, http.StatusServiceUnavailable)
}

func TestRecover(t *testing.T) {
	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }), TraceID(), Recover(newTestLogger()))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	expectStatus(t, rr, http.StatusInternalServerError)
	if decodeBody[ErrorResponse](t, rr).TraceID == "" {
		t.Error("expected trace id in error body")
	}
}

func TestStatusFor(t *testing.T) {
	wrapped := fmt.Errorf("create feature: %w", domain.ErrDuplicateFeature)
	cases := []struct {
		err  error
		want int
	}{
		{domain.ErrInvalidKey, http.StatusBadRequest},
		{domain.ErrKeyAlreadyUsed, http.StatusConflict},
		{domain.ErrKeyExpired, http.StatusGone},
		{domain.ErrFeatureDisabled, http.StatusForbidden},
		{domain.ErrTooManyAttempts, http.StatusTooManyRequests},
		{domain.ErrConcurrentRedemption, http.StatusServiceUnavailable},
		{domain.ErrUnknownBusiness, http.StatusNotFound},
		{wrapped, http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := statusFor(tc.err); got != tc.want {
			t.Errorf("%v: expected %d, got %d", tc.err, tc.want, got)
		}
	}
}
