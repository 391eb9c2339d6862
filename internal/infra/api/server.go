// Package api is the HTTP surface of the activation service: admin key
// management, owner redemption and the feature gate query.
package api

import (
	"context"
	"net/http"
	"time"

	"pos-activation/internal/config"
	portsuc "pos-activation/internal/domain/ports/usecase"
	"pos-activation/internal/usecase"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Deps are the use cases and collaborators the handlers need.
type Deps struct {
	Features   usecase.FeatureUseCase
	Keys       usecase.ActivationKeyUseCase
	Redemption usecase.RedemptionUseCase
	Ledger     usecase.LedgerUseCase
	Gate       portsuc.FeatureGate
	Auth       *AuthManager
	// Ping reports store health for /health; nil means always healthy.
	Ping func(ctx context.Context) error
}

type Server struct {
	deps     Deps
	cfg      config.HTTPConfig
	validate *validator.Validate
	log      *zerolog.Logger
}

func NewServer(deps Deps, cfg config.HTTPConfig, logger *zerolog.Logger) *Server {
	slog := logger.With().Str("component", "api").Logger()
	return &Server{
		deps:     deps,
		cfg:      cfg,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		log:      &slog,
	}
}

// Router builds the complete handler tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	timeout := s.cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	r.Use(TraceID(), RequestLog(s.log), Recover(s.log), Timeout(timeout), GateMemo())
	if len(s.cfg.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.cfg.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if s.cfg.RateLimitPerMinute > 0 {
			r.Use(httprate.LimitByIP(s.cfg.RateLimitPerMinute, time.Minute))
		}
		r.Use(Authenticate(s.deps.Auth))

		r.Route("/admin", func(r chi.Router) {
			r.Use(RequireRole(RoleAdmin))
			r.Get("/features", s.handleListFeatures)
			r.Post("/features", s.handleRegisterFeature)
			r.Put("/features/{name}/enabled", s.handleSetFeatureEnabled)
			r.Get("/keys", s.handleListKeys)
			r.Post("/keys", s.handleIssueKey)
			r.Post("/grants", s.handleGrant)
			r.Delete("/grants/{businessID}/{feature}", s.handleRevoke)
			r.Get("/businesses", s.handleListBusinesses)
		})

		r.Route("/activation", func(r chi.Router) {
			r.Use(RequireRole(RoleOwner))
			r.Post("/redeem", s.handleRedeem)
			r.Get("/features", s.handleOwnFeatures)
		})

		r.Post("/session", s.handleOpenSession)
		r.Delete("/session", s.handleCloseSession)

		r.Get("/gate/{feature}", s.handleGate)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ping != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.deps.Ping(ctx); err != nil {
			s.log.Warn().Err(err).Msg("health check failed")
			writeMessage(w, r, http.StatusServiceUnavailable, "store unavailable")
			return
		}
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}
