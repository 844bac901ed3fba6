package api

import (
	"net/http"

	"storefront-identity-layer/internal/infrastructure/middleware"
	"storefront-identity-layer/internal/infrastructure/shopify"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger"
)

// Route prefixes
const (
	OAuthPrefix     = "/auth/shopify"
	WebhookPath     = "/webhooks/shopify"
	FinalizePath    = "/internal/shopify/finalize"
	StoreAPIPrefix  = "/api/shopify"
	SwaggerSpecPath = "./docs/swagger.json"
)

// RouterConfig wires handlers and secrets into the router
type RouterConfig struct {
	OAuth    *OAuthHandler
	Webhooks *WebhookHandler
	Finalize *FinalizeHandler
	Store    *StoreHandler

	FinalizeSecret     string
	InternalAPISecret  string
	CORSAllowedOrigins []string

	// Gatherer serves /metrics; nil uses the default registry
	Gatherer prometheus.Gatherer
	Logger   zerolog.Logger
}

// NewRouter builds the HTTP surface
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.SecurityHeadersMiddleware())
	r.Use(middleware.AuditLoggingMiddleware(cfg.Logger))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	r.Get("/swagger/doc.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		http.ServeFile(w, r, SwaggerSpecPath)
	})

	r.Route(OAuthPrefix, func(r chi.Router) {
		r.Get("/install", cfg.OAuth.Install)
		r.Get("/callback", cfg.OAuth.Callback)
	})

	r.Post(WebhookPath, cfg.Webhooks.Receive)

	r.With(middleware.SharedSecretMiddleware(shopify.FinalizeSecretHeader, cfg.FinalizeSecret, cfg.Logger)).
		Post(FinalizePath, cfg.Finalize.Finalize)

	r.Route(StoreAPIPrefix, func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSAllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
			AllowedHeaders:   []string{"Content-Type", middleware.StoreDomainHeader, middleware.UserEmailHeader, middleware.InternalSecretHeader},
			AllowCredentials: true,
			MaxAge:           300,
		}))
		r.Use(middleware.SharedSecretMiddleware(middleware.InternalSecretHeader, cfg.InternalAPISecret, cfg.Logger))
		r.Use(middleware.CallerMiddleware())

		r.Put("/credential", cfg.Store.PutCredential)
		r.Get("/credential/status", cfg.Store.CredentialStatus)
		r.Post("/credential/validate", cfg.Store.ValidateCredential)
		r.Get("/metaobjects", cfg.Store.ListMetaobjects)
		r.Post("/metaobjects", cfg.Store.UpsertMetaobject)
	})

	return r
}
