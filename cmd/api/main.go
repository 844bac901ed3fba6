package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront-identity-layer/internal/application"
	"storefront-identity-layer/internal/application/webhook_handlers"
	"storefront-identity-layer/internal/config"
	apiinfra "storefront-identity-layer/internal/infrastructure/api"
	"storefront-identity-layer/internal/infrastructure/encryption"
	"storefront-identity-layer/internal/infrastructure/metrics"
	"storefront-identity-layer/internal/infrastructure/pubsub"
	"storefront-identity-layer/internal/infrastructure/repository"
	shopifyinfra "storefront-identity-layer/internal/infrastructure/shopify"
	"storefront-identity-layer/internal/infrastructure/signature"
	"storefront-identity-layer/internal/infrastructure/statestore"
	"storefront-identity-layer/internal/ports"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	// Initialize logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, envLoaded, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if !envLoaded {
		logger.Warn().Msg(".env file not found, using process environment")
	}
	for _, w := range cfg.Warnings() {
		logger.Warn().Msg(w)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to MongoDB
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}
	defer mongoClient.Disconnect(context.Background())

	db := mongoClient.Database(cfg.MongoDatabase)
	if err := repository.EnsureIndexes(ctx, db); err != nil {
		logger.Warn().Err(err).Msg("Failed to ensure MongoDB indexes")
	}

	// Connect to Redis
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid REDIS_URL")
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn().Err(err).Msg("Redis is not reachable, install and callback will fail until it is")
	}

	// Initialize infrastructure (implementations)
	codec := encryption.NewCodec(cfg.CredentialKeySlot, cfg.CredentialLegacyKeySlots, encryption.EnvKeyLoader,
		encryption.WithLogger(logger.With().Str("component", "codec").Logger()))
	if err := codec.CheckPrimary(); err != nil {
		logger.Fatal().Err(err).Str("slot", cfg.CredentialKeySlot).Msg("Primary credential key is unusable")
	}
	verifier := signature.NewVerifier()
	promMetrics := metrics.New(prometheus.DefaultRegisterer)
	graphqlClient := shopifyinfra.NewClient(cfg.ShopifyClientID, cfg.ShopifyClientSecret, cfg.ShopifyAPIVersion, cfg.OutboundTimeout, logger)
	exchanger := shopifyinfra.NewTokenExchanger(cfg.ShopifyClientID, cfg.ShopifyClientSecret, cfg.ShopifyRedirectURI, cfg.OutboundTimeout, nil, logger)
	states := statestore.NewRedisStateStore(redisClient)

	// Initialize repositories
	credentialRepo := repository.NewMongoCredentialRepository(db)
	mappingRepo := repository.NewMongoCredentialMappingRepository(db)
	memberRepo := repository.NewMongoMembershipRepository(db)
	tenantRepo := repository.NewMongoTenantRepository(db)
	legacyMembers := repository.NewMongoLegacyMemberRepository(db)
	legacyStores := repository.NewMongoLegacyStoreRepository(db)

	// Initialize application services
	resolver := application.NewIdentityResolver(legacyMembers, legacyStores, mappingRepo, memberRepo, logger)
	credentialsService := application.NewCredentialsService(credentialRepo, resolver, codec, graphqlClient, promMetrics, logger)
	metaobjectService := application.NewMetaobjectService(credentialsService, graphqlClient, logger)
	finalizeService := application.NewFinalizeService(tenantRepo, memberRepo, mappingRepo, credentialsService, logger)

	var finalizer ports.Finalizer = finalizeService
	if cfg.FinalizeURL != "" {
		finalizer = shopifyinfra.NewFinalizeClient(cfg.FinalizeURL, cfg.FinalizeSecret, cfg.OutboundTimeout, logger)
		logger.Info().Str("url", cfg.FinalizeURL).Msg("Finalizing installs through remote endpoint")
	}

	oauthFlow := application.NewOAuthFlow(
		application.OAuthConfig{
			ClientID:           cfg.ShopifyClientID,
			ClientSecret:       cfg.ShopifyClientSecret,
			Scopes:             cfg.ShopifyScopes,
			RedirectURI:        cfg.ShopifyRedirectURI,
			InstallFallbackURL: cfg.InstallFallbackURL,
			PortalRedirectURL:  cfg.PortalRedirectURL,
		},
		states,
		verifier,
		exchanger,
		finalizer,
		promMetrics,
		logger,
	)

	// Initialize webhook dispatcher and register handlers
	webhookDispatcher := application.NewWebhookDispatcher(logger)
	webhookDispatcher.RegisterHandler(webhook_handlers.NewAppUninstalledHandler(logger, credentialsService))
	webhookDispatcher.RegisterHandler(webhook_handlers.NewPrivacyHandler(logger))

	// Audit subscriber for authenticated webhooks
	webhookPubSub := pubsub.NewWebhookPubSub(logger)
	go pubsub.AuditLogger(webhookPubSub.Subscribe(ctx, nil, 64), logger.With().Str("component", "webhook_audit").Logger())

	webhookReceiver := application.NewWebhookReceiver(
		cfg.ShopifyWebhookSecret,
		cfg.ShopifyClientSecret,
		verifier,
		webhookDispatcher,
		webhookPubSub,
		promMetrics,
		logger,
	)

	router := apiinfra.NewRouter(apiinfra.RouterConfig{
		OAuth:              apiinfra.NewOAuthHandler(oauthFlow, apiinfra.OAuthPrefix, logger),
		Webhooks:           apiinfra.NewWebhookHandler(webhookReceiver, logger),
		Finalize:           apiinfra.NewFinalizeHandler(finalizeService, logger),
		Store:              apiinfra.NewStoreHandler(credentialsService, metaobjectService, logger),
		FinalizeSecret:     cfg.FinalizeSecret,
		InternalAPISecret:  cfg.InternalAPISecret,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		Logger:             logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("Starting API server")
		logger.Info().Msg("Swagger documentation available at http://localhost:" + cfg.Port + "/swagger/index.html")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Graceful shutdown failed")
	}
}
