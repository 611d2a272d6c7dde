// Command menuforge runs the restaurant menu and ordering service.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	"golang.org/x/sync/errgroup"

	"github.com/menuforge/menuforge/pkg/api"
	"github.com/menuforge/menuforge/pkg/auth"
	"github.com/menuforge/menuforge/pkg/authz"
	"github.com/menuforge/menuforge/pkg/billing"
	"github.com/menuforge/menuforge/pkg/config"
	"github.com/menuforge/menuforge/pkg/menu"
	"github.com/menuforge/menuforge/pkg/observability"
	"github.com/menuforge/menuforge/pkg/orders"
	"github.com/menuforge/menuforge/pkg/sso"
	"github.com/menuforge/menuforge/pkg/storage/images"
	"github.com/menuforge/menuforge/pkg/storage/postgres"
	"github.com/menuforge/menuforge/pkg/storage/rediscache"
	"github.com/menuforge/menuforge/pkg/tenants"
	"github.com/menuforge/menuforge/pkg/users"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		observability.NewLogger(observability.ErrorLevel, os.Stderr).
			WithError(err).Error("failed to load configuration")
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	metrics := observability.NewMetrics(nil)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, metrics); err != nil {
		logger.WithError(err).Error("service exited with error")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *observability.Logger, metrics *observability.Metrics) error {
	otelProviders, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		return err
	}
	defer otelProviders.Shutdown(context.Background())

	db, err := postgres.Connect(ctx, postgres.Config{
		URL:         cfg.Database.URL,
		MaxConns:    cfg.Database.MaxConns,
		MinConns:    cfg.Database.MinConns,
		Timeout:     cfg.Database.Timeout,
		MaxLifetime: cfg.Database.MaxLifetime,
		MaxIdleTime: cfg.Database.MaxIdleTime,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	if err := postgres.Migrate(ctx, db); err != nil {
		return err
	}
	logger.Info("database ready")

	var redisClient *redis.Client
	var authCache users.AuthStateCache
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return err
		}
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()
		authCache = rediscache.NewAuthStateCache(redisClient, cfg.Redis.CacheTTL)
		logger.Info("redis auth state cache enabled")
	}

	sessions, err := auth.NewSessionManager(cfg.Session.Secret, cfg.Session.TTL, cfg.Session.Secure)
	if err != nil {
		return err
	}

	userSvc := users.NewService(users.NewStore(db), authCache, logger, metrics)
	tenantSvc, err := tenants.NewService(tenants.NewStore(db), cfg.Authz.TenantCacheSize, logger, metrics)
	if err != nil {
		return err
	}
	menuSvc := menu.NewService(menu.NewStore(db), logger)
	orderSvc := orders.NewService(orders.NewStore(db), menuSvc, logger, metrics)

	billingStore := billing.NewStore(db)
	reconciler := billing.NewReconciler(billingStore, userSvc, logger, metrics)
	webhooks := billing.NewWebhookHandler(reconciler,
		cfg.Billing.StripeWebhookSecret, cfg.Billing.MercadoPagoWebhookSecret,
		logger, metrics)

	var imageStore *images.Store
	if cfg.Images.PublicURL != "" {
		imageStore, err = images.NewStore(ctx, cfg.Images)
		if err != nil {
			return err
		}
	} else {
		logger.Warn("image storage not configured, logo uploads disabled")
	}

	table := authz.DefaultRouteTable()
	if cfg.Authz.RouteTablePath != "" {
		table, err = authz.LoadRouteTable(cfg.Authz.RouteTablePath)
		if err != nil {
			return err
		}
		logger.WithField("path", cfg.Authz.RouteTablePath).Info("loaded route table")
	}
	authzMW := authz.NewMiddleware(sessions, userSvc, table, logger, metrics)

	var ssoHandler *sso.Handler
	if cfg.OIDC.IssuerURL != "" {
		ssoHandler, err = sso.NewHandler(ctx, sso.Config{
			IssuerURL:    cfg.OIDC.IssuerURL,
			ClientID:     cfg.OIDC.ClientID,
			ClientSecret: cfg.OIDC.ClientSecret,
			RedirectURL:  cfg.OIDC.RedirectURL,
		}, sessions, userSvc, logger)
		if err != nil {
			return err
		}
	} else {
		logger.Warn("OIDC not configured, sign-in endpoints disabled")
	}

	server := api.NewServer(cfg, api.Deps{
		Users:      userSvc,
		Tenants:    tenantSvc,
		Public:     api.NewPublicHandlers(tenantSvc, menuSvc, orderSvc, logger),
		Service:    api.NewServiceHandlers(tenantSvc, orderSvc, logger),
		Menu:       api.NewMenuHandlers(menuSvc, logger),
		Admin:      api.NewAdminHandlers(userSvc, logger),
		Restaurant: api.NewRestaurantHandlers(tenantSvc, userSvc, billingStore, imageStore, logger),
		Webhooks:   webhooks,
		SSO:        ssoHandler,
		Authz:      authzMW,
		Health:     observability.NewHealthChecker(db, redisClient),
	}, logger, metrics)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(server.Start)
	group.Go(server.StartHealth)
	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")
		return server.Shutdown(context.Background())
	})

	return group.Wait()
}
