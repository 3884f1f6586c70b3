// main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	playerapi "github.com/Ftotnem/RPS64-SERVICES/player/api"
	"github.com/Ftotnem/RPS64-SERVICES/player/jobs"
	"github.com/Ftotnem/RPS64-SERVICES/player/payments"
	"github.com/Ftotnem/RPS64-SERVICES/player/service"
	"github.com/Ftotnem/RPS64-SERVICES/player/store"
	"github.com/Ftotnem/RPS64-SERVICES/shared/api"
	"github.com/Ftotnem/RPS64-SERVICES/shared/auth"
	"github.com/Ftotnem/RPS64-SERVICES/shared/cluster"
	"github.com/Ftotnem/RPS64-SERVICES/shared/config"
	"github.com/Ftotnem/RPS64-SERVICES/shared/logging"
	"github.com/Ftotnem/RPS64-SERVICES/shared/metrics"
	mongodbu "github.com/Ftotnem/RPS64-SERVICES/shared/mongodb"
	redisu "github.com/Ftotnem/RPS64-SERVICES/shared/redis"
	"github.com/Ftotnem/RPS64-SERVICES/shared/registry"
	"github.com/Ftotnem/RPS64-SERVICES/shared/weekkey"
)

const serviceType = "player-service"

// durableStores groups the three durable store roles; one backend serves all of them.
type durableStores struct {
	profiles store.ProfileStore
	streaks  store.StreakLedger
	prizes   store.PrizeStore
}

func main() {
	// --- 1. Load Configuration ---
	cfg, err := config.LoadPlayerServiceConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.Must(cfg.Environment).With(zap.String("service", serviceType))
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("player-service exited", zap.Error(err))
	}
}

func run(cfg *config.PlayerServiceConfig, logger *zap.Logger) error {
	ctx := context.Background()

	// --- 2. Connect to Redis ---
	redisClient, err := redisu.NewUniversalClient(cfg.RedisAddrs, cfg.RedisPassword, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("error closing Redis client", zap.Error(err))
		}
	}()

	clock, err := weekkey.NewClock(cfg.PrizeTimeZone)
	if err != nil {
		return err
	}

	// --- 3. Initialize Data Stores ---
	var durable durableStores
	readiness := map[string]playerapi.ReadinessCheck{
		"redis": func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
	}

	switch cfg.StoreBackend {
	case config.StoreBackendMongo:
		mongoClient, err := mongodbu.NewClient(ctx, cfg.MongoDBConnStr, cfg.MongoDBDatabase, logger)
		if err != nil {
			return err
		}
		defer func() {
			if err := mongoClient.Disconnect(context.Background()); err != nil {
				logger.Error("failed to disconnect from MongoDB", zap.Error(err))
			}
		}()

		streakStore := store.NewWeeklyStreakStore(mongoClient.Collection(cfg.MongoDBStreaksCollection))
		if err := streakStore.EnsureIndexes(ctx); err != nil {
			return fmt.Errorf("failed to ensure weekly streak indexes: %w", err)
		}
		durable = durableStores{
			profiles: store.NewPlayerStore(mongoClient.Collection(cfg.MongoDBPlayersCollection)),
			streaks:  streakStore,
			prizes:   store.NewMetaStore(mongoClient.Collection(cfg.MongoDBMetaCollection)),
		}
		readiness["mongo"] = mongoClient.Ping
	case config.StoreBackendMemory:
		logger.Warn("using in-memory durable store, state is lost on restart")
		mem := store.NewMemoryStore()
		durable = durableStores{profiles: mem, streaks: mem, prizes: mem}
	}

	profiles := store.NewCachedProfileStore(durable.profiles, redisClient, cfg.ProfileCacheTTL, logger)
	locker := store.NewRedisLocker(redisClient, cfg.PlayerLockTTL, logger)
	ledger := store.NewRedisEventLedger(redisClient, cfg.WebhookEventRetention)
	queue := store.NewRedisMatchQueue(redisClient, logger)

	// --- 4. Initialize Business Logic Services ---
	playerService := service.NewPlayerService(profiles, durable.streaks, locker, clock, logger)
	leaderboardService := service.NewLeaderboardService(durable.streaks, durable.prizes, clock)

	var authenticator auth.Authenticator
	switch cfg.AuthMode {
	case config.AuthModeDev:
		logger.Warn("AUTH_MODE=dev trusts identity headers, do not use in production")
		authenticator = auth.DevHeaderAuthenticator{}
	default:
		authenticator = auth.BearerAuthenticator{Verifier: auth.NewJWTVerifier(cfg.AuthJWTSecret)}
	}

	if cfg.StripeSecretKey == "" || cfg.StripeWebhookSecret == "" {
		logger.Warn("Stripe keys are not configured, checkout and webhooks will fail")
	}
	checkout := payments.NewCheckoutGateway(payments.NewStripeSessionCreator(cfg.StripeSecretKey), cfg.StripePriceIDs, cfg.FrontendURL, logger)
	webhooks := payments.NewWebhookHandler(cfg.StripeWebhookSecret, ledger, playerService, queue, logger)

	// --- 5. Initialize API Handlers ---
	playerAPIHandlers := playerapi.NewPlayerAPIHandlers(playerService, leaderboardService, checkout, webhooks, authenticator, logger)
	playerAPIHandlers.RequestTimeout = cfg.RequestTimeout
	for name, check := range readiness {
		playerAPIHandlers.AddReadinessCheck(name, check)
	}

	// --- 6. Initialize and Start Service Registrar ---
	registrar := registry.NewServiceRegistrar(redisClient, serviceType, &cfg.CommonConfig, logger)
	registrar.Start()
	defer registrar.Stop()

	registryClient := registry.NewRegistryClient(redisClient, cfg.HeartbeatTTL, logger)
	assignments := cluster.NewServiceAssignmentManager(registryClient, serviceType, registrar.GetServiceID(), cfg.HeartbeatInterval, logger)
	go assignments.Start()
	defer assignments.Stop()

	// --- 7. Schedule Background Jobs ---
	scheduler, err := jobs.NewScheduler(clock.Location(), assignments, 30*time.Second, logger)
	if err != nil {
		return err
	}
	if err := scheduler.Cron(cfg.PrizeResetCron, jobs.NewWeeklyResetJob(durable.prizes, clock, logger)); err != nil {
		return err
	}
	if err := scheduler.Every(cfg.QueueDrainInterval, jobs.NewBracketDrainer(queue, cfg.BracketSize, logger)); err != nil {
		return err
	}
	scheduler.Start()
	defer func() {
		if err := scheduler.Stop(); err != nil {
			logger.Error("scheduler shutdown failed", zap.Error(err))
		}
	}()

	// --- 8. Setup HTTP Server and Register Routes ---
	baseServer := api.NewBaseServer(cfg.ListenAddr, api.ServerOptions{
		ServiceName:    serviceType,
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedHeaders: []string{auth.DevUserHeader, auth.DevEmailHeader, auth.DevNameHeader},
	}, logger)
	baseServer.Router.Handle("/metrics", metrics.Handler()).Methods("GET")
	playerAPIHandlers.RegisterRoutes(baseServer.Router)

	// --- 9. Start HTTP Server ---
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- baseServer.Start()
	}()

	// --- 10. Graceful Shutdown ---
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-stop:
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-serverErr:
		if err != nil {
			return err
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := baseServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP server graceful shutdown failed: %w", err)
	}
	logger.Info("server gracefully stopped")
	return nil
}
