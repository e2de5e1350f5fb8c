package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rentacar/internal/api"
	"rentacar/internal/config"
	"rentacar/internal/database"
	"rentacar/internal/domain"
	"rentacar/internal/events"
	"rentacar/internal/export"
	"rentacar/internal/google"
	"rentacar/internal/identity"
	"rentacar/internal/logging"
	"rentacar/internal/metrics"
	"rentacar/internal/models"
	"rentacar/internal/notify"
	"rentacar/internal/repository"
	"rentacar/internal/service"
	"rentacar/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	db, err := database.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return err
	}
	defer db.Close()

	if err := seedCatalog(cfg, db, &logger); err != nil {
		return err
	}

	if !cfg.API.Enabled {
		logger.Warn().Msg("API is disabled in config, but starting API application. Check your config.")
	}

	redisClient := initRedis(cfg, &logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	drafts := initDrafts(cfg, redisClient, &logger)
	eventBus := events.NewEventBus()

	notifier, err := notify.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ManagerChatID, cfg.Telegram.Debug, &logger)
	if err != nil {
		logger.Warn().Err(err).Msg("telegram init failed, continuing without notifications")
		notifier, _ = notify.NewTelegramNotifier("", 0, false, &logger)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	syncWorker := initSyncWorker(ctx, cfg, db, redisClient, &logger)
	go syncWorker.Start(ctx)

	catalogSvc := service.NewCatalogService(db, &logger)
	draftSvc := service.NewDraftService(drafts, db, cfg.Booking.HorizonDays, &logger)
	confirmation := service.NewConfirmation(drafts, db, db, eventBus, syncWorker, notifier, &logger)
	bookingSvc := service.NewBookingService(db, db, eventBus, syncWorker, notifier, &logger)
	resolver := identity.NewResolver(cfg.Identity.JWTSecret)

	httpServer := api.NewHTTPServer(cfg.API, catalogSvc, draftSvc, confirmation, bookingSvc, resolver, &logger)

	startMetrics(ctx, cfg, &logger)

	return startServers(ctx, httpServer, cfg, &logger)
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "api-main").Logger()

	return cfg, logger, closer, nil
}

// seedCatalog loads delegations and cars from the catalog seed file. Cars
// already present in the database are left untouched so a restart never
// resets their booking calendars.
func seedCatalog(cfg *config.Config, db *database.DB, logger *zerolog.Logger) error {
	seedPath := cfg.Catalog.SeedPath
	if seedPath == "" {
		seedPath = "configs/catalog.yaml"
	}

	data, err := os.ReadFile(seedPath)
	if err != nil {
		logger.Error().Err(err).Str("seed_path", seedPath).Msg("read catalog seed")
		return err
	}

	var seed struct {
		Delegations []models.Delegation `yaml:"delegations"`
		Cars        []models.Car        `yaml:"cars"`
	}
	if err := yaml.Unmarshal(data, &seed); err != nil {
		logger.Error().Err(err).Str("seed_path", seedPath).Msg("parse catalog seed")
		return err
	}

	ctx := context.Background()
	for i := range seed.Delegations {
		if err := db.SaveDelegation(ctx, &seed.Delegations[i]); err != nil {
			return fmt.Errorf("seed delegation %s: %w", seed.Delegations[i].DelegationID, err)
		}
	}

	seeded := 0
	for i := range seed.Cars {
		car := &seed.Cars[i]
		existing, err := db.GetCar(ctx, car.DelegationID, car.Operation)
		if err != nil && !errors.Is(err, database.ErrNotFound) {
			return fmt.Errorf("check car %s: %w", car.Key(), err)
		}
		if existing != nil {
			continue
		}
		if err := db.SaveCar(ctx, car); err != nil {
			return fmt.Errorf("seed car %s: %w", car.Key(), err)
		}
		seeded++
	}

	for i := range seed.Delegations {
		if err := db.RefreshAvailableCars(ctx, seed.Delegations[i].DelegationID); err != nil {
			logger.Warn().Err(err).Str("delegation_id", seed.Delegations[i].DelegationID).Msg("refresh available cars")
		}
	}

	logger.Info().
		Int("delegations", len(seed.Delegations)).
		Int("cars_total", len(seed.Cars)).
		Int("cars_seeded", seeded).
		Msg("catalog seed loaded")
	return nil
}

func initRedis(cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return redisClient
}

// initDrafts picks the draft store: redis with an in-memory fallback when
// redis is reachable, memory only otherwise.
func initDrafts(cfg *config.Config, redisClient *redis.Client, logger *zerolog.Logger) domain.DraftRepository {
	ttl := time.Duration(cfg.Booking.DraftTTLSeconds) * time.Second
	memory := repository.NewMemoryDraftRepository(ttl)
	if redisClient == nil {
		logger.Info().Msg("using in-memory draft store")
		return memory
	}

	primary := repository.NewRedisDraftRepository(redisClient, ttl)
	return repository.NewFailoverDraftRepository(primary, memory, logger)
}

func initSyncWorker(ctx context.Context, cfg *config.Config, db *database.DB, redisClient *redis.Client, logger *zerolog.Logger) *worker.SyncWorker {
	var sheets worker.SheetsWriter
	if cfg.Google.GoogleCredentialsFile != "" && cfg.Google.BookingSpreadSheetID != "" {
		sheetsService, err := google.NewSheetsService(ctx, cfg.Google.GoogleCredentialsFile, cfg.Google.BookingSpreadSheetID)
		if err != nil {
			logger.Warn().Err(err).Msg("google sheets init failed, continuing without sheets")
		} else {
			logger.Info().Msg("google sheets connected")
			sheets = sheetsService
		}
	}

	exporter := export.NewExcelExporter(db, cfg.Exports.Path, logger)
	return worker.NewSyncWorker(db, sheets, exporter, redisClient, worker.RetryPolicy{}, logger)
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	port := cfg.Monitoring.PrometheusPort
	if port == 0 {
		port = 9090
	}
	go startMetricsServer(ctx, port, logger)
}

func startServers(ctx context.Context, httpServer *api.HTTPServer, cfg *config.Config, logger *zerolog.Logger) error {
	go func() {
		if !cfg.API.HTTP.Enabled {
			return
		}
		if err := httpServer.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	logger.Info().Int("http_port", cfg.API.HTTP.Port).Msg("API server started")

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = httpServer.Shutdown(shutdownCtx)

	logger.Info().Msg("API server stopped")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
