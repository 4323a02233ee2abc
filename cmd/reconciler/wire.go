package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"fleetrecon/internal/accounting"
	"fleetrecon/internal/app"
	"fleetrecon/internal/config"
	"fleetrecon/internal/fleet"
	"fleetrecon/internal/logger"
	"fleetrecon/internal/redis"
	"fleetrecon/internal/repository/postgres"
	"fleetrecon/internal/service"
)

const serviceName = "fleet-order-reconciler"

// components holds everything both commands need.
type components struct {
	cfg         *config.Config
	logger      zerolog.Logger
	nrApp       *newrelic.Application
	db          *sql.DB
	redisClient *goredis.Client
	registry    *prometheus.Registry

	pendingRepo *postgres.PendingOrderRepository
	ledgerRepo  *postgres.LedgerRepository
	reconciler  *service.ReconcileService
}

// loadConfig loads the environment config and builds the logger.
func loadConfig(cmd *cobra.Command) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("load config: %w", err)
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Log.Level = level
	}
	return cfg, logger.New(cfg.Log.Level, serviceName), nil
}

// wire connects to the database and Redis and builds the reconciler.
func wire(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*components, error) {
	c := &components{cfg: cfg, logger: log, registry: prometheus.NewRegistry()}
	c.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// New Relic first so the database driver can be instrumented.
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err := newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			log.Warn().Err(err).Msg("failed to initialize New Relic")
		} else {
			c.nrApp = nrApp
			log.Info().Str("app", cfg.NewRelic.AppName).Msg("New Relic enabled")
		}
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	db, err := app.NewDatabase(connectCtx, cfg.Database, cfg.Reconcile.Concurrency+4, c.nrApp)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.db = db
	log.Info().Str("host", cfg.Database.Host).Str("db", cfg.Database.DBName).Msg("connected to PostgreSQL")

	redisClient, err := app.NewRedisClient(connectCtx, cfg.Redis, c.nrApp)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.redisClient = redisClient

	codes, err := accounting.Load(cfg.Accounting.CodesFile)
	if err != nil {
		c.Close()
		return nil, err
	}
	log.Info().Int("codes", codes.Len()).Msg("accounting codes loaded")

	// Interfaces stay nil without Redis.
	var (
		lockStore   redis.LockStoreInterface
		driverCache redis.DriverCacheInterface
	)
	if redisClient != nil {
		lockStore = redis.NewLockStore(redisClient, lockOwner())
		driverCache = redis.NewCacheStore(redisClient)
		log.Info().Str("addr", cfg.Redis.Addr).Msg("connected to Redis")
	} else {
		log.Warn().Msg("redis disabled: running without cross-replica locks")
	}

	c.pendingRepo = postgres.NewPendingOrderRepository(db)
	c.ledgerRepo = postgres.NewLedgerRepository(db)
	directory := service.NewDriverDirectory(postgres.NewDriverRepository(db), driverCache, log)
	aggregator := service.NewLedgerAggregator(directory, codes)
	fetcher := fleet.NewClient(cfg.Fleet, fleet.StaticToken(cfg.Fleet.APIToken))

	c.reconciler = service.NewReconcileService(
		c.pendingRepo,
		postgres.NewTransactor(db),
		fetcher,
		aggregator,
		lockStore,
		service.NewMetrics(c.registry),
		log,
		service.ReconcileConfig{
			CompanyID:    cfg.Fleet.CompanyID,
			StaleAfter:   cfg.Reconcile.StaleAfter,
			WindowBuffer: cfg.Reconcile.WindowBuffer,
			FetchTimeout: cfg.Reconcile.FetchTimeout,
			Concurrency:  cfg.Reconcile.Concurrency,
			LockTTL:      cfg.Reconcile.LockTTL,
		},
	)
	return c, nil
}

// Close releases connections and flushes New Relic.
func (c *components) Close() {
	if c.redisClient != nil {
		_ = c.redisClient.Close()
	}
	if c.db != nil {
		_ = c.db.Close()
	}
	if c.nrApp != nil {
		c.nrApp.Shutdown(5 * time.Second)
	}
}

func lockOwner() string {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return host + "/" + uuid.NewString()
}

// idempotencyClient returns the Redis client as an interface that is nil
// when Redis is disabled.
func (c *components) idempotencyClient() goredis.Cmdable {
	if c.redisClient == nil {
		return nil
	}
	return c.redisClient
}
