package router

import (
	"context"
	"fmt"

	fpsvc "ghg-footprint-backend/internal/application/footprint"
	healthsvc "ghg-footprint-backend/internal/application/health"
	"ghg-footprint-backend/internal/config"
	"ghg-footprint-backend/internal/infrastructure/cache"
	"ghg-footprint-backend/internal/infrastructure/database"
	"ghg-footprint-backend/internal/infrastructure/lock"
	fphandler "ghg-footprint-backend/internal/interfaces/handlers/footprint"
	healthhandler "ghg-footprint-backend/internal/interfaces/handlers/health"
	"ghg-footprint-backend/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type gormDBPinger struct {
	db *gorm.DB
}

func (g *gormDBPinger) Ping(ctx context.Context) error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// CreateApp opens the configured database and Redis and builds the app.
// Both are optional: without a database only the health routes are served,
// without Redis the factor cache is off and write locks are process-local.
func CreateApp(cfg *config.Config) (*fiber.App, *gorm.DB, *redis.Client, error) {
	var db *gorm.DB
	if cfg.DatabaseURL != "" {
		var err error
		db, err = database.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, err
		}
		if cfg.AutoMigrate {
			if err := database.AutoMigrate(db); err != nil {
				return nil, nil, nil, fmt.Errorf("auto migrate: %w", err)
			}
		}
	}

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		rdb = redis.NewClient(opts)
	}

	app, err := NewApp(cfg, db, rdb)
	if err != nil {
		return nil, nil, nil, err
	}
	return app, db, rdb, nil
}

// NewApp wires middleware, handlers and the footprint engine over already
// opened connections. db and rdb may be nil.
func NewApp(cfg *config.Config, db *gorm.DB, rdb *redis.Client) (*fiber.App, error) {
	mapping, err := fpsvc.LoadMapping(cfg.ActivityMappingFile)
	if err != nil {
		return nil, err
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler(rdb),
		EnableTrustedProxyCheck: true,
	})

	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffix: cfg.FrontendURLEndsWith,
		DevPassword:   cfg.DevPassword,
	}))
	app.Use(middleware.HealthMarker(rdb))
	app.Use(middleware.Tracing())
	app.Use(middleware.RouteLogger())

	engine := healthsvc.EngineInfo{
		MappingVersion:    mapping.Version,
		MappingCategories: len(mapping.Categories),
		DefaultCountry:    cfg.DefaultCountryCode,
		FactorCache:       "disabled",
		WriteLock:         "local",
	}
	var factorCache fpsvc.FactorCache
	var locker fpsvc.Locker = lock.NewLocalLocker()
	if rdb != nil {
		factorCache = cache.NewFactorCache(rdb, cfg.FactorCacheTTL)
		locker = lock.NewRedisLocker(rdb, cfg.CalculationLockTTL)
		engine.FactorCache = "redis"
		engine.WriteLock = "redis"
	}

	collector := &healthsvc.Collector{Rdb: rdb, Engine: engine}
	if db != nil {
		collector.DB = &gormDBPinger{db: db}
	}
	hh := &healthhandler.Handlers{
		Rdb:            rdb,
		Collector:      collector,
		HealthAdminKey: cfg.HealthAdminKey,
	}
	app.Get("/", hh.Dashboard)
	app.Get("/reset", hh.Reset)
	app.Get("/health/json", hh.JSON)
	app.Get("/health/errors", hh.Errors)

	if db == nil {
		log.Warn().Msg("no database configured, footprint routes disabled")
		return app, nil
	}

	svc := fpsvc.NewService(
		&database.MetricsStore{DB: db},
		&database.IngestionStore{DB: db},
		&database.SnapshotStore{DB: db},
		&database.FactorStore{DB: db},
		factorCache,
		locker,
		mapping,
	)
	svc.DefaultCountry = cfg.DefaultCountryCode

	fh := &fphandler.Handlers{Service: svc}
	fg := app.Group("/api/v1/footprint")
	fg.Post("/calculate", fh.Calculate)
	fg.Get("/snapshot", fh.Snapshot)
	fg.Get("/history", fh.History)
	fg.Post("/simulate", fh.Simulate)
	fg.Get("/factors", fh.Factors)
	fg.Post("/factors/sync", middleware.RequireAdminKey(cfg.FactorAdminKeyHash), fh.SyncFactors)

	return app, nil
}
