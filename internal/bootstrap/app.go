package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"roast-backend/internal/llm"
	"roast-backend/internal/llm/provider"
	"roast-backend/internal/roast"
	"roast-backend/internal/roasts"
	"roast-backend/internal/services/health"
	"roast-backend/internal/shared/config"
	"roast-backend/internal/shared/server"
	"roast-backend/internal/shared/server/middleware"
	"roast-backend/internal/shared/storage/db"
	"roast-backend/internal/shared/storage/object"
	gcsstore "roast-backend/internal/shared/storage/object/gcs"
	localstore "roast-backend/internal/shared/storage/object/local"
	s3store "roast-backend/internal/shared/storage/object/s3"
	"roast-backend/internal/shared/telemetry"
)

// App holds shared dependencies.
type App struct {
	Config        config.Config
	Router        *gin.Engine
	DB            *sql.DB
	Dialect       db.Dialect
	Redis         *redis.Client
	Store         object.ObjectStore
	LLM           llm.Client
	RoastsRepo    roasts.Repo
	RoastService  *roast.Service
	RoastHandler  *roast.Handler
	RoastsHandler *roasts.Handler
	Health        *health.Service

	closers []io.Closer
}

// Build prepares dependencies and wires the router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	ctx := context.Background()
	app := &App{Config: cfg}

	sqlDB, dialect, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app.DB, app.Dialect = sqlDB, dialect
	if sqlDB != nil {
		app.closers = append(app.closers, sqlDB)
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Store = store
	if c, ok := store.(io.Closer); ok {
		app.closers = append(app.closers, c)
	}

	client, err := buildLLM(ctx, cfg)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.LLM = client
	if c, ok := client.(io.Closer); ok {
		app.closers = append(app.closers, c)
	}

	if err := buildServices(app); err != nil {
		app.Close()
		return nil, err
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:        cfg,
		RoastHandler:  app.RoastHandler,
		RoastsHandler: app.RoastsHandler,
		RateLimiter:   middleware.NewRateLimiter(nil),
		Health:        app.Health,
	})

	telemetry.Info("bootstrap.ready", map[string]any{
		"env":          cfg.Env,
		"llm_provider": cfg.LLMProvider,
		"llm_model":    cfg.LLMModel,
		"llm_ready":    app.LLM != nil,
		"db_dialect":   string(app.Dialect),
		"object_store": cfg.ObjectStoreType,
		"count_cache":  app.Redis != nil,
	})
	return app, nil
}

// Close releases connections opened by Build.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, db.Dialect, error) {
	sqlDB, dialect, err := db.Open(ctx, db.Target{
		DatabaseURL: cfg.DatabaseURL,
		SQLitePath:  cfg.SQLitePath,
		Profile:     db.RuntimeProfile(),
	})
	switch {
	case err == nil:
		return sqlDB, dialect, nil
	case errors.Is(err, db.ErrNoDatabase) && config.IsDevLike(cfg.Env):
		telemetry.Info("bootstrap.memory_repos", map[string]any{"reason": "no DATABASE_URL or SQLITE_PATH"})
		return nil, "", nil
	case dialect == db.DialectPostgres && config.IsDevLike(cfg.Env):
		telemetry.Warn("bootstrap.db_fallback", map[string]any{"error": err.Error()})
		return nil, "", nil
	}
	return nil, "", err
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	case "gcs":
		return gcsstore.New(ctx, cfg.GCSBucket, cfg.S3Prefix)
	case "local":
		return localstore.New(cfg.LocalStoreDir), nil
	default:
		// A nil interface disables archiving.
		return nil, nil
	}
}

func buildLLM(ctx context.Context, cfg config.Config) (llm.Client, error) {
	client, err := provider.New(ctx, cfg)
	if err != nil {
		if errors.Is(err, llm.ErrNotConfigured) {
			telemetry.Warn("bootstrap.llm_not_configured", map[string]any{
				"provider": cfg.LLMProvider,
				"error":    err.Error(),
			})
			return nil, nil
		}
		return nil, err
	}
	return client, nil
}

func buildRoastsRepo(app *App) roasts.Repo {
	var repo roasts.Repo
	switch {
	case app.DB != nil && app.Dialect == db.DialectPostgres:
		repo = &roasts.PGRepo{DB: app.DB}
	case app.DB != nil && app.Dialect == db.DialectSQLite:
		repo = &roasts.SQLiteRepo{DB: app.DB}
	default:
		repo = roasts.NewMemoryRepo()
	}

	if strings.TrimSpace(app.Config.RedisURL) == "" {
		return repo
	}
	client, err := roasts.NewRedisClient(app.Config.RedisURL)
	if err != nil {
		telemetry.Warn("bootstrap.redis_disabled", map[string]any{"error": err.Error()})
		return repo
	}
	app.Redis = client
	app.closers = append(app.closers, client)
	return roasts.NewCountCache(repo, client, app.Config.CountCacheTTL)
}

func buildServices(app *App) error {
	cfg := app.Config
	app.RoastsRepo = buildRoastsRepo(app)
	app.RoastService = &roast.Service{
		LLM:   app.LLM,
		Repo:  app.RoastsRepo,
		Store: app.Store,
		Sampling: roast.Sampling{
			Temperature:     cfg.LLMTemperature,
			TopP:            cfg.LLMTopP,
			TopK:            cfg.LLMTopK,
			MaxOutputTokens: cfg.LLMMaxTokens,
		},
		Provider: cfg.LLMProvider,
		Model:    cfg.LLMModel,
	}
	app.RoastHandler = roast.NewHandler(app.RoastService)
	app.Health = health.NewService()
	if app.DB != nil {
		app.Health.Register("db", app.DB.PingContext)
	}
	if app.Redis != nil {
		rdb := app.Redis
		app.Health.Register("redis", func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	}
	app.RoastsHandler = roasts.NewHandler(app.RoastsRepo)

	if app.RoastHandler == nil || app.RoastsHandler == nil {
		return errors.New("failed to initialize handlers")
	}
	return nil
}
