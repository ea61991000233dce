package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"descomplicacv/internal/conversions"
	"descomplicacv/internal/services/health"
	"descomplicacv/internal/shared/config"
	"descomplicacv/internal/shared/server"
	"descomplicacv/internal/shared/storage/db"
	"descomplicacv/internal/shared/storage/object"
	localstore "descomplicacv/internal/shared/storage/object/local"
	s3store "descomplicacv/internal/shared/storage/object/s3"
	"descomplicacv/internal/shared/telemetry"
)

// App holds the conversion API's shared dependencies.
type App struct {
	Config             config.Config
	Router             *gin.Engine
	DB                 *sql.DB
	Store              object.ObjectStore
	ConversionsRepo    conversions.Repo
	ConversionsService *conversions.Service
	ConversionHandler  *conversions.Handler
	Health             *health.Service
}

// Build wires the conversion API: optional database, object store, conversion service and router.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		closeDB(sqlDB)
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
	}
	buildServices(app)

	app.Router = server.NewRouter(server.RouterDeps{
		Config:            app.Config,
		ConversionHandler: app.ConversionHandler,
		Health:            app.Health,
	})
	return app, nil
}

// Close releases the database pool, if any.
func (a *App) Close() error {
	if a == nil || a.DB == nil {
		return nil
	}
	return a.DB.Close()
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if config.IsDevLike(cfg.Env) {
			telemetry.Info("bootstrap.memory_history", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.HistoryOptions()))
	if err != nil {
		if config.IsDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.memory_history", map[string]any{
				"reason": "database connect failed",
				"error":  err,
			})
			return nil, nil
		}
		return nil, err
	}

	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		closeDB(sqlDB)
		return nil, err
	}
	return sqlDB, nil
}

func closeDB(sqlDB *sql.DB) {
	if sqlDB != nil {
		_ = sqlDB.Close()
	}
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildServices(app *App) {
	var repo conversions.Repo
	if app.DB != nil {
		repo = &conversions.PGRepo{DB: app.DB}
	} else {
		repo = conversions.NewMemoryRepo()
	}

	svc := &conversions.Service{
		Repo:          repo,
		Store:         app.Store,
		SamplePDFPath: app.Config.SamplePDFPath,
	}

	app.ConversionsRepo = repo
	app.ConversionsService = svc
	app.ConversionHandler = conversions.NewHandler(svc, app.Config.MaxUploadBytes)
	app.Health = health.NewService(app.DB)
}
