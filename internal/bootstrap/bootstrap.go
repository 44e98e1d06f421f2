package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/quantumlab/labtrack/docs" // registers the swagger spec
	appAuth "github.com/quantumlab/labtrack/internal/app/auth"
	appControllers "github.com/quantumlab/labtrack/internal/app/controllers"
	appMigrations "github.com/quantumlab/labtrack/internal/app/migrations"
	appRepos "github.com/quantumlab/labtrack/internal/app/repositories"
	appRoutes "github.com/quantumlab/labtrack/internal/app/routes"
	appServices "github.com/quantumlab/labtrack/internal/app/services"
	"github.com/quantumlab/labtrack/internal/config"
	"github.com/quantumlab/labtrack/internal/db"
	appMiddleware "github.com/quantumlab/labtrack/internal/middleware"
	pkgAuth "github.com/quantumlab/labtrack/internal/pkg/auth"
	"github.com/quantumlab/labtrack/internal/pkg/filestorage"
	"github.com/quantumlab/labtrack/internal/pkg/helpers"
	"github.com/quantumlab/labtrack/internal/pkg/logger"
	"github.com/quantumlab/labtrack/internal/pkg/taskqueue"
	"github.com/quantumlab/labtrack/internal/pkg/websocket"
	"github.com/quantumlab/labtrack/internal/seed"
)

// Stores are the persistence backends the services run on
type Stores struct {
	Users         appServices.UserStore
	Experiments   appServices.ExperimentStore
	Files         appServices.FileStore
	Reports       appServices.ReportStore
	Notifications appServices.NotificationStore
	Logs          appServices.LogStore
	Messages      appServices.MessageStore
	Stats         appServices.StatsStore
}

// PostgresStores backs every store with the pgx repositories
func PostgresStores(pool *pgxpool.Pool) Stores {
	repos := appRepos.NewRepositories(pool)
	return Stores{
		Users:         repos.UserRepository,
		Experiments:   repos.ExperimentRepository,
		Files:         repos.FileRepository,
		Reports:       repos.ReportRepository,
		Notifications: repos.NotificationRepository,
		Logs:          repos.LogRepository,
		Messages:      repos.MessageRepository,
		Stats:         repos.StatsRepository,
	}
}

// Dependencies holds all the application dependencies
type Dependencies struct {
	AuthService         *appServices.AuthService
	UserService         appServices.UserService // Interface type
	ExperimentService   *appServices.ExperimentService
	FileService         *appServices.FileService
	ReportService       *appServices.ReportService
	NotificationService *appServices.NotificationService
	AuditService        *appServices.AuditService
	MessageService      *appServices.MessageService
	StatsService        *appServices.StatsService

	Controllers    appRoutes.Controllers
	AuthMiddleware *appMiddleware.AuthMiddleware
	JWTService     *pkgAuth.JWTService
	Policy         *appAuth.Policy

	Hub         *websocket.Hub
	Broadcaster *websocket.Broadcaster
	Redis       *redis.Client // nil unless redis.addr is configured

	Stores      Stores
	FileStorage *filestorage.LocalStorage
	Logger      zerolog.Logger
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
func LoadConfigAndSetupLogger(configPath string) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	logLevel := logger.ParseLevel(cfg.Logging.Level)
	lgr := logger.Configure(logger.Config{
		Level:  logLevel,
		Pretty: strings.ToLower(cfg.Logging.Format) != "json",
	})

	lgr.Info().Str("logLevel", string(logLevel)).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	return cfg, lgr, nil
}

// ConnectDatabase opens the pgx pool
func ConnectDatabase(ctx context.Context, cfg *config.Config, lgr zerolog.Logger) (*pgxpool.Pool, error) {
	lgr.Info().Msg("Establishing database connection...")
	database, err := db.NewPostgresDB(ctx, cfg)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to connect to database")
		return nil, err
	}
	lgr.Info().Msg("Database connection successfully established.")
	return database.Pool, nil
}

// SetupDatabase connects, applies migrations and seeds default data.
func SetupDatabase(ctx context.Context, cfg *config.Config, lgr zerolog.Logger) (*pgxpool.Pool, error) {
	dbPool, err := ConnectDatabase(ctx, cfg, lgr)
	if err != nil {
		return nil, err
	}

	lgr.Info().Msg("Running database migrations...")
	if err := appMigrations.NewMigrator(dbPool, lgr).Up(ctx); err != nil {
		lgr.Error().Err(err).Msg("Database migration error")
		dbPool.Close()
		return nil, fmt.Errorf("database migrations failed: %w", err)
	}

	if err := seed.CreateDefaultData(ctx, appRepos.NewUserRepository(dbPool), cfg, lgr); err != nil {
		// Seeding is best-effort; the API is usable without it
		lgr.Error().Err(err).Msg("Failed to create default data, proceeding anyway...")
	}

	return dbPool, nil
}

// NewRedisClient returns nil when Redis is not configured
func NewRedisClient(ctx context.Context, cfg *config.Config, lgr zerolog.Logger) (*redis.Client, error) {
	if cfg.Redis.Addr == "" {
		lgr.Info().Msg("Redis not configured, realtime events stay in-process")
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to reach redis at %s: %w", cfg.Redis.Addr, err)
	}

	lgr.Info().Str("addr", cfg.Redis.Addr).Str("channel", cfg.Redis.Channel).Msg("Realtime events fan out through Redis")
	return client, nil
}

// NewTaskQueue starts the background worker pool from configuration
func NewTaskQueue(cfg *config.Config, lgr zerolog.Logger) *taskqueue.Queue {
	return taskqueue.New(taskqueue.Config{
		Workers: cfg.Tasks.Workers,
		Buffer:  cfg.Tasks.Buffer,
		Timeout: helpers.ParseDuration(cfg.Tasks.Timeout, 10*time.Second),
	}, lgr)
}

// BuildDependencies initializes services, controllers and middleware over the given stores.
// redisClient may be nil.
func BuildDependencies(
	cfg *config.Config,
	stores Stores,
	tasks taskqueue.Dispatcher,
	redisClient *redis.Client,
	lgr zerolog.Logger,
) (*Dependencies, error) {
	deps := &Dependencies{Stores: stores, Redis: redisClient, Logger: lgr}

	var err error
	deps.FileStorage, err = filestorage.NewLocalStorage(cfg.Server.StoragePath)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to initialize file storage")
		return nil, fmt.Errorf("failed to initialize file storage: %w", err)
	}

	if err := appMiddleware.RegisterValidators(); err != nil {
		return nil, fmt.Errorf("failed to register validators: %w", err)
	}

	deps.JWTService = pkgAuth.NewJWTService(pkgAuth.JWTConfig{
		SecretKey:   cfg.JWT.Secret,
		TokenTTL:    helpers.ParseDuration(cfg.JWT.Expiration, pkgAuth.DefaultTokenTTL),
		TokenIssuer: cfg.JWT.Issuer,
	})
	deps.Policy = appAuth.NewDefaultPolicy()
	deps.AuthMiddleware = appMiddleware.NewAuthMiddleware(deps.JWTService, deps.Policy)

	deps.Hub = websocket.NewHub(lgr)
	deps.Broadcaster = websocket.NewBroadcaster(deps.Hub, redisClient, cfg.Redis.Channel, lgr)

	// Initialize services
	deps.AuditService = appServices.NewAuditService(stores.Logs, tasks, lgr)
	deps.NotificationService = appServices.NewNotificationService(stores.Notifications, deps.Broadcaster, tasks, lgr)
	guard := appServices.NewExperimentGuard(stores.Experiments)

	deps.AuthService = appServices.NewAuthService(stores.Users, deps.JWTService, deps.AuditService, lgr)
	deps.UserService = appServices.NewUserService(stores.Users, deps.FileStorage, deps.AuditService, lgr)
	deps.ExperimentService = appServices.NewExperimentService(
		stores.Experiments,
		stores.Users,
		deps.FileStorage,
		deps.AuditService,
		deps.NotificationService,
		lgr,
	)
	deps.FileService = appServices.NewFileService(stores.Files, guard, deps.FileStorage, deps.AuditService, cfg.Server.MaxUploadMB, lgr)
	deps.ReportService = appServices.NewReportService(stores.Reports, guard, deps.AuditService)
	deps.MessageService = appServices.NewMessageService(stores.Messages, deps.Broadcaster, tasks, lgr)
	deps.StatsService = appServices.NewStatsService(stores.Stats)

	deps.Controllers = appRoutes.Controllers{
		Auth:          appControllers.NewAuthController(deps.AuthService, lgr),
		Users:         appControllers.NewUserController(deps.UserService),
		Experiments:   appControllers.NewExperimentController(deps.ExperimentService),
		Files:         appControllers.NewFileController(deps.FileService, deps.ReportService),
		Notifications: appControllers.NewNotificationController(deps.NotificationService),
		Logs:          appControllers.NewLogController(deps.AuditService),
		Messages:      appControllers.NewMessageController(deps.MessageService),
		Dashboard:     appControllers.NewDashboardController(deps.StatsService),
		Realtime:      websocket.NewHandler(deps.Hub, lgr),
	}

	return deps, nil
}

// corsConfig allows the configured origins, or reflects any origin when none are set
func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowOriginFunc = func(string) bool { return true }
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

// SetupRouter configures the Gin engine with middleware and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies, lgr zerolog.Logger) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
		lgr.Info().Msg("Setting Gin mode to release")
	}

	router := gin.New()
	router.MaxMultipartMemory = 8 << 20
	if err := router.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		lgr.Error().Err(err).Msg("Invalid trusted proxies, forwarded headers will be ignored")
		_ = router.SetTrustedProxies(nil)
	}
	forwarded, err := appMiddleware.ForwardedScheme(cfg.Server.TrustedProxies)
	if err != nil {
		lgr.Error().Err(err).Msg("Invalid trusted proxies, forwarded headers will be ignored")
		forwarded, _ = appMiddleware.ForwardedScheme(nil)
	}
	router.Use(gin.Recovery())
	router.Use(forwarded)
	router.Use(appMiddleware.RequestLogger(lgr))
	router.Use(appMiddleware.Metrics())
	router.Use(cors.New(corsConfig(cfg.Server.CORSOrigins)))

	// Setup Swagger
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json"), ginSwagger.DefaultModelsExpandDepth(1)))

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.Static(filestorage.PublicPrefix, deps.FileStorage.BasePath())

	appRoutes.SetupRouter(router, deps.Controllers, deps.AuthMiddleware)

	// Test endpoint
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong", "status": "success"})
	})

	return router
}
