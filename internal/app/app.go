package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sectrain_backend/internal/config"
	"sectrain_backend/internal/controller"
	"sectrain_backend/internal/repository"
	"sectrain_backend/internal/service"
	"sectrain_backend/pkg/database"
	"sectrain_backend/pkg/logger"
	"sectrain_backend/pkg/monitoring"
	"sectrain_backend/pkg/security"
	"sectrain_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config   *config.Config
	Router   *gin.Engine
	DB       *gorm.DB
	Redis    *redis.Client
	services *services

	dispatcherCancel context.CancelFunc
}

type repositories struct {
	user     *repository.UserRepository
	tenant   *repository.TenantRepository
	profile  *repository.RoleProfileRepository
	session  *repository.SessionRepository
	module   *repository.ModuleRepository
	evidence *repository.EvidenceRepository
	upload   *repository.ComplianceUploadRepository
	audit    *repository.AuditRepository
}

type services struct {
	audit      *service.AuditService
	tenant     *service.TenantService
	auth       *service.AuthService
	ai         *service.AIService
	scoring    *service.ScoringService
	training   *service.TrainingService
	evidence   *service.EvidenceService
	compliance *service.ComplianceService
}

type controllers struct {
	auth        *controller.AuthController
	tenant      *controller.TenantController
	roleProfile *controller.RoleProfileController
	training    *controller.TrainingController
	evidence    *controller.EvidenceController
	compliance  *controller.ComplianceController
	health      *controller.HealthController
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:     repository.NewUserRepository(db),
		tenant:   repository.NewTenantRepository(db),
		profile:  repository.NewRoleProfileRepository(db),
		session:  repository.NewSessionRepository(db),
		module:   repository.NewModuleRepository(db),
		evidence: repository.NewEvidenceRepository(db),
		upload:   repository.NewComplianceUploadRepository(db),
		audit:    repository.NewAuditRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, rdb *redis.Client) (*services, error) {
	s := &services{}

	s.audit = service.NewAuditService(repos.audit)
	s.tenant = service.NewTenantService(repos.tenant, rdb, cfg.Training)
	s.auth = service.NewAuthService(repos.user, s.tenant, cfg.JWT)

	s.ai = service.NewAIService(cfg.AI)
	s.scoring = service.NewScoringService(s.ai)
	s.training = service.NewTrainingService(repos.session, repos.module, repos.profile, s.scoring, s.ai, s.audit, cfg.Server.AppVersion)

	s.evidence = service.NewEvidenceService(repos.session, repos.module, repos.evidence, s.audit)

	archive, err := service.NewArchiveProvider(cfg.Archive)
	if err != nil {
		return nil, err
	}
	s.compliance = service.NewComplianceService(
		repos.evidence,
		repos.upload,
		repos.tenant,
		service.NewHTTPComplianceProvider(),
		service.NewPDFRenderer(),
		archive,
		s.audit,
		cfg.Compliance,
	)

	// Close the loop: terminal sessions produce evidence and dispatch it.
	s.training.Hook = service.NewEvidenceCompletionHook(s.evidence, s.compliance, s.tenant)

	return s, nil
}

func (a *App) initControllers(s *services, repos *repositories, db *gorm.DB) *controllers {
	return &controllers{
		auth:        controller.NewAuthController(s.auth),
		tenant:      controller.NewTenantController(s.tenant),
		roleProfile: controller.NewRoleProfileController(repos.profile),
		training:    controller.NewTrainingController(s.training, s.tenant, s.audit),
		evidence:    controller.NewEvidenceController(s.evidence, s.tenant),
		compliance:  controller.NewComplianceController(s.compliance, s.tenant),
		health:      controller.NewHealthController(db),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(security.RateLimiter(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute))

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func (a *App) startBackgroundTasks(s *services) {
	ctx, cancel := context.WithCancel(context.Background())
	a.dispatcherCancel = cancel
	go s.compliance.RunDispatcher(ctx)
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	if cfg.ForceMigrate || cfg.Server.Mode == "debug" {
		if err := database.Migrate(db); err != nil {
			logger.Log.Fatal("Failed to migrate database", zap.Error(err))
		}
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	if cfg.MigrateOnly {
		return app
	}

	repos := app.initRepositories(db)
	services, err := app.initServices(repos, cfg, rdb)
	if err != nil {
		logger.Log.Fatal("Failed to initialize services", zap.Error(err))
	}
	app.services = services
	controllers := app.initControllers(services, repos, db)

	monitoring.Init()

	gin.SetMode(ginMode(cfg.Server.Mode))
	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		if _, err := tracing.InitTracer("sectrain-backend", cfg.Tracing.CollectorEndpoint); err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
	}

	app.registerRoutes(router, controllers, repos, cfg)

	app.startBackgroundTasks(services)

	return app
}

// ApplyConfig takes a freshly reloaded configuration. Only settings
// read per-request through a.Config pick it up; connections and
// middleware keep their startup values.
func (a *App) ApplyConfig(cfg *config.Config) {
	a.Config = cfg
	logger.Log.Info("configuration reloaded")
}

func ginMode(mode string) string {
	switch mode {
	case "release", "test":
		return mode
	default:
		return gin.DebugMode
	}
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	if a.dispatcherCancel != nil {
		a.dispatcherCancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
