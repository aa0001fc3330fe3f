package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"resume-wizard/internal/ingest"
	"resume-wizard/internal/llm"
	"resume-wizard/internal/llm/gemini"
	"resume-wizard/internal/services/health"
	"resume-wizard/internal/shared/config"
	"resume-wizard/internal/shared/server"
	"resume-wizard/internal/shared/storage/db"
	"resume-wizard/internal/shared/storage/object"
	localstore "resume-wizard/internal/shared/storage/object/local"
	s3store "resume-wizard/internal/shared/storage/object/s3"
	"resume-wizard/internal/speech"
	"resume-wizard/internal/usage"
	"resume-wizard/internal/wizard"
)

// App holds shared dependencies built once at startup.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Store  object.ObjectStore
	LLM    llm.Client

	SessionsRepo  wizard.Repo
	UsageService  *usage.Service
	WizardService *wizard.Service
	SpeechManager *speech.Manager
	IngestService *ingest.Service

	WizardHandler *wizard.Handler
	SpeechHandler *speech.Handler
	IngestHandler *ingest.Handler
	UsageHandler  *usage.Handler
}

// Build prepares shared dependencies and wires the router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	llmClient, err := buildLLM(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
		LLM:    llmClient,
	}
	buildServices(app)

	app.Router = server.NewRouter(server.RouterDeps{
		Config:        app.Config,
		Health:        health.NewService(),
		WizardHandler: app.WizardHandler,
		SpeechHandler: app.SpeechHandler,
		IngestHandler: app.IngestHandler,
		UsageHandler:  app.UsageHandler,
	})

	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}

	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		sqlDB.Close()
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: migrations failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}

	return sqlDB, nil
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

func buildLLM(ctx context.Context, cfg config.Config) (llm.Client, error) {
	if cfg.LLMProvider != "gemini" {
		return llm.PlaceholderClient{}, nil
	}
	apiKey := os.Getenv("GEMINI_API_KEY")
	if strings.TrimSpace(apiKey) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: GEMINI_API_KEY empty; llm calls will fail until configured")
			return llm.PlaceholderClient{}, nil
		}
		return nil, fmt.Errorf("GEMINI_API_KEY is required when LLM_PROVIDER=gemini")
	}
	return gemini.NewClient(ctx, apiKey, cfg.LLMModel)
}

func buildServices(app *App) {
	var sessionsRepo wizard.Repo
	if app.DB != nil {
		sessionsRepo = &wizard.PGRepo{DB: app.DB}
	} else {
		sessionsRepo = wizard.NewMemoryRepo()
	}

	var usageSvc *usage.Service
	if app.DB != nil {
		usageSvc = usage.NewPostgresService(usage.NewPGStore(app.DB))
	} else {
		usageSvc = usage.NewService()
	}

	wizardSvc := wizard.NewService(
		sessionsRepo,
		usageSvc,
		app.Store,
		app.LLM,
		app.Config.LLMProvider,
		app.Config.LLMModel,
	)
	speechManager := speech.NewManager()
	ingestSvc := ingest.NewService(app.Store, app.LLM, usageSvc)

	app.SessionsRepo = sessionsRepo
	app.UsageService = usageSvc
	app.WizardService = wizardSvc
	app.SpeechManager = speechManager
	app.IngestService = ingestSvc

	app.WizardHandler = wizard.NewHandler(wizardSvc)
	app.SpeechHandler = speech.NewHandler(speechManager, wizardSvc)
	app.IngestHandler = ingest.NewHandler(ingestSvc, wizardSvc)
	app.UsageHandler = usage.NewHandler(usageSvc)
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
