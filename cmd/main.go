package main

import (
	"fmt"
	"os"

	"github.com/pitchpanel/pitchpanel-backend/internal/data/db"
	"github.com/pitchpanel/pitchpanel-backend/internal/data/repos"
	httpx "github.com/pitchpanel/pitchpanel-backend/internal/http"
	httpH "github.com/pitchpanel/pitchpanel-backend/internal/http/handlers"
	httpMW "github.com/pitchpanel/pitchpanel-backend/internal/http/middleware"
	"github.com/pitchpanel/pitchpanel-backend/internal/modules/analyzer"
	"github.com/pitchpanel/pitchpanel-backend/internal/modules/evaluation"
	"github.com/pitchpanel/pitchpanel-backend/internal/personas"
	"github.com/pitchpanel/pitchpanel-backend/internal/platform/dbctx"
	"github.com/pitchpanel/pitchpanel-backend/internal/platform/envutil"
	"github.com/pitchpanel/pitchpanel-backend/internal/platform/logger"
	"github.com/pitchpanel/pitchpanel-backend/internal/platform/openai"
	"github.com/pitchpanel/pitchpanel-backend/internal/services"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	gdb := postgresService.DB()
	if err := db.AutoMigrateAll(gdb); err != nil {
		log.Error("Postgres auto migration failed", "error", err)
		os.Exit(1)
	}

	// Repos
	log.Info("Setting up Repos from main...")
	userRepo := repos.NewUserRepo(gdb, log)
	ideaRepo := repos.NewIdeaRepo(gdb, log)
	stageRepo := repos.NewStageRepo(gdb, log)
	messageRepo := repos.NewMessageRepo(gdb, log)

	// Model gateway
	openaiClient, err := openai.NewClient(log)
	if err != nil {
		log.Error("Could not init OpenAI client", "error", err)
		os.Exit(1)
	}

	// Personas
	set := personas.DefaultSet()
	if path := envutil.String("PERSONAS_CONFIG", ""); path != "" {
		set, err = personas.Load(path)
		if err != nil {
			log.Error("Could not load persona config", "path", path, "error", err)
			os.Exit(1)
		}
	}
	if err := set.Validate(); err != nil {
		log.Error("Persona config invalid", "error", err)
		os.Exit(1)
	}

	// Services
	log.Info("Setting up Services from main...")
	gate := services.NewEntitlementService(userRepo, log)
	txRunner := dbctx.NewGormTxRunner(gdb)

	engine := evaluation.NewEngine(
		log, evaluation.DefaultConfig(), txRunner, openaiClient, set, gate,
		ideaRepo, stageRepo, messageRepo,
	)
	batch := analyzer.NewAnalyzer(log, analyzer.DefaultConfig(), openaiClient, set, gate)

	// HTTP
	log.Info("Setting up HTTP server from main...")
	srv := httpx.NewServer(httpx.RouterConfig{
		Log:            log,
		AuthMiddleware: httpMW.NewAuthMiddleware(log),
		HealthHandler:  httpH.NewHealthHandler(),
		IdeaHandler:    httpH.NewIdeaHandler(log, engine),
		StageHandler:   httpH.NewStageHandler(log, engine),
		AnalyzeHandler: httpH.NewAnalyzeHandler(log, batch),
	})

	addr := ":" + envutil.String("PORT", "8080")
	log.Info("Starting server", "addr", addr)
	if err := srv.Run(addr); err != nil {
		log.Error("Server exited", "error", err)
		os.Exit(1)
	}
}
