package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"study-plan-assistant/internal/config"
	"study-plan-assistant/internal/domain/ports/adapter"
	"study-plan-assistant/internal/domain/ports/repository"
	aiAdapters "study-plan-assistant/internal/infra/adapters/ai"
	pg "study-plan-assistant/internal/infra/db/postgres"
	"study-plan-assistant/internal/infra/logging"
	"study-plan-assistant/internal/infra/metrics"
	red "study-plan-assistant/internal/infra/redis"
	"study-plan-assistant/internal/infra/sched"
	"study-plan-assistant/internal/infra/storage"
	"study-plan-assistant/internal/infra/web"
	"study-plan-assistant/internal/infra/worker"
	"study-plan-assistant/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (open sessions, console logs)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("developer mode enabled")
	}

	metrics.MustRegister()

	// ---- Job storage ----
	repo, err := storage.NewFileJobRepository(cfg.Storage.Dir)
	if err != nil {
		logger.Fatal().Err(err).Msg("job storage")
	}
	store := storage.NewJobStore(repo, logger)
	if n, err := store.LoadAll(ctx); err != nil {
		logger.Fatal().Err(err).Msg("rehydrate jobs")
	} else if n > 0 {
		logger.Info().Int("count", n).Msg("job records rehydrated")
	}

	// ---- Session directory (postgres, or open in dev) ----
	var sessions repository.SessionDirectory
	if cfg.Database.URL != "" {
		pool, err := pg.Connect(ctx, cfg.Database.URL)
		if err != nil {
			logger.Fatal().Err(err).Msg("postgres")
		}
		defer pool.Close()
		sessions = pg.NewSessionGuard(pool)
	} else if cfg.Runtime.Dev {
		sessions = storage.NewOpenSessionDirectory()
	} else {
		logger.Fatal().Msg("database.url is required outside dev mode")
	}

	// ---- Rate limiting (optional) ----
	var limiter usecase.StartLimiter
	if cfg.Redis.URL != "" {
		redisClient, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis")
		}
		defer redisClient.Close()
		limiter = red.NewRateLimiter(redisClient)
	}

	// ---- AI provider chain (openai -> gemini -> compat gateway) ----
	var chain []adapter.TextGenerator
	if cfg.AI.OpenAIKey != "" {
		a, err := aiAdapters.NewOpenAIAdapter(cfg.AI.OpenAIKey, cfg.AI.DefaultModel)
		if err != nil {
			logger.Fatal().Err(err).Msg("openai adapter")
		}
		chain = append(chain, a)
	}
	if cfg.AI.GeminiKey != "" {
		a, err := aiAdapters.NewGeminiAdapter(ctx, cfg.AI.GeminiKey, cfg.AI.GeminiURL, cfg.AI.DefaultModel)
		if err != nil {
			logger.Fatal().Err(err).Msg("gemini adapter")
		}
		chain = append(chain, a)
	}
	if cfg.AI.CompatBaseURL != "" {
		a, err := aiAdapters.NewCompatAdapter(cfg.AI.CompatKey, cfg.AI.DefaultModel, cfg.AI.CompatBaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("compat adapter")
		}
		chain = append(chain, a)
	}
	var ai adapter.TextGenerator
	switch {
	case len(chain) > 0:
		ai = aiAdapters.NewMultiAdapter(logger, chain...)
	case cfg.Runtime.Dev:
		logger.Warn().Msg("no AI provider configured, using noop adapter")
		ai = aiAdapters.NewNoopAdapter()
	default:
		logger.Fatal().Msg("no AI provider configured: set ai.openai_key, ai.gemini_key, or ai.compat_base_url")
	}
	logger.Info().Str("provider", ai.Name()).Str("model", cfg.AI.DefaultModel).Msg("AI adapter ready")

	// ---- Pipeline ----
	budget := usecase.NewPromptBudget(cfg.Pipeline.PromptBudget)
	gens := []usecase.Generator{
		usecase.NewStructuredGenerator(ai, budget, cfg.AI.MaxTokens, logger),
		usecase.NewDirectGenerator(ai, budget, cfg.AI.MaxTokens, logger),
		usecase.NewTemplateGenerator(),
	}
	pipeline := usecase.NewPlanPipeline(gens, usecase.NewValidationEngine(), cfg.Pipeline.MinChars, logger)

	// ---- Dispatcher ----
	journal := metrics.NewJournal(cfg.Storage.Dir, logger)
	pool := worker.NewPool(cfg.Pipeline.Workers, logger)
	pool.Start(ctx)
	defer pool.Stop()

	dispatcher := usecase.NewJobDispatcher(store, sessions, pipeline, ai, pool, journal, usecase.DispatcherOpts{
		Limiter:  limiter,
		Limit:    cfg.Redis.StartLimit,
		Window:   cfg.Redis.LimitWindow,
		SyncWait: cfg.Server.SyncWait,
	}, logger)
	poller := usecase.NewStatusPoller(store, logger)

	// ---- Retention worker ----
	retention := sched.NewRetentionWorker(10*time.Minute, cfg.Storage.Retention, cfg.Storage.OrphanAge, store, logger)
	go func() { _ = retention.Run(ctx) }()

	// ---- HTTP ----
	auth := web.NewAuthManager(cfg.Server.JWTSecret)
	api := web.NewServer(dispatcher, poller, journal, auth, logger)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: api.Routes(),
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	cancel()
}
