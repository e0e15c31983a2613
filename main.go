package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"music-brief-scheduler/internal/approval"
	"music-brief-scheduler/internal/api"
	"music-brief-scheduler/internal/brief"
	"music-brief-scheduler/internal/catalog"
	"music-brief-scheduler/internal/domain"
	"music-brief-scheduler/internal/engine"
	"music-brief-scheduler/internal/infrastructure/repository"
	"music-brief-scheduler/internal/llm"
	"music-brief-scheduler/internal/mailer"
	"music-brief-scheduler/internal/matcher"
	"music-brief-scheduler/internal/prompts"
	"music-brief-scheduler/internal/recommend"
	"music-brief-scheduler/internal/scheduler"
	"music-brief-scheduler/internal/search"
	"music-brief-scheduler/internal/syb"
	"music-brief-scheduler/pkg/circuit"
	"music-brief-scheduler/pkg/config"
	"music-brief-scheduler/pkg/container"
	"music-brief-scheduler/pkg/database"
	"music-brief-scheduler/pkg/events"
	"music-brief-scheduler/pkg/logging"
	"music-brief-scheduler/pkg/monitoring"
)

func main() {
	c := container.New()

	// Config and logging (singletons)
	_ = c.Provide(func() *config.Config { return config.Load() }, true)
	_ = c.Provide(func(cfg *config.Config) (*logging.Logger, error) {
		return logging.NewLogger(logging.LogConfig{
			Level:       logging.ParseLevel(cfg.LogLevel),
			Format:      cfg.LogFormat,
			Output:      "stdout",
			EnableFile:  cfg.EnableFileLogging,
			FilePath:    cfg.LogFile,
			EnableAsync: true,
		})
	}, true)

	// Catalog, lookup tables and the deterministic pipeline (singletons)
	_ = c.Provide(func() (*catalog.Catalog, error) { return catalog.Load(ConfigFiles()) }, true)
	_ = c.Provide(func(cfg *config.Config) (*catalog.Tables, error) {
		return catalog.LoadTables(cfg.CatalogOverridePath)
	}, true)
	_ = c.Provide(func(cat *catalog.Catalog, t *catalog.Tables) *matcher.Matcher {
		return matcher.New(cat, t)
	}, true)
	_ = c.Provide(func(t *catalog.Tables) *brief.Synthesizer { return brief.New(t) }, true)
	_ = c.Provide(func(m *matcher.Matcher, s *brief.Synthesizer) *recommend.Service {
		return recommend.NewService(m, s)
	}, true)
	_ = c.Provide(func(cfg *config.Config, svc *recommend.Service, lg *logging.Logger) *recommend.LLMFirst {
		return recommend.NewLLMFirst(svc, cfg.OpenAIAPIKey, cfg.OpenAIModel, lg)
	}, true)

	// External clients (singletons)
	_ = c.Provide(func() (*prompts.Manager, error) { return prompts.NewManager() }, true)
	_ = c.Provide(func(cfg *config.Config, lg *logging.Logger) llm.Client {
		return llm.NewAnthropicClient(cfg.AnthropicAPIKey, cfg.AnthropicModel, cfg.AnthropicTimeout, lg)
	}, true)
	_ = c.Provide(func(cfg *config.Config) *search.Client {
		return search.NewClient(cfg.SearchAPIKey, cfg.SearchURL)
	}, true)
	_ = c.Provide(func(cfg *config.Config, lg *logging.Logger) *mailer.Mailer {
		return mailer.New(cfg, lg)
	}, true)

	var cfg *config.Config
	if err := c.Resolve(&cfg); err != nil {
		log.Fatal("config resolve:", err)
	}
	var logger *logging.Logger
	if err := c.Resolve(&logger); err != nil {
		log.Fatal("logger resolve:", err)
	}
	mainLog := logger.WithComponent("main")
	mainLog.Info("starting music brief scheduler")

	// Persistence. Absent DATABASE_URL the service still consults and
	// recommends; everything durable is skipped.
	var (
		db   *database.DB
		repo domain.Repository
		uowf domain.UnitOfWorkFactory
		bus  events.Store = events.NopStore{}
	)
	if cfg.Persistent() {
		var err error
		db, err = database.New(cfg)
		if err != nil {
			log.Fatal("database:", err)
		}
		if err := db.Migrate(); err != nil {
			log.Fatal("migrate:", err)
		}
		repo = repository.NewSQLRepository(db)
		uowf = repository.NewSQLUnitOfWorkFactory(db)
		bus = events.NewSQLStore(db)
	}

	// Platform client behind a circuit breaker; nil when unconfigured.
	var (
		sybClient *syb.Client
		accounts  *syb.AccountCache
	)
	if cfg.SYBToken != "" {
		breaker := circuit.New(circuit.Config{
			Name:             "syb",
			OperationTimeout: 20 * time.Second,
		}, logger)
		sybClient = syb.NewClient(cfg.SYBToken, cfg.SYBAPIURL, breaker, logger)
		accounts = syb.NewAccountCache(sybClient)
	}

	tzResolver, err := approval.NewTimezoneResolver(cfg.GoogleMapsAPIKey)
	if err != nil {
		mainLog.Warn("timezone resolver unavailable", logging.Error(err))
	}

	var (
		llmClient llm.Client
		searcher  *search.Client
		mail      *mailer.Mailer
		recSvc    *recommend.Service
		llmFirst  *recommend.LLMFirst
		pm        *prompts.Manager
		synth     *brief.Synthesizer
	)
	for _, target := range []interface{}{&llmClient, &searcher, &mail, &recSvc, &llmFirst, &pm, &synth} {
		if err := c.Resolve(target); err != nil {
			log.Fatal("resolve:", err)
		}
	}

	eng := engine.New(llmClient, recSvc, searcher, sybClient, accounts, repo, pm, logger)

	approvalSvc := approval.NewService(approval.Deps{
		Repo:            repo,
		UOWFactory:      uowf,
		SYB:             sybClient,
		Accounts:        accounts,
		Mail:            mail,
		Synth:           synth,
		TZ:              tzResolver,
		Events:          bus,
		Logger:          logger,
		BaseURL:         cfg.BaseURL,
		RecipientEmail:  cfg.RecipientEmail,
		DefaultTimezone: cfg.DefaultTimezone,
	})

	metrics := monitoring.NewMetrics(512)
	server := api.NewServer(eng, llmFirst, approvalSvc, repo, bus, db, metrics, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		mainLog.Info("shutdown signal received")
		cancel()
	}()

	// Background loops need the clock and the database.
	if repo != nil {
		executor := scheduler.NewExecutor(repo, sybClient, mail, bus, logger, cfg.BaseURL, cfg.DefaultTimezone)
		go executor.Run(ctx)
		if cfg.KeepaliveEnabled {
			go scheduler.NewKeepalive(repo, logger, cfg.BaseURL).Run(ctx)
		}
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		mainLog.Info("server listening", logging.Field{Key: "port", Value: cfg.Port})
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error:", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		mainLog.Warn("HTTP server shutdown", logging.Error(err))
	}
	if db != nil {
		db.Close()
	}
	logger.Close()
	log.Println("shutdown complete")
}
