package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/gorm"
	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	"maitre/internal/api"
	"maitre/internal/assistant"
	"maitre/internal/auth"
	"maitre/internal/capture"
	"maitre/internal/config"
	"maitre/internal/database"
	"maitre/internal/events"
	"maitre/internal/logger"
	"maitre/internal/models/providers"
	"maitre/internal/monitoring"
	"maitre/internal/speech"
)

var (
	port        = flag.Int("port", 0, "API server port (overrides config)")
	metricsPort = flag.Int("metrics-port", 0, "Metrics server port (overrides config)")
	configFile  = flag.String("config", "configs/config.yaml", "Path to configuration file")
	mintToken   = flag.String("mint-token", "", "Print a bearer token for the given user id and exit")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *metricsPort != 0 {
		cfg.Metrics.Port = *metricsPort
	}

	tokens, err := auth.NewTokens(cfg.Auth.Secret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize auth: %v\n", err)
		os.Exit(1)
	}
	if *mintToken != "" {
		token, err := tokens.Generate(*mintToken, "staff")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to mint token: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(token)
		return
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, tokens, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, tokens *auth.Tokens, log *zap.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	db, err := initializeDB(cfg.Database, log)
	if err != nil {
		return err
	}
	defer db.Close()

	provider, err := initializeLLM(cfg.LLM, log)
	if err != nil {
		return err
	}

	normalizer, err := initializeNormalizer(cfg.Voice.RulesFile)
	if err != nil {
		return err
	}

	publisher := events.Publisher(events.NoopPublisher{})
	if cfg.AMQP.Enabled {
		p, err := events.DialAMQP(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if err != nil {
			return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
		}
		publisher = p
		log.Info("publishing order events", zap.String("exchange", cfg.AMQP.Exchange))
	}
	defer publisher.Close()

	sessions, closeStore, err := initializeSessions(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	collector := monitoring.NewMetricsCollector()
	monitor := monitoring.NewMonitor()
	providerName := "none"
	if provider != nil {
		providerName = provider.Name()
	}
	monitor.RecordMetric("llm_provider", providerName)
	sessionStore := "memory"
	if cfg.Redis.Enabled {
		sessionStore = "redis"
	}
	monitor.RecordMetric("session_store", sessionStore)
	hub := speech.NewHub(speech.Settings{
		Rate:   cfg.Speech.Rate,
		Pitch:  cfg.Speech.Pitch,
		Volume: cfg.Speech.Volume,
	}, log.Named("speech"))

	opts := assistant.Options{
		Repository:     database.NewStore(db),
		Provider:       provider,
		Normalizer:     normalizer,
		Publisher:      publisher,
		Chooser:        assistant.NewRandomChooser(0),
		AnalyzeTimeout: cfg.LLM.AnalyzeTimeout,
		Logger:         log.Named("assistant"),
		Metrics:        collector,
		Monitor:        monitor,
	}
	if cfg.Speech.Enabled {
		opts.Speaker = hub
	}

	gin.SetMode(cfg.Server.Mode)
	srv := api.NewServer(api.Options{
		Assistant: assistant.New(opts),
		Sessions:  sessions,
		Hub:       hub,
		Tokens:    tokens,
		Monitor:   monitor,
		Metrics:   collector,
		Logger:    log.Named("http"),
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      srv.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metricsServer = startMetricsServer(cfg.Metrics, collector, log)
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting API server", zap.Int("port", cfg.Server.Port), zap.Bool("llm", provider != nil))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("API server error: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down servers")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("API server shutdown error", zap.Error(err))
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			log.Error("metrics server shutdown error", zap.Error(err))
		}
	}
	return nil
}

func initializeDB(cfg config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	db, err := database.Open(cfg.Driver, cfg.DSN, log.Named("gorm"))
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	if cfg.Seed {
		if err := database.Seed(db); err != nil {
			db.Close()
			return nil, err
		}
	}
	return db, nil
}

// initializeLLM returns a nil provider when no API key is configured; the
// assistant then runs on its keyword heuristics alone.
func initializeLLM(cfg config.LLMConfig, log *zap.Logger) (providers.Provider, error) {
	provider, err := providers.New(cfg)
	if errors.Is(err, providers.ErrNoProvider) {
		log.Warn("no LLM api key configured, using keyword analysis only")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM: %w", err)
	}
	log.Info("LLM provider ready", zap.String("provider", provider.Name()), zap.String("model", cfg.Model))
	return provider, nil
}

func initializeNormalizer(rulesFile string) (*assistant.Normalizer, error) {
	if rulesFile == "" {
		return assistant.DefaultNormalizer(), nil
	}
	rules, err := assistant.LoadRules(rulesFile)
	if err != nil {
		return nil, err
	}
	return assistant.NewNormalizer(rules)
}

func initializeSessions(ctx context.Context, cfg *config.Config, log *zap.Logger) (*capture.Manager, func(), error) {
	gate := capture.GateConfig{
		Mode:              cfg.Voice.Mode,
		Keywords:          cfg.Voice.Keywords,
		Terminator:        cfg.Voice.Terminator,
		ActivationPhrase:  cfg.Voice.ActivationPhrase,
		ActivationTimeout: cfg.Voice.ActivationTimeout,
	}
	if _, err := capture.NewGate(gate); err != nil {
		return nil, nil, fmt.Errorf("invalid voice settings: %w", err)
	}

	if !cfg.Redis.Enabled {
		return capture.NewManager(capture.NewMemoryStore(cfg.Redis.SessionTTL, nil), gate), func() {}, nil
	}

	store, err := capture.NewRedisStore(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.SessionTTL)
	if err != nil {
		return nil, nil, err
	}
	log.Info("capture sessions stored in Redis", zap.String("addr", cfg.Redis.Addr))
	return capture.NewManager(store, gate), func() { store.Close() }, nil
}

func startMetricsServer(cfg config.MetricsConfig, collector *monitoring.MetricsCollector, log *zap.Logger) *http.Server {
	router := gin.New()
	router.GET(cfg.Path, gin.WrapH(collector.Handler()))

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: router,
	}

	go func() {
		log.Info("starting metrics server", zap.Int("port", cfg.Port), zap.String("path", cfg.Path))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server error", zap.Error(err))
		}
	}()
	return server
}
