package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/aidevlab/aidev-chat/internal/agent"
	"github.com/aidevlab/aidev-chat/internal/api"
	"github.com/aidevlab/aidev-chat/internal/bus/redisbus"
	"github.com/aidevlab/aidev-chat/internal/config"
	"github.com/aidevlab/aidev-chat/internal/llm"
	"github.com/aidevlab/aidev-chat/internal/llm/anthropic"
	"github.com/aidevlab/aidev-chat/internal/llm/gemini"
	"github.com/aidevlab/aidev-chat/internal/llm/openai"
	"github.com/aidevlab/aidev-chat/internal/orchestrator"
	mongorepo "github.com/aidevlab/aidev-chat/internal/repository/mongo"
	redisrepo "github.com/aidevlab/aidev-chat/internal/repository/redis"
	"github.com/aidevlab/aidev-chat/internal/session"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Println("Warning: .env file not found, relying on environment")
	}

	// Setup logger
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("ENV") != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if level, err := zerolog.ParseLevel(cfg.Logging.Level); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	log.Info().
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Msg("Starting aiDev chat server")

	// Initialize stores
	db, err := mongorepo.NewDB(context.Background(), cfg.Mongo)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}
	defer db.Close(context.Background())

	redisClient, err := redisrepo.NewClient(cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer redisClient.Close()

	// Initialize the inference gateway
	gateway := llm.NewGateway(cfg.LLM.DefaultProvider)
	log.Info().Msgf("Initializing LLM providers. Default: %s", cfg.LLM.DefaultProvider)

	if cfg.LLM.Anthropic.APIKey != "" {
		gateway.Register(anthropic.NewProvider(cfg.LLM.Anthropic.APIKey), llm.TierModels{
			Fast:    cfg.LLM.Anthropic.FastModel,
			Capable: cfg.LLM.Anthropic.CapableModel,
		})
	}
	if cfg.LLM.OpenAI.APIKey != "" {
		gateway.Register(openai.NewProvider(cfg.LLM.OpenAI.APIKey), llm.TierModels{
			Fast:    cfg.LLM.OpenAI.FastModel,
			Capable: cfg.LLM.OpenAI.CapableModel,
		})
	}
	if cfg.LLM.Gemini.APIKey != "" {
		gateway.Register(gemini.NewProvider(cfg.LLM.Gemini.APIKey), llm.TierModels{
			Fast:    cfg.LLM.Gemini.FastModel,
			Capable: cfg.LLM.Gemini.CapableModel,
		})
	}
	if len(gateway.ListProviders()) == 0 {
		log.Fatal().Msg("No LLM provider configured")
	}

	// Initialize repositories and the session manager
	sessionRepo := mongorepo.NewSessionRepository(db)
	messageRepo := mongorepo.NewMessageRepository(db)
	profileRepo := mongorepo.NewProfileRepository(db)
	sessions := session.NewManager(sessionRepo)

	// Initialize the agent bus
	agentBus, err := redisbus.NewStreamBus(context.Background(), redisClient, cfg.Bus)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize agent bus")
	}

	// Initialize the orchestrator
	tasks := orchestrator.NewTaskRunner(nil)
	orch := orchestrator.New(
		sessions,
		messageRepo,
		profileRepo,
		gateway,
		agent.NewRouter(gateway),
		agent.NewExtractor(gateway),
		agent.NewSummarizer(gateway),
		agent.NewEstimator(gateway),
		agentBus,
		redisrepo.NewReplyCache(redisClient),
		tasks,
	)

	// Consume collaboration envelopes until shutdown
	consumeCtx, stopConsumer := context.WithCancel(context.Background())
	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		if err := agentBus.Consume(consumeCtx, orch.HandleEnvelope); err != nil && consumeCtx.Err() == nil {
			log.Error().Err(err).Msg("Agent bus consumer stopped")
		}
	}()

	// Initialize router
	router := api.NewRouter(cfg, api.Dependencies{
		Orchestrator: orch,
		Sessions:     sessions,
		Messages:     messageRepo,
		Profiles:     profileRepo,
		Gateway:      gateway,
		Mongo:        db,
		Redis:        redisClient,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Msgf("Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	stopConsumer()
	<-consumerDone
	tasks.Wait()

	log.Info().Msg("Server stopped")
}
